package service

import (
	"context"
	"time"

	"salesgate/internal/platform/privacy"
	"salesgate/pkg/platform/audit"
	"salesgate/pkg/requestcontext"
)

// Observability helpers for logging, auditing, and metrics.

// logAudit writes the event to the audit log stream and the audit publisher.
// Request metadata is filled in from ctx.
func (s *Service) logAudit(ctx context.Context, event audit.Event) {
	event = enrich(ctx, event)

	args := []any{
		"event", event.Action,
		"log_type", "audit",
		"request_id", event.RequestID,
		"tenant_scope", event.TenantScope,
	}
	if !event.UserID.IsNil() {
		args = append(args, "user_id", event.UserID.String())
	}
	if !event.SessionID.IsNil() {
		args = append(args, "session_id", event.SessionID.String())
	}
	if event.Reason != "" {
		args = append(args, "reason", event.Reason)
	}
	s.logger.InfoContext(ctx, event.Action, args...)
	s.emit(ctx, event)
}

// authFailure records a rejected login or logout. Reasons are logged, never
// returned to the client.
func (s *Service) authFailure(ctx context.Context, reason string, isError bool, event audit.Event, attributes ...any) {
	event.Action = string(audit.EventAuthFailed)
	event.Decision = "denied"
	event.Reason = reason
	event = enrich(ctx, event)

	args := append(attributes,
		"event", event.Action,
		"reason", reason,
		"log_type", "standard",
		"request_id", event.RequestID,
		"tenant_scope", event.TenantScope,
	)
	if !event.UserID.IsNil() {
		args = append(args, "user_id", event.UserID.String())
	}
	if isError {
		s.logger.ErrorContext(ctx, event.Action, args...)
	} else {
		s.logger.WarnContext(ctx, event.Action, args...)
	}
	s.emit(ctx, event)
	s.metrics.IncrementAuthFailures(reason)
}

func (s *Service) emit(ctx context.Context, event audit.Event) {
	if s.auditPublisher == nil {
		return
	}
	if err := s.auditPublisher.Emit(ctx, event); err != nil {
		s.logger.ErrorContext(ctx, "failed to emit audit event", "error", err, "action", event.Action)
	}
}

func enrich(ctx context.Context, event audit.Event) audit.Event {
	if event.Timestamp.IsZero() {
		event.Timestamp = requestcontext.Now(ctx)
	}
	if event.RequestID == "" {
		event.RequestID = requestcontext.RequestID(ctx)
	}
	if event.ClientIP == "" {
		if ip := requestcontext.ClientIP(ctx); ip != "" {
			event.ClientIP = privacy.AnonymizeIP(ip)
		}
	}
	return event
}

func sinceMs(start time.Time) float64 {
	return float64(time.Since(start).Microseconds()) / 1000
}
