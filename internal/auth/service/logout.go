package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"salesgate/internal/auth/metrics"
	"salesgate/internal/auth/models"
	sessionStore "salesgate/internal/auth/store/session"
	"salesgate/internal/auth/token"
	"salesgate/internal/platform/tracer"
	dErrors "salesgate/pkg/domain-errors"
	"salesgate/pkg/platform/audit"
	"salesgate/pkg/platform/sentinel"
	"salesgate/pkg/requestcontext"
)

// Logout blacklists the token and revokes its session.
//
// A token that was already blacklisted yields CodeTokenRevoked, but the
// session revoke is still attempted so a logout that failed halfway can be
// completed by retrying.
func (s *Service) Logout(ctx context.Context, raw string) (err error) {
	start := time.Now()
	ctx, span := s.tracer.Start(ctx, tracer.SpanLogout)
	defer func() {
		span.End(err)
		s.metrics.ObserveLogoutDuration(sinceMs(start))
	}()

	raw = strings.TrimSpace(raw)
	if raw == "" {
		s.metrics.IncrementLogout(metrics.ResultRejected)
		return dErrors.New(dErrors.CodeBadRequest, "token is required")
	}

	claims, err := s.codec.Verify(ctx, raw)
	if err != nil {
		s.authFailure(ctx, string(dErrors.CodeOf(err)), false, audit.Event{})
		s.metrics.IncrementLogout(metrics.ResultRejected)
		return err
	}
	span.SetAttributes(
		tracer.String(tracer.AttrTenantScope, claims.TenantScope),
		tracer.String(tracer.AttrSessionID, claims.SessionID.String()),
	)

	inserted, err := s.blacklist.Revoke(ctx, raw, claims.UserID, claims.ExpiresAt)
	if err != nil {
		s.authFailure(ctx, "upstream_unavailable", true,
			audit.Event{UserID: claims.UserID, SessionID: claims.SessionID, TenantScope: claims.TenantScope}, "error", err)
		s.metrics.IncrementLogout(metrics.ResultError)
		return err
	}
	if inserted {
		span.AddEvent(tracer.EventTokenRevoked)
		s.logAudit(ctx, audit.Event{
			Action:      string(audit.EventTokenRevoked),
			UserID:      claims.UserID,
			SessionID:   claims.SessionID,
			TenantScope: claims.TenantScope,
			Reason:      string(models.RevokeReasonLogout),
		})
	}

	revokeErr := s.revokeForLogout(ctx, raw, claims)

	if !inserted {
		if revokeErr != nil {
			s.logger.WarnContext(ctx, "session revoke retry failed", "error", revokeErr, "session_id", claims.SessionID.String())
		}
		s.authFailure(ctx, "token_revoked", false,
			audit.Event{UserID: claims.UserID, SessionID: claims.SessionID, TenantScope: claims.TenantScope})
		s.metrics.IncrementLogout(metrics.ResultAlreadyRevoked)
		return dErrors.New(dErrors.CodeTokenRevoked, "token has already been revoked")
	}
	if revokeErr != nil {
		s.metrics.IncrementLogout(metrics.ResultError)
		return revokeErr
	}

	s.metrics.IncrementLogout(metrics.ResultSuccess)
	return nil
}

// revokeForLogout revokes the session named by the token, falling back to
// the user's active session in the token's scope when that session was
// issued this same token. A session that is already revoked or cannot be
// found is not an error.
func (s *Service) revokeForLogout(ctx context.Context, raw string, claims *token.Claims) error {
	now := requestcontext.Now(ctx)

	session, err := s.sessions.RevokeIfActive(ctx, claims.SessionID, now, models.RevokeReasonLogout)
	if errors.Is(err, sentinel.ErrNotFound) {
		active, findErr := s.sessions.FindActive(ctx, claims.UserID, claims.TenantScope)
		if errors.Is(findErr, sentinel.ErrNotFound) {
			return nil
		}
		if findErr != nil {
			return s.handleSessionError(ctx, findErr, "user_id", claims.UserID.String())
		}
		if !token.HashEqual(raw, active.TokenHash) {
			s.logger.InfoContext(ctx, "active session belongs to another token; left in place",
				"session_id", active.ID.String(),
				"request_id", requestcontext.RequestID(ctx),
			)
			return nil
		}
		session, err = s.sessions.RevokeIfActive(ctx, active.ID, now, models.RevokeReasonLogout)
	}

	switch {
	case err == nil:
		s.sessionRevoked(ctx, session)
		return nil
	case errors.Is(err, sessionStore.ErrSessionRevoked), errors.Is(err, sentinel.ErrNotFound):
		return nil
	default:
		return s.handleSessionError(ctx, err, "session_id", claims.SessionID.String())
	}
}

func (s *Service) sessionRevoked(ctx context.Context, session *models.Session) {
	s.logAudit(ctx, audit.Event{
		Action:      string(audit.EventSessionRevoked),
		UserID:      session.UserID,
		SessionID:   session.ID,
		TenantScope: session.TenantScope,
		Reason:      string(session.RevokeReason),
		DeviceName:  session.DeviceName,
	})
	s.metrics.IncrementSessionsRevoked(string(session.RevokeReason), 1)
}
