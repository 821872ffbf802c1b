package service

import (
	"context"
	"errors"

	sessionStore "salesgate/internal/auth/store/session"
	dErrors "salesgate/pkg/domain-errors"
	"salesgate/pkg/platform/sentinel"
)

// Store error handling: translates session store sentinels into domain errors.

type sessionErrorMapping struct {
	sentinel  error
	code      dErrors.Code
	msg       string
	logReason string
}

// sessionErrorMappings is checked in order; more specific errors come first.
// Anything unmatched is treated as the store being unavailable.
var sessionErrorMappings = []sessionErrorMapping{
	{sessionStore.ErrActiveSession, dErrors.CodeActiveSessionConflict, "user already has an active session", "active_session"},
	{sessionStore.ErrSessionRevoked, dErrors.CodeConflict, "session has already been revoked", "session_revoked"},
	{sentinel.ErrNotFound, dErrors.CodeNotFound, "session not found", "session_not_found"},
}

// handleSessionError translates a session store error exactly once.
// Domain errors pass through unchanged.
func (s *Service) handleSessionError(ctx context.Context, err error, attrs ...any) error {
	if err == nil {
		return nil
	}

	var de *dErrors.Error
	if errors.As(err, &de) {
		return err
	}

	for _, m := range sessionErrorMappings {
		if errors.Is(err, m.sentinel) {
			s.logger.InfoContext(ctx, "session store rejected request",
				append(attrs, "reason", m.logReason, "log_type", "standard")...)
			return dErrors.Wrap(err, m.code, m.msg)
		}
	}

	s.logger.ErrorContext(ctx, "session store failure",
		append(attrs, "error", err, "log_type", "standard")...)
	return dErrors.Wrap(err, dErrors.CodeUnavailable, "session store unavailable")
}
