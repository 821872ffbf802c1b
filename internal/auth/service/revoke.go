package service

import (
	"context"
	"errors"

	"salesgate/internal/auth/models"
	sessionStore "salesgate/internal/auth/store/session"
	"salesgate/internal/platform/tracer"
	id "salesgate/pkg/domain"
	dErrors "salesgate/pkg/domain-errors"
	"salesgate/pkg/platform/audit"
	"salesgate/pkg/requestcontext"
)

// ForceRevokeSession revokes one session with reason forced and blacklists
// its token. It reports how many sessions changed state (0 or 1). The token
// is blacklisted even when the session was already revoked.
func (s *Service) ForceRevokeSession(ctx context.Context, sessionID id.SessionID) (revoked int, err error) {
	ctx, span := s.tracer.Start(ctx, tracer.SpanForceRevoke, tracer.String(tracer.AttrSessionID, sessionID.String()))
	defer func() {
		span.SetAttributes(tracer.Int64(tracer.AttrRevoked, int64(revoked)))
		span.End(err)
	}()

	if sessionID.IsNil() {
		return 0, dErrors.New(dErrors.CodeBadRequest, "session id is required")
	}
	return s.forceRevoke(ctx, sessionID)
}

// ForceLogoutUser revokes the user's unrevoked sessions in scope, or in every
// scope when scope is models.AllScopes.
func (s *Service) ForceLogoutUser(ctx context.Context, userID id.UserID, scope string) (revoked int, err error) {
	ctx, span := s.tracer.Start(ctx, tracer.SpanForceRevoke,
		tracer.String(tracer.AttrUserID, userID.String()),
		tracer.String(tracer.AttrTenantScope, scope),
	)
	defer func() {
		span.SetAttributes(tracer.Int64(tracer.AttrRevoked, int64(revoked)))
		span.End(err)
	}()

	if userID.IsNil() {
		return 0, dErrors.New(dErrors.CodeBadRequest, "user id is required")
	}

	sessions, err := s.sessions.ListActiveByUser(ctx, userID)
	if err != nil {
		return 0, s.handleSessionError(ctx, err, "user_id", userID.String())
	}

	for _, session := range sessions {
		if scope != models.AllScopes && session.TenantScope != scope {
			continue
		}
		n, err := s.forceRevoke(ctx, session.ID)
		if err != nil && !dErrors.HasCode(err, dErrors.CodeNotFound) {
			return revoked, err
		}
		revoked += n
	}

	s.logAudit(ctx, audit.Event{
		Action:      string(audit.EventSessionsRevoked),
		UserID:      userID,
		TenantScope: scope,
		Reason:      string(models.RevokeReasonForced),
	})
	return revoked, nil
}

func (s *Service) forceRevoke(ctx context.Context, sessionID id.SessionID) (int, error) {
	now := requestcontext.Now(ctx)

	session, err := s.sessions.RevokeIfActive(ctx, sessionID, now, models.RevokeReasonForced)
	revoked := 1
	if errors.Is(err, sessionStore.ErrSessionRevoked) && session != nil {
		revoked = 0
	} else if err != nil {
		return 0, s.handleSessionError(ctx, err, "session_id", sessionID.String())
	}

	if revoked == 1 {
		s.sessionRevoked(ctx, session)
	}

	inserted, err := s.blacklist.RevokeHash(ctx, session.TokenHash, session.UserID, session.ExpiresAt)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to blacklist token of revoked session",
			"error", err,
			"session_id", session.ID.String(),
			"log_type", "standard",
		)
		return revoked, err
	}
	if inserted {
		s.logAudit(ctx, audit.Event{
			Action:      string(audit.EventTokenRevoked),
			UserID:      session.UserID,
			SessionID:   session.ID,
			TenantScope: session.TenantScope,
			Reason:      string(models.RevokeReasonForced),
		})
	}
	return revoked, nil
}
