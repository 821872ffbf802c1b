package service

import (
	"context"
	"time"

	"salesgate/internal/auth/device"
	"salesgate/internal/auth/metrics"
	"salesgate/internal/auth/models"
	"salesgate/internal/auth/token"
	"salesgate/internal/platform/tracer"
	tenantmodels "salesgate/internal/tenant/models"
	id "salesgate/pkg/domain"
	dErrors "salesgate/pkg/domain-errors"
	"salesgate/pkg/platform/audit"
	"salesgate/pkg/requestcontext"
)

// Login authenticates the caller and opens a session bound to a new token.
// The token is returned only after the session row is written; a user who
// already holds an unexpired session in the same scope gets
// CodeActiveSessionConflict.
func (s *Service) Login(ctx context.Context, req *models.LoginRequest) (result *models.LoginResult, err error) {
	start := time.Now()
	scope := tenantmodels.NormalizeSubdomain(req.TenantScope)
	ctx, span := s.tracer.Start(ctx, tracer.SpanLogin, tracer.String(tracer.AttrTenantScope, scope))
	defer func() {
		span.End(err)
		s.metrics.ObserveLoginDuration(sinceMs(start))
	}()

	req.Normalize()
	if err := req.Validate(); err != nil {
		s.metrics.IncrementLogin(metrics.ResultRejected)
		return nil, err
	}

	user, err := s.authenticator.Authenticate(ctx, scope, req.Code, req.Password)
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeUnavailable) {
			s.authFailure(ctx, "upstream_unavailable", true, audit.Event{TenantScope: scope}, "error", err)
			s.metrics.IncrementLogin(metrics.ResultError)
			return nil, err
		}
		s.authFailure(ctx, "invalid_credentials", false, audit.Event{TenantScope: scope})
		s.metrics.IncrementLogin(metrics.ResultInvalidCredentials)
		return nil, err
	}

	// Unscoped logins of tenant-owned users are bound to the owning tenant so
	// tenant-isolated routes accept the token.
	sessionScope := scope
	if sessionScope == "" {
		sessionScope = user.Tenant
	}

	sessionID := id.NewSessionID()
	raw, claims, err := s.codec.Issue(ctx, token.IssueParams{
		UserID:      user.ID,
		SessionID:   sessionID,
		TenantScope: sessionScope,
		TenantID:    user.TenantID,
	})
	if err != nil {
		s.metrics.IncrementLogin(metrics.ResultError)
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to issue token")
	}

	now := requestcontext.Now(ctx)
	session, err := models.NewSession(sessionID, user.ID, sessionScope, token.Hash(raw), now, claims.ExpiresAt)
	if err != nil {
		s.metrics.IncrementLogin(metrics.ResultError)
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to build session")
	}
	session.DeviceName = device.Name(req.UserAgent)

	if err := s.sessions.Create(ctx, session); err != nil {
		err = s.handleSessionError(ctx, err, "user_id", user.ID.String(), "tenant_scope", sessionScope)
		if dErrors.HasCode(err, dErrors.CodeActiveSessionConflict) {
			s.authFailure(ctx, "active_session", false, audit.Event{UserID: user.ID, TenantScope: sessionScope})
			s.metrics.IncrementLogin(metrics.ResultConflict)
		} else {
			s.metrics.IncrementLogin(metrics.ResultError)
		}
		return nil, err
	}

	span.AddEvent(tracer.EventSessionCreated, tracer.String(tracer.AttrSessionID, sessionID.String()))
	s.logAudit(ctx, audit.Event{
		Action:      string(audit.EventSessionCreated),
		UserID:      user.ID,
		SessionID:   sessionID,
		TenantScope: sessionScope,
		Decision:    "granted",
		DeviceName:  session.DeviceName,
	})
	s.metrics.IncrementLogin(metrics.ResultSuccess)

	return &models.LoginResult{User: user, Session: session, Token: raw}, nil
}
