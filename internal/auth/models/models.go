package models

import (
	"time"

	id "salesgate/pkg/domain"
	dErrors "salesgate/pkg/domain-errors"
)

// This file contains pure domain models for authentication: entities
// that should not depend on transport or HTTP-specific concerns.

// Role is the user's role inside the CRM. Authorization beyond
// "is authenticated" belongs to the CRM, not this service.
type Role string

const (
	RoleAdmin      Role = "admin"
	RoleTeamLeader Role = "teamleader"
	RoleSales      Role = "sales"
	RoleManager    Role = "manager"
	RoleViewer     Role = "viewer"
)

func (r Role) IsValid() bool {
	switch r {
	case RoleAdmin, RoleTeamLeader, RoleSales, RoleManager, RoleViewer:
		return true
	}
	return false
}

// User is a login identity. Tenant is the owning tenant's subdomain and is
// empty for legacy single-tenant rows. Secret is the stored credential,
// either a bcrypt hash or a legacy verbatim value.
type User struct {
	ID        id.UserID
	TenantID  id.TenantID
	Tenant    string
	Code      string
	Secret    string
	Role      Role
	Email     string
	CreatedAt time.Time
}

// IsLegacy reports whether the user predates tenant scoping.
func (u *User) IsLegacy() bool {
	return u.TenantID.IsNil()
}

// AllScopes selects a user's sessions in every tenant scope. It cannot
// collide with a subdomain.
const AllScopes = "*"

// RevokeReason records why a session left the active state.
type RevokeReason string

const (
	RevokeReasonLogout  RevokeReason = "logout"
	RevokeReasonForced  RevokeReason = "forced"
	RevokeReasonExpired RevokeReason = "expired"
)

// Session is one login. A user holds at most one unrevoked session per
// tenant scope; revocation is terminal and sessions are never deleted.
type Session struct {
	ID          id.SessionID
	UserID      id.UserID
	TenantScope string // tenant subdomain, "" for legacy logins
	TokenHash   string // SHA-256 hex of the bearer token bound to this session
	DeviceName  string // e.g. "Chrome on macOS"

	CreatedAt    time.Time
	LastSeenAt   time.Time
	ExpiresAt    time.Time // equals the bound token's expiry
	RevokedAt    *time.Time
	RevokeReason RevokeReason
}

// NewSession builds an active session bound to an issued token.
func NewSession(sessionID id.SessionID, userID id.UserID, tenantScope, tokenHash string, now, expiresAt time.Time) (*Session, error) {
	if sessionID.IsNil() || userID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "session and user ids are required")
	}
	if tokenHash == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "token hash is required")
	}
	if !expiresAt.After(now) {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "session must expire after it is created")
	}
	return &Session{
		ID:          sessionID,
		UserID:      userID,
		TenantScope: tenantScope,
		TokenHash:   tokenHash,
		CreatedAt:   now,
		LastSeenAt:  now,
		ExpiresAt:   expiresAt,
	}, nil
}

func (s *Session) IsRevoked() bool {
	return s.RevokedAt != nil
}

// IsExpired reports whether the bound token has expired. An expired session
// stays unrevoked until the next login for the same user and scope.
func (s *Session) IsExpired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// IsActive reports whether the session is unrevoked and unexpired at now.
func (s *Session) IsActive(now time.Time) bool {
	return !s.IsRevoked() && !s.IsExpired(now)
}

// Revoke moves the session to the terminal revoked state.
// Returns false if it was already revoked; the first reason wins.
func (s *Session) Revoke(at time.Time, reason RevokeReason) bool {
	if s.IsRevoked() {
		return false
	}
	s.RevokedAt = &at
	s.RevokeReason = reason
	return true
}

// RecordActivity moves LastSeenAt forward, never backward.
func (s *Session) RecordActivity(at time.Time) {
	if at.After(s.LastSeenAt) {
		s.LastSeenAt = at
	}
}

// BlacklistedToken is a logged-out token. Only the hash is stored.
type BlacklistedToken struct {
	TokenHash string
	UserID    id.UserID
	CreatedAt time.Time
	ExpiresAt time.Time // mirrors the token's own expiry
}

// LoginResult is returned once the session row is durable.
type LoginResult struct {
	User    *User
	Session *Session
	Token   string
}
