package audit

import (
	"context"
	"time"

	id "salesgate/pkg/domain"
)

// Event is emitted from domain logic to capture key actions. Keep it
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	Timestamp   time.Time
	Action      string
	UserID      id.UserID
	SessionID   id.SessionID
	TenantScope string
	Decision    string
	Reason      string
	DeviceName  string
	ClientIP    string // anonymized prefix, never the full address
	RequestID   string
}

type AuditEvent string

const (
	EventSessionCreated  AuditEvent = "session_created"
	EventSessionRevoked  AuditEvent = "session_revoked"
	EventSessionsRevoked AuditEvent = "sessions_revoked"
	EventTokenRevoked    AuditEvent = "token_revoked"
	EventAuthFailed      AuditEvent = "auth_failed"
)

// Store persists audit events. Append must be safe for concurrent use.
type Store interface {
	Append(ctx context.Context, event Event) error
}
