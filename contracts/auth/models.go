// Package auth hosts the stable DTOs other services consume from salesgate.
// Keep them versioned independently from internal models and persistence.
package auth

import "time"

// ContractVersion identifies the contract schema version for compatibility checks.
// Bump on breaking changes to the shapes below; consumers can pin or roll forward.
const ContractVersion = "v1.0.0"

// Record headers set on every published audit event.
const (
	HeaderEventType       = "event_type"
	HeaderRequestID       = "request_id"
	HeaderContractVersion = "contract_version"
)

// AuditRecord is the JSON value of one audit event on the audit topic.
// Records are keyed by UserID; events without a user carry an empty key.
type AuditRecord struct {
	Timestamp   time.Time `json:"timestamp"`
	Action      string    `json:"action"`
	UserID      string    `json:"user_id,omitempty"`
	SessionID   string    `json:"session_id,omitempty"`
	TenantScope string    `json:"tenant_scope"`
	Decision    string    `json:"decision,omitempty"`
	Reason      string    `json:"reason,omitempty"`
	DeviceName  string    `json:"device_name,omitempty"`
	// ClientIP is anonymized to its network prefix before publishing.
	ClientIP  string `json:"client_ip_prefix,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}
