// Package domain provides type-safe identifiers to prevent mixing up IDs at compile time.
package domain

import (
	"strconv"

	"github.com/google/uuid"

	dErrors "salesgate/pkg/domain-errors"
)

// Distinct ID types. The compiler rejects a SessionID where a UserID is expected.
type (
	UserID    uuid.UUID
	SessionID uuid.UUID
)

// TenantID is the numeric primary key of the tenants table. Zero means
// "no tenant" and marks legacy single-tenant users.
type TenantID int64

func NewUserID() UserID       { return UserID(uuid.New()) }
func NewSessionID() SessionID { return SessionID(uuid.New()) }

// Parse functions - use at trust boundaries (handlers, token claims).

func ParseUserID(s string) (UserID, error) {
	id, err := parseUUID(s, "user ID")
	return UserID(id), err
}

func ParseSessionID(s string) (SessionID, error) {
	id, err := parseUUID(s, "session ID")
	return SessionID(id), err
}

func ParseTenantID(s string) (TenantID, error) {
	if s == "" {
		return 0, dErrors.New(dErrors.CodeInvalidInput, "tenant ID cannot be empty")
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil || n <= 0 {
		return 0, dErrors.New(dErrors.CodeInvalidInput, "invalid tenant ID format")
	}
	return TenantID(n), nil
}

func (id UserID) String() string    { return uuid.UUID(id).String() }
func (id SessionID) String() string { return uuid.UUID(id).String() }
func (id TenantID) String() string  { return strconv.FormatInt(int64(id), 10) }

func (id UserID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }
func (id SessionID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }
func (id TenantID) IsNil() bool  { return id == 0 }

func parseUUID(s, label string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, label+" cannot be empty")
	}
	id, err := uuid.Parse(s)
	if err != nil || id == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "invalid "+label+" format")
	}
	return id, nil
}
