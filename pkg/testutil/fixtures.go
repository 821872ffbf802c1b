package testutil

import (
	"time"

	"github.com/google/uuid"

	authmodels "salesgate/internal/auth/models"
	"salesgate/internal/auth/token"
	tenantmodels "salesgate/internal/tenant/models"
	id "salesgate/pkg/domain"
)

// TestIDs provides convenient pre-generated IDs for tests.
// Use these for deterministic test data.
var TestIDs = struct {
	UserID1    id.UserID
	UserID2    id.UserID
	TenantID1  id.TenantID
	TenantID2  id.TenantID
	SessionID1 id.SessionID
	SessionID2 id.SessionID
}{
	UserID1:    id.UserID(uuid.MustParse("11111111-1111-1111-1111-111111111111")),
	UserID2:    id.UserID(uuid.MustParse("22222222-2222-2222-2222-222222222222")),
	TenantID1:  1,
	TenantID2:  2,
	SessionID1: id.SessionID(uuid.MustParse("eeee0000-0000-0000-0000-000000000001")),
	SessionID2: id.SessionID(uuid.MustParse("eeee0000-0000-0000-0000-000000000002")),
}

// UserBuilder provides a fluent interface for building test users.
type UserBuilder struct {
	user *authmodels.User
}

// NewUserBuilder creates a user in tenant "acme" with code u1 and secret p1.
func NewUserBuilder() *UserBuilder {
	return &UserBuilder{
		user: &authmodels.User{
			ID:        id.UserID(uuid.New()),
			TenantID:  TestIDs.TenantID1,
			Tenant:    "acme",
			Code:      "u1",
			Secret:    "p1",
			Role:      authmodels.RoleSales,
			Email:     "u1@acme.test",
			CreatedAt: time.Now(),
		},
	}
}

func (b *UserBuilder) WithID(userID id.UserID) *UserBuilder {
	b.user.ID = userID
	return b
}

func (b *UserBuilder) WithTenant(tenantID id.TenantID, subdomain string) *UserBuilder {
	b.user.TenantID = tenantID
	b.user.Tenant = subdomain
	return b
}

// Legacy drops the tenant reference, as for pre-multi-tenant rows.
func (b *UserBuilder) Legacy() *UserBuilder {
	return b.WithTenant(0, "")
}

func (b *UserBuilder) WithCode(code string) *UserBuilder {
	b.user.Code = code
	return b
}

func (b *UserBuilder) WithSecret(secret string) *UserBuilder {
	b.user.Secret = secret
	return b
}

func (b *UserBuilder) WithRole(role authmodels.Role) *UserBuilder {
	b.user.Role = role
	return b
}

func (b *UserBuilder) WithEmail(email string) *UserBuilder {
	b.user.Email = email
	return b
}

func (b *UserBuilder) Build() *authmodels.User {
	return b.user
}

// SessionBuilder provides a fluent interface for building test sessions.
type SessionBuilder struct {
	session *authmodels.Session
}

// NewSessionBuilder creates an active 12h session for UserID1 in scope "acme".
func NewSessionBuilder() *SessionBuilder {
	now := time.Now()
	return &SessionBuilder{
		session: &authmodels.Session{
			ID:          id.SessionID(uuid.New()),
			UserID:      TestIDs.UserID1,
			TenantScope: "acme",
			TokenHash:   token.Hash(uuid.NewString()),
			CreatedAt:   now,
			LastSeenAt:  now,
			ExpiresAt:   now.Add(token.DefaultTTL),
		},
	}
}

func (b *SessionBuilder) WithID(sessionID id.SessionID) *SessionBuilder {
	b.session.ID = sessionID
	return b
}

func (b *SessionBuilder) WithUserID(userID id.UserID) *SessionBuilder {
	b.session.UserID = userID
	return b
}

func (b *SessionBuilder) WithScope(scope string) *SessionBuilder {
	b.session.TenantScope = scope
	return b
}

// WithToken binds the session to a raw token by storing its hash.
func (b *SessionBuilder) WithToken(raw string) *SessionBuilder {
	b.session.TokenHash = token.Hash(raw)
	return b
}

func (b *SessionBuilder) WithDeviceName(name string) *SessionBuilder {
	b.session.DeviceName = name
	return b
}

// CreatedAt moves creation, last-seen and expiry together.
func (b *SessionBuilder) CreatedAt(t time.Time) *SessionBuilder {
	ttl := b.session.ExpiresAt.Sub(b.session.CreatedAt)
	b.session.CreatedAt = t
	b.session.LastSeenAt = t
	b.session.ExpiresAt = t.Add(ttl)
	return b
}

func (b *SessionBuilder) ExpiresAt(t time.Time) *SessionBuilder {
	b.session.ExpiresAt = t
	return b
}

func (b *SessionBuilder) Revoked(at time.Time, reason authmodels.RevokeReason) *SessionBuilder {
	b.session.Revoke(at, reason)
	return b
}

func (b *SessionBuilder) Build() *authmodels.Session {
	return b.session
}

// TenantBuilder provides a fluent interface for building test tenants.
type TenantBuilder struct {
	tenant *tenantmodels.Tenant
}

// NewTenantBuilder creates tenant 1 with subdomain "acme".
func NewTenantBuilder() *TenantBuilder {
	return &TenantBuilder{
		tenant: &tenantmodels.Tenant{
			ID:        TestIDs.TenantID1,
			Subdomain: "acme",
			Name:      "Acme Corp",
			Metadata:  map[string]any{},
			CreatedAt: time.Now(),
		},
	}
}

func (b *TenantBuilder) WithID(tenantID id.TenantID) *TenantBuilder {
	b.tenant.ID = tenantID
	return b
}

func (b *TenantBuilder) WithSubdomain(subdomain string) *TenantBuilder {
	b.tenant.Subdomain = subdomain
	return b
}

func (b *TenantBuilder) WithName(name string) *TenantBuilder {
	b.tenant.Name = name
	return b
}

func (b *TenantBuilder) Build() *tenantmodels.Tenant {
	return b.tenant
}

// Quick helper functions for simple test cases

// NewTestUser creates a test user with the given code in the given tenant.
func NewTestUser(tenantID id.TenantID, subdomain, code, secret string) *authmodels.User {
	return NewUserBuilder().
		WithTenant(tenantID, subdomain).
		WithCode(code).
		WithSecret(secret).
		Build()
}

// NewTestTenant creates a test tenant with the given ID and subdomain.
func NewTestTenant(tenantID id.TenantID, subdomain string) *tenantmodels.Tenant {
	return NewTenantBuilder().
		WithID(tenantID).
		WithSubdomain(subdomain).
		WithName(subdomain).
		Build()
}
