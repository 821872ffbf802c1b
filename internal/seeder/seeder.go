// Package seeder loads demo tenants and users for local development.
package seeder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"salesgate/internal/auth/credentials"
	"salesgate/internal/auth/models"
	tenantmodels "salesgate/internal/tenant/models"
	id "salesgate/pkg/domain"
	"salesgate/pkg/platform/sentinel"
)

// DemoPassword is the password of every seeded user. Dev environments only.
const DemoPassword = "demo-password"

type TenantStore interface {
	Create(ctx context.Context, t *tenantmodels.Tenant) error
}

type UserStore interface {
	Create(ctx context.Context, user *models.User) error
	Count(ctx context.Context) (int, error)
}

// Seeder populates stores with demo data
type Seeder struct {
	tenants TenantStore
	users   UserStore
	hash    func(string) (string, error)
	logger  *slog.Logger
}

type Option func(*Seeder)

// WithBcryptCost hashes demo secrets at the given cost.
func WithBcryptCost(cost int) Option {
	return func(s *Seeder) {
		s.hash = func(secret string) (string, error) {
			return credentials.HashSecretCost(secret, cost)
		}
	}
}

func New(tenants TenantStore, users UserStore, logger *slog.Logger, opts ...Option) *Seeder {
	s := &Seeder{
		tenants: tenants,
		users:   users,
		hash:    credentials.HashSecret,
		logger:  logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type demoUser struct {
	tenant string
	code   string
	email  string
	role   models.Role
}

var demoTenants = []struct {
	id        id.TenantID
	subdomain string
	name      string
}{
	{1, "acme", "Acme Corp"},
	{2, "globex", "Globex Corporation"},
}

var demoUsers = []demoUser{
	{"acme", "admin", "admin@acme.test", models.RoleAdmin},
	{"acme", "u-100", "ana@acme.test", models.RoleSales},
	{"acme", "u-200", "ben@acme.test", models.RoleTeamLeader},
	{"globex", "u-100", "carla@globex.test", models.RoleManager},
	{"", "legacy-1", "legacy@salesgate.test", models.RoleViewer},
}

// SeedAll creates the demo tenants and users. It is a no-op when users exist.
func (s *Seeder) SeedAll(ctx context.Context) error {
	count, err := s.users.Count(ctx)
	if err != nil {
		return fmt.Errorf("count users: %w", err)
	}
	if count > 0 {
		s.logger.InfoContext(ctx, "demo data already present, skipping seed", "users", count)
		return nil
	}

	now := time.Now().UTC()
	tenantIDs := make(map[string]id.TenantID, len(demoTenants))
	for _, dt := range demoTenants {
		t, err := tenantmodels.NewTenant(dt.id, dt.subdomain, dt.name, now)
		if err != nil {
			return fmt.Errorf("build tenant %s: %w", dt.subdomain, err)
		}
		if err := s.tenants.Create(ctx, t); err != nil && !errors.Is(err, sentinel.ErrAlreadyExists) {
			return fmt.Errorf("seed tenant %s: %w", dt.subdomain, err)
		}
		tenantIDs[t.Subdomain] = t.ID
	}

	hashed, err := s.hash(DemoPassword)
	if err != nil {
		return fmt.Errorf("hash demo password: %w", err)
	}

	for _, du := range demoUsers {
		secret := hashed
		// Legacy rows predate hashing and hold the secret verbatim.
		if du.tenant == "" {
			secret = DemoPassword
		}
		user := &models.User{
			ID:        id.NewUserID(),
			TenantID:  tenantIDs[du.tenant],
			Tenant:    du.tenant,
			Code:      du.code,
			Secret:    secret,
			Role:      du.role,
			Email:     du.email,
			CreatedAt: now,
		}
		if err := s.users.Create(ctx, user); err != nil {
			return fmt.Errorf("seed user %s/%s: %w", du.tenant, du.code, err)
		}
	}

	s.logger.InfoContext(ctx, "demo data seeded",
		"tenants", len(demoTenants),
		"users", len(demoUsers),
	)
	return nil
}
