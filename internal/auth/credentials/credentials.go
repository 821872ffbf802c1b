// Package credentials checks a login code and secret against the user store.
// Every failure collapses into CodeInvalidCredentials so callers cannot tell
// an unknown code from a wrong secret.
package credentials

import (
	"context"
	"crypto/subtle"
	"errors"
	"log/slog"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"salesgate/internal/auth/models"
	tenantmodels "salesgate/internal/tenant/models"
	id "salesgate/pkg/domain"
	dErrors "salesgate/pkg/domain-errors"
	"salesgate/pkg/platform/retry"
	"salesgate/pkg/platform/sentinel"
)

// UserStore is the read side of the users table.
type UserStore interface {
	FindByTenantAndCode(ctx context.Context, tenantID id.TenantID, code string) (*models.User, error)
	ListByCode(ctx context.Context, code string) ([]*models.User, error)
}

// TenantResolver maps a subdomain to its tenant; nil means no such tenant.
type TenantResolver interface {
	Resolve(ctx context.Context, signal string) (*tenantmodels.Tenant, error)
}

var errInvalid = dErrors.New(dErrors.CodeInvalidCredentials, "invalid credentials")

type Authenticator struct {
	users   UserStore
	tenants TenantResolver
	policy  retry.Policy
	logger  *slog.Logger
	cost    int

	// dummyHash is compared against when no user matched. It uses the same
	// cost as stored secrets so both failure paths take as long.
	dummyHash string
}

type Option func(*Authenticator)

func WithRetryPolicy(p retry.Policy) Option {
	return func(a *Authenticator) {
		a.policy = p
	}
}

// WithBcryptCost matches the cost stored secrets are hashed with.
func WithBcryptCost(cost int) Option {
	return func(a *Authenticator) {
		a.cost = cost
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(a *Authenticator) {
		a.logger = logger
	}
}

func New(users UserStore, tenants TenantResolver, opts ...Option) *Authenticator {
	a := &Authenticator{
		users:   users,
		tenants: tenants,
		policy:  retry.DefaultPolicy,
		logger:  slog.Default(),
		cost:    bcrypt.DefaultCost,
	}
	for _, opt := range opts {
		opt(a)
	}
	a.dummyHash, _ = HashSecretCost("salesgate-dummy-secret", a.cost)
	return a
}

// Authenticate returns the user owning (tenantScope, code) when secret
// matches. An empty scope takes the legacy path and matches the code across
// tenants, preferring the single legacy row. Store outages return
// CodeUnavailable; everything else is CodeInvalidCredentials.
func (a *Authenticator) Authenticate(ctx context.Context, tenantScope, code, secret string) (*models.User, error) {
	user, err := a.lookup(ctx, tenantScope, code)
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeUnavailable) {
			return nil, err
		}
		compareSecret(a.dummyHash, secret)
		return nil, errInvalid
	}
	if !compareSecret(user.Secret, secret) {
		return nil, errInvalid
	}
	return user, nil
}

func (a *Authenticator) lookup(ctx context.Context, tenantScope, code string) (*models.User, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, sentinel.ErrNotFound
	}

	if tenantmodels.NormalizeSubdomain(tenantScope) == "" {
		return a.lookupLegacy(ctx, code)
	}

	tenant, err := a.tenants.Resolve(ctx, tenantScope)
	if err != nil {
		return nil, err
	}
	if tenant == nil {
		return nil, sentinel.ErrNotFound
	}

	user, err := retry.Read(ctx, a.policy, func(ctx context.Context) (*models.User, error) {
		return a.users.FindByTenantAndCode(ctx, tenant.ID, code)
	})
	if err != nil {
		return nil, a.storeError(ctx, err)
	}
	return user, nil
}

func (a *Authenticator) lookupLegacy(ctx context.Context, code string) (*models.User, error) {
	users, err := retry.Read(ctx, a.policy, func(ctx context.Context) ([]*models.User, error) {
		return a.users.ListByCode(ctx, code)
	})
	if err != nil {
		return nil, a.storeError(ctx, err)
	}
	switch {
	case len(users) == 0:
		return nil, sentinel.ErrNotFound
	case users[0].IsLegacy():
		return users[0], nil
	case len(users) == 1:
		return users[0], nil
	default:
		a.logger.WarnContext(ctx, "unscoped login matched several tenants",
			"matches", len(users),
		)
		return nil, sentinel.ErrNotFound
	}
}

func (a *Authenticator) storeError(ctx context.Context, err error) error {
	if errors.Is(err, sentinel.ErrNotFound) {
		return err
	}
	a.logger.ErrorContext(ctx, "user lookup failed", "error", err)
	return dErrors.Wrap(err, dErrors.CodeUnavailable, "user store unavailable")
}

// compareSecret checks a bcrypt hash when the stored value is one, and
// falls back to a constant-time comparison for legacy verbatim secrets.
func compareSecret(stored, presented string) bool {
	if IsHashed(stored) {
		return bcrypt.CompareHashAndPassword([]byte(stored), []byte(presented)) == nil
	}
	return subtle.ConstantTimeCompare([]byte(stored), []byte(presented)) == 1
}

// IsHashed reports whether a stored secret is a bcrypt hash.
func IsHashed(stored string) bool {
	return strings.HasPrefix(stored, "$2a$") ||
		strings.HasPrefix(stored, "$2b$") ||
		strings.HasPrefix(stored, "$2y$")
}

// HashSecret returns a bcrypt hash suitable for the users.secret column.
func HashSecret(secret string) (string, error) {
	return HashSecretCost(secret, bcrypt.DefaultCost)
}

// HashSecretCost is HashSecret with an explicit bcrypt cost. Costs outside
// bcrypt's range fall back to the default.
func HashSecretCost(secret string, cost int) (string, error) {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	b, err := bcrypt.GenerateFromPassword([]byte(secret), cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
