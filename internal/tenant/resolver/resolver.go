// Package resolver maps the per-request tenant signal (a subdomain) to a
// tenant record, with a short-lived cache in front of the tenant store.
package resolver

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"salesgate/internal/tenant/metrics"
	"salesgate/internal/tenant/models"
	dErrors "salesgate/pkg/domain-errors"
	"salesgate/pkg/platform/retry"
	"salesgate/pkg/platform/sentinel"
	"salesgate/pkg/requestcontext"
)

// DefaultCacheTTL keeps tenant changes visible within a few seconds.
const DefaultCacheTTL = 3 * time.Second

// DefaultLookupTimeout bounds a shared store lookup, which does not inherit
// the cancellation of the request that started it.
const DefaultLookupTimeout = 2 * time.Second

// TenantStore is the read side of the tenants table.
type TenantStore interface {
	FindBySubdomain(ctx context.Context, subdomain string) (*models.Tenant, error)
}

// Resolver is safe for concurrent use.
type Resolver struct {
	store   TenantStore
	cache   *tenantCache
	group   singleflight.Group
	policy  retry.Policy
	timeout time.Duration
	metrics *metrics.Metrics
	logger  *slog.Logger
	now     func() time.Time
}

type Option func(*Resolver)

// WithCacheTTL sets the positive-cache lifetime. Zero disables caching.
func WithCacheTTL(ttl time.Duration) Option {
	return func(r *Resolver) {
		r.cache = newTenantCache(ttl)
	}
}

func WithRetryPolicy(p retry.Policy) Option {
	return func(r *Resolver) {
		r.policy = p
	}
}

// WithLookupTimeout bounds each shared store lookup.
func WithLookupTimeout(d time.Duration) Option {
	return func(r *Resolver) {
		if d > 0 {
			r.timeout = d
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Resolver) {
		r.metrics = m
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(r *Resolver) {
		r.logger = logger
	}
}

// WithClock overrides the clock used for cache expiry.
func WithClock(now func() time.Time) Option {
	return func(r *Resolver) {
		r.now = now
	}
}

func New(store TenantStore, opts ...Option) *Resolver {
	r := &Resolver{
		store:   store,
		cache:   newTenantCache(DefaultCacheTTL),
		policy:  retry.DefaultPolicy,
		timeout: DefaultLookupTimeout,
		logger:  slog.Default(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve returns the tenant named by signal, or nil when the signal is
// empty or matches no tenant. Errors are store failures only.
func (r *Resolver) Resolve(ctx context.Context, signal string) (*models.Tenant, error) {
	subdomain := models.NormalizeSubdomain(signal)
	if subdomain == "" {
		return nil, nil
	}

	if t, ok := r.cache.get(subdomain, r.now()); ok {
		r.metrics.IncResolution(metrics.ResultCacheHit)
		return t.Clone(), nil
	}

	v, err := r.shared(ctx, subdomain)
	if err != nil {
		r.metrics.IncResolution(metrics.ResultError)
		r.logger.ErrorContext(ctx, "tenant lookup failed",
			"subdomain", subdomain,
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "tenant lookup unavailable")
	}

	tenant, _ := v.(*models.Tenant)
	if tenant == nil {
		r.metrics.IncResolution(metrics.ResultNotFound)
		return nil, nil
	}
	r.metrics.IncResolution(metrics.ResultLoaded)
	return tenant.Clone(), nil
}

// Require is Resolve for routes that must be tenant scoped.
func (r *Resolver) Require(ctx context.Context, signal string) (*models.Tenant, error) {
	if models.NormalizeSubdomain(signal) == "" {
		return nil, dErrors.New(dErrors.CodeTenantNotResolved, "tenant could not be resolved from request")
	}
	tenant, err := r.Resolve(ctx, signal)
	if err != nil {
		return nil, err
	}
	if tenant == nil {
		return nil, dErrors.New(dErrors.CodeTenantNotFound, "tenant not found")
	}
	return tenant, nil
}

// Invalidate drops a cached tenant so the next request re-reads it.
func (r *Resolver) Invalidate(signal string) {
	r.cache.invalidate(models.NormalizeSubdomain(signal))
}

// shared joins the in-flight lookup for subdomain. Each caller stops waiting
// when its own context ends; the lookup itself keeps running for the rest.
func (r *Resolver) shared(ctx context.Context, subdomain string) (any, error) {
	ch := r.group.DoChan(subdomain, func() (any, error) {
		lookupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.timeout)
		defer cancel()
		return r.load(lookupCtx, subdomain)
	})
	select {
	case res := <-ch:
		return res.Val, res.Err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (r *Resolver) load(ctx context.Context, subdomain string) (*models.Tenant, error) {
	start := time.Now()
	defer r.metrics.ObserveResolve(start)

	tenant, err := retry.Read(ctx, r.policy, func(ctx context.Context) (*models.Tenant, error) {
		return r.store.FindBySubdomain(ctx, subdomain)
	})
	if errors.Is(err, sentinel.ErrNotFound) {
		return (*models.Tenant)(nil), nil
	}
	if err != nil {
		return nil, err
	}
	r.cache.set(subdomain, tenant, r.now())
	return tenant, nil
}
