// Package server assembles stores, services and the HTTP router from config
// and runs them until shutdown.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"salesgate/internal/auth/blacklist"
	"salesgate/internal/auth/credentials"
	authhandler "salesgate/internal/auth/handler"
	authmetrics "salesgate/internal/auth/metrics"
	"salesgate/internal/auth/models"
	"salesgate/internal/auth/service"
	"salesgate/internal/auth/store/revocation"
	sessionstore "salesgate/internal/auth/store/session"
	userstore "salesgate/internal/auth/store/user"
	"salesgate/internal/auth/token"
	"salesgate/internal/auth/workers/cleanup"
	"salesgate/internal/platform/config"
	"salesgate/internal/platform/database"
	"salesgate/internal/platform/health"
	"salesgate/internal/platform/kafka/producer"
	redisclient "salesgate/internal/platform/redis"
	"salesgate/internal/platform/tracer"
	"salesgate/internal/seeder"
	tenantmetrics "salesgate/internal/tenant/metrics"
	tenantmodels "salesgate/internal/tenant/models"
	"salesgate/internal/tenant/resolver"
	tenantstore "salesgate/internal/tenant/store/tenant"
	httptransport "salesgate/internal/transport/http"
	id "salesgate/pkg/domain"
	"salesgate/pkg/platform/audit"
	"salesgate/pkg/platform/audit/publisher"
	auditstore "salesgate/pkg/platform/audit/store"
	authmw "salesgate/pkg/platform/middleware/auth"
	request "salesgate/pkg/platform/middleware/request"
)

const (
	shutdownTimeout     = 10 * time.Second
	poolStatsInterval   = 15 * time.Second
	auditBufferSize     = 1024
	auditMemoryCapacity = 10_000
	readHeaderTimeout   = 5 * time.Second
)

type userStore interface {
	Create(ctx context.Context, user *models.User) error
	FindByID(ctx context.Context, userID id.UserID) (*models.User, error)
	FindByTenantAndCode(ctx context.Context, tenantID id.TenantID, code string) (*models.User, error)
	ListByCode(ctx context.Context, code string) ([]*models.User, error)
	Count(ctx context.Context) (int, error)
}

type tenantStore interface {
	Create(ctx context.Context, t *tenantmodels.Tenant) error
	FindBySubdomain(ctx context.Context, subdomain string) (*tenantmodels.Tenant, error)
}

type options struct {
	clock    func() time.Time
	registry *prometheus.Registry
}

type Option func(*options)

// WithClock replaces the wall clock for request time, tenant caching and
// blacklist purges. Used by the end-to-end harness.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.clock = now
		}
	}
}

func WithRegistry(reg *prometheus.Registry) Option {
	return func(o *options) {
		if reg != nil {
			o.registry = reg
		}
	}
}

// App owns every long-lived dependency of the service.
type App struct {
	cfg    *config.Config
	logger *slog.Logger

	handler   http.Handler
	service   *service.Service
	cleanup   *cleanup.CleanupService
	publisher *publisher.Publisher

	pool     *database.Pool
	redis    *redisclient.Client
	producer *producer.Producer

	// AuditLog holds recent audit events when no Kafka brokers are configured.
	AuditLog *auditstore.InMemoryStore
}

// New connects backends and builds the router. Call Close when done, even
// if Run was never called.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger, opts ...Option) (_ *App, err error) {
	o := options{clock: time.Now, registry: prometheus.NewRegistry()}
	for _, opt := range opts {
		opt(&o)
	}
	reg := o.registry
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	app := &App{cfg: cfg, logger: logger}
	defer func() {
		if err != nil {
			app.Close(context.Background())
		}
	}()

	if err = app.connect(ctx, reg); err != nil {
		return nil, err
	}

	tenants, users, err := app.identityStores()
	if err != nil {
		return nil, err
	}
	if cfg.SeedDemoData {
		if err = seeder.New(tenants, users, logger, seeder.WithBcryptCost(cfg.BcryptCost)).SeedAll(ctx); err != nil {
			return nil, fmt.Errorf("seed demo data: %w", err)
		}
	}

	sessions, err := app.sessionStore()
	if err != nil {
		return nil, err
	}
	revocations, err := app.revocationStore()
	if err != nil {
		return nil, err
	}
	bl := blacklist.New(revocations)

	codec, err := newCodec(cfg)
	if err != nil {
		return nil, err
	}

	tenantResolver := resolver.New(tenants,
		resolver.WithCacheTTL(cfg.TenantCacheTTL),
		resolver.WithMetrics(tenantmetrics.New(reg)),
		resolver.WithLogger(logger),
		resolver.WithClock(o.clock),
	)
	authenticator := credentials.New(users, tenantResolver,
		credentials.WithLogger(logger),
		credentials.WithBcryptCost(cfg.BcryptCost),
	)

	app.publisher = publisher.NewPublisher(app.auditStore(),
		publisher.WithAsyncBuffer(auditBufferSize),
		publisher.WithPublisherLogger(logger),
	)

	m := authmetrics.New(reg)
	tr := tracer.NewOTel()
	app.service = service.New(authenticator, codec, bl, sessions, users,
		service.WithLogger(logger),
		service.WithAuditPublisher(app.publisher),
		service.WithMetrics(m),
		service.WithTracer(tr),
		service.WithTouchTimeout(cfg.TouchTimeout),
	)

	app.cleanup, err = cleanup.New(bl,
		cleanup.WithCleanupInterval(cfg.BlacklistPurgeInterval),
		cleanup.WithCleanupLogger(logger),
		cleanup.WithCleanupMetrics(m),
		cleanup.WithClock(o.clock),
	)
	if err != nil {
		return nil, err
	}

	authorizer := authmw.NewAuthorizer(codec, bl, tenantResolver,
		authmw.WithLogger(logger),
		authmw.WithSessionToucher(app.service),
		authmw.WithDenialRecorder(m),
		authmw.WithTracer(tr),
	)

	app.handler = httptransport.NewRouter(httptransport.RouterConfig{
		Auth:           authhandler.New(app.service, logger),
		Health:         app.healthHandler(),
		Authorizer:     authorizer,
		AdminToken:     cfg.AdminAPIToken,
		RequestTimeout: cfg.RequestTimeout,
		MaxBodyBytes:   cfg.MaxBodyBytes,
		Clock:          o.clock,
		Metrics:        request.NewMetrics(reg),
		Gatherer:       reg,
		Logger:         logger,
	})
	return app, nil
}

func (a *App) connect(ctx context.Context, reg prometheus.Registerer) error {
	cfg := a.cfg
	if cfg.DatabaseURL != "" {
		if cfg.MigrateOnStart {
			if err := database.Migrate(cfg.DatabaseURL, database.MigrateUp); err != nil {
				return err
			}
		}
		pool, err := database.New(ctx, database.Config{
			URL:             cfg.DatabaseURL,
			MaxOpenConns:    cfg.DBMaxOpenConns,
			MaxIdleConns:    cfg.DBMaxIdleConns,
			ConnMaxLifetime: cfg.DBConnLifetime,
		}, reg)
		if err != nil {
			return err
		}
		a.pool = pool
	}

	if cfg.RedisURL != "" {
		client, err := redisclient.New(ctx, cfg.Redis(), reg)
		if err != nil {
			return err
		}
		a.redis = client
	}

	if cfg.KafkaBrokers != "" {
		p, err := producer.New(producer.DefaultConfig(cfg.KafkaBrokers), a.logger)
		if err != nil {
			return fmt.Errorf("kafka producer: %w", err)
		}
		a.producer = p
	}
	return nil
}

// identityStores keeps tenants and users in Postgres when a database is
// configured and in memory otherwise.
func (a *App) identityStores() (tenantStore, userStore, error) {
	if a.pool != nil {
		return tenantstore.NewPostgres(a.pool.DB()), userstore.NewPostgres(a.pool.DB()), nil
	}
	if !a.cfg.IsDev() {
		return nil, nil, errors.New("DATABASE_URL is required outside dev")
	}
	return tenantstore.NewInMemory(), userstore.New(), nil
}

func (a *App) sessionStore() (service.SessionStore, error) {
	switch a.cfg.SessionStore {
	case config.StorePostgres:
		if a.pool == nil {
			return nil, errors.New("postgres session store requires DATABASE_URL")
		}
		return sessionstore.NewPostgres(a.pool.DB()), nil
	case config.StoreRedis:
		if a.redis == nil {
			return nil, errors.New("redis session store requires REDIS_URL")
		}
		return sessionstore.NewRedis(a.redis.Client), nil
	case config.StoreMemory:
		return sessionstore.New(), nil
	}
	return nil, fmt.Errorf("unknown session store %q", a.cfg.SessionStore)
}

func (a *App) revocationStore() (blacklist.Store, error) {
	switch a.cfg.BlacklistStore {
	case config.StorePostgres:
		if a.pool == nil {
			return nil, errors.New("postgres blacklist store requires DATABASE_URL")
		}
		return revocation.NewPostgres(a.pool.DB()), nil
	case config.StoreRedis:
		if a.redis == nil {
			return nil, errors.New("redis blacklist store requires REDIS_URL")
		}
		return revocation.NewRedis(a.redis.Client), nil
	case config.StoreMemory:
		return revocation.NewInMemory(), nil
	}
	return nil, fmt.Errorf("unknown blacklist store %q", a.cfg.BlacklistStore)
}

func (a *App) auditStore() audit.Store {
	if a.producer != nil {
		return auditstore.NewKafka(a.producer, a.cfg.AuditTopic)
	}
	a.AuditLog = auditstore.NewInMemory(auditMemoryCapacity)
	return a.AuditLog
}

func (a *App) healthHandler() *health.Handler {
	h := health.New(a.cfg.Env, a.logger)
	if a.pool != nil {
		h.RegisterCheck("postgres", a.pool.Health)
	}
	if a.redis != nil {
		h.RegisterCheck("redis", a.redis.Health)
	}
	if a.producer != nil {
		h.RegisterCheck("kafka", a.producer.Ping)
	}
	return h
}

func newCodec(cfg *config.Config) (*token.Codec, error) {
	opts := []token.Option{
		token.WithIssuer(cfg.JWTIssuer),
		token.WithTTL(cfg.TokenTTL),
	}
	if cfg.JWTPreviousSigningKey != "" {
		opts = append(opts, token.WithPreviousKey(token.Key{
			ID:     cfg.JWTPreviousSigningKeyID,
			Secret: []byte(cfg.JWTPreviousSigningKey),
		}))
	}
	codec, err := token.New(token.Key{ID: cfg.JWTSigningKeyID, Secret: []byte(cfg.JWTSigningKey)}, opts...)
	if err != nil {
		return nil, fmt.Errorf("token codec: %w", err)
	}
	return codec, nil
}

// Handler is the fully wired HTTP handler.
func (a *App) Handler() http.Handler {
	return a.handler
}

// Run serves HTTP and runs background workers until ctx is cancelled, then
// shuts the server down gracefully.
func (a *App) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              a.cfg.Addr,
		Handler:           a.handler,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a.logger.Info("starting http server", "addr", a.cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		a.logger.Info("shutting down http server")
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(gctx), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	g.Go(func() error {
		if err := a.cleanup.Start(gctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})
	if a.redis != nil {
		g.Go(func() error {
			ticker := time.NewTicker(poolStatsInterval)
			defer ticker.Stop()
			for {
				select {
				case <-ticker.C:
					a.redis.RecordPoolStats()
				case <-gctx.Done():
					return nil
				}
			}
		})
	}
	return g.Wait()
}

// Close drains pending session touches and audit events, then releases
// backend connections.
func (a *App) Close(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()

	if a.service != nil {
		if err := a.service.Wait(ctx); err != nil {
			a.logger.Warn("pending session touches abandoned", "error", err)
		}
	}
	if a.publisher != nil {
		a.publisher.Close()
	}
	if a.producer != nil {
		if err := a.producer.Close(ctx); err != nil {
			a.logger.Warn("kafka producer close failed", "error", err)
		}
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.logger.Warn("redis close failed", "error", err)
		}
	}
	if err := a.pool.Close(); err != nil {
		a.logger.Warn("database close failed", "error", err)
	}
}
