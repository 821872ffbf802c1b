package httptransport

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	authhandler "salesgate/internal/auth/handler"
	"salesgate/internal/platform/health"
	"salesgate/pkg/platform/middleware/admin"
	authmw "salesgate/pkg/platform/middleware/auth"
	request "salesgate/pkg/platform/middleware/request"
	"salesgate/pkg/platform/middleware/requesttime"
)

const (
	defaultRequestTimeout = 10 * time.Second
	defaultMaxBodyBytes   = 16 << 10
)

// RouterConfig carries the handlers and middleware dependencies of the
// public router.
type RouterConfig struct {
	Auth       *authhandler.Handler
	Health     *health.Handler
	Authorizer *authmw.Authorizer

	AdminToken     string
	RequestTimeout time.Duration
	MaxBodyBytes   int64

	// Clock pins request time; nil uses the wall clock.
	Clock requesttime.Clock

	Metrics  *request.Metrics
	Gatherer prometheus.Gatherer
	Logger   *slog.Logger
}

// NewRouter wires all public endpoints with middleware.
func NewRouter(cfg RouterConfig) http.Handler {
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = defaultRequestTimeout
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = defaultMaxBodyBytes
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}

	r := chi.NewRouter()
	r.Use(request.Recovery(cfg.Logger))
	r.Use(request.RequestID)
	r.Use(request.ClientMetadata)
	r.Use(request.TenantSignal)
	r.Use(requesttime.WithClock(cfg.Clock))
	r.Use(request.Logger(cfg.Logger))
	r.Use(request.LatencyMiddleware(cfg.Metrics, routePattern))

	if cfg.Health != nil {
		cfg.Health.Register(r)
	}
	if cfg.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Group(func(r chi.Router) {
		r.Use(request.Timeout(cfg.RequestTimeout))
		r.Use(request.BodyLimit(cfg.MaxBodyBytes))
		r.Use(request.ContentTypeJSON)

		cfg.Auth.Register(r)

		r.Group(func(r chi.Router) {
			r.Use(authmw.RequireTenantAuth(cfg.Authorizer))
			cfg.Auth.RegisterProtected(r)
		})

		r.Group(func(r chi.Router) {
			r.Use(admin.RequireAdminToken(cfg.AdminToken, cfg.Logger))
			cfg.Auth.RegisterAdmin(r)
		})
	})

	return r
}

// routePattern labels latency by chi route so path ids do not become labels.
func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if p := rctx.RoutePattern(); p != "" {
			return p
		}
	}
	return "unmatched"
}
