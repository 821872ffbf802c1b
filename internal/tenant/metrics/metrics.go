package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Resolution outcomes used as the "result" label.
const (
	ResultCacheHit = "cache_hit"
	ResultLoaded   = "loaded"
	ResultNotFound = "not_found"
	ResultError    = "error"
)

type Metrics struct {
	Resolutions     *prometheus.CounterVec
	ResolveDuration prometheus.Histogram
}

func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Resolutions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "salesgate_tenant_resolutions_total",
			Help: "Tenant resolutions by outcome",
		}, []string{"result"}),
		ResolveDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "salesgate_tenant_resolve_duration_seconds",
			Help:    "Duration of tenant lookups that missed the cache",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
	}
}

func (m *Metrics) IncResolution(result string) {
	if m == nil {
		return
	}
	m.Resolutions.WithLabelValues(result).Inc()
}

func (m *Metrics) ObserveResolve(start time.Time) {
	if m == nil {
		return
	}
	m.ResolveDuration.Observe(time.Since(start).Seconds())
}
