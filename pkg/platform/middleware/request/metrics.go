package request

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the HTTP latency histogram. Labels are the chi route
// pattern, the method and the status class ("2xx", "4xx", ...).
type Metrics struct {
	latency *prometheus.HistogramVec
}

// Buckets cover fast token checks up to bcrypt-bound logins.
var latencyBuckets = []float64{.002, .005, .01, .025, .05, .1, .25, .5, 1, 2.5}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	return &Metrics{
		latency: promauto.With(reg).NewHistogramVec(prometheus.HistogramOpts{
			Name:    "salesgate_endpoint_latency_seconds",
			Help:    "Latency of HTTP endpoints by route pattern",
			Buckets: latencyBuckets,
		}, []string{"endpoint", "method", "status"}),
	}
}

func (m *Metrics) ObserveEndpointLatency(endpoint, method string, status int, seconds float64) {
	m.latency.WithLabelValues(endpoint, method, statusClass(status)).Observe(seconds)
}

func statusClass(status int) string {
	if status < 100 || status > 599 {
		return "unknown"
	}
	return strconv.Itoa(status/100) + "xx"
}
