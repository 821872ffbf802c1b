package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Login and logout outcomes used as the "result" label.
const (
	ResultSuccess            = "success"
	ResultConflict           = "active_session"
	ResultInvalidCredentials = "invalid_credentials"
	ResultAlreadyRevoked     = "already_revoked"
	ResultRejected           = "rejected"
	ResultError              = "error"
)

// Metrics holds Prometheus collectors for auth operations.
type Metrics struct {
	Logins           *prometheus.CounterVec
	Logouts          *prometheus.CounterVec
	SessionsRevoked  *prometheus.CounterVec
	AuthFailures     *prometheus.CounterVec
	Denials          *prometheus.CounterVec
	TouchFailures    prometheus.Counter
	BlacklistPurged  prometheus.Counter
	LoginDurationMs  prometheus.Histogram
	LogoutDurationMs prometheus.Histogram
}

// New registers and returns auth metrics collectors on reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Logins: f.NewCounterVec(prometheus.CounterOpts{
			Name: "salesgate_logins_total",
			Help: "Login attempts by result",
		}, []string{"result"}),
		Logouts: f.NewCounterVec(prometheus.CounterOpts{
			Name: "salesgate_logouts_total",
			Help: "Logout attempts by result",
		}, []string{"result"}),
		SessionsRevoked: f.NewCounterVec(prometheus.CounterOpts{
			Name: "salesgate_sessions_revoked_total",
			Help: "Sessions moved to the revoked state, by reason",
		}, []string{"reason"}),
		AuthFailures: f.NewCounterVec(prometheus.CounterOpts{
			Name: "salesgate_auth_failures_total",
			Help: "Authentication failures by reason",
		}, []string{"reason"}),
		Denials: f.NewCounterVec(prometheus.CounterOpts{
			Name: "salesgate_auth_denials_total",
			Help: "Requests rejected by the auth middleware, by reason",
		}, []string{"reason"}),
		TouchFailures: f.NewCounter(prometheus.CounterOpts{
			Name: "salesgate_session_touch_failures_total",
			Help: "Best-effort last-seen updates that failed",
		}),
		BlacklistPurged: f.NewCounter(prometheus.CounterOpts{
			Name: "salesgate_blacklist_purged_total",
			Help: "Expired blacklist entries removed by the cleanup worker",
		}),
		LoginDurationMs: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "salesgate_login_duration_ms",
			Help:    "Duration of login requests in milliseconds",
			Buckets: []float64{5, 10, 25, 50, 100, 250, 500, 1000},
		}),
		LogoutDurationMs: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "salesgate_logout_duration_ms",
			Help:    "Duration of logout requests in milliseconds",
			Buckets: []float64{5, 10, 25, 50, 100, 250, 500, 1000},
		}),
	}
}

func (m *Metrics) IncrementLogin(result string) {
	if m == nil {
		return
	}
	m.Logins.WithLabelValues(result).Inc()
}

func (m *Metrics) IncrementLogout(result string) {
	if m == nil {
		return
	}
	m.Logouts.WithLabelValues(result).Inc()
}

func (m *Metrics) IncrementSessionsRevoked(reason string, count int) {
	if m == nil || count <= 0 {
		return
	}
	m.SessionsRevoked.WithLabelValues(reason).Add(float64(count))
}

func (m *Metrics) IncrementAuthFailures(reason string) {
	if m == nil {
		return
	}
	m.AuthFailures.WithLabelValues(reason).Inc()
}

func (m *Metrics) IncrementDenials(reason string) {
	if m == nil {
		return
	}
	m.Denials.WithLabelValues(reason).Inc()
}

func (m *Metrics) IncrementTouchFailures() {
	if m == nil {
		return
	}
	m.TouchFailures.Inc()
}

func (m *Metrics) AddBlacklistPurged(count int) {
	if m == nil || count <= 0 {
		return
	}
	m.BlacklistPurged.Add(float64(count))
}

func (m *Metrics) ObserveLoginDuration(durationMs float64) {
	if m == nil {
		return
	}
	m.LoginDurationMs.Observe(durationMs)
}

func (m *Metrics) ObserveLogoutDuration(durationMs float64) {
	if m == nil {
		return
	}
	m.LogoutDurationMs.Observe(durationMs)
}
