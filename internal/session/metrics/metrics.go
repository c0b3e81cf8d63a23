package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus collectors for session lifecycle operations.
type Metrics struct {
	Logins             prometheus.Counter
	LoginFailures      prometheus.Counter
	TokenRefreshes     prometheus.Counter
	RefreshFailures    prometheus.Counter
	ForcedExpirations  prometheus.Counter
	RefreshDurationMs  prometheus.Histogram
	CoalescedRefreshes prometheus.Counter
}

// New registers and returns session metrics collectors on the given
// registerer. Pass prometheus.DefaultRegisterer in production wiring; tests
// should pass a private registry to avoid duplicate registration.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Logins: factory.NewCounter(prometheus.CounterOpts{
			Name: "patas_logins_total",
			Help: "Total number of successful logins",
		}),
		LoginFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "patas_login_failures_total",
			Help: "Total number of rejected or failed login attempts",
		}),
		TokenRefreshes: factory.NewCounter(prometheus.CounterOpts{
			Name: "patas_token_refreshes_total",
			Help: "Total number of successful token refresh calls",
		}),
		RefreshFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "patas_refresh_failures_total",
			Help: "Total number of failed token refresh calls",
		}),
		ForcedExpirations: factory.NewCounter(prometheus.CounterOpts{
			Name: "patas_forced_expirations_total",
			Help: "Total number of sessions forcibly expired (refresh token past expiry)",
		}),
		RefreshDurationMs: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "patas_token_refresh_duration_ms",
			Help:    "Duration of token refresh operations in milliseconds",
			Buckets: []float64{5, 10, 25, 50, 100, 250, 500, 1000},
		}),
		CoalescedRefreshes: factory.NewCounter(prometheus.CounterOpts{
			Name: "patas_coalesced_refreshes_total",
			Help: "Total number of refresh callers that joined an in-flight refresh",
		}),
	}
}

func (m *Metrics) IncrementLogins() {
	if m == nil {
		return
	}
	m.Logins.Inc()
}

func (m *Metrics) IncrementLoginFailures() {
	if m == nil {
		return
	}
	m.LoginFailures.Inc()
}

func (m *Metrics) IncrementTokenRefreshes() {
	if m == nil {
		return
	}
	m.TokenRefreshes.Inc()
}

func (m *Metrics) IncrementRefreshFailures() {
	if m == nil {
		return
	}
	m.RefreshFailures.Inc()
}

func (m *Metrics) IncrementForcedExpirations() {
	if m == nil {
		return
	}
	m.ForcedExpirations.Inc()
}

func (m *Metrics) ObserveRefreshDuration(durationMs float64) {
	if m == nil {
		return
	}
	m.RefreshDurationMs.Observe(durationMs)
}

func (m *Metrics) IncrementCoalescedRefreshes() {
	if m == nil {
		return
	}
	m.CoalescedRefreshes.Inc()
}
