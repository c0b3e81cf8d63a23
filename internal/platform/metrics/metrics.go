// Package metrics holds the demo backend's Prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the server-side Prometheus metrics.
type Metrics struct {
	LoginAttempts   prometheus.Counter
	LoginFailures   prometheus.Counter
	TokensIssued    prometheus.Counter
	TokensRefreshed prometheus.Counter
	EndpointLatency *prometheus.HistogramVec
}

// New creates the collectors on the given registerer. Passing a private
// registry keeps tests independent.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		LoginAttempts: factory.NewCounter(prometheus.CounterOpts{
			Name: "patas_server_login_attempts_total",
			Help: "Total number of login attempts",
		}),
		LoginFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "patas_server_login_failures_total",
			Help: "Total number of rejected login attempts",
		}),
		TokensIssued: factory.NewCounter(prometheus.CounterOpts{
			Name: "patas_server_tokens_issued_total",
			Help: "Total number of token pairs issued",
		}),
		TokensRefreshed: factory.NewCounter(prometheus.CounterOpts{
			Name: "patas_server_tokens_refreshed_total",
			Help: "Total number of token pairs issued via refresh",
		}),
		EndpointLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "patas_server_endpoint_latency_seconds",
			Help:    "Latency of endpoints in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"endpoint"}),
	}
}
