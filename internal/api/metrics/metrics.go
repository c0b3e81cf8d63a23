package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus collectors for the authenticated request pipeline.
type Metrics struct {
	Requests          *prometheus.CounterVec
	AuthRetries       prometheus.Counter
	AbortedRequests   prometheus.Counter
	RequestDurationMs prometheus.Histogram
}

// New registers and returns pipeline metrics collectors on the given
// registerer. Tests should pass a private registry.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Requests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "patas_api_requests_total",
			Help: "Total number of backend API requests, by method and status",
		}, []string{"method", "status"}),
		AuthRetries: factory.NewCounter(prometheus.CounterOpts{
			Name: "patas_api_auth_retries_total",
			Help: "Total number of requests re-issued once after a 401",
		}),
		AbortedRequests: factory.NewCounter(prometheus.CounterOpts{
			Name: "patas_api_aborted_requests_total",
			Help: "Total number of requests aborted before dispatch for lack of a usable credential",
		}),
		RequestDurationMs: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "patas_api_request_duration_ms",
			Help:    "Duration of backend API requests in milliseconds",
			Buckets: []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
		}),
	}
}

func (m *Metrics) IncrementRequests(method string, status int) {
	if m == nil {
		return
	}
	m.Requests.WithLabelValues(method, strconv.Itoa(status)).Inc()
}

func (m *Metrics) IncrementAuthRetries() {
	if m == nil {
		return
	}
	m.AuthRetries.Inc()
}

func (m *Metrics) IncrementAbortedRequests() {
	if m == nil {
		return
	}
	m.AbortedRequests.Inc()
}

func (m *Metrics) ObserveRequestDuration(durationMs float64) {
	if m == nil {
		return
	}
	m.RequestDurationMs.Observe(durationMs)
}
