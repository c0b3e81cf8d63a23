package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus collectors for list facades. One instance is
// shared by every facade; the collection label tells them apart.
type Metrics struct {
	Loads        *prometheus.CounterVec
	LoadFailures *prometheus.CounterVec
	StaleDrops   *prometheus.CounterVec
	CacheBuilds  *prometheus.CounterVec
	CacheServes  *prometheus.CounterVec
}

// New registers and returns list facade metrics collectors on the given
// registerer. Tests should pass a private registry.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	labels := []string{"collection"}
	return &Metrics{
		Loads: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "patas_list_loads_total",
			Help: "Total number of server-paginated list loads",
		}, labels),
		LoadFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "patas_list_load_failures_total",
			Help: "Total number of list loads that surfaced an error to the view state",
		}, labels),
		StaleDrops: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "patas_list_stale_drops_total",
			Help: "Total number of responses discarded for belonging to a superseded request generation",
		}, labels),
		CacheBuilds: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "patas_list_search_cache_builds_total",
			Help: "Total number of full-scan search cache builds",
		}, labels),
		CacheServes: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "patas_list_search_cache_serves_total",
			Help: "Total number of pages served from the search cache without a network call",
		}, labels),
	}
}

func (m *Metrics) IncrementLoads(collection string) {
	if m == nil {
		return
	}
	m.Loads.WithLabelValues(collection).Inc()
}

func (m *Metrics) IncrementLoadFailures(collection string) {
	if m == nil {
		return
	}
	m.LoadFailures.WithLabelValues(collection).Inc()
}

func (m *Metrics) IncrementStaleDrops(collection string) {
	if m == nil {
		return
	}
	m.StaleDrops.WithLabelValues(collection).Inc()
}

func (m *Metrics) IncrementCacheBuilds(collection string) {
	if m == nil {
		return
	}
	m.CacheBuilds.WithLabelValues(collection).Inc()
}

func (m *Metrics) IncrementCacheServes(collection string) {
	if m == nil {
		return
	}
	m.CacheServes.WithLabelValues(collection).Inc()
}
