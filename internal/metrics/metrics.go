// Package metrics exposes Prometheus counters and histograms for cache
// hit/miss rates, tile render latency and bytes served, registered on a
// dedicated registry so /metrics can be served independently of the
// default global one. CacheHits, CacheMisses and CacheEvicts are
// registered, but nothing in this repository increments them, so they
// stay at zero.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics bundles the collectors this service reports.
type Metrics struct {
	Registry *prometheus.Registry

	CacheHits   prometheus.Counter
	CacheMisses prometheus.Counter
	CacheEvicts prometheus.Counter

	RenderDuration *prometheus.HistogramVec
	BytesServed    prometheus.Counter

	RequestsTotal *prometheus.CounterVec
}

// New constructs and registers all collectors on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		Registry: reg,
		CacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "giipview", Subsystem: "tilecache", Name: "hits_total",
			Help: "Total tile cache hits.",
		}),
		CacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "giipview", Subsystem: "tilecache", Name: "misses_total",
			Help: "Total tile cache misses.",
		}),
		CacheEvicts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "giipview", Subsystem: "tilecache", Name: "evictions_total",
			Help: "Total tile cache evictions.",
		}),
		RenderDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "giipview", Subsystem: "render", Name: "duration_seconds",
			Help:    "Tile/region render latency by kind.",
			Buckets: prometheus.DefBuckets,
		}, []string{"kind"}),
		BytesServed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "giipview", Name: "bytes_served_total",
			Help: "Total response bytes served.",
		}),
		RequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "giipview", Name: "requests_total",
			Help: "Total HTTP requests by status class.",
		}, []string{"status"}),
	}

	reg.MustRegister(m.CacheHits, m.CacheMisses, m.CacheEvicts, m.RenderDuration, m.BytesServed, m.RequestsTotal)
	return m
}
