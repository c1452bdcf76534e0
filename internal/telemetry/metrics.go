// Package telemetry provides observability primitives for the localcache service.
package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds all Prometheus collectors for the service.
type Metrics struct {
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	ActiveRequests  prometheus.Gauge
	CacheHits       prometheus.Counter
	CacheMisses     prometheus.Counter
	CachePuts       prometheus.Counter
	OriginReads     prometheus.Counter
}

// NewMetrics creates and registers all metrics with the given registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		RequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "localcache",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests.",
		}, []string{"method", "path", "status"}),

		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:                       "localcache",
			Name:                            "request_duration_seconds",
			Help:                            "HTTP request duration in seconds.",
			NativeHistogramBucketFactor:     1.1,
			NativeHistogramMaxBucketNumber:  100,
			NativeHistogramMinResetDuration: 0,
		}, []string{"method", "path"}),

		ActiveRequests: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "localcache",
			Name:      "active_requests",
			Help:      "Number of currently active requests.",
		}),

		CacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "localcache",
			Name:      "cache_hits_total",
			Help:      "Total cache hits across all worker stores.",
		}),

		CacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "localcache",
			Name:      "cache_misses_total",
			Help:      "Total cache misses across all worker stores.",
		}),

		CachePuts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "localcache",
			Name:      "cache_puts_total",
			Help:      "Total cache writes across all worker stores.",
		}),

		OriginReads: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "localcache",
			Name:      "origin_reads_total",
			Help:      "Total reads served from the SQLite origin store.",
		}),
	}

	reg.MustRegister(
		m.RequestsTotal,
		m.RequestDuration,
		m.ActiveRequests,
		m.CacheHits,
		m.CacheMisses,
		m.CachePuts,
		m.OriginReads,
	)

	return m
}
