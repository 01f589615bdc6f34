// Package telemetry provides observability primitives for the Lavka backend.
package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds all Prometheus collectors for the service.
type Metrics struct {
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	ActiveRequests  prometheus.Gauge

	CacheHits   *prometheus.CounterVec
	CacheMisses *prometheus.CounterVec
	CacheErrors *prometheus.CounterVec

	InvalidationRuns     prometheus.Counter
	InvalidatedKeys      prometheus.Counter
	InvalidationFailures prometheus.Counter

	JanitorRemoved prometheus.Counter
}

// NewMetrics creates and registers all metrics with the given registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		RequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "lavka",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests.",
		}, []string{"method", "path", "status"}),

		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:                       "lavka",
			Name:                            "request_duration_seconds",
			Help:                            "HTTP request duration in seconds.",
			NativeHistogramBucketFactor:     1.1,
			NativeHistogramMaxBucketNumber:  100,
			NativeHistogramMinResetDuration: 0,
		}, []string{"method", "path"}),

		ActiveRequests: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "lavka",
			Name:      "active_requests",
			Help:      "Number of currently active requests.",
		}),

		CacheHits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "lavka",
			Name:      "cache_hits_total",
			Help:      "Total cache hits by key namespace.",
		}, []string{"namespace"}),

		CacheMisses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "lavka",
			Name:      "cache_misses_total",
			Help:      "Total cache misses by key namespace.",
		}, []string{"namespace"}),

		CacheErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "lavka",
			Name:      "cache_errors_total",
			Help:      "Total cache backend errors by operation, all degraded to miss/no-op.",
		}, []string{"op"}),

		InvalidationRuns: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "lavka",
			Name:      "invalidation_runs_total",
			Help:      "Total prefix invalidation runs.",
		}),

		InvalidatedKeys: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "lavka",
			Name:      "invalidated_keys_total",
			Help:      "Total keys deleted by invalidation runs.",
		}),

		InvalidationFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "lavka",
			Name:      "invalidation_failures_total",
			Help:      "Total failed deletes during invalidation runs; residual keys expire by TTL.",
		}),

		JanitorRemoved: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "lavka",
			Name:      "janitor_removed_total",
			Help:      "Total expired envelopes removed by the background janitor.",
		}),
	}

	reg.MustRegister(
		m.RequestsTotal,
		m.RequestDuration,
		m.ActiveRequests,
		m.CacheHits,
		m.CacheMisses,
		m.CacheErrors,
		m.InvalidationRuns,
		m.InvalidatedKeys,
		m.InvalidationFailures,
		m.JanitorRemoved,
	)

	return m
}
