package cache

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// cacheMetrics holds Prometheus metrics for memoizer operations.
type cacheMetrics struct {
	hitsTotal           *prometheus.CounterVec
	missesTotal         *prometheus.CounterVec
	producerErrorsTotal *prometheus.CounterVec
	producerDuration    *prometheus.HistogramVec
	entries             *prometheus.GaugeVec
}

var (
	cacheMetricsInstance *cacheMetrics
	cacheMetricsOnce     sync.Once
)

// InitMetrics registers the cache metrics with the given registry. If
// registry is nil the default registerer is used. Subsequent calls are
// no-ops.
func InitMetrics(registry *prometheus.Registry) {
	cacheMetricsOnce.Do(func() {
		var registerer prometheus.Registerer = prometheus.DefaultRegisterer
		if registry != nil {
			registerer = registry
		}
		factory := promauto.With(registerer)
		cacheMetricsInstance = &cacheMetrics{
			hitsTotal: factory.NewCounterVec(
				prometheus.CounterOpts{
					Namespace: "frontgw",
					Subsystem: "cache",
					Name:      "hits_total",
					Help:      "Total number of memoizer hits",
				},
				[]string{"cache"},
			),
			missesTotal: factory.NewCounterVec(
				prometheus.CounterOpts{
					Namespace: "frontgw",
					Subsystem: "cache",
					Name:      "misses_total",
					Help:      "Total number of memoizer misses",
				},
				[]string{"cache"},
			),
			producerErrorsTotal: factory.NewCounterVec(
				prometheus.CounterOpts{
					Namespace: "frontgw",
					Subsystem: "cache",
					Name:      "producer_errors_total",
					Help:      "Total number of failed producer calls",
				},
				[]string{"cache"},
			),
			producerDuration: factory.NewHistogramVec(
				prometheus.HistogramOpts{
					Namespace: "frontgw",
					Subsystem: "cache",
					Name:      "producer_duration_seconds",
					Help:      "Duration of producer calls on cache misses",
					Buckets:   []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
				},
				[]string{"cache"},
			),
			entries: factory.NewGaugeVec(
				prometheus.GaugeOpts{
					Namespace: "frontgw",
					Subsystem: "cache",
					Name:      "entries",
					Help:      "Current number of stored entries",
				},
				[]string{"cache"},
			),
		}
	})
}

// getCacheMetrics returns the singleton, initialising it lazily.
func getCacheMetrics() *cacheMetrics {
	InitMetrics(nil)
	return cacheMetricsInstance
}
