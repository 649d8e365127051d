package middleware

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// middlewareMetrics holds Prometheus metrics for middleware operations.
type middlewareMetrics struct {
	rateLimitAllowed  prometheus.Counter
	rateLimitRejected prometheus.Counter
	rateLimitClients  prometheus.Gauge
	panicsRecovered   prometheus.Counter
}

var (
	middlewareMetricsInstance *middlewareMetrics
	middlewareMetricsOnce     sync.Once
)

// InitMetrics registers the middleware metrics with the given registry.
// If registry is nil the default registerer is used.
func InitMetrics(registry *prometheus.Registry) {
	middlewareMetricsOnce.Do(func() {
		var registerer prometheus.Registerer = prometheus.DefaultRegisterer
		if registry != nil {
			registerer = registry
		}
		factory := promauto.With(registerer)
		middlewareMetricsInstance = &middlewareMetrics{
			rateLimitAllowed: factory.NewCounter(
				prometheus.CounterOpts{
					Namespace: "frontgw",
					Subsystem: "middleware",
					Name:      "rate_limit_allowed_total",
					Help:      "Total number of requests allowed by the rate limiter",
				},
			),
			rateLimitRejected: factory.NewCounter(
				prometheus.CounterOpts{
					Namespace: "frontgw",
					Subsystem: "middleware",
					Name:      "rate_limit_rejected_total",
					Help:      "Total number of requests rejected by the rate limiter",
				},
			),
			rateLimitClients: factory.NewGauge(
				prometheus.GaugeOpts{
					Namespace: "frontgw",
					Subsystem: "middleware",
					Name:      "rate_limit_clients",
					Help:      "Current number of tracked per-client limiters",
				},
			),
			panicsRecovered: factory.NewCounter(
				prometheus.CounterOpts{
					Namespace: "frontgw",
					Subsystem: "middleware",
					Name:      "panics_recovered_total",
					Help:      "Total number of panics recovered",
				},
			),
		}
	})
}

func getMiddlewareMetrics() *middlewareMetrics {
	InitMetrics(nil)
	return middlewareMetricsInstance
}
