package proxy

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// proxyMetrics contains Prometheus metrics for upstream calls.
type proxyMetrics struct {
	requestsTotal    *prometheus.CounterVec
	upstreamDuration *prometheus.HistogramVec
	breakerState     *prometheus.GaugeVec
}

var (
	proxyMetricsInstance *proxyMetrics
	proxyMetricsOnce     sync.Once
)

// InitMetrics initializes the singleton proxy metrics instance with the
// given Prometheus registry. If registry is nil, metrics are registered
// with the default registerer. Subsequent calls are no-ops.
func InitMetrics(registry *prometheus.Registry) {
	proxyMetricsOnce.Do(func() {
		var registerer prometheus.Registerer
		if registry != nil {
			registerer = registry
		} else {
			registerer = prometheus.DefaultRegisterer
		}
		factory := promauto.With(registerer)
		proxyMetricsInstance = &proxyMetrics{
			requestsTotal: factory.NewCounterVec(
				prometheus.CounterOpts{
					Namespace: "frontgw",
					Subsystem: "proxy",
					Name:      "requests_total",
					Help:      "Total number of forwarded requests by upstream host and result",
				},
				[]string{"host", "result"},
			),
			upstreamDuration: factory.NewHistogramVec(
				prometheus.HistogramOpts{
					Namespace: "frontgw",
					Subsystem: "proxy",
					Name:      "upstream_duration_seconds",
					Help:      "Time until the upstream response headers arrived",
					Buckets: []float64{
						.005, .01, .025, .05, .1, .25,
						.5, 1, 2.5, 5, 10, 30,
					},
				},
				[]string{"host"},
			),
			breakerState: factory.NewGaugeVec(
				prometheus.GaugeOpts{
					Namespace: "frontgw",
					Subsystem: "proxy",
					Name:      "breaker_state",
					Help:      "Circuit breaker state per upstream host (0=closed, 1=half-open, 2=open)",
				},
				[]string{"host"},
			),
		}
	})
}

// getProxyMetrics returns the singleton proxy metrics instance.
func getProxyMetrics() *proxyMetrics {
	InitMetrics(nil)
	return proxyMetricsInstance
}
