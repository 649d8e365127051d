package router

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Resolution result label values.
const (
	resultMatched  = "matched"
	resultFallback = "fallback"
	resultNotFound = "not_found"
)

// routerMetrics contains Prometheus metrics for route resolution.
type routerMetrics struct {
	resolutions *prometheus.CounterVec
}

var (
	routerMetricsInstance *routerMetrics
	routerMetricsOnce     sync.Once
)

// InitMetrics registers the router metrics with the given registry. If
// registry is nil the default registerer is used. Subsequent calls are
// no-ops.
func InitMetrics(registry *prometheus.Registry) {
	routerMetricsOnce.Do(func() {
		var registerer prometheus.Registerer = prometheus.DefaultRegisterer
		if registry != nil {
			registerer = registry
		}
		factory := promauto.With(registerer)
		routerMetricsInstance = &routerMetrics{
			resolutions: factory.NewCounterVec(
				prometheus.CounterOpts{
					Namespace: "frontgw",
					Subsystem: "router",
					Name:      "resolutions_total",
					Help:      "Total number of route resolutions by result",
				},
				[]string{"result"},
			),
		}
		for _, result := range []string{resultMatched, resultFallback, resultNotFound} {
			routerMetricsInstance.resolutions.WithLabelValues(result)
		}
	})
}

// getRouterMetrics returns the singleton, initialising it lazily.
func getRouterMetrics() *routerMetrics {
	InitMetrics(nil)
	return routerMetricsInstance
}

func recordResolution(result string) {
	getRouterMetrics().resolutions.WithLabelValues(result).Inc()
}
