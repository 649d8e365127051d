package health

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// healthMetrics holds Prometheus metrics for health checks.
type healthMetrics struct {
	checksTotal *prometheus.CounterVec
	checkStatus *prometheus.GaugeVec
}

var (
	healthMetricsInstance *healthMetrics
	healthMetricsOnce     sync.Once
)

// InitMetrics registers the health metrics with the given registry. If
// registry is nil the default registerer is used.
func InitMetrics(registry *prometheus.Registry) {
	healthMetricsOnce.Do(func() {
		var registerer prometheus.Registerer = prometheus.DefaultRegisterer
		if registry != nil {
			registerer = registry
		}
		factory := promauto.With(registerer)
		healthMetricsInstance = &healthMetrics{
			checksTotal: factory.NewCounterVec(
				prometheus.CounterOpts{
					Namespace: "frontgw",
					Subsystem: "health",
					Name:      "checks_total",
					Help:      "Total number of health probes served",
				},
				[]string{"type"},
			),
			checkStatus: factory.NewGaugeVec(
				prometheus.GaugeOpts{
					Namespace: "frontgw",
					Subsystem: "health",
					Name:      "check_status",
					Help:      "Current readiness check status (1=healthy, 0=unhealthy)",
				},
				[]string{"check"},
			),
		}
	})
}

func getHealthMetrics() *healthMetrics {
	InitMetrics(nil)
	return healthMetricsInstance
}
