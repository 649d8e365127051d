package oauth

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type oauthMetrics struct {
	refreshTotal    *prometheus.CounterVec
	refreshDuration *prometheus.HistogramVec
	cacheHits       prometheus.Counter
}

var (
	oauthMetricsInstance *oauthMetrics
	oauthMetricsOnce     sync.Once
)

// InitMetrics registers the credential manager metrics with the given
// registry, or the default registerer when registry is nil. Subsequent
// calls are no-ops.
func InitMetrics(registry *prometheus.Registry) {
	oauthMetricsOnce.Do(func() {
		var registerer prometheus.Registerer = prometheus.DefaultRegisterer
		if registry != nil {
			registerer = registry
		}
		factory := promauto.With(registerer)
		oauthMetricsInstance = &oauthMetrics{
			refreshTotal: factory.NewCounterVec(
				prometheus.CounterOpts{
					Namespace: "frontgw",
					Subsystem: "oauth",
					Name:      "refresh_total",
					Help:      "Total number of token refresh rounds",
				},
				[]string{"result"},
			),
			refreshDuration: factory.NewHistogramVec(
				prometheus.HistogramOpts{
					Namespace: "frontgw",
					Subsystem: "oauth",
					Name:      "refresh_duration_seconds",
					Help:      "Duration of token refresh rounds in seconds",
					Buckets:   prometheus.DefBuckets,
				},
				[]string{"result"},
			),
			cacheHits: factory.NewCounter(
				prometheus.CounterOpts{
					Namespace: "frontgw",
					Subsystem: "oauth",
					Name:      "token_cache_hits_total",
					Help:      "Total number of token requests served from memory",
				},
			),
		}
	})
}

func getOAuthMetrics() *oauthMetrics {
	InitMetrics(nil)
	return oauthMetricsInstance
}
