package main

import (
	"errors"
	"net/http"
	"time"

	"github.com/vyrodovalexey/frontgw/internal/config"
	"github.com/vyrodovalexey/frontgw/internal/health"
	"github.com/vyrodovalexey/frontgw/internal/observability"
)

// createOpsServer creates the server for metrics and health probes.
func createOpsServer(
	cfg config.MetricsConfig,
	metrics *observability.Metrics,
	healthChecker *health.Checker,
) *http.Server {
	path := cfg.Path
	if path == "" {
		path = config.DefaultMetricsPath
	}
	addr := cfg.Address
	if addr == "" {
		addr = config.DefaultMetricsAddress
	}

	mux := http.NewServeMux()
	mux.Handle("GET "+path, metrics.Handler())
	healthChecker.RegisterRoutes(mux)

	return &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadTimeout:       10 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      10 * time.Second,
	}
}

// runOpsServer runs the ops server until it is shut down.
func runOpsServer(server *http.Server, logger observability.Logger) {
	logger.Info("starting ops server", observability.String("address", server.Addr))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("ops server error", observability.Error(err))
	}
}
