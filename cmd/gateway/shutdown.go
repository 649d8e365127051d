package main

import (
	"context"
	"fmt"
	"net/http"

	"github.com/vyrodovalexey/frontgw/internal/observability"
	"github.com/vyrodovalexey/frontgw/internal/upstream"
)

// run starts the background work and the listeners, then blocks until ctx
// is cancelled or the main listener stops, and shuts everything down.
func (a *application) run(ctx context.Context) error {
	bgCtx, cancelBackground := context.WithCancel(ctx)
	defer cancelBackground()

	if a.tokens != nil && a.config.OAuth.AutoRefresh {
		a.tokens.StartAutoRefresh(bgCtx)
	}
	a.feedCache.StartSweeper(bgCtx, a.config.Feeds.TTL.Duration())

	a.probeUpstream(ctx)

	if err := a.listener.Start(ctx); err != nil {
		return fmt.Errorf("failed to start gateway: %w", err)
	}
	if a.opsServer != nil {
		go runOpsServer(a.opsServer, a.logger)
	}

	select {
	case <-ctx.Done():
		a.logger.Info("received shutdown signal")
	case <-a.listener.Done():
		a.logger.Warn("listener stopped unexpectedly")
	}

	cancelBackground()
	return a.shutdown()
}

// probeUpstream checks the upstream rate-limit headers once. Failures are
// logged and startup continues.
func (a *application) probeUpstream(ctx context.Context) {
	if !a.config.Probe.Enabled || a.tokens == nil {
		return
	}

	client := &http.Client{
		Transport: a.tokens.RoundTripper(upstreamTransport(a.config)),
		Timeout:   a.config.Upstream.Timeout.Duration(),
	}
	prober := upstream.NewProber(client, a.config.Probe.URL,
		upstream.WithProbeUserAgent(a.config.Upstream.UserAgent),
		upstream.WithProbeLogger(a.logger),
	)

	rl, err := prober.Check(ctx)
	if err != nil {
		a.logger.Warn("startup probe failed", observability.Error(err))
		return
	}
	a.logger.Info("startup probe passed",
		observability.Float64("remaining", rl.Remaining),
		observability.Duration("reset", rl.Reset),
	)
}

// shutdown drains and stops every component within the shutdown timeout.
func (a *application) shutdown() error {
	a.healthChecker.SetDraining(true)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.config.Server.ShutdownTimeout.Duration())
	defer cancel()

	var firstErr error
	if err := a.listener.Stop(shutdownCtx); err != nil {
		a.logger.Error("failed to stop gateway gracefully", observability.Error(err))
		firstErr = err
	}

	if a.opsServer != nil {
		a.logger.Info("stopping ops server")
		if err := a.opsServer.Shutdown(shutdownCtx); err != nil {
			a.logger.Error("failed to stop ops server gracefully", observability.Error(err))
		}
	}

	if a.rateLimiter != nil {
		a.rateLimiter.Stop()
	}

	if err := a.tracer.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("failed to shutdown tracer", observability.Error(err))
	}

	a.logger.Info("gateway stopped")
	return firstErr
}
