package main

import (
	"net/http"

	"github.com/vyrodovalexey/frontgw/internal/config"
	"github.com/vyrodovalexey/frontgw/internal/gateway"
	"github.com/vyrodovalexey/frontgw/internal/middleware"
	"github.com/vyrodovalexey/frontgw/internal/observability"
	"github.com/vyrodovalexey/frontgw/internal/router"
)

// buildHandler wraps the router in the dispatcher and its middleware.
// The execution order (outermost executes first):
// RequestID -> Logging -> Tracing -> Metrics -> Recovery -> RateLimit -> [route]
//
// Default headers are merged by the dispatcher outside the whole chain, so
// rate-limited and recovered responses carry them too. The returned limiter
// is nil when rate limiting is disabled.
func buildHandler(
	r *router.Router,
	cfg *config.Config,
	logger observability.Logger,
	metrics *observability.Metrics,
	tracer *observability.Tracer,
) (http.Handler, *middleware.RateLimiter) {
	hstsMaxAge, ok := cfg.Server.HSTS()
	if !ok {
		hstsMaxAge = -1
	}

	page := gateway.NewErrorPage(cfg.Server.NotFoundMessage)
	render := func(w http.ResponseWriter, r *http.Request, err error) {
		page.Render(w, r, err)
	}

	rateLimit, limiter := middleware.RateLimitFromConfig(&cfg.RateLimit, logger,
		middleware.WithRejectionRecorder(metrics),
	)

	d := gateway.NewDispatcher(r, gateway.DefaultHeaders(hstsMaxAge),
		gateway.WithLogger(logger),
		gateway.WithErrorPage(page),
		gateway.WithMiddleware(
			middleware.RequestID(),
			middleware.Logging(logger),
			observability.TracingMiddleware(tracer),
			observability.MetricsMiddleware(metrics),
			middleware.Recovery(logger, render),
			rateLimit,
		),
	)

	return d, limiter
}
