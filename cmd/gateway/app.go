package main

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/vyrodovalexey/frontgw/internal/assets"
	"github.com/vyrodovalexey/frontgw/internal/auth/oauth"
	"github.com/vyrodovalexey/frontgw/internal/cache"
	"github.com/vyrodovalexey/frontgw/internal/config"
	"github.com/vyrodovalexey/frontgw/internal/gateway"
	"github.com/vyrodovalexey/frontgw/internal/health"
	"github.com/vyrodovalexey/frontgw/internal/info"
	"github.com/vyrodovalexey/frontgw/internal/middleware"
	"github.com/vyrodovalexey/frontgw/internal/observability"
	"github.com/vyrodovalexey/frontgw/internal/proxy"
	"github.com/vyrodovalexey/frontgw/internal/router"
	"github.com/vyrodovalexey/frontgw/internal/upstream"
)

// application holds all application components.
type application struct {
	config        *config.Config
	logger        observability.Logger
	metrics       *observability.Metrics
	tracer        *observability.Tracer
	healthChecker *health.Checker
	tokens        *oauth.Manager
	feedCache     *cache.Memoizer[[]byte]
	rateLimiter   *middleware.RateLimiter
	handler       http.Handler
	listener      *gateway.Listener
	opsServer     *http.Server
	startedAt     time.Time
}

// newApplication wires every component from cfg. Nothing is started.
func newApplication(cfg *config.Config, logger observability.Logger) (*application, error) {
	app := &application{
		config:    cfg,
		logger:    logger,
		startedAt: time.Now(),
	}

	app.metrics = observability.NewMetrics(observability.DefaultNamespace)
	app.metrics.SetBuildInfo(version, gitCommit, buildTime)
	registerSubsystemMetrics(app.metrics.Registry())

	tracer, err := initTracer(cfg, logger)
	if err != nil {
		return nil, err
	}
	app.tracer = tracer

	bundle, err := assets.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load assets: %w", err)
	}
	logger.Info("assets loaded", observability.Int("count", len(bundle.Assets())))

	if cfg.OAuth.Enabled {
		app.tokens, err = newTokenManager(cfg, logger)
		if err != nil {
			return nil, err
		}
	}

	app.healthChecker = health.NewChecker(version, logger)
	if app.tokens != nil {
		app.healthChecker.RegisterCheck("oauth", health.ReadyFunc(app.tokens.Ready, "no access token"))
	}

	app.feedCache = cache.NewMemoizer[[]byte](cache.WithName("feeds"), cache.WithLogger(logger))

	r := router.New()
	err = registerRoutes(r, routeDeps{
		bundle:    bundle,
		forwarder: newForwarder(cfg, app.tokens, logger),
		feeds:     newFeeds(cfg, app.feedCache, logger),
		info:      info.New(info.BuildInfo{Version: version, Commit: gitCommit, BuildTime: buildTime}, cfg, app.startedAt),
		robotsOff: cfg.Server.RobotsDisableIndexing,
		commits:   cfg.Feeds.CommitsURL,
		instances: cfg.Feeds.InstancesURL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to register routes: %w", err)
	}
	logger.Info("routes registered", observability.Int("routes", len(r.Routes())))

	app.handler, app.rateLimiter = buildHandler(r, cfg, logger, app.metrics, app.tracer)

	app.listener, err = gateway.NewListener(gateway.ListenerConfig{
		Address:           cfg.Server.Address,
		Port:              cfg.Server.Port,
		IPv4Only:          cfg.Server.IPv4Only,
		IPv6Only:          cfg.Server.IPv6Only,
		ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout.Duration(),
		IdleTimeout:       cfg.Server.IdleTimeout.Duration(),
	}, app.handler, gateway.WithListenerLogger(logger))
	if err != nil {
		return nil, err
	}

	if cfg.Metrics.Enabled {
		app.opsServer = createOpsServer(cfg.Metrics, app.metrics, app.healthChecker)
	}

	return app, nil
}

// registerSubsystemMetrics registers every package collector into the
// registry served on the ops listener.
func registerSubsystemMetrics(registry *prometheus.Registry) {
	router.InitMetrics(registry)
	proxy.InitMetrics(registry)
	cache.InitMetrics(registry)
	oauth.InitMetrics(registry)
	middleware.InitMetrics(registry)
	health.InitMetrics(registry)
}

// initTracer initializes the tracer.
func initTracer(cfg *config.Config, logger observability.Logger) (*observability.Tracer, error) {
	tracerCfg := observability.TracerConfig{
		ServiceName:    cfg.Tracing.ServiceName,
		ServiceVersion: version,
		OTLPEndpoint:   cfg.Tracing.OTLPEndpoint,
		SamplingRate:   cfg.Tracing.SamplingRate,
		Enabled:        cfg.Tracing.Enabled,
	}
	if tracerCfg.ServiceName == "" {
		tracerCfg.ServiceName = "frontgw"
	}

	tracer, err := observability.NewTracer(tracerCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize tracer: %w", err)
	}
	if tracerCfg.Enabled {
		logger.Info("tracing enabled",
			observability.String("endpoint", tracerCfg.OTLPEndpoint),
			observability.Float64("sampling_rate", tracerCfg.SamplingRate),
		)
	}
	return tracer, nil
}

// upstreamTransport is the base transport for every outbound call.
func upstreamTransport(cfg *config.Config) *http.Transport {
	return proxy.NewTransport(cfg.Upstream.Timeout.Duration())
}

func newTokenManager(cfg *config.Config, logger observability.Logger) (*oauth.Manager, error) {
	o := cfg.OAuth
	manager, err := oauth.NewManager(oauth.Config{
		TokenEndpoint:  o.TokenEndpoint,
		ClientID:       o.ClientID,
		ClientSecret:   o.ClientSecret,
		Scopes:         o.Scopes,
		Headers:        o.Headers,
		UserAgent:      cfg.Upstream.UserAgent,
		RefreshMargin:  o.RefreshMargin.Duration(),
		RequestTimeout: o.RequestTimeout.Duration(),
		RetryDelay:     o.RetryDelay.Duration(),
	},
		oauth.WithHTTPClient(&http.Client{Transport: upstreamTransport(cfg)}),
		oauth.WithLogger(observability.ZapLogger(logger).Named("oauth")),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create token manager: %w", err)
	}
	return manager, nil
}

func newForwarder(cfg *config.Config, tokens *oauth.Manager, logger observability.Logger) *proxy.Forwarder {
	opts := []proxy.Option{
		proxy.WithLogger(logger),
		proxy.WithTransport(upstreamTransport(cfg)),
		proxy.WithUserAgent(cfg.Upstream.UserAgent),
		proxy.WithMaxRedirects(cfg.Upstream.MaxRedirects),
	}
	if tokens != nil {
		opts = append(opts, proxy.WithTokenSource(tokens))
	}
	if b := cfg.Upstream.Breaker; b.Enabled {
		opts = append(opts, proxy.WithBreaker(proxy.BreakerSettings{
			MaxRequests:  b.MaxRequests,
			Interval:     b.Interval.Duration(),
			Timeout:      b.Timeout.Duration(),
			FailureRatio: b.FailureRatio,
			MinRequests:  b.MinRequests,
		}))
	}
	return proxy.NewForwarder(opts...)
}

func newFeeds(cfg *config.Config, memo *cache.Memoizer[[]byte], logger observability.Logger) *upstream.Feeds {
	return upstream.NewFeeds(
		upstream.WithHTTPClient(&http.Client{
			Transport: upstreamTransport(cfg),
			Timeout:   cfg.Upstream.Timeout.Duration(),
		}),
		upstream.WithMemoizer(memo),
		upstream.WithTTL(cfg.Feeds.TTL.Duration()),
		upstream.WithMaxBodyBytes(cfg.Feeds.MaxBodyBytes),
		upstream.WithUserAgent(cfg.Upstream.UserAgent),
		upstream.WithLogger(logger),
	)
}
