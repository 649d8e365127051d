// Package observability provides logging, metrics, and tracing
// functionality for the gateway.
//
// # Logging
//
// The Logger interface provides structured logging backed by zap:
//
//	logger, err := observability.NewLogger(observability.LogConfig{Level: "info", Format: "json"})
//	if err != nil {
//	    return err
//	}
//	defer func() { _ = logger.Sync() }()
//
//	logger.WithContext(r.Context()).Info("request served",
//	    observability.String("method", "GET"),
//	    observability.Int("status", 200),
//	)
//
// # Metrics
//
// Prometheus metrics live in a private registry. Subsystems (proxy,
// cache, oauth) register their collectors into the same registry:
//
//	metrics := observability.NewMetrics(observability.DefaultNamespace)
//	proxy.InitMetrics(metrics.Registry())
//	mux.Handle("/metrics", metrics.Handler())
//
// # Tracing
//
// OpenTelemetry tracing with optional OTLP gRPC export:
//
//	tracer, err := observability.NewTracer(cfg)
//	if err != nil {
//	    return err
//	}
//	defer func() { _ = tracer.Shutdown(ctx) }()
package observability
