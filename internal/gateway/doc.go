// Package gateway provides the HTTP front of the gateway.
//
// The Dispatcher resolves each request against a sealed router, runs the
// middleware chain and the route handler, and turns returned errors into
// HTML error pages. A fixed set of default headers is merged into every
// response exactly once, including error pages, recovered panics and
// rate-limit rejections.
//
// # Usage
//
//	r := router.New()
//	r.Handle(http.MethodGet, "/*", gateway.NotFound())
//
//	d := gateway.NewDispatcher(r, gateway.DefaultHeaders(604800),
//	    gateway.WithLogger(logger),
//	    gateway.WithMiddleware(middleware.Recovery(logger, nil)),
//	)
//
//	l, err := gateway.NewListener(gateway.ListenerConfig{Address: "[::]", Port: 8080}, d)
//	if err != nil {
//	    return err
//	}
//	if err := l.Start(ctx); err != nil {
//	    return err
//	}
//	defer l.Stop(ctx)
package gateway
