// Package proxy forwards media requests to fixed upstream hosts.
//
// Routes are bound to URL templates whose placeholders are filled from the
// captured path parameters. The scheme and host of a template never come
// from the client; a host placeholder is only accepted when it is bound to
// a finite list of values:
//
//	fwd := proxy.NewForwarder(
//	    proxy.WithLogger(logger),
//	    proxy.WithUserAgent("frontgw/1.0"),
//	    proxy.WithBreaker(proxy.BreakerSettings{Timeout: 30 * time.Second}),
//	)
//	err := fwd.Mount(r, "/thumb/:point/:id", "https://{point}.thumbs.redditmedia.com/{id}",
//	    proxy.WithTemplateOptions(proxy.WithHostChoices("point", "a", "b", "c")),
//	)
//
// # Features
//
//   - Templates checked against the route pattern at registration
//   - Request and response header allow-lists
//   - Streaming responses with immediate flush
//   - Same-host redirect following
//   - Per-host circuit breakers (sony/gobreaker)
//   - Structured errors mapped by the dispatcher to error pages
package proxy
