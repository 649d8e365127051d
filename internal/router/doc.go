// Package router maps an inbound method and path to a handler with path
// parameter extraction.
//
// Patterns are '/'-separated segments:
//
//   - literal segments match exactly ("/robots.txt")
//   - ":name" captures one segment; a literal prefix is allowed
//     ("/info.:extension" captures "json" from "/info.json")
//   - "*name" captures every remaining segment joined with '/' and must
//     be last; the anonymous "*" matches without capturing
//
// Routes are tried in registration order and the first structural match
// wins. The route registered as "/*" is the catch-all: it receives every
// request that nothing else matched, including requests whose path matched
// a route registered for another method.
//
//	r := router.New()
//	r.Handle(http.MethodGet, "/vid/:id/:size", serveVideo)
//	r.Handle(router.MethodAny, "/*", notFound)
//	r.Seal()
//
//	m, err := r.Resolve(req.Method, req.URL.Path)
//
// Once sealed the table is immutable and Resolve takes no locks.
package router
