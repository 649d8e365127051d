// Package middleware provides HTTP middleware for the gateway.
//
//   - Recovery: panic recovery with stack trace logging
//   - RequestID: request identifier injection
//   - Logging: structured access logging
//   - RateLimit: token bucket throttling, global or per client
//
// Middleware follows the standard func(http.Handler) http.Handler shape
// and is installed through the dispatcher so that rejections and
// recovered panics carry the default response headers.
package middleware
