// Package health provides the liveness, readiness and health endpoints
// served on the ops listener.
//
// Readiness aggregates registered checks, for example whether the
// upstream credential manager holds a token, and fails while the
// gateway drains during shutdown.
package health
