// Package util provides utility functions and types for the gateway.
//
// This package contains shared utilities used across the gateway
// including request-context helpers and structured error types.
//
// # Context Helpers
//
// Context utilities for request-scoped data:
//
//	ctx = util.ContextWithRequestID(ctx, "req-123")
//	requestID := util.RequestIDFromContext(ctx)
//
//	ctx = util.ContextWithRoute(ctx, "/vid/:id/:size")
//	route := util.RouteFromContext(ctx)
//
// # Error Types
//
// Structured error types for consistent error handling:
//
//   - ConfigError: a single invalid configuration field
//   - ValidationError: every problem found by one validation pass
//   - RouteNotFoundError: a request that matched no route
//   - Common sentinel errors: ErrNotFound, ErrTimeout, ErrConfigInvalid
package util
