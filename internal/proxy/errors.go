package proxy

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for proxy operations.
var (
	// ErrInvalidTemplate indicates that an upstream URL template is malformed.
	ErrInvalidTemplate = errors.New("invalid upstream template")

	// ErrUnboundPlaceholder indicates that a template placeholder has no
	// matching route parameter.
	ErrUnboundPlaceholder = errors.New("unbound template placeholder")

	// ErrHostNotAllowed indicates that a host placeholder value is outside
	// its allow-list.
	ErrHostNotAllowed = errors.New("upstream host not allowed")

	// ErrUpstreamNotFound indicates that the upstream answered 404 or 410.
	ErrUpstreamNotFound = errors.New("upstream resource not found")

	// ErrUpstreamTimeout indicates that the upstream request timed out.
	ErrUpstreamTimeout = errors.New("upstream request timed out")

	// ErrUpstreamUnavailable indicates that the upstream is unavailable or
	// answered with a status that is not a valid media response.
	ErrUpstreamUnavailable = errors.New("upstream unavailable")

	// ErrCircuitOpen indicates that the upstream host's circuit breaker is
	// open.
	ErrCircuitOpen = errors.New("upstream circuit breaker is open")

	// ErrClientCanceled indicates that the client went away before the
	// upstream answered.
	ErrClientCanceled = errors.New("client canceled request")

	// ErrNoTokenSource indicates that a route requires authorization but the
	// forwarder has no token source.
	ErrNoTokenSource = errors.New("no token source configured")
)

// ProxyError represents a failed upstream call with details.
type ProxyError struct {
	Op     string // Operation that failed
	Target string // Upstream URL if known
	Status int    // Upstream status if a response was received
	Kind   error  // One of the sentinel errors above
	Cause  error  // Underlying error
}

// Error implements the error interface.
func (e *ProxyError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "proxy error [%s]", e.Op)
	if e.Target != "" {
		fmt.Fprintf(&b, " target=%s", e.Target)
	}
	if e.Status != 0 {
		fmt.Fprintf(&b, " status=%d", e.Status)
	}
	if e.Kind != nil {
		fmt.Fprintf(&b, ": %v", e.Kind)
	}
	if e.Cause != nil {
		fmt.Fprintf(&b, ": %v", e.Cause)
	}
	return b.String()
}

// Unwrap returns the underlying error.
func (e *ProxyError) Unwrap() error {
	return e.Cause
}

// Is checks if the error matches the target.
func (e *ProxyError) Is(target error) bool {
	if _, ok := target.(*ProxyError); ok {
		return true
	}
	return e.Kind != nil && errors.Is(e.Kind, target)
}

// newProxyError creates a new ProxyError.
func newProxyError(op, target string, status int, kind, cause error) *ProxyError {
	return &ProxyError{
		Op:     op,
		Target: target,
		Status: status,
		Kind:   kind,
		Cause:  cause,
	}
}

// IsProxyError checks if an error is a ProxyError.
func IsProxyError(err error) bool {
	var proxyErr *ProxyError
	return errors.As(err, &proxyErr)
}

// statusError is returned by the response check for statuses that are not
// forwarded to the client.
type statusError struct {
	status int
}

func (e *statusError) Error() string {
	return fmt.Sprintf("unexpected upstream status %d", e.status)
}
