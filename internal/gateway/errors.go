package gateway

import "errors"

// Sentinel errors for gateway operations.
var (
	// ErrListenerRunning indicates that Start was called on a running
	// listener.
	ErrListenerRunning = errors.New("listener is already running")

	// ErrConflictingIPFamilies indicates that both IPv4-only and IPv6-only
	// were requested.
	ErrConflictingIPFamilies = errors.New("ipv4-only and ipv6-only are mutually exclusive")
)
