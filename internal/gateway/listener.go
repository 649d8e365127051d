package gateway

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/vyrodovalexey/frontgw/internal/observability"
)

// ListenerConfig configures the public HTTP listener.
type ListenerConfig struct {
	Address           string
	Port              int
	IPv4Only          bool
	IPv6Only          bool
	ReadHeaderTimeout time.Duration
	IdleTimeout       time.Duration
}

// Listener represents an HTTP listener.
type Listener struct {
	config  ListenerConfig
	server  *http.Server
	handler http.Handler
	logger  observability.Logger
	running atomic.Bool
	addr    atomic.Value
	done    chan struct{}
}

// ListenerOption is a functional option for configuring a listener.
type ListenerOption func(*Listener)

// WithListenerLogger sets the logger for the listener.
func WithListenerLogger(logger observability.Logger) ListenerOption {
	return func(l *Listener) {
		l.logger = logger
	}
}

// NewListener creates a new listener.
func NewListener(
	cfg ListenerConfig,
	handler http.Handler,
	opts ...ListenerOption,
) (*Listener, error) {
	if cfg.IPv4Only && cfg.IPv6Only {
		return nil, ErrConflictingIPFamilies
	}

	l := &Listener{
		config:  cfg,
		handler: handler,
		logger:  observability.NopLogger(),
		done:    make(chan struct{}),
	}

	for _, opt := range opts {
		opt(l)
	}

	return l, nil
}

// Network returns the network to bind: tcp4, tcp6 or tcp.
func (l *Listener) Network() string {
	switch {
	case l.config.IPv4Only:
		return "tcp4"
	case l.config.IPv6Only:
		return "tcp6"
	default:
		return "tcp"
	}
}

// Address returns the configured bind address. IPv4-only binds 0.0.0.0 and
// IPv6-only binds [::] regardless of the configured address.
func (l *Listener) Address() string {
	port := strconv.Itoa(l.config.Port)
	switch {
	case l.config.IPv4Only:
		return net.JoinHostPort("0.0.0.0", port)
	case l.config.IPv6Only:
		return net.JoinHostPort("::", port)
	default:
		host := strings.TrimSuffix(strings.TrimPrefix(l.config.Address, "["), "]")
		return net.JoinHostPort(host, port)
	}
}

// Addr returns the bound address once started.
func (l *Listener) Addr() string {
	if v, ok := l.addr.Load().(string); ok {
		return v
	}
	return ""
}

// Start binds the listener and serves in the background. A bind failure
// is returned to the caller.
func (l *Listener) Start(ctx context.Context) error {
	if l.running.Load() {
		return ErrListenerRunning
	}

	addr := l.Address()

	l.server = &http.Server{
		Handler:           l.handler,
		ReadHeaderTimeout: l.config.ReadHeaderTimeout,
		IdleTimeout:       l.config.IdleTimeout,
		MaxHeaderBytes:    1 << 20, // 1MB
	}

	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, l.Network(), addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	l.addr.Store(ln.Addr().String())
	l.running.Store(true)

	l.logger.Info("listener started",
		observability.String("address", ln.Addr().String()),
		observability.String("network", l.Network()),
	)

	go l.serve(ln)

	return nil
}

// serve starts serving requests.
func (l *Listener) serve(ln net.Listener) {
	defer close(l.done)

	if err := l.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		l.logger.Error("listener error",
			observability.String("address", ln.Addr().String()),
			observability.Error(err),
		)
	}
	l.running.Store(false)
}

// Done is closed once the listener stops serving.
func (l *Listener) Done() <-chan struct{} {
	return l.done
}

// Stop stops the listener gracefully.
func (l *Listener) Stop(ctx context.Context) error {
	if !l.running.Load() {
		return nil
	}

	l.logger.Info("stopping listener", observability.String("address", l.Addr()))

	if err := l.server.Shutdown(ctx); err != nil {
		if closeErr := l.server.Close(); closeErr != nil {
			return fmt.Errorf("failed to close listener: %w", closeErr)
		}
		return fmt.Errorf("failed to shutdown listener gracefully: %w", err)
	}

	l.running.Store(false)

	l.logger.Info("listener stopped", observability.String("address", l.Addr()))

	return nil
}

// IsRunning returns true if the listener is running.
func (l *Listener) IsRunning() bool {
	return l.running.Load()
}
