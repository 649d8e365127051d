package proxy

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/vyrodovalexey/frontgw/internal/observability"
)

// BreakerSettings configures the per-host circuit breakers.
type BreakerSettings struct {
	// MaxRequests is the number of probes allowed while half-open.
	MaxRequests uint32
	// Interval is the cyclic period of the closed state after which the
	// counts are cleared. Zero never clears them.
	Interval time.Duration
	// Timeout is how long the breaker stays open.
	Timeout time.Duration
	// FailureRatio trips the breaker once MinRequests have been seen.
	FailureRatio float64
	MinRequests  uint32
}

// errServerStatus marks a 5xx response as a breaker failure while the
// response itself is still returned.
var errServerStatus = errors.New("upstream server error")

// breakerSet holds one gobreaker per upstream host.
type breakerSet struct {
	settings BreakerSettings
	logger   observability.Logger

	mu       sync.Mutex
	breakers map[string]*gobreaker.CircuitBreaker
}

func newBreakerSet(settings BreakerSettings, logger observability.Logger) *breakerSet {
	return &breakerSet{
		settings: settings,
		logger:   logger,
		breakers: make(map[string]*gobreaker.CircuitBreaker),
	}
}

func (s *breakerSet) get(host string) *gobreaker.CircuitBreaker {
	s.mu.Lock()
	defer s.mu.Unlock()

	if cb, ok := s.breakers[host]; ok {
		return cb
	}

	minRequests := s.settings.MinRequests
	ratio := s.settings.FailureRatio
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        host,
		MaxRequests: s.settings.MaxRequests,
		Interval:    s.settings.Interval,
		Timeout:     s.settings.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < minRequests || counts.Requests == 0 {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return failureRatio >= ratio
		},
		IsSuccessful: func(err error) bool {
			// the client going away says nothing about upstream health
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			s.logger.Warn("upstream circuit breaker state change",
				observability.String("host", name),
				observability.String("from", from.String()),
				observability.String("to", to.String()),
			)
			getProxyMetrics().breakerState.WithLabelValues(name).Set(float64(to))
		},
	})
	getProxyMetrics().breakerState.WithLabelValues(host).Set(float64(gobreaker.StateClosed))
	s.breakers[host] = cb
	return cb
}

// state returns the breaker state for host, or closed when none exists.
func (s *breakerSet) state(host string) gobreaker.State {
	s.mu.Lock()
	cb, ok := s.breakers[host]
	s.mu.Unlock()
	if !ok {
		return gobreaker.StateClosed
	}
	return cb.State()
}

// breakerTransport runs every round trip through the breaker of its host.
// Breakers never retry.
type breakerTransport struct {
	breakers *breakerSet
	next     http.RoundTripper
}

// RoundTrip implements http.RoundTripper.
func (t *breakerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	cb := t.breakers.get(req.URL.Host)

	res, err := cb.Execute(func() (interface{}, error) {
		resp, err := t.next.RoundTrip(req)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode >= http.StatusInternalServerError {
			return resp, errServerStatus
		}
		return resp, nil
	})

	switch {
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		trace.SpanFromContext(req.Context()).AddEvent("circuit_open", trace.WithAttributes(
			attribute.String("upstream.host", req.URL.Host),
		))
		return nil, errors.Join(ErrCircuitOpen, err)
	case errors.Is(err, errServerStatus):
		return res.(*http.Response), nil
	case err != nil:
		return nil, err
	}
	return res.(*http.Response), nil
}
