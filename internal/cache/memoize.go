package cache

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"

	"github.com/vyrodovalexey/frontgw/internal/observability"
)

// cacheTracerName is the OpenTelemetry tracer name for cache operations.
const cacheTracerName = "frontgw/cache"

// Producer computes a value on a cache miss.
type Producer[V any] func(ctx context.Context) (V, error)

// entry is a stored value and the time it was computed.
type entry[V any] struct {
	value      V
	computedAt time.Time
	ttl        time.Duration
}

func (e entry[V]) fresh(now time.Time, ttl time.Duration) bool {
	return now.Sub(e.computedAt) < ttl
}

// Option configures a Memoizer.
type Option func(*options)

type options struct {
	name         string
	clock        Clock
	logger       observability.Logger
	singleFlight bool
}

// WithName sets the name used in metrics labels and logs.
func WithName(name string) Option {
	return func(o *options) {
		o.name = name
	}
}

// WithClock sets the time source.
func WithClock(clock Clock) Option {
	return func(o *options) {
		o.clock = clock
	}
}

// WithLogger sets the logger.
func WithLogger(logger observability.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithSingleFlight makes concurrent misses on one key share a single
// producer run.
func WithSingleFlight() Option {
	return func(o *options) {
		o.singleFlight = true
	}
}

// Memoizer caches producer results per key for a caller-chosen TTL.
// It is safe for concurrent use.
type Memoizer[V any] struct {
	name   string
	clock  Clock
	logger observability.Logger

	singleFlight bool
	group        singleflight.Group

	mu      sync.Mutex
	entries map[string]entry[V]
}

// NewMemoizer creates an empty memoizer.
func NewMemoizer[V any](opts ...Option) *Memoizer[V] {
	o := &options{
		name:   "default",
		clock:  SystemClock{},
		logger: observability.NopLogger(),
	}
	for _, opt := range opts {
		opt(o)
	}

	return &Memoizer[V]{
		name:         o.name,
		clock:        o.clock,
		logger:       o.logger,
		singleFlight: o.singleFlight,
		entries:      make(map[string]entry[V]),
	}
}

// Memoize returns the stored value for key when it was computed less than
// ttl ago. Otherwise it runs produce, stores the result and returns it.
// A non-positive ttl always runs the producer. The producer runs without
// the cache lock held and its errors are not stored.
func (m *Memoizer[V]) Memoize(ctx context.Context, key string, ttl time.Duration, produce Producer[V]) (V, error) {
	ctx, span := otel.Tracer(cacheTracerName).Start(ctx, "cache.Memoize",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("cache.name", m.name),
			attribute.String("cache.key", key),
		),
	)
	defer span.End()

	metrics := getCacheMetrics()

	if v, ok := m.lookup(key, ttl); ok {
		metrics.hitsTotal.WithLabelValues(m.name).Inc()
		span.SetAttributes(attribute.Bool("cache.hit", true))
		return v, nil
	}

	metrics.missesTotal.WithLabelValues(m.name).Inc()
	span.SetAttributes(attribute.Bool("cache.hit", false))

	var (
		v   V
		err error
	)
	if m.singleFlight {
		v, err = m.produceShared(ctx, key, ttl, produce)
	} else {
		v, err = m.produce(ctx, key, ttl, produce)
	}

	if err != nil {
		metrics.producerErrorsTotal.WithLabelValues(m.name).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		m.logger.Debug("cache producer failed",
			observability.String("cache", m.name),
			observability.String("key", key),
			observability.Error(err),
		)
		return v, err
	}

	return v, nil
}

// produceShared runs produce through the single-flight group. The entry is
// re-checked inside the group so a caller arriving just after a flight
// completed does not start another one.
func (m *Memoizer[V]) produceShared(ctx context.Context, key string, ttl time.Duration, produce Producer[V]) (V, error) {
	res, err, _ := m.group.Do(key, func() (any, error) {
		if v, ok := m.lookup(key, ttl); ok {
			return v, nil
		}
		return m.produce(ctx, key, ttl, produce)
	})
	if err != nil {
		var zero V
		return zero, err
	}
	return res.(V), nil
}

func (m *Memoizer[V]) produce(ctx context.Context, key string, ttl time.Duration, produce Producer[V]) (V, error) {
	start := m.clock.Now()
	v, err := produce(ctx)
	getCacheMetrics().producerDuration.WithLabelValues(m.name).Observe(m.clock.Now().Sub(start).Seconds())
	if err != nil {
		return v, err
	}

	m.store(key, v, ttl)
	return v, nil
}

func (m *Memoizer[V]) lookup(key string, ttl time.Duration) (V, bool) {
	now := m.clock.Now()

	m.mu.Lock()
	e, ok := m.entries[key]
	m.mu.Unlock()

	if !ok || !e.fresh(now, ttl) {
		var zero V
		return zero, false
	}
	return e.value, true
}

func (m *Memoizer[V]) store(key string, v V, ttl time.Duration) {
	now := m.clock.Now()

	m.mu.Lock()
	m.entries[key] = entry[V]{value: v, computedAt: now, ttl: ttl}
	n := len(m.entries)
	m.mu.Unlock()

	getCacheMetrics().entries.WithLabelValues(m.name).Set(float64(n))
}

// Invalidate drops the entry for key.
func (m *Memoizer[V]) Invalidate(key string) {
	m.mu.Lock()
	delete(m.entries, key)
	n := len(m.entries)
	m.mu.Unlock()

	getCacheMetrics().entries.WithLabelValues(m.name).Set(float64(n))
}

// Len returns the number of stored entries, fresh or not.
func (m *Memoizer[V]) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

// Sweep drops entries whose own TTL has elapsed and returns how many were
// removed.
func (m *Memoizer[V]) Sweep() int {
	now := m.clock.Now()

	m.mu.Lock()
	removed := 0
	for k, e := range m.entries {
		if !e.fresh(now, e.ttl) {
			delete(m.entries, k)
			removed++
		}
	}
	n := len(m.entries)
	m.mu.Unlock()

	getCacheMetrics().entries.WithLabelValues(m.name).Set(float64(n))
	return removed
}

// StartSweeper runs Sweep every interval until ctx is done. A
// non-positive interval starts nothing.
func (m *Memoizer[V]) StartSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if removed := m.Sweep(); removed > 0 {
					m.logger.Debug("cache sweep",
						observability.String("cache", m.name),
						observability.Int("removed", removed),
					)
				}
			}
		}
	}()
}
