package middleware

import (
	"io"
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/vyrodovalexey/frontgw/internal/config"
	"github.com/vyrodovalexey/frontgw/internal/observability"
	"github.com/vyrodovalexey/frontgw/internal/util"
)

// Rate limiter default configuration constants.
const (
	// DefaultClientTTL is the default TTL for client rate limiter entries.
	DefaultClientTTL = 10 * time.Minute

	// MinCleanupInterval is the minimum interval for cleanup operations.
	MinCleanupInterval = 10 * time.Second

	// MaxCleanupInterval is the maximum interval for cleanup operations.
	MaxCleanupInterval = time.Minute
)

// RejectionRecorder records rate limit rejections per route.
type RejectionRecorder interface {
	RecordRateLimitHit(route string)
}

// clientEntry holds a rate limiter and its last access time for TTL-based cleanup.
type clientEntry struct {
	limiter    *rate.Limiter
	lastAccess time.Time
}

// RateLimiter throttles inbound requests with a token bucket, either
// globally or per client address.
type RateLimiter struct {
	limiter   *rate.Limiter
	perClient bool
	clients   map[string]*clientEntry
	mu        sync.Mutex
	rps       rate.Limit
	burst     int
	logger    observability.Logger
	recorder  RejectionRecorder
	clientTTL time.Duration
	now       func() time.Time
	stopCh    chan struct{}
	stopped   bool
}

// RateLimiterOption is a functional option for configuring the rate limiter.
type RateLimiterOption func(*RateLimiter)

// WithRateLimiterLogger sets the logger for the rate limiter.
func WithRateLimiterLogger(logger observability.Logger) RateLimiterOption {
	return func(rl *RateLimiter) {
		rl.logger = logger
	}
}

// WithRejectionRecorder reports rejections to recorder.
func WithRejectionRecorder(recorder RejectionRecorder) RateLimiterOption {
	return func(rl *RateLimiter) {
		rl.recorder = recorder
	}
}

// WithRateLimiterClock replaces the wall clock.
func WithRateLimiterClock(now func() time.Time) RateLimiterOption {
	return func(rl *RateLimiter) {
		rl.now = now
	}
}

// NewRateLimiter creates a new rate limiter.
func NewRateLimiter(rps float64, burst int, perClient bool, opts ...RateLimiterOption) *RateLimiter {
	rl := &RateLimiter{
		limiter:   rate.NewLimiter(rate.Limit(rps), burst),
		perClient: perClient,
		clients:   make(map[string]*clientEntry),
		rps:       rate.Limit(rps),
		burst:     burst,
		logger:    observability.NopLogger(),
		clientTTL: DefaultClientTTL,
		now:       time.Now,
		stopCh:    make(chan struct{}),
	}

	for _, opt := range opts {
		opt(rl)
	}

	return rl
}

// Allow checks if a request from client is allowed.
func (rl *RateLimiter) Allow(client string) bool {
	if rl.perClient {
		return rl.allowPerClient(client)
	}
	return rl.limiter.AllowN(rl.now(), 1)
}

func (rl *RateLimiter) allowPerClient(client string) bool {
	now := rl.now()

	rl.mu.Lock()
	entry, exists := rl.clients[client]
	if !exists {
		entry = &clientEntry{limiter: rate.NewLimiter(rl.rps, rl.burst)}
		rl.clients[client] = entry
		getMiddlewareMetrics().rateLimitClients.Set(float64(len(rl.clients)))
	}
	entry.lastAccess = now
	limiter := entry.limiter
	rl.mu.Unlock()

	return limiter.AllowN(now, 1)
}

// Clients returns the number of tracked per-client limiters.
func (rl *RateLimiter) Clients() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.clients)
}

// RateLimit returns a middleware that applies rate limiting. Rejected
// requests get 429 with Retry-After.
func RateLimit(rl *RateLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			client := clientIP(r)
			m := getMiddlewareMetrics()

			if !rl.Allow(client) {
				route := util.RouteFromContext(r.Context())
				m.rateLimitRejected.Inc()
				if rl.recorder != nil {
					rl.recorder.RecordRateLimitHit(route)
				}
				rl.logger.WithContext(r.Context()).Warn("rate limit exceeded",
					observability.String("client_ip", client),
					observability.String("path", r.URL.Path),
				)

				w.Header().Set(HeaderContentType, contentTypeTextPlain)
				w.Header().Set(HeaderRetryAfter, "1")
				w.WriteHeader(http.StatusTooManyRequests)
				if r.Method != http.MethodHead {
					_, _ = io.WriteString(w, BodyRateLimitExceeded)
				}
				return
			}

			m.rateLimitAllowed.Inc()
			next.ServeHTTP(w, r)
		})
	}
}

// RateLimitFromConfig creates rate limit middleware from gateway config.
// The returned limiter is nil when rate limiting is disabled; otherwise
// the caller should Stop it during shutdown.
func RateLimitFromConfig(
	cfg *config.RateLimitConfig,
	logger observability.Logger,
	opts ...RateLimiterOption,
) (func(http.Handler) http.Handler, *RateLimiter) {
	if cfg == nil || !cfg.Enabled {
		return func(next http.Handler) http.Handler {
			return next
		}, nil
	}

	opts = append([]RateLimiterOption{WithRateLimiterLogger(logger)}, opts...)
	rl := NewRateLimiter(cfg.RPS, cfg.Burst, cfg.PerClient, opts...)

	if cfg.PerClient {
		rl.StartAutoCleanup()
	}

	return RateLimit(rl), rl
}

// CleanupOldClients removes client limiters not used within maxAge.
func (rl *RateLimiter) CleanupOldClients(maxAge time.Duration) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	removed := 0
	for client, entry := range rl.clients {
		if now.Sub(entry.lastAccess) > maxAge {
			delete(rl.clients, client)
			removed++
		}
	}

	if removed > 0 {
		getMiddlewareMetrics().rateLimitClients.Set(float64(len(rl.clients)))
		rl.logger.Debug("cleaned up expired rate limiter entries",
			observability.Int("removed", removed),
			observability.Int("remaining", len(rl.clients)),
		)
	}
}

// StartAutoCleanup periodically removes idle client limiters until Stop.
func (rl *RateLimiter) StartAutoCleanup() {
	rl.mu.Lock()
	if rl.stopped {
		rl.mu.Unlock()
		return
	}
	ttl := rl.clientTTL
	rl.mu.Unlock()

	interval := min(max(ttl/2, MinCleanupInterval), MaxCleanupInterval)

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				rl.CleanupOldClients(ttl)
			case <-rl.stopCh:
				return
			}
		}
	}()
}

// Stop stops the rate limiter cleanup goroutine.
func (rl *RateLimiter) Stop() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if !rl.stopped {
		rl.stopped = true
		close(rl.stopCh)
	}
}

// SetClientTTL sets the TTL for client entries.
func (rl *RateLimiter) SetClientTTL(ttl time.Duration) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	rl.clientTTL = ttl
}

// clientIP returns the remote address without its port.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
