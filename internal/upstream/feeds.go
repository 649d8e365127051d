package upstream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/vyrodovalexey/frontgw/internal/cache"
	"github.com/vyrodovalexey/frontgw/internal/observability"
	"github.com/vyrodovalexey/frontgw/internal/proxy"
	"github.com/vyrodovalexey/frontgw/internal/router"
)

// Default feed settings.
const (
	DefaultFeedTTL      = 600 * time.Second
	DefaultMaxBodyBytes = 4 << 20
)

// ErrBodyTooLarge indicates a feed body above the configured limit.
var ErrBodyTooLarge = errors.New("feed body exceeds limit")

// Feed is a document fetched from a fixed URL and served verbatim.
type Feed struct {
	Name        string
	URL         string
	ContentType string
}

// CommitsFeed returns the Atom feed of recent commits.
func CommitsFeed(url string) Feed {
	return Feed{Name: "commits", URL: url, ContentType: "application/atom+xml"}
}

// InstancesFeed returns the JSON list of public instances.
func InstancesFeed(url string) Feed {
	return Feed{Name: "instances", URL: url, ContentType: "application/json"}
}

// Feeds fetches feeds through a shared TTL cache.
type Feeds struct {
	client    *http.Client
	memo      *cache.Memoizer[[]byte]
	ttl       time.Duration
	maxBody   int64
	userAgent string
	logger    observability.Logger
}

// FeedsOption is a functional option for configuring Feeds.
type FeedsOption func(*Feeds)

// WithHTTPClient sets the client used for fetches.
func WithHTTPClient(client *http.Client) FeedsOption {
	return func(f *Feeds) {
		f.client = client
	}
}

// WithTTL sets how long a fetched body is served from memory.
func WithTTL(ttl time.Duration) FeedsOption {
	return func(f *Feeds) {
		f.ttl = ttl
	}
}

// WithMaxBodyBytes caps the size of a fetched body.
func WithMaxBodyBytes(n int64) FeedsOption {
	return func(f *Feeds) {
		f.maxBody = n
	}
}

// WithUserAgent sets the User-Agent sent upstream.
func WithUserAgent(ua string) FeedsOption {
	return func(f *Feeds) {
		f.userAgent = ua
	}
}

// WithLogger sets the logger.
func WithLogger(logger observability.Logger) FeedsOption {
	return func(f *Feeds) {
		f.logger = logger
	}
}

// WithMemoizer replaces the cache, typically to inject a manual clock.
func WithMemoizer(memo *cache.Memoizer[[]byte]) FeedsOption {
	return func(f *Feeds) {
		f.memo = memo
	}
}

// NewFeeds creates a feed fetcher.
func NewFeeds(opts ...FeedsOption) *Feeds {
	f := &Feeds{
		client:  &http.Client{Timeout: 30 * time.Second},
		ttl:     DefaultFeedTTL,
		maxBody: DefaultMaxBodyBytes,
		logger:  observability.NopLogger(),
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.memo == nil {
		f.memo = cache.NewMemoizer[[]byte](cache.WithName("feeds"), cache.WithLogger(f.logger))
	}
	return f
}

// Fetch returns the feed body, from memory when fetched within the TTL.
func (f *Feeds) Fetch(ctx context.Context, feed Feed) ([]byte, error) {
	key := cache.Key(fetchBody, feed.URL)
	return f.memo.Memoize(ctx, key, f.ttl, func(ctx context.Context) ([]byte, error) {
		return fetchBody(ctx, f.client, feed.URL, f.userAgent, f.maxBody)
	})
}

// Handler serves feed. Fetch failures surface as proxy errors so they are
// rendered like any other upstream failure.
func (f *Feeds) Handler(feed Feed) router.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request, _ router.Params) error {
		body, err := f.Fetch(r.Context(), feed)
		if err != nil {
			f.logger.WithContext(r.Context()).Warn("feed fetch failed",
				observability.String("feed", feed.Name),
				observability.Error(err),
			)
			return err
		}

		w.Header().Set("Content-Type", feed.ContentType)
		w.Header().Set("Content-Length", strconv.Itoa(len(body)))
		w.WriteHeader(http.StatusOK)
		_, err = w.Write(body)
		return err
	}
}

// Mount registers a GET route at pattern serving feed.
func (f *Feeds) Mount(reg router.Registrar, pattern string, feed Feed) error {
	if _, err := reg.Register(http.MethodGet, pattern, f.Handler(feed)); err != nil {
		return fmt.Errorf("failed to register feed %s: %w", feed.Name, err)
	}
	return nil
}

func fetchBody(ctx context.Context, client *http.Client, url, userAgent string, maxBody int64) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, &proxy.ProxyError{Op: "feed", Target: url, Kind: proxy.ErrUpstreamUnavailable, Cause: err}
	}
	if userAgent != "" {
		req.Header.Set("User-Agent", userAgent)
	}

	resp, err := client.Do(req)
	if err != nil {
		kind := proxy.ErrUpstreamUnavailable
		var netErr net.Error
		if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
			kind = proxy.ErrUpstreamTimeout
		}
		return nil, &proxy.ProxyError{Op: "feed", Target: url, Kind: kind, Cause: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		kind := proxy.ErrUpstreamUnavailable
		if resp.StatusCode == http.StatusNotFound {
			kind = proxy.ErrUpstreamNotFound
		}
		return nil, &proxy.ProxyError{Op: "feed", Target: url, Status: resp.StatusCode, Kind: kind}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody+1))
	if err != nil {
		return nil, &proxy.ProxyError{Op: "feed", Target: url, Kind: proxy.ErrUpstreamUnavailable, Cause: err}
	}
	if int64(len(body)) > maxBody {
		return nil, &proxy.ProxyError{Op: "feed", Target: url, Kind: proxy.ErrUpstreamUnavailable, Cause: ErrBodyTooLarge}
	}
	return body, nil
}
