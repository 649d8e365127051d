package upstream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/vyrodovalexey/frontgw/internal/observability"
)

// Rate limit response headers.
const (
	HeaderRateLimitRemaining = "X-Ratelimit-Remaining"
	HeaderRateLimitReset     = "X-Ratelimit-Reset"
	HeaderRateLimitUsed      = "X-Ratelimit-Used"
)

// DefaultExpectedRemaining is the remaining budget a fresh token reports
// after its first request.
const DefaultExpectedRemaining = 99

const probeTracerName = "frontgw/upstream"

// Probe errors.
var (
	ErrProbeStatus          = errors.New("probe request returned non-200 status")
	ErrRateLimitHeaders     = errors.New("rate limit headers missing or malformed")
	ErrRateLimitMismatch    = errors.New("rate limit does not match a fresh token")
	errProbeNotConfigured   = errors.New("probe url is empty")
	errProbeClientNotSet    = errors.New("probe http client is nil")
	errRateLimitHeaderEmpty = errors.New("header is empty")
)

// RateLimit is the budget reported by the upstream API.
type RateLimit struct {
	Remaining float64
	Used      float64
	Reset     time.Duration
}

// Prober checks the upstream rate-limit budget once at startup.
type Prober struct {
	client    *http.Client
	url       string
	userAgent string
	expected  float64
	logger    observability.Logger
}

// ProberOption is a functional option for configuring a Prober.
type ProberOption func(*Prober)

// WithProbeUserAgent sets the User-Agent sent upstream.
func WithProbeUserAgent(ua string) ProberOption {
	return func(p *Prober) {
		p.userAgent = ua
	}
}

// WithExpectedRemaining sets the remaining budget the probe expects. A
// negative value disables the comparison.
func WithExpectedRemaining(n float64) ProberOption {
	return func(p *Prober) {
		p.expected = n
	}
}

// WithProbeLogger sets the logger.
func WithProbeLogger(logger observability.Logger) ProberOption {
	return func(p *Prober) {
		p.logger = logger
	}
}

// NewProber creates a prober issuing one GET to url with client. The
// client is expected to attach credentials.
func NewProber(client *http.Client, url string, opts ...ProberOption) *Prober {
	p := &Prober{
		client:   client,
		url:      url,
		expected: DefaultExpectedRemaining,
		logger:   observability.NopLogger(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Check performs the probe. The caller decides how to react to a failure;
// the gateway only logs it.
func (p *Prober) Check(ctx context.Context) (*RateLimit, error) {
	ctx, span := otel.Tracer(probeTracerName).Start(ctx, "upstream.RateLimitProbe")
	defer span.End()

	rl, err := p.check(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return rl, err
	}

	span.SetAttributes(
		attribute.Float64("ratelimit.remaining", rl.Remaining),
		attribute.Float64("ratelimit.used", rl.Used),
	)
	span.SetStatus(codes.Ok, "")
	p.logger.Info("rate limit check passed",
		observability.Float64("remaining", rl.Remaining),
		observability.Duration("reset", rl.Reset),
	)
	return rl, nil
}

func (p *Prober) check(ctx context.Context) (*RateLimit, error) {
	if p.url == "" {
		return nil, errProbeNotConfigured
	}
	if p.client == nil {
		return nil, errProbeClientNotSet
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.url, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("failed to build probe request: %w", err)
	}
	if p.userAgent != "" {
		req.Header.Set("User-Agent", p.userAgent)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("probe request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<20))

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %d", ErrProbeStatus, resp.StatusCode)
	}

	rl, err := ParseRateLimit(resp.Header)
	if err != nil {
		return nil, err
	}

	if p.expected >= 0 && rl.Remaining != p.expected {
		return rl, fmt.Errorf("%w: expected %s remaining, got %s",
			ErrRateLimitMismatch, formatFloat(p.expected), formatFloat(rl.Remaining))
	}
	return rl, nil
}

// ParseRateLimit reads the rate limit headers. Remaining and reset are
// required; used is optional.
func ParseRateLimit(h http.Header) (*RateLimit, error) {
	remaining, err := parseHeaderFloat(h, HeaderRateLimitRemaining)
	if err != nil {
		return nil, err
	}
	reset, err := parseHeaderFloat(h, HeaderRateLimitReset)
	if err != nil {
		return nil, err
	}

	rl := &RateLimit{
		Remaining: remaining,
		Reset:     time.Duration(reset * float64(time.Second)),
	}
	if h.Get(HeaderRateLimitUsed) != "" {
		if used, err := parseHeaderFloat(h, HeaderRateLimitUsed); err == nil {
			rl.Used = used
		}
	}
	return rl, nil
}

func parseHeaderFloat(h http.Header, name string) (float64, error) {
	raw := strings.TrimSpace(h.Get(name))
	if raw == "" {
		return 0, fmt.Errorf("%w: %s: %w", ErrRateLimitHeaders, name, errRateLimitHeaderEmpty)
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %w", ErrRateLimitHeaders, name, err)
	}
	return v, nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
