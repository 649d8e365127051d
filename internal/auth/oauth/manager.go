package oauth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// Common errors for the credential manager.
var (
	ErrRefreshFailed        = errors.New("token refresh failed")
	ErrInvalidResponse      = errors.New("invalid token response")
	ErrMissingClientID      = errors.New("missing client ID")
	ErrMissingTokenEndpoint = errors.New("missing token endpoint")
)

const (
	// refreshKey is the single-flight key; there is one token per manager.
	refreshKey = "token"

	// defaultExpiresIn applies when the token endpoint omits expires_in.
	defaultExpiresIn = time.Hour

	// maxTokenResponseBytes bounds the token response body.
	maxTokenResponseBytes = 1 << 20

	oauthTracerName = "frontgw/oauth"
)

// Token is an upstream access token.
type Token struct {
	AccessToken string
	TokenType   string
	ExpiresAt   time.Time
}

// Valid reports whether the token can be used at now without entering the
// refresh margin.
func (t *Token) Valid(now time.Time, margin time.Duration) bool {
	return t != nil && t.AccessToken != "" && now.Add(margin).Before(t.ExpiresAt)
}

// tokenResponse is the token endpoint JSON body.
type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
	Scope       string `json:"scope,omitempty"`
}

// Config holds configuration for the Manager.
type Config struct {
	// TokenEndpoint is the token endpoint URL.
	TokenEndpoint string

	// ClientID and ClientSecret are sent with HTTP basic auth. The secret
	// may be empty for public clients.
	ClientID     string
	ClientSecret string

	// Scopes is the list of scopes to request.
	Scopes []string

	// Headers are added to every token request.
	Headers map[string]string

	// UserAgent is sent with every token request.
	UserAgent string

	// RefreshMargin is how long before expiry a token stops being served.
	RefreshMargin time.Duration

	// RequestTimeout bounds one refresh round.
	RequestTimeout time.Duration

	// RetryDelay is how long the auto-refresh loop waits after a failure.
	RetryDelay time.Duration
}

// Option configures a Manager.
type Option func(*Manager)

// WithHTTPClient sets the HTTP client used for token requests.
func WithHTTPClient(client *http.Client) Option {
	return func(m *Manager) {
		m.httpClient = client
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// WithClock sets the time source used for expiry decisions.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		m.now = now
	}
}

// Manager holds one access token and refreshes it on demand. Concurrent
// callers that need a refresh share a single token request; every waiter
// of one round sees the same token or the same error, and the next call
// after a failed round starts a new one.
type Manager struct {
	cfg        Config
	httpClient *http.Client
	logger     *zap.Logger
	now        func() time.Time

	mu    sync.RWMutex
	token *Token

	group singleflight.Group
}

// NewManager creates a new credential manager.
func NewManager(cfg Config, opts ...Option) (*Manager, error) {
	if cfg.TokenEndpoint == "" {
		return nil, ErrMissingTokenEndpoint
	}
	if cfg.ClientID == "" {
		return nil, ErrMissingClientID
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 10 * time.Second
	}
	if cfg.RefreshMargin < 0 {
		cfg.RefreshMargin = 0
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = 5 * time.Second
	}

	m := &Manager{
		cfg:        cfg,
		httpClient: &http.Client{},
		logger:     zap.NewNop(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}

	return m, nil
}

// Token returns a valid token, refreshing it when it is missing or within
// the refresh margin. A caller whose ctx ends while waiting gets ctx.Err();
// the refresh itself keeps running for the other waiters.
func (m *Manager) Token(ctx context.Context) (*Token, error) {
	if t := m.current(); t.Valid(m.now(), m.cfg.RefreshMargin) {
		getOAuthMetrics().cacheHits.Inc()
		return t, nil
	}
	return m.join(ctx, false)
}

// Refresh forces a new token request, or joins the one in flight.
func (m *Manager) Refresh(ctx context.Context) (*Token, error) {
	return m.join(ctx, true)
}

// Invalidate drops the held token so the next Token call refreshes.
func (m *Manager) Invalidate() {
	m.mu.Lock()
	m.token = nil
	m.mu.Unlock()
}

// Ready reports whether a usable token is held.
func (m *Manager) Ready() bool {
	return m.current().Valid(m.now(), 0)
}

func (m *Manager) current() *Token {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.token
}

func (m *Manager) join(ctx context.Context, force bool) (*Token, error) {
	ch := m.group.DoChan(refreshKey, func() (any, error) {
		// a round that just finished may already have produced a usable token
		if !force {
			if t := m.current(); t.Valid(m.now(), m.cfg.RefreshMargin) {
				return t, nil
			}
		}
		return m.refresh(context.WithoutCancel(ctx))
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*Token), nil
	}
}

// refresh performs one token request and swaps the held token on success.
func (m *Manager) refresh(parent context.Context) (*Token, error) {
	ctx, cancel := context.WithTimeout(parent, m.cfg.RequestTimeout)
	defer cancel()

	ctx, span := otel.Tracer(oauthTracerName).Start(ctx, "oauth.Refresh")
	defer span.End()

	start := time.Now()
	result := "success"
	defer func() {
		metrics := getOAuthMetrics()
		metrics.refreshTotal.WithLabelValues(result).Inc()
		metrics.refreshDuration.WithLabelValues(result).Observe(time.Since(start).Seconds())
	}()

	token, reason, err := m.fetch(ctx)
	if err != nil {
		result = reason
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		m.logger.Warn("token refresh failed",
			zap.String("reason", reason),
			zap.Error(err),
		)
		return nil, err
	}

	m.mu.Lock()
	m.token = token
	m.mu.Unlock()

	span.SetAttributes(attribute.String("oauth.expires_at", token.ExpiresAt.Format(time.RFC3339)))
	m.logger.Debug("fetched new upstream token",
		zap.String("tokenType", token.TokenType),
		zap.Time("expiresAt", token.ExpiresAt),
	)

	return token, nil
}

// fetch sends the token request and parses the response. The second
// return value is the metrics result label.
func (m *Manager) fetch(ctx context.Context) (*Token, string, error) {
	form := url.Values{}
	form.Set("grant_type", "client_credentials")
	if len(m.cfg.Scopes) > 0 {
		form.Set("scope", strings.Join(m.cfg.Scopes, " "))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.cfg.TokenEndpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, "request_error", fmt.Errorf("%w: building request: %w", ErrRefreshFailed, err)
	}

	req.SetBasicAuth(m.cfg.ClientID, m.cfg.ClientSecret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	if m.cfg.UserAgent != "" {
		req.Header.Set("User-Agent", m.cfg.UserAgent)
	}
	for k, v := range m.cfg.Headers {
		req.Header.Set(k, v)
	}

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return nil, "network_error", fmt.Errorf("%w: %w", ErrRefreshFailed, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxTokenResponseBytes))
	if err != nil {
		return nil, "read_error", fmt.Errorf("%w: reading response: %w", ErrRefreshFailed, err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, "status_error", fmt.Errorf("%w: status %d", ErrRefreshFailed, resp.StatusCode)
	}

	var tr tokenResponse
	if err := json.Unmarshal(body, &tr); err != nil {
		return nil, "parse_error", fmt.Errorf("%w: %w: %w", ErrRefreshFailed, ErrInvalidResponse, err)
	}
	if tr.AccessToken == "" {
		return nil, "parse_error", fmt.Errorf("%w: %w: empty access_token", ErrRefreshFailed, ErrInvalidResponse)
	}

	expiresIn := defaultExpiresIn
	if tr.ExpiresIn > 0 {
		expiresIn = time.Duration(tr.ExpiresIn) * time.Second
	}
	tokenType := tr.TokenType
	if tokenType == "" {
		tokenType = "bearer"
	}

	return &Token{
		AccessToken: tr.AccessToken,
		TokenType:   tokenType,
		ExpiresAt:   m.now().Add(expiresIn),
	}, "success", nil
}

// StartAutoRefresh refreshes the token ahead of expiry until ctx is done.
// After a failed round it waits RetryDelay before trying again; Token
// itself never retries.
func (m *Manager) StartAutoRefresh(ctx context.Context) {
	go m.autoRefreshLoop(ctx)
}

func (m *Manager) autoRefreshLoop(ctx context.Context) {
	for {
		if !m.waitAndRefresh(ctx, m.refreshWait()) {
			return
		}
	}
}

// refreshWait is how long until the held token enters the refresh margin.
func (m *Manager) refreshWait() time.Duration {
	t := m.current()
	if t == nil {
		return 0
	}
	wait := t.ExpiresAt.Sub(m.now()) - m.cfg.RefreshMargin
	if wait < 0 {
		return 0
	}
	return wait
}

// waitAndRefresh returns false once ctx is cancelled.
func (m *Manager) waitAndRefresh(ctx context.Context, wait time.Duration) bool {
	timer := time.NewTimer(wait)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
	}

	if _, err := m.Refresh(ctx); err != nil {
		if ctx.Err() != nil {
			return false
		}
		m.logger.Error("auto-refresh token failed",
			zap.Duration("retryIn", m.cfg.RetryDelay),
			zap.Error(err),
		)
		return m.waitForRetry(ctx)
	}
	return true
}

func (m *Manager) waitForRetry(ctx context.Context) bool {
	timer := time.NewTimer(m.cfg.RetryDelay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

// RoundTripper returns an http.RoundTripper that adds the bearer token to
// requests.
func (m *Manager) RoundTripper(base http.RoundTripper) http.RoundTripper {
	if base == nil {
		base = http.DefaultTransport
	}
	return &bearerRoundTripper{manager: m, base: base}
}

type bearerRoundTripper struct {
	manager *Manager
	base    http.RoundTripper
}

// RoundTrip implements http.RoundTripper.
func (rt *bearerRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	token, err := rt.manager.Token(req.Context())
	if err != nil {
		return nil, err
	}

	req2 := req.Clone(req.Context())
	req2.Header.Set("Authorization", "Bearer "+token.AccessToken)

	return rt.base.RoundTrip(req2)
}
