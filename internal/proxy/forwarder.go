package proxy

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"net/http/httputil"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/vyrodovalexey/frontgw/internal/auth/oauth"
	"github.com/vyrodovalexey/frontgw/internal/observability"
	"github.com/vyrodovalexey/frontgw/internal/router"
)

// proxyTracerName is the OpenTelemetry tracer name for upstream calls.
const proxyTracerName = "frontgw/proxy"

// MediaCacheControl is set on every forwarded response.
const MediaCacheControl = "public, max-age=1209600, s-maxage=86400"

// forwardedRequestHeaders are the client headers passed to the upstream.
var forwardedRequestHeaders = []string{
	"Range",
	"If-Modified-Since",
	"If-None-Match",
	"If-Range",
	"Cache-Control",
}

// forwardedResponseHeaders are the upstream headers passed to the client.
var forwardedResponseHeaders = []string{
	"Content-Type",
	"Content-Length",
	"Content-Range",
	"Accept-Ranges",
	"Last-Modified",
	"Date",
	"Expires",
}

// TokenSource supplies the bearer token for upstreams that need one.
type TokenSource interface {
	Token(ctx context.Context) (*oauth.Token, error)
}

// Forwarder streams upstream media responses back to clients.
type Forwarder struct {
	transport    http.RoundTripper
	tokens       TokenSource
	logger       observability.Logger
	userAgent    string
	maxRedirects int
	breakers     *breakerSet
	breakerCfg   *BreakerSettings
	errorLog     *log.Logger
}

// Option is a functional option for configuring the forwarder.
type Option func(*Forwarder)

// WithLogger sets the logger for the forwarder.
func WithLogger(logger observability.Logger) Option {
	return func(f *Forwarder) {
		f.logger = logger
	}
}

// WithTransport sets the base transport. Redirect handling and circuit
// breakers are layered on top of it.
func WithTransport(transport http.RoundTripper) Option {
	return func(f *Forwarder) {
		f.transport = transport
	}
}

// WithTokenSource sets the source of bearer tokens for authorized routes.
func WithTokenSource(tokens TokenSource) Option {
	return func(f *Forwarder) {
		f.tokens = tokens
	}
}

// WithUserAgent sets the User-Agent sent upstream.
func WithUserAgent(ua string) Option {
	return func(f *Forwarder) {
		f.userAgent = ua
	}
}

// WithMaxRedirects sets how many same-host redirects are followed.
func WithMaxRedirects(n int) Option {
	return func(f *Forwarder) {
		f.maxRedirects = n
	}
}

// WithBreaker enables per-host circuit breakers.
func WithBreaker(settings BreakerSettings) Option {
	return func(f *Forwarder) {
		f.breakerCfg = &settings
	}
}

// NewForwarder creates a new forwarder.
func NewForwarder(opts ...Option) *Forwarder {
	f := &Forwarder{
		logger:       observability.NopLogger(),
		maxRedirects: DefaultMaxRedirects,
	}
	for _, opt := range opts {
		opt(f)
	}

	base := f.transport
	if base == nil {
		base = NewTransport(30 * time.Second)
	}
	if f.breakerCfg != nil {
		f.breakers = newBreakerSet(*f.breakerCfg, f.logger)
		base = &breakerTransport{breakers: f.breakers, next: base}
	}
	f.transport = &redirectTransport{next: base, maxRedirects: f.maxRedirects}
	f.errorLog = log.New(&logWriter{logger: f.logger}, "", 0)

	return f
}

// MountOption configures a mounted proxy route.
type MountOption func(*mountOptions)

type mountOptions struct {
	authorize bool
	template  []TemplateOption
}

// WithAuthorization marks the upstream as requiring the bearer token.
func WithAuthorization() MountOption {
	return func(o *mountOptions) {
		o.authorize = true
	}
}

// WithTemplateOptions passes options to template parsing.
func WithTemplateOptions(opts ...TemplateOption) MountOption {
	return func(o *mountOptions) {
		o.template = append(o.template, opts...)
	}
}

// Mount parses pattern and rawTemplate, checks that every placeholder is
// captured by the pattern and registers a GET route forwarding to the
// template.
func (f *Forwarder) Mount(reg router.Registrar, pattern, rawTemplate string, opts ...MountOption) error {
	o := &mountOptions{}
	for _, opt := range opts {
		opt(o)
	}

	p, err := router.ParsePattern(pattern)
	if err != nil {
		return err
	}
	tmpl, err := ParseTemplate(rawTemplate, o.template...)
	if err != nil {
		return err
	}
	if err := tmpl.Bind(p.ParamNames()); err != nil {
		return fmt.Errorf("mounting %s: %w", pattern, err)
	}
	if o.authorize && f.tokens == nil {
		return fmt.Errorf("mounting %s: %w", pattern, ErrNoTokenSource)
	}

	authorize := o.authorize
	_, err = reg.Register(http.MethodGet, pattern, func(w http.ResponseWriter, r *http.Request, params router.Params) error {
		return f.Forward(w, r, params, tmpl, authorize)
	})
	return err
}

// Forward sends r to the URL built from tmpl and params and streams an
// accepted response back. Nothing is written to w when an error is
// returned.
func (f *Forwarder) Forward(
	w http.ResponseWriter,
	r *http.Request,
	params router.Params,
	tmpl *Template,
	authorize bool,
) error {
	target, err := tmpl.Expand(params, r.URL.RawQuery)
	if err != nil {
		kind := ErrUnboundPlaceholder
		result := "unbound"
		if errors.Is(err, ErrHostNotAllowed) {
			kind, result = ErrHostNotAllowed, "host_not_allowed"
		}
		getProxyMetrics().requestsTotal.WithLabelValues("", result).Inc()
		return newProxyError("expand", tmpl.String(), 0, kind, err)
	}

	host := target.Host
	ctx, span := otel.Tracer(proxyTracerName).Start(r.Context(), "proxy.Forward",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("upstream.host", host),
			attribute.String("http.method", r.Method),
		),
	)
	defer span.End()

	var bearer string
	if authorize {
		if f.tokens == nil {
			return newProxyError("authorize", host, 0, ErrNoTokenSource, nil)
		}
		tok, err := f.tokens.Token(ctx)
		if err != nil && ctx.Err() != nil {
			pe := classify(ctx, host, ctx.Err())
			pe.Op = "authorize"
			getProxyMetrics().requestsTotal.WithLabelValues(host, resultLabel(pe)).Inc()
			span.RecordError(pe)
			span.SetStatus(codes.Error, pe.Kind.Error())
			return pe
		}
		if err != nil {
			getProxyMetrics().requestsTotal.WithLabelValues(host, "token_error").Inc()
			span.RecordError(err)
			span.SetStatus(codes.Error, "token unavailable")
			return err
		}
		bearer = tok.AccessToken
	}

	start := time.Now()
	var proxyErr error

	rp := &httputil.ReverseProxy{
		Rewrite: func(pr *httputil.ProxyRequest) {
			pr.Out.URL = target
			pr.Out.Host = ""
			pr.Out.Header = filterHeader(pr.In.Header, forwardedRequestHeaders)
			if f.userAgent != "" {
				pr.Out.Header.Set("User-Agent", f.userAgent)
			}
			if bearer != "" {
				pr.Out.Header.Set("Authorization", "Bearer "+bearer)
			}
		},
		Transport:     f.transport,
		FlushInterval: -1,
		ErrorLog:      f.errorLog,
		ModifyResponse: func(resp *http.Response) error {
			getProxyMetrics().upstreamDuration.WithLabelValues(host).Observe(time.Since(start).Seconds())
			if !acceptedStatus(resp.StatusCode) {
				return &statusError{status: resp.StatusCode}
			}
			resp.Header = filterHeader(resp.Header, forwardedResponseHeaders)
			resp.Header.Set("Cache-Control", MediaCacheControl)
			return nil
		},
		ErrorHandler: func(_ http.ResponseWriter, _ *http.Request, err error) {
			proxyErr = err
		},
	}

	rp.ServeHTTP(w, r.WithContext(ctx))

	if proxyErr == nil {
		getProxyMetrics().requestsTotal.WithLabelValues(host, "success").Inc()
		return nil
	}

	pe := classify(ctx, target.String(), proxyErr)
	result := resultLabel(pe)
	getProxyMetrics().requestsTotal.WithLabelValues(host, result).Inc()
	span.SetAttributes(attribute.String("proxy.result", result))
	if pe.Status != 0 {
		span.SetAttributes(attribute.Int("http.status_code", pe.Status))
	}
	span.RecordError(pe)
	span.SetStatus(codes.Error, pe.Kind.Error())

	f.logger.WithContext(ctx).Debug("upstream request failed",
		observability.String("host", host),
		observability.String("result", result),
		observability.Error(proxyErr),
	)

	return pe
}

// BreakerState returns the circuit breaker state name for host.
func (f *Forwarder) BreakerState(host string) string {
	if f.breakers == nil {
		return "disabled"
	}
	return f.breakers.state(host).String()
}

func acceptedStatus(status int) bool {
	return (status >= 200 && status < 300) || status == http.StatusNotModified
}

// classify maps a transport or status error onto the proxy taxonomy.
func classify(ctx context.Context, target string, err error) *ProxyError {
	var se *statusError
	if errors.As(err, &se) {
		kind := ErrUpstreamUnavailable
		if se.status == http.StatusNotFound || se.status == http.StatusGone {
			kind = ErrUpstreamNotFound
		}
		return newProxyError("response", target, se.status, kind, err)
	}

	if errors.Is(err, context.Canceled) {
		return newProxyError("round_trip", target, 0, ErrClientCanceled, err)
	}
	if errors.Is(ctx.Err(), context.Canceled) {
		return newProxyError("round_trip", target, 0, ErrClientCanceled, ctx.Err())
	}

	if errors.Is(err, ErrCircuitOpen) {
		return newProxyError("round_trip", target, 0, ErrCircuitOpen, err)
	}

	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return newProxyError("round_trip", target, 0, ErrUpstreamTimeout, err)
	}

	return newProxyError("round_trip", target, 0, ErrUpstreamUnavailable, err)
}

func resultLabel(pe *ProxyError) string {
	switch {
	case errors.Is(pe.Kind, ErrClientCanceled):
		return "canceled"
	case errors.Is(pe.Kind, ErrUpstreamNotFound):
		return "not_found"
	case errors.Is(pe.Kind, ErrCircuitOpen):
		return "circuit_open"
	case errors.Is(pe.Kind, ErrUpstreamTimeout):
		return "timeout"
	case pe.Status != 0:
		return "bad_status"
	default:
		return "unavailable"
	}
}

// filterHeader copies the allowed keys of h into a new header.
func filterHeader(h http.Header, allowed []string) http.Header {
	out := make(http.Header, len(allowed))
	for _, k := range allowed {
		if v := h.Values(k); len(v) > 0 {
			out[k] = append([]string(nil), v...)
		}
	}
	return out
}

// logWriter adapts the forwarder logger for httputil.ReverseProxy.
type logWriter struct {
	logger observability.Logger
}

func (w *logWriter) Write(p []byte) (int, error) {
	w.logger.Warn("reverse proxy", observability.String("message", strings.TrimSpace(string(p))))
	return len(p), nil
}
