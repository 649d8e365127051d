package gateway

import (
	"context"
	"errors"
	"net/http"

	"github.com/vyrodovalexey/frontgw/internal/observability"
	"github.com/vyrodovalexey/frontgw/internal/proxy"
	"github.com/vyrodovalexey/frontgw/internal/router"
	"github.com/vyrodovalexey/frontgw/internal/util"
)

// unmatchedRoute labels requests when no route and no catch-all exist.
const unmatchedRoute = "unmatched"

// Middleware wraps an http.Handler.
type Middleware func(http.Handler) http.Handler

type matchKey struct{}

// resolution is the router outcome carried to the innermost handler.
type resolution struct {
	match *router.Match
	err   error
}

// Dispatcher is the gateway's http.Handler. It resolves the route, runs the
// middleware chain and the route handler, and renders returned errors.
// The default headers are merged into every response it produces.
type Dispatcher struct {
	router     *router.Router
	headers    http.Header
	logger     observability.Logger
	errorPage  *ErrorPage
	middleware []Middleware
	chain      http.Handler
}

// DispatcherOption is a functional option for configuring the dispatcher.
type DispatcherOption func(*Dispatcher)

// WithLogger sets the logger for the dispatcher.
func WithLogger(logger observability.Logger) DispatcherOption {
	return func(d *Dispatcher) {
		d.logger = logger
	}
}

// WithMiddleware appends middleware. The first one is the outermost.
func WithMiddleware(mw ...Middleware) DispatcherOption {
	return func(d *Dispatcher) {
		d.middleware = append(d.middleware, mw...)
	}
}

// WithErrorPage sets the error page renderer.
func WithErrorPage(page *ErrorPage) DispatcherOption {
	return func(d *Dispatcher) {
		d.errorPage = page
	}
}

// NewDispatcher creates a dispatcher over r and seals it.
func NewDispatcher(r *router.Router, headers http.Header, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		router:  r,
		headers: headers.Clone(),
		logger:  observability.NopLogger(),
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.errorPage == nil {
		d.errorPage = NewErrorPage("Nothing here")
	}

	r.Seal()

	var h http.Handler = http.HandlerFunc(d.serveRoute)
	for i := len(d.middleware) - 1; i >= 0; i-- {
		h = d.middleware[i](h)
	}
	d.chain = h

	return d
}

// ServeHTTP implements http.Handler.
func (d *Dispatcher) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	hw := &headerWriter{ResponseWriter: w, defaults: d.headers}

	m, err := d.router.Resolve(r.Method, r.URL.Path)
	label := unmatchedRoute
	if m != nil {
		label = m.Route.Pattern.String()
	}

	ctx := util.ContextWithRoute(r.Context(), label)
	ctx = context.WithValue(ctx, matchKey{}, resolution{match: m, err: err})

	d.chain.ServeHTTP(hw, r.WithContext(ctx))

	// net/http sends an implicit 200 for handlers that wrote nothing
	hw.merge()
}

// serveRoute runs the matched handler at the end of the chain.
func (d *Dispatcher) serveRoute(w http.ResponseWriter, r *http.Request) {
	res, _ := r.Context().Value(matchKey{}).(resolution)

	err := res.err
	if err == nil && res.match == nil {
		err = util.NewRouteNotFoundError(r.Method, r.URL.Path)
	}

	tw := &trackingWriter{ResponseWriter: w}
	if err == nil {
		err = res.match.Route.Handler(tw, r, res.match.Params)
	}
	if err == nil {
		return
	}

	if errors.Is(err, proxy.ErrClientCanceled) || errors.Is(r.Context().Err(), context.Canceled) {
		d.logger.WithContext(r.Context()).Debug("client went away",
			observability.String("path", r.URL.Path),
			observability.Error(err),
		)
		return
	}

	if tw.written {
		d.logger.WithContext(r.Context()).Warn("handler failed after response started",
			observability.String("path", r.URL.Path),
			observability.Error(err),
		)
		return
	}

	status := d.errorPage.Render(tw, r, err)
	d.logError(r, status, err)
}

// Render writes the error page for err. It is exposed for middleware that
// needs to answer before a handler runs.
func (d *Dispatcher) Render(w http.ResponseWriter, r *http.Request, err error) {
	status := d.errorPage.Render(w, r, err)
	d.logError(r, status, err)
}

func (d *Dispatcher) logError(r *http.Request, status int, err error) {
	logger := d.logger.WithContext(r.Context())
	fields := []observability.Field{
		observability.String("method", r.Method),
		observability.String("path", r.URL.Path),
		observability.Int("status", status),
		observability.Error(err),
	}

	switch {
	case errors.Is(err, util.ErrNotFound):
		logger.Debug("route not found", fields...)
	case status >= http.StatusInternalServerError && status != http.StatusInternalServerError:
		logger.Warn("upstream request failed", fields...)
	case status >= http.StatusInternalServerError:
		logger.Error("request failed", fields...)
	default:
		logger.Debug("request failed", fields...)
	}
}

// NotFound returns the catch-all handler.
func NotFound() router.HandlerFunc {
	return func(_ http.ResponseWriter, r *http.Request, _ router.Params) error {
		return util.NewRouteNotFoundError(r.Method, r.URL.Path)
	}
}

// trackingWriter records whether the response has started.
type trackingWriter struct {
	http.ResponseWriter
	written bool
}

// WriteHeader records that the response started.
func (w *trackingWriter) WriteHeader(code int) {
	if code >= 200 {
		w.written = true
	}
	w.ResponseWriter.WriteHeader(code)
}

// Write records that the response started.
func (w *trackingWriter) Write(b []byte) (int, error) {
	w.written = true
	return w.ResponseWriter.Write(b)
}

// Flush implements http.Flusher interface for streaming support.
func (w *trackingWriter) Flush() {
	w.written = true
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Unwrap exposes the underlying writer to http.ResponseController.
func (w *trackingWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}
