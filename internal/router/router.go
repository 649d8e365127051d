package router

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/vyrodovalexey/frontgw/internal/util"
)

// MethodAny registers a route that matches every HTTP method.
const MethodAny = "*"

// ErrRouterSealed is returned by Register once the router has been sealed.
var ErrRouterSealed = errors.New("router is sealed")

// Params holds the path parameters captured for one request. It is built
// fresh per request and is not mutated after Resolve returns.
type Params map[string]string

// Get returns the named parameter, or "" when absent.
func (p Params) Get(name string) string {
	return p[name]
}

// HandlerFunc handles a resolved request. A returned error is rendered by
// the dispatcher when the handler has not written a response yet.
type HandlerFunc func(w http.ResponseWriter, r *http.Request, p Params) error

// Registrar registers route handlers; *Router implements it.
type Registrar interface {
	Register(method, pattern string, handler HandlerFunc) (*Route, error)
}

// Route is a registered method, pattern and handler.
type Route struct {
	Method  string
	Pattern *Pattern
	Handler HandlerFunc
}

// matchesMethod reports whether the route accepts the method.
func (r *Route) matchesMethod(method string) bool {
	return r.Method == MethodAny || r.Method == method
}

// Match is the result of resolving a request.
type Match struct {
	Route  *Route
	Params Params
	// Fallback is set when no route matched and the catch-all was chosen.
	Fallback bool
}

// Router resolves method and path pairs against routes in registration
// order. The first structurally matching route wins.
type Router struct {
	mu       sync.RWMutex
	routes   []*Route
	fallback *Route
	sealed   atomic.Bool
}

// New creates an empty router.
func New() *Router {
	return &Router{
		routes: make([]*Route, 0),
	}
}

// Register adds a route. The first route whose pattern is exactly "/*"
// becomes the catch-all used for requests no other route matches,
// whatever their method.
func (r *Router) Register(method, pattern string, handler HandlerFunc) (*Route, error) {
	if handler == nil {
		return nil, fmt.Errorf("route %s %s: nil handler", method, pattern)
	}
	if method == "" {
		return nil, fmt.Errorf("route %s: empty method", pattern)
	}

	p, err := ParsePattern(pattern)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.sealed.Load() {
		return nil, fmt.Errorf("%w: cannot register %s %s", ErrRouterSealed, method, pattern)
	}

	route := &Route{
		Method:  strings.ToUpper(method),
		Pattern: p,
		Handler: handler,
	}
	r.routes = append(r.routes, route)
	if p.IsCatchAll() && r.fallback == nil {
		r.fallback = route
	}

	return route, nil
}

// Handle is Register for static route tables; it panics on error so that
// a broken table fails at startup.
func (r *Router) Handle(method, pattern string, handler HandlerFunc) *Route {
	route, err := r.Register(method, pattern, handler)
	if err != nil {
		panic(err)
	}
	return route
}

// Seal freezes the route table. Resolve is lock-free afterwards.
func (r *Router) Seal() {
	r.mu.Lock()
	r.sealed.Store(true)
	r.mu.Unlock()
}

// Sealed reports whether the table has been frozen.
func (r *Router) Sealed() bool {
	return r.sealed.Load()
}

// Routes returns the registered routes in registration order.
func (r *Router) Routes() []*Route {
	if !r.sealed.Load() {
		r.mu.RLock()
		defer r.mu.RUnlock()
	}
	out := make([]*Route, len(r.routes))
	copy(out, r.routes)
	return out
}

// Resolve finds the route for a request. When nothing matches, the
// catch-all is returned with Fallback set; without a catch-all the error
// is a *util.RouteNotFoundError.
func (r *Router) Resolve(method, path string) (*Match, error) {
	if !r.sealed.Load() {
		r.mu.RLock()
		defer r.mu.RUnlock()
	}

	segments := splitPath(path)

	for _, route := range r.routes {
		if route == r.fallback || !route.matchesMethod(method) {
			continue
		}
		if params, ok := route.Pattern.Match(segments); ok {
			recordResolution(resultMatched)
			return &Match{Route: route, Params: params}, nil
		}
	}

	if r.fallback != nil {
		recordResolution(resultFallback)
		return &Match{Route: r.fallback, Params: Params{}, Fallback: true}, nil
	}

	recordResolution(resultNotFound)
	return nil, util.NewRouteNotFoundError(method, path)
}
