package health

import (
	"encoding/json"
	"net/http"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/vyrodovalexey/frontgw/internal/observability"
)

// Status represents the health status.
type Status string

const (
	// StatusHealthy indicates the service is healthy.
	StatusHealthy Status = "healthy"
	// StatusUnhealthy indicates the service is unhealthy.
	StatusUnhealthy Status = "unhealthy"
	// StatusDegraded indicates the service is degraded but operational.
	StatusDegraded Status = "degraded"
	// StatusDraining indicates the service is shutting down.
	StatusDraining Status = "draining"
)

// Probe paths served on the ops listener.
const (
	PathHealth = "/health"
	PathReady  = "/ready"
	PathLive   = "/live"
)

// HealthResponse represents the health check response.
type HealthResponse struct {
	Status    Status    `json:"status"`
	Version   string    `json:"version,omitempty"`
	Uptime    string    `json:"uptime,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// ReadinessResponse represents the readiness check response.
type ReadinessResponse struct {
	Status    Status           `json:"status"`
	Checks    map[string]Check `json:"checks,omitempty"`
	Timestamp time.Time        `json:"timestamp"`
}

// Check represents an individual health check result.
type Check struct {
	Status  Status `json:"status"`
	Message string `json:"message,omitempty"`
}

// CheckFunc is a function that performs a health check.
type CheckFunc func() Check

// Checker provides health and readiness checking functionality.
type Checker struct {
	version   string
	startTime time.Time
	logger    observability.Logger
	draining  atomic.Bool

	mu     sync.RWMutex
	checks map[string]CheckFunc
}

// NewChecker creates a new health checker.
func NewChecker(version string, logger observability.Logger) *Checker {
	if logger == nil {
		logger = observability.NopLogger()
	}
	return &Checker{
		version:   version,
		startTime: time.Now(),
		logger:    logger,
		checks:    make(map[string]CheckFunc),
	}
}

// RegisterCheck registers a readiness check.
func (c *Checker) RegisterCheck(name string, check CheckFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.checks[name] = check
}

// UnregisterCheck removes a readiness check.
func (c *Checker) UnregisterCheck(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.checks, name)
}

// SetDraining marks the service as shutting down. Readiness fails while
// draining; liveness is unaffected.
func (c *Checker) SetDraining(draining bool) {
	if c.draining.Swap(draining) != draining {
		c.logger.Info("health draining state changed", observability.Bool("draining", draining))
	}
}

// IsDraining reports whether SetDraining(true) is in effect.
func (c *Checker) IsDraining() bool {
	return c.draining.Load()
}

// Health returns the health status.
func (c *Checker) Health() HealthResponse {
	status := StatusHealthy
	if c.IsDraining() {
		status = StatusDraining
	}
	return HealthResponse{
		Status:    status,
		Version:   c.version,
		Uptime:    time.Since(c.startTime).Round(time.Second).String(),
		Timestamp: time.Now(),
	}
}

// Readiness runs every registered check. The worst check status wins.
func (c *Checker) Readiness() ReadinessResponse {
	c.mu.RLock()
	names := make([]string, 0, len(c.checks))
	for name := range c.checks {
		names = append(names, name)
	}
	checks := make(map[string]CheckFunc, len(c.checks))
	for name, fn := range c.checks {
		checks[name] = fn
	}
	c.mu.RUnlock()
	sort.Strings(names)

	response := ReadinessResponse{
		Status:    StatusHealthy,
		Checks:    make(map[string]Check, len(names)),
		Timestamp: time.Now(),
	}

	m := getHealthMetrics()
	for _, name := range names {
		check := checks[name]()
		response.Checks[name] = check

		healthy := 1.0
		switch check.Status {
		case StatusUnhealthy:
			response.Status = StatusUnhealthy
			healthy = 0
		case StatusDegraded:
			if response.Status != StatusUnhealthy {
				response.Status = StatusDegraded
			}
		}
		m.checkStatus.WithLabelValues(name).Set(healthy)
	}

	if c.IsDraining() {
		response.Status = StatusDraining
	}

	return response
}

// HealthHandler returns an HTTP handler for the health endpoint.
func (c *Checker) HealthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		getHealthMetrics().checksTotal.WithLabelValues("health").Inc()
		response := c.Health()

		statusCode := http.StatusOK
		if response.Status == StatusDraining {
			statusCode = http.StatusServiceUnavailable
		}
		c.writeJSON(w, statusCode, response)
	}
}

// ReadinessHandler returns an HTTP handler for the readiness endpoint.
func (c *Checker) ReadinessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		getHealthMetrics().checksTotal.WithLabelValues("readiness").Inc()
		response := c.Readiness()

		statusCode := http.StatusOK
		if response.Status == StatusUnhealthy || response.Status == StatusDraining {
			statusCode = http.StatusServiceUnavailable
		}
		c.writeJSON(w, statusCode, response)
	}
}

// LivenessHandler returns an HTTP handler for the liveness endpoint.
func (c *Checker) LivenessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		getHealthMetrics().checksTotal.WithLabelValues("liveness").Inc()
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	}
}

// RegisterRoutes mounts the probe endpoints on mux.
func (c *Checker) RegisterRoutes(mux *http.ServeMux) {
	mux.Handle("GET "+PathHealth, c.HealthHandler())
	mux.Handle("GET "+PathReady, c.ReadinessHandler())
	mux.Handle("GET "+PathLive, c.LivenessHandler())
}

func (c *Checker) writeJSON(w http.ResponseWriter, status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		c.logger.Error("failed to encode health response", observability.Error(err))
		http.Error(w, "failed to encode response", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

// ReadyFunc adapts a boolean probe into a check. message is reported when
// ready returns false.
func ReadyFunc(ready func() bool, message string) CheckFunc {
	return func() Check {
		if ready() {
			return Check{Status: StatusHealthy}
		}
		return Check{Status: StatusUnhealthy, Message: message}
	}
}
