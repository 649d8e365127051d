package health

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vyrodovalexey/frontgw/internal/observability"
)

func TestChecker_Health(t *testing.T) {
	t.Parallel()

	c := NewChecker("1.2.3", observability.NopLogger())

	resp := c.Health()
	assert.Equal(t, StatusHealthy, resp.Status)
	assert.Equal(t, "1.2.3", resp.Version)
	assert.NotEmpty(t, resp.Uptime)

	c.SetDraining(true)
	assert.Equal(t, StatusDraining, c.Health().Status)
}

func TestChecker_Readiness(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		checks     map[string]CheckFunc
		draining   bool
		wantStatus Status
		wantCode   int
	}{
		{
			name:       "no checks",
			wantStatus: StatusHealthy,
			wantCode:   http.StatusOK,
		},
		{
			name: "all healthy",
			checks: map[string]CheckFunc{
				"credential": ReadyFunc(func() bool { return true }, "no token"),
			},
			wantStatus: StatusHealthy,
			wantCode:   http.StatusOK,
		},
		{
			name: "degraded",
			checks: map[string]CheckFunc{
				"a": func() Check { return Check{Status: StatusHealthy} },
				"b": func() Check { return Check{Status: StatusDegraded} },
			},
			wantStatus: StatusDegraded,
			wantCode:   http.StatusOK,
		},
		{
			name: "unhealthy wins",
			checks: map[string]CheckFunc{
				"a":          func() Check { return Check{Status: StatusDegraded} },
				"credential": ReadyFunc(func() bool { return false }, "no token"),
			},
			wantStatus: StatusUnhealthy,
			wantCode:   http.StatusServiceUnavailable,
		},
		{
			name:       "draining",
			draining:   true,
			wantStatus: StatusDraining,
			wantCode:   http.StatusServiceUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			c := NewChecker("test", nil)
			for name, fn := range tt.checks {
				c.RegisterCheck(name, fn)
			}
			c.SetDraining(tt.draining)

			rec := httptest.NewRecorder()
			c.ReadinessHandler()(rec, httptest.NewRequest(http.MethodGet, PathReady, nil))

			assert.Equal(t, tt.wantCode, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

			var resp ReadinessResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Equal(t, tt.wantStatus, resp.Status)
			assert.Len(t, resp.Checks, len(tt.checks))
		})
	}
}

func TestChecker_UnregisterCheck(t *testing.T) {
	t.Parallel()

	c := NewChecker("test", nil)
	c.RegisterCheck("credential", ReadyFunc(func() bool { return false }, "no token"))
	assert.Equal(t, StatusUnhealthy, c.Readiness().Status)

	c.UnregisterCheck("credential")
	assert.Equal(t, StatusHealthy, c.Readiness().Status)
}

func TestChecker_Draining(t *testing.T) {
	t.Parallel()

	c := NewChecker("test", nil)
	assert.False(t, c.IsDraining())

	c.SetDraining(true)
	c.SetDraining(true)
	assert.True(t, c.IsDraining())

	rec := httptest.NewRecorder()
	c.HealthHandler()(rec, httptest.NewRequest(http.MethodGet, PathHealth, nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec = httptest.NewRecorder()
	c.LivenessHandler()(rec, httptest.NewRequest(http.MethodGet, PathLive, nil))
	assert.Equal(t, http.StatusOK, rec.Code, "liveness ignores draining")

	c.SetDraining(false)
	assert.False(t, c.IsDraining())
}

func TestChecker_RegisterRoutes(t *testing.T) {
	t.Parallel()

	c := NewChecker("9.9.9", nil)
	mux := http.NewServeMux()
	c.RegisterRoutes(mux)

	for _, path := range []string{PathHealth, PathReady, PathLive} {
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, rec.Code, path)
	}

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, PathLive, nil))
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}
