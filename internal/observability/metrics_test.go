package observability

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vyrodovalexey/frontgw/internal/util"
)

func TestNewMetrics(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		namespace string
	}{
		{name: "with custom namespace", namespace: "custom"},
		{name: "with empty namespace uses default", namespace: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			metrics := NewMetrics(tt.namespace)

			assert.NotNil(t, metrics.requestsTotal)
			assert.NotNil(t, metrics.requestDuration)
			assert.NotNil(t, metrics.responseSize)
			assert.NotNil(t, metrics.activeRequests)
			assert.NotNil(t, metrics.Registry())
		})
	}
}

func TestMetrics_RecordRequest(t *testing.T) {
	t.Parallel()

	metrics := NewMetrics("test")
	metrics.RecordRequest(http.MethodGet, "/vid/:id/:size", 200, 15*time.Millisecond, 2048)
	metrics.RecordRequest(http.MethodGet, "/vid/:id/:size", 200, 5*time.Millisecond, 10)

	assert.InDelta(t, 2, testutil.ToFloat64(metrics.requestsTotal.WithLabelValues("GET", "/vid/:id/:size", "200")), 0)
}

func TestMetrics_RecordRateLimitHit(t *testing.T) {
	t.Parallel()

	metrics := NewMetrics("test")
	metrics.RecordRateLimitHit("/img/*path")

	assert.InDelta(t, 1, testutil.ToFloat64(metrics.rateLimitHits.WithLabelValues("/img/*path")), 0)
}

func TestMetrics_Handler(t *testing.T) {
	t.Parallel()

	metrics := NewMetrics("test")
	metrics.SetBuildInfo("1.0.0", "abc123", "2024-01-01")

	rec := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(body), "test_build_info"))
	assert.True(t, strings.Contains(string(body), "test_start_time_seconds"))
}

func TestMetricsMiddleware_UsesRoutePattern(t *testing.T) {
	t.Parallel()

	metrics := NewMetrics("test")
	handler := MetricsMiddleware(metrics)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte("Nothing here"))
	}))

	req := httptest.NewRequest(http.MethodGet, "/emoji/1/smile", nil)
	req = req.WithContext(util.ContextWithRoute(req.Context(), "/emoji/:id/:name"))
	handler.ServeHTTP(httptest.NewRecorder(), req)

	assert.InDelta(t, 1,
		testutil.ToFloat64(metrics.requestsTotal.WithLabelValues("GET", "/emoji/:id/:name", "404")), 0)
	assert.InDelta(t, 0, testutil.ToFloat64(metrics.activeRequests), 0)
}

func TestMetricsMiddleware_Unmatched(t *testing.T) {
	t.Parallel()

	metrics := NewMetrics("test")
	handler := MetricsMiddleware(metrics)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("ok"))
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/x", nil))

	assert.InDelta(t, 1,
		testutil.ToFloat64(metrics.requestsTotal.WithLabelValues("GET", unmatchedRoute, "200")), 0)
}

func TestMetricsResponseWriter(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	rw := &metricsResponseWriter{ResponseWriter: rec, status: http.StatusOK}

	rw.WriteHeader(http.StatusPartialContent)
	rw.WriteHeader(http.StatusInternalServerError)
	_, _ = rw.Write([]byte("hello"))
	_, _ = rw.Write([]byte(" world"))
	rw.Flush()

	assert.Equal(t, http.StatusPartialContent, rw.status)
	assert.Equal(t, 11, rw.size)
	assert.Same(t, rec, rw.Unwrap())
}
