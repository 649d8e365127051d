package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/vyrodovalexey/frontgw/internal/observability"
	"github.com/vyrodovalexey/frontgw/internal/util"
)

func TestLogging(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		status    int
		wantLevel zapcore.Level
	}{
		{name: "success", status: http.StatusOK, wantLevel: zapcore.InfoLevel},
		{name: "not found", status: http.StatusNotFound, wantLevel: zapcore.InfoLevel},
		{name: "bad gateway", status: http.StatusBadGateway, wantLevel: zapcore.WarnLevel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			core, logs := observer.New(zapcore.DebugLevel)
			logger := observability.NewZapLogger(zap.New(core))

			h := Logging(logger)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte("hello"))
			}))

			req := httptest.NewRequest(http.MethodGet, "/vid/abc/720?x=1", nil)
			req.RemoteAddr = "192.0.2.1:4321"
			req = req.WithContext(util.ContextWithRoute(req.Context(), "/vid/:id/:size"))
			h.ServeHTTP(httptest.NewRecorder(), req)

			entries := logs.FilterMessage("http request").All()
			require.Len(t, entries, 1)
			assert.Equal(t, tt.wantLevel, entries[0].Level)

			fields := entries[0].ContextMap()
			assert.Equal(t, "/vid/abc/720", fields["path"])
			assert.Equal(t, "x=1", fields["query"])
			assert.Equal(t, "/vid/:id/:size", fields["route"])
			assert.Equal(t, int64(tt.status), fields["status"])
			assert.Equal(t, int64(5), fields["size"])
			assert.Equal(t, "192.0.2.1", fields["client_ip"])
		})
	}
}

func TestResponseWriter_Unwrap(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	rw := &responseWriter{ResponseWriter: rec, status: http.StatusOK}

	assert.Same(t, rec, rw.Unwrap())
	rw.Flush()
	assert.True(t, rec.Flushed)
}
