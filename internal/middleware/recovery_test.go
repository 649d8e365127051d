package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/vyrodovalexey/frontgw/internal/observability"
)

func TestRecovery(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name           string
		handler        http.HandlerFunc
		expectedStatus int
		expectedBody   string
		shouldPanic    bool
	}{
		{
			name: "no panic",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write([]byte("ok"))
			},
			expectedStatus: http.StatusOK,
			expectedBody:   "ok",
		},
		{
			name: "panic with string",
			handler: func(http.ResponseWriter, *http.Request) {
				panic("test panic")
			},
			expectedStatus: http.StatusInternalServerError,
			expectedBody:   BodyInternalServerError,
			shouldPanic:    true,
		},
		{
			name: "panic with error",
			handler: func(http.ResponseWriter, *http.Request) {
				panic(assert.AnError)
			},
			expectedStatus: http.StatusInternalServerError,
			expectedBody:   BodyInternalServerError,
			shouldPanic:    true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			core, logs := observer.New(zapcore.DebugLevel)
			logger := observability.NewZapLogger(zap.New(core))

			h := Recovery(logger, nil)(tt.handler)
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/boom", nil))

			assert.Equal(t, tt.expectedStatus, rec.Code)
			assert.Equal(t, tt.expectedBody, rec.Body.String())
			if tt.shouldPanic {
				entries := logs.FilterMessage("panic recovered").All()
				require.Len(t, entries, 1)
				assert.Equal(t, "/boom", entries[0].ContextMap()["path"])
			} else {
				assert.Zero(t, logs.Len())
			}
		})
	}
}

func TestRecovery_UsesRenderer(t *testing.T) {
	t.Parallel()

	var got error
	render := func(w http.ResponseWriter, _ *http.Request, err error) {
		got = err
		w.WriteHeader(http.StatusTeapot)
	}

	h := Recovery(observability.NopLogger(), render)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("kaboom")
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusTeapot, rec.Code)
	require.Error(t, got)
	assert.True(t, errors.Is(got, ErrPanic))
	assert.Contains(t, got.Error(), "kaboom")
}

func TestRecovery_RepanicsAbortHandler(t *testing.T) {
	t.Parallel()

	h := Recovery(observability.NopLogger(), nil)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic(http.ErrAbortHandler)
	}))

	assert.PanicsWithValue(t, http.ErrAbortHandler, func() {
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	})
}

func TestRecovery_AbortsStartedResponse(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zapcore.DebugLevel)
	rendered := false
	render := func(http.ResponseWriter, *http.Request, error) { rendered = true }

	h := Recovery(observability.NewZapLogger(zap.New(core)), render)(
		http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte("MEDIA-BYTES|"))
			panic("stream broke")
		}),
	)
	rec := httptest.NewRecorder()

	assert.PanicsWithValue(t, http.ErrAbortHandler, func() {
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/vid/abc", nil))
	})
	assert.False(t, rendered)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "MEDIA-BYTES|", rec.Body.String())

	entries := logs.FilterMessage("panic recovered").All()
	require.Len(t, entries, 1)
	assert.Equal(t, true, entries[0].ContextMap()["response_started"])
}
