package middleware

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"runtime/debug"

	"github.com/vyrodovalexey/frontgw/internal/observability"
)

// ErrPanic wraps values recovered from handler panics.
var ErrPanic = errors.New("handler panicked")

// ErrorRenderer writes an error response.
type ErrorRenderer func(w http.ResponseWriter, r *http.Request, err error)

// startedWriter records whether the response status line has been written.
type startedWriter struct {
	http.ResponseWriter
	started bool
}

func (w *startedWriter) WriteHeader(code int) {
	if code >= 200 {
		w.started = true
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *startedWriter) Write(b []byte) (int, error) {
	w.started = true
	return w.ResponseWriter.Write(b)
}

// Flush implements http.Flusher interface for streaming support.
func (w *startedWriter) Flush() {
	w.started = true
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Unwrap exposes the underlying writer to http.ResponseController.
func (w *startedWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}

// Recovery returns a middleware that recovers from panics. The response is
// written by render, or as plain text when render is nil. Panics with
// http.ErrAbortHandler are passed through so the server aborts the
// connection. A panic after the response has started also aborts the
// connection.
func Recovery(logger observability.Logger, render ErrorRenderer) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sw := &startedWriter{ResponseWriter: w}
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				//nolint:errorlint // recovered values are compared by identity
				if rec == http.ErrAbortHandler {
					panic(rec)
				}

				logger.WithContext(r.Context()).Error("panic recovered",
					observability.String("path", r.URL.Path),
					observability.String("method", r.Method),
					observability.Any("error", rec),
					observability.String("stack", string(debug.Stack())),
					observability.Bool("response_started", sw.started),
				)

				getMiddlewareMetrics().panicsRecovered.Inc()

				if sw.started {
					panic(http.ErrAbortHandler)
				}

				err := fmt.Errorf("%w: %v", ErrPanic, rec)
				if render != nil {
					render(w, r, err)
					return
				}
				w.Header().Set(HeaderContentType, contentTypeTextPlain)
				w.WriteHeader(http.StatusInternalServerError)
				_, _ = io.WriteString(w, BodyInternalServerError)
			}()

			next.ServeHTTP(sw, r)
		})
	}
}
