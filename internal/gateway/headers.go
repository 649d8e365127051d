package gateway

import (
	"net/http"
	"strconv"
)

// ContentSecurityPolicy is sent with every response.
const ContentSecurityPolicy = "default-src 'none'; font-src 'self'; script-src 'self' blob:; " +
	"manifest-src 'self'; media-src 'self' data: blob: about:; style-src 'self' 'unsafe-inline'; " +
	"base-uri 'none'; img-src 'self' data:; form-action 'self'; frame-ancestors 'none'; " +
	"connect-src 'self'; worker-src blob:;"

// DefaultHeaders returns the headers merged into every response. A
// negative hstsMaxAge omits Strict-Transport-Security.
func DefaultHeaders(hstsMaxAge int) http.Header {
	h := http.Header{}
	h.Set("Referrer-Policy", "no-referrer")
	h.Set("X-Content-Type-Options", "nosniff")
	h.Set("X-Frame-Options", "DENY")
	h.Set("Content-Security-Policy", ContentSecurityPolicy)
	if hstsMaxAge >= 0 {
		h.Set("Strict-Transport-Security", "max-age="+strconv.Itoa(hstsMaxAge))
	}
	return h
}

// headerWriter merges the default headers into the response exactly once,
// right before the status line is written.
type headerWriter struct {
	http.ResponseWriter
	defaults http.Header
	merged   bool
}

func (w *headerWriter) merge() {
	if w.merged {
		return
	}
	w.merged = true
	h := w.ResponseWriter.Header()
	for k, v := range w.defaults {
		h[k] = v
	}
}

// WriteHeader merges the default headers and writes the status.
func (w *headerWriter) WriteHeader(code int) {
	// 1xx responses do not finalize the header
	if code >= 200 {
		w.merge()
	}
	w.ResponseWriter.WriteHeader(code)
}

// Write merges the default headers before the implicit 200.
func (w *headerWriter) Write(b []byte) (int, error) {
	w.merge()
	return w.ResponseWriter.Write(b)
}

// Flush implements http.Flusher interface for streaming support.
func (w *headerWriter) Flush() {
	w.merge()
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Unwrap exposes the underlying writer to http.ResponseController.
func (w *headerWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}
