package middleware

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/vyrodovalexey/frontgw/internal/util"
)

// maxRequestIDLength bounds inbound request IDs.
const maxRequestIDLength = 128

// RequestID returns a middleware that adds a request ID to each request.
func RequestID() func(http.Handler) http.Handler {
	return requestIDWithGenerator(func() string { return uuid.New().String() })
}

// requestIDWithGenerator returns a middleware that uses a custom ID generator.
func requestIDWithGenerator(generator func() string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestID := r.Header.Get(HeaderXRequestID)
			if requestID == "" || len(requestID) > maxRequestIDLength {
				requestID = generator()
			}

			ctx := util.ContextWithRequestID(r.Context(), requestID)
			r = r.WithContext(ctx)

			w.Header().Set(HeaderXRequestID, requestID)

			next.ServeHTTP(w, r)
		})
	}
}
