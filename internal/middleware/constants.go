package middleware

// HTTP header constants.
const (
	// HeaderContentType is the Content-Type header name.
	HeaderContentType = "Content-Type"

	// HeaderRetryAfter is the Retry-After header name.
	HeaderRetryAfter = "Retry-After"

	// HeaderXRequestID is the X-Request-ID header name.
	HeaderXRequestID = "X-Request-ID"
)

// Plain-text bodies for responses written without a renderer.
const (
	// BodyRateLimitExceeded is written with 429 responses.
	BodyRateLimitExceeded = "Too many requests\n"

	// BodyInternalServerError is written when no error renderer is set.
	BodyInternalServerError = "Internal server error\n"

	contentTypeTextPlain = "text/plain; charset=utf-8"
)
