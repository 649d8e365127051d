package util

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestContextWithRequestID(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		requestID string
	}{
		{name: "valid request ID", requestID: "test-request-123"},
		{name: "empty request ID", requestID: ""},
		{name: "UUID format", requestID: "550e8400-e29b-41d4-a716-446655440000"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			ctx := ContextWithRequestID(context.Background(), tt.requestID)
			assert.Equal(t, tt.requestID, RequestIDFromContext(ctx))
		})
	}
}

func TestContextValues_NotSet(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	assert.Empty(t, RequestIDFromContext(ctx))
	assert.Empty(t, TraceIDFromContext(ctx))
	assert.Empty(t, SpanIDFromContext(ctx))
	assert.Empty(t, RouteFromContext(ctx))
}

func TestContextWithTraceAndSpan(t *testing.T) {
	t.Parallel()

	ctx := ContextWithTraceID(context.Background(), "4bf92f3577b34da6a3ce929d0e0e4736")
	ctx = ContextWithSpanID(ctx, "00f067aa0ba902b7")

	assert.Equal(t, "4bf92f3577b34da6a3ce929d0e0e4736", TraceIDFromContext(ctx))
	assert.Equal(t, "00f067aa0ba902b7", SpanIDFromContext(ctx))
}

func TestContextWithRoute(t *testing.T) {
	t.Parallel()

	ctx := ContextWithRoute(context.Background(), "/hls/:id/*path")
	assert.Equal(t, "/hls/:id/*path", RouteFromContext(ctx))
}
