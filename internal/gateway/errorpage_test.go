package gateway

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/vyrodovalexey/frontgw/internal/auth/oauth"
	"github.com/vyrodovalexey/frontgw/internal/proxy"
	"github.com/vyrodovalexey/frontgw/internal/util"
)

func TestErrorPage_Classify(t *testing.T) {
	t.Parallel()

	page := NewErrorPage("Custom not found")

	tests := []struct {
		name        string
		err         error
		wantStatus  int
		wantMessage string
	}{
		{
			name:        "route not found",
			err:         util.NewRouteNotFoundError(http.MethodGet, "/x"),
			wantStatus:  http.StatusNotFound,
			wantMessage: "Custom not found",
		},
		{
			name:        "upstream not found",
			err:         &proxy.ProxyError{Op: "forward", Status: http.StatusNotFound, Kind: proxy.ErrUpstreamNotFound},
			wantStatus:  http.StatusNotFound,
			wantMessage: msgMediaNotFound,
		},
		{
			name:        "host not allowed",
			err:         fmt.Errorf("expand: %w", proxy.ErrHostNotAllowed),
			wantStatus:  http.StatusNotFound,
			wantMessage: msgMediaNotFound,
		},
		{
			name:        "timeout",
			err:         &proxy.ProxyError{Op: "forward", Kind: proxy.ErrUpstreamTimeout},
			wantStatus:  http.StatusGatewayTimeout,
			wantMessage: msgUpstreamSlow,
		},
		{
			name:        "token refresh",
			err:         fmt.Errorf("authorize: %w", oauth.ErrRefreshFailed),
			wantStatus:  http.StatusBadGateway,
			wantMessage: msgTokenFailed,
		},
		{
			name:        "circuit open",
			err:         &proxy.ProxyError{Op: "forward", Kind: proxy.ErrCircuitOpen},
			wantStatus:  http.StatusBadGateway,
			wantMessage: msgUpstreamBroken,
		},
		{
			name:        "unavailable",
			err:         &proxy.ProxyError{Op: "forward", Kind: proxy.ErrUpstreamUnavailable},
			wantStatus:  http.StatusBadGateway,
			wantMessage: msgUpstreamDown,
		},
		{
			name:        "unknown",
			err:         errors.New("mystery"),
			wantStatus:  http.StatusInternalServerError,
			wantMessage: msgInternal,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			status, message := page.Classify(tt.err)
			assert.Equal(t, tt.wantStatus, status)
			assert.Equal(t, tt.wantMessage, message)
		})
	}
}
