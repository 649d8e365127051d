package gateway

import (
	"context"
	"io"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewListener_ConflictingFamilies(t *testing.T) {
	t.Parallel()

	_, err := NewListener(ListenerConfig{IPv4Only: true, IPv6Only: true}, http.NotFoundHandler())
	assert.ErrorIs(t, err, ErrConflictingIPFamilies)
}

func TestListener_Address(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		cfg         ListenerConfig
		wantAddress string
		wantNetwork string
	}{
		{
			name:        "bracketed ipv6",
			cfg:         ListenerConfig{Address: "[::]", Port: 8080},
			wantAddress: "[::]:8080",
			wantNetwork: "tcp",
		},
		{
			name:        "plain ipv4",
			cfg:         ListenerConfig{Address: "127.0.0.1", Port: 9000},
			wantAddress: "127.0.0.1:9000",
			wantNetwork: "tcp",
		},
		{
			name:        "ipv4 only",
			cfg:         ListenerConfig{Address: "[::]", Port: 80, IPv4Only: true},
			wantAddress: "0.0.0.0:80",
			wantNetwork: "tcp4",
		},
		{
			name:        "ipv6 only",
			cfg:         ListenerConfig{Address: "127.0.0.1", Port: 80, IPv6Only: true},
			wantAddress: "[::]:80",
			wantNetwork: "tcp6",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			l, err := NewListener(tt.cfg, http.NotFoundHandler())
			require.NoError(t, err)
			assert.Equal(t, tt.wantAddress, l.Address())
			assert.Equal(t, tt.wantNetwork, l.Network())
		})
	}
}

func TestListener_StartServeStop(t *testing.T) {
	t.Parallel()

	handler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, "pong")
	})
	l, err := NewListener(ListenerConfig{Address: "127.0.0.1", Port: 0, ReadHeaderTimeout: time.Second}, handler)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	require.NoError(t, l.Start(ctx))
	assert.True(t, l.IsRunning())
	assert.ErrorIs(t, l.Start(ctx), ErrListenerRunning)

	resp, err := http.Get("http://" + l.Addr() + "/")
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	require.NoError(t, err)
	assert.Equal(t, "pong", string(body))

	require.NoError(t, l.Stop(ctx))
	<-l.Done()
	assert.False(t, l.IsRunning())
	require.NoError(t, l.Stop(ctx))
}

func TestListener_StartBindError(t *testing.T) {
	t.Parallel()

	occupied, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer occupied.Close()

	port := occupied.Addr().(*net.TCPAddr).Port
	l, err := NewListener(ListenerConfig{Address: "127.0.0.1", Port: port}, http.NotFoundHandler())
	require.NoError(t, err)

	err = l.Start(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to listen")
	assert.False(t, l.IsRunning())
}
