package main

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vyrodovalexey/frontgw/internal/assets"
	"github.com/vyrodovalexey/frontgw/internal/cache"
	"github.com/vyrodovalexey/frontgw/internal/config"
	"github.com/vyrodovalexey/frontgw/internal/info"
	"github.com/vyrodovalexey/frontgw/internal/observability"
	"github.com/vyrodovalexey/frontgw/internal/proxy"
	"github.com/vyrodovalexey/frontgw/internal/router"
)

var testStart = time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

func newTestRouter(t *testing.T) *router.Router {
	t.Helper()

	cfg := config.DefaultConfig()
	logger := observability.NopLogger()

	bundle, err := assets.Load()
	require.NoError(t, err)

	r := router.New()
	require.NoError(t, registerRoutes(r, routeDeps{
		bundle:    bundle,
		forwarder: newForwarder(cfg, nil, logger),
		feeds:     newFeeds(cfg, cache.NewMemoizer[[]byte](), logger),
		info:      info.New(info.BuildInfo{Version: "test"}, cfg, testStart),
		commits:   cfg.Feeds.CommitsURL,
		instances: cfg.Feeds.InstancesURL,
	}))
	r.Seal()
	return r
}

func TestRegisterRoutes_Resolution(t *testing.T) {
	t.Parallel()

	r := newTestRouter(t)

	tests := []struct {
		path        string
		wantPattern string
		wantParams  router.Params
	}{
		{path: "/style.css", wantPattern: "/style.css"},
		{path: "/touch-icon-iphone.png", wantPattern: "/touch-icon-iphone.png"},
		{path: "/robots.txt", wantPattern: "/robots.txt"},
		{path: "/commits.atom", wantPattern: "/commits.atom"},
		{path: "/instances.json", wantPattern: "/instances.json"},
		{
			path:        "/vid/abc123/720.mp4",
			wantPattern: "/vid/:id/:size",
			wantParams:  router.Params{"id": "abc123", "size": "720.mp4"},
		},
		{
			path:        "/hls/abc123/HLS_720.m3u8",
			wantPattern: "/hls/:id/*path",
			wantParams:  router.Params{"id": "abc123", "path": "HLS_720.m3u8"},
		},
		{
			path:        "/img/nested/dir/x.png",
			wantPattern: "/img/*path",
			wantParams:  router.Params{"path": "nested/dir/x.png"},
		},
		{
			path:        "/preview/pre/award_images/t5_22cerq/abc.png",
			wantPattern: "/preview/:loc/award_images/:fullname/:id",
			wantParams:  router.Params{"loc": "pre", "fullname": "t5_22cerq", "id": "abc.png"},
		},
		{
			path:        "/preview/external/abc.png",
			wantPattern: "/preview/:loc/:id",
			wantParams:  router.Params{"loc": "external", "id": "abc.png"},
		},
		{
			path:        "/emote/t5_2qh1i/kappa.gif",
			wantPattern: "/emote/:subreddit_id/:filename",
			wantParams:  router.Params{"subreddit_id": "t5_2qh1i", "filename": "kappa.gif"},
		},
		{path: "/info", wantPattern: "/info"},
		{path: "/info.yaml", wantPattern: "/info.:extension", wantParams: router.Params{"extension": "yaml"}},
		{path: "/img", wantPattern: "/*"},
		{path: "/r/golang/comments", wantPattern: "/*"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			t.Parallel()

			m, err := r.Resolve(http.MethodGet, tt.path)
			require.NoError(t, err)
			assert.Equal(t, tt.wantPattern, m.Route.Pattern.String())
			for k, v := range tt.wantParams {
				assert.Equal(t, v, m.Params.Get(k), k)
			}
		})
	}
}

func TestRegisterRoutes_MethodMismatchFallsBack(t *testing.T) {
	t.Parallel()

	r := newTestRouter(t)

	m, err := r.Resolve(http.MethodPost, "/style.css")
	require.NoError(t, err)
	assert.True(t, m.Fallback)
}

func TestMediaRoutes_TemplatesBind(t *testing.T) {
	t.Parallel()

	for _, m := range mediaRoutes {
		p, err := router.ParsePattern(m.pattern)
		require.NoError(t, err, m.pattern)

		tmpl, err := proxy.ParseTemplate(m.template, m.opts...)
		require.NoError(t, err, m.template)
		assert.NoError(t, tmpl.Bind(p.ParamNames()), m.pattern)
	}
}
