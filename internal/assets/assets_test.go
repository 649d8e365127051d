package assets

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vyrodovalexey/frontgw/internal/router"
)

func TestLoad_EmbeddedBundle(t *testing.T) {
	t.Parallel()

	b, err := Load()
	require.NoError(t, err)

	for _, spec := range Specs {
		a, ok := b.Get(spec.Route)
		require.True(t, ok, spec.Route)
		assert.NotEmpty(t, a.Body, spec.Route)
		assert.Equal(t, spec.ContentType, a.ContentType)
	}

	style, ok := b.Get(StylePath)
	require.True(t, ok)
	assert.True(t, style.Cached)
	assert.Contains(t, string(style.Body), ".dracula")
	assert.Contains(t, string(style.Body), ".light")
	assert.Len(t, b.Assets(), len(Specs)+1)
}

func TestLoadFS_StyleConcatenatesThemesInOrder(t *testing.T) {
	t.Parallel()

	fsys := fstest.MapFS{
		"style.css":       {Data: []byte("base")},
		"themes/zeta.css": {Data: []byte("zeta")},
		"themes/alfa.css": {Data: []byte("alfa")},
	}

	b, err := LoadFS(fsys, nil)
	require.NoError(t, err)

	style, ok := b.Get(StylePath)
	require.True(t, ok)
	assert.Equal(t, "base\nalfa\nzeta", string(style.Body))
}

func TestLoadFS_Errors(t *testing.T) {
	t.Parallel()

	invalid := []byte{'o', 'k', 0xff, 0xfe}

	tests := []struct {
		name     string
		fsys     fstest.MapFS
		specs    []Spec
		wantName string
	}{
		{
			name:     "missing style",
			fsys:     fstest.MapFS{},
			wantName: "style.css",
		},
		{
			name: "invalid theme",
			fsys: fstest.MapFS{
				"style.css":      {Data: []byte("base")},
				"themes/bad.css": {Data: invalid},
			},
			wantName: "themes/bad.css",
		},
		{
			name: "invalid text asset",
			fsys: fstest.MapFS{
				"style.css": {Data: []byte("base")},
				"copy.js":   {Data: invalid},
			},
			specs:    []Spec{{Route: "/copy.js", File: "copy.js", ContentType: "text/javascript", Text: true}},
			wantName: "copy.js",
		},
		{
			name:     "missing binary asset",
			fsys:     fstest.MapFS{"style.css": {Data: []byte("base")}},
			specs:    []Spec{{Route: "/logo.png", File: "logo.png", ContentType: "image/png"}},
			wantName: "logo.png",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := LoadFS(tt.fsys, tt.specs)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrAssetDecode)

			var decodeErr *DecodeError
			require.True(t, errors.As(err, &decodeErr))
			assert.Equal(t, tt.wantName, decodeErr.Name)
			assert.Contains(t, err.Error(), tt.wantName)
		})
	}
}

func TestLoadFS_BinaryAssetsSkipValidation(t *testing.T) {
	t.Parallel()

	fsys := fstest.MapFS{
		"style.css": {Data: []byte("base")},
		"logo.png":  {Data: []byte{0x89, 'P', 'N', 'G', 0xff}},
	}

	b, err := LoadFS(fsys, []Spec{{Route: "/logo.png", File: "logo.png", ContentType: "image/png"}})
	require.NoError(t, err)

	a, ok := b.Get("/logo.png")
	require.True(t, ok)
	assert.Len(t, a.Body, 5)
}

func TestAsset_ServeHTTP(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		asset     *Asset
		method    string
		wantCache string
		wantBody  string
	}{
		{
			name:      "cached",
			asset:     &Asset{ContentType: "font/woff2", Cached: true, Body: []byte("font")},
			method:    http.MethodGet,
			wantCache: CacheControl,
			wantBody:  "font",
		},
		{
			name:     "uncached",
			asset:    &Asset{ContentType: "text/javascript", Body: []byte("js")},
			method:   http.MethodGet,
			wantBody: "js",
		},
		{
			name:      "head",
			asset:     &Asset{ContentType: "text/css", Cached: true, Body: []byte("css")},
			method:    http.MethodHead,
			wantCache: CacheControl,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			rec := httptest.NewRecorder()
			err := tt.asset.Handler()(rec, httptest.NewRequest(tt.method, "/", nil), nil)
			require.NoError(t, err)

			assert.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, tt.asset.ContentType, rec.Header().Get("Content-Type"))
			assert.Equal(t, tt.wantCache, rec.Header().Get("Cache-Control"))
			assert.Equal(t, tt.wantBody, rec.Body.String())
		})
	}
}

func TestBundle_Mount(t *testing.T) {
	t.Parallel()

	b, err := Load()
	require.NoError(t, err)

	r := router.New()
	require.NoError(t, b.Mount(r))
	require.NoError(t, MountRobots(r, false))

	m, err := r.Resolve(http.MethodGet, "/touch-icon-iphone.png")
	require.NoError(t, err)
	assert.Equal(t, "/touch-icon-iphone.png", m.Route.Pattern.String())

	_, err = r.Resolve(http.MethodGet, RobotsPath)
	require.NoError(t, err)

	r.Seal()
	err = b.Mount(r)
	require.Error(t, err)
	assert.ErrorIs(t, err, router.ErrRouterSealed)
	assert.Contains(t, err.Error(), StylePath)
}

func TestRobots(t *testing.T) {
	t.Parallel()

	open := Robots(false)
	assert.Equal(t, "User-agent: *\nDisallow: /u/\nDisallow: /user/", string(open.Body))
	assert.True(t, open.Cached)
	assert.Equal(t, "text/plain", open.ContentType)

	closed := Robots(true)
	assert.Equal(t, "User-agent: *\nDisallow: /", string(closed.Body))
	assert.True(t, strings.HasPrefix(string(closed.Body), "User-agent: *"))
}
