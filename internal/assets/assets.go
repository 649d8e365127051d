package assets

import (
	"bytes"
	"embed"
	"fmt"
	"io/fs"
	"net/http"
	"sort"
	"strconv"

	"golang.org/x/text/encoding"
	"golang.org/x/text/transform"

	"github.com/vyrodovalexey/frontgw/internal/router"
)

// CacheControl is sent with assets that rarely change.
const CacheControl = "public, max-age=1209600, s-maxage=86400"

// StylePath is the route serving the stylesheet with every theme appended.
const StylePath = "/style.css"

//go:embed static
var staticFS embed.FS

// Spec describes one served asset.
type Spec struct {
	// Route is the request path.
	Route string
	// File is the path inside the bundle.
	File        string
	ContentType string
	Cached      bool
	// Text assets are validated as UTF-8 when the bundle loads.
	Text bool
}

// Specs lists the static routes served from the bundle.
var Specs = []Spec{
	{Route: "/manifest.json", File: "manifest.json", ContentType: "application/json", Text: true},
	{Route: "/favicon.ico", File: "favicon.ico", ContentType: "image/vnd.microsoft.icon", Cached: true},
	{Route: "/logo.png", File: "logo.png", ContentType: "image/png"},
	{Route: "/Inter.var.woff2", File: "Inter.var.woff2", ContentType: "font/woff2", Cached: true},
	{Route: "/touch-icon-iphone.png", File: "apple-touch-icon.png", ContentType: "image/png"},
	{Route: "/apple-touch-icon.png", File: "apple-touch-icon.png", ContentType: "image/png"},
	{
		Route: "/opensearch.xml", File: "opensearch.xml",
		ContentType: "application/opensearchdescription+xml", Cached: true, Text: true,
	},
	{Route: "/playHLSVideo.js", File: "playHLSVideo.js", ContentType: "text/javascript", Text: true},
	{Route: "/hls.min.js", File: "hls.min.js", ContentType: "text/javascript", Text: true},
	{Route: "/highlighted.js", File: "highlighted.js", ContentType: "text/javascript", Text: true},
	{Route: "/check_update.js", File: "check_update.js", ContentType: "text/javascript", Text: true},
	{Route: "/copy.js", File: "copy.js", ContentType: "text/javascript", Text: true},
}

// Asset is a loaded, validated asset.
type Asset struct {
	Route       string
	ContentType string
	Cached      bool
	Body        []byte
}

// ServeHTTP writes the asset.
func (a *Asset) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h := w.Header()
	h.Set("Content-Type", a.ContentType)
	h.Set("Content-Length", strconv.Itoa(len(a.Body)))
	if a.Cached {
		h.Set("Cache-Control", CacheControl)
	}
	w.WriteHeader(http.StatusOK)
	if r.Method != http.MethodHead {
		_, _ = w.Write(a.Body)
	}
}

// Handler adapts the asset to a route handler.
func (a *Asset) Handler() router.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request, _ router.Params) error {
		a.ServeHTTP(w, r)
		return nil
	}
}

// Bundle holds every asset in memory.
type Bundle struct {
	assets []*Asset
	byPath map[string]*Asset
}

// Load reads and validates the embedded bundle.
func Load() (*Bundle, error) {
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		return nil, fmt.Errorf("failed to open embedded assets: %w", err)
	}
	return LoadFS(sub, Specs)
}

// LoadFS reads specs from fsys, plus the stylesheet built from style.css
// and every file under themes/. Any unreadable or non UTF-8 text asset
// fails the load with a *DecodeError.
func LoadFS(fsys fs.FS, specs []Spec) (*Bundle, error) {
	b := &Bundle{byPath: make(map[string]*Asset, len(specs)+1)}

	style, err := buildStyle(fsys)
	if err != nil {
		return nil, err
	}
	b.add(&Asset{Route: StylePath, ContentType: "text/css", Cached: true, Body: style})

	for _, spec := range specs {
		body, err := readAsset(fsys, spec.File, spec.Text)
		if err != nil {
			return nil, err
		}
		b.add(&Asset{
			Route:       spec.Route,
			ContentType: spec.ContentType,
			Cached:      spec.Cached,
			Body:        body,
		})
	}

	return b, nil
}

func (b *Bundle) add(a *Asset) {
	b.assets = append(b.assets, a)
	b.byPath[a.Route] = a
}

// Get returns the asset served at route.
func (b *Bundle) Get(route string) (*Asset, bool) {
	a, ok := b.byPath[route]
	return a, ok
}

// Assets returns the assets in registration order.
func (b *Bundle) Assets() []*Asset {
	out := make([]*Asset, len(b.assets))
	copy(out, b.assets)
	return out
}

// Mount registers a GET route per asset.
func (b *Bundle) Mount(reg router.Registrar) error {
	for _, a := range b.assets {
		if _, err := reg.Register(http.MethodGet, a.Route, a.Handler()); err != nil {
			return fmt.Errorf("failed to register asset %s: %w", a.Route, err)
		}
	}
	return nil
}

// buildStyle appends each theme, in name order, to style.css.
func buildStyle(fsys fs.FS) ([]byte, error) {
	base, err := readAsset(fsys, "style.css", true)
	if err != nil {
		return nil, err
	}

	themes, err := fs.Glob(fsys, "themes/*.css")
	if err != nil {
		return nil, &DecodeError{Name: "themes", Cause: err}
	}
	sort.Strings(themes)

	var buf bytes.Buffer
	buf.Write(base)
	for _, name := range themes {
		theme, err := readAsset(fsys, name, true)
		if err != nil {
			return nil, err
		}
		buf.WriteByte('\n')
		buf.Write(theme)
	}
	return buf.Bytes(), nil
}

func readAsset(fsys fs.FS, name string, text bool) ([]byte, error) {
	data, err := fs.ReadFile(fsys, name)
	if err != nil {
		return nil, &DecodeError{Name: name, Cause: err}
	}
	if !text {
		return data, nil
	}
	if _, _, err := transform.Bytes(encoding.UTF8Validator, data); err != nil {
		return nil, &DecodeError{Name: name, Cause: err}
	}
	return data, nil
}
