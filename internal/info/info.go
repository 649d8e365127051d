package info

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html/template"
	"net/http"
	"runtime"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/vyrodovalexey/frontgw/internal/config"
	"github.com/vyrodovalexey/frontgw/internal/router"
	"github.com/vyrodovalexey/frontgw/internal/util"
)

// Route patterns for the info page.
const (
	PathInfo          = "/info"
	PathInfoExtension = "/info.:extension"
)

// Format is an output format of the info page.
type Format string

// Supported formats.
const (
	FormatHTML Format = "html"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
	FormatText Format = "txt"
)

var contentTypes = map[Format]string{
	FormatHTML: "text/html; charset=utf-8",
	FormatJSON: "application/json",
	FormatYAML: "application/yaml",
	FormatText: "text/plain; charset=utf-8",
}

// ParseFormat maps a file extension to a format. An empty extension is
// html and yml is accepted for yaml.
func ParseFormat(ext string) (Format, bool) {
	switch strings.ToLower(ext) {
	case "", "html":
		return FormatHTML, true
	case "json":
		return FormatJSON, true
	case "yaml", "yml":
		return FormatYAML, true
	case "txt":
		return FormatText, true
	default:
		return "", false
	}
}

// Setting is one reported configuration value.
type Setting struct {
	Name  string `json:"name" yaml:"name"`
	Value string `json:"value" yaml:"value"`
}

// Info describes the running instance.
type Info struct {
	Version    string    `json:"version" yaml:"version"`
	Commit     string    `json:"commit" yaml:"commit"`
	BuildTime  string    `json:"build_time" yaml:"build_time"`
	GoVersion  string    `json:"go_version" yaml:"go_version"`
	DeployDate string    `json:"deploy_date" yaml:"deploy_date"`
	DeployUnix int64     `json:"deploy_unix_ts" yaml:"deploy_unix_ts"`
	Settings   []Setting `json:"settings" yaml:"settings"`
}

// BuildInfo carries the values stamped in at link time.
type BuildInfo struct {
	Version   string
	Commit    string
	BuildTime string
}

// New captures the instance info. deployedAt is the process start time.
func New(build BuildInfo, cfg *config.Config, deployedAt time.Time) *Info {
	return &Info{
		Version:    build.Version,
		Commit:     build.Commit,
		BuildTime:  build.BuildTime,
		GoVersion:  runtime.Version(),
		DeployDate: deployedAt.UTC().Format(time.RFC1123),
		DeployUnix: deployedAt.Unix(),
		Settings:   settingsFrom(cfg),
	}
}

// settingsFrom lists the public, non-secret configuration.
func settingsFrom(cfg *config.Config) []Setting {
	if cfg == nil {
		return nil
	}
	hsts := "disabled"
	if age, ok := cfg.Server.HSTS(); ok {
		hsts = strconv.Itoa(age)
	}
	return []Setting{
		{Name: "hsts_max_age", Value: hsts},
		{Name: "robots_disable_indexing", Value: strconv.FormatBool(cfg.Server.RobotsDisableIndexing)},
		{Name: "ipv4_only", Value: strconv.FormatBool(cfg.Server.IPv4Only)},
		{Name: "ipv6_only", Value: strconv.FormatBool(cfg.Server.IPv6Only)},
		{Name: "oauth_enabled", Value: strconv.FormatBool(cfg.OAuth.Enabled)},
		{Name: "rate_limit_enabled", Value: strconv.FormatBool(cfg.RateLimit.Enabled)},
		{Name: "feeds_ttl", Value: cfg.Feeds.TTL.Duration().String()},
	}
}

// Render encodes the info in format.
func (i *Info) Render(format Format) ([]byte, error) {
	switch format {
	case FormatHTML:
		var buf bytes.Buffer
		if err := pageTemplate.Execute(&buf, i); err != nil {
			return nil, fmt.Errorf("failed to render info page: %w", err)
		}
		return buf.Bytes(), nil
	case FormatJSON:
		return json.Marshal(i)
	case FormatYAML:
		return yaml.Marshal(i)
	case FormatText:
		return i.text(), nil
	default:
		return nil, fmt.Errorf("unsupported info format %q", format)
	}
}

func (i *Info) text() []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "Version: %s\n", i.Version)
	fmt.Fprintf(&b, "Commit: %s\n", i.Commit)
	fmt.Fprintf(&b, "Build time: %s\n", i.BuildTime)
	fmt.Fprintf(&b, "Go version: %s\n", i.GoVersion)
	fmt.Fprintf(&b, "Deploy date: %s\n", i.DeployDate)
	fmt.Fprintf(&b, "Deploy timestamp: %d\n", i.DeployUnix)
	if len(i.Settings) > 0 {
		b.WriteString("Settings:\n")
		for _, s := range i.Settings {
			fmt.Fprintf(&b, "  %s: %s\n", s.Name, s.Value)
		}
	}
	return []byte(b.String())
}

// Handler serves the info page. Rendered bodies are computed once per
// format. An unknown extension resolves as not found.
func (i *Info) Handler() (router.HandlerFunc, error) {
	rendered := make(map[Format][]byte, len(contentTypes))
	for format := range contentTypes {
		body, err := i.Render(format)
		if err != nil {
			return nil, err
		}
		rendered[format] = body
	}

	return func(w http.ResponseWriter, r *http.Request, p router.Params) error {
		format, ok := ParseFormat(p.Get("extension"))
		if !ok {
			return util.NewRouteNotFoundError(r.Method, r.URL.Path)
		}
		body := rendered[format]

		w.Header().Set("Content-Type", contentTypes[format])
		w.Header().Set("Content-Length", strconv.Itoa(len(body)))
		w.WriteHeader(http.StatusOK)
		_, err := w.Write(body)
		return err
	}, nil
}

// Mount registers /info and /info.:extension.
func (i *Info) Mount(reg router.Registrar) error {
	h, err := i.Handler()
	if err != nil {
		return err
	}
	for _, pattern := range []string{PathInfo, PathInfoExtension} {
		if _, err := reg.Register(http.MethodGet, pattern, h); err != nil {
			return fmt.Errorf("failed to register %s: %w", pattern, err)
		}
	}
	return nil
}

var pageTemplate = template.Must(template.New("info").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>Instance information</title>
<link rel="stylesheet" href="/style.css">
</head>
<body>
<main id="info">
<h1>Instance information</h1>
<table>
<tr><th>Version</th><td>{{.Version}}</td></tr>
<tr><th>Commit</th><td>{{.Commit}}</td></tr>
<tr><th>Build time</th><td>{{.BuildTime}}</td></tr>
<tr><th>Go version</th><td>{{.GoVersion}}</td></tr>
<tr><th>Deploy date</th><td>{{.DeployDate}}</td></tr>
</table>
{{- if .Settings}}
<h2>Settings</h2>
<table>
{{- range .Settings}}
<tr><th>{{.Name}}</th><td>{{.Value}}</td></tr>
{{- end}}
</table>
{{- end}}
<p id="update-status"></p>
<script src="/check_update.js"></script>
</main>
</body>
</html>
`))
