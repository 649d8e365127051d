package gateway

import (
	"bytes"
	"errors"
	"html/template"
	"net/http"

	"github.com/vyrodovalexey/frontgw/internal/auth/oauth"
	"github.com/vyrodovalexey/frontgw/internal/proxy"
	"github.com/vyrodovalexey/frontgw/internal/util"
)

const errorPageHTML = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>{{.Title}}</title>
<link rel="stylesheet" href="/style.css">
</head>
<body>
<main id="error">
<h1>{{.Message}}</h1>
{{- if .RequestID}}
<p class="request-id">Request ID: <code>{{.RequestID}}</code></p>
{{- end}}
<p><a href="/">Go home</a></p>
</main>
</body>
</html>
`

var errorPageTemplate = template.Must(template.New("error").Parse(errorPageHTML))

// Messages shown for upstream failures.
const (
	msgMediaNotFound  = "The requested media could not be found"
	msgUpstreamSlow   = "The upstream server took too long to respond"
	msgUpstreamDown   = "Could not reach the upstream server"
	msgUpstreamBroken = "The upstream server is temporarily unavailable"
	msgTokenFailed    = "Could not authenticate with the upstream server"
	msgInternal       = "Something went wrong"
)

type errorPageData struct {
	Title     string
	Message   string
	RequestID string
}

// ErrorPage renders handler errors as HTML pages.
type ErrorPage struct {
	notFound string
}

// NewErrorPage creates an ErrorPage that shows notFoundMessage for
// unmatched paths.
func NewErrorPage(notFoundMessage string) *ErrorPage {
	return &ErrorPage{notFound: notFoundMessage}
}

// Classify returns the status code and message shown for err.
func (p *ErrorPage) Classify(err error) (int, string) {
	switch {
	case errors.Is(err, util.ErrNotFound):
		return http.StatusNotFound, p.notFound
	case errors.Is(err, proxy.ErrUpstreamNotFound), errors.Is(err, proxy.ErrHostNotAllowed):
		return http.StatusNotFound, msgMediaNotFound
	case errors.Is(err, proxy.ErrUpstreamTimeout):
		return http.StatusGatewayTimeout, msgUpstreamSlow
	case errors.Is(err, oauth.ErrRefreshFailed):
		return http.StatusBadGateway, msgTokenFailed
	case errors.Is(err, proxy.ErrCircuitOpen):
		return http.StatusBadGateway, msgUpstreamBroken
	case errors.Is(err, proxy.ErrUpstreamUnavailable):
		return http.StatusBadGateway, msgUpstreamDown
	default:
		return http.StatusInternalServerError, msgInternal
	}
}

// Render writes the error page for err and returns the status used.
func (p *ErrorPage) Render(w http.ResponseWriter, r *http.Request, err error) int {
	status, message := p.Classify(err)

	var buf bytes.Buffer
	data := errorPageData{
		Title:     http.StatusText(status),
		Message:   message,
		RequestID: util.RequestIDFromContext(r.Context()),
	}
	if execErr := errorPageTemplate.Execute(&buf, data); execErr != nil {
		http.Error(w, message, status)
		return status
	}

	h := w.Header()
	h.Set("Content-Type", "text/html; charset=utf-8")
	h.Set("Cache-Control", "no-store")
	h.Del("Content-Length")
	w.WriteHeader(status)
	if r.Method != http.MethodHead {
		_, _ = w.Write(buf.Bytes())
	}
	return status
}
