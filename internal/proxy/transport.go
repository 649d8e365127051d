package proxy

import (
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"
)

// DefaultMaxRedirects is the number of same-host redirects followed.
const DefaultMaxRedirects = 5

// NewTransport returns an HTTP transport whose dial and response header
// waits are bounded by timeout.
func NewTransport(timeout time.Duration) *http.Transport {
	t := http.DefaultTransport.(*http.Transport).Clone()
	dialer := &net.Dialer{
		Timeout:   timeout,
		KeepAlive: 30 * time.Second,
	}
	t.DialContext = dialer.DialContext
	t.ResponseHeaderTimeout = timeout
	t.TLSHandshakeTimeout = 10 * time.Second
	t.MaxIdleConnsPerHost = 32
	return t
}

// redirectTransport follows redirects that stay on the same scheme and
// host. Other redirects are returned to the caller unchanged.
type redirectTransport struct {
	next         http.RoundTripper
	maxRedirects int
}

// RoundTrip implements http.RoundTripper.
func (t *redirectTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	for hops := 0; ; hops++ {
		resp, err := t.next.RoundTrip(req)
		if err != nil {
			return nil, err
		}

		next, ok := t.sameHostRedirect(req, resp)
		if !ok {
			return resp, nil
		}
		if hops >= t.maxRedirects {
			_ = resp.Body.Close()
			return nil, fmt.Errorf("stopped after %d redirects", t.maxRedirects)
		}

		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4<<10))
		_ = resp.Body.Close()

		nextReq := req.Clone(req.Context())
		nextReq.URL = next
		nextReq.Host = ""
		req = nextReq
	}
}

func (t *redirectTransport) sameHostRedirect(req *http.Request, resp *http.Response) (*url.URL, bool) {
	switch resp.StatusCode {
	case http.StatusMovedPermanently, http.StatusFound, http.StatusSeeOther,
		http.StatusTemporaryRedirect, http.StatusPermanentRedirect:
	default:
		return nil, false
	}
	if req.Method != http.MethodGet && req.Method != http.MethodHead {
		return nil, false
	}

	loc, err := resp.Location()
	if err != nil {
		return nil, false
	}
	if loc.Scheme != req.URL.Scheme || loc.Host != req.URL.Host {
		return nil, false
	}
	return loc, true
}
