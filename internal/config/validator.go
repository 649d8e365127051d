package config

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/vyrodovalexey/frontgw/internal/util"
)

var validLogLevels = map[string]bool{
	"debug": true, "info": true, "warn": true, "error": true,
}

// Validate checks the configuration and reports every problem at once.
func (c *Config) Validate() error {
	verr := util.NewValidationError("invalid configuration")

	c.validateServer(verr)
	c.validateUpstream(verr)
	c.validateOAuth(verr)
	c.validateFeeds(verr)
	c.validateObservability(verr)

	if verr.HasErrors() {
		return verr
	}
	return nil
}

func (c *Config) validateServer(verr *util.ValidationError) {
	s := c.Server
	if s.Port < 1 || s.Port > 65535 {
		verr.AddField("server.port", fmt.Sprintf("must be between 1 and 65535, got %d", s.Port))
	}
	if s.IPv4Only && s.IPv6Only {
		verr.AddField("server.ipv4_only", "cannot be combined with ipv6_only")
	}
	if s.HSTSMaxAge != "" {
		n, err := strconv.Atoi(s.HSTSMaxAge)
		if err != nil || n < 0 {
			verr.AddField("server.hsts_max_age", fmt.Sprintf("must be a non-negative integer, got %q", s.HSTSMaxAge))
		}
	}
	if s.ShutdownTimeout < 0 {
		verr.AddField("server.shutdown_timeout", "must not be negative")
	}
}

func (c *Config) validateUpstream(verr *util.ValidationError) {
	u := c.Upstream
	if u.Timeout <= 0 {
		verr.AddField("upstream.timeout", "must be positive")
	}
	if u.MaxRedirects < 0 {
		verr.AddField("upstream.max_redirects", "must not be negative")
	}
	if u.Breaker.Enabled && (u.Breaker.FailureRatio <= 0 || u.Breaker.FailureRatio > 1) {
		verr.AddField("upstream.breaker.failure_ratio", "must be in (0, 1]")
	}
}

func (c *Config) validateOAuth(verr *util.ValidationError) {
	o := c.OAuth
	if !o.Enabled {
		return
	}
	if err := validateHTTPURL(o.TokenEndpoint); err != nil {
		verr.AddField("oauth.token_endpoint", err.Error())
	}
	if o.ClientID == "" {
		verr.AddField("oauth.client_id", "is required when oauth is enabled")
	}
	if o.RequestTimeout <= 0 {
		verr.AddField("oauth.request_timeout", "must be positive")
	}
	if o.RefreshMargin < 0 {
		verr.AddField("oauth.refresh_margin", "must not be negative")
	}
	if o.RetryDelay <= 0 {
		verr.AddField("oauth.retry_delay", "must be positive")
	}
}

func (c *Config) validateFeeds(verr *util.ValidationError) {
	f := c.Feeds
	if f.TTL <= 0 {
		verr.AddField("feeds.ttl", "must be positive")
	}
	if err := validateHTTPURL(f.CommitsURL); err != nil {
		verr.AddField("feeds.commits_url", err.Error())
	}
	if err := validateHTTPURL(f.InstancesURL); err != nil {
		verr.AddField("feeds.instances_url", err.Error())
	}
	if f.MaxBodyBytes <= 0 {
		verr.AddField("feeds.max_body_bytes", "must be positive")
	}
	if c.Probe.Enabled {
		if err := validateHTTPURL(c.Probe.URL); err != nil {
			verr.AddField("probe.url", err.Error())
		}
	}
}

func (c *Config) validateObservability(verr *util.ValidationError) {
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		verr.AddField("logging.level", fmt.Sprintf("unknown level %q", c.Logging.Level))
	}
	if c.Logging.Format != "json" && c.Logging.Format != "console" {
		verr.AddField("logging.format", fmt.Sprintf("must be json or console, got %q", c.Logging.Format))
	}
	if c.RateLimit.Enabled && (c.RateLimit.RPS <= 0 || c.RateLimit.Burst <= 0) {
		verr.AddField("rate_limit", "rps and burst must be positive when enabled")
	}
	if c.Metrics.Enabled && c.Metrics.Address == "" {
		verr.AddField("metrics.address", "is required when metrics are enabled")
	}
	if c.Tracing.SamplingRate < 0 || c.Tracing.SamplingRate > 1 {
		verr.AddField("tracing.sampling_rate", "must be in [0, 1]")
	}
}

func validateHTTPURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("scheme must be http or https, got %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("host is required")
	}
	return nil
}
