package config

import (
	"strconv"
	"time"
)

// Config is the complete gateway configuration. It is read once at
// startup and never mutated afterwards.
type Config struct {
	Server    ServerConfig    `yaml:"server" json:"server"`
	Upstream  UpstreamConfig  `yaml:"upstream" json:"upstream"`
	OAuth     OAuthConfig     `yaml:"oauth" json:"oauth"`
	Feeds     FeedsConfig     `yaml:"feeds" json:"feeds"`
	Probe     ProbeConfig     `yaml:"probe" json:"probe"`
	RateLimit RateLimitConfig `yaml:"rate_limit" json:"rate_limit"`
	Logging   LoggingConfig   `yaml:"logging" json:"logging"`
	Metrics   MetricsConfig   `yaml:"metrics" json:"metrics"`
	Tracing   TracingConfig   `yaml:"tracing" json:"tracing"`
}

// ServerConfig configures the public listener and response policy.
type ServerConfig struct {
	Address               string   `yaml:"address" json:"address"`
	Port                  int      `yaml:"port" json:"port"`
	IPv4Only              bool     `yaml:"ipv4_only" json:"ipv4_only"`
	IPv6Only              bool     `yaml:"ipv6_only" json:"ipv6_only"`
	HSTSMaxAge            string   `yaml:"hsts_max_age" json:"hsts_max_age"`
	RobotsDisableIndexing bool     `yaml:"robots_disable_indexing" json:"robots_disable_indexing"`
	NotFoundMessage       string   `yaml:"not_found_message" json:"not_found_message"`
	ReadHeaderTimeout     Duration `yaml:"read_header_timeout" json:"read_header_timeout"`
	IdleTimeout           Duration `yaml:"idle_timeout" json:"idle_timeout"`
	ShutdownTimeout       Duration `yaml:"shutdown_timeout" json:"shutdown_timeout"`
}

// HSTS returns the Strict-Transport-Security max-age and whether the
// header is enabled. An empty value disables the header.
func (s ServerConfig) HSTS() (int, bool) {
	if s.HSTSMaxAge == "" {
		return 0, false
	}
	n, err := strconv.Atoi(s.HSTSMaxAge)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

// UpstreamConfig configures outbound calls to content hosts.
type UpstreamConfig struct {
	UserAgent    string        `yaml:"user_agent" json:"user_agent"`
	Timeout      Duration      `yaml:"timeout" json:"timeout"`
	MaxRedirects int           `yaml:"max_redirects" json:"max_redirects"`
	Breaker      BreakerConfig `yaml:"breaker" json:"breaker"`
}

// BreakerConfig configures the per-host circuit breakers.
type BreakerConfig struct {
	Enabled      bool     `yaml:"enabled" json:"enabled"`
	MaxRequests  uint32   `yaml:"max_requests" json:"max_requests"`
	Interval     Duration `yaml:"interval" json:"interval"`
	Timeout      Duration `yaml:"timeout" json:"timeout"`
	FailureRatio float64  `yaml:"failure_ratio" json:"failure_ratio"`
	MinRequests  uint32   `yaml:"min_requests" json:"min_requests"`
}

// OAuthConfig configures the upstream credential manager.
type OAuthConfig struct {
	Enabled        bool              `yaml:"enabled" json:"enabled"`
	TokenEndpoint  string            `yaml:"token_endpoint" json:"token_endpoint"`
	ClientID       string            `yaml:"client_id" json:"client_id"`
	ClientSecret   string            `yaml:"client_secret" json:"-"`
	Scopes         []string          `yaml:"scopes" json:"scopes"`
	Headers        map[string]string `yaml:"headers" json:"headers"`
	RefreshMargin  Duration          `yaml:"refresh_margin" json:"refresh_margin"`
	RequestTimeout Duration          `yaml:"request_timeout" json:"request_timeout"`
	RetryDelay     Duration          `yaml:"retry_delay" json:"retry_delay"`
	AutoRefresh    bool              `yaml:"auto_refresh" json:"auto_refresh"`
}

// FeedsConfig configures the cached upstream feeds.
type FeedsConfig struct {
	TTL          Duration `yaml:"ttl" json:"ttl"`
	CommitsURL   string   `yaml:"commits_url" json:"commits_url"`
	InstancesURL string   `yaml:"instances_url" json:"instances_url"`
	MaxBodyBytes int64    `yaml:"max_body_bytes" json:"max_body_bytes"`
}

// ProbeConfig configures the startup rate-limit probe.
type ProbeConfig struct {
	Enabled bool   `yaml:"enabled" json:"enabled"`
	URL     string `yaml:"url" json:"url"`
}

// RateLimitConfig configures inbound request throttling.
type RateLimitConfig struct {
	Enabled   bool    `yaml:"enabled" json:"enabled"`
	RPS       float64 `yaml:"rps" json:"rps"`
	Burst     int     `yaml:"burst" json:"burst"`
	PerClient bool    `yaml:"per_client" json:"per_client"`
}

// LoggingConfig configures the structured logger.
type LoggingConfig struct {
	Level  string `yaml:"level" json:"level"`
	Format string `yaml:"format" json:"format"`
	Output string `yaml:"output" json:"output"`
}

// MetricsConfig configures the ops listener serving metrics and probes.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" json:"enabled"`
	Address string `yaml:"address" json:"address"`
	Path    string `yaml:"path" json:"path"`
}

// TracingConfig configures OpenTelemetry export.
type TracingConfig struct {
	Enabled      bool    `yaml:"enabled" json:"enabled"`
	ServiceName  string  `yaml:"service_name" json:"service_name"`
	OTLPEndpoint string  `yaml:"otlp_endpoint" json:"otlp_endpoint"`
	SamplingRate float64 `yaml:"sampling_rate" json:"sampling_rate"`
}

// Default values.
const (
	DefaultAddress         = "[::]"
	DefaultPort            = 8080
	DefaultHSTSMaxAge      = "604800"
	DefaultNotFoundMessage = "Nothing here"
	DefaultUserAgent       = "frontgw/1.0"
	DefaultTokenEndpoint   = "https://www.reddit.com/api/v1/access_token"
	DefaultClientID        = "ohXpoqrZYub1kg"
	DefaultCommitsURL      = "https://github.com/redlib-org/redlib/commits/main.atom"
	DefaultInstancesURL    = "https://raw.githubusercontent.com/redlib-org/redlib-instances/main/instances.json"
	DefaultProbeURL        = "https://oauth.reddit.com/r/popular/hot.json?raw_json=1"
	DefaultMetricsAddress  = ":9090"
	DefaultMetricsPath     = "/metrics"
	DefaultMaxBodyBytes    = 4 << 20
)

// DefaultConfig returns a configuration populated with defaults.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Address:           DefaultAddress,
			Port:              DefaultPort,
			HSTSMaxAge:        DefaultHSTSMaxAge,
			NotFoundMessage:   DefaultNotFoundMessage,
			ReadHeaderTimeout: Duration(10 * time.Second),
			IdleTimeout:       Duration(120 * time.Second),
			ShutdownTimeout:   Duration(30 * time.Second),
		},
		Upstream: UpstreamConfig{
			UserAgent:    DefaultUserAgent,
			Timeout:      Duration(30 * time.Second),
			MaxRedirects: 5,
			Breaker: BreakerConfig{
				Enabled:      true,
				MaxRequests:  1,
				Interval:     Duration(60 * time.Second),
				Timeout:      Duration(30 * time.Second),
				FailureRatio: 0.5,
				MinRequests:  10,
			},
		},
		OAuth: OAuthConfig{
			Enabled:        true,
			TokenEndpoint:  DefaultTokenEndpoint,
			ClientID:       DefaultClientID,
			Scopes:         []string{"read"},
			RefreshMargin:  Duration(60 * time.Second),
			RequestTimeout: Duration(10 * time.Second),
			RetryDelay:     Duration(5 * time.Second),
			AutoRefresh:    true,
		},
		Feeds: FeedsConfig{
			TTL:          Duration(600 * time.Second),
			CommitsURL:   DefaultCommitsURL,
			InstancesURL: DefaultInstancesURL,
			MaxBodyBytes: DefaultMaxBodyBytes,
		},
		Probe: ProbeConfig{
			Enabled: true,
			URL:     DefaultProbeURL,
		},
		RateLimit: RateLimitConfig{
			RPS:   100,
			Burst: 200,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Address: DefaultMetricsAddress,
			Path:    DefaultMetricsPath,
		},
		Tracing: TracingConfig{
			ServiceName:  "frontgw",
			SamplingRate: 1.0,
		},
	}
}
