package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/vyrodovalexey/frontgw/internal/util"
)

func TestDefaultConfig_IsValid(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()

	require.NoError(t, cfg.Validate())
	assert.Equal(t, DefaultAddress, cfg.Server.Address)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 600*time.Second, cfg.Feeds.TTL.Duration())

	maxAge, ok := cfg.Server.HSTS()
	assert.True(t, ok)
	assert.Equal(t, 604800, maxAge)
}

func TestServerConfig_HSTS(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		value   string
		want    int
		enabled bool
	}{
		{name: "empty disables", value: ""},
		{name: "zero is allowed", value: "0", want: 0, enabled: true},
		{name: "one day", value: "86400", want: 86400, enabled: true},
		{name: "negative disables", value: "-1"},
		{name: "garbage disables", value: "week"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, ok := ServerConfig{HSTSMaxAge: tt.value}.HSTS()
			assert.Equal(t, tt.enabled, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLoader_LoadFromReader(t *testing.T) {
	t.Parallel()

	content := `
server:
  port: 9000
  hsts_max_age: ""
  robots_disable_indexing: true
oauth:
  enabled: false
feeds:
  ttl: 5m
logging:
  level: debug
`
	cfg, err := NewLoader().LoadFromReader(strings.NewReader(content))
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.Server.Port)
	assert.True(t, cfg.Server.RobotsDisableIndexing)
	assert.False(t, cfg.OAuth.Enabled)
	assert.Equal(t, 5*time.Minute, cfg.Feeds.TTL.Duration())
	assert.Equal(t, "debug", cfg.Logging.Level)
	// untouched sections keep their defaults
	assert.Equal(t, DefaultAddress, cfg.Server.Address)
	assert.Equal(t, DefaultCommitsURL, cfg.Feeds.CommitsURL)

	_, ok := cfg.Server.HSTS()
	assert.False(t, ok)
}

func TestLoader_LoadFromReader_Empty(t *testing.T) {
	t.Parallel()

	cfg, err := NewLoader().LoadFromReader(strings.NewReader(""))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoader_UnknownField(t *testing.T) {
	t.Parallel()

	_, err := NewLoader().LoadFromReader(strings.NewReader("server:\n  prot: 80\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse YAML")
}

func TestLoader_InvalidDuration(t *testing.T) {
	t.Parallel()

	_, err := NewLoader().LoadFromReader(strings.NewReader("feeds:\n  ttl: soon\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), `invalid duration "soon"`)
}

func TestLoader_Load(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "frontgw.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  port: 8181\n"), 0o600))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 8181, cfg.Server.Port)
}

func TestLoader_Load_FileNotFound(t *testing.T) {
	t.Parallel()

	_, err := LoadConfig("/nonexistent/path/frontgw.yaml")
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoadConfig_EmptyPath(t *testing.T) {
	t.Parallel()

	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoader_SubstituteEnvVars(t *testing.T) {
	t.Parallel()

	env := map[string]string{
		"PORT":      "8282",
		"EMPTY_VAR": "",
	}
	loader := &Loader{lookupEnv: func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}}

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "set variable", input: "port: ${PORT}", want: "port: 8282"},
		{name: "default used", input: "port: ${MISSING:-9000}", want: "port: 9000"},
		{name: "set wins over default", input: "port: ${PORT:-9000}", want: "port: 8282"},
		{name: "empty but set", input: "v: '${EMPTY_VAR:-x}'", want: "v: ''"},
		{name: "missing without default", input: "v: '${MISSING}'", want: "v: ''"},
		{name: "escaped dollar", input: "v: $${PORT}", want: "v: ${PORT}"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, loader.substituteEnvVars(tt.input))
		})
	}
}

func TestConfig_Validate_CollectsAllErrors(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	cfg.Server.Port = 0
	cfg.Server.IPv4Only = true
	cfg.Server.IPv6Only = true
	cfg.Server.HSTSMaxAge = "-5"
	cfg.OAuth.ClientID = ""
	cfg.OAuth.TokenEndpoint = "ftp://example.com/token"
	cfg.Feeds.TTL = 0
	cfg.Logging.Level = "chatty"

	err := cfg.Validate()
	require.Error(t, err)
	assert.ErrorIs(t, err, util.ErrConfigInvalid)

	var verr *util.ValidationError
	require.True(t, errors.As(err, &verr))
	for _, field := range []string{
		"server.port",
		"server.ipv4_only",
		"server.hsts_max_age",
		"oauth.client_id",
		"oauth.token_endpoint",
		"feeds.ttl",
		"logging.level",
	} {
		assert.Contains(t, verr.Fields, field)
	}
}

func TestConfig_Validate_OAuthDisabledSkipsOAuth(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	cfg.OAuth.Enabled = false
	cfg.OAuth.ClientID = ""

	assert.NoError(t, cfg.Validate())
}

func TestDuration_YAMLRoundTrip(t *testing.T) {
	t.Parallel()

	type wrapper struct {
		D Duration `yaml:"d"`
	}

	var w wrapper
	require.NoError(t, yaml.Unmarshal([]byte("d: 1h30m"), &w))
	assert.Equal(t, 90*time.Minute, w.D.Duration())

	out, err := yaml.Marshal(w)
	require.NoError(t, err)
	assert.Equal(t, "d: 1h30m0s\n", string(out))

	require.Error(t, yaml.Unmarshal([]byte("d: [1]"), &w))
}

func TestDuration_JSON(t *testing.T) {
	t.Parallel()

	var d Duration
	require.NoError(t, d.UnmarshalJSON([]byte(`"250ms"`)))
	assert.Equal(t, 250*time.Millisecond, d.Duration())

	require.NoError(t, d.UnmarshalJSON([]byte(`null`)))
	assert.Zero(t, d)

	require.Error(t, d.UnmarshalJSON([]byte(`12`)))

	b, err := Duration(2 * time.Second).MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, `"2s"`, string(b))
}
