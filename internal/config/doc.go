// Package config provides configuration types and loading for the gateway.
//
// Configuration is layered: built-in defaults, then an optional YAML
// file, then environment variables and command-line flags. It is read
// once at startup; nothing in the gateway re-reads or watches it.
//
// # Features
//
//   - YAML configuration file loading on top of DefaultConfig
//   - Environment variable substitution with ${VAR:-default} syntax
//   - Human-readable durations via the Duration type
//   - Validation that reports every problem in one error
//
// # Configuration Loading
//
//	cfg, err := config.LoadConfig("frontgw.yaml")
//	if err != nil {
//	    return err
//	}
//	if err := cfg.Validate(); err != nil {
//	    return err
//	}
package config
