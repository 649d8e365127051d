package main

import (
	"strings"
)

// Environment variables read at startup.
const (
	envConfig                = "FRONTGW_CONFIG"
	envAddress               = "FRONTGW_ADDRESS"
	envPort                  = "PORT"
	envIPv4Only              = "IPV4_ONLY"
	envIPv6Only              = "IPV6_ONLY"
	envHSTS                  = "FRONTGW_HSTS"
	envRobotsDisableIndexing = "FRONTGW_ROBOTS_DISABLE_INDEXING"
	envLogLevel              = "FRONTGW_LOG_LEVEL"
	envLogFormat             = "FRONTGW_LOG_FORMAT"
)

// lookupFunc reads one environment variable.
type lookupFunc func(key string) (string, bool)

// getEnvOrDefault returns the environment variable value or a default.
func (lookup lookupFunc) getEnvOrDefault(key, defaultValue string) string {
	if value, ok := lookup(key); ok && value != "" {
		return value
	}
	return defaultValue
}

// isSet reports whether the variable is present, whatever its value.
func (lookup lookupFunc) isSet(key string) bool {
	_, ok := lookup(key)
	return ok
}

// isOn reports whether the variable is set to "on".
func (lookup lookupFunc) isOn(key string) bool {
	value, ok := lookup(key)
	return ok && strings.EqualFold(strings.TrimSpace(value), "on")
}
