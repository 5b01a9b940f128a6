// Package config provides configuration helpers for go-mctrack commands.
package config

import (
	"fmt"
	"os"
	"strconv"
)

// Defaults
const (
	DefaultWebPort  = 8080
	DefaultLogLevel = "info"
)

// Environment variables
const (
	EnvWebPort  = "MCTRACK_WEB_PORT"
	EnvLogLevel = "MCTRACK_LOG_LEVEL"
)

// ConfigError reports a bad configuration value or file.
type ConfigError struct {
	Source string // File path or environment variable
	Err    error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config %s: %v", e.Source, e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// WebPort returns the dashboard port from MCTRACK_WEB_PORT.
// Falls back to def if unset. 0 disables the dashboard.
func WebPort(def int) (int, error) {
	v := os.Getenv(EnvWebPort)
	if v == "" {
		return def, nil
	}
	port, err := strconv.Atoi(v)
	if err != nil || port < 0 || port > 65535 {
		return 0, &ConfigError{Source: EnvWebPort, Err: fmt.Errorf("invalid port %q", v)}
	}
	return port, nil
}

// LogLevel returns the log level from MCTRACK_LOG_LEVEL or def.
func LogLevel(def string) string {
	if v := os.Getenv(EnvLogLevel); v != "" {
		return v
	}
	return def
}
