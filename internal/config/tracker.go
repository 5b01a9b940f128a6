package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/teslashibe/go-mctrack/pkg/mct"
)

// LoadTrackerConfig reads a YAML or JSON tracker config file. Keys left out
// keep their mct.DefaultConfig values. An empty path returns the defaults.
// Durations are strings ("forget_timeout": "30s"), also in JSON.
func LoadTrackerConfig(path string) (mct.Config, error) {
	if path == "" {
		return mct.DefaultConfig(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return mct.Config{}, &ConfigError{Source: path, Err: err}
	}
	cfg, err := ParseTrackerConfig(data)
	if err != nil {
		return mct.Config{}, &ConfigError{Source: path, Err: err}
	}
	return cfg, nil
}

// ParseTrackerConfig decodes a tracker config document over the defaults.
func ParseTrackerConfig(data []byte) (mct.Config, error) {
	cfg := mct.DefaultConfig()

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return mct.Config{}, fmt.Errorf("decode: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return mct.Config{}, err
	}
	return cfg, nil
}
