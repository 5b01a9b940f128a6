// Package app wires capture, detection, tracking, rendering and the dashboard
// into the mctrack application.
package app

import (
	"fmt"

	"github.com/teslashibe/go-mctrack/internal/config"
	"github.com/teslashibe/go-mctrack/pkg/capture"
	"github.com/teslashibe/go-mctrack/pkg/detection"
	"github.com/teslashibe/go-mctrack/pkg/pipeline"
)

// Default configuration values.
const (
	DefaultThreshold = 0.6
	DefaultDevice    = "CPU"
	DefaultStreamFPS = 15
)

// Config holds all configuration for the mctrack application.
// Flag parsing is done in cmd/mctrack/main.go; this struct is data only.
type Config struct {
	// Debug enables verbose debug logging.
	Debug bool

	// Inputs are camera indices, file paths, stream URLs or ws:// feeds.
	Inputs []string

	// Models.
	DetectorModel string
	Threshold     float64 // Detection confidence threshold
	ReidModel     string  // Empty disables appearance matching
	Device        string  // CPU, CUDA, OPENCL, MYRIAD

	// Files.
	TrackerConfig string // YAML or JSON tracker settings
	OutputVideo   string // Annotated grid video
	HistoryFile   string // Identity history JSON

	// WebPort serves the dashboard; 0 disables it.
	WebPort   int
	StreamFPS float64 // Max dashboard frame rate per camera

	// Preset names a capture resolution; empty keeps Capture as is.
	Preset   string
	Capture  capture.Config
	Pipeline pipeline.Config
}

// DefaultConfig returns sensible defaults for the application.
func DefaultConfig() Config {
	return Config{
		DetectorModel: detection.DefaultConfig().ModelPath,
		Threshold:     DefaultThreshold,
		Device:        DefaultDevice,
		WebPort:       config.DefaultWebPort,
		StreamFPS:     DefaultStreamFPS,
		Capture:       capture.DefaultConfig(),
		Pipeline:      pipeline.DefaultConfig(),
	}
}

// LoadEnvConfig applies environment overrides.
// Call this after flag parsing.
func (c *Config) LoadEnvConfig() error {
	port, err := config.WebPort(c.WebPort)
	if err != nil {
		return err
	}
	c.WebPort = port
	return nil
}

// Validate checks that required configuration is present and usable.
func (c *Config) Validate() error {
	if len(c.Inputs) == 0 {
		return &ConfigError{Field: "Inputs", Message: "at least one input is required (-i)"}
	}
	for _, in := range c.Inputs {
		if _, err := capture.ParseInput(in); err != nil {
			return &ConfigError{Field: "Inputs", Message: err.Error()}
		}
	}
	if c.DetectorModel == "" {
		return &ConfigError{Field: "DetectorModel", Message: "detector model is required (-m)"}
	}
	if c.Threshold <= 0 || c.Threshold > 1 {
		return &ConfigError{Field: "Threshold", Message: fmt.Sprintf("threshold must be in (0, 1], got %.2f", c.Threshold)}
	}
	if !detection.IsKnownDevice(c.Device) {
		return &ConfigError{Field: "Device", Message: fmt.Sprintf("unknown device %q", c.Device)}
	}
	if c.WebPort < 0 || c.WebPort > 65535 {
		return &ConfigError{Field: "WebPort", Message: fmt.Sprintf("invalid web port %d", c.WebPort)}
	}
	if c.StreamFPS < 0 {
		return &ConfigError{Field: "StreamFPS", Message: "stream fps must not be negative"}
	}
	if c.Preset != "" {
		if capture.GetPreset(c.Preset) == nil {
			return &ConfigError{Field: "Preset", Message: fmt.Sprintf("unknown preset %q (have %v)", c.Preset, capture.PresetNames())}
		}
	}
	if err := c.Capture.Validate(); err != nil {
		return &ConfigError{Field: "Capture", Message: err.Error()}
	}
	if err := c.Pipeline.Validate(); err != nil {
		return &ConfigError{Field: "Pipeline", Message: err.Error()}
	}
	return nil
}

// applyPreset replaces the capture resolution with the named preset.
func (c *Config) applyPreset() {
	if c.Preset == "" {
		return
	}
	if p := capture.GetPreset(c.Preset); p != nil {
		c.Capture.Width, c.Capture.Height, c.Capture.FPS = p.Width, p.Height, p.FPS
	}
}

// detectorConfig builds the detector settings from the flags.
func (c *Config) detectorConfig() detection.Config {
	cfg := detection.DefaultConfig()
	cfg.ModelPath = c.DetectorModel
	cfg.ConfidenceThresh = c.Threshold
	cfg.Device = c.Device
	return cfg
}

// ConfigError represents a configuration validation error.
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return e.Message
}
