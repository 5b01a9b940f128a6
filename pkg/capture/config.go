// Package capture opens camera devices, video files, RTSP streams and remote
// JPEG feeds and exposes them as one indexed frame source.
package capture

import (
	"fmt"
	"strings"
	"time"
)

// Config holds capture settings shared by every input.
type Config struct {
	// Resolution. Zero keeps the input's native size.
	Width  int `json:"width"`
	Height int `json:"height"`
	FPS    int `json:"fps"` // Requested device rate; also paces snapshot polling

	// Remote inputs
	BufferSize  int           `json:"buffer_size"`  // Decoded frames kept per websocket input
	ReadTimeout time.Duration `json:"read_timeout"` // How long a remote read waits before reporting no frame
	Quality     int           `json:"quality"`      // JPEG quality for re-encoding, 1-100
}

// DefaultConfig returns native resolution with short remote buffers.
func DefaultConfig() Config {
	return Config{
		BufferSize:  4,
		ReadTimeout: 2 * time.Second,
		Quality:     80,
	}
}

// Validate checks if the config values are within valid ranges.
func (c Config) Validate() error {
	var problems []string

	if (c.Width == 0) != (c.Height == 0) {
		problems = append(problems, "width and height must be set together")
	}
	if c.Width < 0 || c.Height < 0 {
		problems = append(problems, "resolution must be non-negative")
	}
	if c.FPS < 0 || c.FPS > 240 {
		problems = append(problems, "fps must be between 0 and 240")
	}
	if c.BufferSize < 1 {
		problems = append(problems, "buffer_size must be at least 1")
	}
	if c.ReadTimeout < 0 {
		problems = append(problems, "read_timeout must be non-negative")
	}
	if c.Quality < 1 || c.Quality > 100 {
		problems = append(problems, "quality must be between 1 and 100")
	}

	if len(problems) > 0 {
		return fmt.Errorf("capture: %s", strings.Join(problems, "; "))
	}
	return nil
}

// Resizes reports whether frames are scaled to a fixed size.
func (c Config) Resizes() bool {
	return c.Width > 0 && c.Height > 0
}
