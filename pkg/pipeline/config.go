package pipeline

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/teslashibe/go-mctrack/internal/log"
)

// Config holds the tunable parameters of the pipeline
type Config struct {
	// Backpressure
	MaxQueueLength   int           // Capture throttles while the queue is longer than this
	ThrottleInterval time.Duration // Sleep applied once per throttled cycle
	HardLimit        int           // Queue capacity with drop-oldest; 0 keeps the soft limit only

	// Capture retry
	RetryInterval time.Duration // Sleep after "no frame yet" with a non-empty queue; 0 = spin

	// Processing
	PollInterval time.Duration // Bounded wait for a frame; 0 = busy-poll
	FPSSmoothing float64       // Weight of the previous FPS estimate (0-1)

	// Failure policy
	AbortOnError bool // Stop every source when one source fails

	Logger *slog.Logger

	// Sleep is used for throttle and retry sleeps. Tests replace it.
	Sleep func(time.Duration)
}

// DefaultConfig returns the production defaults
func DefaultConfig() Config {
	return Config{
		MaxQueueLength:   2,
		ThrottleInterval: 100 * time.Millisecond,
		RetryInterval:    5 * time.Millisecond,
		PollInterval:     10 * time.Millisecond,
		FPSSmoothing:     0.9,
		Sleep:            time.Sleep,
	}
}

// Validate checks the config values are usable.
func (c *Config) Validate() error {
	if c.MaxQueueLength < 0 {
		return fmt.Errorf("pipeline: max queue length must be >= 0, got %d", c.MaxQueueLength)
	}
	if c.HardLimit < 0 {
		return fmt.Errorf("pipeline: hard limit must be >= 0, got %d", c.HardLimit)
	}
	if c.HardLimit > 0 && c.HardLimit <= c.MaxQueueLength {
		return fmt.Errorf("pipeline: hard limit %d must exceed max queue length %d", c.HardLimit, c.MaxQueueLength)
	}
	if c.ThrottleInterval < 0 || c.RetryInterval < 0 || c.PollInterval < 0 {
		return fmt.Errorf("pipeline: intervals must not be negative")
	}
	if c.FPSSmoothing < 0 || c.FPSSmoothing >= 1 {
		return fmt.Errorf("pipeline: fps smoothing must be in [0, 1), got %.2f", c.FPSSmoothing)
	}
	return nil
}

func (c Config) withDefaults() Config {
	if c.Sleep == nil {
		c.Sleep = time.Sleep
	}
	if c.Logger == nil {
		c.Logger = log.Component("pipeline")
	}
	return c
}
