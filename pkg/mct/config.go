package mct

import (
	"fmt"
	"time"
)

// Config holds the tunable parameters of the multi-camera tracker
type Config struct {
	// Local association
	IoUThreshold float64 `yaml:"iou_threshold" json:"iou_threshold"` // Minimum box overlap to continue a track
	MaxMisses    int     `yaml:"max_misses" json:"max_misses"`       // Frames a track survives without a detection

	// Appearance
	TimeWindow     int     `yaml:"time_window" json:"time_window"`         // Embeddings averaged per track
	MatchThreshold float64 `yaml:"match_threshold" json:"match_threshold"` // Cosine similarity to reuse a global ID
	MergeThreshold float64 `yaml:"merge_threshold" json:"merge_threshold"` // Cosine similarity to merge a tentative identity by track appearance

	// Gallery. In config files ForgetTimeout is a duration string such as
	// "30s" or "2m"; bare integers are rejected.
	ForgetTimeout time.Duration `yaml:"forget_timeout" json:"forget_timeout"` // Drop identities not seen for this long (0 = never)

	KeepHistory bool `yaml:"keep_history" json:"keep_history"`
}

// DefaultConfig returns the recommended tracker configuration
func DefaultConfig() Config {
	return Config{
		IoUThreshold: 0.5,
		MaxMisses:    10,

		TimeWindow:     20,
		MatchThreshold: 0.65,
		MergeThreshold: 0.75,

		ForgetTimeout: time.Minute,
	}
}

// Validate checks the config values are within valid ranges.
func (c Config) Validate() error {
	if c.IoUThreshold <= 0 || c.IoUThreshold > 1 {
		return fmt.Errorf("mct: iou_threshold must be in (0, 1], got %.2f", c.IoUThreshold)
	}
	if c.MaxMisses < 0 {
		return fmt.Errorf("mct: max_misses must be non-negative, got %d", c.MaxMisses)
	}
	if c.TimeWindow < 1 {
		return fmt.Errorf("mct: time_window must be at least 1, got %d", c.TimeWindow)
	}
	if c.MatchThreshold < -1 || c.MatchThreshold > 1 {
		return fmt.Errorf("mct: match_threshold must be in [-1, 1], got %.2f", c.MatchThreshold)
	}
	if c.MergeThreshold < -1 || c.MergeThreshold > 1 {
		return fmt.Errorf("mct: merge_threshold must be in [-1, 1], got %.2f", c.MergeThreshold)
	}
	if c.ForgetTimeout < 0 {
		return fmt.Errorf("mct: forget_timeout must be non-negative, got %v", c.ForgetTimeout)
	}
	return nil
}
