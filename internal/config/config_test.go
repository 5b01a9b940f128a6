package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/teslashibe/go-mctrack/pkg/mct"
)

func TestWebPort(t *testing.T) {
	tests := []struct {
		name    string
		env     string
		want    int
		wantErr bool
	}{
		{"unset", "", 8080, false},
		{"set", "9000", 9000, false},
		{"disabled", "0", 0, false},
		{"garbage", "eighty", 0, true},
		{"too large", "70000", 0, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv(EnvWebPort, tc.env)
			got, err := WebPort(DefaultWebPort)
			if (err != nil) != tc.wantErr {
				t.Fatalf("WebPort() error = %v, wantErr %v", err, tc.wantErr)
			}
			var cerr *ConfigError
			if err != nil && !errors.As(err, &cerr) {
				t.Errorf("error %v is not a *ConfigError", err)
			}
			if got != tc.want {
				t.Errorf("WebPort() = %d, want %d", got, tc.want)
			}
		})
	}
}

func TestLogLevel(t *testing.T) {
	t.Setenv(EnvLogLevel, "")
	if got := LogLevel("warn"); got != "warn" {
		t.Errorf("unset: got %q, want warn", got)
	}
	t.Setenv(EnvLogLevel, "debug")
	if got := LogLevel("warn"); got != "debug" {
		t.Errorf("set: got %q, want debug", got)
	}
}

func TestParseTrackerConfig(t *testing.T) {
	tests := []struct {
		name    string
		doc     string
		check   func(t *testing.T, c mct.Config)
		wantErr bool
	}{
		{
			name: "empty keeps defaults",
			doc:  "",
			check: func(t *testing.T, c mct.Config) {
				if c != mct.DefaultConfig() {
					t.Errorf("got %+v, want defaults", c)
				}
			},
		},
		{
			name: "yaml overrides",
			doc:  "time_window: 10\nmatch_threshold: 0.5\nforget_timeout: 30s\n",
			check: func(t *testing.T, c mct.Config) {
				if c.TimeWindow != 10 || c.MatchThreshold != 0.5 || c.ForgetTimeout != 30*time.Second {
					t.Errorf("got %+v", c)
				}
				if c.IoUThreshold != mct.DefaultConfig().IoUThreshold {
					t.Errorf("IoUThreshold changed: %v", c.IoUThreshold)
				}
			},
		},
		{
			name: "json document",
			doc:  `{"max_misses": 3, "keep_history": true}`,
			check: func(t *testing.T, c mct.Config) {
				if c.MaxMisses != 3 || !c.KeepHistory {
					t.Errorf("got %+v", c)
				}
			},
		},
		{
			name: "json duration string",
			doc:  `{"forget_timeout": "2m"}`,
			check: func(t *testing.T, c mct.Config) {
				if c.ForgetTimeout != 2*time.Minute {
					t.Errorf("ForgetTimeout: got %v, want 2m", c.ForgetTimeout)
				}
			},
		},
		{name: "json duration nanoseconds", doc: `{"forget_timeout": 30000000000}`, wantErr: true},
		{name: "yaml bare integer duration", doc: "forget_timeout: 30\n", wantErr: true},
		{name: "unknown key", doc: "time_windw: 3\n", wantErr: true},
		{name: "invalid value", doc: "iou_threshold: 2\n", wantErr: true},
		{name: "malformed", doc: "time_window: [\n", wantErr: true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg, err := ParseTrackerConfig([]byte(tc.doc))
			if (err != nil) != tc.wantErr {
				t.Fatalf("ParseTrackerConfig() error = %v, wantErr %v", err, tc.wantErr)
			}
			if tc.check != nil {
				tc.check(t, cfg)
			}
		})
	}
}

func TestLoadTrackerConfig(t *testing.T) {
	if cfg, err := LoadTrackerConfig(""); err != nil || cfg != mct.DefaultConfig() {
		t.Errorf("empty path: got %+v, %v", cfg, err)
	}

	path := filepath.Join(t.TempDir(), "tracker.yaml")
	if err := os.WriteFile(path, []byte("max_misses: 4\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := LoadTrackerConfig(path)
	if err != nil {
		t.Fatalf("LoadTrackerConfig: %v", err)
	}
	if cfg.MaxMisses != 4 {
		t.Errorf("MaxMisses: got %d, want 4", cfg.MaxMisses)
	}

	_, err = LoadTrackerConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	var cerr *ConfigError
	if !errors.As(err, &cerr) || !errors.Is(err, os.ErrNotExist) {
		t.Errorf("missing file: got %v, want *ConfigError wrapping ErrNotExist", err)
	}
}
