package capture

import "sort"

// Preset names for common capture resolutions
const (
	PresetNative = "native"
	PresetVGA    = "vga"
	Preset720p   = "720p"
	Preset1080p  = "1080p"
)

// Presets returns all available preset configurations.
func Presets() map[string]Config {
	return map[string]Config{
		PresetNative: DefaultConfig(),
		PresetVGA:    sized(640, 480, 30),
		Preset720p:   sized(1280, 720, 30),
		Preset1080p:  sized(1920, 1080, 30),
	}
}

// PresetNames returns the sorted list of preset names.
func PresetNames() []string {
	presets := Presets()
	names := make([]string, 0, len(presets))
	for name := range presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// GetPreset returns the preset config by name, or nil if not found.
func GetPreset(name string) *Config {
	if cfg, ok := Presets()[name]; ok {
		return &cfg
	}
	return nil
}

func sized(w, h, fps int) Config {
	cfg := DefaultConfig()
	cfg.Width = w
	cfg.Height = h
	cfg.FPS = fps
	return cfg
}
