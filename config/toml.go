package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"

	"partnerdash/api/models"
)

// FileConfig represents the tracking TOML file.
type FileConfig struct {
	Tracking TrackingFileConfig `toml:"tracking"`
}

// TrackingFileConfig maps tracking settings; unset keys keep their defaults.
type TrackingFileConfig struct {
	Enabled          *bool     `toml:"enabled"`
	TrackClicks      *bool     `toml:"track-clicks"`
	TrackScrolls     *bool     `toml:"track-scrolls"`
	TrackHovers      *bool     `toml:"track-hovers"`
	SampleRate       *float64  `toml:"sample-rate"`
	SampleMode       *string   `toml:"sample-mode"`
	ExcludeElements  *[]string `toml:"exclude-elements"`
	ScrollDebounceMs *int      `toml:"scroll-debounce-ms"`
	LogLimit         *int      `toml:"log-limit"`
}

// LoadTrackingFile overlays the TOML file at path onto base. Missing file is not an error.
func LoadTrackingFile(path string, base TrackingConfig) (TrackingConfig, error) {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return base, nil
		}
		return base, fmt.Errorf("failed to stat tracking config: %w", err)
	}
	var fc FileConfig
	if _, err := toml.DecodeFile(path, &fc); err != nil {
		return base, fmt.Errorf("failed to decode tracking config: %w", err)
	}

	out := base
	t := fc.Tracking
	if t.Enabled != nil {
		out.Enabled = *t.Enabled
	}
	if t.TrackClicks != nil {
		out.TrackClicks = *t.TrackClicks
	}
	if t.TrackScrolls != nil {
		out.TrackScrolls = *t.TrackScrolls
	}
	if t.TrackHovers != nil {
		out.TrackHovers = *t.TrackHovers
	}
	if t.SampleRate != nil {
		if *t.SampleRate < 0 || *t.SampleRate > 1 {
			return base, fmt.Errorf("sample-rate must be within [0,1], got %v", *t.SampleRate)
		}
		out.SampleRate = *t.SampleRate
	}
	if t.SampleMode != nil {
		switch *t.SampleMode {
		case models.SampleModeSession, models.SampleModeEvent:
			out.SampleMode = *t.SampleMode
		default:
			return base, fmt.Errorf("sample-mode must be %q or %q, got %q", models.SampleModeSession, models.SampleModeEvent, *t.SampleMode)
		}
	}
	if t.ExcludeElements != nil {
		out.ExcludeElements = append([]string(nil), (*t.ExcludeElements)...)
	}
	if t.ScrollDebounceMs != nil && *t.ScrollDebounceMs > 0 {
		out.ScrollDebounceMs = *t.ScrollDebounceMs
	}
	if t.LogLimit != nil && *t.LogLimit > 0 {
		out.LogLimit = *t.LogLimit
	}
	return out, nil
}
