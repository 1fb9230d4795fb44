// Package config loads the knob table shared by the tilemap streaming
// engine, the attention scheduler, and the persistent world store.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the recognized knob set from the engine's configuration
// surface. Every field has a spec-mandated default applied by Defaults.
type Config struct {
	BaseSafeZoneRatio     float64 `yaml:"base_safe_zone_ratio"`
	VelocitySmoothing     float64 `yaml:"velocity_smoothing"`
	StopThresholdPxMs     float64 `yaml:"stop_threshold_px_ms"`
	MaxSpeedPxMs          float64 `yaml:"max_speed_px_ms"`
	TeleportThresholdPxMs float64 `yaml:"teleport_threshold_px_ms"`
	PredictionTimeMs      int     `yaml:"prediction_time_ms"`
	BaseThreshold         float64 `yaml:"base_threshold"`
	AggressiveThreshold   float64 `yaml:"aggressive_threshold"`
	DirectionDominance    float64 `yaml:"direction_dominance_ratio"`
	CenterDebounceDelayMs int     `yaml:"center_debounce_delay_ms"`

	TickFastMs   int `yaml:"tick_fast_ms"`
	TickMediumMs int `yaml:"tick_medium_ms"`
	TickSlowMs   int `yaml:"tick_slow_ms"`

	AdmissionDebounceMs int `yaml:"as_admission_debounce_ms"`
	TickIntervalMs      int `yaml:"as_tick_ms"`
	GreedyDelayMs       int `yaml:"as_greedy_delay_ms"`

	AutosaveIntervalMs int `yaml:"autosave_interval_ms"`

	TileSize int `yaml:"tile_size"`
	MinZoom  float64 `yaml:"min_zoom"`
}

// Defaults returns the documented knob table.
func Defaults() Config {
	return Config{
		BaseSafeZoneRatio:     0.4,
		VelocitySmoothing:     0.7,
		StopThresholdPxMs:     0.5,
		MaxSpeedPxMs:          10,
		TeleportThresholdPxMs: 20,
		PredictionTimeMs:      300,
		BaseThreshold:         0.33,
		AggressiveThreshold:   0.50,
		DirectionDominance:    1.2,
		CenterDebounceDelayMs: 600,

		TickFastMs:   50,
		TickMediumMs: 100,
		TickSlowMs:   200,

		AdmissionDebounceMs: 100,
		TickIntervalMs:      1000,
		GreedyDelayMs:       30000,

		AutosaveIntervalMs: 30000,

		TileSize: 32,
		MinZoom:  0.5,
	}
}

// Load reads a YAML file and overlays it on top of Defaults. A missing
// file is not fatal to the caller: it returns the os error so callers
// that can fall back to Defaults() (e.g. a resumed world) may do so.
func Load(path string) (Config, error) {
	cfg := Defaults()
	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

func (c Config) PredictionTime() time.Duration {
	return time.Duration(c.PredictionTimeMs) * time.Millisecond
}

func (c Config) CenterDebounceDelay() time.Duration {
	return time.Duration(c.CenterDebounceDelayMs) * time.Millisecond
}

func (c Config) AdmissionDebounce() time.Duration {
	return time.Duration(c.AdmissionDebounceMs) * time.Millisecond
}

func (c Config) TickInterval() time.Duration {
	return time.Duration(c.TickIntervalMs) * time.Millisecond
}

func (c Config) GreedyDelay() time.Duration {
	return time.Duration(c.GreedyDelayMs) * time.Millisecond
}

func (c Config) AutosaveInterval() time.Duration {
	return time.Duration(c.AutosaveIntervalMs) * time.Millisecond
}

func (c Config) TickFast() time.Duration {
	return time.Duration(c.TickFastMs) * time.Millisecond
}

func (c Config) TickMedium() time.Duration {
	return time.Duration(c.TickMediumMs) * time.Millisecond
}

func (c Config) TickSlow() time.Duration {
	return time.Duration(c.TickSlowMs) * time.Millisecond
}
