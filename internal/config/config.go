// Copyright 2025 The luxd Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package config loads and validates the luxd configuration file.
//
// Configuration is TOML, by default at /etc/auto-brightness/config.toml.
// A loaded Config is an immutable snapshot: the daemon never mutates it and
// replaces the whole value atomically on reload.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

// DefaultPath is the default location of the configuration file.
const DefaultPath = "/etc/auto-brightness/config.toml"

// ErrInvalid is returned when the configuration fails validation.
// The wrapped message names the offending key and the violated constraint.
var ErrInvalid = errors.New("config: invalid configuration")

// Config is the full daemon configuration.
type Config struct {
	General    GeneralConfig    `toml:"general"`
	Location   LocationConfig   `toml:"location"`
	Protection ProtectionConfig `toml:"epilepsy_protection"`
	Brightness BrightnessConfig `toml:"brightness"`
	Weather    WeatherConfig    `toml:"weather"`
	Analyzer   AnalyzerConfig   `toml:"analyzer"`
}

// GeneralConfig holds daemon-wide settings.
type GeneralConfig struct {
	Enabled  bool   `toml:"enabled"`
	Mode     string `toml:"mode"` // normal, safe, sleep
	LogLevel string `toml:"log_level"`
	// WakeTime is the local HH:MM before which the sleep brightness floor
	// applies.
	WakeTime string `toml:"wake_time"`
}

// LocationConfig determines how the daemon resolves its position for the
// solar elevation computation.
type LocationConfig struct {
	Method    string   `toml:"method"` // auto, manual
	Latitude  *float64 `toml:"latitude"`
	Longitude *float64 `toml:"longitude"`
	Timezone  string   `toml:"timezone"`
}

// ProtectionConfig holds the epilepsy protection parameters enforced by the
// transition guard.
type ProtectionConfig struct {
	Enabled            bool    `toml:"enabled"`
	MinTransitionTime  float64 `toml:"min_transition_time_seconds"`
	MaxChangesPerSec   float64 `toml:"max_changes_per_second"`
	SmoothSteps        int     `toml:"smooth_steps"`
	EmergencyHotkey    string  `toml:"emergency_hotkey"`
	SafeModeBrightness float64 `toml:"safe_mode_brightness"`
}

// BrightnessConfig bounds the brightness output range and selects the
// hardware method.
type BrightnessConfig struct {
	Method            string  `toml:"method"` // auto, backlight, ddcutil, session, dummy
	MinBrightness     float64 `toml:"min_brightness"`
	MaxBrightness     float64 `toml:"max_brightness"`
	DefaultBrightness float64 `toml:"default_brightness"`
}

// WeatherConfig controls the background weather fetch.
type WeatherConfig struct {
	Enabled         bool   `toml:"enabled"`
	Endpoint        string `toml:"endpoint"`
	IntervalMinutes int    `toml:"interval_minutes"`
	TimeoutSeconds  int    `toml:"timeout_seconds"`
}

// AnalyzerConfig controls the content/flash analyzer.
type AnalyzerConfig struct {
	Enabled bool `toml:"enabled"`
	// Command is the screenshot argv used to sample screen content. The
	// last element must be the output path placeholder {out}.
	Command []string `toml:"command"`
	// IntervalMillis bounds the sampling rate.
	IntervalMillis int `toml:"interval_millis"`
	// FlashThreshold is the luminance delta (fraction of full range, 0..1)
	// between consecutive samples that counts as a flash.
	FlashThreshold float64 `toml:"flash_threshold"`
	// WindowSize is the number of samples kept in the rolling history.
	WindowSize int `toml:"window_size"`
}

// Default returns the built-in defaults, matching the documented example
// configuration shipped with the installer.
func Default() *Config {
	lat, lon := 41.0082, 28.9784
	return &Config{
		General: GeneralConfig{
			Enabled:  true,
			Mode:     "normal",
			LogLevel: "info",
			WakeTime: "07:00",
		},
		Location: LocationConfig{
			Method:    "auto",
			Latitude:  &lat,
			Longitude: &lon,
			Timezone:  "Europe/Istanbul",
		},
		Protection: ProtectionConfig{
			Enabled:            true,
			MinTransitionTime:  2.0,
			MaxChangesPerSec:   3.0,
			SmoothSteps:        50,
			EmergencyHotkey:    "Ctrl+Alt+B",
			SafeModeBrightness: 40.0,
		},
		Brightness: BrightnessConfig{
			Method:            "auto",
			MinBrightness:     15.0,
			MaxBrightness:     95.0,
			DefaultBrightness: 50.0,
		},
		Weather: WeatherConfig{
			Enabled:         true,
			Endpoint:        "https://wttr.in/?format=%C",
			IntervalMinutes: 30,
			TimeoutSeconds:  10,
		},
		Analyzer: AnalyzerConfig{
			Enabled:        true,
			Command:        []string{"spectacle", "-b", "-n", "-f", "-m", "0", "-o", "{out}"},
			IntervalMillis: 1000,
			FlashThreshold: 0.35,
			WindowSize:     8,
		},
	}
}

// Load reads the configuration file at path and validates it. A missing
// file is not an error: the built-in defaults are returned so the daemon
// can run before the installer has written a config.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultPath
	}

	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, cfg.Validate()
		}
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks every invariant the safety layer depends on. It returns
// ErrInvalid wrapped with the offending key so startup failures are
// actionable.
func (c *Config) Validate() error {
	b := c.Brightness
	if b.MinBrightness < 0 {
		return invalidf("brightness.min_brightness", "must be >= 0, got %.1f", b.MinBrightness)
	}
	if b.MinBrightness >= b.DefaultBrightness {
		return invalidf("brightness.default_brightness", "must be > min_brightness (%.1f), got %.1f", b.MinBrightness, b.DefaultBrightness)
	}
	if b.DefaultBrightness > b.MaxBrightness {
		return invalidf("brightness.max_brightness", "must be >= default_brightness (%.1f), got %.1f", b.DefaultBrightness, b.MaxBrightness)
	}
	if b.MaxBrightness > 100 {
		return invalidf("brightness.max_brightness", "must be <= 100, got %.1f", b.MaxBrightness)
	}

	p := c.Protection
	if p.MaxChangesPerSec <= 0 {
		return invalidf("epilepsy_protection.max_changes_per_second", "must be > 0, got %.2f", p.MaxChangesPerSec)
	}
	if p.SmoothSteps < 1 {
		return invalidf("epilepsy_protection.smooth_steps", "must be >= 1, got %d", p.SmoothSteps)
	}
	if p.MinTransitionTime < 0.5 {
		return invalidf("epilepsy_protection.min_transition_time_seconds", "must be >= 0.5 for safety, got %.2f", p.MinTransitionTime)
	}
	if p.SafeModeBrightness < b.MinBrightness || p.SafeModeBrightness > b.MaxBrightness {
		return invalidf("epilepsy_protection.safe_mode_brightness", "must be within [%.1f, %.1f], got %.1f", b.MinBrightness, b.MaxBrightness, p.SafeModeBrightness)
	}

	switch c.General.Mode {
	case "normal", "safe", "sleep":
	default:
		return invalidf("general.mode", "must be one of normal, safe, sleep; got %q", c.General.Mode)
	}

	if _, err := time.Parse("15:04", c.General.WakeTime); err != nil {
		return invalidf("general.wake_time", "must be HH:MM, got %q", c.General.WakeTime)
	}

	if c.Location.Method == "manual" {
		if c.Location.Latitude == nil || c.Location.Longitude == nil {
			return invalidf("location.latitude", "manual location requires latitude and longitude")
		}
		if *c.Location.Latitude < -90 || *c.Location.Latitude > 90 {
			return invalidf("location.latitude", "must be within [-90, 90], got %.4f", *c.Location.Latitude)
		}
		if *c.Location.Longitude < -180 || *c.Location.Longitude > 180 {
			return invalidf("location.longitude", "must be within [-180, 180], got %.4f", *c.Location.Longitude)
		}
	}
	if c.Location.Timezone != "" {
		if _, err := time.LoadLocation(c.Location.Timezone); err != nil {
			return invalidf("location.timezone", "unknown timezone %q", c.Location.Timezone)
		}
	}

	if c.Analyzer.Enabled {
		if c.Analyzer.FlashThreshold <= 0 || c.Analyzer.FlashThreshold > 1 {
			return invalidf("analyzer.flash_threshold", "must be in (0, 1], got %.2f", c.Analyzer.FlashThreshold)
		}
		if c.Analyzer.WindowSize < 2 {
			return invalidf("analyzer.window_size", "must be >= 2, got %d", c.Analyzer.WindowSize)
		}
		if c.Analyzer.IntervalMillis < 50 {
			return invalidf("analyzer.interval_millis", "must be >= 50, got %d", c.Analyzer.IntervalMillis)
		}
	}

	if c.Weather.Enabled {
		if c.Weather.IntervalMinutes < 1 {
			return invalidf("weather.interval_minutes", "must be >= 1, got %d", c.Weather.IntervalMinutes)
		}
		if c.Weather.TimeoutSeconds < 1 {
			return invalidf("weather.timeout_seconds", "must be >= 1, got %d", c.Weather.TimeoutSeconds)
		}
	}

	return nil
}

// MinTransition returns the transition-time floor as a duration.
func (c *Config) MinTransition() time.Duration {
	return time.Duration(c.Protection.MinTransitionTime * float64(time.Second))
}

// WeatherInterval returns the weather fetch period.
func (c *Config) WeatherInterval() time.Duration {
	return time.Duration(c.Weather.IntervalMinutes) * time.Minute
}

// WeatherTimeout returns the per-fetch timeout.
func (c *Config) WeatherTimeout() time.Duration {
	return time.Duration(c.Weather.TimeoutSeconds) * time.Second
}

// AnalyzerInterval returns the minimum spacing between content samples.
func (c *Config) AnalyzerInterval() time.Duration {
	return time.Duration(c.Analyzer.IntervalMillis) * time.Millisecond
}

// WakeClock returns the configured wake time as hour and minute.
func (c *Config) WakeClock() (hour, minute int) {
	t, err := time.Parse("15:04", c.General.WakeTime)
	if err != nil {
		return 7, 0
	}
	return t.Hour(), t.Minute()
}

func invalidf(key, format string, args ...any) error {
	return fmt.Errorf("%w: %s: %s", ErrInvalid, key, fmt.Sprintf(format, args...))
}
