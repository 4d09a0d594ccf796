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

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	require.NoError(t, Default().Validate())
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	require.NoError(t, err)
	assert.Equal(t, Default().Brightness, cfg.Brightness)
}

func TestLoadParsesSections(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
[general]
enabled = true
mode = "normal"
log_level = "debug"
wake_time = "06:30"

[location]
method = "manual"
latitude = 51.5074
longitude = -0.1278
timezone = "Europe/London"

[epilepsy_protection]
enabled = true
min_transition_time_seconds = 2.0
max_changes_per_second = 3.0
smooth_steps = 50
emergency_hotkey = "Ctrl+Alt+B"
safe_mode_brightness = 40.0

[brightness]
method = "backlight"
min_brightness = 15.0
max_brightness = 95.0
default_brightness = 50.0
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.General.LogLevel)
	assert.Equal(t, "backlight", cfg.Brightness.Method)
	assert.Equal(t, 51.5074, *cfg.Location.Latitude)
	assert.Equal(t, "Europe/London", cfg.Location.Timezone)
	assert.Equal(t, 50, cfg.Protection.SmoothSteps)

	h, m := cfg.WakeClock()
	assert.Equal(t, 6, h)
	assert.Equal(t, 30, m)
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantKey string
	}{
		{
			name:    "min above default",
			mutate:  func(c *Config) { c.Brightness.MinBrightness = 60 },
			wantKey: "brightness.default_brightness",
		},
		{
			name:    "default above max",
			mutate:  func(c *Config) { c.Brightness.DefaultBrightness = 99 },
			wantKey: "brightness.max_brightness",
		},
		{
			name:    "max above 100",
			mutate:  func(c *Config) { c.Brightness.MaxBrightness = 120 },
			wantKey: "brightness.max_brightness",
		},
		{
			name:    "negative min",
			mutate:  func(c *Config) { c.Brightness.MinBrightness = -5 },
			wantKey: "brightness.min_brightness",
		},
		{
			name:    "zero change rate",
			mutate:  func(c *Config) { c.Protection.MaxChangesPerSec = 0 },
			wantKey: "epilepsy_protection.max_changes_per_second",
		},
		{
			name:    "no smooth steps",
			mutate:  func(c *Config) { c.Protection.SmoothSteps = 0 },
			wantKey: "epilepsy_protection.smooth_steps",
		},
		{
			name:    "transition floor too short",
			mutate:  func(c *Config) { c.Protection.MinTransitionTime = 0.1 },
			wantKey: "epilepsy_protection.min_transition_time_seconds",
		},
		{
			name:    "safe mode outside range",
			mutate:  func(c *Config) { c.Protection.SafeModeBrightness = 5 },
			wantKey: "epilepsy_protection.safe_mode_brightness",
		},
		{
			name:    "unknown mode",
			mutate:  func(c *Config) { c.General.Mode = "party" },
			wantKey: "general.mode",
		},
		{
			name:    "bad wake time",
			mutate:  func(c *Config) { c.General.WakeTime = "25:99" },
			wantKey: "general.wake_time",
		},
		{
			name: "manual location without coordinates",
			mutate: func(c *Config) {
				c.Location.Method = "manual"
				c.Location.Latitude = nil
			},
			wantKey: "location.latitude",
		},
		{
			name:    "bad timezone",
			mutate:  func(c *Config) { c.Location.Timezone = "Mars/Olympus" },
			wantKey: "location.timezone",
		},
		{
			name:    "flash threshold above 1",
			mutate:  func(c *Config) { c.Analyzer.FlashThreshold = 1.5 },
			wantKey: "analyzer.flash_threshold",
		},
		{
			name:    "window too small",
			mutate:  func(c *Config) { c.Analyzer.WindowSize = 1 },
			wantKey: "analyzer.window_size",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)

			err := cfg.Validate()
			require.ErrorIs(t, err, ErrInvalid)
			assert.Contains(t, err.Error(), tt.wantKey)
		})
	}
}

func TestLoadRejectsInvalidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
[brightness]
min_brightness = 80.0
max_brightness = 95.0
default_brightness = 50.0
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	_, err := Load(path)
	require.ErrorIs(t, err, ErrInvalid)
}

func TestLoadRejectsMalformedTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("[brightness\nmin = "), 0o600))

	_, err := Load(path)
	require.Error(t, err)
}
