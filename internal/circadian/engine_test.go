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

package circadian

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/luxdim/luxd/internal/config"
)

func testEngine(t *testing.T) *Engine {
	t.Helper()
	cfg := config.Default()
	cfg.Location.Timezone = "UTC"
	cfg.Weather.Enabled = false
	e := New(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	e.powerRoot = t.TempDir()
	return e
}

func TestSolarElevationDayNight(t *testing.T) {
	e := testEngine(t)

	// Istanbul, midsummer midday: sun well above the horizon.
	noon := time.Date(2026, 6, 21, 10, 0, 0, 0, time.UTC)
	assert.Greater(t, e.SolarElevation(noon), 45.0)

	// Same location in the middle of the night.
	night := time.Date(2026, 6, 21, 22, 30, 0, 0, time.UTC)
	assert.Less(t, e.SolarElevation(night), -10.0)
}

func TestSolarElevationRisesThroughMorning(t *testing.T) {
	e := testEngine(t)

	prev := e.SolarElevation(time.Date(2026, 3, 15, 4, 0, 0, 0, time.UTC))
	for h := 5; h <= 10; h++ {
		cur := e.SolarElevation(time.Date(2026, 3, 15, h, 0, 0, 0, time.UTC))
		assert.Greater(t, cur, prev, "elevation must rise toward solar noon")
		prev = cur
	}
}

func TestRawCurveBands(t *testing.T) {
	cases := []struct {
		elevation float64
		want      float64
	}{
		{50, 100},  // day ramp saturated
		{26, 75},   // halfway up the day ramp
		{6.001, 50},
		{0, 40},    // civil twilight
		{-6, 30},
		{-9, 25},   // nautical twilight
		{-12, 20},
		{-40, 20},  // deep night
	}
	for _, tc := range cases {
		assert.InDelta(t, tc.want, rawCurve(tc.elevation), 0.01, "elevation %.1f", tc.elevation)
	}
}

func TestKelvinCurveBands(t *testing.T) {
	assert.Equal(t, 6500, kelvinCurve(10))
	assert.Equal(t, 5000, kelvinCurve(0))
	assert.Equal(t, 3500, kelvinCurve(-6))
	assert.Equal(t, 3100, kelvinCurve(-9))
	assert.Equal(t, 2700, kelvinCurve(-20))
}

func TestComputeRescalesIntoConfiguredRange(t *testing.T) {
	e := testEngine(t)

	// Deep night, after wake time: raw 20 maps to 15 + 0.20*(95-15).
	at := time.Date(2026, 1, 10, 23, 0, 0, 0, time.UTC)
	got := e.Compute(at)
	assert.InDelta(t, 31.0, got.Level, 0.01)
	assert.Equal(t, 2700, got.Kelvin)
	assert.False(t, got.Asleep)
}

func TestComputeSleepFloorBeforeWake(t *testing.T) {
	e := testEngine(t)

	at := time.Date(2026, 1, 10, 5, 0, 0, 0, time.UTC)
	got := e.Compute(at)
	require.True(t, got.Asleep)
	assert.InDelta(t, 23.0, got.Level, 0.01) // 15 + 0.10*(95-15)

	// Moving the wake time earlier lifts the floor.
	e.SetWake(4, 30)
	got = e.Compute(at)
	assert.False(t, got.Asleep)
}

func TestComputeBatteryDimming(t *testing.T) {
	e := testEngine(t)

	dir := filepath.Join(e.powerRoot, "BAT0")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "status"), []byte("Discharging\n"), 0o644))

	at := time.Date(2026, 1, 10, 23, 0, 0, 0, time.UTC)
	got := e.Compute(at)
	require.True(t, got.OnBattery)
	assert.InDelta(t, 31.0*0.8, got.Level, 0.01)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "status"), []byte("Charging\n"), 0o644))
	got = e.Compute(at)
	assert.False(t, got.OnBattery)
}

func TestComputeAppliesWeatherFactor(t *testing.T) {
	cfg := config.Default()
	cfg.Location.Timezone = "UTC"
	e := New(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	e.powerRoot = t.TempDir()

	e.weather.sample.Store(&WeatherSample{Condition: "Light rain", Factor: 0.7})

	at := time.Date(2026, 1, 10, 23, 0, 0, 0, time.UTC)
	got := e.Compute(at)
	assert.Equal(t, "Light rain", got.Weather)
	assert.InDelta(t, 15+0.14*80, got.Level, 0.01)
}

func TestComputeNeverLeavesRange(t *testing.T) {
	e := testEngine(t)
	for h := 0; h < 24; h++ {
		got := e.Compute(time.Date(2026, 7, 1, h, 0, 0, 0, time.UTC))
		assert.GreaterOrEqual(t, got.Level, 15.0)
		assert.LessOrEqual(t, got.Level, 95.0)
	}
}
