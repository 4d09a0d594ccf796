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

// Package circadian computes the automatic brightness and color temperature
// target from the sun's position, modulated by weather and power state.
package circadian

import (
	"errors"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/luxdim/luxd/internal/config"
)

// ErrDataSourceUnavailable is returned when an external input (weather)
// cannot be fetched. The engine keeps producing targets from its last known
// state; the error only marks the data as stale.
var ErrDataSourceUnavailable = errors.New("circadian: data source unavailable")

// DefaultPowerSupplyRoot is where the kernel exposes battery state.
const DefaultPowerSupplyRoot = "/sys/class/power_supply"

// batteryFactor dims the target while running on battery.
const batteryFactor = 0.8

// Target is the engine's opinion for one instant.
type Target struct {
	Level     float64   `json:"level"`
	Kelvin    int       `json:"kelvin"`
	Elevation float64   `json:"elevation"`
	Weather   string    `json:"weather,omitempty"`
	OnBattery bool      `json:"on_battery"`
	Asleep    bool      `json:"asleep"`
	At        time.Time `json:"at"`
}

// Engine derives circadian targets. Compute is cheap and side-effect free;
// the weather sample is updated out of band by a background job.
type Engine struct {
	lat, lon float64
	loc      *time.Location

	mu       sync.Mutex
	wakeHour int
	wakeMin  int

	minBrightness float64
	maxBrightness float64

	weather *WeatherStore

	powerRoot string
	logger    *slog.Logger
}

// New builds an engine from the location, brightness and general sections
// of cfg.
func New(cfg *config.Config, logger *slog.Logger) *Engine {
	lat, lon := 41.0082, 28.9784
	if cfg.Location.Latitude != nil {
		lat = *cfg.Location.Latitude
	}
	if cfg.Location.Longitude != nil {
		lon = *cfg.Location.Longitude
	}

	loc := time.Local
	if cfg.Location.Timezone != "" {
		if l, err := time.LoadLocation(cfg.Location.Timezone); err == nil {
			loc = l
		} else {
			logger.Warn("unknown timezone, using system local",
				slog.String("timezone", cfg.Location.Timezone))
		}
	}

	h, m := cfg.WakeClock()
	return &Engine{
		lat:           lat,
		lon:           lon,
		loc:           loc,
		wakeHour:      h,
		wakeMin:       m,
		minBrightness: cfg.Brightness.MinBrightness,
		maxBrightness: cfg.Brightness.MaxBrightness,
		weather:       newWeatherStore(cfg, logger),
		powerRoot:     DefaultPowerSupplyRoot,
		logger:        logger,
	}
}

// SetWake changes the wake time used for the sleep floor.
func (e *Engine) SetWake(hour, minute int) {
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return
	}
	e.mu.Lock()
	e.wakeHour, e.wakeMin = hour, minute
	e.mu.Unlock()
}

// Wake returns the configured wake time.
func (e *Engine) Wake() (hour, minute int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.wakeHour, e.wakeMin
}

// Weather exposes the engine's weather fetcher for background scheduling.
func (e *Engine) Weather() *WeatherStore { return e.weather }

// SolarElevation returns the sun's elevation above the horizon in degrees
// for the engine's location, using the simplified NOAA solar position
// algorithm. Positive is day, negative night.
func (e *Engine) SolarElevation(at time.Time) float64 {
	utc := at.UTC()

	doy := float64(utc.YearDay())
	hour := float64(utc.Hour()) + float64(utc.Minute())/60 + float64(utc.Second())/3600

	// Fractional year in radians.
	gamma := (2 * math.Pi / 365) * (doy - 1 + (hour-12)/24)

	// Equation of time, minutes.
	eqTime := 229.18 * (0.000075 +
		0.001868*math.Cos(gamma) - 0.032077*math.Sin(gamma) -
		0.014615*math.Cos(2*gamma) - 0.040849*math.Sin(2*gamma))

	// Solar declination, radians.
	decl := 0.006918 -
		0.399912*math.Cos(gamma) + 0.070257*math.Sin(gamma) -
		0.006758*math.Cos(2*gamma) + 0.000907*math.Sin(2*gamma) -
		0.002697*math.Cos(3*gamma) + 0.00148*math.Sin(3*gamma)

	// True solar time, minutes; 4 minutes per degree of longitude.
	tst := hour*60 + eqTime + 4*e.lon

	// Hour angle, degrees to radians.
	ha := (tst / 4) - 180
	haRad := ha * math.Pi / 180

	latRad := e.lat * math.Pi / 180
	cosZenith := math.Sin(latRad)*math.Sin(decl) + math.Cos(latRad)*math.Cos(decl)*math.Cos(haRad)
	zenith := math.Acos(cosZenith)

	return 90 - zenith*180/math.Pi
}

// Compute returns the circadian target for the given instant.
func (e *Engine) Compute(at time.Time) Target {
	elevation := e.SolarElevation(at)

	t := Target{
		Elevation: elevation,
		At:        at,
	}

	raw := rawCurve(elevation)
	t.Kelvin = kelvinCurve(elevation)

	if e.asleep(at) {
		raw = sleepRaw
		t.Asleep = true
	}

	if w := e.weather.Sample(); w != nil {
		raw *= w.Factor
		t.Weather = w.Condition
	}

	level := e.minBrightness + (raw/100)*(e.maxBrightness-e.minBrightness)

	if e.onBattery() {
		level *= batteryFactor
		t.OnBattery = true
	}

	if level < e.minBrightness {
		level = e.minBrightness
	}
	if level > e.maxBrightness {
		level = e.maxBrightness
	}
	t.Level = level

	return t
}

// sleepRaw is the pre-rescale brightness used before wake time.
const sleepRaw = 10.0

// rawCurve maps solar elevation to a 0..100 brightness before rescaling
// into the configured range. Bands: day ramp above 6 degrees, civil
// twilight down to -6, nautical twilight down to -12, flat night below.
func rawCurve(elevation float64) float64 {
	switch {
	case elevation > 6:
		progress := (elevation - 6) / 40
		if progress > 1 {
			progress = 1
		}
		return 50 + 50*progress
	case elevation > -6:
		progress := (6 - elevation) / 12
		return 50 - 20*progress
	case elevation > -12:
		progress := (-6 - elevation) / 6
		return 30 - 10*progress
	default:
		return 20
	}
}

// kelvinCurve maps solar elevation to color temperature: full daylight at
// 6500K, warming through the twilight bands to 2700K at night.
func kelvinCurve(elevation float64) int {
	switch {
	case elevation > 6:
		return 6500
	case elevation > -6:
		progress := (6 - elevation) / 12
		return 6500 - int(math.Round(3000*progress))
	case elevation > -12:
		progress := (-6 - elevation) / 6
		return 3500 - int(math.Round(800*progress))
	default:
		return 2700
	}
}

// asleep reports whether local time is before the configured wake time.
// The floor only applies to the early-morning hours; evenings are handled
// by the elevation curve.
func (e *Engine) asleep(at time.Time) bool {
	e.mu.Lock()
	wh, wm := e.wakeHour, e.wakeMin
	e.mu.Unlock()

	local := at.In(e.loc)
	h, m := local.Hour(), local.Minute()
	return h < wh || (h == wh && m < wm)
}

// onBattery reports whether any battery is discharging.
func (e *Engine) onBattery() bool {
	matches, err := filepath.Glob(filepath.Join(e.powerRoot, "BAT*", "status"))
	if err != nil {
		return false
	}
	for _, path := range matches {
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		if strings.EqualFold(strings.TrimSpace(string(data)), "Discharging") {
			return true
		}
	}
	return false
}
