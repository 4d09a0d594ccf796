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

// Package metrics exposes the daemon's Prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ticks counts control loop iterations
	ticks = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "luxd_ticks_total",
			Help: "Total control loop ticks",
		},
	)

	// tickDuration tracks how long one tick takes
	tickDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "luxd_tick_duration_seconds",
			Help:    "Control loop tick duration",
			Buckets: []float64{.0001, .0005, .001, .002, .004, .008, .016, .05},
		},
	)

	// brightness is the last value written to hardware
	brightness = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "luxd_brightness_percent",
			Help: "Last brightness percentage applied to hardware",
		},
	)

	// colorTemp is the last color temperature written
	colorTemp = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "luxd_color_temperature_kelvin",
			Help: "Last color temperature applied to hardware",
		},
	)

	// transitions counts accepted brightness transitions by source
	transitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "luxd_transitions_total",
			Help: "Total accepted brightness transitions by source",
		},
		[]string{"source"},
	)

	// rateLimited counts targets rejected by the change rate limit
	rateLimited = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "luxd_rate_limited_total",
			Help: "Total brightness targets rejected by the change rate limit",
		},
	)

	// flashes counts detected content flashes
	flashes = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "luxd_flashes_total",
			Help: "Total content flashes detected",
		},
	)

	// emergencies counts emergency stop activations
	emergencies = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "luxd_emergency_stops_total",
			Help: "Total emergency stop activations",
		},
	)

	// daemonState reflects the state machine as a numeric enum
	daemonState = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "luxd_daemon_state",
			Help: "Daemon state: 0 initializing, 1 running, 2 safe_mode, 3 emergency, 4 degraded, 5 shutting_down",
		},
	)

	// weatherFactor is the active weather brightness multiplier
	weatherFactor = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "luxd_weather_factor",
			Help: "Active weather brightness multiplier",
		},
	)
)

// RecordTick increments the tick counter and records its duration.
func RecordTick(seconds float64) {
	ticks.Inc()
	tickDuration.Observe(seconds)
}

// RecordApplied sets the applied brightness and color temperature gauges.
func RecordApplied(pct float64, kelvin int) {
	brightness.Set(pct)
	if kelvin > 0 {
		colorTemp.Set(float64(kelvin))
	}
}

// RecordTransition increments the transition counter for a source.
func RecordTransition(source string) {
	transitions.WithLabelValues(source).Inc()
}

// RecordRateLimited increments the rate-limit rejection counter.
func RecordRateLimited() {
	rateLimited.Inc()
}

// RecordFlash increments the flash counter.
func RecordFlash() {
	flashes.Inc()
}

// RecordEmergency increments the emergency stop counter.
func RecordEmergency() {
	emergencies.Inc()
}

// RecordDaemonState sets the state machine gauge.
func RecordDaemonState(state int) {
	daemonState.Set(float64(state))
}

// RecordWeatherFactor sets the weather multiplier gauge.
func RecordWeatherFactor(f float64) {
	weatherFactor.Set(f)
}
