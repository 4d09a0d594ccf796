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

package backend

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// backendWrites tracks successful hardware writes per device
	backendWrites = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "luxd_backend_writes_total",
			Help: "Total successful hardware writes by device",
		},
		[]string{"device"},
	)

	// backendWriteErrors tracks failed hardware writes per device
	backendWriteErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "luxd_backend_write_errors_total",
			Help: "Total failed hardware writes by device",
		},
		[]string{"device"},
	)

	// backendDegraded tracks how many handles are currently degraded
	backendDegraded = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "luxd_backend_degraded_handles",
			Help: "Number of device handles marked degraded",
		},
	)
)

// recordWrite increments the write counter for a device.
func recordWrite(device string) {
	backendWrites.WithLabelValues(device).Inc()
}

// recordWriteError increments the error counter for a device.
func recordWriteError(device string) {
	backendWriteErrors.WithLabelValues(device).Inc()
}

// recordDegraded increments the degraded handle gauge.
func recordDegraded() {
	backendDegraded.Inc()
}
