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

package api

import (
	"time"

	"github.com/luxdim/luxd/internal/analyzer"
	"github.com/luxdim/luxd/internal/backend"
	"github.com/luxdim/luxd/internal/circadian"
	"github.com/luxdim/luxd/internal/guard"
)

// Status is the full daemon snapshot served by GET /v1/status. It is
// assembled by the control loop and published atomically, so handlers
// never block the loop.
type Status struct {
	State     string            `json:"state"`
	Since     time.Time         `json:"since"`
	Tick      uint64            `json:"tick"`
	Guard     guard.State       `json:"guard"`
	Manual    *float64          `json:"manual,omitempty"`
	Circadian *circadian.Target `json:"circadian,omitempty"`
	Analyzer  analyzer.State    `json:"analyzer"`
	Backends  []backend.Health  `json:"backends"`
}

// Controller is the daemon surface the API needs. All mutations are
// queued; none touches hardware on the request path.
type Controller interface {
	Status() Status
	SetManual(level float64) error
	ClearManual() error
	TriggerEmergency() error
	ClearEmergency() error
	SetProtection(on bool) error
	SetWake(hour, minute int) error
	Reload() error
}
