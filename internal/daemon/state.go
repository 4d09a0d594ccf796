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

package daemon

// State is the daemon's lifecycle state, reported through the control
// interface and the state gauge.
type State int

const (
	StateInitializing State = iota
	StateRunning
	StateSafeMode
	StateEmergency
	StateDegraded
	StateShuttingDown
)

func (s State) String() string {
	switch s {
	case StateInitializing:
		return "initializing"
	case StateRunning:
		return "running"
	case StateSafeMode:
		return "safe_mode"
	case StateEmergency:
		return "emergency"
	case StateDegraded:
		return "degraded"
	case StateShuttingDown:
		return "shutting_down"
	default:
		return "unknown"
	}
}

// canTransition reports whether moving from s to next is legal. Shutting
// down is terminal; every state may enter it.
func canTransition(s, next State) bool {
	if s == next {
		return true
	}
	if next == StateShuttingDown {
		return true
	}
	switch s {
	case StateInitializing:
		return next == StateRunning || next == StateDegraded
	case StateRunning:
		return next == StateSafeMode || next == StateEmergency || next == StateDegraded
	case StateSafeMode:
		return next == StateRunning || next == StateEmergency || next == StateDegraded
	case StateEmergency:
		return next == StateRunning || next == StateSafeMode || next == StateDegraded
	case StateDegraded:
		return next == StateRunning || next == StateEmergency
	default:
		return false
	}
}
