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

import (
	"fmt"

	"github.com/luxdim/luxd/internal/backend"
)

type commandKind int

const (
	cmdSetManual commandKind = iota
	cmdClearManual
	cmdEmergencyStop
	cmdClearEmergency
	cmdSetProtection
	cmdSetWake
	cmdReload
)

func (k commandKind) String() string {
	switch k {
	case cmdSetManual:
		return "set_manual"
	case cmdClearManual:
		return "clear_manual"
	case cmdEmergencyStop:
		return "emergency_stop"
	case cmdClearEmergency:
		return "clear_emergency"
	case cmdSetProtection:
		return "set_protection"
	case cmdSetWake:
		return "set_wake"
	case cmdReload:
		return "reload"
	default:
		return "unknown"
	}
}

// command is one queued mutation. Commands are produced by the control
// interface and the signal handler, and consumed only by the control loop
// at its merge point; nothing outside the loop touches hardware.
type command struct {
	kind   commandKind
	level  float64
	on     bool
	hour   int
	minute int
}

// commandQueueSize bounds the pending command queue. The loop drains it
// every 8ms, so a full queue means the loop is wedged.
const commandQueueSize = 64

func (d *Daemon) enqueue(cmd command) error {
	select {
	case d.cmds <- cmd:
		return nil
	default:
		return fmt.Errorf("command queue full: %w", backend.ErrDeviceUnavailable)
	}
}

// SetManual requests a manual brightness override, applied at the next
// tick.
func (d *Daemon) SetManual(level float64) error {
	cfg := d.cfg.Load()
	if level < cfg.Brightness.MinBrightness || level > cfg.Brightness.MaxBrightness {
		return fmt.Errorf("%w: brightness %.1f outside [%.1f, %.1f]",
			backend.ErrOutOfRange, level, cfg.Brightness.MinBrightness, cfg.Brightness.MaxBrightness)
	}
	return d.enqueue(command{kind: cmdSetManual, level: level})
}

// ClearManual removes the manual override, returning control to the
// circadian engine.
func (d *Daemon) ClearManual() error {
	return d.enqueue(command{kind: cmdClearManual})
}

// TriggerEmergency requests an emergency stop.
func (d *Daemon) TriggerEmergency() error {
	return d.enqueue(command{kind: cmdEmergencyStop})
}

// ClearEmergency lifts an emergency stop.
func (d *Daemon) ClearEmergency() error {
	return d.enqueue(command{kind: cmdClearEmergency})
}

// SetProtection toggles flash protection.
func (d *Daemon) SetProtection(on bool) error {
	return d.enqueue(command{kind: cmdSetProtection, on: on})
}

// SetWake changes the wake time for the circadian sleep floor.
func (d *Daemon) SetWake(hour, minute int) error {
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return fmt.Errorf("%w: wake time %02d:%02d", backend.ErrOutOfRange, hour, minute)
	}
	return d.enqueue(command{kind: cmdSetWake, hour: hour, minute: minute})
}

// Reload requests a configuration reload.
func (d *Daemon) Reload() error {
	return d.enqueue(command{kind: cmdReload})
}
