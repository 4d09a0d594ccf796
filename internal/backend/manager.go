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
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

// degradeThreshold is the number of consecutive write failures after which
// a handle is marked degraded. Degraded handles are kept (and reported) but
// skipped on subsequent writes.
const degradeThreshold = 5

// Handle pairs a device with its health bookkeeping. Handles are owned
// exclusively by the Manager.
type Handle struct {
	dev Device

	consecutiveFails int
	degraded         bool
	lastWritten      float64
	lastWriteTime    time.Time
	lastError        string
}

// Health is an immutable snapshot of one handle's state, published through
// the control interface.
type Health struct {
	ID           string       `json:"id"`
	Backend      string       `json:"backend"`
	Capabilities Capabilities `json:"capabilities"`
	Degraded     bool         `json:"degraded"`
	LastWritten  float64      `json:"last_written"`
	LastError    string       `json:"last_error,omitempty"`
}

// Manager owns every device handle and is the only component issuing
// hardware writes. It is driven from the control loop; concurrent use is
// limited to health snapshots from the control interface.
type Manager struct {
	mu      sync.Mutex
	handles []*Handle
	logger  *slog.Logger
}

// ProbeOptions selects which backends to try.
type ProbeOptions struct {
	// Method is the configured brightness method: auto, backlight,
	// ddcutil, session or dummy.
	Method string
	// SysfsRoot overrides the backlight class directory (tests).
	SysfsRoot string
	// DDCDisplay is the ddcutil display number probed for the ddcutil
	// method.
	DDCDisplay int
	// DryRun forces the dummy backend regardless of method.
	DryRun bool
}

// Probe enumerates usable devices. Probing never fails the daemon: an
// empty set is a valid (if critical) outcome the caller escalates through
// its own state machine.
func Probe(ctx context.Context, opts ProbeOptions, logger *slog.Logger) *Manager {
	m := &Manager{logger: logger}

	if opts.SysfsRoot == "" {
		opts.SysfsRoot = DefaultSysfsRoot
	}
	if opts.DDCDisplay == 0 {
		opts.DDCDisplay = 1
	}

	if opts.DryRun || opts.Method == "dummy" {
		m.add(NewDummy())
		return m
	}

	// Prefer sysfs: silent and fast enough for high-frequency transition
	// steps. Session and DDC backends are additive when they bring
	// something sysfs lacks (color temperature, external monitors).
	if opts.Method == "auto" || opts.Method == "backlight" {
		devices, err := ProbeSysfs(opts.SysfsRoot)
		if err != nil {
			logger.Debug("sysfs probe failed", slog.Any("error", err))
		}
		for _, dev := range devices {
			m.add(dev)
		}
	}

	if opts.Method == "auto" || opts.Method == "session" {
		if dev, err := NewSession(); err == nil {
			m.add(dev)
		} else {
			logger.Debug("session backend unavailable", slog.Any("error", err))
		}
	}

	if opts.Method == "ddcutil" || (opts.Method == "auto" && len(m.handles) == 0) {
		if dev, err := ProbeDDC(ctx, opts.DDCDisplay); err == nil {
			m.add(dev)
		} else {
			logger.Debug("ddc backend unavailable", slog.Any("error", err))
		}
	}

	return m
}

// NewManager builds a manager over explicit devices (tests, dry runs).
func NewManager(logger *slog.Logger, devices ...Device) *Manager {
	m := &Manager{logger: logger}
	for _, dev := range devices {
		m.add(dev)
	}
	return m
}

func (m *Manager) add(dev Device) {
	m.mu.Lock()
	m.handles = append(m.handles, &Handle{dev: dev})
	m.mu.Unlock()
	m.logger.Info("backend registered",
		slog.String("device", dev.ID()),
		slog.String("backend", dev.Name()))
}

// Empty reports whether probing found no usable device.
func (m *Manager) Empty() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.handles) == 0
}

// Apply fans the decided value out to every capable, non-degraded handle.
// Devices lacking color temperature support have the kelvin field dropped.
//
// The returned error is the most severe failure seen: ErrPermissionDenied
// wins over ErrDeviceUnavailable, and nil means at least every healthy
// handle accepted the write. A device failure never aborts the fanout for
// the remaining devices.
func (m *Manager) Apply(ctx context.Context, pct float64, kelvin int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var worst error

	for _, h := range m.handles {
		if h.degraded {
			continue
		}
		caps := h.dev.Capabilities()
		if caps.ReadOnly || !caps.Brightness {
			continue
		}

		k := kelvin
		if !caps.ColorTemp {
			k = 0
		}

		err := h.dev.Write(ctx, pct, k)
		if err == nil {
			h.consecutiveFails = 0
			h.lastWritten = pct
			h.lastWriteTime = time.Now()
			h.lastError = ""
			recordWrite(h.dev.ID())
			continue
		}

		h.consecutiveFails++
		h.lastError = err.Error()
		recordWriteError(h.dev.ID())
		m.logger.Warn("backend write failed",
			slog.String("device", h.dev.ID()),
			slog.Int("consecutive_fails", h.consecutiveFails),
			slog.Any("error", err))

		if h.consecutiveFails >= degradeThreshold {
			h.degraded = true
			recordDegraded()
			m.logger.Error("backend degraded after repeated failures",
				slog.String("device", h.dev.ID()))
		}

		if errors.Is(err, ErrPermissionDenied) {
			worst = ErrPermissionDenied
		} else if worst == nil {
			worst = err
		}
	}

	return worst
}

// Read returns the brightness of the first healthy readable device, used
// to seed the guard at startup.
func (m *Manager) Read(ctx context.Context) (float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, h := range m.handles {
		if h.degraded {
			continue
		}
		pct, err := h.dev.Read(ctx)
		if err == nil {
			return pct, nil
		}
	}
	return 0, ErrDeviceUnavailable
}

// Healthy reports whether at least one writable handle is not degraded.
func (m *Manager) Healthy() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, h := range m.handles {
		caps := h.dev.Capabilities()
		if !h.degraded && caps.Brightness && !caps.ReadOnly {
			return true
		}
	}
	return false
}

// HealthSnapshot returns per-handle health for the control interface.
func (m *Manager) HealthSnapshot() []Health {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Health, 0, len(m.handles))
	for _, h := range m.handles {
		out = append(out, Health{
			ID:           h.dev.ID(),
			Backend:      h.dev.Name(),
			Capabilities: h.dev.Capabilities(),
			Degraded:     h.degraded,
			LastWritten:  h.lastWritten,
			LastError:    h.lastError,
		})
	}
	return out
}

// SupportsColorTemp reports whether any healthy handle accepts kelvin.
func (m *Manager) SupportsColorTemp() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, h := range m.handles {
		if !h.degraded && h.dev.Capabilities().ColorTemp {
			return true
		}
	}
	return false
}

// Close releases every handle.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, h := range m.handles {
		if err := h.dev.Close(); err != nil {
			m.logger.Warn("backend close failed",
				slog.String("device", h.dev.ID()),
				slog.Any("error", err))
		}
	}
}
