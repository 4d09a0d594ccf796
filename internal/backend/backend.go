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

// Package backend abstracts the brightness-capable devices luxd writes to.
//
// All hardware mutation in the daemon funnels through this package. Callers
// are expected to pre-clamp percentages to the configured range; a backend
// only rejects values outside [0, 100].
package backend

import (
	"context"
	"errors"
)

var (
	// ErrDeviceUnavailable is returned when a device cannot be reached.
	// The condition is considered transient; callers retry on later ticks.
	ErrDeviceUnavailable = errors.New("backend: device unavailable")

	// ErrPermissionDenied is returned when the process lacks write access
	// to the device. Remediation is external (group membership, udev
	// rules); the daemon must not retry blindly.
	ErrPermissionDenied = errors.New("backend: permission denied")

	// ErrOutOfRange is returned for percentages outside [0, 100].
	ErrOutOfRange = errors.New("backend: value out of range")

	// ErrNotSupported is returned at probe time when a backend cannot
	// serve on this system.
	ErrNotSupported = errors.New("backend: not supported")
)

// Capabilities describes what a device can do. Candidate target fields a
// device does not support are silently dropped by the manager.
type Capabilities struct {
	// Brightness indicates the device accepts raw percentage writes.
	Brightness bool
	// ColorTemp indicates the device accepts a color temperature in
	// kelvin.
	ColorTemp bool
	// ReadOnly indicates the device can be read but never written.
	ReadOnly bool
}

// Device is a single brightness-capable output.
type Device interface {
	// ID returns a stable identifier for the device (sysfs name, display
	// number, bus name).
	ID() string

	// Name returns a human-readable backend description.
	Name() string

	// Capabilities reports what writes are meaningful for this device.
	Capabilities() Capabilities

	// Read returns the current brightness percentage in [0, 100].
	Read(ctx context.Context) (float64, error)

	// Write applies a brightness percentage and, when kelvin > 0 and the
	// device supports it, a color temperature. Percentage must be within
	// [0, 100]; the caller pre-clamps to the configured range.
	Write(ctx context.Context, pct float64, kelvin int) error

	// Close releases any resources held for the device.
	Close() error
}

func checkRange(pct float64) error {
	if pct < 0 || pct > 100 {
		return ErrOutOfRange
	}
	return nil
}
