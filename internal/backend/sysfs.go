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
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// DefaultSysfsRoot is the standard backlight class directory.
const DefaultSysfsRoot = "/sys/class/backlight"

// Sysfs writes raw backlight values through /sys/class/backlight. It is the
// preferred backend when writable: silent (no desktop OSD) and fast enough
// for high-frequency transition steps.
type Sysfs struct {
	name          string
	devicePath    string
	maxBrightness float64
}

// NewSysfs opens the named backlight device under root (pass
// DefaultSysfsRoot outside tests). Write permission is verified up front so
// a device the daemon cannot drive is rejected at probe time rather than
// surfacing as a failure on the first tick.
func NewSysfs(root, name string) (*Sysfs, error) {
	base := filepath.Join(root, name)
	if _, err := os.Stat(base); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrNotSupported, base)
	}

	brightnessPath := filepath.Join(base, "brightness")
	f, err := os.OpenFile(brightnessPath, os.O_WRONLY, 0)
	if err != nil {
		if os.IsPermission(err) {
			return nil, fmt.Errorf("%w: %s", ErrPermissionDenied, brightnessPath)
		}
		return nil, fmt.Errorf("%w: %v", ErrDeviceUnavailable, err)
	}
	f.Close()

	raw, err := os.ReadFile(filepath.Join(base, "max_brightness"))
	if err != nil {
		return nil, fmt.Errorf("%w: read max_brightness: %v", ErrDeviceUnavailable, err)
	}
	maxB, err := strconv.ParseFloat(strings.TrimSpace(string(raw)), 64)
	if err != nil || maxB <= 0 {
		return nil, fmt.Errorf("%w: bad max_brightness %q", ErrNotSupported, strings.TrimSpace(string(raw)))
	}

	return &Sysfs{name: name, devicePath: base, maxBrightness: maxB}, nil
}

// ProbeSysfs enumerates backlight devices under root and returns a device
// for each writable one.
func ProbeSysfs(root string) ([]*Sysfs, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotSupported, err)
	}

	var devices []*Sysfs
	for _, entry := range entries {
		dev, err := NewSysfs(root, entry.Name())
		if err != nil {
			continue
		}
		devices = append(devices, dev)
	}
	return devices, nil
}

// ID returns the backlight device name.
func (s *Sysfs) ID() string { return s.name }

// Name returns the backend description.
func (s *Sysfs) Name() string { return "backlight (sysfs)" }

// Capabilities reports raw brightness support only.
func (s *Sysfs) Capabilities() Capabilities {
	return Capabilities{Brightness: true}
}

// Read returns the current brightness as a percentage of max_brightness.
func (s *Sysfs) Read(ctx context.Context) (float64, error) {
	raw, err := os.ReadFile(filepath.Join(s.devicePath, "brightness"))
	if err != nil {
		if os.IsPermission(err) {
			return 0, ErrPermissionDenied
		}
		return 0, fmt.Errorf("%w: %v", ErrDeviceUnavailable, err)
	}
	val, err := strconv.ParseFloat(strings.TrimSpace(string(raw)), 64)
	if err != nil {
		return 0, fmt.Errorf("%w: bad brightness value %q", ErrDeviceUnavailable, strings.TrimSpace(string(raw)))
	}
	return val / s.maxBrightness * 100.0, nil
}

// Write scales the percentage into the device's raw range and writes it.
// The kelvin argument is ignored; sysfs has no color temperature support.
func (s *Sysfs) Write(ctx context.Context, pct float64, kelvin int) error {
	if err := checkRange(pct); err != nil {
		return err
	}

	raw := int(math.Round(pct / 100.0 * s.maxBrightness))
	err := os.WriteFile(filepath.Join(s.devicePath, "brightness"), []byte(strconv.Itoa(raw)), 0o644)
	if err != nil {
		if os.IsPermission(err) {
			return ErrPermissionDenied
		}
		return fmt.Errorf("%w: %v", ErrDeviceUnavailable, err)
	}
	return nil
}

// Close is a no-op; sysfs holds no persistent handle.
func (s *Sysfs) Close() error { return nil }
