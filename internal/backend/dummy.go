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
	"sync"
)

// Dummy is an in-memory device used for --dry-run and tests.
type Dummy struct {
	mu         sync.Mutex
	brightness float64
	kelvin     int
	writes     int

	// FailWith, when set, is returned by every Write.
	FailWith error
}

// NewDummy creates a dummy device starting at 50%.
func NewDummy() *Dummy {
	return &Dummy{brightness: 50}
}

// ID returns the device identifier.
func (d *Dummy) ID() string { return "dummy" }

// Name returns the backend description.
func (d *Dummy) Name() string { return "dummy" }

// Capabilities reports both brightness and color temperature so dry runs
// exercise the full write path.
func (d *Dummy) Capabilities() Capabilities {
	return Capabilities{Brightness: true, ColorTemp: true}
}

// Read returns the last written brightness.
func (d *Dummy) Read(ctx context.Context) (float64, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.brightness, nil
}

// Write stores the value.
func (d *Dummy) Write(ctx context.Context, pct float64, kelvin int) error {
	if err := checkRange(pct); err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.FailWith != nil {
		return d.FailWith
	}
	d.brightness = pct
	if kelvin > 0 {
		d.kelvin = kelvin
	}
	d.writes++
	return nil
}

// Close is a no-op.
func (d *Dummy) Close() error { return nil }

// Writes returns the number of successful writes, for tests.
func (d *Dummy) Writes() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.writes
}

// Kelvin returns the last written color temperature, for tests.
func (d *Dummy) Kelvin() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.kelvin
}
