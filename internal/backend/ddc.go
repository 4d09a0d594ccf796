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
	"os/exec"
	"strconv"
	"strings"
	"time"
)

// VCP feature code 0x10 is the standard luminance control.
const ddcBrightnessFeature = "10"

// ddcRetry bounds the busy-retry budget for DDC transactions. The I2C bus
// is frequently busy right after another transaction; a short linear
// backoff clears most of it. Exhausting the budget reports
// ErrDeviceUnavailable.
type ddcRetry struct {
	attempts int
	initial  time.Duration
}

func defaultDDCRetry() ddcRetry {
	return ddcRetry{attempts: 3, initial: 100 * time.Millisecond}
}

// delay returns the linear backoff before the given 1-based retry.
func (r ddcRetry) delay(attempt int) time.Duration {
	return time.Duration(attempt) * r.initial
}

// DDC controls an external monitor through the ddcutil command-line tool.
// DDC/CI transactions carry inherent latency (tens to hundreds of
// milliseconds) so this backend must only ever be driven from off the hot
// write path or with the bounded retry budget.
type DDC struct {
	display int
	retry   ddcRetry

	// runner is swapped in tests to avoid invoking ddcutil.
	runner func(ctx context.Context, args ...string) ([]byte, error)
}

// NewDDC creates a device for the given ddcutil display number (1-based).
func NewDDC(display int) *DDC {
	return &DDC{
		display: display,
		retry:   defaultDDCRetry(),
		runner: func(ctx context.Context, args ...string) ([]byte, error) {
			return exec.CommandContext(ctx, "ddcutil", args...).Output()
		},
	}
}

// ProbeDDC detects whether ddcutil can talk to the given display. A failed
// probe returns ErrNotSupported rather than an error the daemon would act
// on.
func ProbeDDC(ctx context.Context, display int) (*DDC, error) {
	d := NewDDC(display)
	if _, err := d.Read(ctx); err != nil {
		return nil, fmt.Errorf("%w: ddcutil display %d: %v", ErrNotSupported, display, err)
	}
	return d, nil
}

// ID returns the display identifier.
func (d *DDC) ID() string { return fmt.Sprintf("ddc-%d", d.display) }

// Name returns the backend description.
func (d *DDC) Name() string { return "ddc/ci (ddcutil)" }

// Capabilities reports raw brightness support only.
func (d *DDC) Capabilities() Capabilities {
	return Capabilities{Brightness: true}
}

// Read queries the current luminance VCP value.
func (d *DDC) Read(ctx context.Context) (float64, error) {
	out, err := d.run(ctx, "getvcp", ddcBrightnessFeature, "--display", strconv.Itoa(d.display), "--brief")
	if err != nil {
		return 0, err
	}

	// Brief format: "VCP 10 C <current> <max>"
	fields := strings.Fields(string(out))
	if len(fields) < 5 {
		return 0, fmt.Errorf("%w: unexpected getvcp output %q", ErrDeviceUnavailable, strings.TrimSpace(string(out)))
	}
	cur, err1 := strconv.ParseFloat(fields[3], 64)
	maxV, err2 := strconv.ParseFloat(fields[4], 64)
	if err1 != nil || err2 != nil || maxV <= 0 {
		return 0, fmt.Errorf("%w: unparseable getvcp output %q", ErrDeviceUnavailable, strings.TrimSpace(string(out)))
	}
	return cur / maxV * 100.0, nil
}

// Write sets the luminance VCP value. The kelvin argument is ignored.
func (d *DDC) Write(ctx context.Context, pct float64, kelvin int) error {
	if err := checkRange(pct); err != nil {
		return err
	}
	val := strconv.Itoa(int(math.Round(pct)))
	_, err := d.run(ctx, "setvcp", ddcBrightnessFeature, val, "--display", strconv.Itoa(d.display))
	return err
}

// Close is a no-op; each transaction spawns its own process.
func (d *DDC) Close() error { return nil }

// run executes ddcutil with the bounded retry budget.
func (d *DDC) run(ctx context.Context, args ...string) ([]byte, error) {
	var lastErr error
	for attempt := 0; attempt <= d.retry.attempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, fmt.Errorf("%w: %v", ErrDeviceUnavailable, ctx.Err())
			case <-time.After(d.retry.delay(attempt)):
			}
		}

		out, err := d.runner(ctx, args...)
		if err == nil {
			return out, nil
		}
		lastErr = err
	}
	return nil, fmt.Errorf("%w: ddcutil failed after %d attempts: %v", ErrDeviceUnavailable, d.retry.attempts+1, lastErr)
}
