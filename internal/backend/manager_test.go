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
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestManagerAppliesToAllDevices(t *testing.T) {
	a, b := NewDummy(), NewDummy()
	m := NewManager(testLogger(), a, b)

	require.NoError(t, m.Apply(context.Background(), 60, 4500))

	got, _ := a.Read(context.Background())
	assert.Equal(t, 60.0, got)
	got, _ = b.Read(context.Background())
	assert.Equal(t, 60.0, got)
	assert.Equal(t, 4500, a.Kelvin())
}

func TestManagerReportsPermissionDeniedAsWorst(t *testing.T) {
	ok := NewDummy()
	denied := NewDummy()
	denied.FailWith = ErrPermissionDenied

	m := NewManager(testLogger(), denied, ok)

	err := m.Apply(context.Background(), 40, 0)
	assert.ErrorIs(t, err, ErrPermissionDenied)

	// The healthy device must still have been written.
	got, _ := ok.Read(context.Background())
	assert.Equal(t, 40.0, got)
}

func TestManagerDegradesAfterRepeatedFailures(t *testing.T) {
	failing := NewDummy()
	failing.FailWith = ErrDeviceUnavailable
	m := NewManager(testLogger(), failing)

	for i := 0; i < degradeThreshold; i++ {
		err := m.Apply(context.Background(), 50, 0)
		assert.ErrorIs(t, err, ErrDeviceUnavailable)
	}

	health := m.HealthSnapshot()
	require.Len(t, health, 1)
	assert.True(t, health[0].Degraded)
	assert.False(t, m.Healthy())

	// Degraded handles are skipped, not retried.
	assert.NoError(t, m.Apply(context.Background(), 50, 0))
}

func TestManagerRecoveryResetsFailureCount(t *testing.T) {
	flaky := NewDummy()
	m := NewManager(testLogger(), flaky)

	for i := 0; i < degradeThreshold-1; i++ {
		flaky.FailWith = ErrDeviceUnavailable
		assert.Error(t, m.Apply(context.Background(), 50, 0))
	}
	flaky.FailWith = nil
	require.NoError(t, m.Apply(context.Background(), 50, 0))

	flaky.FailWith = ErrDeviceUnavailable
	assert.Error(t, m.Apply(context.Background(), 50, 0))

	health := m.HealthSnapshot()
	require.Len(t, health, 1)
	assert.False(t, health[0].Degraded, "one failure after a success must not degrade")
}

func TestManagerEmptyProbe(t *testing.T) {
	m := Probe(context.Background(), ProbeOptions{Method: "backlight", SysfsRoot: t.TempDir()}, testLogger())
	assert.True(t, m.Empty())
	assert.False(t, m.Healthy())

	_, err := m.Read(context.Background())
	assert.ErrorIs(t, err, ErrDeviceUnavailable)
}

func TestManagerDryRunUsesDummy(t *testing.T) {
	m := Probe(context.Background(), ProbeOptions{Method: "backlight", DryRun: true}, testLogger())
	require.False(t, m.Empty())
	assert.True(t, m.SupportsColorTemp())

	health := m.HealthSnapshot()
	require.Len(t, health, 1)
	assert.Equal(t, "dummy", health[0].ID)
}

func TestManagerHealthSnapshotTracksWrites(t *testing.T) {
	m := Probe(context.Background(), ProbeOptions{DryRun: true}, testLogger())
	require.NoError(t, m.Apply(context.Background(), 77.5, 0))

	health := m.HealthSnapshot()
	require.Len(t, health, 1)
	assert.Equal(t, 77.5, health[0].LastWritten)
	assert.Empty(t, health[0].LastError)
}
