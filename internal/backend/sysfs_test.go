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
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeBacklight creates a fake backlight device directory.
func writeBacklight(t *testing.T, root, name, max, current string) string {
	t.Helper()
	dir := filepath.Join(root, name)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "max_brightness"), []byte(max+"\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "brightness"), []byte(current+"\n"), 0o644))
	return dir
}

func TestSysfsReadScalesToPercent(t *testing.T) {
	root := t.TempDir()
	writeBacklight(t, root, "intel_backlight", "400", "100")

	dev, err := NewSysfs(root, "intel_backlight")
	require.NoError(t, err)

	pct, err := dev.Read(context.Background())
	require.NoError(t, err)
	assert.InDelta(t, 25.0, pct, 0.001)
}

func TestSysfsWriteScalesFromPercent(t *testing.T) {
	root := t.TempDir()
	dir := writeBacklight(t, root, "amdgpu_bl0", "255", "0")

	dev, err := NewSysfs(root, "amdgpu_bl0")
	require.NoError(t, err)

	require.NoError(t, dev.Write(context.Background(), 50, 0))

	raw, err := os.ReadFile(filepath.Join(dir, "brightness"))
	require.NoError(t, err)
	assert.Equal(t, "128", strings.TrimSpace(string(raw)))
}

func TestSysfsWriteRejectsOutOfRange(t *testing.T) {
	root := t.TempDir()
	writeBacklight(t, root, "bl", "100", "50")

	dev, err := NewSysfs(root, "bl")
	require.NoError(t, err)

	assert.ErrorIs(t, dev.Write(context.Background(), 101, 0), ErrOutOfRange)
	assert.ErrorIs(t, dev.Write(context.Background(), -1, 0), ErrOutOfRange)
}

func TestNewSysfsMissingDevice(t *testing.T) {
	_, err := NewSysfs(t.TempDir(), "nope")
	assert.ErrorIs(t, err, ErrNotSupported)
}

func TestNewSysfsBadMaxBrightness(t *testing.T) {
	root := t.TempDir()
	writeBacklight(t, root, "bl", "garbage", "50")

	_, err := NewSysfs(root, "bl")
	assert.ErrorIs(t, err, ErrNotSupported)
}

func TestProbeSysfsSkipsUnusableDevices(t *testing.T) {
	root := t.TempDir()
	writeBacklight(t, root, "good", "100", "50")
	// Device directory without the expected files.
	require.NoError(t, os.MkdirAll(filepath.Join(root, "broken"), 0o755))

	devices, err := ProbeSysfs(root)
	require.NoError(t, err)
	require.Len(t, devices, 1)
	assert.Equal(t, "good", devices[0].ID())
}
