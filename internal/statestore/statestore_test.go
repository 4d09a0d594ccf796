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

package statestore

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTest(t *testing.T) (*Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "state.db")
	s, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s, path
}

func TestLoadFreshDatabase(t *testing.T) {
	s, _ := openTest(t)

	_, found, err := s.Load(context.Background())
	require.NoError(t, err)
	assert.False(t, found)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	s, _ := openTest(t)
	ctx := context.Background()

	manual := 72.5
	require.NoError(t, s.Save(ctx, State{
		Brightness:   63.0,
		Manual:       &manual,
		ProtectionOn: true,
		WakeHour:     6,
		WakeMinute:   45,
	}))

	got, found, err := s.Load(ctx)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, 63.0, got.Brightness)
	require.NotNil(t, got.Manual)
	assert.Equal(t, 72.5, *got.Manual)
	assert.True(t, got.ProtectionOn)
	assert.Equal(t, 6, got.WakeHour)
	assert.Equal(t, 45, got.WakeMinute)
	assert.False(t, got.UpdatedAt.IsZero())
}

func TestSaveOverwritesSingleRow(t *testing.T) {
	s, _ := openTest(t)
	ctx := context.Background()

	manual := 80.0
	require.NoError(t, s.Save(ctx, State{Brightness: 50, Manual: &manual, ProtectionOn: true, WakeHour: 7}))
	require.NoError(t, s.Save(ctx, State{Brightness: 30, ProtectionOn: false, WakeHour: 8, WakeMinute: 15}))

	got, found, err := s.Load(ctx)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, 30.0, got.Brightness)
	assert.Nil(t, got.Manual, "clearing the override must persist as NULL")
	assert.False(t, got.ProtectionOn)
	assert.Equal(t, 8, got.WakeHour)

	var count int
	require.NoError(t, s.db.QueryRow("SELECT COUNT(*) FROM daemon_state").Scan(&count))
	assert.Equal(t, 1, count)
}

func TestStateSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.db")
	ctx := context.Background()

	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.Save(ctx, State{Brightness: 42, WakeHour: 7}))
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()

	got, found, err := s.Load(ctx)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, 42.0, got.Brightness)
}
