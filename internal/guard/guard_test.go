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

package guard

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/luxdim/luxd/internal/config"
)

var t0 = time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)

func newGuard(t *testing.T) *Guard {
	t.Helper()
	g := New(config.Default(), slog.New(slog.NewTextHandler(io.Discard, nil)))
	g.Seed(50)
	return g
}

// drain runs the loop cadence against the guard until the transition ends
// or the deadline passes, returning every emitted value.
func drain(g *Guard, from time.Time, deadline time.Duration) []float64 {
	var out []float64
	for d := time.Duration(0); d <= deadline; d += 8 * time.Millisecond {
		if v, _, ok := g.Tick(from.Add(d)); ok {
			out = append(out, v)
		}
	}
	return out
}

func TestMergePicksHighestPrecedence(t *testing.T) {
	got, ok := Merge(
		Target{Level: 70, Source: SourceCircadian},
		Target{Level: 30, Source: SourceFlashGuard},
		Target{Level: 55, Source: SourceManual},
	)
	require.True(t, ok)
	assert.Equal(t, SourceFlashGuard, got.Source)
	assert.Equal(t, 30.0, got.Level)

	_, ok = Merge()
	assert.False(t, ok)
}

func TestSubmitClampsToConfiguredRange(t *testing.T) {
	g := newGuard(t)

	require.NoError(t, g.Submit(t0, Target{Level: 5, Source: SourceManual}))
	assert.Equal(t, 15.0, g.State().Goal)

	require.NoError(t, g.Submit(t0.Add(time.Second), Target{Level: 120, Source: SourceManual}))
	assert.Equal(t, 95.0, g.State().Goal)
}

func TestRateLimitRejectsBurst(t *testing.T) {
	g := newGuard(t)

	// Default budget is 3 changes per second.
	require.NoError(t, g.Submit(t0, Target{Level: 60, Source: SourceManual}))
	require.NoError(t, g.Submit(t0, Target{Level: 62, Source: SourceManual}))
	require.NoError(t, g.Submit(t0, Target{Level: 64, Source: SourceManual}))

	err := g.Submit(t0, Target{Level: 66, Source: SourceManual})
	assert.ErrorIs(t, err, ErrRateLimited)

	// Budget refills with time.
	assert.NoError(t, g.Submit(t0.Add(time.Second), Target{Level: 66, Source: SourceManual}))
}

func TestRepeatedTargetConsumesNoBudget(t *testing.T) {
	g := newGuard(t)

	for i := 0; i < 20; i++ {
		require.NoError(t, g.Submit(t0, Target{Level: 50, Source: SourceCircadian}))
	}
	assert.NoError(t, g.Submit(t0, Target{Level: 70, Source: SourceCircadian}))
}

func TestTransitionTakesAtLeastTheFloor(t *testing.T) {
	g := newGuard(t)
	require.NoError(t, g.Submit(t0, Target{Level: 80, Source: SourceManual}))

	v, _, ok := g.Tick(t0.Add(1990 * time.Millisecond))
	require.True(t, ok)
	assert.Less(t, v, 80.0, "must not reach the target before min_transition_time")

	v, _, ok = g.Tick(t0.Add(2 * time.Second))
	require.True(t, ok)
	assert.Equal(t, 80.0, v)
	assert.False(t, g.State().Transitioning)
}

func TestTransitionEaseMidpoint(t *testing.T) {
	g := newGuard(t)
	g.Seed(20)
	require.NoError(t, g.Submit(t0, Target{Level: 80, Source: SourceManual}))

	// The cosine ease crosses the midpoint exactly halfway through.
	v, _, ok := g.Tick(t0.Add(time.Second))
	require.True(t, ok)
	assert.InDelta(t, 50.0, v, 0.0001)
}

func TestTransitionIsMonotonic(t *testing.T) {
	g := newGuard(t)
	require.NoError(t, g.Submit(t0, Target{Level: 90, Source: SourceManual}))

	values := drain(g, t0, 2100*time.Millisecond)
	require.NotEmpty(t, values)
	for i := 1; i < len(values); i++ {
		assert.GreaterOrEqual(t, values[i], values[i-1])
	}
	assert.GreaterOrEqual(t, values[0], 50.0)
	assert.Equal(t, 90.0, values[len(values)-1])
}

func TestFlashGuardDimSkipsRateLimit(t *testing.T) {
	g := newGuard(t)

	// Exhaust the change budget.
	require.NoError(t, g.Submit(t0, Target{Level: 60, Source: SourceManual}))
	require.NoError(t, g.Submit(t0, Target{Level: 62, Source: SourceManual}))
	require.NoError(t, g.Submit(t0, Target{Level: 64, Source: SourceManual}))
	require.ErrorIs(t, g.Submit(t0, Target{Level: 66, Source: SourceManual}), ErrRateLimited)

	// A protective dim must still get through, on the fast ramp.
	require.NoError(t, g.Submit(t0, Target{Level: 20, Source: SourceFlashGuard}))

	v, _, ok := g.Tick(t0.Add(FastTransition))
	require.True(t, ok)
	assert.Equal(t, 20.0, v)
}

func TestFlashGuardIncreaseGetsNoSpecialTreatment(t *testing.T) {
	g := newGuard(t)

	require.NoError(t, g.Submit(t0, Target{Level: 60, Source: SourceManual}))
	require.NoError(t, g.Submit(t0, Target{Level: 62, Source: SourceManual}))
	require.NoError(t, g.Submit(t0, Target{Level: 64, Source: SourceManual}))

	err := g.Submit(t0, Target{Level: 90, Source: SourceFlashGuard})
	assert.ErrorIs(t, err, ErrRateLimited)
}

func TestEmergencyStopDimsAndFreezes(t *testing.T) {
	g := newGuard(t)
	g.Seed(80)

	g.EmergencyStop(t0)
	assert.Equal(t, ModeEmergency, g.Mode())

	v, _, ok := g.Tick(t0.Add(FastTransition))
	require.True(t, ok)
	assert.Equal(t, 40.0, v)

	err := g.Submit(t0.Add(time.Second), Target{Level: 70, Source: SourceManual})
	assert.ErrorIs(t, err, ErrEmergencyActive)

	g.ClearEmergency()
	assert.NoError(t, g.Submit(t0.Add(2*time.Second), Target{Level: 70, Source: SourceManual}))
}

func TestEmergencyStopBelowSafeLevelHolds(t *testing.T) {
	g := newGuard(t)
	g.Seed(20)

	g.EmergencyStop(t0)
	assert.Equal(t, 20.0, g.Current())

	_, _, ok := g.Tick(t0.Add(FastTransition))
	assert.False(t, ok, "no write needed when already below the safe level")
}

func TestSafeModeCapsTargets(t *testing.T) {
	g := newGuard(t)
	g.Seed(30)
	g.SetSafeMode(t0, true)

	require.NoError(t, g.Submit(t0, Target{Level: 90, Source: SourceManual}))
	assert.Equal(t, 40.0, g.State().Goal)

	g.SetSafeMode(t0, false)
	require.NoError(t, g.Submit(t0.Add(time.Second), Target{Level: 90, Source: SourceManual}))
	assert.Equal(t, 90.0, g.State().Goal)
}

func TestSafeModeEntryDimsFast(t *testing.T) {
	g := newGuard(t)
	g.Seed(80)
	g.SetSafeMode(t0, true)

	v, _, ok := g.Tick(t0.Add(FastTransition))
	require.True(t, ok)
	assert.Equal(t, 40.0, v)
}

func TestDisabledProtectionAppliesInstantly(t *testing.T) {
	g := newGuard(t)
	g.SetEnabled(false)

	require.NoError(t, g.Submit(t0, Target{Level: 90, Source: SourceManual}))
	v, _, ok := g.Tick(t0)
	require.True(t, ok)
	assert.Equal(t, 90.0, v)

	// No rate limiting while disabled either.
	for i := 0; i < 10; i++ {
		assert.NoError(t, g.Submit(t0, Target{Level: 50 + float64(i), Source: SourceManual}))
	}

	// The range clamp never goes away.
	require.NoError(t, g.Submit(t0, Target{Level: 120, Source: SourceManual}))
	assert.Equal(t, 95.0, g.State().Goal)
}

func TestKelvinFollowsTheSameEase(t *testing.T) {
	g := newGuard(t)
	g.Seed(20)
	require.NoError(t, g.Submit(t0, Target{Level: 80, Kelvin: 2700, Source: SourceCircadian}))

	_, k, ok := g.Tick(t0.Add(time.Second))
	require.True(t, ok)
	assert.InDelta(t, 4600, k, 1)

	_, k, ok = g.Tick(t0.Add(2 * time.Second))
	require.True(t, ok)
	assert.Equal(t, 2700, k)
}

func TestStateSnapshot(t *testing.T) {
	g := newGuard(t)
	require.NoError(t, g.Submit(t0, Target{Level: 70, Source: SourceCircadian}))

	st := g.State()
	assert.Equal(t, "normal", st.Mode)
	assert.True(t, st.Enabled)
	assert.Equal(t, 70.0, st.Goal)
	assert.Equal(t, "circadian", st.Source)
	assert.True(t, st.Transitioning)
}
