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
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastRetryDDC(runner func(ctx context.Context, args ...string) ([]byte, error)) *DDC {
	d := NewDDC(1)
	d.retry = ddcRetry{attempts: 2, initial: time.Millisecond}
	d.runner = runner
	return d
}

func TestDDCReadParsesBriefOutput(t *testing.T) {
	d := fastRetryDDC(func(ctx context.Context, args ...string) ([]byte, error) {
		assert.Equal(t, "getvcp", args[0])
		return []byte("VCP 10 C 30 100\n"), nil
	})

	pct, err := d.Read(context.Background())
	require.NoError(t, err)
	assert.InDelta(t, 30.0, pct, 0.001)
}

func TestDDCReadRejectsGarbage(t *testing.T) {
	d := fastRetryDDC(func(ctx context.Context, args ...string) ([]byte, error) {
		return []byte("ERR\n"), nil
	})

	_, err := d.Read(context.Background())
	assert.ErrorIs(t, err, ErrDeviceUnavailable)
}

func TestDDCWriteRoundsValue(t *testing.T) {
	var got []string
	d := fastRetryDDC(func(ctx context.Context, args ...string) ([]byte, error) {
		got = args
		return nil, nil
	})

	require.NoError(t, d.Write(context.Background(), 72.6, 0))
	require.True(t, len(got) >= 3)
	assert.Equal(t, "setvcp", got[0])
	assert.Equal(t, "73", got[2])
}

func TestDDCRetriesOnBusyThenSucceeds(t *testing.T) {
	calls := 0
	d := fastRetryDDC(func(ctx context.Context, args ...string) ([]byte, error) {
		calls++
		if calls < 3 {
			return nil, errors.New("DDC communication failed (bus busy)")
		}
		return []byte("VCP 10 C 50 100"), nil
	})

	_, err := d.Read(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestDDCReportsUnavailableAfterBudget(t *testing.T) {
	calls := 0
	d := fastRetryDDC(func(ctx context.Context, args ...string) ([]byte, error) {
		calls++
		return nil, errors.New("bus busy")
	})

	_, err := d.Read(context.Background())
	require.ErrorIs(t, err, ErrDeviceUnavailable)
	assert.Equal(t, 3, calls, "initial attempt plus two retries")
	assert.True(t, strings.Contains(err.Error(), "busy"))
}

func TestDDCRespectsContextDuringBackoff(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	d := fastRetryDDC(func(ctx context.Context, args ...string) ([]byte, error) {
		cancel()
		return nil, errors.New("busy")
	})
	d.retry.initial = time.Minute

	_, err := d.Read(ctx)
	assert.ErrorIs(t, err, ErrDeviceUnavailable)
}
