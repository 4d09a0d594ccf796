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

package circadian

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/luxdim/luxd/internal/config"
)

func TestWeatherFactorMapping(t *testing.T) {
	cases := map[string]float64{
		"Clear":              1.0,
		"Sunny":              1.0,
		"Partly cloudy":      0.9,
		"Cloudy":             0.8,
		"Overcast":           0.8,
		"Mist":               0.8,
		"Fog":                0.8,
		"Light rain":         0.7,
		"Patchy rain nearby": 0.7,
		"Blowing snow":       0.7,
		"Thundery outbreaks": 0.7,
		"":                   1.0,
		"Volcanic ash":       1.0,
	}
	for condition, want := range cases {
		assert.Equal(t, want, weatherFactor(condition), "condition %q", condition)
	}
}

func newWeatherTest(t *testing.T, endpoint string) *WeatherStore {
	t.Helper()
	cfg := config.Default()
	cfg.Weather.Endpoint = endpoint
	return newWeatherStore(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestWeatherFetchPublishesSample(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "Partly cloudy\n")
	}))
	defer srv.Close()

	w := newWeatherTest(t, srv.URL)
	require.NoError(t, w.Fetch(context.Background()))

	sample := w.Sample()
	require.NotNil(t, sample)
	assert.Equal(t, "Partly cloudy", sample.Condition)
	assert.Equal(t, 0.9, sample.Factor)
	assert.False(t, sample.FetchedAt.IsZero())
}

func TestWeatherFetchFailureKeepsLastSample(t *testing.T) {
	fail := true
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if fail {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		io.WriteString(w, "Clear")
	}))
	defer srv.Close()

	w := newWeatherTest(t, srv.URL)

	err := w.Fetch(context.Background())
	assert.ErrorIs(t, err, ErrDataSourceUnavailable)
	assert.Nil(t, w.Sample())

	fail = false
	require.NoError(t, w.Fetch(context.Background()))
	require.NotNil(t, w.Sample())

	fail = true
	assert.ErrorIs(t, w.Fetch(context.Background()), ErrDataSourceUnavailable)
	assert.Equal(t, "Clear", w.Sample().Condition)
}

func TestWeatherDisabledSkipsFetch(t *testing.T) {
	cfg := config.Default()
	cfg.Weather.Enabled = false
	w := newWeatherStore(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))

	assert.NoError(t, w.Fetch(context.Background()))
	assert.Nil(t, w.Sample())
}
