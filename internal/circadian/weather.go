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
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/luxdim/luxd/internal/config"
)

// minWeatherFactor bounds how far weather may dim the target.
const minWeatherFactor = 0.6

// WeatherSample is one fetched weather condition and the brightness factor
// derived from it.
type WeatherSample struct {
	Condition string    `json:"condition"`
	Factor    float64   `json:"factor"`
	FetchedAt time.Time `json:"fetched_at"`
}

// WeatherStore fetches the current condition from a wttr.in style endpoint
// and publishes the latest sample atomically. A failed fetch keeps the
// previous sample; staleness is the caller's concern.
type WeatherStore struct {
	enabled  bool
	endpoint string
	client   *http.Client
	sample   atomic.Pointer[WeatherSample]
	logger   *slog.Logger
}

func newWeatherStore(cfg *config.Config, logger *slog.Logger) *WeatherStore {
	return &WeatherStore{
		enabled:  cfg.Weather.Enabled,
		endpoint: cfg.Weather.Endpoint,
		client:   &http.Client{Timeout: cfg.WeatherTimeout()},
		logger:   logger,
	}
}

// Enabled reports whether weather fetching is configured on.
func (w *WeatherStore) Enabled() bool { return w.enabled }

// Sample returns the latest fetched sample, or nil when none succeeded yet
// or fetching is disabled.
func (w *WeatherStore) Sample() *WeatherSample {
	if !w.enabled {
		return nil
	}
	return w.sample.Load()
}

// Fetch retrieves the current condition and publishes it. Errors wrap
// ErrDataSourceUnavailable.
func (w *WeatherStore) Fetch(ctx context.Context) error {
	if !w.enabled {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, w.endpoint, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDataSourceUnavailable, err)
	}
	req.Header.Set("User-Agent", "luxd")

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDataSourceUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: weather endpoint returned %s", ErrDataSourceUnavailable, resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDataSourceUnavailable, err)
	}

	condition := strings.TrimSpace(string(body))
	sample := &WeatherSample{
		Condition: condition,
		Factor:    weatherFactor(condition),
		FetchedAt: time.Now(),
	}
	w.sample.Store(sample)

	w.logger.Debug("weather updated",
		slog.String("condition", sample.Condition),
		slog.Float64("factor", sample.Factor))
	return nil
}

// weatherFactor maps a free-text condition onto a brightness multiplier.
// Unknown conditions leave the target untouched.
func weatherFactor(condition string) float64 {
	c := strings.ToLower(condition)

	var f float64
	switch {
	case c == "":
		f = 1.0
	case strings.Contains(c, "thunder"),
		strings.Contains(c, "rain"),
		strings.Contains(c, "drizzle"),
		strings.Contains(c, "snow"),
		strings.Contains(c, "sleet"):
		f = 0.7
	case strings.Contains(c, "partly"):
		f = 0.9
	case strings.Contains(c, "cloud"),
		strings.Contains(c, "overcast"),
		strings.Contains(c, "mist"),
		strings.Contains(c, "fog"),
		strings.Contains(c, "haze"):
		f = 0.8
	case strings.Contains(c, "clear"), strings.Contains(c, "sun"):
		f = 1.0
	default:
		f = 1.0
	}

	if f < minWeatherFactor {
		f = minWeatherFactor
	}
	return f
}
