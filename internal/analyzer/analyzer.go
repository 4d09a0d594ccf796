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

// Package analyzer watches screen content for sudden luminance jumps and
// proposes protective brightness dips. It only ever proposes decreases;
// raising brightness back is the circadian engine's job once content calms
// down.
package analyzer

import (
	"context"
	"log/slog"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"github.com/luxdim/luxd/internal/config"
)

// brightLumaKnee is the luma above which content is considered bright
// enough to scale the dip deeper, matching the aggressive dim curve.
const brightLumaKnee = 0.5

// Candidate is a one-shot protective dim proposed after a flash.
type Candidate struct {
	Level float64   `json:"level"`
	Luma  float64   `json:"luma"`
	At    time.Time `json:"at"`
}

// State is a snapshot for the status endpoint.
type State struct {
	Enabled    bool    `json:"enabled"`
	LastLuma   float64 `json:"last_luma"`
	WindowMean float64 `json:"window_mean"`
	Flashes    uint64  `json:"flashes"`
}

// Analyzer samples screen luma on its own cadence and detects flashes: a
// jump between consecutive samples larger than the configured threshold.
// Detected flashes surface as a pending Candidate the control loop
// consumes exactly once.
type Analyzer struct {
	sampler   Sampler
	limiter   *rate.Limiter
	threshold float64
	safeLevel float64

	// current returns the brightness presently on screen, so a dip is
	// computed relative to what the viewer sees.
	current func() float64

	mu      sync.Mutex
	window  []float64
	size    int
	flashes uint64

	pending atomic.Pointer[Candidate]
	enabled atomic.Bool

	logger *slog.Logger
}

// New builds an analyzer. current reports the applied brightness and must
// be safe for concurrent use.
func New(cfg *config.Config, sampler Sampler, current func() float64, logger *slog.Logger) *Analyzer {
	interval := cfg.AnalyzerInterval()
	a := &Analyzer{
		sampler:   sampler,
		limiter:   rate.NewLimiter(rate.Every(interval), 1),
		threshold: cfg.Analyzer.FlashThreshold,
		safeLevel: cfg.Protection.SafeModeBrightness,
		current:   current,
		size:      cfg.Analyzer.WindowSize,
		logger:    logger,
	}
	a.enabled.Store(cfg.Analyzer.Enabled)
	return a
}

// SetEnabled toggles flash protection at runtime. Disabling clears any
// pending candidate.
func (a *Analyzer) SetEnabled(on bool) {
	a.enabled.Store(on)
	if !on {
		a.pending.Store(nil)
	}
}

// Enabled reports whether flash protection is active.
func (a *Analyzer) Enabled() bool { return a.enabled.Load() }

// Run samples until ctx is done. Sampling is paced independently of the
// control loop; failures are logged and skipped since a missed frame is
// harmless.
func (a *Analyzer) Run(ctx context.Context) error {
	for {
		if err := a.limiter.Wait(ctx); err != nil {
			return err
		}
		if !a.enabled.Load() {
			continue
		}
		luma, err := a.sampler.Sample(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			a.logger.Debug("content sample failed", slog.Any("error", err))
			continue
		}
		a.Observe(time.Now(), luma)
	}
}

// Observe records one luma sample and runs flash detection against the
// previous one.
func (a *Analyzer) Observe(now time.Time, luma float64) {
	if !a.enabled.Load() {
		return
	}
	luma = math.Max(0, math.Min(1, luma))

	a.mu.Lock()
	var prev float64
	hasPrev := len(a.window) > 0
	if hasPrev {
		prev = a.window[len(a.window)-1]
	}
	a.window = append(a.window, luma)
	if len(a.window) > a.size {
		a.window = a.window[1:]
	}
	a.mu.Unlock()

	if !hasPrev {
		return
	}

	delta := luma - prev
	if math.Abs(delta) < a.threshold {
		return
	}

	a.mu.Lock()
	a.flashes++
	a.mu.Unlock()

	// Darkening flashes need no intervention; the screen just got easier
	// on the eyes.
	if delta < 0 {
		a.logger.Debug("dark flash observed",
			slog.Float64("delta", delta))
		return
	}

	cur := a.current()
	level := math.Min(a.safeLevel, cur*dipMultiplier(luma))
	if level >= cur {
		return
	}

	a.pending.Store(&Candidate{Level: level, Luma: luma, At: now})
	a.logger.Warn("flash detected, proposing dim",
		slog.Float64("luma", luma),
		slog.Float64("delta", delta),
		slog.Float64("level", level))
}

// TakeCandidate consumes the pending dim, if any. Each candidate is
// delivered at most once.
func (a *Analyzer) TakeCandidate() (Candidate, bool) {
	c := a.pending.Swap(nil)
	if c == nil {
		return Candidate{}, false
	}
	return *c, true
}

// State returns a snapshot for the status endpoint.
func (a *Analyzer) State() State {
	a.mu.Lock()
	defer a.mu.Unlock()

	s := State{
		Enabled: a.enabled.Load(),
		Flashes: a.flashes,
	}
	if len(a.window) > 0 {
		s.LastLuma = a.window[len(a.window)-1]
		var sum float64
		for _, v := range a.window {
			sum += v
		}
		s.WindowMean = sum / float64(len(a.window))
	}
	return s
}

// dipMultiplier maps the flash's luma onto a brightness multiplier: full
// white dims to 5% of the applied value, scaling linearly above the knee.
// Below the knee the multiplier is 1 and the dip floor is the safe level
// alone.
func dipMultiplier(luma float64) float64 {
	if luma <= brightLumaKnee {
		return 1
	}
	excess := (luma - brightLumaKnee) / (1 - brightLumaKnee)
	return 1 - excess*0.95
}
