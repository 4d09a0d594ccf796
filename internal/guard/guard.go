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

// Package guard is the single authority over every brightness change the
// daemon emits. All sources, automatic or manual, submit targets here; the
// guard clamps them, rate limits how often the setpoint may move, and turns
// each accepted move into an eased multi-step transition so the screen
// never flickers.
//
// Decreases requested by the flash guard or an emergency stop are treated
// as safety actions: they skip the rate limiter and run on a short fixed
// ramp instead of the configured transition floor.
package guard

import (
	"errors"
	"log/slog"
	"math"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/luxdim/luxd/internal/config"
)

// FastTransition is the ramp used for safety decreases. Short enough to
// defuse flashing content quickly, long enough to stay smooth on screen.
const FastTransition = 200 * time.Millisecond

var (
	// ErrRateLimited is returned when a target arrives faster than
	// max_changes_per_second allows.
	ErrRateLimited = errors.New("guard: change rate limit exceeded")
	// ErrEmergencyActive is returned for any non-emergency submission
	// while an emergency stop is in effect.
	ErrEmergencyActive = errors.New("guard: emergency stop active")
)

// Mode is the guard's protection mode.
type Mode int

const (
	ModeNormal Mode = iota
	ModeSafe
	ModeEmergency
)

func (m Mode) String() string {
	switch m {
	case ModeNormal:
		return "normal"
	case ModeSafe:
		return "safe"
	case ModeEmergency:
		return "emergency"
	default:
		return "unknown"
	}
}

// transition is one in-flight eased ramp between two setpoints.
type transition struct {
	start       float64
	end         float64
	startKelvin int
	endKelvin   int
	begin       time.Time
	duration    time.Duration
	steps       int
	issued      int
}

// eased maps linear progress t in [0,1] onto the cosine ease
// (1 - cos(pi*t)) / 2, which starts and ends with zero slope.
func eased(t float64) float64 {
	return (1 - math.Cos(math.Pi*t)) / 2
}

// State is an immutable snapshot of the guard, published through the
// control interface.
type State struct {
	Mode          string  `json:"mode"`
	Enabled       bool    `json:"protection_enabled"`
	Current       float64 `json:"current"`
	Goal          float64 `json:"goal"`
	Kelvin        int     `json:"kelvin"`
	Source        string  `json:"source"`
	Transitioning bool    `json:"transitioning"`
}

// Guard enforces the epilepsy protection constraints. All methods take an
// explicit time so the control loop and the tests share one clock.
type Guard struct {
	mu sync.Mutex

	minBrightness float64
	maxBrightness float64
	safeLevel     float64
	minTransition time.Duration
	steps         int
	enabled       bool

	limiter *rate.Limiter

	mode    Mode
	current float64
	kelvin  int
	goal    float64
	source  Source
	trans   *transition

	logger *slog.Logger
}

// New builds a guard from the protection and brightness sections of cfg.
// The guard starts at the configured default brightness; call Seed once the
// hardware's actual level is known.
func New(cfg *config.Config, logger *slog.Logger) *Guard {
	g := &Guard{
		current: cfg.Brightness.DefaultBrightness,
		goal:    cfg.Brightness.DefaultBrightness,
		kelvin:  6500,
		logger:  logger,
	}
	g.applyConfig(cfg)
	return g
}

func (g *Guard) applyConfig(cfg *config.Config) {
	g.minBrightness = cfg.Brightness.MinBrightness
	g.maxBrightness = cfg.Brightness.MaxBrightness
	g.safeLevel = cfg.Protection.SafeModeBrightness
	g.minTransition = cfg.MinTransition()
	g.steps = cfg.Protection.SmoothSteps
	g.enabled = cfg.Protection.Enabled

	burst := int(math.Ceil(cfg.Protection.MaxChangesPerSec))
	if burst < 1 {
		burst = 1
	}
	g.limiter = rate.NewLimiter(rate.Limit(cfg.Protection.MaxChangesPerSec), burst)
}

// Reload swaps in new protection parameters. The current setpoint and any
// in-flight transition are kept.
func (g *Guard) Reload(cfg *config.Config) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.applyConfig(cfg)
}

// Seed overwrites the tracked setpoint with the level read back from
// hardware at startup, without emitting a write.
func (g *Guard) Seed(level float64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.current = clamp(level, 0, 100)
	g.goal = g.current
}

// Submit proposes a new target. When accepted, the guard begins a
// transition whose steps are emitted by subsequent Tick calls. A target
// equal to the present goal is a no-op and consumes no rate budget.
func (g *Guard) Submit(now time.Time, t Target) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.mode == ModeEmergency && t.Source != SourceEmergency {
		return ErrEmergencyActive
	}

	level := clamp(t.Level, g.minBrightness, g.maxBrightness)
	if g.mode == ModeSafe && level > g.safeLevel {
		level = g.safeLevel
	}

	kelvin := t.Kelvin
	if kelvin <= 0 {
		kelvin = g.targetKelvin()
	}

	if math.Abs(level-g.goal) < 0.01 && kelvin == g.targetKelvin() {
		return nil
	}

	from := g.valueAt(now)

	// A flash guard dim protects the viewer; it must never wait behind
	// the rate limiter or the transition floor.
	if t.Source >= SourceFlashGuard && level < from {
		g.begin(now, from, level, kelvin, FastTransition, t.Source)
		return nil
	}

	if g.enabled && !g.limiter.AllowN(now, 1) {
		return ErrRateLimited
	}

	duration := g.minTransition
	if !g.enabled {
		duration = 0
	}
	g.begin(now, from, level, kelvin, duration, t.Source)
	return nil
}

// EmergencyStop dims to the safe mode brightness on the fast ramp and
// freezes the guard: every later submission is rejected until
// ClearEmergency.
func (g *Guard) EmergencyStop(now time.Time) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.mode = ModeEmergency
	from := g.valueAt(now)
	if from > g.safeLevel {
		g.begin(now, from, g.safeLevel, g.targetKelvin(), FastTransition, SourceEmergency)
	} else {
		g.trans = nil
		g.goal = from
		g.current = from
		g.source = SourceEmergency
	}
	g.logger.Warn("emergency stop engaged",
		slog.Float64("brightness", g.safeLevel))
}

// ClearEmergency lifts an emergency stop. The brightness stays where the
// stop left it until a source submits a new target.
func (g *Guard) ClearEmergency() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.mode == ModeEmergency {
		g.mode = ModeNormal
		g.logger.Info("emergency stop cleared")
	}
}

// SetSafeMode switches safe mode on or off. Entering safe mode above the
// safe brightness dims down on the fast ramp, since this is a protective
// action.
func (g *Guard) SetSafeMode(now time.Time, on bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.mode == ModeEmergency {
		return
	}
	if !on {
		if g.mode == ModeSafe {
			g.mode = ModeNormal
		}
		return
	}

	g.mode = ModeSafe
	from := g.valueAt(now)
	if from > g.safeLevel {
		g.begin(now, from, g.safeLevel, g.targetKelvin(), FastTransition, SourceFlashGuard)
	}
}

// SetEnabled toggles the protection constraints. Disabling removes the
// rate limit and applies targets without smoothing; the clamp to the
// configured brightness range always stays.
func (g *Guard) SetEnabled(on bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.enabled = on
}

// Tick advances the active transition. It returns the next value to write
// and write=true when a step is due; at most one step per call.
func (g *Guard) Tick(now time.Time) (level float64, kelvin int, write bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	tr := g.trans
	if tr == nil {
		return 0, 0, false
	}

	elapsed := now.Sub(tr.begin)
	if elapsed < 0 {
		return 0, 0, false
	}

	done := tr.duration <= 0 || elapsed >= tr.duration
	if done {
		g.current = tr.end
		g.kelvin = tr.endKelvin
		g.trans = nil
		return g.current, g.kelvin, true
	}

	step := int(float64(tr.steps) * (float64(elapsed) / float64(tr.duration)))
	if step <= tr.issued {
		return 0, 0, false
	}
	tr.issued = step

	f := eased(float64(step) / float64(tr.steps))
	g.current = tr.start + (tr.end-tr.start)*f
	g.kelvin = tr.startKelvin + int(math.Round(float64(tr.endKelvin-tr.startKelvin)*f))
	return g.current, g.kelvin, true
}

// State returns a snapshot for the status endpoint.
func (g *Guard) State() State {
	g.mu.Lock()
	defer g.mu.Unlock()
	return State{
		Mode:          g.mode.String(),
		Enabled:       g.enabled,
		Current:       g.current,
		Goal:          g.goal,
		Kelvin:        g.targetKelvin(),
		Source:        g.source.String(),
		Transitioning: g.trans != nil,
	}
}

// Mode returns the current protection mode.
func (g *Guard) Mode() Mode {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.mode
}

// Current returns the last value handed to the hardware layer.
func (g *Guard) Current() float64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.current
}

func (g *Guard) begin(now time.Time, from, to float64, kelvin int, duration time.Duration, src Source) {
	steps := g.steps
	if steps < 1 {
		steps = 1
	}
	g.trans = &transition{
		start:       from,
		end:         to,
		startKelvin: g.kelvin,
		endKelvin:   kelvin,
		begin:       now,
		duration:    duration,
		steps:       steps,
	}
	g.goal = to
	g.source = src
	g.logger.Debug("transition started",
		slog.Float64("from", from),
		slog.Float64("to", to),
		slog.Int("kelvin", kelvin),
		slog.Duration("duration", duration),
		slog.String("source", src.String()))
}

// valueAt is the brightness the screen shows at time now, mid-transition
// included. Callers hold g.mu.
func (g *Guard) valueAt(now time.Time) float64 {
	tr := g.trans
	if tr == nil || tr.duration <= 0 {
		return g.current
	}
	elapsed := now.Sub(tr.begin)
	if elapsed <= 0 {
		return tr.start
	}
	if elapsed >= tr.duration {
		return tr.end
	}
	f := eased(float64(elapsed) / float64(tr.duration))
	return tr.start + (tr.end-tr.start)*f
}

// targetKelvin is the temperature the guard is moving toward. Callers hold
// g.mu.
func (g *Guard) targetKelvin() int {
	if g.trans != nil {
		return g.trans.endKelvin
	}
	return g.kelvin
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
