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

package daemon

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/luxdim/luxd/internal/backend"
	"github.com/luxdim/luxd/internal/daemon/api"
	"github.com/luxdim/luxd/internal/guard"
	"github.com/luxdim/luxd/internal/log"
	"github.com/luxdim/luxd/internal/metrics"
)

const (
	// tickInterval is the control loop cadence. 125Hz keeps eased
	// transition steps well under the perceptual flicker threshold.
	tickInterval = 8 * time.Millisecond

	// degradedTickBudget is how many consecutive ticks may fail with
	// DeviceUnavailable before the daemon goes degraded. 375 ticks is
	// three seconds.
	degradedTickBudget = 375

	// statusEvery publishes a status snapshot every N ticks (200ms).
	statusEvery = 25

	// circadianDeadband suppresses automatic submissions for drifts
	// smaller than this, so slow solar movement does not burn the change
	// budget on imperceptible adjustments.
	circadianDeadband = 5.0

	// kelvinDeadband is the matching threshold for color temperature.
	kelvinDeadband = 200
)

// runLoop drives the fixed-cadence control loop until ctx is cancelled.
func (d *Daemon) runLoop(ctx context.Context) {
	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			start := time.Now()
			d.tick(ctx, now)
			metrics.RecordTick(time.Since(start).Seconds())
		}
	}
}

// tick runs one loop iteration: drain commands, merge targets, advance the
// guard, write hardware, reconcile the state machine.
func (d *Daemon) tick(ctx context.Context, now time.Time) {
	d.tickCount++

	d.drainCommands(now)

	if c, ok := d.flash.TakeCandidate(); ok {
		metrics.RecordFlash()
		d.submit(now, guard.Target{Level: c.Level, Source: guard.SourceFlashGuard})
	}

	if d.guard.Mode() != guard.ModeEmergency {
		if m := d.manual.Load(); m != nil {
			d.submit(now, guard.Target{Level: *m, Source: guard.SourceManual})
		} else if ct := d.circTarget.Load(); ct != nil {
			d.submitCircadian(now, ct.Level, ct.Kelvin)
		}
	}

	if level, kelvin, ok := d.guard.Tick(now); ok {
		err := d.devices.Apply(ctx, level, kelvin)
		d.noteWrite(err)
		if err == nil {
			metrics.RecordApplied(level, kelvin)
		}
	}

	d.reconcileState()

	if d.tickCount%statusEvery == 0 {
		d.publishStatus()
	}
}

// submit hands a target to the guard. Rate-limit rejections are a silent
// no-op by contract; everything else is logged.
func (d *Daemon) submit(now time.Time, t guard.Target) {
	err := d.guard.Submit(now, t)
	switch {
	case err == nil:
		metrics.RecordTransition(t.Source.String())
	case errors.Is(err, guard.ErrRateLimited):
		metrics.RecordRateLimited()
	case errors.Is(err, guard.ErrEmergencyActive):
		// Raced with an emergency in the same tick; drop the target.
	default:
		d.logger.Warn("target rejected", log.Error(err),
			slog.String("source", t.Source.String()))
	}
}

// submitCircadian applies the deadband before handing the automatic
// target to the guard.
func (d *Daemon) submitCircadian(now time.Time, level float64, kelvin int) {
	st := d.guard.State()
	levelDrift := level - st.Goal
	if levelDrift < 0 {
		levelDrift = -levelDrift
	}
	kelvinDrift := kelvin - st.Kelvin
	if kelvinDrift < 0 {
		kelvinDrift = -kelvinDrift
	}
	if levelDrift < circadianDeadband && kelvinDrift < kelvinDeadband {
		return
	}
	d.submit(now, guard.Target{Level: level, Kelvin: kelvin, Source: guard.SourceCircadian})
}

// drainCommands consumes every queued command.
func (d *Daemon) drainCommands(now time.Time) {
	for {
		select {
		case cmd := <-d.cmds:
			d.applyCommand(cmd, now)
		default:
			return
		}
	}
}

func (d *Daemon) applyCommand(cmd command, now time.Time) {
	d.logger.Debug("applying command", slog.String("command", cmd.kind.String()))

	switch cmd.kind {
	case cmdSetManual:
		level := cmd.level
		d.manual.Store(&level)
		d.submit(now, guard.Target{Level: level, Source: guard.SourceManual})
	case cmdClearManual:
		d.manual.Store(nil)
	case cmdEmergencyStop:
		metrics.RecordEmergency()
		d.guard.EmergencyStop(now)
		d.setState(StateEmergency)
	case cmdClearEmergency:
		d.guard.ClearEmergency()
	case cmdSetProtection:
		d.flash.SetEnabled(cmd.on)
		d.logger.Info("flash protection toggled", slog.Bool("enabled", cmd.on))
	case cmdSetWake:
		d.engine.Load().SetWake(cmd.hour, cmd.minute)
		d.computeCircadian()
		d.logger.Info("wake time changed",
			slog.Int("hour", cmd.hour), slog.Int("minute", cmd.minute))
	case cmdReload:
		d.reload()
	}
}

// noteWrite tracks hardware write failures against the degradation budget.
// Permission failures degrade immediately: retrying a forbidden write
// cannot succeed.
func (d *Daemon) noteWrite(err error) {
	if err == nil {
		d.failedTicks = 0
		return
	}
	if errors.Is(err, backend.ErrPermissionDenied) {
		d.setState(StateDegraded)
		return
	}
	d.failedTicks++
	if d.failedTicks >= degradedTickBudget {
		d.setState(StateDegraded)
	}
}

// reconcileState maps guard mode and backend health onto the daemon state
// machine.
func (d *Daemon) reconcileState() {
	if d.state == StateDegraded {
		// Recovery requires healthy backends again.
		if d.devices.Healthy() && d.failedTicks == 0 {
			d.setState(StateRunning)
		}
		return
	}

	if !d.devices.Healthy() {
		d.setState(StateDegraded)
		return
	}

	switch d.guard.Mode() {
	case guard.ModeEmergency:
		d.setState(StateEmergency)
	case guard.ModeSafe:
		d.setState(StateSafeMode)
	default:
		d.setState(StateRunning)
	}
}

// setState transitions the state machine, ignoring illegal moves.
func (d *Daemon) setState(next State) {
	if d.state == next {
		return
	}
	if !canTransition(d.state, next) {
		d.logger.Debug("state transition rejected",
			slog.String("from", d.state.String()),
			slog.String("to", next.String()))
		return
	}
	d.logger.Info("state changed",
		slog.String("from", d.state.String()),
		slog.String("to", next.String()))
	d.state = next
	d.stateSince = time.Now()
	metrics.RecordDaemonState(int(next))
}

// publishStatus assembles and atomically publishes the status snapshot
// read by the control interface.
func (d *Daemon) publishStatus() {
	st := api.Status{
		State:    d.state.String(),
		Since:    d.stateSince,
		Tick:     d.tickCount,
		Guard:    d.guard.State(),
		Manual:   d.manual.Load(),
		Analyzer: d.flash.State(),
		Backends: d.devices.HealthSnapshot(),
	}
	if ct := d.circTarget.Load(); ct != nil {
		st.Circadian = ct
	}
	d.status.Store(&st)
}

// Status returns the latest published snapshot.
func (d *Daemon) Status() api.Status {
	if st := d.status.Load(); st != nil {
		return *st
	}
	return api.Status{State: StateInitializing.String()}
}
