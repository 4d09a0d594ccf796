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

// Package daemon wires the brightness control loop, the hardware layer
// and the control interface into the luxd daemon process.
package daemon

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-co-op/gocron/v2"

	"github.com/luxdim/luxd/internal/analyzer"
	"github.com/luxdim/luxd/internal/backend"
	"github.com/luxdim/luxd/internal/circadian"
	"github.com/luxdim/luxd/internal/config"
	"github.com/luxdim/luxd/internal/daemon/api"
	"github.com/luxdim/luxd/internal/daemon/listener"
	"github.com/luxdim/luxd/internal/guard"
	"github.com/luxdim/luxd/internal/log"
	"github.com/luxdim/luxd/internal/metrics"
	"github.com/luxdim/luxd/internal/statestore"
)

// Options contains daemon options set at build time and on the command
// line.
type Options struct {
	Version   string
	Commit    string
	BuildDate string

	ConfigPath string
	SocketPath string
	StatePath  string
	DryRun     bool
}

// persistInterval is how often the current state is written to the state
// store.
const persistInterval = 15 * time.Second

// circadianInterval is how often the automatic target is recomputed.
const circadianInterval = time.Second

// Daemon is the luxd daemon.
type Daemon struct {
	opts   Options
	logger *slog.Logger

	cfg atomic.Pointer[config.Config]

	devices *backend.Manager
	guard   *guard.Guard
	engine  atomic.Pointer[circadian.Engine]
	flash   *analyzer.Analyzer
	store   *statestore.Store

	sched   gocron.Scheduler
	watcher *config.Watcher
	server  *http.Server
	ln      net.Listener

	cmds chan command

	// Loop-owned fields, touched only from the control loop.
	state       State
	stateSince  time.Time
	failedTicks int
	tickCount   uint64

	// Published for concurrent readers.
	manual     atomic.Pointer[float64]
	circTarget atomic.Pointer[circadian.Target]
	status     atomic.Pointer[api.Status]

	mu       sync.Mutex
	started  bool
	loopStop context.CancelFunc
}

// New creates a daemon instance from the configuration at
// opts.ConfigPath.
func New(opts Options) (*Daemon, error) {
	logger := log.WithComponent(log.New(log.FromEnv()), "daemon")

	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, err
	}

	d := &Daemon{
		opts:       opts,
		logger:     logger,
		cmds:       make(chan command, commandQueueSize),
		state:      StateInitializing,
		stateSince: time.Now(),
	}
	d.cfg.Store(cfg)
	d.guard = guard.New(cfg, log.WithComponent(logger, "guard"))
	d.engine.Store(circadian.New(cfg, log.WithComponent(logger, "circadian")))

	sampler, err := analyzer.NewCommandSampler(cfg.Analyzer.Command)
	if err != nil {
		return nil, err
	}
	d.flash = analyzer.New(cfg, sampler, d.guard.Current,
		log.WithComponent(logger, "analyzer"))

	statePath := opts.StatePath
	if statePath == "" {
		statePath = statestore.DefaultPath()
	}
	store, err := statestore.Open(statePath)
	if err != nil {
		// Persistence is a convenience; the daemon runs without it.
		logger.Warn("state store unavailable", log.Error(err),
			slog.String("path", statePath))
	} else {
		d.store = store
	}

	return d, nil
}

// Start brings up the hardware layer, background jobs and the control
// interface, then blocks in the control loop until ctx is cancelled or the
// HTTP server fails.
func (d *Daemon) Start(ctx context.Context) error {
	d.mu.Lock()
	if d.started {
		d.mu.Unlock()
		return fmt.Errorf("daemon already started")
	}
	d.started = true
	d.mu.Unlock()

	cfg := d.cfg.Load()

	d.devices = backend.Probe(ctx, backend.ProbeOptions{
		Method: cfg.Brightness.Method,
		DryRun: d.opts.DryRun,
	}, log.WithComponent(d.logger, "backend"))

	if d.devices.Empty() {
		d.logger.Error("no usable brightness device found")
		d.setState(StateDegraded)
	}

	d.restoreState(ctx, cfg)

	if err := d.startJobs(ctx); err != nil {
		return err
	}

	// The sampling loop idles while protection is off, so it always runs
	// and toggling on later just resumes capture.
	go func() {
		if err := d.flash.Run(ctx); err != nil && ctx.Err() == nil {
			d.logger.Error("analyzer stopped", log.Error(err))
		}
	}()

	d.watcher = config.NewWatcher(d.opts.ConfigPath, log.WithComponent(d.logger, "config"))
	go func() {
		if err := d.watcher.Run(ctx); err != nil && ctx.Err() == nil {
			d.logger.Warn("config watcher stopped", log.Error(err))
		}
	}()
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-d.watcher.Events():
				d.logger.Info("config file changed, scheduling reload")
				if err := d.Reload(); err != nil {
					d.logger.Warn("reload enqueue failed", log.Error(err))
				}
			}
		}
	}()

	ln, err := listener.New(d.opts.SocketPath)
	if err != nil {
		return err
	}
	d.ln = ln

	router := api.NewRouter(api.RouterConfig{
		Version:   d.opts.Version,
		Commit:    d.opts.Commit,
		BuildDate: d.opts.BuildDate,
	}, d, d.logger)

	d.server = &http.Server{
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	d.logger.Info("luxd starting",
		slog.String("version", d.opts.Version),
		slog.String("socket", ln.Addr().String()),
		slog.Bool("dry_run", d.opts.DryRun))

	errCh := make(chan error, 1)
	go func() {
		if err := d.server.Serve(ln); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	loopCtx, cancel := context.WithCancel(ctx)
	d.mu.Lock()
	d.loopStop = cancel
	d.mu.Unlock()

	if d.state == StateInitializing {
		d.setState(StateRunning)
	}
	d.publishStatus()

	loopDone := make(chan struct{})
	go func() {
		d.runLoop(loopCtx)
		close(loopDone)
	}()

	select {
	case <-ctx.Done():
		<-loopDone
		return nil
	case err := <-errCh:
		cancel()
		<-loopDone
		return err
	}
}

// Shutdown stops the daemon: the loop is halted, a final safe brightness
// is written, state is persisted and the control interface is closed.
func (d *Daemon) Shutdown(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.started {
		return nil
	}

	d.logger.Info("graceful shutdown initiated")
	if d.loopStop != nil {
		d.loopStop()
	}

	cfg := d.cfg.Load()

	// The screen must never be left mid-flash or over-bright on exit.
	safe := cfg.Protection.SafeModeBrightness
	if d.devices != nil && !d.devices.Empty() {
		writeCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		if err := d.devices.Apply(writeCtx, safe, 0); err != nil {
			d.logger.Warn("final safe write failed", log.Error(err))
		} else {
			d.logger.Info("final safe brightness written",
				slog.Float64("brightness", safe))
		}
		cancel()
	}

	d.persist(ctx)

	if d.sched != nil {
		if err := d.sched.Shutdown(); err != nil {
			d.logger.Warn("scheduler shutdown error", log.Error(err))
		}
	}

	if d.server != nil {
		shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := d.server.Shutdown(shutdownCtx); err != nil {
			d.logger.Error("HTTP server shutdown error", log.Error(err))
		}
	}

	if d.store != nil {
		if err := d.store.Close(); err != nil {
			d.logger.Warn("state store close error", log.Error(err))
		}
	}

	if d.devices != nil {
		d.devices.Close()
	}

	d.started = false
	d.logger.Info("daemon stopped")
	return nil
}

// restoreState seeds the guard and engine from persisted state, falling
// back to hardware readback and config defaults.
func (d *Daemon) restoreState(ctx context.Context, cfg *config.Config) {
	initial := cfg.Brightness.DefaultBrightness

	if current, err := d.devices.Read(ctx); err == nil {
		initial = current
	}

	if d.store != nil {
		if st, found, err := d.store.Load(ctx); err != nil {
			d.logger.Warn("state load failed", log.Error(err))
		} else if found {
			// A persisted value below the visibility floor would restore
			// an unusable black screen.
			if st.Brightness >= 5 {
				initial = st.Brightness
			}
			if st.Manual != nil {
				m := *st.Manual
				d.manual.Store(&m)
			}
			d.flash.SetEnabled(st.ProtectionOn)
			d.engine.Load().SetWake(st.WakeHour, st.WakeMinute)
			d.logger.Info("state restored",
				slog.Float64("brightness", st.Brightness),
				slog.Bool("protection", st.ProtectionOn))
		}
	}

	d.guard.Seed(initial)
	if err := d.devices.Apply(ctx, initial, 0); err != nil {
		d.logger.Warn("initial brightness write failed", log.Error(err))
	}
	d.computeCircadian()
}

// startJobs schedules the low-frequency background work: weather fetches,
// circadian recomputes and state persistence.
func (d *Daemon) startJobs(ctx context.Context) error {
	sched, err := gocron.NewScheduler()
	if err != nil {
		return fmt.Errorf("create scheduler: %w", err)
	}
	d.sched = sched

	cfg := d.cfg.Load()

	if _, err := sched.NewJob(
		gocron.DurationJob(circadianInterval),
		gocron.NewTask(d.computeCircadian),
		gocron.WithName("circadian-recompute"),
	); err != nil {
		return fmt.Errorf("schedule circadian job: %w", err)
	}

	if cfg.Weather.Enabled {
		if _, err := sched.NewJob(
			gocron.DurationJob(cfg.WeatherInterval()),
			gocron.NewTask(d.fetchWeather, ctx),
			gocron.WithName("weather-fetch"),
			gocron.WithStartAt(gocron.WithStartImmediately()),
		); err != nil {
			return fmt.Errorf("schedule weather job: %w", err)
		}
	}

	if d.store != nil {
		if _, err := sched.NewJob(
			gocron.DurationJob(persistInterval),
			gocron.NewTask(func() { d.persist(ctx) }),
			gocron.WithName("state-persist"),
		); err != nil {
			return fmt.Errorf("schedule persist job: %w", err)
		}
	}

	sched.Start()
	return nil
}

// computeCircadian publishes a fresh automatic target.
func (d *Daemon) computeCircadian() {
	engine := d.engine.Load()
	t := engine.Compute(time.Now())
	d.circTarget.Store(&t)
	if sample := engine.Weather().Sample(); sample != nil {
		metrics.RecordWeatherFactor(sample.Factor)
	}
}

// fetchWeather refreshes the weather sample.
func (d *Daemon) fetchWeather(ctx context.Context) {
	cfg := d.cfg.Load()
	fetchCtx, cancel := context.WithTimeout(ctx, cfg.WeatherTimeout())
	defer cancel()

	if err := d.engine.Load().Weather().Fetch(fetchCtx); err != nil {
		d.logger.Warn("weather fetch failed", log.Error(err))
	}
}

// persist writes the current state to the state store.
func (d *Daemon) persist(ctx context.Context) {
	if d.store == nil {
		return
	}
	wh, wm := d.engine.Load().Wake()
	st := statestore.State{
		Brightness:   d.guard.Current(),
		Manual:       d.manual.Load(),
		ProtectionOn: d.flash.Enabled(),
		WakeHour:     wh,
		WakeMinute:   wm,
	}
	saveCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := d.store.Save(saveCtx, st); err != nil {
		d.logger.Warn("state persist failed", log.Error(err))
	}
}

// reload loads, validates and applies a new configuration. A failed load
// keeps the running config; partial application is not possible since the
// config value is swapped whole.
func (d *Daemon) reload() {
	cfg, err := config.Load(d.opts.ConfigPath)
	if err != nil {
		d.logger.Error("config reload rejected", log.Error(err))
		return
	}

	// A wake time overridden through the API survives the config swap;
	// one inherited from the old config yields to the new file.
	oldCfg := d.cfg.Load()
	wh, wm := d.engine.Load().Wake()
	cfgH, cfgM := oldCfg.WakeClock()

	d.cfg.Store(cfg)
	d.guard.Reload(cfg)
	engine := circadian.New(cfg, log.WithComponent(d.logger, "circadian"))
	if wh != cfgH || wm != cfgM {
		engine.SetWake(wh, wm)
	}
	d.engine.Store(engine)
	d.flash.SetEnabled(cfg.Analyzer.Enabled)
	d.computeCircadian()

	d.logger.Info("configuration reloaded")
}
