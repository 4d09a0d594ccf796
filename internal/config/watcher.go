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

package config

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher notifies when the configuration file changes on disk. Events are
// debounced because editors typically produce bursts of writes and renames
// for a single save.
type Watcher struct {
	path     string
	debounce time.Duration
	logger   *slog.Logger
	events   chan struct{}
}

// NewWatcher creates a watcher for the configuration file at path.
func NewWatcher(path string, logger *slog.Logger) *Watcher {
	if path == "" {
		path = DefaultPath
	}
	return &Watcher{
		path:     path,
		debounce: 500 * time.Millisecond,
		logger:   logger,
		events:   make(chan struct{}, 1),
	}
}

// Events returns the channel that receives a notification after each
// debounced change. The channel has capacity 1; coalesced notifications are
// fine since the receiver reloads the whole file.
func (w *Watcher) Events() <-chan struct{} {
	return w.events
}

// Run watches until ctx is cancelled. The parent directory is watched
// rather than the file itself so atomic replaces (rename over) are seen.
func (w *Watcher) Run(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fsw.Close()

	dir := filepath.Dir(w.path)
	if err := fsw.Add(dir); err != nil {
		return err
	}

	var timer *time.Timer
	var timerCh <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != filepath.Clean(w.path) {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
				timerCh = timer.C
			} else {
				timer.Reset(w.debounce)
			}
		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("config watcher error", slog.Any("error", err))
		case <-timerCh:
			timer = nil
			timerCh = nil
			select {
			case w.events <- struct{}{}:
			default:
			}
			w.logger.Info("config file changed", slog.String("path", w.path))
		}
	}
}
