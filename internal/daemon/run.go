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
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/luxdim/luxd/internal/lifecycle"
	"github.com/luxdim/luxd/internal/log"
)

// Run starts the daemon and blocks until a termination signal arrives or
// the daemon fails. SIGUSR1 triggers an emergency stop without exiting,
// mirroring the emergency hotkey for users without a desktop binding.
func Run(opts Options) error {
	pidPath := filepath.Join(filepath.Dir(opts.SocketPath), "luxd.pid")
	pidfile, err := lifecycle.Acquire(pidPath)
	if err != nil {
		return fmt.Errorf("acquire pidfile %s: %w", pidPath, err)
	}
	defer pidfile.Release()

	d, err := New(opts)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGUSR1)
	defer signal.Stop(sigCh)

	errCh := make(chan error, 1)
	go func() {
		errCh <- d.Start(ctx)
	}()

	for {
		select {
		case sig := <-sigCh:
			if sig == syscall.SIGUSR1 {
				d.logger.Warn("emergency stop signal received")
				if err := d.TriggerEmergency(); err != nil {
					d.logger.Error("emergency stop failed", log.Error(err))
				}
				continue
			}
			d.logger.Info("termination signal received",
				log.String("signal", sig.String()))
			cancel()
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
			err := d.Shutdown(shutdownCtx)
			shutdownCancel()
			<-errCh
			return err
		case err := <-errCh:
			if err != nil {
				shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
				_ = d.Shutdown(shutdownCtx)
				shutdownCancel()
			}
			return err
		}
	}
}
