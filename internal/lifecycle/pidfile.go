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

// Package lifecycle guards against concurrent daemon instances. Two luxd
// processes writing the same backlight would fight over every transition,
// so startup takes an exclusive pidfile lock before touching hardware.
package lifecycle

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
)

var (
	// ErrAlreadyRunning is returned when another process holds the
	// pidfile lock.
	ErrAlreadyRunning = errors.New("another instance is already running")

	// ErrInvalidPID is returned when the pidfile contains garbage.
	ErrInvalidPID = errors.New("invalid pid in file")
)

// Pidfile is an exclusive single-instance lock backed by flock. The lock
// is held for the life of the owning process; a crashed daemon leaves a
// stale file whose lock the kernel has already released, so the next
// start reclaims it.
type Pidfile struct {
	path string
	file *os.File
}

// Acquire creates or reclaims the pidfile at path and writes the current
// pid into it. It returns ErrAlreadyRunning if a live process holds the
// lock.
func Acquire(path string) (*Pidfile, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("create pidfile directory: %w", err)
	}

	// O_NOFOLLOW keeps a symlink planted at the path from redirecting
	// the write.
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|syscall.O_NOFOLLOW, 0o600)
	if err != nil {
		return nil, fmt.Errorf("open pidfile: %w", err)
	}

	if err := syscall.Flock(int(f.Fd()), syscall.LOCK_EX|syscall.LOCK_NB); err != nil {
		f.Close()
		if err == syscall.EWOULDBLOCK {
			return nil, ErrAlreadyRunning
		}
		return nil, fmt.Errorf("lock pidfile: %w", err)
	}

	if err := f.Truncate(0); err != nil {
		f.Close()
		return nil, fmt.Errorf("truncate pidfile: %w", err)
	}
	if _, err := f.WriteAt([]byte(strconv.Itoa(os.Getpid())+"\n"), 0); err != nil {
		f.Close()
		return nil, fmt.Errorf("write pidfile: %w", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return nil, fmt.Errorf("sync pidfile: %w", err)
	}

	return &Pidfile{path: path, file: f}, nil
}

// Read returns the pid recorded at path without taking the lock.
func Read(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || pid <= 0 {
		return 0, ErrInvalidPID
	}
	return pid, nil
}

// Release removes the pidfile and drops the lock.
func (p *Pidfile) Release() error {
	if p.file == nil {
		return nil
	}
	removeErr := os.Remove(p.path)
	closeErr := p.file.Close()
	p.file = nil
	if removeErr != nil && !os.IsNotExist(removeErr) {
		return removeErr
	}
	return closeErr
}

// Path returns the pidfile location.
func (p *Pidfile) Path() string { return p.path }
