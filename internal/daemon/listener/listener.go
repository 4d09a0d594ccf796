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

// Package listener binds the daemon's unix control socket.
package listener

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
)

// DefaultPath returns the control socket location: the user's runtime
// directory when available, /tmp otherwise.
func DefaultPath() string {
	if dir := os.Getenv("XDG_RUNTIME_DIR"); dir != "" {
		return filepath.Join(dir, "luxd", "luxd.sock")
	}
	return "/tmp/luxd.sock"
}

// New binds a unix socket at path, removing a stale socket file first. The
// socket is owner-only: the control interface can change screen brightness
// and must not be reachable by other users.
func New(path string) (net.Listener, error) {
	if path == "" {
		path = DefaultPath()
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("listener: create socket dir: %w", err)
	}

	// A leftover socket from a crashed daemon would block the bind. Only
	// remove it if nothing is accepting on it.
	if _, err := os.Stat(path); err == nil {
		if conn, err := net.Dial("unix", path); err == nil {
			conn.Close()
			return nil, fmt.Errorf("listener: %s is in use by another daemon", path)
		}
		if err := os.Remove(path); err != nil {
			return nil, fmt.Errorf("listener: remove stale socket: %w", err)
		}
	}

	ln, err := net.Listen("unix", path)
	if err != nil {
		return nil, fmt.Errorf("listener: bind %s: %w", path, err)
	}

	if err := os.Chmod(path, 0o600); err != nil {
		ln.Close()
		return nil, fmt.Errorf("listener: chmod socket: %w", err)
	}
	return ln, nil
}
