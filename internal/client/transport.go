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

package client

import (
	"context"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"time"
)

// SocketEnv overrides the socket path for every luxd client.
const SocketEnv = "LUXD_SOCKET"

// NewUnixTransport creates an HTTP transport that dials the given unix
// socket for every request.
func NewUnixTransport(socketPath string) *http.Transport {
	return &http.Transport{
		MaxIdleConns:       2,
		IdleConnTimeout:    30 * time.Second,
		DisableCompression: true,
		DialContext: func(ctx context.Context, _, _ string) (net.Conn, error) {
			d := net.Dialer{Timeout: 5 * time.Second}
			return d.DialContext(ctx, "unix", socketPath)
		},
	}
}

// DefaultTransport dials the default socket path, honoring LUXD_SOCKET.
func DefaultTransport() *http.Transport {
	return NewUnixTransport(DefaultSocketPath())
}

// DefaultSocketPath returns the socket path the daemon listens on by
// default, matching the daemon's own resolution order.
func DefaultSocketPath() string {
	if path := os.Getenv(SocketEnv); path != "" {
		return path
	}
	if runtimeDir := os.Getenv("XDG_RUNTIME_DIR"); runtimeDir != "" {
		return filepath.Join(runtimeDir, "luxd", "luxd.sock")
	}
	return filepath.Join(os.TempDir(), "luxd.sock")
}
