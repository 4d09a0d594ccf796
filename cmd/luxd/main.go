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

package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/luxdim/luxd/internal/daemon"
	"github.com/luxdim/luxd/internal/daemon/listener"
)

// Version information (injected via ldflags at build time)
var (
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

func main() {
	var (
		configPath  = flag.String("config", "", "Path to the configuration file")
		socketPath  = flag.String("socket", "", "Unix socket path for the control interface")
		statePath   = flag.String("state", "", "Path to the state database")
		dryRun      = flag.Bool("dry-run", false, "Log hardware writes instead of performing them")
		showVersion = flag.Bool("version", false, "Show version information")
	)
	flag.Parse()

	if *showVersion {
		fmt.Printf("luxd %s (commit: %s, built: %s)\n", version, commit, buildDate)
		os.Exit(0)
	}

	socket := *socketPath
	if socket == "" {
		socket = listener.DefaultPath()
	}

	err := daemon.Run(daemon.Options{
		Version:    version,
		Commit:     commit,
		BuildDate:  buildDate,
		ConfigPath: *configPath,
		SocketPath: socket,
		StatePath:  *statePath,
		DryRun:     *dryRun,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "luxd: %v\n", err)
		os.Exit(1)
	}
}
