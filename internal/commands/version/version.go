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

package version

import (
	"github.com/spf13/cobra"

	"github.com/luxdim/luxd/internal/commands/shared"
)

// VersionInfo contains version metadata for the CLI and, when reachable,
// the daemon.
type VersionInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildDate string `json:"build_date"`
	Daemon    string `json:"daemon,omitempty"`
}

// NewVersionCommand creates the version command.
func NewVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Long:  `Display version, commit hash and build date for luxctl and the running daemon.`,
		RunE:  runVersion,
	}
}

func runVersion(cmd *cobra.Command, args []string) error {
	v, c, b := shared.GetVersion()
	info := VersionInfo{Version: v, Commit: c, BuildDate: b}

	// Best effort; the CLI version is useful even with no daemon running.
	if cl, err := shared.NewClient(); err == nil {
		if dv, err := cl.Version(cmd.Context()); err == nil {
			info.Daemon = dv.Version
		}
	}

	if shared.GetJSON() {
		return shared.EmitJSON(info)
	}

	cmd.Printf("luxctl version %s\n", info.Version)
	cmd.Printf("  commit:     %s\n", info.Commit)
	cmd.Printf("  build date: %s\n", info.BuildDate)
	if info.Daemon != "" {
		cmd.Printf("  daemon:     %s\n", info.Daemon)
	} else {
		cmd.Println(shared.Muted.Render("  daemon:     not running"))
	}
	return nil
}
