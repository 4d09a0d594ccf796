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

// Package cli assembles the luxctl command tree.
package cli

import (
	"github.com/spf13/cobra"

	"github.com/luxdim/luxd/internal/commands/brightness"
	"github.com/luxdim/luxd/internal/commands/emergency"
	"github.com/luxdim/luxd/internal/commands/protection"
	"github.com/luxdim/luxd/internal/commands/reload"
	"github.com/luxdim/luxd/internal/commands/shared"
	"github.com/luxdim/luxd/internal/commands/status"
	versioncmd "github.com/luxdim/luxd/internal/commands/version"
	"github.com/luxdim/luxd/internal/commands/wake"
)

// SetVersion sets the version information, called from main.
func SetVersion(v, c, b string) {
	shared.SetVersion(v, c, b)
}

// NewRootCommand creates the root cobra command for luxctl.
func NewRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "luxctl",
		Short: "luxctl - control the luxd brightness daemon",
		Long: `luxctl talks to the luxd daemon over its control socket to inspect
status, override brightness, toggle flash protection and trigger an
emergency stop.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	jsonOut, socket := shared.RegisterFlagPointers()
	cmd.PersistentFlags().BoolVar(jsonOut, "json", false, "Output in JSON format")
	cmd.PersistentFlags().StringVar(socket, "socket", "", "Path to the daemon control socket")

	cmd.AddCommand(
		status.NewStatusCommand(),
		brightness.NewSetCommand(),
		brightness.NewAutoCommand(),
		emergency.NewEmergencyCommand(),
		protection.NewProtectionCommand(),
		reload.NewReloadCommand(),
		wake.NewWakeCommand(),
		versioncmd.NewVersionCommand(),
	)

	return cmd
}
