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

package emergency

import (
	"github.com/spf13/cobra"

	"github.com/luxdim/luxd/internal/commands/shared"
)

// NewEmergencyCommand creates the emergency command group.
func NewEmergencyCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "emergency",
		Short: "Trigger an emergency stop",
		Long: `Immediately dim the screen to the safe brightness and freeze all
transitions. The daemon stays in emergency mode until 'luxctl emergency clear'.`,
		RunE: runEmergency,
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "clear",
		Short: "Lift the emergency stop",
		RunE:  runClear,
	})
	return cmd
}

func runEmergency(cmd *cobra.Command, args []string) error {
	c, err := shared.NewClient()
	if err != nil {
		return err
	}
	if err := c.Emergency(cmd.Context()); err != nil {
		return err
	}

	if shared.GetJSON() {
		return shared.EmitJSON(map[string]any{"status": "ok"})
	}
	cmd.Println(shared.RenderWarn("emergency stop active, screen dimmed to safe level"))
	return nil
}

func runClear(cmd *cobra.Command, args []string) error {
	c, err := shared.NewClient()
	if err != nil {
		return err
	}
	if err := c.ClearEmergency(cmd.Context()); err != nil {
		return err
	}

	if shared.GetJSON() {
		return shared.EmitJSON(map[string]any{"status": "ok"})
	}
	cmd.Println(shared.RenderOK("emergency stop cleared"))
	return nil
}
