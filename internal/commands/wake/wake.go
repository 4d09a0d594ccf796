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

package wake

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/luxdim/luxd/internal/commands/shared"
)

// NewWakeCommand creates the wake command.
func NewWakeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "wake <HH:MM>",
		Short: "Set the wake time",
		Long: `Set the local time before which the night sleep floor keeps the screen
at its dimmest.`,
		Args: cobra.ExactArgs(1),
		RunE: runWake,
	}
}

func runWake(cmd *cobra.Command, args []string) error {
	var hour, minute int
	if _, err := fmt.Sscanf(args[0], "%d:%d", &hour, &minute); err != nil {
		return fmt.Errorf("invalid wake time %q: expected HH:MM", args[0])
	}

	c, err := shared.NewClient()
	if err != nil {
		return err
	}
	if err := c.SetWake(cmd.Context(), hour, minute); err != nil {
		return err
	}

	if shared.GetJSON() {
		return shared.EmitJSON(map[string]any{"status": "ok", "hour": hour, "minute": minute})
	}
	cmd.Println(shared.RenderOK(fmt.Sprintf("wake time set to %02d:%02d", hour, minute)))
	return nil
}
