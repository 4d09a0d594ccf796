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

package brightness

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/luxdim/luxd/internal/commands/shared"
)

// NewSetCommand creates the set command, a manual brightness override.
func NewSetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "set <level>",
		Short: "Set a manual brightness override",
		Long: `Set a manual brightness override in percent (0-100). The daemon eases to
the new level within safety limits and holds it until 'luxctl auto'.`,
		Args: cobra.ExactArgs(1),
		RunE: runSet,
	}
}

// NewAutoCommand creates the auto command, returning to circadian control.
func NewAutoCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "auto",
		Short: "Return to automatic brightness",
		Long:  `Remove the manual override and let the circadian engine drive brightness again.`,
		RunE:  runAuto,
	}
}

func runSet(cmd *cobra.Command, args []string) error {
	raw := strings.TrimSuffix(args[0], "%")
	level, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return fmt.Errorf("invalid brightness %q: expected a percentage", args[0])
	}

	c, err := shared.NewClient()
	if err != nil {
		return err
	}
	if err := c.SetBrightness(cmd.Context(), level); err != nil {
		return err
	}

	if shared.GetJSON() {
		return shared.EmitJSON(map[string]any{"status": "ok", "level": level})
	}
	cmd.Println(shared.RenderOK(fmt.Sprintf("brightness set to %.1f%%", level)))
	return nil
}

func runAuto(cmd *cobra.Command, args []string) error {
	c, err := shared.NewClient()
	if err != nil {
		return err
	}
	if err := c.ClearBrightness(cmd.Context()); err != nil {
		return err
	}

	if shared.GetJSON() {
		return shared.EmitJSON(map[string]any{"status": "ok"})
	}
	cmd.Println(shared.RenderOK("automatic brightness restored"))
	return nil
}
