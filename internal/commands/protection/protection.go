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

package protection

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/luxdim/luxd/internal/commands/shared"
)

// NewProtectionCommand creates the protection command.
func NewProtectionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "protection <on|off>",
		Short: "Toggle flash protection",
		Long: `Enable or disable the content analyzer that dims the screen when it
detects a bright flash.`,
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"on", "off"},
		RunE:      runProtection,
	}
}

func runProtection(cmd *cobra.Command, args []string) error {
	var on bool
	switch args[0] {
	case "on":
		on = true
	case "off":
		on = false
	default:
		return fmt.Errorf("invalid argument %q: expected on or off", args[0])
	}

	c, err := shared.NewClient()
	if err != nil {
		return err
	}
	if err := c.SetProtection(cmd.Context(), on); err != nil {
		return err
	}

	if shared.GetJSON() {
		return shared.EmitJSON(map[string]any{"status": "ok", "enabled": on})
	}
	if on {
		cmd.Println(shared.RenderOK("flash protection enabled"))
	} else {
		cmd.Println(shared.RenderWarn("flash protection disabled"))
	}
	return nil
}
