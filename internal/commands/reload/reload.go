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

package reload

import (
	"github.com/spf13/cobra"

	"github.com/luxdim/luxd/internal/commands/shared"
)

// NewReloadCommand creates the reload command.
func NewReloadCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "reload",
		Short: "Reload the daemon configuration",
		Long:  `Ask the daemon to re-read its configuration file and apply the new limits.`,
		RunE:  runReload,
	}
}

func runReload(cmd *cobra.Command, args []string) error {
	c, err := shared.NewClient()
	if err != nil {
		return err
	}
	if err := c.Reload(cmd.Context()); err != nil {
		return err
	}

	if shared.GetJSON() {
		return shared.EmitJSON(map[string]any{"status": "ok"})
	}
	cmd.Println(shared.RenderOK("configuration reload requested"))
	return nil
}
