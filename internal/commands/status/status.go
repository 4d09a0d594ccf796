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

package status

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/luxdim/luxd/internal/commands/shared"
)

// NewStatusCommand creates the status command.
func NewStatusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show daemon status",
		Long:  `Display the daemon state, current brightness, active target source and backend health.`,
		RunE:  runStatus,
	}
}

func runStatus(cmd *cobra.Command, args []string) error {
	c, err := shared.NewClient()
	if err != nil {
		return err
	}

	st, err := c.Status(cmd.Context())
	if err != nil {
		return err
	}

	if shared.GetJSON() {
		return shared.EmitJSON(st)
	}

	cmd.Println(shared.Header.Render("luxd"))
	cmd.Printf("  %s %s\n", shared.RenderLabel("state:"), shared.RenderState(st.State))
	cmd.Printf("  %s %.1f%%", shared.RenderLabel("brightness:"), st.Guard.Current)
	if st.Guard.Transitioning {
		cmd.Printf(" %s %.1f%%", shared.Muted.Render("→"), st.Guard.Goal)
	}
	cmd.Println()
	cmd.Printf("  %s %dK\n", shared.RenderLabel("color temp:"), st.Guard.Kelvin)
	cmd.Printf("  %s %s\n", shared.RenderLabel("source:"), st.Guard.Source)

	if st.Manual != nil {
		cmd.Printf("  %s %.1f%%\n", shared.RenderLabel("manual override:"), *st.Manual)
	}

	if st.Circadian != nil {
		cmd.Println(shared.Header.Render("circadian"))
		cmd.Printf("  %s %.1f%% / %dK\n", shared.RenderLabel("target:"),
			st.Circadian.Level, st.Circadian.Kelvin)
		cmd.Printf("  %s %.1f°\n", shared.RenderLabel("solar elevation:"), st.Circadian.Elevation)
		if st.Circadian.Weather != "" {
			cmd.Printf("  %s %s\n", shared.RenderLabel("weather:"), st.Circadian.Weather)
		}
		if st.Circadian.OnBattery {
			cmd.Printf("  %s\n", shared.RenderWarn("on battery"))
		}
		if st.Circadian.Asleep {
			cmd.Printf("  %s\n", shared.Muted.Render("sleep floor active"))
		}
	}

	cmd.Println(shared.Header.Render("protection"))
	if st.Analyzer.Enabled {
		cmd.Printf("  %s\n", shared.RenderOK("flash protection on"))
	} else {
		cmd.Printf("  %s\n", shared.RenderWarn("flash protection off"))
	}
	cmd.Printf("  %s %d\n", shared.RenderLabel("flashes detected:"), st.Analyzer.Flashes)

	cmd.Println(shared.Header.Render("backends"))
	if len(st.Backends) == 0 {
		cmd.Printf("  %s\n", shared.RenderError("no devices"))
	}
	for _, b := range st.Backends {
		line := fmt.Sprintf("%s (%s) at %.1f%%", b.ID, b.Backend, b.LastWritten)
		if b.Degraded {
			cmd.Printf("  %s %s\n", shared.RenderError(line), shared.Muted.Render(b.LastError))
		} else {
			cmd.Printf("  %s\n", shared.RenderOK(line))
		}
	}

	return nil
}
