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

package analyzer

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// OutPlaceholder marks where the capture command's output path is spliced
// into the configured argv.
const OutPlaceholder = "{out}"

// Sampler produces one mean screen luma in [0,1] per call.
type Sampler interface {
	Sample(ctx context.Context) (float64, error)
}

// CommandSampler runs a screenshot tool that writes a PPM file. The default
// configuration runs spectacle in background mode; any tool that can emit
// PPM works.
type CommandSampler struct {
	argv []string
	out  string
}

// NewCommandSampler builds a sampler from the configured argv. The
// placeholder {out} in any argument is replaced with a private temp path.
func NewCommandSampler(argv []string) (*CommandSampler, error) {
	if len(argv) == 0 {
		return nil, fmt.Errorf("analyzer: empty capture command")
	}
	out := filepath.Join(os.TempDir(), fmt.Sprintf("luxd-capture-%d.ppm", os.Getpid()))

	expanded := make([]string, len(argv))
	found := false
	for i, a := range argv {
		if strings.Contains(a, OutPlaceholder) {
			found = true
		}
		expanded[i] = strings.ReplaceAll(a, OutPlaceholder, out)
	}
	if !found {
		return nil, fmt.Errorf("analyzer: capture command lacks %s placeholder", OutPlaceholder)
	}
	return &CommandSampler{argv: expanded, out: out}, nil
}

// Sample captures one frame and returns its mean luma. The capture file is
// removed before returning.
func (s *CommandSampler) Sample(ctx context.Context) (float64, error) {
	cmd := exec.CommandContext(ctx, s.argv[0], s.argv[1:]...)
	if out, err := cmd.CombinedOutput(); err != nil {
		return 0, fmt.Errorf("analyzer: capture failed: %w: %s", err, strings.TrimSpace(string(out)))
	}

	data, err := os.ReadFile(s.out)
	os.Remove(s.out)
	if err != nil {
		return 0, fmt.Errorf("analyzer: read capture: %w", err)
	}
	return MeanLuma(data)
}
