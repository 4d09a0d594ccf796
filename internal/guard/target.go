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

package guard

// Source identifies who proposed a brightness target. Larger values take
// precedence when several sources have an opinion in the same tick.
type Source int

const (
	SourceCircadian Source = iota
	SourceManual
	SourceFlashGuard
	SourceEmergency
)

// String returns the wire name of the source, used in logs and the status
// response.
func (s Source) String() string {
	switch s {
	case SourceCircadian:
		return "circadian"
	case SourceManual:
		return "manual"
	case SourceFlashGuard:
		return "flash_guard"
	case SourceEmergency:
		return "emergency"
	default:
		return "unknown"
	}
}

// Target is a proposed brightness level in percent, optionally paired with
// a color temperature. Kelvin <= 0 means the source has no color opinion
// and the last temperature is kept.
type Target struct {
	Level  float64
	Kelvin int
	Source Source
}

// Merge resolves one winning target out of the candidates proposed in a
// single tick. The highest-precedence source wins; among equals the first
// wins. ok is false when there are no candidates.
func Merge(candidates ...Target) (winner Target, ok bool) {
	for i, c := range candidates {
		if i == 0 || c.Source > winner.Source {
			winner = c
		}
	}
	return winner, len(candidates) > 0
}
