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

package shared

// Global flag values, bound by the root command.
var (
	jsonFlag   bool
	socketFlag string

	// Build-time version information.
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

// RegisterFlagPointers returns pointers to flag variables for binding by
// the root command.
func RegisterFlagPointers() (jsonOut *bool, socket *string) {
	return &jsonFlag, &socketFlag
}

// SetVersion sets the version information, called from main.
func SetVersion(v, c, b string) {
	version = v
	commit = c
	buildDate = b
}

// GetJSON returns the JSON output flag value.
func GetJSON() bool {
	return jsonFlag
}

// GetSocket returns the socket path flag value.
func GetSocket() string {
	return socketFlag
}

// GetVersion returns version information.
func GetVersion() (string, string, string) {
	return version, commit, buildDate
}
