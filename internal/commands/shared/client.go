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

import (
	"encoding/json"
	"os"

	"github.com/luxdim/luxd/internal/client"
)

// NewClient builds a daemon client honoring the --socket flag.
func NewClient() (*client.Client, error) {
	if socket := GetSocket(); socket != "" {
		return client.New(client.WithSocket(socket))
	}
	return client.New()
}

// EmitJSON writes v to stdout as indented JSON.
func EmitJSON(v any) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}
