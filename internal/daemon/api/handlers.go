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

package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/luxdim/luxd/internal/backend"
	"github.com/luxdim/luxd/internal/daemon/httputil"
)

// brightnessRequest is the body of POST /v1/brightness.
type brightnessRequest struct {
	Level float64 `json:"level"`
}

// protectionRequest is the body of POST /v1/protection.
type protectionRequest struct {
	Enabled bool `json:"enabled"`
}

// handleStatus handles GET /v1/status.
func (r *Router) handleStatus(w http.ResponseWriter, req *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, r.ctrl.Status())
}

// handleSetBrightness handles POST /v1/brightness.
func (r *Router) handleSetBrightness(w http.ResponseWriter, req *http.Request) {
	var body brightnessRequest
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "invalid_argument", "malformed request body")
		return
	}
	writeResult(w, r.ctrl.SetManual(body.Level))
}

// handleClearBrightness handles DELETE /v1/brightness.
func (r *Router) handleClearBrightness(w http.ResponseWriter, req *http.Request) {
	writeResult(w, r.ctrl.ClearManual())
}

// handleEmergency handles POST /v1/emergency.
func (r *Router) handleEmergency(w http.ResponseWriter, req *http.Request) {
	writeResult(w, r.ctrl.TriggerEmergency())
}

// handleClearEmergency handles DELETE /v1/emergency.
func (r *Router) handleClearEmergency(w http.ResponseWriter, req *http.Request) {
	writeResult(w, r.ctrl.ClearEmergency())
}

// handleProtection handles POST /v1/protection.
func (r *Router) handleProtection(w http.ResponseWriter, req *http.Request) {
	var body protectionRequest
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "invalid_argument", "malformed request body")
		return
	}
	writeResult(w, r.ctrl.SetProtection(body.Enabled))
}

// wakeRequest is the body of POST /v1/wake.
type wakeRequest struct {
	Hour   int `json:"hour"`
	Minute int `json:"minute"`
}

// handleWake handles POST /v1/wake.
func (r *Router) handleWake(w http.ResponseWriter, req *http.Request) {
	var body wakeRequest
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "invalid_argument", "malformed request body")
		return
	}
	writeResult(w, r.ctrl.SetWake(body.Hour, body.Minute))
}

// handleReload handles POST /v1/reload.
func (r *Router) handleReload(w http.ResponseWriter, req *http.Request) {
	writeResult(w, r.ctrl.Reload())
}

// writeResult maps controller sentinel errors onto the HTTP error surface.
func writeResult(w http.ResponseWriter, err error) {
	switch {
	case err == nil:
		httputil.WriteOK(w)
	case errors.Is(err, backend.ErrOutOfRange):
		httputil.WriteError(w, http.StatusBadRequest, "invalid_argument", err.Error())
	case errors.Is(err, backend.ErrPermissionDenied):
		httputil.WriteError(w, http.StatusForbidden, "permission_denied", err.Error())
	case errors.Is(err, backend.ErrDeviceUnavailable):
		httputil.WriteError(w, http.StatusServiceUnavailable, "unavailable", err.Error())
	default:
		httputil.WriteError(w, http.StatusInternalServerError, "internal", err.Error())
	}
}
