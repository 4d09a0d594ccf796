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

// Package api provides the HTTP control interface served over the unix
// socket.
package api

import (
	"log/slog"
	"net/http"
	"runtime"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/luxdim/luxd/internal/daemon/httputil"
	"github.com/luxdim/luxd/internal/log"
)

// RouterConfig holds configuration for the API router.
type RouterConfig struct {
	Version   string
	Commit    string
	BuildDate string
}

// Router wraps an http.ServeMux with request-id and logging middleware.
type Router struct {
	mux    *http.ServeMux
	config RouterConfig
	ctrl   Controller
	logger *slog.Logger
}

// NewRouter creates the control interface router.
func NewRouter(cfg RouterConfig, ctrl Controller, logger *slog.Logger) *Router {
	r := &Router{
		mux:    http.NewServeMux(),
		config: cfg,
		ctrl:   ctrl,
		logger: log.WithComponent(logger, "api"),
	}

	r.mux.HandleFunc("GET /v1/status", r.handleStatus)
	r.mux.HandleFunc("POST /v1/brightness", r.handleSetBrightness)
	r.mux.HandleFunc("DELETE /v1/brightness", r.handleClearBrightness)
	r.mux.HandleFunc("POST /v1/emergency", r.handleEmergency)
	r.mux.HandleFunc("DELETE /v1/emergency", r.handleClearEmergency)
	r.mux.HandleFunc("POST /v1/protection", r.handleProtection)
	r.mux.HandleFunc("POST /v1/wake", r.handleWake)
	r.mux.HandleFunc("POST /v1/reload", r.handleReload)
	r.mux.HandleFunc("GET /v1/health", r.handleHealth)
	r.mux.HandleFunc("GET /v1/version", r.handleVersion)
	r.mux.Handle("GET /metrics", promhttp.Handler())
	r.mux.HandleFunc("GET /", r.handleRoot)

	return r
}

// ServeHTTP implements http.Handler: assign a request id, serve, log.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	requestID := uuid.New().String()
	w.Header().Set("X-Request-Id", requestID)

	start := time.Now()
	logger := log.WithRequestID(r.logger, requestID)

	defer func() {
		logger.Info("request completed",
			slog.String("method", req.Method),
			slog.String("path", req.URL.Path),
			slog.Int64("duration_ms", time.Since(start).Milliseconds()),
		)
	}()

	r.mux.ServeHTTP(w, req)
}

// handleRoot handles GET / for basic connectivity.
func (r *Router) handleRoot(w http.ResponseWriter, req *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string]string{
		"name":    "luxd",
		"version": r.config.Version,
	})
}

// handleVersion handles GET /v1/version.
func (r *Router) handleVersion(w http.ResponseWriter, req *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string]string{
		"version":    r.config.Version,
		"commit":     r.config.Commit,
		"build_date": r.config.BuildDate,
		"go_version": runtime.Version(),
		"os":         runtime.GOOS,
		"arch":       runtime.GOARCH,
	})
}

// handleHealth handles GET /v1/health. Degraded daemons answer 503 so
// health probes fail over.
func (r *Router) handleHealth(w http.ResponseWriter, req *http.Request) {
	st := r.ctrl.Status()
	status := http.StatusOK
	healthy := true
	if st.State == "degraded" || st.State == "initializing" {
		status = http.StatusServiceUnavailable
		healthy = false
	}
	httputil.WriteJSON(w, status, map[string]any{
		"healthy": healthy,
		"state":   st.State,
	})
}
