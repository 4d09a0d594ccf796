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

// Package client is the Go client for the luxd control socket, used by
// luxctl and by anything else that wants to drive the daemon.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/luxdim/luxd/internal/daemon/api"
)

// Client talks to the luxd control API over its unix socket.
type Client struct {
	httpClient *http.Client
	baseURL    string
}

// New creates a client with the given options. Without options it
// connects to the default socket path.
func New(opts ...Option) (*Client, error) {
	c := &Client{
		baseURL: "http://luxd", // host is ignored on a unix socket
	}

	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}

	if c.httpClient == nil {
		c.httpClient = &http.Client{Transport: DefaultTransport()}
	}

	return c, nil
}

// Option configures a Client.
type Option func(*Client) error

// WithSocket connects to a specific socket path instead of the default.
func WithSocket(path string) Option {
	return func(c *Client) error {
		c.httpClient = &http.Client{Transport: NewUnixTransport(path)}
		return nil
	}
}

// WithHTTPClient sets a custom HTTP client, used by tests to point the
// client at an httptest server.
func WithHTTPClient(client *http.Client, baseURL string) Option {
	return func(c *Client) error {
		c.httpClient = client
		c.baseURL = baseURL
		return nil
	}
}

// APIError is a structured error response from the daemon.
type APIError struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Message string `json:"error"`
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("luxd: %s (%s)", e.Message, e.Code)
	}
	return fmt.Sprintf("luxd: request failed with status %d", e.Status)
}

// VersionResponse is the response from /v1/version.
type VersionResponse struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildDate string `json:"build_date"`
	GoVersion string `json:"go_version"`
	OS        string `json:"os"`
	Arch      string `json:"arch"`
}

// HealthResponse is the response from /v1/health.
type HealthResponse struct {
	Healthy bool   `json:"healthy"`
	State   string `json:"state"`
}

// Status returns the daemon's current status snapshot.
func (c *Client) Status(ctx context.Context) (*api.Status, error) {
	var st api.Status
	if err := c.do(ctx, http.MethodGet, "/v1/status", nil, &st); err != nil {
		return nil, err
	}
	return &st, nil
}

// SetBrightness sets a manual brightness override.
func (c *Client) SetBrightness(ctx context.Context, level float64) error {
	body := map[string]float64{"level": level}
	return c.do(ctx, http.MethodPost, "/v1/brightness", body, nil)
}

// ClearBrightness removes the manual override and returns the daemon to
// automatic control.
func (c *Client) ClearBrightness(ctx context.Context) error {
	return c.do(ctx, http.MethodDelete, "/v1/brightness", nil, nil)
}

// Emergency triggers an emergency stop.
func (c *Client) Emergency(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/v1/emergency", nil, nil)
}

// ClearEmergency lifts an emergency stop.
func (c *Client) ClearEmergency(ctx context.Context) error {
	return c.do(ctx, http.MethodDelete, "/v1/emergency", nil, nil)
}

// SetProtection toggles flash protection.
func (c *Client) SetProtection(ctx context.Context, on bool) error {
	body := map[string]bool{"enabled": on}
	return c.do(ctx, http.MethodPost, "/v1/protection", body, nil)
}

// SetWake changes the wake time for the circadian sleep floor.
func (c *Client) SetWake(ctx context.Context, hour, minute int) error {
	body := map[string]int{"hour": hour, "minute": minute}
	return c.do(ctx, http.MethodPost, "/v1/wake", body, nil)
}

// Reload asks the daemon to reload its configuration file.
func (c *Client) Reload(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/v1/reload", nil, nil)
}

// Version returns the daemon build information.
func (c *Client) Version(ctx context.Context) (*VersionResponse, error) {
	var v VersionResponse
	if err := c.do(ctx, http.MethodGet, "/v1/version", nil, &v); err != nil {
		return nil, err
	}
	return &v, nil
}

// Health returns the daemon health check.
func (c *Client) Health(ctx context.Context) (*HealthResponse, error) {
	var h HealthResponse
	if err := c.do(ctx, http.MethodGet, "/v1/health", nil, &h); err != nil {
		return nil, err
	}
	return &h, nil
}

// Ping reports whether the daemon is reachable on the socket.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.Version(ctx)
	return err
}

// do performs a request and decodes the JSON response into out when out
// is non-nil. Error statuses are returned as *APIError.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if bodyReader != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("luxd unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		apiErr := &APIError{Status: resp.StatusCode}
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		_ = json.Unmarshal(data, apiErr)
		return apiErr
	}

	if out == nil {
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
