// Copyright (c) 2026 John Earle
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

// Package api is the HTTP client for the contract analysis backend. It owns
// the timeout policy for each endpoint and classifies every failure into a
// single user-facing message (see Error).
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/leasewise/client/internal/models"
)

const (
	// DefaultHealthTimeout bounds the connectivity probe.
	DefaultHealthTimeout = 5 * time.Second
	// DefaultUploadTimeout covers server-side OCR and LLM extraction.
	DefaultUploadTimeout = 5 * time.Minute
	// DefaultLookupTimeout bounds VIN, contract, price and negotiation calls.
	DefaultLookupTimeout = 10 * time.Second
)

// ClientConfig holds the configuration for the API client.
type ClientConfig struct {
	BaseURL       string
	HTTPClient    *http.Client
	HealthTimeout time.Duration
	UploadTimeout time.Duration
	LookupTimeout time.Duration
}

// Client talks to the analysis backend. It holds no state beyond its
// configuration and is safe for concurrent use.
type Client struct {
	httpClient    *http.Client
	baseURL       string
	healthTimeout time.Duration
	uploadTimeout time.Duration
	lookupTimeout time.Duration
}

// NewClient creates an API client. Zero timeouts take the package defaults.
func NewClient(cfg ClientConfig) *Client {
	c := &Client{
		httpClient:    cfg.HTTPClient,
		baseURL:       strings.TrimRight(cfg.BaseURL, "/"),
		healthTimeout: cfg.HealthTimeout,
		uploadTimeout: cfg.UploadTimeout,
		lookupTimeout: cfg.LookupTimeout,
	}
	if c.httpClient == nil {
		c.httpClient = &http.Client{}
	}
	if c.healthTimeout <= 0 {
		c.healthTimeout = DefaultHealthTimeout
	}
	if c.uploadTimeout <= 0 {
		c.uploadTimeout = DefaultUploadTimeout
	}
	if c.lookupTimeout <= 0 {
		c.lookupTimeout = DefaultLookupTimeout
	}
	return c
}

// BaseURL returns the backend address the client was configured with.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// CheckHealth probes GET /health. It returns true only for a 200 received
// within the health timeout; every failure collapses to false.
func (c *Client) CheckHealth(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, c.healthTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		slog.Debug("health check request invalid", "error", err)
		return false
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		slog.Debug("health check failed", "base_url", c.baseURL, "error", err)
		return false
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		slog.Debug("health check unhealthy", "base_url", c.baseURL, "status", resp.StatusCode)
		return false
	}
	return true
}

// response is a completed HTTP exchange. Payload is nil when the body was
// not a JSON object; parseErr then holds the reason.
type response struct {
	StatusCode int
	Payload    models.Payload
	parseErr   error
}

// errorMessage returns the backend-reported failure carried in the payload.
// The analysis service uses an "error" key; framework validation errors use
// "detail".
func (r *response) errorMessage() (string, bool) {
	if r.Payload == nil {
		return "", false
	}
	if v, ok := r.Payload["error"]; ok && v != nil {
		if s := r.Payload.Text("error"); s != nil {
			return *s, true
		}
		return "", true
	}
	return "", false
}

func (r *response) detailMessage() string {
	if r.Payload == nil {
		return ""
	}
	if s := r.Payload.Text("detail"); s != nil {
		return *s
	}
	if items, ok := r.Payload["detail"].([]any); ok && len(items) > 0 {
		if first, ok := items[0].(map[string]any); ok {
			if s := models.Payload(first).Text("msg"); s != nil {
				return *s
			}
		}
	}
	return ""
}

// do sends a request under the given deadline and reads the whole body. The
// deadline covers the body read, so a slow response still classifies as a
// timeout.
func (c *Client) do(ctx context.Context, op operation, timeout time.Duration, method, path string, body io.Reader, contentType string) (*response, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, op.transportError(fmt.Errorf("build request: %w", err))
	}
	requestID := uuid.NewString()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", requestID)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		slog.Warn("api request failed",
			"op", op.name,
			"request_id", requestID,
			"error", err,
		)
		return nil, op.transportError(err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		slog.Warn("api response read failed",
			"op", op.name,
			"request_id", requestID,
			"status", resp.StatusCode,
			"error", err,
		)
		return nil, op.transportError(fmt.Errorf("read response: %w", err))
	}

	slog.Debug("api request complete",
		"op", op.name,
		"request_id", requestID,
		"status", resp.StatusCode,
		"duration", time.Since(start),
	)

	out := &response{StatusCode: resp.StatusCode}
	out.Payload, out.parseErr = parsePayload(data)
	return out, nil
}

func parsePayload(data []byte) (models.Payload, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var p models.Payload
	if err := dec.Decode(&p); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if p == nil {
		return nil, fmt.Errorf("decode response: body is not a JSON object")
	}
	return p, nil
}

// getPayload performs a GET whose successful answer is a JSON object.
func (c *Client) getPayload(ctx context.Context, op operation, path string) (models.Payload, error) {
	resp, err := c.do(ctx, op, c.lookupTimeout, http.MethodGet, path, nil, "")
	if err != nil {
		return nil, err
	}
	return op.payloadOf(resp)
}

// postPayload performs a JSON POST whose successful answer is a JSON object.
func (c *Client) postPayload(ctx context.Context, op operation, path string, body any) (models.Payload, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return nil, op.transportError(fmt.Errorf("marshal request: %w", err))
	}
	resp, err := c.do(ctx, op, c.lookupTimeout, http.MethodPost, path, bytes.NewReader(data), "application/json")
	if err != nil {
		return nil, err
	}
	return op.payloadOf(resp)
}

// payloadOf applies the shared success rule: 200 without an error key.
// Secondary endpoints report non-success statuses generically.
func (op operation) payloadOf(resp *response) (models.Payload, error) {
	if resp.StatusCode != http.StatusOK {
		return nil, op.serverError(resp.StatusCode, "")
	}
	if resp.parseErr != nil {
		return nil, &Error{Op: op.name, Kind: KindTransport, Message: op.failed, StatusCode: resp.StatusCode, Err: resp.parseErr}
	}
	if msg, ok := resp.errorMessage(); ok {
		return nil, op.serverError(resp.StatusCode, msg)
	}
	return resp.Payload, nil
}
