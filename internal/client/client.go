// Package client talks to a running planrunner server.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/codefionn/planrunner/internal/server"
	"github.com/codefionn/planrunner/internal/supervisor"
	"github.com/codefionn/planrunner/internal/task"
)

// DefaultBaseURL is where `planrunner serve` listens by default.
const DefaultBaseURL = "http://localhost:8000"

// Client is a thin JSON client for the HTTP API.
type Client struct {
	baseURL string
	http    *http.Client
}

// New creates a client for baseURL.
func New(baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if !strings.Contains(baseURL, "://") {
		baseURL = "http://" + baseURL
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

// Run submits goal and returns the acknowledgement.
func (c *Client) Run(ctx context.Context, goal string) (server.RunResponse, error) {
	var out server.RunResponse
	err := c.do(ctx, http.MethodPost, "/run", server.RunRequest{Task: &goal}, &out)
	return out, err
}

// Status fetches the state of one task.
func (c *Client) Status(ctx context.Context, id string) (task.Status, error) {
	var out task.Status
	err := c.do(ctx, http.MethodGet, "/status/"+id, nil, &out)
	return out, err
}

// Tasks lists every known task.
func (c *Client) Tasks(ctx context.Context) ([]task.Summary, error) {
	var out server.TaskList
	err := c.do(ctx, http.MethodGet, "/tasks", nil, &out)
	return out.Tasks, err
}

// Health fetches the load snapshot.
func (c *Client) Health(ctx context.Context) (supervisor.Health, error) {
	var out supervisor.Health
	err := c.do(ctx, http.MethodGet, "/health", nil, &out)
	return out, err
}

// Reset clears the server's tasks and kills its workers.
func (c *Client) Reset(ctx context.Context) (server.ResetResponse, error) {
	var out server.ResetResponse
	err := c.do(ctx, http.MethodGet, "/reset", nil, &out)
	return out, err
}

// Wait polls id every interval until it reaches a terminal state, is
// unknown to the server, or ctx ends.
func (c *Client) Wait(ctx context.Context, id string, interval time.Duration) (task.Status, error) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		st, err := c.Status(ctx, id)
		if err != nil {
			return st, err
		}
		if st.Status.Terminal() || st.Status == task.StateNotFound {
			return st, nil
		}
		select {
		case <-ctx.Done():
			return st, ctx.Err()
		case <-ticker.C:
		}
	}
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("failed to reach server: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		var e server.ErrorResponse
		if json.Unmarshal(data, &e) == nil && e.Detail != "" {
			return fmt.Errorf("%s %s: %s (%d)", method, path, e.Detail, resp.StatusCode)
		}
		return fmt.Errorf("%s %s: unexpected status %d", method, path, resp.StatusCode)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
