// Package workflow holds the workflow record model, the store client, the
// in-memory workspace, and the synchronizer that keeps the two aligned.
package workflow

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
)

// Record is a workflow as held by the store. The stage fields carry opaque
// JSON documents; visualisation in particular is never interpreted here.
type Record struct {
	ID            int    `json:"id"`
	Username      string `json:"username,omitempty"`
	Name          string `json:"name"`
	DataPrep      string `json:"data_prep"`
	Analysis      string `json:"analysis"`
	Visualisation string `json:"visualisation"`
}

// Client talks to the workflow store REST API.
type Client struct {
	baseURL string
	httpc   *http.Client
	logger  *slog.Logger
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(httpc *http.Client) ClientOption {
	return func(c *Client) { c.httpc = httpc }
}

// WithLogger sets the client logger.
func WithLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) { c.logger = logger }
}

// NewClient creates a client for the store at baseURL.
func NewClient(baseURL string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpc:   http.DefaultClient,
		logger:  slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get fetches a workflow record by ID.
func (c *Client) Get(ctx context.Context, id int) (*Record, error) {
	var rec Record
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/workflows/%d", id), nil, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// List fetches the workflows belonging to a user.
func (c *Client) List(ctx context.Context, username string) ([]Record, error) {
	path := "/workflows"
	if username != "" {
		path += "?username=" + url.QueryEscape(username)
	}
	var recs []Record
	if err := c.do(ctx, http.MethodGet, path, nil, &recs); err != nil {
		return nil, err
	}
	return recs, nil
}

// Create adds a new workflow and returns the stored record.
func (c *Client) Create(ctx context.Context, username, name string) (*Record, error) {
	var rec Record
	body := map[string]string{"username": username, "name": name}
	if err := c.do(ctx, http.MethodPost, "/workflows", body, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// Update merges the given fields into an existing record. Absent fields are
// left untouched by the store.
func (c *Client) Update(ctx context.Context, id int, fields map[string]string) error {
	return c.do(ctx, http.MethodPut, fmt.Sprintf("/workflows/%d", id), fields, nil)
}

// Delete removes a workflow record.
func (c *Client) Delete(ctx context.Context, id int) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/workflows/%d", id), nil, nil)
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request body: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	c.logger.Debug("workflow store request", "method", method, "path", path)

	resp, err := c.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("calling workflow store: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("workflow store %s %s: status %d: %s", method, path, resp.StatusCode, strings.TrimSpace(string(payload)))
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding workflow store response: %w", err)
	}
	return nil
}
