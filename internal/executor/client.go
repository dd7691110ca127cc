// Package executor is the HTTP client for the external query execution
// endpoint. The endpoint is a black box: it receives a script and a set of
// named tables and returns rows, a structured error, or a result object.
package executor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sort"
	"strings"

	"github.com/zaidkom/net-zero/internal/table"
)

// Request is the execution payload. Query/Language carry a data-prep query;
// Script/ScriptType carry an analysis script. Tables is the full execution
// environment, table name to rows.
type Request struct {
	Query      string                 `json:"query,omitempty"`
	Script     string                 `json:"script,omitempty"`
	Language   string                 `json:"language,omitempty"`
	ScriptType string                 `json:"script_type,omitempty"`
	Tables     map[string][]table.Row `json:"tables"`
}

// Result is the endpoint response. Exactly one of the three shapes is
// populated: rectangular Columns/Data, a raw Result document, or Error
// (optionally with Trace).
type Result struct {
	Columns []table.Column  `json:"columns,omitempty"`
	Data    []table.Row     `json:"data,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   string          `json:"error,omitempty"`
	Trace   string          `json:"trace,omitempty"`
}

// Failed reports whether the endpoint returned a structured error.
func (r *Result) Failed() bool {
	return r != nil && r.Error != ""
}

// Rows extracts the table to insert into an environment under the given
// reference name. Preference order: the rectangular data array; then, if the
// result document is an object, its sub-value keyed by name when array-shaped,
// else its first array-shaped value (by sorted key, for determinism); then
// the result document itself when it is an array. Anything else yields an
// empty table.
func (r *Result) Rows(name string) []table.Row {
	if r == nil {
		return nil
	}
	if r.Data != nil {
		return r.Data
	}
	if len(r.Result) == 0 {
		return nil
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(r.Result, &obj); err == nil {
		if rows, ok := decodeRows(obj[name]); ok {
			return rows
		}
		keys := make([]string, 0, len(obj))
		for k := range obj {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			if rows, ok := decodeRows(obj[k]); ok {
				return rows
			}
		}
		return nil
	}

	if rows, ok := decodeRows(r.Result); ok {
		return rows
	}
	return nil
}

func decodeRows(raw json.RawMessage) ([]table.Row, bool) {
	if len(raw) == 0 {
		return nil, false
	}
	var rows []table.Row
	if err := json.Unmarshal(raw, &rows); err != nil {
		return nil, false
	}
	return rows, true
}

// Client talks to the execution endpoint.
type Client struct {
	baseURL string
	httpc   *http.Client
	logger  *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(httpc *http.Client) Option {
	return func(c *Client) { c.httpc = httpc }
}

// WithLogger sets the client logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// NewClient creates a client for the endpoint at baseURL.
func NewClient(baseURL string, opts ...Option) *Client {
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

// Execute posts the request and decodes the response. A non-2xx status with
// a decodable body still yields a Result so structured errors survive; other
// transport problems return an error for the caller to normalize.
func (c *Client) Execute(ctx context.Context, req Request) (*Result, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encoding execution request: %w", err)
	}

	url := c.baseURL + "/api/execute-query"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("building execution request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	c.logger.Debug("executing query",
		"url", url,
		"tables", len(req.Tables),
	)

	resp, err := c.httpc.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("calling execution endpoint: %w", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading execution response: %w", err)
	}

	var result Result
	if err := json.Unmarshal(payload, &result); err != nil {
		return nil, fmt.Errorf("decoding execution response (status %d): %w", resp.StatusCode, err)
	}
	if resp.StatusCode >= 400 && result.Error == "" {
		return nil, fmt.Errorf("execution endpoint returned status %d", resp.StatusCode)
	}
	return &result, nil
}
