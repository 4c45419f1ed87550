// Package backend is the HTTP client for the calls backend.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/digiheadway/easy-call-track-cloud-sub003/internal/labels"
	"github.com/digiheadway/easy-call-track-cloud-sub003/internal/types"
)

// ErrRejected is returned when the backend answers 2xx with success=false
var ErrRejected = errors.New("backend rejected the request")

// Client talks to the calls backend
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	logger     zerolog.Logger
}

// NewClient creates a new backend client. token may be empty.
func NewClient(baseURL, token string, timeout time.Duration, logger zerolog.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger.With().Str("component", "backend").Logger(),
	}
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body any) ([]byte, error) {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	c.logger.Debug().
		Str("method", method).
		Str("path", path).
		Int("status", resp.StatusCode).
		Dur("duration", time.Since(start)).
		Msg("backend request")

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%s %s returned status %d: %s", method, path, resp.StatusCode, truncate(data, 200))
	}
	return data, nil
}

// envelope is the common {success, message, data} wrapper
type envelope struct {
	Success *bool           `json:"success"`
	Message string          `json:"message"`
	Error   string          `json:"error"`
	Data    json.RawMessage `json:"data"`
}

func checkEnvelope(data []byte) (*envelope, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, err
	}
	if env.Success != nil && !*env.Success {
		msg := env.Message
		if msg == "" {
			msg = env.Error
		}
		return nil, fmt.Errorf("%w: %s", ErrRejected, msg)
	}
	return &env, nil
}

// ListCalls fetches one page of calls. The legacy bare-array shape is
// accepted and yields a nil Pagination.
func (c *Client) ListCalls(ctx context.Context, query url.Values) (*types.CallPage, error) {
	data, err := c.do(ctx, http.MethodGet, "/calls", query, nil)
	if err != nil {
		return nil, err
	}

	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var calls []types.Call
		if err := json.Unmarshal(trimmed, &calls); err != nil {
			return nil, fmt.Errorf("decode calls: %w", err)
		}
		return &types.CallPage{Calls: calls}, nil
	}

	if _, err := checkEnvelope(trimmed); err != nil {
		return nil, err
	}
	var page types.CallPage
	if err := json.Unmarshal(trimmed, &page); err != nil {
		return nil, fmt.Errorf("decode calls: %w", err)
	}
	if page.Calls == nil {
		page.Calls = []types.Call{}
	}
	return &page, nil
}

// UpdateCall posts a partial update of one call
func (c *Client) UpdateCall(ctx context.Context, id string, fields map[string]any) error {
	q := url.Values{}
	q.Set("action", "update")
	q.Set("id", id)

	data, err := c.do(ctx, http.MethodPost, "/calls", q, fields)
	if err != nil {
		return err
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	// any 2xx body that is not an explicit success=false counts as success
	if _, err := checkEnvelope(data); errors.Is(err, ErrRejected) {
		return err
	}
	return nil
}

type labelItem struct {
	Label  string `json:"label"`
	Labels string `json:"labels"`
}

// Labels returns the distinct labels used on calls. Items carry either a
// single label or a comma-joined labels field.
func (c *Client) Labels(ctx context.Context) ([]string, error) {
	q := url.Values{}
	q.Set("action", "labels")

	data, err := c.do(ctx, http.MethodGet, "/calls", q, nil)
	if err != nil {
		return nil, err
	}
	env, err := checkEnvelope(data)
	if err != nil {
		return nil, fmt.Errorf("decode labels: %w", err)
	}

	var items []labelItem
	if len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, &items); err != nil {
			return nil, fmt.Errorf("decode labels: %w", err)
		}
	}

	var all []string
	for _, item := range items {
		all = append(all, labels.Split(item.Label)...)
		all = append(all, labels.Split(item.Labels)...)
	}
	return labels.Split(labels.Join(all)), nil
}

// Employees lists the employees for the employee filter
func (c *Client) Employees(ctx context.Context) ([]types.Employee, error) {
	data, err := c.do(ctx, http.MethodGet, "/employees", nil, nil)
	if err != nil {
		return nil, err
	}

	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		env, err := checkEnvelope(trimmed)
		if err != nil {
			return nil, fmt.Errorf("decode employees: %w", err)
		}
		trimmed = env.Data
	}

	employees := []types.Employee{}
	if len(trimmed) > 0 && string(trimmed) != "null" {
		if err := json.Unmarshal(trimmed, &employees); err != nil {
			return nil, fmt.Errorf("decode employees: %w", err)
		}
	}
	return employees, nil
}

// GetUserSettings returns the stored blob for key, or nil when none exists.
// The backend may return the blob as an object or as a JSON string.
func (c *Client) GetUserSettings(ctx context.Context, key string) (json.RawMessage, error) {
	q := url.Values{}
	q.Set("key", key)

	data, err := c.do(ctx, http.MethodGet, "/user_settings", q, nil)
	if err != nil {
		return nil, err
	}
	env, err := checkEnvelope(data)
	if err != nil {
		return nil, fmt.Errorf("decode user settings: %w", err)
	}

	raw := bytes.TrimSpace(env.Data)
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, fmt.Errorf("decode user settings: %w", err)
		}
		if strings.TrimSpace(s) == "" {
			return nil, nil
		}
		raw = []byte(s)
	}
	if !json.Valid(raw) {
		return nil, fmt.Errorf("decode user settings: invalid JSON blob")
	}
	return json.RawMessage(raw), nil
}

// SaveUserSettings stores the blob under key
func (c *Client) SaveUserSettings(ctx context.Context, key string, value json.RawMessage) error {
	body := struct {
		Key   string          `json:"key"`
		Value json.RawMessage `json:"value"`
	}{Key: key, Value: value}

	data, err := c.do(ctx, http.MethodPost, "/user_settings", nil, body)
	if err != nil {
		return err
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	_, err = checkEnvelope(data)
	return err
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
