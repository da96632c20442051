package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"streamline/internal/jobstatus"
	"streamline/internal/orchestrator"
	"streamline/internal/streaming"
)

// Client calls a running daemon over HTTP.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

// APIError is a non-2xx response.
type APIError struct {
	StatusCode int
	Kind       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Kind != "" {
		return fmt.Sprintf("api %d (%s): %s", e.StatusCode, e.Kind, e.Message)
	}
	return fmt.Sprintf("api %d: %s", e.StatusCode, e.Message)
}

// NewClient targets baseURL, e.g. "http://127.0.0.1:7490". A bare host:port
// is accepted. httpClient may be nil.
func NewClient(baseURL, token string, httpClient *http.Client) *Client {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if !strings.Contains(baseURL, "://") {
		baseURL = "http://" + baseURL
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Minute}
	}
	return &Client{baseURL: baseURL, token: token, http: httpClient}
}

// Submit posts a streaming request.
func (c *Client) Submit(ctx context.Context, req streaming.Request) (orchestrator.Submission, error) {
	var sub orchestrator.Submission
	body, err := json.Marshal(req)
	if err != nil {
		return sub, fmt.Errorf("encode request: %w", err)
	}
	err = c.do(ctx, http.MethodPost, "/streaming", bytes.NewReader(body), &sub)
	return sub, err
}

// Status reads the view of a job.
func (c *Client) Status(ctx context.Context, jobID string) (jobstatus.View, error) {
	var view jobstatus.View
	err := c.do(ctx, http.MethodGet, "/streaming/"+url.PathEscape(jobID), nil, &view)
	return view, err
}

// Runs lists recent runs.
func (c *Client) Runs(ctx context.Context, limit int, states ...string) ([]RunItem, error) {
	query := url.Values{}
	if limit > 0 {
		query.Set("limit", strconv.Itoa(limit))
	}
	for _, st := range states {
		query.Add("state", st)
	}
	path := "/runs"
	if encoded := query.Encode(); encoded != "" {
		path += "?" + encoded
	}
	var resp RunListResponse
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Items, nil
}

// Run describes one run.
func (c *Client) Run(ctx context.Context, runID string) (RunDetailResponse, error) {
	var resp RunDetailResponse
	err := c.do(ctx, http.MethodGet, "/runs/"+url.PathEscape(runID), nil, &resp)
	return resp, err
}

// Health checks liveness.
func (c *Client) Health(ctx context.Context) error {
	var resp HealthResponse
	return c.do(ctx, http.MethodGet, healthPath, nil, &resp)
}

func (c *Client) do(ctx context.Context, method, path string, body io.Reader, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(data))}
		var payload ErrorResponse
		if json.Unmarshal(data, &payload) == nil && payload.Error != "" {
			apiErr.Kind = payload.Kind
			apiErr.Message = payload.Error
		}
		return apiErr
	}
	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
