package fraudshield

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"
)

// Client is a typed HTTP client for the FraudShield API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
}

// ClientOption configures the client.
type ClientOption func(*Client)

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithAPIKey sets the X-API-Key header on every request.
func WithAPIKey(key string) ClientOption {
	return func(c *Client) {
		c.apiKey = key
	}
}

// NewClient creates a client for the service at baseURL
// (e.g. "http://localhost:8080").
func NewClient(baseURL string, opts ...ClientOption) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: 60 * time.Second},
		baseURL:    baseURL,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Decide requests a decision for one transaction.
func (c *Client) Decide(ctx context.Context, transID string) (*DecisionPacket, error) {
	var packet DecisionPacket
	err := c.do(ctx, http.MethodPost, "/decision",
		map[string]string{"transaction_id": transID}, &packet)
	if err != nil {
		return nil, err
	}
	return &packet, nil
}

// Investigate requests a decision plus the full agent investigation.
// Investigations call an LLM for each agent and routinely take tens of
// seconds; size the context accordingly.
func (c *Client) Investigate(ctx context.Context, transID string) (*InvestigationResult, error) {
	var result InvestigationResult
	err := c.do(ctx, http.MethodPost, "/investigate",
		map[string]string{"transaction_id": transID}, &result)
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// KPIs fetches the portfolio aggregate for a trailing window of windowDays.
// Pass 0 for the service default (30 days).
func (c *Client) KPIs(ctx context.Context, windowDays int) (*KPIReport, error) {
	path := "/kpis"
	if windowDays > 0 {
		path += "?window_days=" + strconv.Itoa(windowDays)
	}
	var report KPIReport
	if err := c.do(ctx, http.MethodGet, path, nil, &report); err != nil {
		return nil, err
	}
	return &report, nil
}

// Case fetches the redacted case bundle for one transaction. The bundle
// shape follows the server's operator view; callers that need typed access
// should decode the returned map into their own structures.
func (c *Client) Case(ctx context.Context, transID string) (map[string]any, error) {
	var bundle map[string]any
	if err := c.do(ctx, http.MethodGet, "/case/"+transID, nil, &bundle); err != nil {
		return nil, err
	}
	return bundle, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		apiErr := &Error{StatusCode: resp.StatusCode}
		if err := json.Unmarshal(data, apiErr); err != nil || apiErr.Code == "" {
			apiErr.Code = "http_error"
			apiErr.Message = fmt.Sprintf("unexpected status %d", resp.StatusCode)
		}
		return apiErr
	}

	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("failed to parse response: %w", err)
		}
	}
	return nil
}
