// Package transform implements the HTTP client for the remote transformation
// endpoint.
package transform

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"formos/internal/config"
	"formos/internal/port"
)

// Client implements port.Transformer against the transformation HTTP service.
type Client struct {
	endpoint string
	apiKey   string
	client   *http.Client
}

// NewClient creates a transformation client from config.
func NewClient(cfg *config.TransformerConfig) *Client {
	timeout := time.Duration(cfg.TimeoutSecs) * time.Second
	if timeout == 0 {
		timeout = 120 * time.Second
	}
	return &Client{
		endpoint: cfg.Endpoint,
		apiKey:   cfg.APIKey,
		client:   &http.Client{Timeout: timeout},
	}
}

// transformResponse is the wire shape of the endpoint's reply. Result is
// either {"value": ...} or the bare value itself.
type transformResponse struct {
	Success bool            `json:"success"`
	Result  json.RawMessage `json:"result"`
	Error   string          `json:"error"`
}

// Transform posts one derived-field computation and returns the computed
// value. Timeouts and transport failures surface as ordinary errors so the
// engine can record them as a field-scoped error status.
func (c *Client) Transform(ctx context.Context, req port.TransformRequest) (interface{}, error) {
	bodyBytes, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("calling transformation endpoint: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		retryAfter := ParseRetryAfterHeader(resp.Header.Get("Retry-After"))
		return nil, NewRateLimitError(fmt.Errorf("status %d", resp.StatusCode), retryAfter)
	}
	if resp.StatusCode/100 != 2 {
		return nil, fmt.Errorf("transformation endpoint returned status %d: %s", resp.StatusCode, truncate(respBody, 256))
	}

	var parsed transformResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, fmt.Errorf("malformed response body: %w", err)
	}
	if !parsed.Success {
		msg := parsed.Error
		if msg == "" {
			msg = "transformation failed"
		}
		return nil, fmt.Errorf("%s", msg)
	}

	return decodeResult(parsed.Result)
}

// decodeResult unwraps {"value": ...} envelopes and passes bare values through.
func decodeResult(raw json.RawMessage) (interface{}, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("response carried no result")
	}

	var envelope struct {
		Value *json.RawMessage `json:"value"`
	}
	if err := json.Unmarshal(raw, &envelope); err == nil && envelope.Value != nil {
		raw = *envelope.Value
	}

	var value interface{}
	if err := json.Unmarshal(raw, &value); err != nil {
		return nil, fmt.Errorf("malformed result value: %w", err)
	}
	return value, nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
