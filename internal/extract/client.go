// Package extract implements the HTTP client for the one-shot document
// extraction endpoint.
package extract

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"formos/internal/config"
	"formos/internal/port"
)

// Client implements port.Extractor against the extraction HTTP service.
type Client struct {
	endpoint string
	apiKey   string
	client   *http.Client
}

// NewClient creates an extraction client from config.
func NewClient(cfg *config.ExtractorConfig) *Client {
	timeout := time.Duration(cfg.TimeoutSecs) * time.Second
	if timeout == 0 {
		timeout = 300 * time.Second
	}
	return &Client{
		endpoint: cfg.Endpoint,
		apiKey:   cfg.APIKey,
		client:   &http.Client{Timeout: timeout},
	}
}

type extractRequest struct {
	Fields      json.RawMessage `json:"fields"`
	FileName    string          `json:"fileName"`
	ContentType string          `json:"contentType"`
	Data        string          `json:"data"`
}

// extractResponse mirrors the endpoint's reply. Some deployments nest results
// under data.results; both shapes are accepted.
type extractResponse struct {
	Success    bool                   `json:"success"`
	Results    map[string]interface{} `json:"results"`
	Confidence map[string]*float64    `json:"confidence"`
	Data       *struct {
		Results    map[string]interface{} `json:"results"`
		Confidence map[string]*float64    `json:"confidence"`
	} `json:"data"`
	OCRMarkdown          string `json:"ocrMarkdown"`
	OCRAnnotatedImageURL string `json:"ocrAnnotatedImageUrl"`
	OriginalFileURL      string `json:"originalFileUrl"`
	HandledWithFallback  bool   `json:"handledWithFallback"`
	Error                string `json:"error"`
}

// Extract posts the pruned extraction-only schema tree and the file payload,
// returning the raw nested values plus fallback/OCR annotations.
func (c *Client) Extract(ctx context.Context, input port.ExtractInput) (*port.ExtractOutput, error) {
	reqBody := extractRequest{
		Fields:      input.Fields,
		FileName:    input.FileName,
		ContentType: input.ContentType,
		Data:        base64.StdEncoding.EncodeToString(input.FileBytes),
	}

	bodyBytes, err := json.Marshal(reqBody)
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
		return nil, fmt.Errorf("calling extraction endpoint: %w", err)
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
		return nil, fmt.Errorf("extraction endpoint returned status %d", resp.StatusCode)
	}

	var parsed extractResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, fmt.Errorf("malformed response body: %w", err)
	}
	if !parsed.Success {
		msg := parsed.Error
		if msg == "" {
			msg = "extraction failed"
		}
		return nil, fmt.Errorf("%s", msg)
	}

	results := parsed.Results
	confidence := parsed.Confidence
	if parsed.Data != nil {
		if results == nil {
			results = parsed.Data.Results
		}
		if confidence == nil {
			confidence = parsed.Data.Confidence
		}
	}
	if results == nil {
		results = map[string]interface{}{}
	}

	return &port.ExtractOutput{
		Results:              results,
		Confidence:           confidence,
		OCRMarkdown:          parsed.OCRMarkdown,
		OCRAnnotatedImageURL: parsed.OCRAnnotatedImageURL,
		OriginalFileURL:      parsed.OriginalFileURL,
		HandledWithFallback:  parsed.HandledWithFallback,
	}, nil
}
