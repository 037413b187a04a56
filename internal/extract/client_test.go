package extract_test

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"formos/internal/config"
	"formos/internal/extract"
	"formos/internal/port"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *extract.Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return extract.NewClient(&config.ExtractorConfig{
		Endpoint: srv.URL,
		APIKey:   "test-key",
	})
}

func sampleInput() port.ExtractInput {
	return port.ExtractInput{
		Fields:      json.RawMessage(`[{"id":"invoice_number","name":"Invoice Number"}]`),
		FileName:    "invoice.pdf",
		ContentType: "application/pdf",
		FileBytes:   []byte("%PDF-1.4 fake"),
	}
}

func TestExtract_TopLevelResults(t *testing.T) {
	var gotBody map[string]interface{}
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		_, _ = w.Write([]byte(`{
			"success": true,
			"results": {"Invoice Number": "INV-001"},
			"confidence": {"invoice_number": 0.92},
			"ocrMarkdown": "# Invoice",
			"handledWithFallback": true
		}`))
	})

	out, err := client.Extract(context.Background(), sampleInput())
	require.NoError(t, err)

	assert.Equal(t, "INV-001", out.Results["Invoice Number"])
	require.NotNil(t, out.Confidence["invoice_number"])
	assert.Equal(t, 0.92, *out.Confidence["invoice_number"])
	assert.Equal(t, "# Invoice", out.OCRMarkdown)
	assert.True(t, out.HandledWithFallback)

	// File payload travels base64-encoded
	wantData := base64.StdEncoding.EncodeToString([]byte("%PDF-1.4 fake"))
	assert.Equal(t, wantData, gotBody["data"])
	assert.Equal(t, "invoice.pdf", gotBody["fileName"])
}

func TestExtract_NestedDataResults(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{
			"success": true,
			"data": {
				"results": {"Invoice Number": "INV-002"},
				"confidence": {"invoice_number": null}
			}
		}`))
	})

	out, err := client.Extract(context.Background(), sampleInput())
	require.NoError(t, err)

	assert.Equal(t, "INV-002", out.Results["Invoice Number"])
	conf, ok := out.Confidence["invoice_number"]
	require.True(t, ok)
	assert.Nil(t, conf)
}

func TestExtract_MissingResultsYieldsEmptyMap(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"success":true}`))
	})

	out, err := client.Extract(context.Background(), sampleInput())
	require.NoError(t, err)
	assert.NotNil(t, out.Results)
	assert.Empty(t, out.Results)
}

func TestExtract_RateLimited(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "120")
		w.WriteHeader(http.StatusTooManyRequests)
	})

	_, err := client.Extract(context.Background(), sampleInput())
	var rateErr *extract.RateLimitError
	require.ErrorAs(t, err, &rateErr)
	assert.Equal(t, 120*time.Second, rateErr.RetryAfter)
}

func TestExtract_EndpointFailure(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"success":false,"error":"unreadable document"}`))
	})

	_, err := client.Extract(context.Background(), sampleInput())
	require.Error(t, err)
	assert.Equal(t, "unreadable document", err.Error())
}

func TestExtract_NonSuccessStatus(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	_, err := client.Extract(context.Background(), sampleInput())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 500")
}
