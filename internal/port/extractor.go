package port

import (
	"context"
	"encoding/json"
)

// ExtractInput carries the pruned extraction-only schema tree and the file
// payload for the one-shot document extraction call.
type ExtractInput struct {
	Fields      json.RawMessage
	FileName    string
	FileBytes   []byte
	ContentType string
}

// ExtractOutput is the extraction endpoint's response as consumed by the
// reconciler: the raw nested values plus per-field confidence and
// fallback/OCR annotations. Confidence is keyed by field id; a nil score
// means the endpoint could not rate the field.
type ExtractOutput struct {
	Results              map[string]interface{}
	Confidence           map[string]*float64
	OCRMarkdown          string
	OCRAnnotatedImageURL string
	OriginalFileURL      string
	HandledWithFallback  bool
}

// Extractor abstracts the remote document extraction endpoint.
type Extractor interface {
	Extract(ctx context.Context, input ExtractInput) (*ExtractOutput, error)
}
