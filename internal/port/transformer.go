package port

import (
	"context"
	"encoding/json"

	"formos/internal/domain"
)

// InputDocument is a document/text payload referenced by a transformation's
// input field.
type InputDocument struct {
	FieldID   string `json:"fieldId"`
	Name      string `json:"name"`
	Type      string `json:"type"`
	Data      string `json:"data"`
	Text      string `json:"text,omitempty"`
	InputType string `json:"inputType"`
}

// TransformRequest carries everything one derived-field computation needs.
// ColumnValues maps dependency field names and ids to their already-resolved
// values.
type TransformRequest struct {
	Prompt         string                      `json:"prompt"`
	InputSource    domain.TransformationSource `json:"inputSource"`
	ColumnValues   map[string]interface{}      `json:"columnValues"`
	FieldType      string                      `json:"fieldType"`
	FieldSchema    json.RawMessage             `json:"fieldSchema"`
	SelectedTools  []string                    `json:"selectedTools"`
	InputDocuments []InputDocument             `json:"inputDocuments"`
}

// Transformer abstracts the remote transformation endpoint. Transform returns
// the computed value, or an error covering transport failures, non-2xx
// responses, malformed bodies, and application-level success:false alike.
type Transformer interface {
	Transform(ctx context.Context, req TransformRequest) (interface{}, error)
}
