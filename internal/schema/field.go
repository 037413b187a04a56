package schema

import (
	"encoding/json"
	"fmt"

	"formos/internal/domain"
)

// Kind discriminates the field tree variants. Every tree-walking site must
// switch exhaustively over these so a new composite kind is a compile-time
// visible change.
type Kind string

const (
	KindLeaf   Kind = "leaf"
	KindObject Kind = "object"
	KindList   Kind = "list"
	KindTable  Kind = "table"
	KindInput  Kind = "input"
)

// PrimitiveType is the value type of a leaf field.
type PrimitiveType string

const (
	TypeString       PrimitiveType = "string"
	TypeNumber       PrimitiveType = "number"
	TypeDecimal      PrimitiveType = "decimal"
	TypeBoolean      PrimitiveType = "boolean"
	TypeDate         PrimitiveType = "date"
	TypeEmail        PrimitiveType = "email"
	TypeURL          PrimitiveType = "url"
	TypePhone        PrimitiveType = "phone"
	TypeAddress      PrimitiveType = "address"
	TypeRichText     PrimitiveType = "richtext"
	TypeSingleSelect PrimitiveType = "single_select"
	TypeMultiSelect  PrimitiveType = "multi_select"
)

// TransformationConfig carries the settings for a derived field's computation.
type TransformationConfig struct {
	Prompt        string   `json:"prompt"`
	SelectedTools []string `json:"selectedTools,omitempty"`
}

// Field is one node of the schema tree. The populated shape depends on Kind:
// leaf uses Type/Options, object uses Children, list uses Item, table uses
// Columns, input uses InputType. A list with a nil Item is an accepted empty
// state, not an error.
type Field struct {
	ID           string        `json:"id"`
	Name         string        `json:"name"`
	Description  string        `json:"description,omitempty"`
	Instructions string        `json:"instructions,omitempty"`
	Required     bool          `json:"required,omitempty"`
	Kind         Kind          `json:"kind"`
	Type         PrimitiveType `json:"type,omitempty"`
	Options      []string      `json:"options,omitempty"`
	Children     []Field       `json:"children,omitempty"`
	Item         *Field        `json:"item,omitempty"`
	Columns      []Field       `json:"columns,omitempty"`
	InputType    string        `json:"inputType,omitempty"`

	IsTransformation     bool                        `json:"isTransformation,omitempty"`
	TransformationType   string                      `json:"transformationType,omitempty"`
	TransformationConfig *TransformationConfig       `json:"transformationConfig,omitempty"`
	TransformationSource domain.TransformationSource `json:"transformationSource,omitempty"`

	DisplayInSummary bool `json:"displayInSummary,omitempty"`
}

// IsExtraction reports whether the field's value is produced directly by
// document extraction: not an input slot and not a transformation.
func (f *Field) IsExtraction() bool {
	return f.Kind != KindInput && !f.IsTransformation
}

// Prompt returns the free-text transformation prompt, preferring the explicit
// config over the field's extraction instructions.
func (f *Field) Prompt() string {
	if f.TransformationConfig != nil && f.TransformationConfig.Prompt != "" {
		return f.TransformationConfig.Prompt
	}
	return f.Instructions
}

// SelectedTools returns the auxiliary tool identifiers configured for the
// field's transformation, or nil.
func (f *Field) SelectedTools() []string {
	if f.TransformationConfig == nil {
		return nil
	}
	return f.TransformationConfig.SelectedTools
}

// ParseFields decodes a serialized field tree.
func ParseFields(raw json.RawMessage) ([]Field, error) {
	var fields []Field
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, fmt.Errorf("decoding schema fields: %w", err)
	}
	return fields, nil
}

// MarshalFields encodes a field tree for storage.
func MarshalFields(fields []Field) (json.RawMessage, error) {
	raw, err := json.Marshal(fields)
	if err != nil {
		return nil, fmt.Errorf("encoding schema fields: %w", err)
	}
	return raw, nil
}
