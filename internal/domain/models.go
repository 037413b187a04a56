package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// SchemaDefinition is a stored extraction schema. Fields holds the serialized
// field tree (see internal/schema).
type SchemaDefinition struct {
	ID        uuid.UUID       `db:"id" json:"id"`
	Name      string          `db:"name" json:"name"`
	Fields    json.RawMessage `db:"fields" json:"fields"`
	CreatedBy string          `db:"created_by" json:"created_by"`
	CreatedAt time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt time.Time       `db:"updated_at" json:"updated_at"`
}

// ExtractionJob tracks one document through extraction, transformation, and
// reconciliation. Results holds the merged values+meta blob; use
// reconcile.ExtractResultsMeta to split it on read.
type ExtractionJob struct {
	ID          uuid.UUID       `db:"id" json:"id"`
	SchemaID    uuid.UUID       `db:"schema_id" json:"schema_id"`
	FileID      uuid.UUID       `db:"file_id" json:"file_id"`
	FileName    string          `db:"file_name" json:"file_name"`
	Status      JobStatus       `db:"status" json:"status"`
	Attempts    int             `db:"attempts" json:"attempts"`
	Results     json.RawMessage `db:"results" json:"results"`
	Error       string          `db:"error" json:"error"`
	CreatedAt   time.Time       `db:"created_at" json:"created_at"`
	CompletedAt *time.Time      `db:"completed_at" json:"completed_at"`
}

// FileMeta stores metadata about an uploaded document payload.
type FileMeta struct {
	ID           uuid.UUID `db:"id" json:"id"`
	FileName     string    `db:"file_name" json:"file_name"`
	OriginalName string    `db:"original_name" json:"original_name"`
	FileType     FileType  `db:"file_type" json:"file_type"`
	FileSize     int64     `db:"file_size" json:"file_size"`
	S3Bucket     string    `db:"s3_bucket" json:"s3_bucket"`
	S3Key        string    `db:"s3_key" json:"s3_key"`
	ContentType  string    `db:"content_type" json:"content_type"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// FieldReviewMeta is the per-field confidence/verification record attached to
// a job's results, independent of the raw value.
type FieldReviewMeta struct {
	Status        ReviewState `json:"status"`
	UpdatedAt     string      `json:"updatedAt"`
	Reason        string      `json:"reason"`
	Confidence    *float64    `json:"confidence"`
	VerifiedAt    *string     `json:"verifiedAt"`
	VerifiedBy    *string     `json:"verifiedBy"`
	OriginalValue interface{} `json:"originalValue"`
}

// ResultsMeta groups the review records and raw confidence scores for a job.
type ResultsMeta struct {
	Review     map[string]FieldReviewMeta `json:"review"`
	Confidence map[string]*float64        `json:"confidence,omitempty"`
}

// IsEmpty reports whether the meta carries no information at all.
func (m *ResultsMeta) IsEmpty() bool {
	return m == nil || (len(m.Review) == 0 && len(m.Confidence) == 0)
}
