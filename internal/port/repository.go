package port

import (
	"context"

	"github.com/google/uuid"

	"formos/internal/domain"
)

// SchemaRepository persists extraction schemas.
type SchemaRepository interface {
	Create(ctx context.Context, s *domain.SchemaDefinition) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.SchemaDefinition, error)
	List(ctx context.Context, offset, limit int) ([]domain.SchemaDefinition, int, error)
	UpdateFields(ctx context.Context, s *domain.SchemaDefinition) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// JobRepository persists extraction jobs.
type JobRepository interface {
	Create(ctx context.Context, job *domain.ExtractionJob) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.ExtractionJob, error)
	ListBySchema(ctx context.Context, schemaID uuid.UUID, offset, limit int) ([]domain.ExtractionJob, int, error)
	UpdateStatus(ctx context.Context, job *domain.ExtractionJob) error
	UpdateResults(ctx context.Context, job *domain.ExtractionJob) error
	ClaimPending(ctx context.Context, limit int) ([]domain.ExtractionJob, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// FileMetaRepository persists uploaded file metadata.
type FileMetaRepository interface {
	Create(ctx context.Context, meta *domain.FileMeta) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.FileMeta, error)
	Delete(ctx context.Context, id uuid.UUID) error
}
