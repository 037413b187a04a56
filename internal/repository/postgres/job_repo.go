package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"formos/internal/domain"
	"formos/internal/port"
)

type jobRepo struct {
	db *sqlx.DB
}

// NewJobRepo creates a new PostgreSQL-backed JobRepository.
func NewJobRepo(db *sqlx.DB) port.JobRepository {
	return &jobRepo{db: db}
}

func (r *jobRepo) Create(ctx context.Context, job *domain.ExtractionJob) error {
	job.CreatedAt = time.Now().UTC()

	query := `INSERT INTO extraction_jobs (
		id, schema_id, file_id, file_name, status, attempts, results, error, created_at, completed_at
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err := r.db.ExecContext(ctx, query,
		job.ID, job.SchemaID, job.FileID, job.FileName, job.Status, job.Attempts,
		job.Results, job.Error, job.CreatedAt, job.CompletedAt)
	if err != nil {
		return fmt.Errorf("jobRepo.Create: %w", err)
	}
	return nil
}

func (r *jobRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.ExtractionJob, error) {
	var job domain.ExtractionJob
	err := r.db.GetContext(ctx, &job, "SELECT * FROM extraction_jobs WHERE id = $1", id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrJobNotFound
		}
		return nil, fmt.Errorf("jobRepo.GetByID: %w", err)
	}
	return &job, nil
}

func (r *jobRepo) ListBySchema(ctx context.Context, schemaID uuid.UUID, offset, limit int) ([]domain.ExtractionJob, int, error) {
	var total int
	err := r.db.GetContext(ctx, &total,
		"SELECT COUNT(*) FROM extraction_jobs WHERE schema_id = $1", schemaID)
	if err != nil {
		return nil, 0, fmt.Errorf("jobRepo.ListBySchema count: %w", err)
	}

	var jobs []domain.ExtractionJob
	err = r.db.SelectContext(ctx, &jobs,
		`SELECT * FROM extraction_jobs WHERE schema_id = $1
		 ORDER BY created_at DESC OFFSET $2 LIMIT $3`, schemaID, offset, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("jobRepo.ListBySchema: %w", err)
	}
	return jobs, total, nil
}

func (r *jobRepo) UpdateStatus(ctx context.Context, job *domain.ExtractionJob) error {
	_, err := r.db.ExecContext(ctx,
		"UPDATE extraction_jobs SET status = $2, error = $3 WHERE id = $1",
		job.ID, job.Status, job.Error)
	if err != nil {
		return fmt.Errorf("jobRepo.UpdateStatus: %w", err)
	}
	return nil
}

func (r *jobRepo) UpdateResults(ctx context.Context, job *domain.ExtractionJob) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE extraction_jobs SET status = $2, results = $3, error = $4, completed_at = $5
		 WHERE id = $1`,
		job.ID, job.Status, job.Results, job.Error, job.CompletedAt)
	if err != nil {
		return fmt.Errorf("jobRepo.UpdateResults: %w", err)
	}
	return nil
}

// ClaimPending atomically claims up to limit pending jobs for processing so
// concurrent workers never pick up the same job twice.
func (r *jobRepo) ClaimPending(ctx context.Context, limit int) ([]domain.ExtractionJob, error) {
	query := `UPDATE extraction_jobs SET status = $1, attempts = attempts + 1
		WHERE id IN (
			SELECT id FROM extraction_jobs WHERE status = $2
			ORDER BY created_at ASC LIMIT $3
			FOR UPDATE SKIP LOCKED
		)
		RETURNING *`

	var jobs []domain.ExtractionJob
	err := r.db.SelectContext(ctx, &jobs, query,
		domain.JobStatusProcessing, domain.JobStatusPending, limit)
	if err != nil {
		return nil, fmt.Errorf("jobRepo.ClaimPending: %w", err)
	}
	return jobs, nil
}

func (r *jobRepo) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM extraction_jobs WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("jobRepo.Delete: %w", err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return domain.ErrJobNotFound
	}
	return nil
}
