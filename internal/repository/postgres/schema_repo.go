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

type schemaRepo struct {
	db *sqlx.DB
}

// NewSchemaRepo creates a new PostgreSQL-backed SchemaRepository.
func NewSchemaRepo(db *sqlx.DB) port.SchemaRepository {
	return &schemaRepo{db: db}
}

func (r *schemaRepo) Create(ctx context.Context, s *domain.SchemaDefinition) error {
	now := time.Now().UTC()
	s.CreatedAt = now
	s.UpdatedAt = now

	query := `INSERT INTO schemas (id, name, fields, created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := r.db.ExecContext(ctx, query,
		s.ID, s.Name, s.Fields, s.CreatedBy, s.CreatedAt, s.UpdatedAt)
	if err != nil {
		return fmt.Errorf("schemaRepo.Create: %w", err)
	}
	return nil
}

func (r *schemaRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.SchemaDefinition, error) {
	var s domain.SchemaDefinition
	err := r.db.GetContext(ctx, &s, "SELECT * FROM schemas WHERE id = $1", id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrSchemaNotFound
		}
		return nil, fmt.Errorf("schemaRepo.GetByID: %w", err)
	}
	return &s, nil
}

func (r *schemaRepo) List(ctx context.Context, offset, limit int) ([]domain.SchemaDefinition, int, error) {
	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM schemas"); err != nil {
		return nil, 0, fmt.Errorf("schemaRepo.List count: %w", err)
	}

	var schemas []domain.SchemaDefinition
	err := r.db.SelectContext(ctx, &schemas,
		"SELECT * FROM schemas ORDER BY created_at DESC OFFSET $1 LIMIT $2", offset, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("schemaRepo.List: %w", err)
	}
	return schemas, total, nil
}

func (r *schemaRepo) UpdateFields(ctx context.Context, s *domain.SchemaDefinition) error {
	s.UpdatedAt = time.Now().UTC()

	result, err := r.db.ExecContext(ctx,
		"UPDATE schemas SET name = $2, fields = $3, updated_at = $4 WHERE id = $1",
		s.ID, s.Name, s.Fields, s.UpdatedAt)
	if err != nil {
		return fmt.Errorf("schemaRepo.UpdateFields: %w", err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return domain.ErrSchemaNotFound
	}
	return nil
}

func (r *schemaRepo) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM schemas WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("schemaRepo.Delete: %w", err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return domain.ErrSchemaNotFound
	}
	return nil
}
