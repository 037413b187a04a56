package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/google/uuid"

	"formos/internal/depgraph"
	"formos/internal/domain"
	"formos/internal/port"
	"formos/internal/schema"
)

// CreateSchemaInput is the DTO for creating an extraction schema.
type CreateSchemaInput struct {
	Name      string
	Fields    json.RawMessage
	CreatedBy string
}

// PlanField is one scheduled field inside an execution plan wave.
type PlanField struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// ExecutionPlan previews how a schema's derived fields would be scheduled:
// the waves in execution order plus every dependency the validator could not
// resolve. Fields listed in missingByField never appear in a wave.
type ExecutionPlan struct {
	Waves          [][]PlanField       `json:"waves"`
	Unresolvable   []string            `json:"unresolvable"`
	MissingByField map[string][]string `json:"missingByField"`
}

// SchemaService defines the schema management contract.
type SchemaService interface {
	Create(ctx context.Context, input *CreateSchemaInput) (*domain.SchemaDefinition, error)
	GetByID(ctx context.Context, id uuid.UUID) (*domain.SchemaDefinition, error)
	List(ctx context.Context, offset, limit int) ([]domain.SchemaDefinition, int, error)
	UpdateField(ctx context.Context, schemaID uuid.UUID, fieldID string, replacement schema.Field) (*domain.SchemaDefinition, error)
	RemoveField(ctx context.Context, schemaID uuid.UUID, fieldID string) (*domain.SchemaDefinition, error)
	Plan(ctx context.Context, schemaID uuid.UUID) (*ExecutionPlan, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type schemaService struct {
	schemaRepo port.SchemaRepository
	resolver   depgraph.ReferenceResolver
}

// NewSchemaService creates a new SchemaService implementation.
func NewSchemaService(schemaRepo port.SchemaRepository, resolver depgraph.ReferenceResolver) SchemaService {
	return &schemaService{
		schemaRepo: schemaRepo,
		resolver:   resolver,
	}
}

func (s *schemaService) Create(ctx context.Context, input *CreateSchemaInput) (*domain.SchemaDefinition, error) {
	if input.Name == "" {
		return nil, fmt.Errorf("schema name is required: %w", domain.ErrInvalidSchema)
	}

	fields, err := schema.ParseFields(input.Fields)
	if err != nil {
		return nil, fmt.Errorf("%v: %w", err, domain.ErrInvalidSchema)
	}

	fields = schema.AssignIDs(fields)
	if err := schema.ValidateUniqueIDs(fields); err != nil {
		return nil, err
	}

	raw, err := schema.MarshalFields(fields)
	if err != nil {
		return nil, err
	}

	def := &domain.SchemaDefinition{
		ID:        uuid.New(),
		Name:      input.Name,
		Fields:    raw,
		CreatedBy: input.CreatedBy,
	}

	log.Printf("schemaService.Create: creating schema %s (%q, %d top-level fields)",
		def.ID, def.Name, len(fields))

	if err := s.schemaRepo.Create(ctx, def); err != nil {
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return def, nil
}

func (s *schemaService) GetByID(ctx context.Context, id uuid.UUID) (*domain.SchemaDefinition, error) {
	return s.schemaRepo.GetByID(ctx, id)
}

func (s *schemaService) List(ctx context.Context, offset, limit int) ([]domain.SchemaDefinition, int, error) {
	return s.schemaRepo.List(ctx, offset, limit)
}

// UpdateField replaces the node carrying fieldID with the given replacement.
// The replacement keeps the original id regardless of what the caller sent, so
// references from other fields stay intact.
func (s *schemaService) UpdateField(ctx context.Context, schemaID uuid.UUID, fieldID string, replacement schema.Field) (*domain.SchemaDefinition, error) {
	def, fields, err := s.loadFields(ctx, schemaID)
	if err != nil {
		return nil, err
	}

	if _, ok := schema.FieldByID(fields, fieldID); !ok {
		return nil, domain.ErrFieldNotFound
	}

	updated := schema.UpdateFieldByID(fields, fieldID, func(schema.Field) schema.Field {
		replacement.ID = fieldID
		return replacement
	})

	if err := schema.ValidateUniqueIDs(updated); err != nil {
		return nil, err
	}
	return s.saveFields(ctx, def, updated)
}

func (s *schemaService) RemoveField(ctx context.Context, schemaID uuid.UUID, fieldID string) (*domain.SchemaDefinition, error) {
	def, fields, err := s.loadFields(ctx, schemaID)
	if err != nil {
		return nil, err
	}

	if _, ok := schema.FieldByID(fields, fieldID); !ok {
		return nil, domain.ErrFieldNotFound
	}

	return s.saveFields(ctx, def, schema.RemoveFieldByID(fields, fieldID))
}

// Plan builds the dependency graph for a schema and previews its wave
// schedule without running anything.
func (s *schemaService) Plan(ctx context.Context, schemaID uuid.UUID) (*ExecutionPlan, error) {
	_, fields, err := s.loadFields(ctx, schemaID)
	if err != nil {
		return nil, err
	}

	flat := schema.Flatten(fields)
	g := depgraph.Build(flat, s.resolver, depgraph.BuildOptions{})
	report := g.Validate()

	plan := &ExecutionPlan{
		Waves:          [][]PlanField{},
		Unresolvable:   report.Unresolvable,
		MissingByField: report.MissingByField,
	}
	for _, wave := range g.Waves() {
		planWave := make([]PlanField, 0, len(wave))
		for _, id := range wave {
			name := id
			if f, ok := g.FieldByID(id); ok {
				name = f.Name
			}
			planWave = append(planWave, PlanField{ID: id, Name: name})
		}
		plan.Waves = append(plan.Waves, planWave)
	}
	return plan, nil
}

func (s *schemaService) Delete(ctx context.Context, id uuid.UUID) error {
	log.Printf("schemaService.Delete: deleting schema %s", id)
	return s.schemaRepo.Delete(ctx, id)
}

func (s *schemaService) loadFields(ctx context.Context, schemaID uuid.UUID) (*domain.SchemaDefinition, []schema.Field, error) {
	def, err := s.schemaRepo.GetByID(ctx, schemaID)
	if err != nil {
		return nil, nil, err
	}
	fields, err := schema.ParseFields(def.Fields)
	if err != nil {
		return nil, nil, fmt.Errorf("schema %s holds unparseable fields: %w", schemaID, err)
	}
	return def, fields, nil
}

func (s *schemaService) saveFields(ctx context.Context, def *domain.SchemaDefinition, fields []schema.Field) (*domain.SchemaDefinition, error) {
	raw, err := schema.MarshalFields(fields)
	if err != nil {
		return nil, err
	}
	def.Fields = raw
	if err := s.schemaRepo.UpdateFields(ctx, def); err != nil {
		return nil, fmt.Errorf("updating schema fields: %w", err)
	}
	return def, nil
}
