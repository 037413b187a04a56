package service_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"formos/internal/domain"
	"formos/internal/mention"
	"formos/internal/schema"
	"formos/internal/service"
	"formos/mocks"
)

func schemaFieldsJSON() json.RawMessage {
	return json.RawMessage(`[
		{"id": "invoice_number", "name": "Invoice Number", "kind": "leaf", "type": "string"},
		{"name": "Buyer Name", "kind": "leaf", "type": "string"},
		{"id": "total_summary", "name": "Total Summary", "kind": "leaf", "type": "string",
		 "isTransformation": true,
		 "transformationConfig": {"prompt": "Summarize @[Invoice Number](invoice_number)"}}
	]`)
}

func storedDefinition(t *testing.T) *domain.SchemaDefinition {
	t.Helper()
	fields, err := schema.ParseFields(schemaFieldsJSON())
	require.NoError(t, err)
	raw, err := schema.MarshalFields(schema.AssignIDs(fields))
	require.NoError(t, err)
	return &domain.SchemaDefinition{
		ID:     uuid.New(),
		Name:   "Invoice",
		Fields: raw,
	}
}

func TestSchemaService_Create(t *testing.T) {
	repo := new(mocks.MockSchemaRepo)
	svc := service.NewSchemaService(repo, mention.NewResolver())

	var stored *domain.SchemaDefinition
	repo.On("Create", mock.Anything, mock.AnythingOfType("*domain.SchemaDefinition")).
		Run(func(args mock.Arguments) {
			stored = args.Get(1).(*domain.SchemaDefinition)
		}).Return(nil)

	def, err := svc.Create(context.Background(), &service.CreateSchemaInput{
		Name:      "Invoice",
		Fields:    schemaFieldsJSON(),
		CreatedBy: "tester",
	})
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, def.ID, stored.ID)
	assert.NotEqual(t, uuid.Nil, def.ID)

	// Missing ids were filled in before persisting
	fields, err := schema.ParseFields(stored.Fields)
	require.NoError(t, err)
	assert.Equal(t, "invoice_number", fields[0].ID)
	assert.NotEmpty(t, fields[1].ID)
	assert.Contains(t, fields[1].ID, "buyer_name_")
	repo.AssertExpectations(t)
}

func TestSchemaService_CreateRequiresName(t *testing.T) {
	repo := new(mocks.MockSchemaRepo)
	svc := service.NewSchemaService(repo, mention.NewResolver())

	_, err := svc.Create(context.Background(), &service.CreateSchemaInput{
		Fields: schemaFieldsJSON(),
	})
	assert.ErrorIs(t, err, domain.ErrInvalidSchema)
	repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestSchemaService_CreateRejectsDuplicateIDs(t *testing.T) {
	repo := new(mocks.MockSchemaRepo)
	svc := service.NewSchemaService(repo, mention.NewResolver())

	_, err := svc.Create(context.Background(), &service.CreateSchemaInput{
		Name: "Bad",
		Fields: json.RawMessage(`[
			{"id": "dup", "name": "A", "kind": "leaf", "type": "string"},
			{"id": "dup", "name": "B", "kind": "leaf", "type": "string"}
		]`),
	})
	assert.ErrorIs(t, err, domain.ErrDuplicateFieldID)
	repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestSchemaService_UpdateFieldKeepsOriginalID(t *testing.T) {
	repo := new(mocks.MockSchemaRepo)
	svc := service.NewSchemaService(repo, mention.NewResolver())

	def := storedDefinition(t)
	repo.On("GetByID", mock.Anything, def.ID).Return(def, nil)
	repo.On("UpdateFields", mock.Anything, def).Return(nil)

	updated, err := svc.UpdateField(context.Background(), def.ID, "invoice_number", schema.Field{
		ID:   "sneaky_new_id",
		Name: "Invoice No.",
		Kind: schema.KindLeaf,
		Type: schema.TypeString,
	})
	require.NoError(t, err)

	fields, err := schema.ParseFields(updated.Fields)
	require.NoError(t, err)
	f, ok := schema.FieldByID(fields, "invoice_number")
	require.True(t, ok)
	assert.Equal(t, "Invoice No.", f.Name)
	_, ok = schema.FieldByID(fields, "sneaky_new_id")
	assert.False(t, ok)
}

func TestSchemaService_UpdateFieldAbsent(t *testing.T) {
	repo := new(mocks.MockSchemaRepo)
	svc := service.NewSchemaService(repo, mention.NewResolver())

	def := storedDefinition(t)
	repo.On("GetByID", mock.Anything, def.ID).Return(def, nil)

	_, err := svc.UpdateField(context.Background(), def.ID, "ghost", schema.Field{Name: "X"})
	assert.ErrorIs(t, err, domain.ErrFieldNotFound)
	repo.AssertNotCalled(t, "UpdateFields", mock.Anything, mock.Anything)
}

func TestSchemaService_RemoveField(t *testing.T) {
	repo := new(mocks.MockSchemaRepo)
	svc := service.NewSchemaService(repo, mention.NewResolver())

	def := storedDefinition(t)
	repo.On("GetByID", mock.Anything, def.ID).Return(def, nil)
	repo.On("UpdateFields", mock.Anything, def).Return(nil)

	updated, err := svc.RemoveField(context.Background(), def.ID, "invoice_number")
	require.NoError(t, err)

	fields, err := schema.ParseFields(updated.Fields)
	require.NoError(t, err)
	_, ok := schema.FieldByID(fields, "invoice_number")
	assert.False(t, ok)
}

func TestSchemaService_RemoveFieldAbsent(t *testing.T) {
	repo := new(mocks.MockSchemaRepo)
	svc := service.NewSchemaService(repo, mention.NewResolver())

	def := storedDefinition(t)
	repo.On("GetByID", mock.Anything, def.ID).Return(def, nil)

	_, err := svc.RemoveField(context.Background(), def.ID, "ghost")
	assert.ErrorIs(t, err, domain.ErrFieldNotFound)
}

func TestSchemaService_Plan(t *testing.T) {
	repo := new(mocks.MockSchemaRepo)
	svc := service.NewSchemaService(repo, mention.NewResolver())

	def := storedDefinition(t)
	repo.On("GetByID", mock.Anything, def.ID).Return(def, nil)

	plan, err := svc.Plan(context.Background(), def.ID)
	require.NoError(t, err)

	require.Len(t, plan.Waves, 1)
	require.Len(t, plan.Waves[0], 1)
	assert.Equal(t, "total_summary", plan.Waves[0][0].ID)
	assert.Equal(t, "Total Summary", plan.Waves[0][0].Name)
	assert.Empty(t, plan.Unresolvable)
}

func TestSchemaService_PlanReportsUnresolvable(t *testing.T) {
	repo := new(mocks.MockSchemaRepo)
	svc := service.NewSchemaService(repo, mention.NewResolver())

	raw := json.RawMessage(`[
		{"id": "t1", "name": "T1", "kind": "leaf", "type": "string",
		 "isTransformation": true,
		 "transformationConfig": {"prompt": "Use @[Ghost](ghost_field)"}}
	]`)
	def := &domain.SchemaDefinition{ID: uuid.New(), Name: "Dangling", Fields: raw}
	repo.On("GetByID", mock.Anything, def.ID).Return(def, nil)

	plan, err := svc.Plan(context.Background(), def.ID)
	require.NoError(t, err)

	assert.Empty(t, plan.Waves)
	assert.Equal(t, []string{"ghost_field"}, plan.Unresolvable)
	assert.Equal(t, []string{"ghost_field"}, plan.MissingByField["t1"])
}
