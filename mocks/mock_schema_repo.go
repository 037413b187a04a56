package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"formos/internal/domain"
)

// MockSchemaRepo is a mock implementation of port.SchemaRepository.
type MockSchemaRepo struct {
	mock.Mock
}

func (m *MockSchemaRepo) Create(ctx context.Context, s *domain.SchemaDefinition) error {
	args := m.Called(ctx, s)
	return args.Error(0)
}

func (m *MockSchemaRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.SchemaDefinition, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.SchemaDefinition), args.Error(1)
}

func (m *MockSchemaRepo) List(ctx context.Context, offset, limit int) ([]domain.SchemaDefinition, int, error) {
	args := m.Called(ctx, offset, limit)
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}
	return args.Get(0).([]domain.SchemaDefinition), args.Int(1), args.Error(2)
}

func (m *MockSchemaRepo) UpdateFields(ctx context.Context, s *domain.SchemaDefinition) error {
	args := m.Called(ctx, s)
	return args.Error(0)
}

func (m *MockSchemaRepo) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}
