package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"formos/internal/port"
)

// MockTransformer is a mock implementation of port.Transformer.
type MockTransformer struct {
	mock.Mock
}

func (m *MockTransformer) Transform(ctx context.Context, req port.TransformRequest) (interface{}, error) {
	args := m.Called(ctx, req)
	return args.Get(0), args.Error(1)
}
