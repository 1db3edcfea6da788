package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"parsemill/internal/domain"
)

// MockStrategy is a mock implementation of port.Strategy.
type MockStrategy struct {
	mock.Mock
}

func (m *MockStrategy) Name() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockStrategy) CanHandle(path string, sizeMB float64) bool {
	args := m.Called(path, sizeMB)
	return args.Bool(0)
}

func (m *MockStrategy) EstimateResources(path string, sizeMB float64) domain.ResourceEstimate {
	args := m.Called(path, sizeMB)
	return args.Get(0).(domain.ResourceEstimate)
}

func (m *MockStrategy) Execute(ctx context.Context, path string) (*domain.Result, error) {
	args := m.Called(ctx, path)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Result), args.Error(1)
}
