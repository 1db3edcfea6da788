package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"parsemill/internal/domain"
)

// MockRunArchive is a mock implementation of port.RunArchive.
type MockRunArchive struct {
	mock.Mock
}

func (m *MockRunArchive) Record(ctx context.Context, run *domain.ParseRun) error {
	args := m.Called(ctx, run)
	return args.Error(0)
}

func (m *MockRunArchive) List(ctx context.Context, limit int) ([]domain.ParseRun, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.ParseRun), args.Error(1)
}

func (m *MockRunArchive) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}
