package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"parsemill/internal/domain"
)

// MockTier is a mock implementation of port.Tier.
type MockTier struct {
	mock.Mock
}

func (m *MockTier) Name() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockTier) Get(ctx context.Context, key string) ([]byte, bool, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Bool(1), args.Error(2)
	}
	return args.Get(0).([]byte), args.Bool(1), args.Error(2)
}

func (m *MockTier) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	args := m.Called(ctx, key, value, ttl)
	return args.Error(0)
}

func (m *MockTier) Delete(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

func (m *MockTier) Clear(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockTier) Stats() domain.TierStats {
	args := m.Called()
	return args.Get(0).(domain.TierStats)
}

func (m *MockTier) Close() error {
	args := m.Called()
	return args.Error(0)
}
