package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"
)

type MockShareCache struct {
	mock.Mock
}

func (m *MockShareCache) InvalidateTag(ctx context.Context, tag string) error {
	args := m.Called(ctx, tag)
	return args.Error(0)
}
