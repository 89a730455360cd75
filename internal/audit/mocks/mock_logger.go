package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"reqapi/internal/model"
)

type MockLogger struct {
	mock.Mock
}

func (m *MockLogger) Append(ctx context.Context, inputText, artifact string) (*model.AuditRecord, error) {
	args := m.Called(ctx, inputText, artifact)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.AuditRecord), args.Error(1)
}
