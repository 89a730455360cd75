package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"reqapi/internal/service"
)

type MockSubmissionService struct {
	mock.Mock
}

func (m *MockSubmissionService) Submit(ctx context.Context, sub service.Submission) (*service.SubmissionResult, error) {
	args := m.Called(ctx, sub)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.SubmissionResult), args.Error(1)
}
