package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"reqapi/internal/model"
)

type MockRequirementRepository struct {
	mock.Mock
}

func (m *MockRequirementRepository) Create(ctx context.Context, req *model.Requirement) (*model.Requirement, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Requirement), args.Error(1)
}
