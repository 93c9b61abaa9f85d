package mocks

import (
	"context"

	"filing-backend/application/ports"
	"filing-backend/domain/core/entities"

	"github.com/stretchr/testify/mock"
)

// MockOrderRepository is a testify mock of ports.OrderRepository.
type MockOrderRepository struct {
	mock.Mock
}

var _ ports.OrderRepository = (*MockOrderRepository)(nil)

func (m *MockOrderRepository) Create(ctx context.Context, order *entities.Order, items []*entities.OrderItem) error {
	args := m.Called(ctx, order, items)
	return args.Error(0)
}

func (m *MockOrderRepository) FindByID(ctx context.Context, id string) (*entities.Order, error) {
	args := m.Called(ctx, id)
	if args.Get(0) != nil {
		return args.Get(0).(*entities.Order), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockOrderRepository) FindByOrderNumber(ctx context.Context, orderNumber string) (*entities.Order, error) {
	args := m.Called(ctx, orderNumber)
	if args.Get(0) != nil {
		return args.Get(0).(*entities.Order), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockOrderRepository) FindByIDWithRelations(ctx context.Context, id string) (*entities.OrderWithRelations, error) {
	args := m.Called(ctx, id)
	if args.Get(0) != nil {
		return args.Get(0).(*entities.OrderWithRelations), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockOrderRepository) FindByCustomer(ctx context.Context, customerID string) ([]*entities.Order, error) {
	args := m.Called(ctx, customerID)
	if args.Get(0) != nil {
		return args.Get(0).([]*entities.Order), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockOrderRepository) Update(ctx context.Context, id string, patch entities.OrderPatch) (*entities.Order, error) {
	args := m.Called(ctx, id, patch)
	if args.Get(0) != nil {
		return args.Get(0).(*entities.Order), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockOrderRepository) UpdateStatus(ctx context.Context, id string, status entities.OrderStatus) (*entities.Order, error) {
	args := m.Called(ctx, id, status)
	if args.Get(0) != nil {
		return args.Get(0).(*entities.Order), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockOrderRepository) UpdatePaymentStatus(ctx context.Context, id string, status entities.PaymentStatus) (*entities.Order, error) {
	args := m.Called(ctx, id, status)
	if args.Get(0) != nil {
		return args.Get(0).(*entities.Order), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockOrderRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}
