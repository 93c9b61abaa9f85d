// Package memory provides an in-process OrderStore for local development
// and tests.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"filing-backend/application/ports"
	"filing-backend/domain/core/entities"
	apperrors "filing-backend/pkg/errors"
)

// OrderStore keeps orders in maps guarded by a RWMutex. Every value crossing
// the API boundary is copied.
type OrderStore struct {
	mu       sync.RWMutex
	orders   map[string]*entities.Order
	byNumber map[string]string
	items    map[string][]*entities.OrderItem
	now      func() time.Time
}

// NewOrderStore creates an empty store.
func NewOrderStore() *OrderStore {
	return &OrderStore{
		orders:   make(map[string]*entities.Order),
		byNumber: make(map[string]string),
		items:    make(map[string][]*entities.OrderItem),
		now:      time.Now,
	}
}

func (s *OrderStore) Create(ctx context.Context, order *entities.Order, items []*entities.OrderItem) error {
	if order == nil || order.ID == "" {
		return apperrors.NewValidationError("order id is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.orders[order.ID]; exists {
		return apperrors.NewConflictError(fmt.Sprintf("order %s already exists", order.ID))
	}
	if _, exists := s.byNumber[order.OrderNumber]; exists && order.OrderNumber != "" {
		return apperrors.NewConflictError(fmt.Sprintf("order number %s already exists", order.OrderNumber))
	}

	s.orders[order.ID] = order.Clone()
	if order.OrderNumber != "" {
		s.byNumber[order.OrderNumber] = order.ID
	}
	s.items[order.ID] = copyItems(items)
	return nil
}

func (s *OrderStore) FindByID(ctx context.Context, id string) (*entities.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	order, ok := s.orders[id]
	if !ok {
		return nil, apperrors.NewNotFoundError("order")
	}
	return order.Clone(), nil
}

func (s *OrderStore) FindByOrderNumber(ctx context.Context, orderNumber string) (*entities.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byNumber[orderNumber]
	if !ok {
		return nil, apperrors.NewNotFoundError("order")
	}
	return s.orders[id].Clone(), nil
}

func (s *OrderStore) FindByIDWithRelations(ctx context.Context, id string) (*entities.OrderWithRelations, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	order, ok := s.orders[id]
	if !ok {
		return nil, apperrors.NewNotFoundError("order")
	}
	return &entities.OrderWithRelations{
		Order: order.Clone(),
		Items: copyItems(s.items[id]),
	}, nil
}

// FindByCustomer returns the customer's orders, newest first.
func (s *OrderStore) FindByCustomer(ctx context.Context, customerID string) ([]*entities.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	orders := make([]*entities.Order, 0)
	for _, order := range s.orders {
		if order.CustomerID == customerID {
			orders = append(orders, order.Clone())
		}
	}
	sort.Slice(orders, func(i, j int) bool {
		if orders[i].CreatedAt.Equal(orders[j].CreatedAt) {
			return orders[i].ID < orders[j].ID
		}
		return orders[i].CreatedAt.After(orders[j].CreatedAt)
	})
	return orders, nil
}

func (s *OrderStore) Update(ctx context.Context, id string, patch entities.OrderPatch) (*entities.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.orders[id]
	if !ok {
		return nil, apperrors.NewNotFoundError("order")
	}

	next := current.Apply(patch, s.now())
	s.orders[id] = next
	return next.Clone(), nil
}

func (s *OrderStore) Delete(ctx context.Context, id string) (*entities.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	order, ok := s.orders[id]
	if !ok {
		return nil, apperrors.NewNotFoundError("order")
	}

	delete(s.orders, id)
	delete(s.byNumber, order.OrderNumber)
	delete(s.items, id)
	return order, nil
}

// Len returns the number of stored orders.
func (s *OrderStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.orders)
}

func copyItems(items []*entities.OrderItem) []*entities.OrderItem {
	out := make([]*entities.OrderItem, len(items))
	for i, item := range items {
		c := *item
		out[i] = &c
	}
	return out
}

var _ ports.OrderStore = (*OrderStore)(nil)
