package mocks

import (
	"context"
	"sync"

	"filing-backend/application/ports"
	"filing-backend/domain/core/entities"
)

// FaultyStore delegates to a real OrderStore, injects errors per method and
// counts calls. AfterRead, when set, runs after a read has fetched its
// result and before that result is returned, which lets tests interleave a
// write into the middle of a cache miss.
type FaultyStore struct {
	mu           sync.Mutex
	next         ports.OrderStore
	shouldFailOn map[string]error
	calls        map[string]int

	AfterRead func(method, key string)
}

// NewFaultyStore wraps next.
func NewFaultyStore(next ports.OrderStore) *FaultyStore {
	return &FaultyStore{
		next:         next,
		shouldFailOn: make(map[string]error),
		calls:        make(map[string]int),
	}
}

// SetError configures the store to return err for method.
func (s *FaultyStore) SetError(method string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.shouldFailOn[method] = err
}

// ClearErrors removes all configured errors.
func (s *FaultyStore) ClearErrors() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.shouldFailOn = make(map[string]error)
}

// Calls returns how many times method was invoked.
func (s *FaultyStore) Calls(method string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[method]
}

// ResetCalls zeroes every counter.
func (s *FaultyStore) ResetCalls() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = make(map[string]int)
}

func (s *FaultyStore) record(method string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls[method]++
	return s.shouldFailOn[method]
}

func (s *FaultyStore) afterRead(method, key string) {
	if hook := s.AfterRead; hook != nil {
		hook(method, key)
	}
}

func (s *FaultyStore) Create(ctx context.Context, order *entities.Order, items []*entities.OrderItem) error {
	if err := s.record("Create"); err != nil {
		return err
	}
	return s.next.Create(ctx, order, items)
}

func (s *FaultyStore) FindByID(ctx context.Context, id string) (*entities.Order, error) {
	if err := s.record("FindByID"); err != nil {
		return nil, err
	}
	order, err := s.next.FindByID(ctx, id)
	s.afterRead("FindByID", id)
	return order, err
}

func (s *FaultyStore) FindByOrderNumber(ctx context.Context, orderNumber string) (*entities.Order, error) {
	if err := s.record("FindByOrderNumber"); err != nil {
		return nil, err
	}
	order, err := s.next.FindByOrderNumber(ctx, orderNumber)
	s.afterRead("FindByOrderNumber", orderNumber)
	return order, err
}

func (s *FaultyStore) FindByIDWithRelations(ctx context.Context, id string) (*entities.OrderWithRelations, error) {
	if err := s.record("FindByIDWithRelations"); err != nil {
		return nil, err
	}
	order, err := s.next.FindByIDWithRelations(ctx, id)
	s.afterRead("FindByIDWithRelations", id)
	return order, err
}

func (s *FaultyStore) FindByCustomer(ctx context.Context, customerID string) ([]*entities.Order, error) {
	if err := s.record("FindByCustomer"); err != nil {
		return nil, err
	}
	orders, err := s.next.FindByCustomer(ctx, customerID)
	s.afterRead("FindByCustomer", customerID)
	return orders, err
}

func (s *FaultyStore) Update(ctx context.Context, id string, patch entities.OrderPatch) (*entities.Order, error) {
	if err := s.record("Update"); err != nil {
		return nil, err
	}
	return s.next.Update(ctx, id, patch)
}

func (s *FaultyStore) Delete(ctx context.Context, id string) (*entities.Order, error) {
	if err := s.record("Delete"); err != nil {
		return nil, err
	}
	return s.next.Delete(ctx, id)
}

var _ ports.OrderStore = (*FaultyStore)(nil)
