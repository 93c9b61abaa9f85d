package ports

import (
	"context"
	"time"

	"filing-backend/domain/core/entities"
)

// OrderStore is the backing store accessor: the single source of truth for
// orders. Absent records are reported with a NOT_FOUND AppError.
type OrderStore interface {
	// Create persists a new order and its items
	Create(ctx context.Context, order *entities.Order, items []*entities.OrderItem) error

	// FindByID retrieves an order by its primary id
	FindByID(ctx context.Context, id string) (*entities.Order, error)

	// FindByOrderNumber retrieves an order by its alternate key
	FindByOrderNumber(ctx context.Context, orderNumber string) (*entities.Order, error)

	// FindByIDWithRelations retrieves an order together with its line items
	FindByIDWithRelations(ctx context.Context, id string) (*entities.OrderWithRelations, error)

	// FindByCustomer lists a customer's orders, newest first
	FindByCustomer(ctx context.Context, customerID string) ([]*entities.Order, error)

	// Update applies a patch and returns the committed record
	Update(ctx context.Context, id string, patch entities.OrderPatch) (*entities.Order, error)

	// Delete removes an order and its items, returning the removed record
	Delete(ctx context.Context, id string) (*entities.Order, error)
}

// OrderRepository is what business services consume. Implementations must
// return identical results whether or not a cache is attached.
type OrderRepository interface {
	Create(ctx context.Context, order *entities.Order, items []*entities.OrderItem) error
	FindByID(ctx context.Context, id string) (*entities.Order, error)
	FindByOrderNumber(ctx context.Context, orderNumber string) (*entities.Order, error)
	FindByIDWithRelations(ctx context.Context, id string) (*entities.OrderWithRelations, error)
	FindByCustomer(ctx context.Context, customerID string) ([]*entities.Order, error)
	Update(ctx context.Context, id string, patch entities.OrderPatch) (*entities.Order, error)
	UpdateStatus(ctx context.Context, id string, status entities.OrderStatus) (*entities.Order, error)
	UpdatePaymentStatus(ctx context.Context, id string, status entities.PaymentStatus) (*entities.Order, error)
	Delete(ctx context.Context, id string) error
}

// Cache defines the contract every cache backend satisfies, in-process or
// external. A miss is (nil, false, nil), never an error.
type Cache interface {
	// Get retrieves a live value
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores a value; ttl <= 0 keeps it until deleted or cleared
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes a single key; absent keys are not an error
	Delete(ctx context.Context, key string) error

	// DeletePattern removes every key matching a pattern with at most one '*'
	DeletePattern(ctx context.Context, pattern string) error

	// Clear removes all values from cache
	Clear(ctx context.Context) error

	// Has reports whether a live value exists
	Has(ctx context.Context, key string) (bool, error)
}
