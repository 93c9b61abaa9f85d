package memory

import (
	"context"
	"testing"
	"time"

	"filing-backend/domain/core/entities"
	apperrors "filing-backend/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newOrder(t *testing.T, customerID string, created time.Time) (*entities.Order, []*entities.OrderItem) {
	t.Helper()
	items := []*entities.OrderItem{{ProductCode: "LLC-FORM", Description: "LLC formation", Quantity: 1, UnitPriceCents: 4900}}
	return entities.NewOrder(customerID, "usd", items, created), items
}

func TestOrderStore_CreateAndFind(t *testing.T) {
	// Arrange
	ctx := context.Background()
	store := NewOrderStore()
	order, items := newOrder(t, "cust-1", time.Now())

	// Act
	require.NoError(t, store.Create(ctx, order, items))

	// Assert
	byID, err := store.FindByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, order, byID)

	byNumber, err := store.FindByOrderNumber(ctx, order.OrderNumber)
	require.NoError(t, err)
	assert.Equal(t, order.ID, byNumber.ID)

	withItems, err := store.FindByIDWithRelations(ctx, order.ID)
	require.NoError(t, err)
	require.Len(t, withItems.Items, 1)
	assert.Equal(t, order.ID, withItems.Items[0].OrderID)
}

func TestOrderStore_CreateConflicts(t *testing.T) {
	ctx := context.Background()
	store := NewOrderStore()
	order, items := newOrder(t, "cust-1", time.Now())
	require.NoError(t, store.Create(ctx, order, items))

	err := store.Create(ctx, order, items)
	assert.True(t, apperrors.IsConflict(err))

	other, _ := newOrder(t, "cust-1", time.Now())
	other.OrderNumber = order.OrderNumber
	err = store.Create(ctx, other, nil)
	assert.True(t, apperrors.IsConflict(err))

	assert.True(t, apperrors.IsValidation(store.Create(ctx, &entities.Order{}, nil)))
}

func TestOrderStore_NotFound(t *testing.T) {
	ctx := context.Background()
	store := NewOrderStore()

	_, err := store.FindByID(ctx, "missing")
	assert.True(t, apperrors.IsNotFound(err))
	_, err = store.FindByOrderNumber(ctx, "missing")
	assert.True(t, apperrors.IsNotFound(err))
	_, err = store.FindByIDWithRelations(ctx, "missing")
	assert.True(t, apperrors.IsNotFound(err))
	_, err = store.Update(ctx, "missing", entities.OrderPatch{})
	assert.True(t, apperrors.IsNotFound(err))
	_, err = store.Delete(ctx, "missing")
	assert.True(t, apperrors.IsNotFound(err))
}

func TestOrderStore_UpdateReturnsCommittedCopy(t *testing.T) {
	ctx := context.Background()
	store := NewOrderStore()
	order, items := newOrder(t, "cust-1", time.Now())
	require.NoError(t, store.Create(ctx, order, items))

	paid := entities.OrderStatusPaid
	updated, err := store.Update(ctx, order.ID, entities.OrderPatch{Status: &paid})
	require.NoError(t, err)
	assert.Equal(t, entities.OrderStatusPaid, updated.Status)
	assert.Equal(t, 2, updated.Version)

	// Mutating the returned value must not reach the store
	updated.Status = entities.OrderStatusCancelled
	stored, err := store.FindByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, entities.OrderStatusPaid, stored.Status)
}

func TestOrderStore_FindByCustomerNewestFirst(t *testing.T) {
	ctx := context.Background()
	store := NewOrderStore()
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	older, _ := newOrder(t, "cust-1", base)
	newer, _ := newOrder(t, "cust-1", base.Add(time.Hour))
	foreign, _ := newOrder(t, "cust-2", base)
	for _, o := range []*entities.Order{older, newer, foreign} {
		require.NoError(t, store.Create(ctx, o, nil))
	}

	orders, err := store.FindByCustomer(ctx, "cust-1")
	require.NoError(t, err)
	require.Len(t, orders, 2)
	assert.Equal(t, newer.ID, orders[0].ID)
	assert.Equal(t, older.ID, orders[1].ID)

	none, err := store.FindByCustomer(ctx, "nobody")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestOrderStore_Delete(t *testing.T) {
	ctx := context.Background()
	store := NewOrderStore()
	order, items := newOrder(t, "cust-1", time.Now())
	require.NoError(t, store.Create(ctx, order, items))

	deleted, err := store.Delete(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, order.OrderNumber, deleted.OrderNumber)
	assert.Equal(t, 0, store.Len())

	_, err = store.FindByOrderNumber(ctx, order.OrderNumber)
	assert.True(t, apperrors.IsNotFound(err))
}
