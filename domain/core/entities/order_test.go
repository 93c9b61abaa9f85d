package entities

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewOrder(t *testing.T) {
	now := time.Date(2026, 10, 19, 9, 30, 0, 0, time.UTC)
	items := []*OrderItem{
		{ProductCode: "LLC-FORMATION", Quantity: 1, UnitPriceCents: 14900},
		{ProductCode: "REGISTERED-AGENT", Quantity: 2, UnitPriceCents: 5000},
	}

	order := NewOrder("cust-1", "usd", items, now)

	require.NotEmpty(t, order.ID)
	assert.Equal(t, OrderStatusPending, order.Status)
	assert.Equal(t, PaymentStatusUnpaid, order.PaymentStatus)
	assert.Equal(t, "USD", order.Currency)
	assert.Equal(t, int64(24900), order.TotalCents)
	assert.Equal(t, 1, order.Version)
	assert.True(t, strings.HasPrefix(order.OrderNumber, "ORD-20261019-"))
	for _, item := range items {
		assert.Equal(t, order.ID, item.OrderID)
		assert.NotEmpty(t, item.ID)
	}
}

func TestOrder_ApplyLeavesOriginalUntouched(t *testing.T) {
	now := time.Now()
	order := NewOrder("cust-1", "USD", nil, now)
	paid := OrderStatusPaid
	notes := "rush filing"

	next := order.Apply(OrderPatch{Status: &paid, Notes: &notes}, now.Add(time.Minute))

	assert.Equal(t, OrderStatusPending, order.Status)
	assert.Equal(t, OrderStatusPaid, next.Status)
	assert.Equal(t, "rush filing", next.Notes)
	assert.Equal(t, order.OrderNumber, next.OrderNumber)
	assert.Equal(t, 2, next.Version)
}

func TestOrderPatch_IsEmpty(t *testing.T) {
	assert.True(t, OrderPatch{}.IsEmpty())
	status := PaymentStatusRefunded
	assert.False(t, OrderPatch{PaymentStatus: &status}.IsEmpty())
}

func TestStatusValidation(t *testing.T) {
	assert.True(t, OrderStatusFiled.Valid())
	assert.False(t, OrderStatus("SHIPPED").Valid())
	assert.True(t, PaymentStatusFailed.Valid())
	assert.False(t, PaymentStatus("").Valid())
}

func TestOrderWithRelations_CloneIsDeep(t *testing.T) {
	rel := &OrderWithRelations{
		Order: &Order{ID: "o-1"},
		Items: []*OrderItem{{ID: "i-1", Quantity: 1}},
	}

	c := rel.Clone()
	c.Items[0].Quantity = 5
	c.Order.ID = "changed"

	assert.Equal(t, 1, rel.Items[0].Quantity)
	assert.Equal(t, "o-1", rel.Order.ID)
}
