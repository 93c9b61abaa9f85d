package entities

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// OrderStatus is the fulfilment state of a filing order.
type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "PENDING"
	OrderStatusPaid       OrderStatus = "PAID"
	OrderStatusProcessing OrderStatus = "PROCESSING"
	OrderStatusFiled      OrderStatus = "FILED"
	OrderStatusCompleted  OrderStatus = "COMPLETED"
	OrderStatusCancelled  OrderStatus = "CANCELLED"
)

// Valid reports whether s is a known order status.
func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusPending, OrderStatusPaid, OrderStatusProcessing,
		OrderStatusFiled, OrderStatusCompleted, OrderStatusCancelled:
		return true
	}
	return false
}

// PaymentStatus mirrors the payment provider's view of an order.
type PaymentStatus string

const (
	PaymentStatusUnpaid   PaymentStatus = "UNPAID"
	PaymentStatusPaid     PaymentStatus = "PAID"
	PaymentStatusFailed   PaymentStatus = "FAILED"
	PaymentStatusRefunded PaymentStatus = "REFUNDED"
)

// Valid reports whether s is a known payment status.
func (s PaymentStatus) Valid() bool {
	switch s {
	case PaymentStatusUnpaid, PaymentStatusPaid, PaymentStatusFailed, PaymentStatusRefunded:
		return true
	}
	return false
}

// Order is the record owned by the backing store. Anything holding an
// *Order outside the store holds a copy.
type Order struct {
	ID               string        `json:"id" dynamodbav:"OrderID"`
	OrderNumber      string        `json:"orderNumber" dynamodbav:"OrderNumber"`
	CustomerID       string        `json:"customerId" dynamodbav:"CustomerID"`
	BusinessEntityID string        `json:"businessEntityId,omitempty" dynamodbav:"BusinessEntityID,omitempty"`
	Status           OrderStatus   `json:"status" dynamodbav:"Status"`
	PaymentStatus    PaymentStatus `json:"paymentStatus" dynamodbav:"PaymentStatus"`
	TotalCents       int64         `json:"totalCents" dynamodbav:"TotalCents"`
	Currency         string        `json:"currency" dynamodbav:"Currency"`
	Notes            string        `json:"notes,omitempty" dynamodbav:"Notes,omitempty"`
	CreatedAt        time.Time     `json:"createdAt" dynamodbav:"CreatedAt"`
	UpdatedAt        time.Time     `json:"updatedAt" dynamodbav:"UpdatedAt"`
	Version          int           `json:"version" dynamodbav:"Version"`
}

// OrderItem is a single purchasable line of an order.
type OrderItem struct {
	ID             string `json:"id" dynamodbav:"ItemID"`
	OrderID        string `json:"orderId" dynamodbav:"OrderID"`
	ProductCode    string `json:"productCode" dynamodbav:"ProductCode"`
	Description    string `json:"description" dynamodbav:"Description"`
	Quantity       int    `json:"quantity" dynamodbav:"Quantity"`
	UnitPriceCents int64  `json:"unitPriceCents" dynamodbav:"UnitPriceCents"`
}

// OrderWithRelations is an order together with its line items.
type OrderWithRelations struct {
	Order *Order       `json:"order"`
	Items []*OrderItem `json:"items"`
}

// OrderPatch is a partial update. Nil fields are left untouched. Order
// number and customer are immutable after creation.
type OrderPatch struct {
	Status           *OrderStatus   `json:"status,omitempty"`
	PaymentStatus    *PaymentStatus `json:"paymentStatus,omitempty"`
	TotalCents       *int64         `json:"totalCents,omitempty" validate:"omitempty,min=0"`
	BusinessEntityID *string        `json:"businessEntityId,omitempty" validate:"omitempty,max=64"`
	Notes            *string        `json:"notes,omitempty" validate:"omitempty,max=2000"`
}

// IsEmpty reports whether the patch changes nothing.
func (p OrderPatch) IsEmpty() bool {
	return p.Status == nil && p.PaymentStatus == nil && p.TotalCents == nil &&
		p.BusinessEntityID == nil && p.Notes == nil
}

// NewOrder builds a pending, unpaid order with fresh identifiers.
func NewOrder(customerID, currency string, items []*OrderItem, now time.Time) *Order {
	order := &Order{
		ID:            uuid.New().String(),
		CustomerID:    customerID,
		Status:        OrderStatusPending,
		PaymentStatus: PaymentStatusUnpaid,
		Currency:      strings.ToUpper(currency),
		CreatedAt:     now.UTC(),
		UpdatedAt:     now.UTC(),
		Version:       1,
	}
	order.OrderNumber = GenerateOrderNumber(order.ID, now)

	for _, item := range items {
		if item.ID == "" {
			item.ID = uuid.New().String()
		}
		item.OrderID = order.ID
		order.TotalCents += int64(item.Quantity) * item.UnitPriceCents
	}
	return order
}

// GenerateOrderNumber derives the human-facing order number from the
// creation date and the order id.
func GenerateOrderNumber(orderID string, now time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(orderID, "-", ""))
	if len(suffix) > 8 {
		suffix = suffix[:8]
	}
	return fmt.Sprintf("ORD-%s-%s", now.UTC().Format("20060102"), suffix)
}

// Apply returns a copy of o with the patch applied and the version bumped.
func (o *Order) Apply(patch OrderPatch, now time.Time) *Order {
	next := o.Clone()
	if patch.Status != nil {
		next.Status = *patch.Status
	}
	if patch.PaymentStatus != nil {
		next.PaymentStatus = *patch.PaymentStatus
	}
	if patch.TotalCents != nil {
		next.TotalCents = *patch.TotalCents
	}
	if patch.BusinessEntityID != nil {
		next.BusinessEntityID = *patch.BusinessEntityID
	}
	if patch.Notes != nil {
		next.Notes = *patch.Notes
	}
	next.UpdatedAt = now.UTC()
	next.Version++
	return next
}

// Clone returns a shallow copy; Order has no reference fields.
func (o *Order) Clone() *Order {
	if o == nil {
		return nil
	}
	c := *o
	return &c
}

// Clone returns a deep copy of the order and its items.
func (r *OrderWithRelations) Clone() *OrderWithRelations {
	if r == nil {
		return nil
	}
	items := make([]*OrderItem, len(r.Items))
	for i, item := range r.Items {
		c := *item
		items[i] = &c
	}
	return &OrderWithRelations{Order: r.Order.Clone(), Items: items}
}
