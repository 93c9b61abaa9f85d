// Package services holds the use cases that sit on top of the order
// repository.
package services

import (
	"context"
	"time"

	"filing-backend/application/ports"
	"filing-backend/domain/core/entities"
	apperrors "filing-backend/pkg/errors"
	"filing-backend/pkg/utils"

	"go.uber.org/zap"
)

// CreateOrderRequest is the input for placing a new order.
type CreateOrderRequest struct {
	CustomerID       string              `json:"customerId" validate:"required,max=64"`
	BusinessEntityID string              `json:"businessEntityId,omitempty" validate:"omitempty,max=64"`
	Currency         string              `json:"currency" validate:"required,len=3"`
	Notes            string              `json:"notes,omitempty" validate:"max=2000"`
	Items            []CreateItemRequest `json:"items" validate:"required,min=1,max=50,dive"`
}

// CreateItemRequest is one line of a new order.
type CreateItemRequest struct {
	ProductCode    string `json:"productCode" validate:"required,max=64"`
	Description    string `json:"description" validate:"max=256"`
	Quantity       int    `json:"quantity" validate:"min=1,max=1000"`
	UnitPriceCents int64  `json:"unitPriceCents" validate:"min=0"`
}

// patchRules carries the enum checks OrderPatch leaves to its callers.
type patchRules struct {
	Status        string `json:"status" validate:"omitempty,order_status"`
	PaymentStatus string `json:"paymentStatus" validate:"omitempty,payment_status"`
}

// OrderService implements the order use cases
type OrderService struct {
	repo   ports.OrderRepository
	logger *zap.Logger
	now    func() time.Time
}

// NewOrderService creates a new order service
func NewOrderService(repo ports.OrderRepository, logger *zap.Logger) *OrderService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OrderService{
		repo:   repo,
		logger: logger.Named("order_service"),
		now:    time.Now,
	}
}

// CreateOrder validates the request and persists a pending order with its
// items.
func (s *OrderService) CreateOrder(ctx context.Context, req CreateOrderRequest) (*entities.OrderWithRelations, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, err
	}

	items := make([]*entities.OrderItem, len(req.Items))
	for i, line := range req.Items {
		items[i] = &entities.OrderItem{
			ProductCode:    line.ProductCode,
			Description:    line.Description,
			Quantity:       line.Quantity,
			UnitPriceCents: line.UnitPriceCents,
		}
	}

	order := entities.NewOrder(req.CustomerID, req.Currency, items, s.now())
	order.BusinessEntityID = req.BusinessEntityID
	order.Notes = req.Notes

	if err := s.repo.Create(ctx, order, items); err != nil {
		return nil, err
	}

	s.logger.Info("Order created",
		zap.String("order_id", order.ID),
		zap.String("order_number", order.OrderNumber),
		zap.String("customer_id", order.CustomerID),
		zap.Int("items", len(items)),
		zap.Int64("total_cents", order.TotalCents),
	)
	return &entities.OrderWithRelations{Order: order, Items: items}, nil
}

// GetOrder returns an order by id
func (s *OrderService) GetOrder(ctx context.Context, id string) (*entities.Order, error) {
	if id == "" {
		return nil, apperrors.NewValidationError("order id is required")
	}
	return s.repo.FindByID(ctx, id)
}

// GetOrderByNumber returns an order by its order number
func (s *OrderService) GetOrderByNumber(ctx context.Context, orderNumber string) (*entities.Order, error) {
	if orderNumber == "" {
		return nil, apperrors.NewValidationError("order number is required")
	}
	return s.repo.FindByOrderNumber(ctx, orderNumber)
}

// GetOrderDetails returns an order with its line items
func (s *OrderService) GetOrderDetails(ctx context.Context, id string) (*entities.OrderWithRelations, error) {
	if id == "" {
		return nil, apperrors.NewValidationError("order id is required")
	}
	return s.repo.FindByIDWithRelations(ctx, id)
}

// ListCustomerOrders returns a customer's orders, newest first. A customer
// without orders gets an empty, non-nil slice.
func (s *OrderService) ListCustomerOrders(ctx context.Context, customerID string) ([]*entities.Order, error) {
	if customerID == "" {
		return nil, apperrors.NewValidationError("customer id is required")
	}
	orders, err := s.repo.FindByCustomer(ctx, customerID)
	if err != nil {
		return nil, err
	}
	if orders == nil {
		orders = []*entities.Order{}
	}
	return orders, nil
}

// UpdateOrder applies a partial update.
func (s *OrderService) UpdateOrder(ctx context.Context, id string, patch entities.OrderPatch) (*entities.Order, error) {
	if id == "" {
		return nil, apperrors.NewValidationError("order id is required")
	}
	if patch.IsEmpty() {
		return nil, apperrors.NewValidationError("patch must change at least one field")
	}
	if err := utils.ValidateStruct(patch); err != nil {
		return nil, err
	}

	rules := patchRules{}
	if patch.Status != nil {
		rules.Status = string(*patch.Status)
	}
	if patch.PaymentStatus != nil {
		rules.PaymentStatus = string(*patch.PaymentStatus)
	}
	if err := utils.ValidateStruct(rules); err != nil {
		return nil, err
	}

	if patch.Status != nil {
		if err := s.checkTransition(ctx, id, *patch.Status); err != nil {
			return nil, err
		}
	}

	updated, err := s.repo.Update(ctx, id, patch)
	if err != nil {
		return nil, err
	}
	s.logger.Info("Order updated",
		zap.String("order_id", id),
		zap.Int("version", updated.Version),
	)
	return updated, nil
}

// UpdateStatus moves an order to a new fulfilment status. Completed and
// cancelled orders are final.
func (s *OrderService) UpdateStatus(ctx context.Context, id string, status entities.OrderStatus) (*entities.Order, error) {
	if id == "" {
		return nil, apperrors.NewValidationError("order id is required")
	}
	if !status.Valid() {
		return nil, apperrors.NewValidationError("unknown order status " + string(status))
	}
	if err := s.checkTransition(ctx, id, status); err != nil {
		return nil, err
	}

	updated, err := s.repo.UpdateStatus(ctx, id, status)
	if err != nil {
		return nil, err
	}
	s.logger.Info("Order status changed",
		zap.String("order_id", id),
		zap.String("status", string(status)),
	)
	return updated, nil
}

// UpdatePaymentStatus records the payment provider's latest view.
func (s *OrderService) UpdatePaymentStatus(ctx context.Context, id string, status entities.PaymentStatus) (*entities.Order, error) {
	if id == "" {
		return nil, apperrors.NewValidationError("order id is required")
	}
	if !status.Valid() {
		return nil, apperrors.NewValidationError("unknown payment status " + string(status))
	}

	updated, err := s.repo.UpdatePaymentStatus(ctx, id, status)
	if err != nil {
		return nil, err
	}
	s.logger.Info("Order payment status changed",
		zap.String("order_id", id),
		zap.String("payment_status", string(status)),
	)
	return updated, nil
}

// DeleteOrder removes an order and its items
func (s *OrderService) DeleteOrder(ctx context.Context, id string) error {
	if id == "" {
		return apperrors.NewValidationError("order id is required")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info("Order deleted", zap.String("order_id", id))
	return nil
}

func (s *OrderService) checkTransition(ctx context.Context, id string, next entities.OrderStatus) error {
	current, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if current.Status == next {
		return nil
	}
	switch current.Status {
	case entities.OrderStatusCompleted, entities.OrderStatusCancelled:
		return apperrors.NewConflictError("order " + id + " is " + string(current.Status) + " and can no longer change status").
			WithCode("ORDER_FINAL")
	}
	return nil
}
