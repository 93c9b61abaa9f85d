package handlers

import (
	"encoding/json"
	"net/http"

	"filing-backend/application/services"
	"filing-backend/domain/core/entities"
	apperrors "filing-backend/pkg/errors"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

const maxBodyBytes = 1 << 20

// OrderHandler handles order-related HTTP requests
type OrderHandler struct {
	orders *services.OrderService
	logger *zap.Logger
}

// NewOrderHandler creates a new order handler
func NewOrderHandler(orders *services.OrderService, logger *zap.Logger) *OrderHandler {
	return &OrderHandler{
		orders: orders,
		logger: logger,
	}
}

// UpdateStatusRequest is the body of PUT /orders/{orderID}/status
type UpdateStatusRequest struct {
	Status entities.OrderStatus `json:"status"`
}

// UpdatePaymentStatusRequest is the body of PUT /orders/{orderID}/payment-status
type UpdatePaymentStatusRequest struct {
	PaymentStatus entities.PaymentStatus `json:"paymentStatus"`
}

// CreateOrder handles POST /orders
func (h *OrderHandler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	var req services.CreateOrderRequest
	if !h.decode(w, r, &req) {
		return
	}

	result, err := h.orders.CreateOrder(r.Context(), req)
	if err != nil {
		h.fail(w, r, "Failed to create order", err)
		return
	}
	h.respondJSON(w, http.StatusCreated, result)
}

// GetOrder handles GET /orders/{orderID}
func (h *OrderHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	order, err := h.orders.GetOrder(r.Context(), chi.URLParam(r, "orderID"))
	if err != nil {
		h.fail(w, r, "Failed to get order", err)
		return
	}
	h.respondJSON(w, http.StatusOK, order)
}

// GetOrderDetails handles GET /orders/{orderID}/details
func (h *OrderHandler) GetOrderDetails(w http.ResponseWriter, r *http.Request) {
	details, err := h.orders.GetOrderDetails(r.Context(), chi.URLParam(r, "orderID"))
	if err != nil {
		h.fail(w, r, "Failed to get order details", err)
		return
	}
	h.respondJSON(w, http.StatusOK, details)
}

// GetOrderByNumber handles GET /orders/by-number/{number}
func (h *OrderHandler) GetOrderByNumber(w http.ResponseWriter, r *http.Request) {
	order, err := h.orders.GetOrderByNumber(r.Context(), chi.URLParam(r, "number"))
	if err != nil {
		h.fail(w, r, "Failed to get order by number", err)
		return
	}
	h.respondJSON(w, http.StatusOK, order)
}

// ListCustomerOrders handles GET /customers/{customerID}/orders
func (h *OrderHandler) ListCustomerOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.orders.ListCustomerOrders(r.Context(), chi.URLParam(r, "customerID"))
	if err != nil {
		h.fail(w, r, "Failed to list customer orders", err)
		return
	}
	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"orders": orders,
		"total":  len(orders),
	})
}

// UpdateOrder handles PATCH /orders/{orderID}
func (h *OrderHandler) UpdateOrder(w http.ResponseWriter, r *http.Request) {
	var patch entities.OrderPatch
	if !h.decode(w, r, &patch) {
		return
	}

	order, err := h.orders.UpdateOrder(r.Context(), chi.URLParam(r, "orderID"), patch)
	if err != nil {
		h.fail(w, r, "Failed to update order", err)
		return
	}
	h.respondJSON(w, http.StatusOK, order)
}

// UpdateStatus handles PUT /orders/{orderID}/status
func (h *OrderHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	var req UpdateStatusRequest
	if !h.decode(w, r, &req) {
		return
	}

	order, err := h.orders.UpdateStatus(r.Context(), chi.URLParam(r, "orderID"), req.Status)
	if err != nil {
		h.fail(w, r, "Failed to update order status", err)
		return
	}
	h.respondJSON(w, http.StatusOK, order)
}

// UpdatePaymentStatus handles PUT /orders/{orderID}/payment-status
func (h *OrderHandler) UpdatePaymentStatus(w http.ResponseWriter, r *http.Request) {
	var req UpdatePaymentStatusRequest
	if !h.decode(w, r, &req) {
		return
	}

	order, err := h.orders.UpdatePaymentStatus(r.Context(), chi.URLParam(r, "orderID"), req.PaymentStatus)
	if err != nil {
		h.fail(w, r, "Failed to update payment status", err)
		return
	}
	h.respondJSON(w, http.StatusOK, order)
}

// DeleteOrder handles DELETE /orders/{orderID}
func (h *OrderHandler) DeleteOrder(w http.ResponseWriter, r *http.Request) {
	if err := h.orders.DeleteOrder(r.Context(), chi.URLParam(r, "orderID")); err != nil {
		h.fail(w, r, "Failed to delete order", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *OrderHandler) decode(w http.ResponseWriter, r *http.Request, target interface{}) bool {
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(target); err != nil {
		h.respondError(w, http.StatusBadRequest, "VALIDATION", "Invalid request body: "+err.Error())
		return false
	}
	return true
}

// fail maps an application error onto its HTTP status. Server-side
// failures are logged; client errors are not.
func (h *OrderHandler) fail(w http.ResponseWriter, r *http.Request, message string, err error) {
	status := apperrors.HTTPStatus(err)
	errType := "INTERNAL"
	clientMessage := message
	if appErr := apperrors.GetAppError(err); appErr != nil {
		errType = string(appErr.Type)
		if status < http.StatusInternalServerError {
			clientMessage = appErr.Message
		}
	}

	if status >= http.StatusInternalServerError {
		h.logger.Error(message,
			zap.String("path", r.URL.Path),
			zap.String("requestID", middleware.GetReqID(r.Context())),
			zap.Error(err),
		)
	}
	h.respondError(w, status, errType, clientMessage)
}

func (h *OrderHandler) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("Failed to encode response", zap.Error(err))
	}
}

func (h *OrderHandler) respondError(w http.ResponseWriter, status int, errType, message string) {
	h.respondJSON(w, status, map[string]interface{}{
		"error":   true,
		"type":    errType,
		"message": message,
		"code":    status,
	})
}
