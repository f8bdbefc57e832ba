package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"storefront-backend/internal/api/middleware"
	"storefront-backend/internal/metrics"
	"storefront-backend/internal/models"
	"storefront-backend/internal/notify"
	"storefront-backend/internal/repository"

	"github.com/go-chi/chi/v5"
	log "github.com/sirupsen/logrus"
)

// orderNotifier is the fire-and-forget side of the notification
// dispatcher; the handler never waits on it.
type orderNotifier interface {
	DispatchAsync(data notify.OrderEmail)
}

// productInvalidator drops cached product entries whose stock an
// order changed.
type productInvalidator interface {
	Invalidate(ctx context.Context, productID int)
}

type OrderHandler struct {
	orders      repository.OrderRepository
	users       repository.UserRepository
	notifier    orderNotifier
	invalidator productInvalidator
}

func NewOrderHandler(orders repository.OrderRepository, users repository.UserRepository, notifier orderNotifier, invalidator productInvalidator) *OrderHandler {
	return &OrderHandler{
		orders:      orders,
		users:       users,
		notifier:    notifier,
		invalidator: invalidator,
	}
}

type OrderCreateRequest struct {
	Items           []models.OrderLine     `json:"items"`
	ShippingAddress models.ShippingAddress `json:"shipping_address"`
}

type OrderCreateResponse struct {
	Success bool    `json:"success"`
	OrderID int     `json:"order_id"`
	Total   float64 `json:"total"`
}

// Create submits the cart. The stock check, price computation and
// persistence run as one transaction; notifications fire in the
// background after the response-relevant work committed.
func (h *OrderHandler) Create(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.UserFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "missing token", nil)
		return
	}

	var req OrderCreateRequest
	if ok := decodeJSON(w, r, &req); !ok {
		return
	}

	placed, err := h.orders.PlaceOrder(r.Context(), claims.UserID, req.Items, req.ShippingAddress)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrInvalidInput):
			metrics.OrdersTotal.WithLabelValues("rejected").Inc()
			writeError(w, http.StatusBadRequest, "invalid_input", err.Error(), nil)
		case errors.Is(err, repository.ErrProductNotFound):
			metrics.OrdersTotal.WithLabelValues("rejected").Inc()
			writeError(w, http.StatusNotFound, "product_not_found", err.Error(), nil)
		case errors.Is(err, repository.ErrNotEnough):
			metrics.OrdersTotal.WithLabelValues("rejected").Inc()
			writeError(w, http.StatusConflict, "insufficient_stock", err.Error(), nil)
		default:
			metrics.OrdersTotal.WithLabelValues("failed").Inc()
			writeError(w, http.StatusInternalServerError, "internal_error", "failed to process the order", nil)
		}
		return
	}

	metrics.OrdersTotal.WithLabelValues("created").Inc()

	if h.invalidator != nil {
		for _, line := range req.Items {
			h.invalidator.Invalidate(r.Context(), line.ProductID)
		}
	}

	h.dispatchOrderEmails(r.Context(), claims.UserID, placed, req.ShippingAddress)

	writeJSON(w, http.StatusCreated, OrderCreateResponse{
		Success: true,
		OrderID: placed.OrderID,
		Total:   placed.TotalAmount,
	})
}

// dispatchOrderEmails loads the purchaser's contact row and hands the
// rendered order to the background dispatcher. Any failure here is
// logged only; the order is already committed.
func (h *OrderHandler) dispatchOrderEmails(ctx context.Context, userID int, placed *models.PlacedOrder, addr models.ShippingAddress) {
	if h.notifier == nil {
		return
	}

	user, err := h.users.GetByID(ctx, userID)
	if err != nil {
		log.WithError(err).WithField("order_id", placed.OrderID).Warn("failed to load user for order notification")
		return
	}

	h.notifier.DispatchAsync(notify.OrderEmail{
		OrderID:         placed.OrderID,
		Items:           placed.Items,
		Total:           placed.TotalAmount,
		ShippingAddress: addr,
		CustomerEmail:   user.Email,
		CustomerName:    user.FullName,
		CustomerPhone:   user.Phone,
	})
}

// MyOrders returns the caller's order history, newest first.
func (h *OrderHandler) MyOrders(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.UserFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "missing token", nil)
		return
	}

	orders, err := h.orders.GetByUserID(r.Context(), claims.UserID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to get orders", nil)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"orders":  orders,
	})
}

// AllOrders is the admin panel view: every order with the purchaser's
// contact details.
func (h *OrderHandler) AllOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.orders.GetAllWithCustomer(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to get orders", nil)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"orders":  orders,
	})
}

type StatusUpdateRequest struct {
	Status string `json:"status"`
}

func (h *OrderHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	idStr := chi.URLParam(r, "id")
	id, err := strconv.Atoi(idStr)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "invalid_id", "invalid order id", nil)
		return
	}

	var req StatusUpdateRequest
	if ok := decodeJSON(w, r, &req); !ok {
		return
	}

	if err := h.orders.UpdateStatus(r.Context(), id, req.Status); err != nil {
		switch {
		case errors.Is(err, repository.ErrInvalidInput):
			writeError(w, http.StatusBadRequest, "invalid_input", err.Error(), nil)
		case errors.Is(err, repository.ErrNotFound):
			writeError(w, http.StatusNotFound, "not_found", "order not found", nil)
		default:
			writeError(w, http.StatusInternalServerError, "internal_error", "failed to update status", nil)
		}
		return
	}

	order, err := h.orders.GetByID(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to get updated order", nil)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"order":   order,
	})
}
