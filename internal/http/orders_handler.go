package http

import (
	"context"
	"net/http"
	"time"

	"github.com/fjod/go_shop/internal/domain"
	"github.com/go-chi/chi/v5"
)

type OrderService interface {
	CreateOrder(ctx context.Context, userID string, meta domain.OrderMetadata) (*domain.Order, error)
	UpdateStatus(ctx context.Context, id string, status string) (*domain.Order, error)
	GetOrder(ctx context.Context, id, userID string, admin bool) (*domain.Order, error)
	GetOrderByOrderID(ctx context.Context, orderID, userID string, admin bool) (*domain.Order, error)
	ListOrders(ctx context.Context, status string) ([]*domain.Order, error)
	ListUserOrders(ctx context.Context, userID string) ([]*domain.Order, error)
	History(ctx context.Context, id, userID string, admin bool) ([]domain.StatusChange, error)
	Stats(ctx context.Context) (*domain.OrderStats, error)
}

type OrdersHandler struct {
	orders  OrderService
	timeout time.Duration
}

func NewOrdersHandler(orders OrderService, timeout time.Duration) *OrdersHandler {
	return &OrdersHandler{
		orders:  orders,
		timeout: timeout,
	}
}

type UpdateStatusRequestDTO struct {
	Status string `json:"status"`
}

// POST /orders
func (h *OrdersHandler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	user := requireUser(w, r)
	if user == nil {
		return
	}

	var meta domain.OrderMetadata
	if r.ContentLength != 0 && !decodeJSON(w, r, &meta) {
		return
	}

	order, err := h.orders.CreateOrder(ctx, user.UserID, meta)
	if err != nil {
		handleError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, order)
}

// GET /orders?status=
func (h *OrdersHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	orders, err := h.orders.ListOrders(ctx, r.URL.Query().Get("status"))
	if err != nil {
		handleError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, nonNil(orders))
}

// GET /orders/my-orders
func (h *OrdersHandler) ListMyOrders(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	user := requireUser(w, r)
	if user == nil {
		return
	}

	orders, err := h.orders.ListUserOrders(ctx, user.UserID)
	if err != nil {
		handleError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, nonNil(orders))
}

// GET /orders/stats
func (h *OrdersHandler) Stats(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	stats, err := h.orders.Stats(ctx)
	if err != nil {
		handleError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, stats)
}

// GET /orders/{id}
func (h *OrdersHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	user := requireUser(w, r)
	if user == nil {
		return
	}

	order, err := h.orders.GetOrder(ctx, chi.URLParam(r, "id"), user.UserID, user.IsAdmin())
	if err != nil {
		handleError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, order)
}

// GET /orders/order-id/{orderId}
func (h *OrdersHandler) GetOrderByOrderID(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	user := requireUser(w, r)
	if user == nil {
		return
	}

	orderID := chi.URLParam(r, "orderId")
	if orderID == "" {
		respondError(w, http.StatusBadRequest, "missing_order_id", "orderId is required")
		return
	}

	order, err := h.orders.GetOrderByOrderID(ctx, orderID, user.UserID, user.IsAdmin())
	if err != nil {
		handleError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, order)
}

// GET /orders/{id}/history
func (h *OrdersHandler) History(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	user := requireUser(w, r)
	if user == nil {
		return
	}

	history, err := h.orders.History(ctx, chi.URLParam(r, "id"), user.UserID, user.IsAdmin())
	if err != nil {
		handleError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, nonNil(history))
}

// PATCH /orders/{id}/status
func (h *OrdersHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req UpdateStatusRequestDTO
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Status == "" {
		respondError(w, http.StatusBadRequest, "missing_status", "status is required")
		return
	}

	order, err := h.orders.UpdateStatus(ctx, chi.URLParam(r, "id"), req.Status)
	if err != nil {
		handleError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, order)
}

// nonNil keeps empty lists encoded as [] rather than null.
func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
