package http

import (
	"context"
	"net/http"

	"github.com/fjod/go_cart/shop-api/internal/domain"
	"github.com/fjod/go_cart/shop-api/internal/service"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type OrderService interface {
	Create(ctx context.Context, in service.CreateOrderInput) (domain.Order, error)
	Get(ctx context.Context, id string) (domain.Order, error)
	List(ctx context.Context, filter service.OrderFilter, page service.PageRequest) ([]domain.Order, service.Pagination, error)
	Update(ctx context.Context, id string, upd service.OrderUpdate) (domain.Order, error)
	UpdateStatus(ctx context.Context, id string, status domain.OrderStatus, note string) (domain.Order, error)
	Cancel(ctx context.Context, id, reason string) (domain.Order, error)
	Tracking(ctx context.Context, id string) (service.TrackingView, error)
	Invoice(ctx context.Context, id string) (service.Invoice, error)
}

// OrderHandler handles order-related HTTP requests
type OrderHandler struct {
	orders OrderService
	log    *zap.Logger
}

func NewOrderHandler(orders OrderService, log *zap.Logger) *OrderHandler {
	return &OrderHandler{orders: orders, log: log}
}

func (h *OrderHandler) Routes(r chi.Router) {
	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Get("/{id}", h.Get)
	r.Put("/{id}", h.Update)
	r.Patch("/{id}/status", h.UpdateStatus)
	r.Post("/{id}/cancel", h.Cancel)
	r.Get("/{id}/tracking", h.Tracking)
	r.Get("/{id}/invoice", h.Invoice)
}

type statusRequest struct {
	Status domain.OrderStatus `json:"status"`
	Note   string             `json:"note"`
}

type cancelRequest struct {
	Reason string `json:"reason"`
}

// List handles GET /api/orders
func (h *OrderHandler) List(w http.ResponseWriter, r *http.Request) {
	page, err := pageRequest(r)
	if err != nil {
		respondServiceError(w, r, h.log, err)
		return
	}

	q := r.URL.Query()
	filter := service.OrderFilter{UserID: q.Get("userId"), Status: domain.OrderStatus(q.Get("status"))}
	orders, p, err := h.orders.List(r.Context(), filter, page)
	if err != nil {
		respondServiceError(w, r, h.log, err)
		return
	}
	respondPage(w, r, orders, p)
}

// Create handles POST /api/orders
func (h *OrderHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in service.CreateOrderInput
	if !decodeJSON(w, r, &in) {
		return
	}

	order, err := h.orders.Create(r.Context(), in)
	if err != nil {
		respondServiceError(w, r, h.log, err)
		return
	}
	respondJSON(w, r, http.StatusCreated, "Order created successfully", order)
}

// Get handles GET /api/orders/{id}
func (h *OrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	order, err := h.orders.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondServiceError(w, r, h.log, err)
		return
	}
	respondJSON(w, r, http.StatusOK, "", order)
}

// Update handles PUT /api/orders/{id}
func (h *OrderHandler) Update(w http.ResponseWriter, r *http.Request) {
	var upd service.OrderUpdate
	if !decodeJSON(w, r, &upd) {
		return
	}

	order, err := h.orders.Update(r.Context(), chi.URLParam(r, "id"), upd)
	if err != nil {
		respondServiceError(w, r, h.log, err)
		return
	}
	respondJSON(w, r, http.StatusOK, "Order updated successfully", order)
}

// UpdateStatus handles PATCH /api/orders/{id}/status
func (h *OrderHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	var req statusRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	order, err := h.orders.UpdateStatus(r.Context(), chi.URLParam(r, "id"), req.Status, req.Note)
	if err != nil {
		respondServiceError(w, r, h.log, err)
		return
	}
	respondJSON(w, r, http.StatusOK, "Order status updated successfully", order)
}

// Cancel handles POST /api/orders/{id}/cancel. The body is optional.
func (h *OrderHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	var req cancelRequest
	if r.ContentLength != 0 && !decodeJSON(w, r, &req) {
		return
	}

	order, err := h.orders.Cancel(r.Context(), chi.URLParam(r, "id"), req.Reason)
	if err != nil {
		respondServiceError(w, r, h.log, err)
		return
	}
	respondJSON(w, r, http.StatusOK, "Order cancelled successfully", order)
}

func (h *OrderHandler) Tracking(w http.ResponseWriter, r *http.Request) {
	view, err := h.orders.Tracking(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondServiceError(w, r, h.log, err)
		return
	}
	respondJSON(w, r, http.StatusOK, "", view)
}

func (h *OrderHandler) Invoice(w http.ResponseWriter, r *http.Request) {
	invoice, err := h.orders.Invoice(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondServiceError(w, r, h.log, err)
		return
	}
	respondJSON(w, r, http.StatusOK, "", invoice)
}
