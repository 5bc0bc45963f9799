package http

import (
	"context"
	"net/http"

	"github.com/fjod/go_cart/shop-api/internal/domain"
	"github.com/fjod/go_cart/shop-api/internal/service"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type CartService interface {
	GetCart(ctx context.Context, userID string) (service.CartView, error)
	AddItem(ctx context.Context, userID, productID string, qty int) (service.CartView, error)
	UpdateItem(ctx context.Context, userID, productID string, qty int) (service.CartView, error)
	RemoveItem(ctx context.Context, userID, productID string) (service.CartView, error)
	Clear(ctx context.Context, userID string) (service.CartView, error)
	Checkout(ctx context.Context, userID string, in service.CheckoutInput) (domain.Order, error)
}

// CartHandler handles cart-related HTTP requests
type CartHandler struct {
	carts CartService
	log   *zap.Logger
}

func NewCartHandler(carts CartService, log *zap.Logger) *CartHandler {
	return &CartHandler{carts: carts, log: log}
}

func (h *CartHandler) Routes(r chi.Router) {
	r.Get("/{userId}", h.GetCart)
	r.Delete("/{userId}", h.ClearCart)
	r.Post("/{userId}/items", h.AddItem)
	r.Put("/{userId}/items/{productId}", h.UpdateItem)
	r.Delete("/{userId}/items/{productId}", h.RemoveItem)
	r.Post("/{userId}/checkout", h.Checkout)
}

// AddItemRequest represents the request body for adding an item
type AddItemRequest struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

// UpdateItemRequest represents the request body for updating item quantity
type UpdateItemRequest struct {
	Quantity int `json:"quantity"`
}

// GetCart handles GET /api/cart/{userId}
func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	cart, err := h.carts.GetCart(r.Context(), chi.URLParam(r, "userId"))
	if err != nil {
		respondServiceError(w, r, h.log, err)
		return
	}
	respondJSON(w, r, http.StatusOK, "", cart)
}

// AddItem handles POST /api/cart/{userId}/items
func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	var req AddItemRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Quantity == 0 {
		req.Quantity = 1
	}

	cart, err := h.carts.AddItem(r.Context(), chi.URLParam(r, "userId"), req.ProductID, req.Quantity)
	if err != nil {
		respondServiceError(w, r, h.log, err)
		return
	}
	respondJSON(w, r, http.StatusOK, "Item added to cart", cart)
}

// UpdateItem handles PUT /api/cart/{userId}/items/{productId}
func (h *CartHandler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	var req UpdateItemRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	cart, err := h.carts.UpdateItem(r.Context(), chi.URLParam(r, "userId"), chi.URLParam(r, "productId"), req.Quantity)
	if err != nil {
		respondServiceError(w, r, h.log, err)
		return
	}
	respondJSON(w, r, http.StatusOK, "Cart updated", cart)
}

// RemoveItem handles DELETE /api/cart/{userId}/items/{productId}
func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	cart, err := h.carts.RemoveItem(r.Context(), chi.URLParam(r, "userId"), chi.URLParam(r, "productId"))
	if err != nil {
		respondServiceError(w, r, h.log, err)
		return
	}
	respondJSON(w, r, http.StatusOK, "Item removed from cart", cart)
}

// ClearCart handles DELETE /api/cart/{userId}
func (h *CartHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	cart, err := h.carts.Clear(r.Context(), chi.URLParam(r, "userId"))
	if err != nil {
		respondServiceError(w, r, h.log, err)
		return
	}
	respondJSON(w, r, http.StatusOK, "Cart cleared", cart)
}

// Checkout handles POST /api/cart/{userId}/checkout
func (h *CartHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	var in service.CheckoutInput
	if !decodeJSON(w, r, &in) {
		return
	}

	order, err := h.carts.Checkout(r.Context(), chi.URLParam(r, "userId"), in)
	if err != nil {
		respondServiceError(w, r, h.log, err)
		return
	}
	respondJSON(w, r, http.StatusCreated, "Order placed successfully", order)
}
