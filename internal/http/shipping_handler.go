package http

import (
	"context"
	"net/http"

	"github.com/fjod/go_cart/shop-api/internal/domain"
	"github.com/fjod/go_cart/shop-api/internal/service"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type ShippingService interface {
	Rates(ctx context.Context, weight float64) ([]service.RateQuote, error)
	Create(ctx context.Context, in service.CreateShipmentInput) (domain.Shipment, error)
	Get(ctx context.Context, id string) (domain.Shipment, error)
	Track(ctx context.Context, trackingNumber string) (domain.Shipment, error)
	UpdateStatus(ctx context.Context, id string, in service.ShipmentStatusInput) (domain.Shipment, error)
}

type ShippingHandler struct {
	shipping ShippingService
	log      *zap.Logger
}

func NewShippingHandler(shipping ShippingService, log *zap.Logger) *ShippingHandler {
	return &ShippingHandler{shipping: shipping, log: log}
}

func (h *ShippingHandler) Routes(r chi.Router) {
	r.Get("/rates", h.Rates)
	r.Post("/", h.Create)
	r.Get("/track/{trackingNumber}", h.Track)
	r.Get("/{id}", h.Get)
	r.Patch("/{id}/status", h.UpdateStatus)
}

// Rates handles GET /api/shipping/rates?weight=
func (h *ShippingHandler) Rates(w http.ResponseWriter, r *http.Request) {
	weight, err := queryFloat(r, "weight")
	if err != nil {
		respondServiceError(w, r, h.log, err)
		return
	}
	var wt float64
	if weight != nil {
		wt = *weight
	}

	quotes, err := h.shipping.Rates(r.Context(), wt)
	if err != nil {
		respondServiceError(w, r, h.log, err)
		return
	}
	respondJSON(w, r, http.StatusOK, "", quotes)
}

func (h *ShippingHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in service.CreateShipmentInput
	if !decodeJSON(w, r, &in) {
		return
	}

	shipment, err := h.shipping.Create(r.Context(), in)
	if err != nil {
		respondServiceError(w, r, h.log, err)
		return
	}
	respondJSON(w, r, http.StatusCreated, "Shipment created successfully", shipment)
}

func (h *ShippingHandler) Get(w http.ResponseWriter, r *http.Request) {
	shipment, err := h.shipping.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondServiceError(w, r, h.log, err)
		return
	}
	respondJSON(w, r, http.StatusOK, "", shipment)
}

func (h *ShippingHandler) Track(w http.ResponseWriter, r *http.Request) {
	shipment, err := h.shipping.Track(r.Context(), chi.URLParam(r, "trackingNumber"))
	if err != nil {
		respondServiceError(w, r, h.log, err)
		return
	}
	respondJSON(w, r, http.StatusOK, "", shipment)
}

// UpdateStatus handles PATCH /api/shipping/{id}/status
func (h *ShippingHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	var in service.ShipmentStatusInput
	if !decodeJSON(w, r, &in) {
		return
	}

	shipment, err := h.shipping.UpdateStatus(r.Context(), chi.URLParam(r, "id"), in)
	if err != nil {
		respondServiceError(w, r, h.log, err)
		return
	}
	respondJSON(w, r, http.StatusOK, "Shipment status updated successfully", shipment)
}
