package http

import (
	"context"
	"net/http"

	"github.com/fjod/go_cart/shop-api/internal/service"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type AnalyticsService interface {
	Dashboard(ctx context.Context) service.Dashboard
	Sales(ctx context.Context, days int) (service.SalesReport, error)
	TopProducts(ctx context.Context, limit int) ([]service.ProductSales, error)
	Inventory(ctx context.Context, threshold int) (service.InventoryReport, error)
}

type AnalyticsHandler struct {
	analytics AnalyticsService
	log       *zap.Logger
}

func NewAnalyticsHandler(analytics AnalyticsService, log *zap.Logger) *AnalyticsHandler {
	return &AnalyticsHandler{analytics: analytics, log: log}
}

func (h *AnalyticsHandler) Routes(r chi.Router) {
	r.Get("/dashboard", h.Dashboard)
	r.Get("/sales", h.Sales)
	r.Get("/products/top", h.TopProducts)
	r.Get("/inventory", h.Inventory)
}

func (h *AnalyticsHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, r, http.StatusOK, "", h.analytics.Dashboard(r.Context()))
}

// Sales handles GET /api/analytics/sales?days=
func (h *AnalyticsHandler) Sales(w http.ResponseWriter, r *http.Request) {
	days, err := queryInt(r, "days")
	if err != nil {
		respondServiceError(w, r, h.log, err)
		return
	}

	report, err := h.analytics.Sales(r.Context(), days)
	if err != nil {
		respondServiceError(w, r, h.log, err)
		return
	}
	respondJSON(w, r, http.StatusOK, "", report)
}

func (h *AnalyticsHandler) TopProducts(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit")
	if err != nil {
		respondServiceError(w, r, h.log, err)
		return
	}

	top, err := h.analytics.TopProducts(r.Context(), limit)
	if err != nil {
		respondServiceError(w, r, h.log, err)
		return
	}
	respondJSON(w, r, http.StatusOK, "", top)
}

func (h *AnalyticsHandler) Inventory(w http.ResponseWriter, r *http.Request) {
	threshold, err := queryInt(r, "threshold")
	if err != nil {
		respondServiceError(w, r, h.log, err)
		return
	}

	report, err := h.analytics.Inventory(r.Context(), threshold)
	if err != nil {
		respondServiceError(w, r, h.log, err)
		return
	}
	respondJSON(w, r, http.StatusOK, "", report)
}
