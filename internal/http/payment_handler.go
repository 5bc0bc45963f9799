package http

import (
	"context"
	"net/http"

	"github.com/fjod/go_cart/shop-api/internal/domain"
	"github.com/fjod/go_cart/shop-api/internal/service"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type PaymentService interface {
	Methods(ctx context.Context) []service.PaymentMethodInfo
	Process(ctx context.Context, in service.ProcessPaymentInput) (domain.Payment, error)
	Refund(ctx context.Context, id string, in service.RefundInput) (domain.Payment, error)
	Get(ctx context.Context, id string) (domain.Payment, error)
	ForOrder(ctx context.Context, orderID string) ([]domain.Payment, error)
}

type PaymentHandler struct {
	payments PaymentService
	log      *zap.Logger
}

func NewPaymentHandler(payments PaymentService, log *zap.Logger) *PaymentHandler {
	return &PaymentHandler{payments: payments, log: log}
}

func (h *PaymentHandler) Routes(r chi.Router) {
	r.Get("/methods", h.Methods)
	r.Post("/process", h.Process)
	r.Get("/order/{orderId}", h.ForOrder)
	r.Get("/{id}", h.Get)
	r.Post("/{id}/refund", h.Refund)
}

func (h *PaymentHandler) Methods(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, r, http.StatusOK, "", h.payments.Methods(r.Context()))
}

// Process handles POST /api/payments/process. A declined charge answers 402.
func (h *PaymentHandler) Process(w http.ResponseWriter, r *http.Request) {
	var in service.ProcessPaymentInput
	if !decodeJSON(w, r, &in) {
		return
	}

	payment, err := h.payments.Process(r.Context(), in)
	if err != nil {
		respondServiceError(w, r, h.log, err)
		return
	}
	respondJSON(w, r, http.StatusCreated, "Payment processed successfully", payment)
}

func (h *PaymentHandler) Get(w http.ResponseWriter, r *http.Request) {
	payment, err := h.payments.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondServiceError(w, r, h.log, err)
		return
	}
	respondJSON(w, r, http.StatusOK, "", payment)
}

func (h *PaymentHandler) ForOrder(w http.ResponseWriter, r *http.Request) {
	payments, err := h.payments.ForOrder(r.Context(), chi.URLParam(r, "orderId"))
	if err != nil {
		respondServiceError(w, r, h.log, err)
		return
	}
	respondJSON(w, r, http.StatusOK, "", payments)
}

// Refund handles POST /api/payments/{id}/refund. An empty body refunds in full.
func (h *PaymentHandler) Refund(w http.ResponseWriter, r *http.Request) {
	var in service.RefundInput
	if r.ContentLength != 0 && !decodeJSON(w, r, &in) {
		return
	}

	payment, err := h.payments.Refund(r.Context(), chi.URLParam(r, "id"), in)
	if err != nil {
		respondServiceError(w, r, h.log, err)
		return
	}
	respondJSON(w, r, http.StatusOK, "Refund processed successfully", payment)
}
