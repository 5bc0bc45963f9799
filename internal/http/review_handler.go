package http

import (
	"context"
	"net/http"

	"github.com/fjod/go_cart/shop-api/internal/domain"
	"github.com/fjod/go_cart/shop-api/internal/service"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type ReviewService interface {
	Create(ctx context.Context, in service.ReviewInput) (domain.Review, error)
	Get(ctx context.Context, id string) (domain.Review, error)
	ForProduct(ctx context.Context, productID string, page service.PageRequest) (service.ProductReviews, error)
	Update(ctx context.Context, id string, upd service.ReviewUpdate) (domain.Review, error)
	Delete(ctx context.Context, id string) (domain.Review, error)
	MarkHelpful(ctx context.Context, id string) (domain.Review, error)
}

type ReviewHandler struct {
	reviews ReviewService
	log     *zap.Logger
}

func NewReviewHandler(reviews ReviewService, log *zap.Logger) *ReviewHandler {
	return &ReviewHandler{reviews: reviews, log: log}
}

func (h *ReviewHandler) Routes(r chi.Router) {
	r.Post("/", h.Create)
	r.Get("/product/{productId}", h.ForProduct)
	r.Get("/{id}", h.Get)
	r.Put("/{id}", h.Update)
	r.Delete("/{id}", h.Delete)
	r.Post("/{id}/helpful", h.MarkHelpful)
}

func (h *ReviewHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in service.ReviewInput
	if !decodeJSON(w, r, &in) {
		return
	}

	review, err := h.reviews.Create(r.Context(), in)
	if err != nil {
		respondServiceError(w, r, h.log, err)
		return
	}
	respondJSON(w, r, http.StatusCreated, "Review created successfully", review)
}

// ForProduct handles GET /api/reviews/product/{productId}. The rating summary
// covers every review, the list only the requested page.
func (h *ReviewHandler) ForProduct(w http.ResponseWriter, r *http.Request) {
	page, err := pageRequest(r)
	if err != nil {
		respondServiceError(w, r, h.log, err)
		return
	}

	result, err := h.reviews.ForProduct(r.Context(), chi.URLParam(r, "productId"), page)
	if err != nil {
		respondServiceError(w, r, h.log, err)
		return
	}
	respondPage(w, r, result, result.Pagination)
}

func (h *ReviewHandler) Get(w http.ResponseWriter, r *http.Request) {
	review, err := h.reviews.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondServiceError(w, r, h.log, err)
		return
	}
	respondJSON(w, r, http.StatusOK, "", review)
}

func (h *ReviewHandler) Update(w http.ResponseWriter, r *http.Request) {
	var upd service.ReviewUpdate
	if !decodeJSON(w, r, &upd) {
		return
	}

	review, err := h.reviews.Update(r.Context(), chi.URLParam(r, "id"), upd)
	if err != nil {
		respondServiceError(w, r, h.log, err)
		return
	}
	respondJSON(w, r, http.StatusOK, "Review updated successfully", review)
}

func (h *ReviewHandler) Delete(w http.ResponseWriter, r *http.Request) {
	review, err := h.reviews.Delete(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondServiceError(w, r, h.log, err)
		return
	}
	respondJSON(w, r, http.StatusOK, "Review deleted successfully", review)
}

func (h *ReviewHandler) MarkHelpful(w http.ResponseWriter, r *http.Request) {
	review, err := h.reviews.MarkHelpful(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondServiceError(w, r, h.log, err)
		return
	}
	respondJSON(w, r, http.StatusOK, "Review marked as helpful", review)
}
