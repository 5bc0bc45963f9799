package http

import (
	"context"
	"net/http"

	"github.com/fjod/go_cart/shop-api/internal/domain"
	"github.com/fjod/go_cart/shop-api/internal/service"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type CategoryService interface {
	List(ctx context.Context) []service.CategoryView
	Get(ctx context.Context, id string) (service.CategoryView, error)
	Tree(ctx context.Context) []*domain.CategoryNode
	Products(ctx context.Context, id string, page service.PageRequest) ([]domain.Product, service.Pagination, error)
	Create(ctx context.Context, in service.CategoryInput) (domain.Category, error)
	Update(ctx context.Context, id string, upd service.CategoryUpdate) (domain.Category, error)
	Delete(ctx context.Context, id string) (domain.Category, error)
}

type CategoryHandler struct {
	categories CategoryService
	log        *zap.Logger
}

func NewCategoryHandler(categories CategoryService, log *zap.Logger) *CategoryHandler {
	return &CategoryHandler{categories: categories, log: log}
}

func (h *CategoryHandler) Routes(r chi.Router) {
	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Get("/tree", h.Tree)
	r.Get("/{id}", h.Get)
	r.Put("/{id}", h.Update)
	r.Delete("/{id}", h.Delete)
	r.Get("/{id}/products", h.Products)
}

func (h *CategoryHandler) List(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, r, http.StatusOK, "", h.categories.List(r.Context()))
}

func (h *CategoryHandler) Tree(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, r, http.StatusOK, "", h.categories.Tree(r.Context()))
}

func (h *CategoryHandler) Get(w http.ResponseWriter, r *http.Request) {
	category, err := h.categories.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondServiceError(w, r, h.log, err)
		return
	}
	respondJSON(w, r, http.StatusOK, "", category)
}

func (h *CategoryHandler) Products(w http.ResponseWriter, r *http.Request) {
	page, err := pageRequest(r)
	if err != nil {
		respondServiceError(w, r, h.log, err)
		return
	}

	products, p, err := h.categories.Products(r.Context(), chi.URLParam(r, "id"), page)
	if err != nil {
		respondServiceError(w, r, h.log, err)
		return
	}
	respondPage(w, r, products, p)
}

func (h *CategoryHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in service.CategoryInput
	if !decodeJSON(w, r, &in) {
		return
	}

	category, err := h.categories.Create(r.Context(), in)
	if err != nil {
		respondServiceError(w, r, h.log, err)
		return
	}
	respondJSON(w, r, http.StatusCreated, "Category created successfully", category)
}

func (h *CategoryHandler) Update(w http.ResponseWriter, r *http.Request) {
	var upd service.CategoryUpdate
	if !decodeJSON(w, r, &upd) {
		return
	}

	category, err := h.categories.Update(r.Context(), chi.URLParam(r, "id"), upd)
	if err != nil {
		respondServiceError(w, r, h.log, err)
		return
	}
	respondJSON(w, r, http.StatusOK, "Category updated successfully", category)
}

func (h *CategoryHandler) Delete(w http.ResponseWriter, r *http.Request) {
	category, err := h.categories.Delete(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondServiceError(w, r, h.log, err)
		return
	}
	respondJSON(w, r, http.StatusOK, "Category deleted successfully", category)
}
