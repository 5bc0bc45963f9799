package http

import (
	"context"
	"net/http"
	"strings"

	"github.com/fjod/go_cart/shop-api/internal/domain"
	"github.com/fjod/go_cart/shop-api/internal/service"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type ProductService interface {
	List(ctx context.Context, filter service.ProductFilter, page service.PageRequest) ([]domain.Product, service.Pagination, error)
	Get(ctx context.Context, id string) (domain.Product, error)
	Featured(ctx context.Context, limit int) []domain.Product
	Search(ctx context.Context, query string, page service.PageRequest) ([]domain.Product, service.Pagination, error)
	ByCategory(ctx context.Context, categoryID string, page service.PageRequest) ([]domain.Product, service.Pagination, error)
	Create(ctx context.Context, in service.ProductInput) (domain.Product, error)
	Update(ctx context.Context, id string, upd service.ProductUpdate) (domain.Product, error)
	Delete(ctx context.Context, id string) (domain.Product, error)
	AdjustStock(ctx context.Context, id string, adj service.StockAdjustment) (domain.Product, error)
}

type ProductHandler struct {
	products ProductService
	log      *zap.Logger
}

func NewProductHandler(products ProductService, log *zap.Logger) *ProductHandler {
	return &ProductHandler{products: products, log: log}
}

func (h *ProductHandler) Routes(r chi.Router) {
	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Get("/featured", h.Featured)
	r.Get("/search", h.Search)
	r.Get("/category/{categoryId}", h.ByCategory)
	r.Get("/{id}", h.Get)
	r.Put("/{id}", h.Update)
	r.Patch("/{id}", h.Update)
	r.Delete("/{id}", h.Delete)
	r.Patch("/{id}/stock", h.AdjustStock)
}

// List handles GET /api/products
func (h *ProductHandler) List(w http.ResponseWriter, r *http.Request) {
	filter, err := productFilter(r)
	if err != nil {
		respondServiceError(w, r, h.log, err)
		return
	}
	page, err := pageRequest(r)
	if err != nil {
		respondServiceError(w, r, h.log, err)
		return
	}

	products, p, err := h.products.List(r.Context(), filter, page)
	if err != nil {
		respondServiceError(w, r, h.log, err)
		return
	}
	respondPage(w, r, products, p)
}

func productFilter(r *http.Request) (service.ProductFilter, error) {
	q := r.URL.Query()
	filter := service.ProductFilter{
		CategoryID: q.Get("category"),
		Sort:       q.Get("sort"),
	}

	switch strings.ToLower(q.Get("order")) {
	case "", "asc":
	case "desc":
		filter.Desc = true
	default:
		return filter, domain.Invalid("order must be asc or desc")
	}

	var err error
	if filter.MinPrice, err = queryFloat(r, "minPrice"); err != nil {
		return filter, err
	}
	if filter.MaxPrice, err = queryFloat(r, "maxPrice"); err != nil {
		return filter, err
	}
	if filter.InStock, err = queryBool(r, "inStock"); err != nil {
		return filter, err
	}
	if filter.Featured, err = queryBool(r, "featured"); err != nil {
		return filter, err
	}
	return filter, nil
}

// Featured handles GET /api/products/featured
func (h *ProductHandler) Featured(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit")
	if err != nil {
		respondServiceError(w, r, h.log, err)
		return
	}
	respondJSON(w, r, http.StatusOK, "", h.products.Featured(r.Context(), limit))
}

// Search handles GET /api/products/search?q=
func (h *ProductHandler) Search(w http.ResponseWriter, r *http.Request) {
	page, err := pageRequest(r)
	if err != nil {
		respondServiceError(w, r, h.log, err)
		return
	}

	products, p, err := h.products.Search(r.Context(), r.URL.Query().Get("q"), page)
	if err != nil {
		respondServiceError(w, r, h.log, err)
		return
	}
	respondPage(w, r, products, p)
}

func (h *ProductHandler) ByCategory(w http.ResponseWriter, r *http.Request) {
	page, err := pageRequest(r)
	if err != nil {
		respondServiceError(w, r, h.log, err)
		return
	}

	products, p, err := h.products.ByCategory(r.Context(), chi.URLParam(r, "categoryId"), page)
	if err != nil {
		respondServiceError(w, r, h.log, err)
		return
	}
	respondPage(w, r, products, p)
}

// Get handles GET /api/products/{id}
func (h *ProductHandler) Get(w http.ResponseWriter, r *http.Request) {
	product, err := h.products.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondServiceError(w, r, h.log, err)
		return
	}
	respondJSON(w, r, http.StatusOK, "", product)
}

// Create handles POST /api/products
func (h *ProductHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in service.ProductInput
	if !decodeJSON(w, r, &in) {
		return
	}

	product, err := h.products.Create(r.Context(), in)
	if err != nil {
		respondServiceError(w, r, h.log, err)
		return
	}
	respondJSON(w, r, http.StatusCreated, "Product created successfully", product)
}

// Update handles PUT and PATCH /api/products/{id}. Both merge the given fields.
func (h *ProductHandler) Update(w http.ResponseWriter, r *http.Request) {
	var upd service.ProductUpdate
	if !decodeJSON(w, r, &upd) {
		return
	}

	product, err := h.products.Update(r.Context(), chi.URLParam(r, "id"), upd)
	if err != nil {
		respondServiceError(w, r, h.log, err)
		return
	}
	respondJSON(w, r, http.StatusOK, "Product updated successfully", product)
}

// Delete handles DELETE /api/products/{id}
func (h *ProductHandler) Delete(w http.ResponseWriter, r *http.Request) {
	product, err := h.products.Delete(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondServiceError(w, r, h.log, err)
		return
	}
	respondJSON(w, r, http.StatusOK, "Product deleted successfully", product)
}

// AdjustStock handles PATCH /api/products/{id}/stock
func (h *ProductHandler) AdjustStock(w http.ResponseWriter, r *http.Request) {
	var adj service.StockAdjustment
	if !decodeJSON(w, r, &adj) {
		return
	}

	product, err := h.products.AdjustStock(r.Context(), chi.URLParam(r, "id"), adj)
	if err != nil {
		respondServiceError(w, r, h.log, err)
		return
	}
	respondJSON(w, r, http.StatusOK, "Stock updated successfully", product)
}
