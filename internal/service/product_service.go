package service

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/fjod/go_cart/shop-api/internal/domain"
	"github.com/fjod/go_cart/shop-api/internal/store"
	"go.uber.org/zap"
)

type ProductService struct {
	store *store.Store
	log   *zap.Logger
}

func NewProductService(s *store.Store, log *zap.Logger) *ProductService {
	return &ProductService{store: s, log: log}
}

type ProductInput struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Price       float64  `json:"price"`
	CategoryID  string   `json:"categoryId"`
	Stock       int      `json:"stock"`
	SKU         string   `json:"sku"`
	Weight      *float64 `json:"weight"`
	ImageURL    string   `json:"imageUrl"`
	Featured    bool     `json:"featured"`
	Tags        []string `json:"tags"`
}

func (in ProductInput) Validate() error {
	if strings.TrimSpace(in.Name) == "" {
		return domain.Invalid("name is required")
	}
	if in.Price <= 0 {
		return domain.Invalid("price must be greater than 0")
	}
	if in.Stock < 0 {
		return domain.Invalid("stock cannot be negative")
	}
	if in.Weight != nil && *in.Weight < 0 {
		return domain.Invalid("weight cannot be negative")
	}
	return nil
}

// ProductUpdate is a partial update; nil fields are left unchanged.
type ProductUpdate struct {
	Name        *string   `json:"name"`
	Description *string   `json:"description"`
	Price       *float64  `json:"price"`
	CategoryID  *string   `json:"categoryId"`
	Stock       *int      `json:"stock"`
	SKU         *string   `json:"sku"`
	Weight      *float64  `json:"weight"`
	ImageURL    *string   `json:"imageUrl"`
	Featured    *bool     `json:"featured"`
	Tags        *[]string `json:"tags"`
}

func (u ProductUpdate) apply(p *domain.Product) error {
	if u.Name != nil {
		if strings.TrimSpace(*u.Name) == "" {
			return domain.Invalid("name cannot be empty")
		}
		p.Name = *u.Name
	}
	if u.Description != nil {
		p.Description = *u.Description
	}
	if u.Price != nil {
		if *u.Price <= 0 {
			return domain.Invalid("price must be greater than 0")
		}
		p.Price = *u.Price
	}
	if u.CategoryID != nil {
		p.CategoryID = *u.CategoryID
	}
	if u.Stock != nil {
		if *u.Stock < 0 {
			return domain.Invalid("stock cannot be negative")
		}
		p.Stock = *u.Stock
	}
	if u.SKU != nil {
		p.SKU = *u.SKU
	}
	if u.Weight != nil {
		if *u.Weight < 0 {
			return domain.Invalid("weight cannot be negative")
		}
		w := *u.Weight
		p.Weight = &w
	}
	if u.ImageURL != nil {
		p.ImageURL = *u.ImageURL
	}
	if u.Featured != nil {
		p.Featured = *u.Featured
	}
	if u.Tags != nil {
		p.Tags = slices.Clone(*u.Tags)
	}
	return nil
}

type ProductFilter struct {
	CategoryID string
	MinPrice   *float64
	MaxPrice   *float64
	InStock    *bool
	Featured   *bool
	// Sort is one of price, name, rating, createdAt. Empty keeps insertion order.
	Sort string
	// Desc reverses the sort order.
	Desc bool
}

func (f ProductFilter) matches(p domain.Product) bool {
	if f.CategoryID != "" && p.CategoryID != f.CategoryID {
		return false
	}
	if f.MinPrice != nil && p.Price < *f.MinPrice {
		return false
	}
	if f.MaxPrice != nil && p.Price > *f.MaxPrice {
		return false
	}
	if f.InStock != nil && p.InStock() != *f.InStock {
		return false
	}
	if f.Featured != nil && p.Featured != *f.Featured {
		return false
	}
	return true
}

var productSorts = map[string]func(a, b domain.Product) int{
	"price":     func(a, b domain.Product) int { return cmp.Compare(a.Price, b.Price) },
	"name":      func(a, b domain.Product) int { return cmp.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name)) },
	"rating":    func(a, b domain.Product) int { return cmp.Compare(a.Rating, b.Rating) },
	"createdAt": func(a, b domain.Product) int { return a.CreatedAt.Compare(b.CreatedAt) },
}

func (s *ProductService) List(_ context.Context, filter ProductFilter, page PageRequest) ([]domain.Product, Pagination, error) {
	if filter.MinPrice != nil && filter.MaxPrice != nil && *filter.MinPrice > *filter.MaxPrice {
		return nil, Pagination{}, domain.Invalid("minPrice cannot be greater than maxPrice")
	}

	products := s.store.Products.Find(filter.matches)
	if filter.Sort != "" {
		compare, ok := productSorts[filter.Sort]
		if !ok {
			return nil, Pagination{}, domain.Invalid("cannot sort by %q", filter.Sort)
		}
		slices.SortStableFunc(products, func(a, b domain.Product) int {
			if filter.Desc {
				return compare(b, a)
			}
			return compare(a, b)
		})
	}

	items, p := Paginate(products, page)
	return items, p, nil
}

func (s *ProductService) Get(_ context.Context, id string) (domain.Product, error) {
	p, err := s.store.Products.FindByID(id)
	if err != nil {
		return domain.Product{}, notFound("product", id, err)
	}
	return p, nil
}

// Featured returns up to limit featured products.
func (s *ProductService) Featured(_ context.Context, limit int) []domain.Product {
	featured := s.store.Products.Find(func(p domain.Product) bool { return p.Featured })
	if limit > 0 && len(featured) > limit {
		featured = featured[:limit]
	}
	return featured
}

// Search matches the query case-insensitively against name, description and tags.
func (s *ProductService) Search(_ context.Context, query string, page PageRequest) ([]domain.Product, Pagination, error) {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return nil, Pagination{}, domain.Invalid("search query is required")
	}

	found := s.store.Products.Find(func(p domain.Product) bool {
		if strings.Contains(strings.ToLower(p.Name), q) || strings.Contains(strings.ToLower(p.Description), q) {
			return true
		}
		return slices.ContainsFunc(p.Tags, func(tag string) bool {
			return strings.Contains(strings.ToLower(tag), q)
		})
	})

	items, p := Paginate(found, page)
	return items, p, nil
}

func (s *ProductService) ByCategory(ctx context.Context, categoryID string, page PageRequest) ([]domain.Product, Pagination, error) {
	if _, err := s.store.Categories.FindByID(categoryID); err != nil {
		return nil, Pagination{}, notFound("category", categoryID, err)
	}
	return s.List(ctx, ProductFilter{CategoryID: categoryID}, page)
}

func (s *ProductService) Create(_ context.Context, in ProductInput) (domain.Product, error) {
	if err := in.Validate(); err != nil {
		return domain.Product{}, err
	}
	if err := s.checkCategory(in.CategoryID); err != nil {
		return domain.Product{}, err
	}

	var created domain.Product
	err := s.store.Atomically(func() error {
		var err error
		created, err = s.store.Products.Insert(domain.Product{
			Name:        strings.TrimSpace(in.Name),
			Description: in.Description,
			Price:       in.Price,
			CategoryID:  in.CategoryID,
			Stock:       in.Stock,
			SKU:         in.SKU,
			Weight:      in.Weight,
			ImageURL:    in.ImageURL,
			Featured:    in.Featured,
			Tags:        in.Tags,
		})
		return err
	})
	if err != nil {
		return domain.Product{}, fmt.Errorf("create product: %w", err)
	}

	s.log.Info("product created", zap.String("product_id", created.ID), zap.String("name", created.Name))
	return created, nil
}

func (s *ProductService) Update(_ context.Context, id string, upd ProductUpdate) (domain.Product, error) {
	if upd.CategoryID != nil {
		if err := s.checkCategory(*upd.CategoryID); err != nil {
			return domain.Product{}, err
		}
	}

	var updated domain.Product
	err := s.store.Atomically(func() error {
		var err error
		updated, err = s.store.Products.Update(id, upd.apply)
		return err
	})
	if err != nil {
		return domain.Product{}, notFound("product", id, err)
	}
	return updated, nil
}

// Delete removes the product together with its reviews.
func (s *ProductService) Delete(_ context.Context, id string) (domain.Product, error) {
	var removed domain.Product
	err := s.store.Atomically(func() error {
		var err error
		removed, err = s.store.Products.Delete(id)
		if err != nil {
			return err
		}
		s.store.Reviews.DeleteWhere(func(r domain.Review) bool { return r.ProductID == id })
		return nil
	})
	if err != nil {
		return domain.Product{}, notFound("product", id, err)
	}

	s.log.Info("product deleted", zap.String("product_id", id))
	return removed, nil
}

type StockOperation string

const (
	StockSet       StockOperation = "set"
	StockIncrement StockOperation = "increment"
	StockDecrement StockOperation = "decrement"
)

type StockAdjustment struct {
	Operation StockOperation `json:"operation"`
	Quantity  int            `json:"quantity"`
}

// AdjustStock sets, increments or decrements the stock of a product.
// Decrementing below zero fails with domain.ErrInsufficientStock.
func (s *ProductService) AdjustStock(_ context.Context, id string, adj StockAdjustment) (domain.Product, error) {
	if adj.Operation == "" {
		adj.Operation = StockSet
	}
	switch adj.Operation {
	case StockSet:
		if adj.Quantity < 0 {
			return domain.Product{}, domain.Invalid("stock cannot be negative")
		}
	case StockIncrement, StockDecrement:
		if adj.Quantity <= 0 {
			return domain.Product{}, domain.Invalid("quantity must be greater than 0")
		}
	default:
		return domain.Product{}, domain.Invalid("unknown stock operation %q", adj.Operation)
	}

	var updated domain.Product
	err := s.store.Atomically(func() error {
		var err error
		updated, err = s.store.Products.Update(id, func(p *domain.Product) error {
			switch adj.Operation {
			case StockSet:
				p.Stock = adj.Quantity
			case StockIncrement:
				p.Stock += adj.Quantity
			case StockDecrement:
				if p.Stock < adj.Quantity {
					return fmt.Errorf("product %s has %d in stock: %w", p.Name, p.Stock, domain.ErrInsufficientStock)
				}
				p.Stock -= adj.Quantity
			}
			return nil
		})
		return err
	})
	if err != nil {
		return domain.Product{}, notFound("product", id, err)
	}

	s.log.Info("product stock adjusted",
		zap.String("product_id", id),
		zap.String("operation", string(adj.Operation)),
		zap.Int("quantity", adj.Quantity),
		zap.Int("stock", updated.Stock))
	return updated, nil
}

func (s *ProductService) checkCategory(categoryID string) error {
	if categoryID == "" {
		return nil
	}
	if _, err := s.store.Categories.FindByID(categoryID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.Invalid("category %s does not exist", categoryID)
		}
		return err
	}
	return nil
}
