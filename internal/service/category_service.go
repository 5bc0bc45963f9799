package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/fjod/go_cart/shop-api/internal/domain"
	"github.com/fjod/go_cart/shop-api/internal/store"
	"go.uber.org/zap"
)

type CategoryService struct {
	store    *store.Store
	products *ProductService
	log      *zap.Logger
}

func NewCategoryService(s *store.Store, products *ProductService, log *zap.Logger) *CategoryService {
	return &CategoryService{store: s, products: products, log: log}
}

type CategoryInput struct {
	Name        string  `json:"name"`
	Slug        string  `json:"slug"`
	Description string  `json:"description"`
	ParentID    *string `json:"parentId"`
}

// CategoryUpdate is a partial update. An empty ParentID moves the category to the root.
type CategoryUpdate struct {
	Name        *string `json:"name"`
	Slug        *string `json:"slug"`
	Description *string `json:"description"`
	ParentID    *string `json:"parentId"`
}

// CategoryView is a category with the number of products directly in it.
type CategoryView struct {
	domain.Category
	ProductCount int `json:"productCount"`
}

func (s *CategoryService) List(_ context.Context) []CategoryView {
	categories := s.store.Categories.FindAll()
	views := make([]CategoryView, len(categories))
	for i, c := range categories {
		views[i] = s.view(c)
	}
	return views
}

func (s *CategoryService) Get(_ context.Context, id string) (CategoryView, error) {
	c, err := s.store.Categories.FindByID(id)
	if err != nil {
		return CategoryView{}, notFound("category", id, err)
	}
	return s.view(c), nil
}

// Tree returns the root categories with their descendants nested. Categories
// whose parent no longer exists are treated as roots.
func (s *CategoryService) Tree(_ context.Context) []*domain.CategoryNode {
	categories := s.store.Categories.FindAll()

	nodes := make(map[string]*domain.CategoryNode, len(categories))
	for _, c := range categories {
		nodes[c.ID] = &domain.CategoryNode{Category: c, Children: []*domain.CategoryNode{}}
	}

	roots := make([]*domain.CategoryNode, 0)
	for _, c := range categories {
		node := nodes[c.ID]
		if c.ParentID != nil {
			if parent, ok := nodes[*c.ParentID]; ok {
				parent.Children = append(parent.Children, node)
				continue
			}
		}
		roots = append(roots, node)
	}
	return roots
}

func (s *CategoryService) Products(ctx context.Context, id string, page PageRequest) ([]domain.Product, Pagination, error) {
	return s.products.ByCategory(ctx, id, page)
}

func (s *CategoryService) Create(_ context.Context, in CategoryInput) (domain.Category, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return domain.Category{}, domain.Invalid("name is required")
	}
	slug := Slugify(in.Slug)
	if slug == "" {
		slug = Slugify(name)
	}

	var created domain.Category
	err := s.store.Atomically(func() error {
		parentID, err := s.parent(in.ParentID)
		if err != nil {
			return err
		}
		created, err = s.store.Categories.Insert(domain.Category{
			Name:        name,
			Slug:        slug,
			Description: in.Description,
			ParentID:    parentID,
		})
		return err
	})
	if errors.Is(err, store.ErrDuplicate) {
		return domain.Category{}, domain.Conflict("category slug %q already exists", slug)
	}
	if err != nil {
		return domain.Category{}, fmt.Errorf("create category: %w", err)
	}
	return created, nil
}

func (s *CategoryService) Update(_ context.Context, id string, upd CategoryUpdate) (domain.Category, error) {
	var updated domain.Category
	err := s.store.Atomically(func() error {
		var parentID *string
		if upd.ParentID != nil {
			var err error
			if parentID, err = s.parent(upd.ParentID); err != nil {
				return err
			}
			if parentID != nil && s.isDescendant(*parentID, id) {
				return domain.Invalid("category cannot be moved under itself or one of its subcategories")
			}
		}

		var err error
		updated, err = s.store.Categories.Update(id, func(c *domain.Category) error {
			if upd.Name != nil {
				name := strings.TrimSpace(*upd.Name)
				if name == "" {
					return domain.Invalid("name cannot be empty")
				}
				c.Name = name
			}
			if upd.Slug != nil {
				slug := Slugify(*upd.Slug)
				if slug == "" {
					return domain.Invalid("slug cannot be empty")
				}
				c.Slug = slug
			}
			if upd.Description != nil {
				c.Description = *upd.Description
			}
			if upd.ParentID != nil {
				c.ParentID = parentID
			}
			return nil
		})
		return err
	})
	if errors.Is(err, store.ErrDuplicate) {
		return domain.Category{}, domain.Conflict("category slug already exists")
	}
	if err != nil {
		return domain.Category{}, notFound("category", id, err)
	}
	return updated, nil
}

// Delete removes a category that has neither subcategories nor products.
func (s *CategoryService) Delete(_ context.Context, id string) (domain.Category, error) {
	var removed domain.Category
	err := s.store.Atomically(func() error {
		if _, err := s.store.Categories.FindByID(id); err != nil {
			return err
		}
		children := s.store.Categories.Count(func(c domain.Category) bool {
			return c.ParentID != nil && *c.ParentID == id
		})
		products := s.store.Products.Count(func(p domain.Product) bool { return p.CategoryID == id })
		if children > 0 || products > 0 {
			return fmt.Errorf("%d subcategories, %d products: %w", children, products, domain.ErrCategoryInUse)
		}
		var err error
		removed, err = s.store.Categories.Delete(id)
		return err
	})
	if err != nil {
		return domain.Category{}, notFound("category", id, err)
	}

	s.log.Info("category deleted", zap.String("category_id", id))
	return removed, nil
}

func (s *CategoryService) view(c domain.Category) CategoryView {
	return CategoryView{
		Category:     c,
		ProductCount: s.store.Products.Count(func(p domain.Product) bool { return p.CategoryID == c.ID }),
	}
}

// parent resolves a requested parent id; empty means no parent.
func (s *CategoryService) parent(id *string) (*string, error) {
	if id == nil || *id == "" {
		return nil, nil
	}
	if _, err := s.store.Categories.FindByID(*id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, domain.Invalid("parent category %s does not exist", *id)
		}
		return nil, err
	}
	parentID := *id
	return &parentID, nil
}

// isDescendant reports whether candidate is ancestor itself or lies below it.
func (s *CategoryService) isDescendant(candidate, ancestor string) bool {
	seen := make(map[string]bool)
	for id := candidate; id != "" && !seen[id]; {
		if id == ancestor {
			return true
		}
		seen[id] = true
		c, err := s.store.Categories.FindByID(id)
		if err != nil || c.ParentID == nil {
			return false
		}
		id = *c.ParentID
	}
	return false
}

// Slugify lowercases s and joins its alphanumeric runs with dashes.
func Slugify(s string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if dash && b.Len() > 0 {
				b.WriteByte('-')
			}
			b.WriteRune(r)
			dash = false
			continue
		}
		dash = true
	}
	return b.String()
}
