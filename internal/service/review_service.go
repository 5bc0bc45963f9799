package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"slices"

	"github.com/fjod/go_cart/shop-api/internal/domain"
	"github.com/fjod/go_cart/shop-api/internal/store"
	"go.uber.org/zap"
)

type ReviewService struct {
	store *store.Store
	log   *zap.Logger
}

func NewReviewService(s *store.Store, log *zap.Logger) *ReviewService {
	return &ReviewService{store: s, log: log}
}

type ReviewInput struct {
	UserID    string `json:"userId"`
	ProductID string `json:"productId"`
	Rating    int    `json:"rating"`
	Title     string `json:"title"`
	Comment   string `json:"comment"`
}

type ReviewUpdate struct {
	Rating  *int    `json:"rating"`
	Title   *string `json:"title"`
	Comment *string `json:"comment"`
}

type RatingSummary struct {
	Average      float64     `json:"average"`
	Count        int         `json:"count"`
	Distribution map[int]int `json:"distribution"`
}

type ProductReviews struct {
	Reviews    []domain.Review `json:"reviews"`
	Summary    RatingSummary   `json:"summary"`
	Pagination Pagination      `json:"-"`
}

func validateRating(r int) error {
	if r < domain.MinRating || r > domain.MaxRating {
		return domain.Invalid("rating must be between %d and %d", domain.MinRating, domain.MaxRating)
	}
	return nil
}

// Create stores a review and refreshes the product's rating. A user reviews a
// product at most once; the review is marked verified when the user has a
// delivered order containing the product.
func (s *ReviewService) Create(_ context.Context, in ReviewInput) (domain.Review, error) {
	if in.UserID == "" || in.ProductID == "" {
		return domain.Review{}, domain.Invalid("userId and productId are required")
	}
	if err := validateRating(in.Rating); err != nil {
		return domain.Review{}, err
	}

	var created domain.Review
	err := s.store.Atomically(func() error {
		if _, err := s.store.Users.FindByID(in.UserID); err != nil {
			return notFound("user", in.UserID, err)
		}
		if _, err := s.store.Products.FindByID(in.ProductID); err != nil {
			return notFound("product", in.ProductID, err)
		}

		var err error
		created, err = s.store.Reviews.Insert(domain.Review{
			UserID:    in.UserID,
			ProductID: in.ProductID,
			Rating:    in.Rating,
			Title:     in.Title,
			Comment:   in.Comment,
			Verified:  s.purchased(in.UserID, in.ProductID),
		})
		if errors.Is(err, store.ErrDuplicate) {
			return domain.ErrDuplicateReview
		}
		if err != nil {
			return err
		}
		return s.refreshProductRating(in.ProductID)
	})
	if err != nil {
		return domain.Review{}, err
	}

	s.log.Info("review created",
		zap.String("review_id", created.ID),
		zap.String("product_id", created.ProductID),
		zap.Int("rating", created.Rating))
	return created, nil
}

func (s *ReviewService) Get(_ context.Context, id string) (domain.Review, error) {
	r, err := s.store.Reviews.FindByID(id)
	if err != nil {
		return domain.Review{}, notFound("review", id, err)
	}
	return r, nil
}

// ForProduct lists the reviews of a product, newest first, with a rating summary.
func (s *ReviewService) ForProduct(_ context.Context, productID string, page PageRequest) (ProductReviews, error) {
	if _, err := s.store.Products.FindByID(productID); err != nil {
		return ProductReviews{}, notFound("product", productID, err)
	}

	reviews := s.store.Reviews.Find(func(r domain.Review) bool { return r.ProductID == productID })
	summary := summarize(reviews)
	slices.Reverse(reviews)

	items, p := Paginate(reviews, page)
	return ProductReviews{Reviews: items, Summary: summary, Pagination: p}, nil
}

func (s *ReviewService) Update(_ context.Context, id string, upd ReviewUpdate) (domain.Review, error) {
	if upd.Rating != nil {
		if err := validateRating(*upd.Rating); err != nil {
			return domain.Review{}, err
		}
	}

	var updated domain.Review
	err := s.store.Atomically(func() error {
		var err error
		updated, err = s.store.Reviews.Update(id, func(r *domain.Review) error {
			if upd.Rating != nil {
				r.Rating = *upd.Rating
			}
			if upd.Title != nil {
				r.Title = *upd.Title
			}
			if upd.Comment != nil {
				r.Comment = *upd.Comment
			}
			return nil
		})
		if err != nil {
			return notFound("review", id, err)
		}
		return s.refreshProductRating(updated.ProductID)
	})
	if err != nil {
		return domain.Review{}, err
	}
	return updated, nil
}

func (s *ReviewService) Delete(_ context.Context, id string) (domain.Review, error) {
	var removed domain.Review
	err := s.store.Atomically(func() error {
		var err error
		removed, err = s.store.Reviews.Delete(id)
		if err != nil {
			return notFound("review", id, err)
		}
		return s.refreshProductRating(removed.ProductID)
	})
	if err != nil {
		return domain.Review{}, err
	}
	return removed, nil
}

// MarkHelpful counts one helpful vote.
func (s *ReviewService) MarkHelpful(_ context.Context, id string) (domain.Review, error) {
	r, err := s.store.Reviews.Update(id, func(r *domain.Review) error {
		r.Helpful++
		return nil
	})
	if err != nil {
		return domain.Review{}, notFound("review", id, err)
	}
	return r, nil
}

// refreshProductRating recomputes rating and reviewCount. A product that was
// deleted in the meantime is skipped.
func (s *ReviewService) refreshProductRating(productID string) error {
	summary := summarize(s.store.Reviews.Find(func(r domain.Review) bool { return r.ProductID == productID }))
	_, err := s.store.Products.Update(productID, func(p *domain.Product) error {
		p.Rating = summary.Average
		p.ReviewCount = summary.Count
		return nil
	})
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("refresh rating of product %s: %w", productID, err)
	}
	return nil
}

func (s *ReviewService) purchased(userID, productID string) bool {
	n := s.store.Orders.Count(func(o domain.Order) bool {
		if o.UserID != userID || o.Status != domain.OrderStatusDelivered {
			return false
		}
		return slices.ContainsFunc(o.Items, func(i domain.OrderItem) bool { return i.ProductID == productID })
	})
	return n > 0
}

func summarize(reviews []domain.Review) RatingSummary {
	summary := RatingSummary{Distribution: make(map[int]int, domain.MaxRating)}
	for r := domain.MinRating; r <= domain.MaxRating; r++ {
		summary.Distribution[r] = 0
	}
	sum := 0
	for _, r := range reviews {
		sum += r.Rating
		summary.Distribution[r.Rating]++
	}
	summary.Count = len(reviews)
	if summary.Count > 0 {
		summary.Average = math.Round(float64(sum)/float64(summary.Count)*10) / 10
	}
	return summary
}
