package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/fjod/go_cart/shop-api/internal/cache"
	"github.com/fjod/go_cart/shop-api/internal/domain"
	"github.com/fjod/go_cart/shop-api/internal/pricing"
	"github.com/fjod/go_cart/shop-api/internal/store"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

type CartService struct {
	store  *store.Store
	orders *OrderService
	cache  cache.CartCache
	log    *zap.Logger
	sfg    singleflight.Group // Prevents cache stampede
	// mu orders cart writes against cache fills, so a fill never stores a
	// cart that a concurrent write has already replaced.
	mu  sync.Mutex
	now func() time.Time
}

func NewCartService(s *store.Store, orders *OrderService, c cache.CartCache, log *zap.Logger) *CartService {
	return &CartService{
		store:  s,
		orders: orders,
		cache:  c,
		log:    log,
		now:    time.Now,
	}
}

// CartView is a cart with its computed totals.
type CartView struct {
	domain.Cart
	ItemCount int                `json:"itemCount"`
	Totals    domain.OrderTotals `json:"totals"`
}

type CheckoutInput struct {
	ShippingAddress domain.Address `json:"shippingAddress"`
	Notes           string         `json:"notes"`
}

// GetCart returns the user's cart, creating an empty one on first access.
func (s *CartService) GetCart(ctx context.Context, userID string) (CartView, error) {
	if userID == "" {
		return CartView{}, domain.Invalid("userId is required")
	}

	// Use singleflight to prevent multiple concurrent cache misses for same key
	v, err, _ := s.sfg.Do(userID, func() (interface{}, error) {
		cart, err := s.cache.Get(ctx, userID)
		if err == nil {
			return cart, nil
		}
		if !errors.Is(err, cache.ErrCacheMiss) {
			s.log.Warn("cart cache get failed", zap.String("user_id", userID), zap.Error(err))
		}

		s.mu.Lock()
		defer s.mu.Unlock()

		loaded, err := s.loadOrCreate(userID)
		if err != nil {
			return nil, err
		}
		if err := s.cache.Set(ctx, userID, &loaded); err != nil {
			s.log.Warn("cart cache set failed", zap.String("user_id", userID), zap.Error(err))
		}
		return &loaded, nil
	})
	if err != nil {
		return CartView{}, err
	}
	return s.view(*v.(*domain.Cart)), nil
}

// AddItem adds qty units of a product, merging with an existing line.
func (s *CartService) AddItem(ctx context.Context, userID, productID string, qty int) (CartView, error) {
	if qty < 1 {
		return CartView{}, domain.Invalid("quantity must be at least 1")
	}
	return s.mutate(ctx, userID, func(c *domain.Cart) error {
		p, err := s.store.Products.FindByID(productID)
		if err != nil {
			return notFound("product", productID, err)
		}

		idx := c.ItemIndex(productID)
		existing := 0
		if idx >= 0 {
			existing = c.Items[idx].Quantity
		}
		if qty > p.Stock-existing {
			return fmt.Errorf("product %s has %d in stock, %d in cart, %d more requested: %w",
				p.Name, p.Stock, existing, qty, domain.ErrInsufficientStock)
		}
		total := existing + qty

		if idx >= 0 {
			c.Items[idx].Quantity = total
			c.Items[idx].Price = p.Price
			c.Items[idx].Name = p.Name
			return nil
		}
		c.Items = append(c.Items, domain.CartItem{
			ProductID: p.ID,
			Name:      p.Name,
			Price:     p.Price,
			Quantity:  qty,
			AddedAt:   s.now(),
		})
		return nil
	})
}

// UpdateItem sets the quantity of a line. A quantity of zero or less removes it.
func (s *CartService) UpdateItem(ctx context.Context, userID, productID string, qty int) (CartView, error) {
	if qty <= 0 {
		return s.RemoveItem(ctx, userID, productID)
	}
	return s.mutate(ctx, userID, func(c *domain.Cart) error {
		idx := c.ItemIndex(productID)
		if idx < 0 {
			return domain.NotFound("cart item", productID)
		}
		p, err := s.store.Products.FindByID(productID)
		if err != nil {
			return notFound("product", productID, err)
		}
		if qty > p.Stock {
			return fmt.Errorf("product %s has %d in stock, %d requested: %w",
				p.Name, p.Stock, qty, domain.ErrInsufficientStock)
		}
		c.Items[idx].Quantity = qty
		return nil
	})
}

func (s *CartService) RemoveItem(ctx context.Context, userID, productID string) (CartView, error) {
	return s.mutate(ctx, userID, func(c *domain.Cart) error {
		idx := c.ItemIndex(productID)
		if idx < 0 {
			return domain.NotFound("cart item", productID)
		}
		c.Items = append(c.Items[:idx], c.Items[idx+1:]...)
		return nil
	})
}

func (s *CartService) Clear(ctx context.Context, userID string) (CartView, error) {
	return s.mutate(ctx, userID, func(c *domain.Cart) error {
		c.Items = []domain.CartItem{}
		return nil
	})
}

// Drop removes the user's cart from the store and the cache.
func (s *CartService) Drop(_ context.Context, userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.store.Carts.DeleteWhere(func(c domain.Cart) bool { return c.UserID == userID })
	s.invalidate(userID)
}

// Checkout turns the cart into an order and empties the cart. Stock is
// checked here for a quick answer and again by the order workflow under
// the store lock.
func (s *CartService) Checkout(ctx context.Context, userID string, in CheckoutInput) (domain.Order, error) {
	if userID == "" {
		return domain.Order{}, domain.Invalid("userId is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cart, err := s.loadOrCreate(userID)
	if err != nil {
		return domain.Order{}, err
	}
	if len(cart.Items) == 0 {
		return domain.Order{}, domain.ErrEmptyCart
	}

	items := make([]OrderItemInput, len(cart.Items))
	for i, item := range cart.Items {
		p, err := s.store.Products.FindByID(item.ProductID)
		if err != nil {
			return domain.Order{}, notFound("product", item.ProductID, err)
		}
		if item.Quantity > p.Stock {
			return domain.Order{}, fmt.Errorf("product %s has %d in stock, %d in cart: %w",
				p.Name, p.Stock, item.Quantity, domain.ErrInsufficientStock)
		}
		items[i] = OrderItemInput{ProductID: item.ProductID, Quantity: item.Quantity}
	}

	order, err := s.orders.Create(ctx, CreateOrderInput{
		UserID:          userID,
		Items:           items,
		ShippingAddress: in.ShippingAddress,
		Notes:           in.Notes,
	})
	if err != nil {
		return domain.Order{}, err
	}

	_, err = s.store.Carts.Update(cart.ID, func(c *domain.Cart) error {
		c.Items = []domain.CartItem{}
		return nil
	})
	if err != nil {
		s.log.Error("failed to clear cart after checkout", zap.String("user_id", userID), zap.Error(err))
	}
	s.invalidate(userID)

	s.log.Info("cart checked out", zap.String("user_id", userID), zap.String("order_id", order.ID))
	return order, nil
}

func (s *CartService) mutate(ctx context.Context, userID string, fn func(*domain.Cart) error) (CartView, error) {
	if userID == "" {
		return CartView{}, domain.Invalid("userId is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cart, err := s.loadOrCreate(userID)
	if err != nil {
		return CartView{}, err
	}
	updated, err := s.store.Carts.Update(cart.ID, fn)
	if err != nil {
		return CartView{}, err
	}
	s.invalidate(userID)
	return s.view(updated), nil
}

func (s *CartService) loadOrCreate(userID string) (domain.Cart, error) {
	if c, ok := s.store.Carts.FindByUnique(store.IndexCartUser, userID); ok {
		return c, nil
	}
	c, err := s.store.Carts.Insert(domain.Cart{UserID: userID, Items: []domain.CartItem{}})
	if err != nil {
		return domain.Cart{}, fmt.Errorf("create cart: %w", err)
	}
	return c, nil
}

func (s *CartService) invalidate(userID string) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := s.cache.Delete(ctx, userID); err != nil {
		s.log.Warn("cart cache invalidate failed", zap.String("user_id", userID), zap.Error(err))
	}
}

// view prices the cart using the current product weights.
func (s *CartService) view(c domain.Cart) CartView {
	lines := make([]pricing.LineItem, len(c.Items))
	for i, item := range c.Items {
		lines[i] = pricing.LineItem{UnitPrice: item.Price, Quantity: item.Quantity}
		if p, err := s.store.Products.FindByID(item.ProductID); err == nil {
			w := p.ItemWeight()
			lines[i].Weight = &w
		}
	}
	if c.Items == nil {
		c.Items = []domain.CartItem{}
	}
	return CartView{
		Cart:      c,
		ItemCount: c.ItemCount(),
		Totals:    pricing.Calculate(lines).ToOrderTotals(),
	}
}
