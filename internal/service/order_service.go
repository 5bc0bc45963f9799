package service

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/fjod/go_cart/shop-api/internal/domain"
	"github.com/fjod/go_cart/shop-api/internal/pricing"
	"github.com/fjod/go_cart/shop-api/internal/store"
	"go.uber.org/zap"
)

type OrderService struct {
	store *store.Store
	log   *zap.Logger
	now   func() time.Time
}

func NewOrderService(s *store.Store, log *zap.Logger) *OrderService {
	return &OrderService{store: s, log: log, now: time.Now}
}

type OrderItemInput struct {
	ProductID string  `json:"productId"`
	Quantity  int     `json:"quantity"`
	Discount  float64 `json:"discount"`
}

type CreateOrderInput struct {
	UserID          string           `json:"userId"`
	Items           []OrderItemInput `json:"items"`
	ShippingAddress domain.Address   `json:"shippingAddress"`
	Notes           string           `json:"notes"`
}

func (in CreateOrderInput) Validate() error {
	if in.UserID == "" {
		return domain.Invalid("userId is required")
	}
	if len(in.Items) == 0 {
		return domain.Invalid("order must contain at least one item")
	}
	for i, item := range in.Items {
		if item.ProductID == "" {
			return domain.Invalid("item %d: productId is required", i)
		}
		if item.Quantity < 1 {
			return domain.Invalid("item %d: quantity must be at least 1", i)
		}
		if item.Discount < 0 || item.Discount > 100 {
			return domain.Invalid("item %d: discount must be between 0 and 100", i)
		}
	}
	return in.ShippingAddress.Validate()
}

// OrderUpdate carries the fields that may change after creation. Items,
// status and identity are not part of it.
type OrderUpdate struct {
	ShippingAddress *domain.Address `json:"shippingAddress"`
	Notes           *string         `json:"notes"`
}

type OrderFilter struct {
	UserID string
	Status domain.OrderStatus
}

// Create validates stock for every item before touching anything, then
// reserves the stock and stores the order.
func (s *OrderService) Create(_ context.Context, in CreateOrderInput) (domain.Order, error) {
	if err := in.Validate(); err != nil {
		return domain.Order{}, err
	}

	var created domain.Order
	err := s.store.Atomically(func() error {
		var err error
		created, err = s.createLocked(in)
		return err
	})
	if err != nil {
		return domain.Order{}, err
	}

	s.log.Info("order created",
		zap.String("order_id", created.ID),
		zap.String("user_id", created.UserID),
		zap.Int("items", len(created.Items)),
		zap.Float64("total", created.Totals.Total))
	return created, nil
}

func (s *OrderService) createLocked(in CreateOrderInput) (domain.Order, error) {
	if _, err := s.store.Users.FindByID(in.UserID); err != nil {
		return domain.Order{}, notFound("user", in.UserID, err)
	}

	// first pass: resolve products and check aggregated quantities
	requested := make(map[string]int, len(in.Items))
	products := make(map[string]domain.Product, len(in.Items))
	for _, item := range in.Items {
		p, ok := products[item.ProductID]
		if !ok {
			var err error
			if p, err = s.store.Products.FindByID(item.ProductID); err != nil {
				return domain.Order{}, notFound("product", item.ProductID, err)
			}
			products[item.ProductID] = p
		}
		// compare against what is left so large quantities cannot wrap the sum
		if already := requested[item.ProductID]; item.Quantity > p.Stock-already {
			return domain.Order{}, fmt.Errorf("product %s has %d in stock, %d requested: %w",
				p.Name, p.Stock-already, item.Quantity, domain.ErrInsufficientStock)
		}
		requested[item.ProductID] += item.Quantity
	}

	items := make([]domain.OrderItem, len(in.Items))
	for i, item := range in.Items {
		p := products[item.ProductID]
		w := p.ItemWeight()
		items[i] = domain.OrderItem{
			ProductID:       p.ID,
			Name:            p.Name,
			Price:           p.Price,
			Quantity:        item.Quantity,
			DiscountPercent: item.Discount,
			Weight:          &w,
		}
	}

	// second pass: reserve
	reserved := make(map[string]int, len(requested))
	for id, qty := range requested {
		if err := s.decrementStock(id, qty); err != nil {
			s.restock(reserved)
			return domain.Order{}, err
		}
		reserved[id] = qty
	}

	now := s.now()
	order := domain.Order{
		UserID:          in.UserID,
		Items:           items,
		ShippingAddress: in.ShippingAddress,
		Status:          domain.OrderStatusPending,
		PaymentStatus:   domain.PaymentStatePending,
		ShippingStatus:  domain.ShippingStateNotShipped,
		Totals:          pricing.Calculate(pricing.OrderLines(items)).ToOrderTotals(),
		Notes:           strings.TrimSpace(in.Notes),
		StatusHistory: []domain.StatusChange{
			{Status: domain.OrderStatusPending, Note: "Order created", ChangedAt: now},
		},
	}
	created, err := s.store.Orders.Insert(order)
	if err != nil {
		s.restock(reserved)
		return domain.Order{}, fmt.Errorf("create order: %w", err)
	}

	err = recordEvent(s.store, domain.EventOrderCreated, created.ID, orderEvent{
		OrderID: created.ID,
		UserID:  created.UserID,
		Status:  created.Status,
		Total:   created.Totals.Total,
	})
	if err != nil {
		return domain.Order{}, err
	}
	return created, nil
}

func (s *OrderService) decrementStock(productID string, qty int) error {
	if qty < 1 {
		return domain.Invalid("stock decrement must be positive, got %d", qty)
	}
	_, err := s.store.Products.Update(productID, func(p *domain.Product) error {
		if p.Stock < qty {
			return fmt.Errorf("product %s: %w", p.Name, domain.ErrInsufficientStock)
		}
		p.Stock -= qty
		return nil
	})
	return err
}

// restock returns quantities to products. Products deleted since the
// reservation are skipped.
func (s *OrderService) restock(quantities map[string]int) {
	for id, qty := range quantities {
		if qty < 1 {
			s.log.Warn("skipping non-positive restock", zap.String("product_id", id), zap.Int("quantity", qty))
			continue
		}
		_, err := s.store.Products.Update(id, func(p *domain.Product) error {
			p.Stock += qty
			return nil
		})
		if err != nil {
			s.log.Warn("could not restock product", zap.String("product_id", id), zap.Int("quantity", qty), zap.Error(err))
		}
	}
}

func (s *OrderService) Get(_ context.Context, id string) (domain.Order, error) {
	o, err := s.store.Orders.FindByID(id)
	if err != nil {
		return domain.Order{}, notFound("order", id, err)
	}
	return o, nil
}

// List returns orders newest first.
func (s *OrderService) List(_ context.Context, filter OrderFilter, page PageRequest) ([]domain.Order, Pagination, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, Pagination{}, domain.Invalid("unknown order status %q", filter.Status)
	}
	orders := s.store.Orders.Find(func(o domain.Order) bool {
		if filter.UserID != "" && o.UserID != filter.UserID {
			return false
		}
		return filter.Status == "" || o.Status == filter.Status
	})
	slices.Reverse(orders)

	items, p := Paginate(orders, page)
	return items, p, nil
}

func (s *OrderService) Update(_ context.Context, id string, upd OrderUpdate) (domain.Order, error) {
	if upd.ShippingAddress != nil {
		if err := upd.ShippingAddress.Validate(); err != nil {
			return domain.Order{}, err
		}
	}

	var updated domain.Order
	err := s.store.Atomically(func() error {
		var err error
		updated, err = s.store.Orders.Update(id, func(o *domain.Order) error {
			if !o.Status.Modifiable() {
				return domain.ErrOrderNotModifiable
			}
			if upd.ShippingAddress != nil {
				o.ShippingAddress = *upd.ShippingAddress
			}
			if upd.Notes != nil {
				o.Notes = strings.TrimSpace(*upd.Notes)
			}
			return nil
		})
		return err
	})
	if err != nil {
		return domain.Order{}, notFound("order", id, err)
	}
	return updated, nil
}

// UpdateStatus moves the order along its lifecycle. Moving to cancelled is a
// cancellation and restocks the items.
func (s *OrderService) UpdateStatus(_ context.Context, id string, status domain.OrderStatus, note string) (domain.Order, error) {
	if !status.Valid() {
		return domain.Order{}, domain.Invalid("unknown order status %q", status)
	}

	var updated domain.Order
	err := s.store.Atomically(func() error {
		var err error
		if status == domain.OrderStatusCancelled {
			updated, err = s.cancelLocked(id, note)
			return err
		}
		updated, err = transitionOrder(s.store, id, status, note, s.now())
		return err
	})
	if err != nil {
		return domain.Order{}, err
	}

	s.log.Info("order status changed", zap.String("order_id", id), zap.String("status", status.String()))
	return updated, nil
}

// Cancel cancels an order that has not shipped yet and restores its stock.
func (s *OrderService) Cancel(_ context.Context, id, reason string) (domain.Order, error) {
	var cancelled domain.Order
	err := s.store.Atomically(func() error {
		var err error
		cancelled, err = s.cancelLocked(id, reason)
		return err
	})
	if err != nil {
		return domain.Order{}, err
	}

	s.log.Info("order cancelled", zap.String("order_id", id), zap.String("reason", reason))
	return cancelled, nil
}

func (s *OrderService) cancelLocked(id, reason string) (domain.Order, error) {
	reason = strings.TrimSpace(reason)
	var from domain.OrderStatus
	cancelled, err := s.store.Orders.Update(id, func(o *domain.Order) error {
		if !o.Status.Cancellable() {
			return fmt.Errorf("order is %s: %w", o.Status, domain.ErrOrderNotCancellable)
		}
		from = o.Status
		o.CancelReason = reason
		o.SetStatus(domain.OrderStatusCancelled, reason, s.now())
		return nil
	})
	if err != nil {
		return domain.Order{}, notFound("order", id, err)
	}

	quantities := make(map[string]int, len(cancelled.Items))
	for _, item := range cancelled.Items {
		quantities[item.ProductID] += item.Quantity
	}
	s.restock(quantities)

	err = recordEvent(s.store, domain.EventOrderCancelled, id, orderEvent{
		OrderID: id,
		UserID:  cancelled.UserID,
		Status:  cancelled.Status,
		From:    from,
		Reason:  reason,
	})
	if err != nil {
		return domain.Order{}, err
	}
	return cancelled, nil
}

// transitionOrder applies a non-cancelling status change. Callers hold the
// workflow lock.
func transitionOrder(s *store.Store, id string, to domain.OrderStatus, note string, now time.Time) (domain.Order, error) {
	var from domain.OrderStatus
	updated, err := s.Orders.Update(id, func(o *domain.Order) error {
		if !domain.CanTransitionTo(o.Status, to) {
			return fmt.Errorf("%w: %s -> %s", domain.ErrInvalidTransition, o.Status, to)
		}
		from = o.Status
		o.SetStatus(to, note, now)
		return nil
	})
	if err != nil {
		return domain.Order{}, notFound("order", id, err)
	}

	err = recordEvent(s, domain.EventOrderStatusChanged, id, orderEvent{
		OrderID: id,
		UserID:  updated.UserID,
		Status:  to,
		From:    from,
	})
	if err != nil {
		return domain.Order{}, err
	}
	return updated, nil
}

type TrackingView struct {
	OrderID        string                `json:"orderId"`
	Status         domain.OrderStatus    `json:"status"`
	ShippingStatus domain.ShippingState  `json:"shippingStatus"`
	TrackingNumber string                `json:"trackingNumber,omitempty"`
	StatusHistory  []domain.StatusChange `json:"statusHistory"`
	Shipment       *domain.Shipment      `json:"shipment,omitempty"`
}

func (s *OrderService) Tracking(_ context.Context, id string) (TrackingView, error) {
	o, err := s.store.Orders.FindByID(id)
	if err != nil {
		return TrackingView{}, notFound("order", id, err)
	}
	view := TrackingView{
		OrderID:        o.ID,
		Status:         o.Status,
		ShippingStatus: o.ShippingStatus,
		TrackingNumber: o.TrackingNumber,
		StatusHistory:  o.StatusHistory,
	}
	if sh, ok := s.store.Shipments.FindByUnique(store.IndexShipmentOrder, o.ID); ok {
		view.Shipment = &sh
	}
	return view, nil
}

type InvoiceLine struct {
	ProductID      string  `json:"productId"`
	Description    string  `json:"description"`
	Quantity       int     `json:"quantity"`
	UnitPrice      float64 `json:"unitPrice"`
	Discount       float64 `json:"discount"`
	LineTotal      float64 `json:"lineTotal"`
	FormattedTotal string  `json:"formattedTotal"`
}

type InvoiceCustomer struct {
	ID    string `json:"id"`
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
}

type Invoice struct {
	InvoiceNumber   string              `json:"invoiceNumber"`
	OrderID         string              `json:"orderId"`
	OrderDate       time.Time           `json:"orderDate"`
	IssuedAt        time.Time           `json:"issuedAt"`
	Customer        InvoiceCustomer     `json:"customer"`
	ShippingAddress domain.Address      `json:"shippingAddress"`
	Lines           []InvoiceLine       `json:"lines"`
	Totals          domain.OrderTotals  `json:"totals"`
	PaymentStatus   domain.PaymentState `json:"paymentStatus"`
	Status          domain.OrderStatus  `json:"status"`
}

func (s *OrderService) Invoice(_ context.Context, id string) (Invoice, error) {
	o, err := s.store.Orders.FindByID(id)
	if err != nil {
		return Invoice{}, notFound("order", id, err)
	}

	customer := InvoiceCustomer{ID: o.UserID}
	if u, err := s.store.Users.FindByID(o.UserID); err == nil {
		customer.Name = u.Name
		customer.Email = u.Email
	}

	lines := make([]InvoiceLine, len(o.Items))
	for i, item := range o.Items {
		line := pricing.LineItem{UnitPrice: item.Price, Quantity: item.Quantity, DiscountPercent: item.DiscountPercent}
		total := pricing.Round2(line.Total())
		lines[i] = InvoiceLine{
			ProductID:      item.ProductID,
			Description:    item.Name,
			Quantity:       item.Quantity,
			UnitPrice:      item.Price,
			Discount:       item.DiscountPercent,
			LineTotal:      total,
			FormattedTotal: pricing.FormatCurrency(total),
		}
	}

	return Invoice{
		InvoiceNumber:   invoiceNumber(o),
		OrderID:         o.ID,
		OrderDate:       o.CreatedAt,
		IssuedAt:        s.now(),
		Customer:        customer,
		ShippingAddress: o.ShippingAddress,
		Lines:           lines,
		Totals:          o.Totals,
		PaymentStatus:   o.PaymentStatus,
		Status:          o.Status,
	}, nil
}

// invoiceNumber is INV-<yyyymmdd>-<first 8 chars of the order id>.
func invoiceNumber(o domain.Order) string {
	short := o.ID
	if len(short) > 8 {
		short = short[:8]
	}
	return fmt.Sprintf("INV-%s-%s", o.CreatedAt.Format("20060102"), strings.ToUpper(short))
}
