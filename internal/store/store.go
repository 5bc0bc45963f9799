package store

import (
	"errors"
	"strings"
	"sync"

	"github.com/fjod/go_cart/shop-api/internal/domain"
)

// Common errors returned by the store
var (
	ErrNotFound  = errors.New("record not found")
	ErrDuplicate = errors.New("duplicate record")
)

// Unique index names.
const (
	IndexUserEmail         = "email"
	IndexCartUser          = "user"
	IndexReviewUserProduct = "user_product"
	IndexShipmentOrder     = "order"
	IndexShipmentTracking  = "tracking_number"
	IndexCategorySlug      = "slug"
)

// Store owns every collection of the application. State lives in process
// memory only and is lost on restart.
type Store struct {
	workflow sync.Mutex

	Products   *Collection[domain.Product, *domain.Product]
	Users      *Collection[domain.User, *domain.User]
	Orders     *Collection[domain.Order, *domain.Order]
	Carts      *Collection[domain.Cart, *domain.Cart]
	Categories *Collection[domain.Category, *domain.Category]
	Reviews    *Collection[domain.Review, *domain.Review]
	Payments   *Collection[domain.Payment, *domain.Payment]
	Shipments  *Collection[domain.Shipment, *domain.Shipment]
	Events     *Collection[domain.OutboxEvent, *domain.OutboxEvent]
}

// New creates an empty store with its unique indexes.
func New() *Store {
	return &Store{
		Products: NewCollection[domain.Product]("products"),
		Users: NewCollection[domain.User]("users").
			WithUnique(IndexUserEmail, func(u domain.User) string { return NormalizeEmail(u.Email) }),
		Orders: NewCollection[domain.Order]("orders"),
		Carts: NewCollection[domain.Cart]("carts").
			WithUnique(IndexCartUser, func(c domain.Cart) string { return c.UserID }),
		Categories: NewCollection[domain.Category]("categories").
			WithUnique(IndexCategorySlug, func(c domain.Category) string { return c.Slug }),
		Reviews: NewCollection[domain.Review]("reviews").
			WithUnique(IndexReviewUserProduct, func(r domain.Review) string { return ReviewKey(r.UserID, r.ProductID) }),
		Payments: NewCollection[domain.Payment]("payments"),
		Shipments: NewCollection[domain.Shipment]("shipments").
			WithUnique(IndexShipmentOrder, func(s domain.Shipment) string { return s.OrderID }).
			WithUnique(IndexShipmentTracking, func(s domain.Shipment) string { return s.TrackingNumber }),
		Events: NewCollection[domain.OutboxEvent]("events"),
	}
}

// Atomically runs fn while holding the workflow lock. Multi-step workflows
// that read a record and write based on what they read (stock checks,
// status transitions) must run inside it. fn must not call Atomically.
func (s *Store) Atomically(fn func() error) error {
	s.workflow.Lock()
	defer s.workflow.Unlock()
	return fn()
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func ReviewKey(userID, productID string) string {
	if userID == "" || productID == "" {
		return ""
	}
	return userID + "/" + productID
}
