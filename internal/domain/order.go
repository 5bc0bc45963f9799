package domain

import (
	"slices"
	"time"
)

type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusConfirmed  OrderStatus = "confirmed"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusShipped    OrderStatus = "shipped"
	OrderStatusDelivered  OrderStatus = "delivered"
	OrderStatusCancelled  OrderStatus = "cancelled"
)

// AllOrderStatuses lists every status in lifecycle order.
var AllOrderStatuses = []OrderStatus{
	OrderStatusPending,
	OrderStatusConfirmed,
	OrderStatusProcessing,
	OrderStatusShipped,
	OrderStatusDelivered,
	OrderStatusCancelled,
}

var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusPending:    {OrderStatusConfirmed, OrderStatusCancelled},
	OrderStatusConfirmed:  {OrderStatusProcessing, OrderStatusCancelled},
	OrderStatusProcessing: {OrderStatusShipped, OrderStatusCancelled},
	OrderStatusShipped:    {OrderStatusDelivered},
	OrderStatusDelivered:  {},
	OrderStatusCancelled:  {},
}

// CanTransitionTo reports whether the lifecycle allows moving from one status to another.
func CanTransitionTo(from, to OrderStatus) bool {
	return slices.Contains(orderTransitions[from], to)
}

// AllowedTransitions returns the statuses reachable from s.
func AllowedTransitions(s OrderStatus) []OrderStatus {
	return slices.Clone(orderTransitions[s])
}

func (s OrderStatus) Valid() bool {
	_, ok := orderTransitions[s]
	return ok
}

func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusDelivered || s == OrderStatusCancelled
}

// Cancellable statuses are the ones that have not left the warehouse yet.
func (s OrderStatus) Cancellable() bool {
	return s == OrderStatusPending || s == OrderStatusConfirmed || s == OrderStatusProcessing
}

func (s OrderStatus) Modifiable() bool {
	return s == OrderStatusPending || s == OrderStatusConfirmed
}

func (s OrderStatus) String() string {
	return string(s)
}

type PaymentState string

const (
	PaymentStatePending  PaymentState = "pending"
	PaymentStatePaid     PaymentState = "paid"
	PaymentStateRefunded PaymentState = "refunded"
)

type ShippingState string

const (
	ShippingStateNotShipped ShippingState = "not_shipped"
	ShippingStateShipped    ShippingState = "shipped"
	ShippingStateDelivered  ShippingState = "delivered"
)

type OrderItem struct {
	ProductID       string   `json:"productId"`
	Name            string   `json:"name"`
	Price           float64  `json:"price"`
	Quantity        int      `json:"quantity"`
	DiscountPercent float64  `json:"discount,omitempty"`
	Weight          *float64 `json:"weight,omitempty"`
}

type StatusChange struct {
	Status    OrderStatus `json:"status"`
	Note      string      `json:"note,omitempty"`
	ChangedAt time.Time   `json:"changedAt"`
}

// OrderTotals is the priced summary stored with an order.
type OrderTotals struct {
	Subtotal          float64 `json:"subtotal"`
	Tax               float64 `json:"tax"`
	Shipping          float64 `json:"shipping"`
	Total             float64 `json:"total"`
	FormattedSubtotal string  `json:"formattedSubtotal"`
	FormattedTax      string  `json:"formattedTax"`
	FormattedShipping string  `json:"formattedShipping"`
	FormattedTotal    string  `json:"formattedTotal"`
}

type Order struct {
	Base
	UserID          string         `json:"userId"`
	Items           []OrderItem    `json:"items"`
	ShippingAddress Address        `json:"shippingAddress"`
	Status          OrderStatus    `json:"status"`
	PaymentStatus   PaymentState   `json:"paymentStatus"`
	ShippingStatus  ShippingState  `json:"shippingStatus"`
	TrackingNumber  string         `json:"trackingNumber,omitempty"`
	Totals          OrderTotals    `json:"totals"`
	StatusHistory   []StatusChange `json:"statusHistory"`
	Notes           string         `json:"notes,omitempty"`
	CancelReason    string         `json:"cancelReason,omitempty"`
}

func (o Order) Clone() Order {
	o.Items = slices.Clone(o.Items)
	o.StatusHistory = slices.Clone(o.StatusHistory)
	return o
}

// SetStatus moves the order to status and records the change.
func (o *Order) SetStatus(status OrderStatus, note string, at time.Time) {
	o.Status = status
	o.StatusHistory = append(o.StatusHistory, StatusChange{Status: status, Note: note, ChangedAt: at})
	switch status {
	case OrderStatusShipped:
		o.ShippingStatus = ShippingStateShipped
	case OrderStatusDelivered:
		o.ShippingStatus = ShippingStateDelivered
	}
}
