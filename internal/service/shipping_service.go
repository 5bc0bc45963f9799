package service

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/fjod/go_cart/shop-api/internal/domain"
	"github.com/fjod/go_cart/shop-api/internal/pricing"
	"github.com/fjod/go_cart/shop-api/internal/store"
	"go.uber.org/zap"
)

const (
	trackingDigits   = 12
	trackingAttempts = 5
)

type ShippingMethod struct {
	ID            string
	Name          string
	BaseCost      float64
	EstimatedDays int
}

var ShippingMethods = []ShippingMethod{
	{ID: "standard", Name: "Standard Shipping", BaseCost: 5.99, EstimatedDays: 5},
	{ID: "express", Name: "Express Shipping", BaseCost: 15.99, EstimatedDays: 2},
	{ID: "overnight", Name: "Overnight Shipping", BaseCost: 29.99, EstimatedDays: 1},
}

type RateQuote struct {
	Method            string    `json:"method"`
	Name              string    `json:"name"`
	Cost              float64   `json:"cost"`
	FormattedCost     string    `json:"formattedCost"`
	EstimatedDays     int       `json:"estimatedDays"`
	EstimatedDelivery time.Time `json:"estimatedDelivery"`
}

type ShippingService struct {
	store       *store.Store
	log         *zap.Logger
	now         func() time.Time
	newTracking func(domain.Carrier) string
}

func NewShippingService(s *store.Store, log *zap.Logger) *ShippingService {
	return &ShippingService{store: s, log: log, now: time.Now, newTracking: trackingNumber}
}

type CreateShipmentInput struct {
	OrderID string         `json:"orderId"`
	Carrier domain.Carrier `json:"carrier"`
}

type ShipmentStatusInput struct {
	Status      domain.ShipmentStatus `json:"status"`
	Description string                `json:"description"`
	Location    string                `json:"location"`
}

// trackingNumber is the carrier prefix followed by 12 random digits.
func trackingNumber(c domain.Carrier) string {
	var b strings.Builder
	b.WriteString(c.TrackingPrefix())
	for range trackingDigits {
		b.WriteByte(byte('0' + rand.IntN(10)))
	}
	return b.String()
}

// Rates quotes every shipping method for a parcel of the given weight.
func (s *ShippingService) Rates(_ context.Context, weight float64) ([]RateQuote, error) {
	if weight < 0 {
		return nil, domain.Invalid("weight cannot be negative")
	}
	now := s.now()
	quotes := make([]RateQuote, len(ShippingMethods))
	for i, m := range ShippingMethods {
		cost := pricing.Round2(m.BaseCost + weight*pricing.ShippingRatePerUnit)
		quotes[i] = RateQuote{
			Method:            m.ID,
			Name:              m.Name,
			Cost:              cost,
			FormattedCost:     pricing.FormatCurrency(cost),
			EstimatedDays:     m.EstimatedDays,
			EstimatedDelivery: now.AddDate(0, 0, m.EstimatedDays),
		}
	}
	return quotes, nil
}

// Create ships an order that is processing or already marked shipped. A
// processing order moves to shipped.
func (s *ShippingService) Create(_ context.Context, in CreateShipmentInput) (domain.Shipment, error) {
	if in.OrderID == "" {
		return domain.Shipment{}, domain.Invalid("orderId is required")
	}
	if in.Carrier == "" {
		in.Carrier = domain.CarrierUSPS
	}
	if !in.Carrier.Valid() {
		return domain.Shipment{}, domain.Invalid("unsupported carrier %q", in.Carrier)
	}

	var created domain.Shipment
	err := s.store.Atomically(func() error {
		order, err := s.store.Orders.FindByID(in.OrderID)
		if err != nil {
			return notFound("order", in.OrderID, err)
		}
		if order.Status != domain.OrderStatusProcessing && order.Status != domain.OrderStatusShipped {
			return domain.StateError("order is %s, only processing or shipped orders can be shipped", order.Status)
		}
		if _, exists := s.store.Shipments.FindByUnique(store.IndexShipmentOrder, order.ID); exists {
			return domain.ErrShipmentExists
		}

		now := s.now()
		shipment := domain.Shipment{
			OrderID:           order.ID,
			Carrier:           in.Carrier,
			Status:            domain.ShipmentStatusCreated,
			EstimatedDelivery: now.AddDate(0, 0, ShippingMethods[0].EstimatedDays),
			Events: []domain.TrackingEvent{{
				Status:      domain.ShipmentStatusCreated,
				Description: "Shipping label created",
				Timestamp:   now,
			}},
		}
		if created, err = s.insertWithTracking(shipment); err != nil {
			return err
		}

		if _, err = s.store.Orders.Update(order.ID, func(o *domain.Order) error {
			o.TrackingNumber = created.TrackingNumber
			return nil
		}); err != nil {
			return err
		}
		if order.Status == domain.OrderStatusProcessing {
			note := fmt.Sprintf("Shipped via %s, tracking %s", created.Carrier, created.TrackingNumber)
			if _, err = transitionOrder(s.store, order.ID, domain.OrderStatusShipped, note, now); err != nil {
				return err
			}
		}

		return recordEvent(s.store, domain.EventShipmentCreated, created.ID, shipmentEvent{
			ShipmentID:     created.ID,
			OrderID:        created.OrderID,
			TrackingNumber: created.TrackingNumber,
			Status:         created.Status,
		})
	})
	if err != nil {
		return domain.Shipment{}, err
	}

	s.log.Info("shipment created",
		zap.String("shipment_id", created.ID),
		zap.String("order_id", created.OrderID),
		zap.String("tracking_number", created.TrackingNumber))
	return created, nil
}

// insertWithTracking retries with a fresh tracking number when one collides.
func (s *ShippingService) insertWithTracking(shipment domain.Shipment) (domain.Shipment, error) {
	var err error
	for range trackingAttempts {
		shipment.TrackingNumber = s.newTracking(shipment.Carrier)
		if _, taken := s.store.Shipments.FindByUnique(store.IndexShipmentTracking, shipment.TrackingNumber); taken {
			continue
		}
		var created domain.Shipment
		created, err = s.store.Shipments.Insert(shipment)
		if err == nil {
			return created, nil
		}
		if !errors.Is(err, store.ErrDuplicate) {
			return domain.Shipment{}, err
		}
	}
	return domain.Shipment{}, fmt.Errorf("no unique tracking number after %d attempts", trackingAttempts)
}

func (s *ShippingService) Get(_ context.Context, id string) (domain.Shipment, error) {
	sh, err := s.store.Shipments.FindByID(id)
	if err != nil {
		return domain.Shipment{}, notFound("shipment", id, err)
	}
	return sh, nil
}

func (s *ShippingService) Track(_ context.Context, trackingNumber string) (domain.Shipment, error) {
	sh, ok := s.store.Shipments.FindByUnique(store.IndexShipmentTracking, strings.ToUpper(strings.TrimSpace(trackingNumber)))
	if !ok {
		return domain.Shipment{}, domain.NotFound("shipment with tracking number", trackingNumber)
	}
	return sh, nil
}

// UpdateStatus appends a tracking event. Delivery is final and marks the
// order delivered.
func (s *ShippingService) UpdateStatus(_ context.Context, id string, in ShipmentStatusInput) (domain.Shipment, error) {
	if !in.Status.Valid() {
		return domain.Shipment{}, domain.Invalid("unknown shipment status %q", in.Status)
	}

	var updated domain.Shipment
	err := s.store.Atomically(func() error {
		now := s.now()
		var err error
		updated, err = s.store.Shipments.Update(id, func(sh *domain.Shipment) error {
			if sh.Status == domain.ShipmentStatusDelivered {
				return domain.ErrShipmentDelivered
			}
			description := strings.TrimSpace(in.Description)
			if description == "" {
				description = "Status changed to " + string(in.Status)
			}
			sh.Status = in.Status
			sh.Events = append(sh.Events, domain.TrackingEvent{
				Status:      in.Status,
				Description: description,
				Location:    in.Location,
				Timestamp:   now,
			})
			return nil
		})
		if err != nil {
			return notFound("shipment", id, err)
		}

		if in.Status == domain.ShipmentStatusDelivered {
			if err := s.markOrderDelivered(updated.OrderID, now); err != nil {
				return err
			}
		}

		return recordEvent(s.store, domain.EventShipmentUpdated, updated.ID, shipmentEvent{
			ShipmentID:     updated.ID,
			OrderID:        updated.OrderID,
			TrackingNumber: updated.TrackingNumber,
			Status:         updated.Status,
		})
	})
	if err != nil {
		return domain.Shipment{}, err
	}

	s.log.Info("shipment status changed", zap.String("shipment_id", id), zap.String("status", string(in.Status)))
	return updated, nil
}

func (s *ShippingService) markOrderDelivered(orderID string, now time.Time) error {
	order, err := s.store.Orders.Update(orderID, func(o *domain.Order) error {
		o.ShippingStatus = domain.ShippingStateDelivered
		return nil
	})
	if errors.Is(err, store.ErrNotFound) {
		s.log.Warn("delivered shipment has no order", zap.String("order_id", orderID))
		return nil
	}
	if err != nil {
		return err
	}
	if order.Status == domain.OrderStatusShipped {
		_, err = transitionOrder(s.store, orderID, domain.OrderStatusDelivered, "Delivered by carrier", now)
	}
	return err
}
