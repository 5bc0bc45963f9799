package service

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/fjod/go_cart/shop-api/internal/domain"
	"github.com/fjod/go_cart/shop-api/internal/store"
)

// recordEvent appends an outbox event. It is called inside the workflow that
// produced the change so the event is stored together with it.
func recordEvent(s *store.Store, eventType, aggregateID string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s payload: %w", eventType, err)
	}
	_, err = s.Events.Insert(domain.OutboxEvent{
		AggregateID: aggregateID,
		EventType:   eventType,
		Payload:     data,
	})
	if err != nil {
		return fmt.Errorf("record %s event: %w", eventType, err)
	}
	return nil
}

// notFound turns a store miss into a domain not-found error naming the entity.
func notFound(entity, id string, err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return domain.NotFound(entity, id)
	}
	return err
}

type orderEvent struct {
	OrderID string             `json:"orderId"`
	UserID  string             `json:"userId"`
	Status  domain.OrderStatus `json:"status"`
	From    domain.OrderStatus `json:"from,omitempty"`
	Total   float64            `json:"total,omitempty"`
	Reason  string             `json:"reason,omitempty"`
}

type paymentEvent struct {
	PaymentID     string  `json:"paymentId"`
	OrderID       string  `json:"orderId"`
	Amount        float64 `json:"amount"`
	TransactionID string  `json:"transactionId,omitempty"`
}

type shipmentEvent struct {
	ShipmentID     string                `json:"shipmentId"`
	OrderID        string                `json:"orderId"`
	TrackingNumber string                `json:"trackingNumber"`
	Status         domain.ShipmentStatus `json:"status"`
}
