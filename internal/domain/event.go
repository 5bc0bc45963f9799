package domain

import (
	"encoding/json"
	"slices"
	"time"
)

const (
	EventOrderCreated       = "order.created"
	EventOrderStatusChanged = "order.status_changed"
	EventOrderCancelled     = "order.cancelled"
	EventPaymentCompleted   = "payment.completed"
	EventPaymentRefunded    = "payment.refunded"
	EventShipmentCreated    = "shipment.created"
	EventShipmentUpdated    = "shipment.updated"
)

// OutboxEvent is a domain event waiting to be published.
type OutboxEvent struct {
	Base
	AggregateID string          `json:"aggregateId"`
	EventType   string          `json:"eventType"`
	Payload     json.RawMessage `json:"payload"`
	Processed   bool            `json:"processed"`
	ProcessedAt *time.Time      `json:"processedAt,omitempty"`
}

func (e OutboxEvent) Clone() OutboxEvent {
	e.Payload = slices.Clone(e.Payload)
	return e
}
