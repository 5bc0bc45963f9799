package domain

import (
	"slices"
	"time"
)

type ShipmentStatus string

const (
	ShipmentStatusCreated        ShipmentStatus = "created"
	ShipmentStatusPickedUp       ShipmentStatus = "picked_up"
	ShipmentStatusInTransit      ShipmentStatus = "in_transit"
	ShipmentStatusOutForDelivery ShipmentStatus = "out_for_delivery"
	ShipmentStatusDelivered      ShipmentStatus = "delivered"
	ShipmentStatusException      ShipmentStatus = "exception"
)

func (s ShipmentStatus) Valid() bool {
	switch s {
	case ShipmentStatusCreated, ShipmentStatusPickedUp, ShipmentStatusInTransit,
		ShipmentStatusOutForDelivery, ShipmentStatusDelivered, ShipmentStatusException:
		return true
	}
	return false
}

type Carrier string

const (
	CarrierUSPS  Carrier = "usps"
	CarrierFedEx Carrier = "fedex"
	CarrierUPS   Carrier = "ups"
	CarrierDHL   Carrier = "dhl"
)

var carrierPrefixes = map[Carrier]string{
	CarrierUSPS:  "US",
	CarrierFedEx: "FX",
	CarrierUPS:   "1Z",
	CarrierDHL:   "DH",
}

func (c Carrier) Valid() bool {
	_, ok := carrierPrefixes[c]
	return ok
}

// TrackingPrefix is the leading part of tracking numbers issued for this carrier.
func (c Carrier) TrackingPrefix() string {
	return carrierPrefixes[c]
}

type TrackingEvent struct {
	Status      ShipmentStatus `json:"status"`
	Description string         `json:"description"`
	Location    string         `json:"location,omitempty"`
	Timestamp   time.Time      `json:"timestamp"`
}

type Shipment struct {
	Base
	OrderID           string          `json:"orderId"`
	Carrier           Carrier         `json:"carrier"`
	TrackingNumber    string          `json:"trackingNumber"`
	Status            ShipmentStatus  `json:"status"`
	EstimatedDelivery time.Time       `json:"estimatedDelivery"`
	Events            []TrackingEvent `json:"events"`
}

func (s Shipment) Clone() Shipment {
	s.Events = slices.Clone(s.Events)
	return s
}
