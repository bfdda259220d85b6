package model

import (
	"encoding/json"
	"time"
)

const (
	EventOrderCreated   = "order_created"
	EventOfferSent      = "offer_sent"
	EventOrderAccepted  = "order_accepted"
	EventTripStarted    = "trip_started"
	EventTripCompleted  = "trip_completed"
	EventOrderCancelled = "order_cancelled"
	EventDriverPosition = "driver_position"
	EventNoDriversFound = "no_drivers_found"
)

// TrackingEvent is one row of the per-order audit trail. Never mutated
// after creation.
type TrackingEvent struct {
	ID          string // uuid
	OrderID     string // uuid
	EventType   string
	Latitude    float64
	Longitude   float64
	HasPosition bool
	Metadata    json.RawMessage
	CreatedAt   time.Time
}
