package websocketdto

import "encoding/json"

// Event is the envelope for every websocket message, both directions.
type Event struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// Inbound from drivers.
const (
	InLocationUpdate = "location_update"
	InAcceptOrder    = "accept_order"
	InRejectOrder    = "reject_order"
	InStartTrip      = "start_trip"
	InCompleteTrip   = "complete_trip"
)

// Outbound to drivers.
const (
	OutStatusUpdate     = "status_update"
	OutOrderRequest     = "order_request"
	OutOrderCancelled   = "order_cancelled"
	OutAcceptanceFailed = "order_acceptance_failed"
	OutError            = "error"
)

// Outbound to customers.
const (
	OutOrderAccepted  = "order_accepted"
	OutTripStarted    = "trip_started"
	OutTripCompleted  = "trip_completed"
	OutDriverLocation = "driver_location"
	OutNoDriversFound = "no_drivers_found"
)

type LocationUpdate struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

type AcceptOrder struct {
	OrderID string `json:"order_id"`
}

type RejectOrder struct {
	OrderID string `json:"order_id"`
	Reason  string `json:"reason"`
}

type TripAction struct {
	OrderID string `json:"order_id"`
}

type StatusUpdate struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

type OrderRequest struct {
	OrderID       string  `json:"order_id"`
	OrderNumber   string  `json:"order_number"`
	PickupLat     float64 `json:"pickup_latitude"`
	PickupLng     float64 `json:"pickup_longitude"`
	PickupAddress string  `json:"pickup_address"`
	DestLat       float64 `json:"destination_latitude"`
	DestLng       float64 `json:"destination_longitude"`
	DestAddress   string  `json:"destination_address"`
	VehicleType   string  `json:"vehicle_type"`
	DistanceKm    float64 `json:"distance_km"`
	EstimatedFare float64 `json:"estimated_fare"`
	TimeoutSec    int     `json:"timeout_seconds"`
}

type OrderCancelled struct {
	OrderID string `json:"order_id"`
	Reason  string `json:"reason,omitempty"`
}

type AcceptanceFailed struct {
	OrderID string `json:"order_id"`
	Message string `json:"message"`
}

type OrderAccepted struct {
	OrderID     string `json:"order_id"`
	OrderNumber string `json:"order_number"`
	DriverInfo  any    `json:"driver_info"`
}

type TripStatus struct {
	OrderID string `json:"order_id"`
	Status  string `json:"status"`
}

type DriverLocation struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Timestamp string  `json:"timestamp"`
}

type NoDriversFound struct {
	OrderID      string  `json:"order_id"`
	RadiusUsedKm float64 `json:"radius_used_km"`
}

type ErrorMessage struct {
	Message string `json:"message"`
}

// Marshal wraps payload into an Event, panicking only on marshal failures
// of our own types, which cannot happen with valid structs.
func Marshal(eventType string, payload any) Event {
	data, err := json.Marshal(payload)
	if err != nil {
		return Event{Type: eventType}
	}
	return Event{Type: eventType, Data: data}
}
