package model

import "time"

const (
	OrderPending    = "PENDING"
	OrderAccepted   = "ACCEPTED"
	OrderInProgress = "IN_PROGRESS"
	OrderCompleted  = "COMPLETED"
	OrderCancelled  = "CANCELLED"
)

// orderTransitions is the only source of truth for the order lifecycle.
// PENDING -> {ACCEPTED, CANCELLED}
// ACCEPTED -> {IN_PROGRESS, CANCELLED}
// IN_PROGRESS -> {COMPLETED}
var orderTransitions = map[string][]string{
	OrderPending:    {OrderAccepted, OrderCancelled},
	OrderAccepted:   {OrderInProgress, OrderCancelled},
	OrderInProgress: {OrderCompleted},
	OrderCompleted:  {},
	OrderCancelled:  {},
}

// CanTransition reports whether status may move from current to next.
func CanTransition(current, next string) bool {
	for _, allowed := range orderTransitions[current] {
		if allowed == next {
			return true
		}
	}
	return false
}

// OrderStatuses lists every known lifecycle status.
func OrderStatuses() []string {
	return []string{OrderPending, OrderAccepted, OrderInProgress, OrderCompleted, OrderCancelled}
}

type Order struct {
	ID          string // uuid
	OrderNumber string
	CustomerID  string // uuid
	DriverID    string // uuid, empty until accepted
	VehicleType string
	City        string
	VipZone     string // empty when the pickup is outside any VIP zone
	Status      string

	PickupLatitude       float64
	PickupLongitude      float64
	PickupAddress        string
	DestinationLatitude  float64
	DestinationLongitude float64
	DestinationAddress   string
	DistanceKm           float64

	Price   PriceBreakdown
	IsNight bool

	CreatedAt   time.Time
	AcceptedAt  time.Time
	StartedAt   time.Time
	CompletedAt time.Time
	CancelledAt time.Time

	CancellationReason string
	Notes              string
}

// PriceBreakdown keeps every fare component so the total can always be
// recomputed and audited.
type PriceBreakdown struct {
	BasePrice              float64 `json:"base_price"`
	DistancePrice          float64 `json:"distance_price"`
	VehicleAdditionalPrice float64 `json:"vehicle_additional_price"`
	CityPrice              float64 `json:"city_price"`
	VipZonePrice           float64 `json:"vip_zone_price"`
	Total                  float64 `json:"total"`
}
