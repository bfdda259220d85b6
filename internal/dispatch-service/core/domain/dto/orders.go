package dto

// OrderRequestDto is the body of POST /api/orders. Pointers distinguish
// missing fields from zero values during validation.
type OrderRequestDto struct {
	CustomerId           *string  `json:"customer_id"`
	PickUpLatitude       *float64 `json:"pickup_latitude"`
	PickUpLongitude      *float64 `json:"pickup_longitude"`
	PickUpAddress        *string  `json:"pickup_address"`
	DestinationLatitude  *float64 `json:"destination_latitude"`
	DestinationLongitude *float64 `json:"destination_longitude"`
	DestinationAddress   *string  `json:"destination_address"`
	VehicleType          *string  `json:"vehicle_type"`
	City                 *string  `json:"city"`
	VipZone              *string  `json:"vip_zone,omitempty"`
	Notes                *string  `json:"notes,omitempty"`
}

type PriceBreakdownDto struct {
	BasePrice              float64 `json:"base_price"`
	DistancePrice          float64 `json:"distance_price"`
	VehicleAdditionalPrice float64 `json:"vehicle_additional_price"`
	CityPrice              float64 `json:"city_price"`
	VipZonePrice           float64 `json:"vip_zone_price"`
	Total                  float64 `json:"total"`
}

type OrderResponseDto struct {
	OrderId     string            `json:"order_id"`
	OrderNumber string            `json:"order_number"`
	Status      string            `json:"status"`
	DistanceKm  float64           `json:"distance_km"`
	IsNight     bool              `json:"is_night"`
	Price       PriceBreakdownDto `json:"price"`
}

type OrderCancelRequestDto struct {
	Reason string `json:"reason"`
}

type OrderCancelResponseDto struct {
	OrderId     string `json:"order_id"`
	Status      string `json:"status"`
	CancelledAt string `json:"cancelled_at"`
	Message     string `json:"message"`
}

type DriverStatusRequestDto struct {
	DriverId    *string  `json:"driver_id"`
	Latitude    *float64 `json:"latitude,omitempty"`
	Longitude   *float64 `json:"longitude,omitempty"`
	VehicleType *string  `json:"vehicle_type,omitempty"`
}

type DriverStatusResponseDto struct {
	DriverId string `json:"driver_id"`
	Status   string `json:"status"`
	Message  string `json:"message"`
}

type SystemOverviewDto struct {
	ActiveOrders  int `json:"active_orders"`
	OnlineDrivers int `json:"online_drivers"`
}

type ErrorResponseDto struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}
