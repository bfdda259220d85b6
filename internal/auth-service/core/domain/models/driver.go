package models

import (
	"encoding/json"
	"time"
)

// Driver is the driver profile row keyed by its own id, the user row carries
// the credentials.
type Driver struct {
	DriverId      string          `json:"driver_id"`
	UserId        string          `json:"user_id"`
	CreatedAt     time.Time       `json:"created_at"`
	LicenseNumber string          `json:"license_number"`
	VehicleType   string          `json:"vehicle_type"`
	PlateNumber   string          `json:"plate_number"`
	Rating        float64         `json:"rating"`
	VehicleAttrs  json.RawMessage `json:"vehicle_attrs,omitempty"`
}
