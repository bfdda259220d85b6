package model

import "time"

const (
	DriverOffline = "OFFLINE"
	DriverOnline  = "ONLINE"
	DriverBusy    = "BUSY"
)

// DriverStatus is the live availability record for one driver. Only the
// last known position is kept, there is no history here (OrderTracking is
// the append-only log during a trip).
type DriverStatus struct {
	DriverID    string // uuid
	Status      string
	Latitude    float64
	Longitude   float64
	HasPosition bool
	ChannelID   string // realtime connection id, empty when offline
	VehicleType string
	UpdatedAt   time.Time
	LastOnline  time.Time
}
