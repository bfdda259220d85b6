package ports

import (
	"context"
	"time"

	"vtc-platform/internal/dispatch-service/core/domain/model"
)

type IOrderRepo interface {
	CreateOrder(ctx context.Context, m model.Order) (string, error)
	GetOrder(ctx context.Context, orderID string) (model.Order, error)

	// TryAssignDriver flips the order PENDING -> ACCEPTED and sets the
	// driver in one conditional update. Returns false when the order was
	// no longer PENDING, which is how a lost acceptance race surfaces.
	TryAssignDriver(ctx context.Context, orderID, driverID string, at time.Time) (bool, error)

	// SetStatus moves the order from one status to another with the same
	// conditional-update discipline. Returns false when the current
	// status did not match.
	SetStatus(ctx context.Context, orderID, from, to string, at time.Time, reason string) (bool, error)

	ActiveOrderByDriver(ctx context.Context, driverID string) (model.Order, error)
	ActiveOrderByCustomer(ctx context.Context, customerID string) (model.Order, error)
	CountActiveOrders(ctx context.Context) (int, error)
}

type IDriverStatusRepo interface {
	// GetOrCreate returns the status row for the driver, creating a
	// default OFFLINE row when none exists.
	GetOrCreate(ctx context.Context, driverID string) (model.DriverStatus, error)
	SetStatus(ctx context.Context, driverID, status, channelID string, at time.Time) error
	UpdatePosition(ctx context.Context, driverID string, lat, lng float64, at time.Time) error
	OnlineCount(ctx context.Context) (int, error)
}

type IPoolRepo interface {
	CreateEntry(ctx context.Context, e model.PoolEntry) (string, error)

	// Resolve moves a PENDING entry to a terminal status. Returns false
	// when the entry was already terminal.
	Resolve(ctx context.Context, orderID, driverID, status, reason string, at time.Time) (bool, error)

	// HasPending reports whether the driver still holds a PENDING offer
	// for the order.
	HasPending(ctx context.Context, orderID, driverID string) (bool, error)

	// CancelPending marks every remaining PENDING entry of the order
	// with the given terminal status, skipping the excluded driver.
	// Returns the driver ids whose offers were cancelled.
	CancelPending(ctx context.Context, orderID, excludeDriverID, status string, at time.Time) ([]string, error)

	// CancelPendingForDriver terminates the driver's PENDING entries
	// across all orders (driver disconnected).
	CancelPendingForDriver(ctx context.Context, driverID string, at time.Time) ([]string, error)

	EntriesByOrder(ctx context.Context, orderID string) ([]model.PoolEntry, error)
}

type ITrackingRepo interface {
	Append(ctx context.Context, e model.TrackingEvent) error
	ListByOrder(ctx context.Context, orderID string) ([]model.TrackingEvent, error)
}

// DriverInfo is what the customer sees when a driver accepts.
type DriverInfo struct {
	DriverID    string  `json:"driver_id"`
	Name        string  `json:"name"`
	Phone       string  `json:"phone"`
	Rating      float64 `json:"rating"`
	VehicleType string  `json:"vehicle_type"`
	PlateNumber string  `json:"plate_number"`
}

type IDriverInfoRepo interface {
	GetDriverInfo(ctx context.Context, driverID string) (DriverInfo, error)
	Exists(ctx context.Context, driverID string) (bool, error)
}
