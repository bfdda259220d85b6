package db

import (
	"context"
	"errors"
	"time"

	"vtc-platform/internal/dispatch-service/core/domain/model"
	"vtc-platform/internal/dispatch-service/core/myerrors"
	"vtc-platform/internal/dispatch-service/core/ports"

	"github.com/jackc/pgx/v5"
)

type OrderRepo struct {
	db *DB
}

func NewOrderRepo(db *DB) ports.IOrderRepo {
	return &OrderRepo{db: db}
}

func (r *OrderRepo) CreateOrder(ctx context.Context, m model.Order) (string, error) {
	q := `INSERT INTO orders(
		order_number,
		customer_id,
		vehicle_type,
		city,
		vip_zone,
		status,
		pickup_latitude,
		pickup_longitude,
		pickup_address,
		destination_latitude,
		destination_longitude,
		destination_address,
		distance_km,
		base_price,
		distance_price,
		vehicle_additional_price,
		city_price,
		vip_zone_price,
		total_price,
		is_night,
		notes
	) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21)
	RETURNING order_id`

	row := r.db.pool.QueryRow(ctx, q,
		m.OrderNumber,
		m.CustomerID,
		m.VehicleType,
		m.City,
		m.VipZone,
		m.Status,
		m.PickupLatitude,
		m.PickupLongitude,
		m.PickupAddress,
		m.DestinationLatitude,
		m.DestinationLongitude,
		m.DestinationAddress,
		m.DistanceKm,
		m.Price.BasePrice,
		m.Price.DistancePrice,
		m.Price.VehicleAdditionalPrice,
		m.Price.CityPrice,
		m.Price.VipZonePrice,
		m.Price.Total,
		m.IsNight,
		m.Notes,
	)

	orderID := ""
	if err := row.Scan(&orderID); err != nil {
		return "", err
	}
	return orderID, nil
}

func (r *OrderRepo) GetOrder(ctx context.Context, orderID string) (model.Order, error) {
	q := `SELECT
		order_id, order_number, customer_id, COALESCE(driver_id::text, ''),
		vehicle_type, city, vip_zone, status,
		pickup_latitude, pickup_longitude, pickup_address,
		destination_latitude, destination_longitude, destination_address,
		distance_km,
		base_price, distance_price, vehicle_additional_price, city_price, vip_zone_price, total_price,
		is_night, created_at, cancellation_reason, notes
	FROM orders WHERE order_id = $1`

	var m model.Order
	row := r.db.pool.QueryRow(ctx, q, orderID)
	err := row.Scan(
		&m.ID, &m.OrderNumber, &m.CustomerID, &m.DriverID,
		&m.VehicleType, &m.City, &m.VipZone, &m.Status,
		&m.PickupLatitude, &m.PickupLongitude, &m.PickupAddress,
		&m.DestinationLatitude, &m.DestinationLongitude, &m.DestinationAddress,
		&m.DistanceKm,
		&m.Price.BasePrice, &m.Price.DistancePrice, &m.Price.VehicleAdditionalPrice,
		&m.Price.CityPrice, &m.Price.VipZonePrice, &m.Price.Total,
		&m.IsNight, &m.CreatedAt, &m.CancellationReason, &m.Notes,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Order{}, myerrors.ErrOrderNotFound
		}
		return model.Order{}, err
	}
	return m, nil
}

// TryAssignDriver is the acceptance CAS: the WHERE clause only matches a
// PENDING order, so exactly one concurrent accept can see RowsAffected()==1.
func (r *OrderRepo) TryAssignDriver(ctx context.Context, orderID, driverID string, at time.Time) (bool, error) {
	q := `UPDATE orders
		SET status = $1, driver_id = $2, accepted_at = $3
		WHERE order_id = $4 AND status = $5`

	tag, err := r.db.pool.Exec(ctx, q, model.OrderAccepted, driverID, at, orderID, model.OrderPending)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *OrderRepo) SetStatus(ctx context.Context, orderID, from, to string, at time.Time, reason string) (bool, error) {
	var q string
	switch to {
	case model.OrderInProgress:
		q = `UPDATE orders SET status = $1, started_at = $2, cancellation_reason = $3 WHERE order_id = $4 AND status = $5`
	case model.OrderCompleted:
		q = `UPDATE orders SET status = $1, completed_at = $2, cancellation_reason = $3 WHERE order_id = $4 AND status = $5`
	case model.OrderCancelled:
		q = `UPDATE orders SET status = $1, cancelled_at = $2, cancellation_reason = $3 WHERE order_id = $4 AND status = $5`
	default:
		q = `UPDATE orders SET status = $1, updated_at = $2, cancellation_reason = $3 WHERE order_id = $4 AND status = $5`
	}

	tag, err := r.db.pool.Exec(ctx, q, to, at, reason, orderID, from)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *OrderRepo) ActiveOrderByDriver(ctx context.Context, driverID string) (model.Order, error) {
	return r.activeOrder(ctx, "driver_id", driverID)
}

func (r *OrderRepo) ActiveOrderByCustomer(ctx context.Context, customerID string) (model.Order, error) {
	return r.activeOrder(ctx, "customer_id", customerID)
}

func (r *OrderRepo) activeOrder(ctx context.Context, column, id string) (model.Order, error) {
	q := `SELECT order_id FROM orders
		WHERE ` + column + ` = $1 AND status IN ($2, $3)
		ORDER BY created_at DESC LIMIT 1`

	orderID := ""
	row := r.db.pool.QueryRow(ctx, q, id, model.OrderAccepted, model.OrderInProgress)
	if err := row.Scan(&orderID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Order{}, myerrors.ErrOrderNotFound
		}
		return model.Order{}, err
	}
	return r.GetOrder(ctx, orderID)
}

func (r *OrderRepo) CountActiveOrders(ctx context.Context) (int, error) {
	q := `SELECT COUNT(*) FROM orders WHERE status IN ($1, $2, $3)`

	count := 0
	row := r.db.pool.QueryRow(ctx, q, model.OrderPending, model.OrderAccepted, model.OrderInProgress)
	if err := row.Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}
