package db

import (
	"context"
	"time"

	"vtc-platform/internal/dispatch-service/core/domain/model"
	"vtc-platform/internal/dispatch-service/core/ports"
)

type PoolRepo struct {
	db *DB
}

func NewPoolRepo(db *DB) ports.IPoolRepo {
	return &PoolRepo{db: db}
}

func (r *PoolRepo) CreateEntry(ctx context.Context, e model.PoolEntry) (string, error) {
	q := `INSERT INTO driver_pool(order_id, driver_id, priority_rank, distance_km, request_status, requested_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING pool_id`

	row := r.db.pool.QueryRow(ctx, q,
		e.OrderID, e.DriverID, e.PriorityRank, e.DistanceKm, e.RequestStatus, e.RequestedAt)

	poolID := ""
	if err := row.Scan(&poolID); err != nil {
		return "", err
	}
	return poolID, nil
}

// Resolve only moves PENDING entries, same conditional-update discipline
// as order acceptance.
func (r *PoolRepo) Resolve(ctx context.Context, orderID, driverID, status, reason string, at time.Time) (bool, error) {
	q := `UPDATE driver_pool
		SET request_status = $1,
			reject_reason = NULLIF($2, ''),
			responded_at = $3,
			response_time_ms = EXTRACT(EPOCH FROM ($3 - requested_at)) * 1000
		WHERE order_id = $4 AND driver_id = $5 AND request_status = $6`

	tag, err := r.db.pool.Exec(ctx, q, status, reason, at, orderID, driverID, model.PoolPending)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() >= 1, nil
}

func (r *PoolRepo) HasPending(ctx context.Context, orderID, driverID string) (bool, error) {
	q := `SELECT COUNT(*) FROM driver_pool
		WHERE order_id = $1 AND driver_id = $2 AND request_status = $3`

	count := 0
	row := r.db.pool.QueryRow(ctx, q, orderID, driverID, model.PoolPending)
	if err := row.Scan(&count); err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *PoolRepo) CancelPending(ctx context.Context, orderID, excludeDriverID, status string, at time.Time) ([]string, error) {
	q := `UPDATE driver_pool
		SET request_status = $1, responded_at = $2
		WHERE order_id = $3 AND request_status = $4 AND ($5 = '' OR driver_id::text <> $5)
		RETURNING driver_id`

	rows, err := r.db.pool.Query(ctx, q, status, at, orderID, model.PoolPending, excludeDriverID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var drivers []string
	for rows.Next() {
		id := ""
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		drivers = append(drivers, id)
	}
	return drivers, rows.Err()
}

func (r *PoolRepo) CancelPendingForDriver(ctx context.Context, driverID string, at time.Time) ([]string, error) {
	q := `UPDATE driver_pool
		SET request_status = $1, responded_at = $2
		WHERE driver_id = $3 AND request_status = $4
		RETURNING order_id`

	rows, err := r.db.pool.Query(ctx, q, model.PoolCancelled, at, driverID, model.PoolPending)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orders []string
	for rows.Next() {
		id := ""
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		orders = append(orders, id)
	}
	return orders, rows.Err()
}

func (r *PoolRepo) EntriesByOrder(ctx context.Context, orderID string) ([]model.PoolEntry, error) {
	q := `SELECT pool_id, order_id, driver_id, priority_rank, distance_km, request_status,
		requested_at, COALESCE(responded_at, requested_at), COALESCE(reject_reason, '')
	FROM driver_pool WHERE order_id = $1 ORDER BY priority_rank`

	rows, err := r.db.pool.Query(ctx, q, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []model.PoolEntry
	for rows.Next() {
		var e model.PoolEntry
		if err := rows.Scan(&e.ID, &e.OrderID, &e.DriverID, &e.PriorityRank, &e.DistanceKm,
			&e.RequestStatus, &e.RequestedAt, &e.RespondedAt, &e.RejectReason); err != nil {
			return nil, err
		}
		e.ResponseTime = e.RespondedAt.Sub(e.RequestedAt)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
