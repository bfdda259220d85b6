package db

import (
	"context"

	"vtc-platform/internal/dispatch-service/core/domain/model"
	"vtc-platform/internal/dispatch-service/core/ports"
)

type TrackingRepo struct {
	db *DB
}

func NewTrackingRepo(db *DB) ports.ITrackingRepo {
	return &TrackingRepo{db: db}
}

func (r *TrackingRepo) Append(ctx context.Context, e model.TrackingEvent) error {
	q := `INSERT INTO order_tracking(order_id, event_type, latitude, longitude, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`

	var lat, lng any
	if e.HasPosition {
		lat, lng = e.Latitude, e.Longitude
	}
	_, err := r.db.pool.Exec(ctx, q, e.OrderID, e.EventType, lat, lng, e.Metadata, e.CreatedAt)
	return err
}

func (r *TrackingRepo) ListByOrder(ctx context.Context, orderID string) ([]model.TrackingEvent, error) {
	q := `SELECT tracking_id, order_id, event_type,
		COALESCE(latitude, 0), COALESCE(longitude, 0), latitude IS NOT NULL,
		COALESCE(metadata, 'null'::jsonb), created_at
	FROM order_tracking WHERE order_id = $1 ORDER BY created_at`

	rows, err := r.db.pool.Query(ctx, q, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []model.TrackingEvent
	for rows.Next() {
		var e model.TrackingEvent
		if err := rows.Scan(&e.ID, &e.OrderID, &e.EventType,
			&e.Latitude, &e.Longitude, &e.HasPosition, &e.Metadata, &e.CreatedAt); err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}
