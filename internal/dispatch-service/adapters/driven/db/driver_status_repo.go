package db

import (
	"context"
	"errors"
	"time"

	"vtc-platform/internal/dispatch-service/core/domain/model"
	"vtc-platform/internal/dispatch-service/core/ports"

	"github.com/jackc/pgx/v5"
)

type DriverStatusRepo struct {
	db *DB
}

func NewDriverStatusRepo(db *DB) ports.IDriverStatusRepo {
	return &DriverStatusRepo{db: db}
}

func (r *DriverStatusRepo) GetOrCreate(ctx context.Context, driverID string) (model.DriverStatus, error) {
	q := `SELECT driver_id, status,
		COALESCE(latitude, 0), COALESCE(longitude, 0), latitude IS NOT NULL,
		COALESCE(channel_id, ''), COALESCE(vehicle_type, ''), updated_at
	FROM driver_status WHERE driver_id = $1`

	var m model.DriverStatus
	row := r.db.pool.QueryRow(ctx, q, driverID)
	err := row.Scan(&m.DriverID, &m.Status, &m.Latitude, &m.Longitude, &m.HasPosition,
		&m.ChannelID, &m.VehicleType, &m.UpdatedAt)
	if err == nil {
		return m, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return model.DriverStatus{}, err
	}

	ins := `INSERT INTO driver_status(driver_id, status, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (driver_id) DO NOTHING`
	now := time.Now()
	if _, err := r.db.pool.Exec(ctx, ins, driverID, model.DriverOffline, now); err != nil {
		return model.DriverStatus{}, err
	}
	return model.DriverStatus{DriverID: driverID, Status: model.DriverOffline, UpdatedAt: now}, nil
}

func (r *DriverStatusRepo) SetStatus(ctx context.Context, driverID, status, channelID string, at time.Time) error {
	q := `INSERT INTO driver_status(driver_id, status, channel_id, updated_at, last_online)
		VALUES ($1, $2, NULLIF($3, ''), $4, CASE WHEN $2 = 'ONLINE' THEN $4 ELSE NULL END)
		ON CONFLICT (driver_id) DO UPDATE SET
			status = EXCLUDED.status,
			channel_id = EXCLUDED.channel_id,
			updated_at = EXCLUDED.updated_at,
			last_online = COALESCE(EXCLUDED.last_online, driver_status.last_online)`

	_, err := r.db.pool.Exec(ctx, q, driverID, status, channelID, at)
	return err
}

func (r *DriverStatusRepo) UpdatePosition(ctx context.Context, driverID string, lat, lng float64, at time.Time) error {
	q := `UPDATE driver_status SET latitude = $1, longitude = $2, updated_at = $3 WHERE driver_id = $4`

	_, err := r.db.pool.Exec(ctx, q, lat, lng, at, driverID)
	return err
}

func (r *DriverStatusRepo) OnlineCount(ctx context.Context) (int, error) {
	q := `SELECT COUNT(*) FROM driver_status WHERE status = $1`

	count := 0
	row := r.db.pool.QueryRow(ctx, q, model.DriverOnline)
	if err := row.Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}
