package db

import (
	"context"
	"errors"

	"vtc-platform/internal/dispatch-service/core/myerrors"
	"vtc-platform/internal/dispatch-service/core/ports"

	"github.com/jackc/pgx/v5"
)

type DriverInfoRepo struct {
	db *DB
}

func NewDriverInfoRepo(db *DB) ports.IDriverInfoRepo {
	return &DriverInfoRepo{db: db}
}

func (r *DriverInfoRepo) GetDriverInfo(ctx context.Context, driverID string) (ports.DriverInfo, error) {
	q := `SELECT d.driver_id, u.username, COALESCE(u.phone, ''), COALESCE(d.rating, 0),
		COALESCE(d.vehicle_type, ''), COALESCE(d.plate_number, '')
	FROM drivers d JOIN users u ON u.user_id = d.user_id
	WHERE d.driver_id = $1`

	var info ports.DriverInfo
	row := r.db.pool.QueryRow(ctx, q, driverID)
	err := row.Scan(&info.DriverID, &info.Name, &info.Phone, &info.Rating,
		&info.VehicleType, &info.PlateNumber)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ports.DriverInfo{}, myerrors.ErrDriverNotFound
		}
		return ports.DriverInfo{}, err
	}
	return info, nil
}

// Exists is used by the websocket layer to validate the path's driver id
// before upgrading.
func (r *DriverInfoRepo) Exists(ctx context.Context, driverID string) (bool, error) {
	q := `SELECT COUNT(*) FROM drivers WHERE driver_id = $1`

	count := 0
	row := r.db.pool.QueryRow(ctx, q, driverID)
	if err := row.Scan(&count); err != nil {
		return false, err
	}
	return count > 0, nil
}
