package db

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"vtc-platform/internal/auth-service/core/domain/models"
	"vtc-platform/internal/auth-service/core/myerrors"
	"vtc-platform/internal/auth-service/core/ports"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

type AuthRepo struct {
	db *DB
}

var _ ports.IAuthRepo = (*AuthRepo)(nil)

func NewAuthRepo(db *DB) *AuthRepo {
	return &AuthRepo{db: db}
}

const userColumns = `
	u.user_id,
	u.created_at,
	u.updated_at,
	u.username,
	u.phone,
	COALESCE(u.email, ''),
	u.password_hash,
	u.role,
	u.referral_code,
	u.referred_by,
	u.status
`

func (ar *AuthRepo) CreateCustomer(ctx context.Context, user models.User) (string, error) {
	if err := ar.db.IsAlive(); err != nil {
		return "", err
	}

	q := `INSERT INTO users (
		username, phone, email, password_hash, role, referral_code, referred_by
	) VALUES ($1, $2, NULLIF($3, ''), $4, $5, $6, $7) RETURNING user_id`

	id := ""
	row := ar.db.pool.QueryRow(ctx, q,
		user.Username, user.Phone, user.Email, user.PasswordHash,
		user.Role, user.ReferralCode, user.ReferredBy,
	)
	if err := row.Scan(&id); err != nil {
		return "", mapUniqueViolation(err)
	}
	return id, nil
}

func (ar *AuthRepo) CreateDriver(ctx context.Context, user models.User, driver models.Driver) (string, string, error) {
	tx, err := ar.db.pool.Begin(ctx)
	if err != nil {
		if err := ar.db.IsAlive(); err != nil {
			return "", "", err
		}
		return "", "", fmt.Errorf("failed to begin transaction: %v", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	q := `INSERT INTO users (
		username, phone, email, password_hash, role, referral_code, referred_by
	) VALUES ($1, $2, NULLIF($3, ''), $4, $5, $6, $7) RETURNING user_id`

	userID := ""
	row := tx.QueryRow(ctx, q,
		user.Username, user.Phone, user.Email, user.PasswordHash,
		user.Role, user.ReferralCode, user.ReferredBy,
	)
	if err = row.Scan(&userID); err != nil {
		return "", "", mapUniqueViolation(err)
	}

	var vehicleAttrs any
	if driver.VehicleAttrs != nil {
		vehicleAttrs = driver.VehicleAttrs
	}

	q = `INSERT INTO drivers (
		user_id, license_number, vehicle_type, plate_number, vehicle_attrs
	) VALUES ($1, $2, $3, $4, $5) RETURNING driver_id`

	driverID := ""
	row = tx.QueryRow(ctx, q,
		userID, driver.LicenseNumber, driver.VehicleType, driver.PlateNumber, vehicleAttrs,
	)
	if err = row.Scan(&driverID); err != nil {
		return "", "", mapUniqueViolation(err)
	}

	if err = tx.Commit(ctx); err != nil {
		return "", "", fmt.Errorf("failed to commit transaction: %v", err)
	}
	return userID, driverID, nil
}

func (ar *AuthRepo) GetByPhone(ctx context.Context, phone string) (models.User, error) {
	q := `SELECT ` + userColumns + ` FROM users u WHERE u.phone = $1`

	u, err := ar.scanUser(ctx, q, phone)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.User{}, myerrors.ErrUnknownPhone
		}
		return models.User{}, err
	}
	return u, nil
}

func (ar *AuthRepo) GetByID(ctx context.Context, userID string) (models.User, error) {
	q := `SELECT ` + userColumns + ` FROM users u WHERE u.user_id = $1`

	u, err := ar.scanUser(ctx, q, userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.User{}, myerrors.ErrUnknownPhone
		}
		return models.User{}, err
	}
	return u, nil
}

func (ar *AuthRepo) GetByReferralCode(ctx context.Context, code string) (models.User, error) {
	q := `SELECT ` + userColumns + ` FROM users u WHERE u.referral_code = $1`

	u, err := ar.scanUser(ctx, q, code)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.User{}, myerrors.ErrUnknownReferralCode
		}
		return models.User{}, err
	}
	return u, nil
}

func (ar *AuthRepo) scanUser(ctx context.Context, q string, arg any) (models.User, error) {
	var u models.User
	err := ar.db.pool.QueryRow(ctx, q, arg).Scan(
		&u.UserId,
		&u.CreatedAt,
		&u.UpdatedAt,
		&u.Username,
		&u.Phone,
		&u.Email,
		&u.PasswordHash,
		&u.Role,
		&u.ReferralCode,
		&u.ReferredBy,
		&u.Status,
	)
	if err != nil {
		return models.User{}, err
	}
	return u, nil
}

// mapUniqueViolation turns Postgres 23505 errors into the sentinel the
// service layer matches on.
func mapUniqueViolation(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		switch {
		case strings.Contains(pgErr.ConstraintName, "phone"):
			return myerrors.ErrPhoneRegistered
		case strings.Contains(pgErr.ConstraintName, "email"):
			return myerrors.ErrEmailRegistered
		case strings.Contains(pgErr.ConstraintName, "license"):
			return myerrors.ErrDriverLicenseNumberRegistered
		}
		return myerrors.ErrPhoneRegistered
	}
	return fmt.Errorf("failed to insert user: %v", err)
}
