package ports

import (
	"context"
	"time"

	"vtc-platform/internal/auth-service/core/domain/models"
)

type IAuthRepo interface {
	CreateCustomer(ctx context.Context, user models.User) (string, error)
	CreateDriver(ctx context.Context, user models.User, driver models.Driver) (userID, driverID string, err error)
	GetByPhone(ctx context.Context, phone string) (models.User, error)
	GetByID(ctx context.Context, userID string) (models.User, error)
	GetByReferralCode(ctx context.Context, code string) (models.User, error)
}

// IEventPublisher is the publish-only broker face used for bonus-credit
// requests and outbound notifications.
type IEventPublisher interface {
	Publish(routingKey string, msg any) error
}

// ISessionStore covers what the auth flows need from the redis store.
type ISessionStore interface {
	Create(ctx context.Context, userID string) (string, error)
	Delete(ctx context.Context, token string) error
	SetOTP(ctx context.Context, userID, code string, ttl time.Duration) error
	CheckOTP(ctx context.Context, userID, code string) error
}
