// Package session is the redis-backed session-token store shared by the
// auth service (issue, delete) and the dispatch service (validate on the
// customer websocket).
package session

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"vtc-platform/internal/config"

	"github.com/redis/go-redis/v9"
)

var ErrInvalidToken = errors.New("invalid or expired session token")

type Store struct {
	rdb *redis.Client
	ttl time.Duration
}

func New(cfg *config.Redisconfig, ttl time.Duration) *Store {
	return &Store{
		rdb: redis.NewClient(&redis.Options{
			Addr:     cfg.Addr,
			Password: cfg.Password,
			DB:       cfg.DB,
		}),
		ttl: ttl,
	}
}

// NewWithClient is used by tests with a miniredis-style client.
func NewWithClient(rdb *redis.Client, ttl time.Duration) *Store {
	return &Store{rdb: rdb, ttl: ttl}
}

func key(token string) string { return "session:" + token }

// Create issues a fresh token for the user and stores it with the TTL.
func (s *Store) Create(ctx context.Context, userID string) (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate session token: %w", err)
	}
	token := hex.EncodeToString(buf)

	if err := s.rdb.Set(ctx, key(token), userID, s.ttl).Err(); err != nil {
		return "", fmt.Errorf("store session token: %w", err)
	}
	return token, nil
}

// Validate checks the token exists and belongs to userID.
func (s *Store) Validate(ctx context.Context, token, userID string) error {
	owner, err := s.rdb.Get(ctx, key(token)).Result()
	if errors.Is(err, redis.Nil) {
		return ErrInvalidToken
	}
	if err != nil {
		return err
	}
	if owner != userID {
		return ErrInvalidToken
	}
	return nil
}

// Delete removes the token (logout).
func (s *Store) Delete(ctx context.Context, token string) error {
	return s.rdb.Del(ctx, key(token)).Err()
}

// SetOTP stores a one-time code for the user with its own TTL.
func (s *Store) SetOTP(ctx context.Context, userID, code string, ttl time.Duration) error {
	return s.rdb.Set(ctx, "otp:"+userID, code, ttl).Err()
}

// CheckOTP verifies and consumes the code.
func (s *Store) CheckOTP(ctx context.Context, userID, code string) error {
	stored, err := s.rdb.Get(ctx, "otp:"+userID).Result()
	if errors.Is(err, redis.Nil) {
		return ErrInvalidToken
	}
	if err != nil {
		return err
	}
	if stored != code {
		return ErrInvalidToken
	}
	return s.rdb.Del(ctx, "otp:"+userID).Err()
}
