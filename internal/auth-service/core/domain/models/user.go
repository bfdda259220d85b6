package models

import "time"

const (
	RoleCustomer = "CUSTOMER"
	RoleDriver   = "DRIVER"
	RoleAdmin    = "ADMIN"
)

type User struct {
	UserId       string    `json:"user_id"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	Username     string    `json:"username"`
	Phone        string    `json:"phone"`
	Email        string    `json:"email"`
	PasswordHash []byte    `json:"-"`
	Role         string    `json:"role"`
	ReferralCode string    `json:"referral_code"`
	ReferredBy   *string   `json:"referred_by,omitempty"`
	Status       string    `json:"status"`
}
