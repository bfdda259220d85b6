package models

import (
	"errors"
	"fmt"
)

// UserRefType discriminates wallet ownership. A wallet belongs to either a
// driver or a customer account, never both.
type UserRefType string

const (
	UserDriver   UserRefType = "DRIVER"
	UserCustomer UserRefType = "CUSTOMER"
)

var ErrInvalidUserRef = errors.New("invalid user reference")

// UserRef is the (type, id) pair identifying the wallet owner.
type UserRef struct {
	Type UserRefType `json:"type"`
	ID   string      `json:"id"`
}

func DriverRef(id string) UserRef   { return UserRef{Type: UserDriver, ID: id} }
func CustomerRef(id string) UserRef { return UserRef{Type: UserCustomer, ID: id} }

// ParseUserRef builds a ref from untrusted transport values.
func ParseUserRef(userType, id string) (UserRef, error) {
	if id == "" {
		return UserRef{}, fmt.Errorf("%w: empty id", ErrInvalidUserRef)
	}
	switch UserRefType(userType) {
	case UserDriver:
		return DriverRef(id), nil
	case UserCustomer:
		return CustomerRef(id), nil
	default:
		return UserRef{}, fmt.Errorf("%w: unknown type %q", ErrInvalidUserRef, userType)
	}
}

func (r UserRef) Valid() bool {
	return r.ID != "" && (r.Type == UserDriver || r.Type == UserCustomer)
}

func (r UserRef) String() string {
	return fmt.Sprintf("%s:%s", r.Type, r.ID)
}
