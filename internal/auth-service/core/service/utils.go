package service

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"

	"vtc-platform/internal/auth-service/core/myerrors"

	"golang.org/x/crypto/bcrypt"
)

const (
	MinUsernameLen = 1
	MaxUsernameLen = 100

	MinEmailLen = 5
	MaxEmailLen = 100

	MinPasswordLen = 5
	MaxPasswordLen = 50

	HashFactor = 10

	ReferralCodeLen = 8
	OtpCodeLen      = 6
)

func validateRegistration(username, phone, email, password string) error {
	if err := validateUsername(username); err != nil {
		return fmt.Errorf("invalid name: %v", err)
	}

	if err := validatePhone(phone); err != nil {
		return fmt.Errorf("invalid phone: %v", err)
	}

	if email != "" {
		if err := validateEmail(email); err != nil {
			return fmt.Errorf("invalid email: %v", err)
		}
	}

	if err := validatePassword(password); err != nil {
		return fmt.Errorf("invalid password: %v", err)
	}

	return nil
}

func validateLogin(phone, password string) error {
	if err := validatePhone(phone); err != nil {
		return fmt.Errorf("invalid phone: %v", err)
	}

	if err := validatePassword(password); err != nil {
		return fmt.Errorf("invalid password: %v", err)
	}
	return nil
}

func validateUsername(username string) error {
	if username == "" {
		return myerrors.ErrFieldIsEmpty
	}

	usernameLen := len(username)
	if usernameLen < MinUsernameLen || usernameLen > MaxUsernameLen {
		return fmt.Errorf("must be in range [%d, %d]", MinUsernameLen, MaxUsernameLen)
	}

	return nil
}

// validatePhone accepts international format: +, then 8 to 14 digits.
func validatePhone(phone string) error {
	if phone == "" {
		return myerrors.ErrFieldIsEmpty
	}
	if !strings.HasPrefix(phone, "+") {
		return fmt.Errorf("must start with +")
	}
	digits := phone[1:]
	if len(digits) < 8 || len(digits) > 14 {
		return fmt.Errorf("must contain 8 to 14 digits")
	}
	for _, c := range digits {
		if c < '0' || c > '9' {
			return fmt.Errorf("must contain only digits after +")
		}
	}
	return nil
}

func validateEmail(email string) error {
	emailLen := len(email)
	if emailLen < MinEmailLen || emailLen > MaxEmailLen {
		return fmt.Errorf("must be in range [%d, %d]", MinEmailLen, MaxEmailLen)
	}

	if strings.Count(email, "@") != 1 {
		return fmt.Errorf("must contain only one @: %s", email)
	}
	return nil
}

func validatePassword(password string) error {
	if password == "" {
		return myerrors.ErrFieldIsEmpty
	}

	passwordLen := len(password)
	if passwordLen < MinPasswordLen || passwordLen > MaxPasswordLen {
		return fmt.Errorf("must be in range [%d, %d]", MinPasswordLen, MaxPasswordLen)
	}
	return nil
}

func hashPassword(password string) ([]byte, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), HashFactor)
	return bytes, err
}

func checkPassword(hashed []byte, password string) bool {
	return bcrypt.CompareHashAndPassword(hashed, []byte(password)) == nil
}

const codeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// newReferralCode returns a short human-friendly code, ambiguous glyphs
// excluded.
func newReferralCode() (string, error) {
	b := make([]byte, ReferralCodeLen)
	for i := range b {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(codeAlphabet))))
		if err != nil {
			return "", err
		}
		b[i] = codeAlphabet[n.Int64()]
	}
	return string(b), nil
}

func newOtpCode() (string, error) {
	max := big.NewInt(1)
	for i := 0; i < OtpCodeLen; i++ {
		max.Mul(max, big.NewInt(10))
	}
	n, err := rand.Int(rand.Reader, max)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%0*d", OtpCodeLen, n), nil
}
