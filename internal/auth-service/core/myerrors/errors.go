package myerrors

import "errors"

var (
	ErrFieldIsEmpty    = errors.New("field is empty")
	ErrUnknownPhone    = errors.New("unknown phone number")
	ErrPasswordUnknown = errors.New("unknown password")

	ErrPhoneRegistered               = errors.New("phone number already registered")
	ErrEmailRegistered               = errors.New("email already registered")
	ErrDriverLicenseNumberRegistered = errors.New("driver licence number is already registered")
	ErrUnknownReferralCode           = errors.New("unknown referral code")
	ErrInvalidOtp                    = errors.New("invalid or expired otp code")
)
