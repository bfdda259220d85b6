package dto

import "encoding/json"

type CustomerRegistrationRequest struct {
	Username     string `json:"username"`
	Phone        string `json:"phone"`
	Email        string `json:"email"`
	Password     string `json:"password"`
	ReferralCode string `json:"referral_code,omitempty"`
}

type DriverRegistrationRequest struct {
	Username      string          `json:"username"`
	Phone         string          `json:"phone"`
	Email         string          `json:"email"`
	Password      string          `json:"password"`
	ReferralCode  string          `json:"referral_code,omitempty"`
	LicenseNumber string          `json:"license_number"`
	VehicleType   string          `json:"vehicle_type"`
	PlateNumber   string          `json:"plate_number"`
	VehicleAttrs  json.RawMessage `json:"vehicle_attrs,omitempty"`
}

type RegistrationResponse struct {
	UserId       string `json:"user_id"`
	DriverId     string `json:"driver_id,omitempty"`
	ReferralCode string `json:"referral_code"`
	AccessToken  string `json:"jwt_access"`
	SessionToken string `json:"session_token"`
}

type AuthRequest struct {
	Phone    string `json:"phone"`
	Password string `json:"password"`
}

type AuthResponse struct {
	UserId       string `json:"user_id"`
	Role         string `json:"role"`
	AccessToken  string `json:"jwt_access"`
	SessionToken string `json:"session_token"`
}

type LogoutRequest struct {
	SessionToken string `json:"session_token"`
}

type OtpRequest struct {
	Phone string `json:"phone"`
}

type OtpVerifyRequest struct {
	Phone string `json:"phone"`
	Code  string `json:"code"`
}
