package handle

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"vtc-platform/internal/auth-service/core/domain/dto"
	"vtc-platform/internal/auth-service/core/myerrors"
	"vtc-platform/internal/auth-service/core/service"
	"vtc-platform/internal/mylogger"
)

type AuthHandler struct {
	authService *service.AuthService
	mylog       mylogger.Logger
}

func NewAuthHandler(authService *service.AuthService, mylog mylogger.Logger) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		mylog:       mylog,
	}
}

func (ah *AuthHandler) RegisterCustomer() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var regReq dto.CustomerRegistrationRequest

		mylog := ah.mylog.Action("RegisterCustomer")

		if err := json.NewDecoder(r.Body).Decode(&regReq); err != nil {
			mylog.Error("Failed to parse registration", err)
			jsonError(w, http.StatusBadRequest, errors.New("failed to parse JSON"))
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), WaitTime*time.Second)
		defer cancel()

		resp, err := ah.authService.RegisterCustomer(ctx, regReq)
		if err != nil {
			jsonError(w, registrationStatus(err), err)
			return
		}

		jsonResponse(w, http.StatusCreated, resp)
		mylog.Info(fmt.Sprintf("%s registered successfully!", regReq.Username))
	}
}

func (ah *AuthHandler) RegisterDriver() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var regReq dto.DriverRegistrationRequest

		mylog := ah.mylog.Action("RegisterDriver")

		if err := json.NewDecoder(r.Body).Decode(&regReq); err != nil {
			mylog.Error("Failed to parse registration", err)
			jsonError(w, http.StatusBadRequest, errors.New("failed to parse JSON"))
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), WaitTime*time.Second)
		defer cancel()

		resp, err := ah.authService.RegisterDriver(ctx, regReq)
		if err != nil {
			jsonError(w, registrationStatus(err), err)
			return
		}

		jsonResponse(w, http.StatusCreated, resp)
		mylog.Info(fmt.Sprintf("%s registered successfully!", regReq.Username))
	}
}

func (ah *AuthHandler) Login() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var authReq dto.AuthRequest

		mylog := ah.mylog.Action("Login")

		if err := json.NewDecoder(r.Body).Decode(&authReq); err != nil {
			mylog.Error("Failed to parse auth", err)
			jsonError(w, http.StatusBadRequest, errors.New("failed to parse JSON"))
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), WaitTime*time.Second)
		defer cancel()

		resp, err := ah.authService.Login(ctx, authReq)
		if err != nil {
			if errors.Is(err, myerrors.ErrUnknownPhone) || errors.Is(err, myerrors.ErrPasswordUnknown) {
				jsonError(w, http.StatusUnauthorized, errors.New("invalid credentials"))
				return
			}
			jsonError(w, http.StatusInternalServerError, err)
			return
		}

		jsonResponse(w, http.StatusOK, resp)
		mylog.Info("Successfully login!")
	}
}

func (ah *AuthHandler) Logout() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req dto.LogoutRequest

		mylog := ah.mylog.Action("Logout")

		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			jsonError(w, http.StatusBadRequest, errors.New("failed to parse JSON"))
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), WaitTime*time.Second)
		defer cancel()

		if err := ah.authService.Logout(ctx, req.SessionToken); err != nil {
			if errors.Is(err, myerrors.ErrFieldIsEmpty) {
				jsonError(w, http.StatusBadRequest, err)
				return
			}
			jsonError(w, http.StatusInternalServerError, err)
			return
		}

		jsonResponse(w, http.StatusOK, map[string]string{"msg": "logged out"})
		mylog.Info("Successfully logout!")
	}
}

func (ah *AuthHandler) RequestOtp() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req dto.OtpRequest

		mylog := ah.mylog.Action("RequestOtp")

		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			jsonError(w, http.StatusBadRequest, errors.New("failed to parse JSON"))
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), WaitTime*time.Second)
		defer cancel()

		if err := ah.authService.RequestOtp(ctx, req.Phone); err != nil {
			if errors.Is(err, myerrors.ErrUnknownPhone) {
				jsonError(w, http.StatusNotFound, err)
				return
			}
			jsonError(w, http.StatusInternalServerError, err)
			return
		}

		jsonResponse(w, http.StatusOK, map[string]string{"msg": "code sent"})
		mylog.Info("otp requested")
	}
}

func (ah *AuthHandler) VerifyOtp() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req dto.OtpVerifyRequest

		mylog := ah.mylog.Action("VerifyOtp")

		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			jsonError(w, http.StatusBadRequest, errors.New("failed to parse JSON"))
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), WaitTime*time.Second)
		defer cancel()

		resp, err := ah.authService.VerifyOtp(ctx, req.Phone, req.Code)
		if err != nil {
			if errors.Is(err, myerrors.ErrInvalidOtp) {
				jsonError(w, http.StatusUnauthorized, err)
				return
			}
			if errors.Is(err, myerrors.ErrUnknownPhone) {
				jsonError(w, http.StatusNotFound, err)
				return
			}
			jsonError(w, http.StatusInternalServerError, err)
			return
		}

		jsonResponse(w, http.StatusOK, resp)
		mylog.Info("otp verified")
	}
}

// registrationStatus maps registration failures onto HTTP statuses.
func registrationStatus(err error) int {
	switch {
	case errors.Is(err, myerrors.ErrPhoneRegistered),
		errors.Is(err, myerrors.ErrEmailRegistered),
		errors.Is(err, myerrors.ErrDriverLicenseNumberRegistered),
		errors.Is(err, myerrors.ErrUnknownReferralCode),
		errors.Is(err, myerrors.ErrFieldIsEmpty):
		return http.StatusBadRequest
	}
	// validation wrappers carry no sentinel
	if msg := err.Error(); len(msg) >= 7 && msg[:7] == "invalid" {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}
