package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"vtc-platform/internal/auth-service/core/domain/dto"
	"vtc-platform/internal/auth-service/core/domain/models"
	"vtc-platform/internal/auth-service/core/myerrors"
	"vtc-platform/internal/auth-service/core/ports"
	"vtc-platform/internal/config"
	"vtc-platform/internal/mylogger"
	"vtc-platform/internal/notification"
	"vtc-platform/internal/wallet-service/core/domain/message_broker_dto"

	"github.com/golang-jwt/jwt"
)

// welcomeDelay gives the client time to register its push token before the
// welcome push goes out.
const welcomeDelay = 2 * time.Second

type AuthService struct {
	ctx      context.Context
	cfg      *config.Config
	authRepo ports.IAuthRepo
	sessions ports.ISessionStore
	pub      ports.IEventPublisher
	sched    *notification.Scheduler
	mylog    mylogger.Logger
}

func NewAuthService(
	ctx context.Context,
	cfg *config.Config,
	authRepo ports.IAuthRepo,
	sessions ports.ISessionStore,
	pub ports.IEventPublisher,
	sched *notification.Scheduler,
	mylog mylogger.Logger,
) *AuthService {
	return &AuthService{
		ctx:      ctx,
		cfg:      cfg,
		authRepo: authRepo,
		sessions: sessions,
		pub:      pub,
		sched:    sched,
		mylog:    mylog,
	}
}

// ======================= Register =======================

func (as *AuthService) RegisterCustomer(ctx context.Context, regReq dto.CustomerRegistrationRequest) (dto.RegistrationResponse, error) {
	mylog := as.mylog.Action("RegisterCustomer")

	user, referrer, err := as.prepareUser(ctx, regReq.Username, regReq.Phone, regReq.Email,
		regReq.Password, regReq.ReferralCode, models.RoleCustomer)
	if err != nil {
		return dto.RegistrationResponse{}, err
	}

	id, err := as.authRepo.CreateCustomer(ctx, user)
	if err != nil {
		if errors.Is(err, myerrors.ErrPhoneRegistered) || errors.Is(err, myerrors.ErrEmailRegistered) {
			mylog.Warn("Failed to register, identity already taken")
			return dto.RegistrationResponse{}, err
		}
		mylog.Error("Failed to save user in db", err)
		return dto.RegistrationResponse{}, fmt.Errorf("cannot save user in db: %w", err)
	}

	resp, err := as.issueTokens(ctx, id, models.RoleCustomer)
	if err != nil {
		return dto.RegistrationResponse{}, err
	}
	resp.UserId = id
	resp.ReferralCode = user.ReferralCode

	as.afterRegistration(models.RoleCustomer, id, user.Username, referrer)

	mylog.Info("Customer registered successfully", "user_id", id)
	return resp, nil
}

func (as *AuthService) RegisterDriver(ctx context.Context, regReq dto.DriverRegistrationRequest) (dto.RegistrationResponse, error) {
	mylog := as.mylog.Action("RegisterDriver")

	if regReq.LicenseNumber == "" {
		return dto.RegistrationResponse{}, fmt.Errorf("invalid license number: %w", myerrors.ErrFieldIsEmpty)
	}
	if regReq.VehicleType == "" {
		return dto.RegistrationResponse{}, fmt.Errorf("invalid vehicle type: %w", myerrors.ErrFieldIsEmpty)
	}

	user, referrer, err := as.prepareUser(ctx, regReq.Username, regReq.Phone, regReq.Email,
		regReq.Password, regReq.ReferralCode, models.RoleDriver)
	if err != nil {
		return dto.RegistrationResponse{}, err
	}

	driver := models.Driver{
		LicenseNumber: regReq.LicenseNumber,
		VehicleType:   regReq.VehicleType,
		PlateNumber:   regReq.PlateNumber,
		VehicleAttrs:  regReq.VehicleAttrs,
	}

	userID, driverID, err := as.authRepo.CreateDriver(ctx, user, driver)
	if err != nil {
		if errors.Is(err, myerrors.ErrPhoneRegistered) ||
			errors.Is(err, myerrors.ErrEmailRegistered) ||
			errors.Is(err, myerrors.ErrDriverLicenseNumberRegistered) {
			mylog.Warn("Failed to register, identity already taken")
			return dto.RegistrationResponse{}, err
		}
		mylog.Error("Failed to save driver in db", err)
		return dto.RegistrationResponse{}, fmt.Errorf("cannot save driver in db: %w", err)
	}

	resp, err := as.issueTokens(ctx, userID, models.RoleDriver)
	if err != nil {
		return dto.RegistrationResponse{}, err
	}
	resp.UserId = userID
	resp.DriverId = driverID
	resp.ReferralCode = user.ReferralCode

	as.afterRegistration(models.RoleDriver, userID, user.Username, referrer)

	mylog.Info("Driver registered successfully", "user_id", userID, "driver_id", driverID)
	return resp, nil
}

// prepareUser runs shared registration validation and resolves the referral
// code before any row is written.
func (as *AuthService) prepareUser(ctx context.Context, username, phone, email, password, referralCode, role string) (models.User, *models.User, error) {
	if err := validateRegistration(username, phone, email, password); err != nil {
		return models.User{}, nil, err
	}

	var referrer *models.User
	if referralCode != "" {
		ref, err := as.authRepo.GetByReferralCode(ctx, referralCode)
		if err != nil {
			if errors.Is(err, myerrors.ErrUnknownReferralCode) {
				return models.User{}, nil, err
			}
			return models.User{}, nil, fmt.Errorf("resolve referral code: %w", err)
		}
		referrer = &ref
	}

	hashedPassword, err := hashPassword(password)
	if err != nil {
		return models.User{}, nil, fmt.Errorf("failed to hash password: %v", err)
	}

	ownCode, err := newReferralCode()
	if err != nil {
		return models.User{}, nil, fmt.Errorf("generate referral code: %w", err)
	}

	user := models.User{
		Username:     username,
		Phone:        phone,
		Email:        email,
		PasswordHash: hashedPassword,
		Role:         role,
		ReferralCode: ownCode,
	}
	if referrer != nil {
		user.ReferredBy = &referrer.UserId
	}
	return user, referrer, nil
}

// afterRegistration publishes the bonus-credit requests and schedules the
// welcome push. Wallet rows are never touched here, crediting belongs to the
// wallet consumer alone.
func (as *AuthService) afterRegistration(role, userID, username string, referrer *models.User) {
	mylog := as.mylog.Action("afterRegistration").With("user_id", userID)

	welcome := message_broker_dto.BonusCreditEvent{
		UserType:  role,
		UserID:    userID,
		Kind:      message_broker_dto.BonusKindWelcome,
		Amount:    as.cfg.Pricing.WelcomeBonus,
		Reference: "WELCOME:" + userID,
	}
	if err := as.pub.Publish(message_broker_dto.RoutingKeyBonusCredit, welcome); err != nil {
		mylog.Error("failed to publish welcome bonus", err)
	}

	if referrer != nil {
		// keyed to the NEW user so one signup credits the referrer once
		referral := message_broker_dto.BonusCreditEvent{
			UserType:  referrer.Role,
			UserID:    referrer.UserId,
			Kind:      message_broker_dto.BonusKindReferral,
			Amount:    as.cfg.Pricing.ReferralBonus,
			Reference: "REFERRAL:" + userID,
		}
		if err := as.pub.Publish(message_broker_dto.RoutingKeyBonusCredit, referral); err != nil {
			mylog.Error("failed to publish referral bonus", err)
		}
	}

	as.sched.Schedule("welcome:"+userID, welcomeDelay, func() {
		ev := notification.Event{
			UserType: role,
			UserID:   userID,
			Title:    "Welcome!",
			Body:     fmt.Sprintf("Welcome aboard, %s!", username),
		}
		if err := as.pub.Publish(notification.RoutingKeyPush, ev); err != nil {
			mylog.Error("failed to publish welcome push", err)
		}
	})
}

// ======================= Login / Logout =======================

func (as *AuthService) Login(ctx context.Context, authReq dto.AuthRequest) (dto.AuthResponse, error) {
	mylog := as.mylog.Action("Login")

	if err := validateLogin(authReq.Phone, authReq.Password); err != nil {
		return dto.AuthResponse{}, err
	}

	user, err := as.authRepo.GetByPhone(ctx, authReq.Phone)
	if err != nil {
		if errors.Is(err, myerrors.ErrUnknownPhone) {
			mylog.Warn("Failed to login, unknown phone")
			return dto.AuthResponse{}, err
		}
		mylog.Error("Failed to load user from db", err)
		return dto.AuthResponse{}, fmt.Errorf("cannot load user from db: %w", err)
	}

	if !checkPassword(user.PasswordHash, authReq.Password) {
		mylog.Debug("Failed to login, unknown password")
		return dto.AuthResponse{}, myerrors.ErrPasswordUnknown
	}

	resp, err := as.issueTokens(ctx, user.UserId, user.Role)
	if err != nil {
		return dto.AuthResponse{}, err
	}

	mylog.Info("User login successfully", "user_id", user.UserId)
	return dto.AuthResponse{
		UserId:       user.UserId,
		Role:         user.Role,
		AccessToken:  resp.AccessToken,
		SessionToken: resp.SessionToken,
	}, nil
}

func (as *AuthService) Logout(ctx context.Context, sessionToken string) error {
	if sessionToken == "" {
		return myerrors.ErrFieldIsEmpty
	}
	return as.sessions.Delete(ctx, sessionToken)
}

// ======================= OTP =======================

// RequestOtp stores a fresh code for the phone's owner and sends it through
// the notification pipeline.
func (as *AuthService) RequestOtp(ctx context.Context, phone string) error {
	mylog := as.mylog.Action("RequestOtp")

	if err := validatePhone(phone); err != nil {
		return fmt.Errorf("invalid phone: %v", err)
	}

	user, err := as.authRepo.GetByPhone(ctx, phone)
	if err != nil {
		if errors.Is(err, myerrors.ErrUnknownPhone) {
			return err
		}
		return fmt.Errorf("cannot load user from db: %w", err)
	}

	code, err := newOtpCode()
	if err != nil {
		return fmt.Errorf("generate otp: %w", err)
	}

	ttl := time.Duration(as.cfg.App.OtpTTLMinutes) * time.Minute
	if err := as.sessions.SetOTP(ctx, user.UserId, code, ttl); err != nil {
		return fmt.Errorf("store otp: %w", err)
	}

	ev := notification.Event{
		UserType: user.Role,
		UserID:   user.UserId,
		Phone:    phone,
		Body:     fmt.Sprintf("Your verification code is %s", code),
	}
	if err := as.pub.Publish(notification.RoutingKeySms, ev); err != nil {
		mylog.Error("failed to publish otp sms", err)
		return fmt.Errorf("send otp: %w", err)
	}

	mylog.Info("otp issued", "user_id", user.UserId)
	return nil
}

// VerifyOtp consumes the code and logs the user in without a password.
func (as *AuthService) VerifyOtp(ctx context.Context, phone, code string) (dto.AuthResponse, error) {
	mylog := as.mylog.Action("VerifyOtp")

	if err := validatePhone(phone); err != nil {
		return dto.AuthResponse{}, fmt.Errorf("invalid phone: %v", err)
	}
	if code == "" {
		return dto.AuthResponse{}, fmt.Errorf("invalid code: %w", myerrors.ErrFieldIsEmpty)
	}

	user, err := as.authRepo.GetByPhone(ctx, phone)
	if err != nil {
		if errors.Is(err, myerrors.ErrUnknownPhone) {
			return dto.AuthResponse{}, err
		}
		return dto.AuthResponse{}, fmt.Errorf("cannot load user from db: %w", err)
	}

	if err := as.sessions.CheckOTP(ctx, user.UserId, code); err != nil {
		mylog.Warn("otp check failed", "user_id", user.UserId)
		return dto.AuthResponse{}, myerrors.ErrInvalidOtp
	}

	resp, err := as.issueTokens(ctx, user.UserId, user.Role)
	if err != nil {
		return dto.AuthResponse{}, err
	}

	mylog.Info("otp verified", "user_id", user.UserId)
	return dto.AuthResponse{
		UserId:       user.UserId,
		Role:         user.Role,
		AccessToken:  resp.AccessToken,
		SessionToken: resp.SessionToken,
	}, nil
}

// ======================= tokens =======================

func (as *AuthService) issueTokens(ctx context.Context, userID, role string) (dto.RegistrationResponse, error) {
	mylog := as.mylog.Action("issueTokens")

	ttl := time.Duration(as.cfg.App.SessionTTLHours) * time.Hour

	accessToken := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": userID,
		"role":    role,
		"exp":     time.Now().Add(ttl).Unix(),
	})
	accessTokenString, err := accessToken.SignedString([]byte(as.cfg.App.JwtSecret))
	if err != nil {
		mylog.Error("error to create jwt token", err)
		return dto.RegistrationResponse{}, err
	}

	sessionToken, err := as.sessions.Create(ctx, userID)
	if err != nil {
		mylog.Error("error to create session token", err)
		return dto.RegistrationResponse{}, err
	}

	return dto.RegistrationResponse{
		AccessToken:  accessTokenString,
		SessionToken: sessionToken,
	}, nil
}
