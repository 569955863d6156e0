package service

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"fmt"
	"math/big"
	"strings"
	"time"

	"stitchdesk/internal/apperr"
	"stitchdesk/internal/logger"
	"stitchdesk/internal/models"
	"stitchdesk/internal/notify"
	"stitchdesk/internal/repository"
)

const (
	otpLength   = 6
	otpLifetime = 10 * time.Minute
	minPassword = 6
)

type RegisterRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Name     string `json:"name" binding:"required"`
	Password string `json:"password" binding:"required,min=6"`
	ShopName string `json:"shop_name"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type AuthResult struct {
	Token       string       `json:"token,omitempty"`
	User        *models.User `json:"user,omitempty"`
	Requires2FA bool         `json:"requires_2fa"`
	Email       string       `json:"email,omitempty"`
	Message     string       `json:"message,omitempty"`
}

type AuthService struct {
	Users     repository.UserRepository
	Mailer    notify.Sender
	Log       *logger.Logger
	TrialDays int
	Now       func() time.Time
}

// Register creates the shop, its owner, the default payment methods and a
// trial subscription in one go.
func (s *AuthService) Register(ctx context.Context, req RegisterRequest) (*AuthResult, error) {
	u, err := createAccount(ctx, s.Users, req, s.Now(), s.trialDays())
	if err != nil {
		return nil, err
	}
	s.Log.Ctx(ctx).Info("user_registered", map[string]any{"user_id": u.ID, "shop_id": u.ShopID})
	return s.session(ctx, u)
}

func createAccount(ctx context.Context, users repository.UserRepository, req RegisterRequest, now time.Time, trialDays int) (*models.User, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if len(req.Password) < minPassword {
		return nil, apperr.Invalid("password", "Password must be at least 6 characters")
	}
	taken, err := users.EmailTaken(ctx, email)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, apperr.Invalid("email", "User with this email already exists")
	}
	hash, err := models.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}
	shopName := strings.TrimSpace(req.ShopName)
	if shopName == "" {
		shopName = "My Shop"
	}
	shop := models.NewShop(shopName)
	u := &models.User{
		Email:        email,
		Username:     email,
		Name:         strings.TrimSpace(req.Name),
		PasswordHash: hash,
		Role:         models.RoleOwner,
	}
	methods := make([]models.PaymentMethod, 0, len(models.DefaultPaymentMethods))
	for _, name := range models.DefaultPaymentMethods {
		methods = append(methods, models.PaymentMethod{Name: name, IsActive: true})
	}
	trial := models.NewTrial(0, now, trialDays)
	if err := users.Register(ctx, shop, u, methods, trial); err != nil {
		return nil, err
	}
	return u, nil
}

func (s *AuthService) trialDays() int {
	if s.TrialDays <= 0 {
		return 14
	}
	return s.TrialDays
}

func (s *AuthService) session(ctx context.Context, u *models.User) (*AuthResult, error) {
	tok, err := s.Users.IssueToken(ctx, u.ID)
	if err != nil {
		return nil, err
	}
	return &AuthResult{Token: tok.Key, User: u}, nil
}

// Login checks the password. With 2FA on, it mails an OTP instead of
// issuing a token.
func (s *AuthService) Login(ctx context.Context, req LoginRequest) (*AuthResult, error) {
	u, err := s.Users.ByEmail(ctx, strings.TrimSpace(req.Email))
	if apperr.IsNotFound(err) {
		return nil, apperr.Invalid("non_field_errors", "Invalid credentials")
	}
	if err != nil {
		return nil, err
	}
	if !models.CheckPassword(u.PasswordHash, req.Password) {
		return nil, apperr.Invalid("non_field_errors", "Invalid credentials")
	}
	if u.Is2FAEnabled {
		if err := s.sendOTP(ctx, u, "login"); err != nil {
			return nil, err
		}
		return &AuthResult{
			Requires2FA: true,
			Email:       u.Email,
			Message:     "OTP sent to your email. Please verify to complete login.",
		}, nil
	}
	return s.session(ctx, u)
}

func (s *AuthService) Logout(ctx context.Context, u *models.User) error {
	return s.Users.DeleteToken(ctx, u.ID)
}

func (s *AuthService) Authenticate(ctx context.Context, token string) (*models.User, error) {
	u, err := s.Users.ByToken(ctx, token)
	if apperr.IsNotFound(err) {
		return nil, apperr.Unauthorized("Invalid token.")
	}
	return u, err
}

func (s *AuthService) UserByID(ctx context.Context, id uint) (*models.User, error) {
	return s.Users.ByID(ctx, id)
}

// SendLoginOTP re-sends the login code to a user with 2FA enabled.
func (s *AuthService) SendLoginOTP(ctx context.Context, email string) error {
	if strings.TrimSpace(email) == "" {
		return apperr.BadRequest("Email is required")
	}
	u, err := s.Users.ByEmail(ctx, email)
	if apperr.IsNotFound(err) {
		return apperr.Message(404, "User not found")
	}
	if err != nil {
		return err
	}
	if !u.Is2FAEnabled {
		return apperr.BadRequest("2FA is not enabled for this user")
	}
	return s.sendOTP(ctx, u, "login")
}

// VerifyLoginOTP completes a 2FA login.
func (s *AuthService) VerifyLoginOTP(ctx context.Context, email, code string) (*AuthResult, error) {
	if strings.TrimSpace(email) == "" || strings.TrimSpace(code) == "" {
		return nil, apperr.BadRequest("Email and OTP are required")
	}
	u, err := s.Users.ByEmail(ctx, email)
	if apperr.IsNotFound(err) {
		return nil, apperr.Message(404, "User not found")
	}
	if err != nil {
		return nil, err
	}
	if err := s.consumeOTP(ctx, u, code); err != nil {
		return nil, err
	}
	return s.session(ctx, u)
}

// Toggle2FA disables 2FA straight away; enabling sends a code that Verify2FA
// confirms.
func (s *AuthService) Toggle2FA(ctx context.Context, u *models.User, enable bool) (string, error) {
	if enable {
		if err := s.sendOTP(ctx, u, "login"); err != nil {
			return "", err
		}
		return "OTP sent to your email. Please verify to enable 2FA.", nil
	}
	u.Is2FAEnabled = false
	u.OTPCode = ""
	u.OTPExpiresAt = nil
	if err := s.Users.Save(ctx, u); err != nil {
		return "", err
	}
	return "2FA has been disabled.", nil
}

func (s *AuthService) Verify2FA(ctx context.Context, u *models.User, code string) error {
	if err := s.checkOTP(u, code); err != nil {
		return err
	}
	u.Is2FAEnabled = true
	u.OTPCode = ""
	u.OTPExpiresAt = nil
	return s.Users.Save(ctx, u)
}

// ForgotPassword never reveals whether the address is registered.
func (s *AuthService) ForgotPassword(ctx context.Context, email string) (string, error) {
	const generic = "If an account with this email exists, an OTP has been sent."
	if strings.TrimSpace(email) == "" {
		return "", apperr.BadRequest("Email is required")
	}
	u, err := s.Users.ByEmail(ctx, email)
	if apperr.IsNotFound(err) {
		return generic, nil
	}
	if err != nil {
		return "", err
	}
	if err := s.sendOTP(ctx, u, "reset"); err != nil {
		return "", err
	}
	return "OTP sent to your email.", nil
}

func (s *AuthService) ResetPassword(ctx context.Context, email, code, password string) error {
	if strings.TrimSpace(email) == "" || strings.TrimSpace(code) == "" || password == "" {
		return apperr.BadRequest("Email, OTP, and new password are required")
	}
	if len(password) < minPassword {
		return apperr.BadRequest("Password must be at least 6 characters")
	}
	u, err := s.Users.ByEmail(ctx, email)
	if apperr.IsNotFound(err) {
		return apperr.BadRequest("Invalid credentials")
	}
	if err != nil {
		return err
	}
	if err := s.checkOTP(u, code); err != nil {
		return err
	}
	hash, err := models.HashPassword(password)
	if err != nil {
		return err
	}
	u.PasswordHash = hash
	u.OTPCode = ""
	u.OTPExpiresAt = nil
	if err := s.Users.Save(ctx, u); err != nil {
		return err
	}
	return s.Users.DeleteToken(ctx, u.ID)
}

func (s *AuthService) ChangePassword(ctx context.Context, u *models.User, current, next string) error {
	if !models.CheckPassword(u.PasswordHash, current) {
		return apperr.BadRequest("Current password is incorrect")
	}
	if len(next) < minPassword {
		return apperr.Invalid("new_password", "Password must be at least 6 characters")
	}
	hash, err := models.HashPassword(next)
	if err != nil {
		return err
	}
	u.PasswordHash = hash
	return s.Users.Save(ctx, u)
}

func (s *AuthService) sendOTP(ctx context.Context, u *models.User, purpose string) error {
	code, err := generateOTP()
	if err != nil {
		return err
	}
	exp := s.Now().Add(otpLifetime)
	u.OTPCode = code
	u.OTPExpiresAt = &exp
	if err := s.Users.Save(ctx, u); err != nil {
		return err
	}
	if err := s.Mailer.Send(ctx, notify.OTPEmail(u.Email, purpose, code)); err != nil {
		s.Log.Ctx(ctx).Error("otp_send", err, map[string]any{"user_id": u.ID})
		return apperr.Message(500, "Failed to send OTP. Please try again.")
	}
	return nil
}

func (s *AuthService) checkOTP(u *models.User, code string) error {
	if u.OTPCode == "" || u.OTPExpiresAt == nil {
		return apperr.BadRequest("No OTP request found. Please request a new OTP.")
	}
	if s.Now().After(*u.OTPExpiresAt) {
		return apperr.BadRequest("OTP has expired. Please request a new one.")
	}
	if subtle.ConstantTimeCompare([]byte(u.OTPCode), []byte(strings.TrimSpace(code))) != 1 {
		return apperr.BadRequest("Invalid OTP.")
	}
	return nil
}

func (s *AuthService) consumeOTP(ctx context.Context, u *models.User, code string) error {
	if err := s.checkOTP(u, code); err != nil {
		return err
	}
	u.OTPCode = ""
	u.OTPExpiresAt = nil
	return s.Users.Save(ctx, u)
}

func generateOTP() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%0*d", otpLength, n.Int64()), nil
}
