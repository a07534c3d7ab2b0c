// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package auth handles registration, email verification and password login.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"codeberg.org/oliverandrich/scamsentinel/internal/config"
	"codeberg.org/oliverandrich/scamsentinel/internal/models"
	"codeberg.org/oliverandrich/scamsentinel/internal/repository"
	"codeberg.org/oliverandrich/scamsentinel/internal/validation"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrUsernameTaken      = errors.New("username already taken")
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrNotVerified        = errors.New("email not verified")
	ErrInvalidOTP         = errors.New("invalid or expired code")
	ErrUserNotFound       = errors.New("user not found")
)

// dummyHash is used for constant-time login to prevent timing attacks
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("dummy-password-for-timing"), bcrypt.DefaultCost)

// Mailer delivers verification codes.
type Mailer interface {
	SendOTP(ctx context.Context, toEmail, code string) error
}

type Service struct {
	repo              *repository.Repository
	config            *config.RegistrationConfig
	mailer            Mailer
	passwordValidator *PasswordValidator
	hashCost          int
	now               func() time.Time
}

// Option customizes a Service.
type Option func(*Service)

// WithHashCost sets the bcrypt cost, mostly to speed up tests.
func WithHashCost(cost int) Option {
	return func(s *Service) { s.hashCost = cost }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(repo *repository.Repository, cfg *config.RegistrationConfig, mailer Mailer, opts ...Option) *Service {
	s := &Service{
		repo:              repo,
		config:            cfg,
		mailer:            mailer,
		passwordValidator: DefaultPasswordValidator(),
		hashCost:          bcrypt.DefaultCost,
		now:               time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// PasswordValidator returns the password validator for use in handlers
func (s *Service) PasswordValidator() *PasswordValidator {
	return s.passwordValidator
}

// RegisterParams holds the parameters for user registration
type RegisterParams struct {
	Username        string
	Email           string
	Password        string
	ConfirmPassword string
}

// Register creates an unverified account and emails a verification code.
// Form problems are returned as validation.Errors.
func (s *Service) Register(ctx context.Context, params RegisterParams) (*models.User, error) {
	params.Username = strings.TrimSpace(params.Username)
	params.Email = normalizeEmail(params.Email)

	errs := validation.Errors{}
	errs.Username("username", params.Username)
	if errs.Required("email", params.Email) && errs.Email("email", params.Email) && !s.domainAllowed(params.Email) {
		errs.Add("email", "validation_email_domain")
	}
	s.checkNewPassword(errs, "password", params.Password, params.ConfirmPassword, params.Username, params.Email)
	if err := errs.Err(); err != nil {
		return nil, err
	}

	if taken, err := s.repo.UsernameTaken(ctx, params.Username, 0); err != nil {
		return nil, fmt.Errorf("failed to check username: %w", err)
	} else if taken {
		return nil, ErrUsernameTaken
	}
	if taken, err := s.repo.EmailTaken(ctx, params.Email); err != nil {
		return nil, fmt.Errorf("failed to check email: %w", err)
	} else if taken {
		return nil, ErrEmailTaken
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(params.Password), s.hashCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		Username:     params.Username,
		Email:        params.Email,
		PasswordHash: string(passwordHash),
	}
	if err := s.repo.CreateUser(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	slog.Info("register_success", "user_id", user.ID, "email", user.Email)

	// The account exists either way; a failed send can be retried with ResendOTP.
	if err := s.sendOTP(ctx, user); err != nil {
		slog.Error("otp_send_failed", "user_id", user.ID, "error", err)
	}

	return user, nil
}

// VerifyOTP consumes a code and marks its owner verified.
func (s *Service) VerifyOTP(ctx context.Context, email, code string) (*models.User, error) {
	email = normalizeEmail(email)
	code = strings.TrimSpace(code)
	if email == "" || code == "" {
		return nil, ErrInvalidOTP
	}

	otp, err := s.repo.VerifyOTP(ctx, email, code, s.now())
	if errors.Is(err, repository.ErrNotFound) {
		slog.Warn("otp_rejected", "email", email)
		return nil, ErrInvalidOTP
	}
	if err != nil {
		return nil, fmt.Errorf("failed to verify code: %w", err)
	}

	user, err := s.repo.GetUserByID(ctx, otp.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	slog.Info("otp_verified", "user_id", user.ID)
	return user, nil
}

// ResendOTP replaces pending codes with a new one. Unknown or already
// verified addresses are silently ignored.
func (s *Service) ResendOTP(ctx context.Context, email string) error {
	user, err := s.repo.GetUserByEmail(ctx, normalizeEmail(email))
	if errors.Is(err, repository.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to get user: %w", err)
	}
	if user.IsVerified {
		return nil
	}

	if err := s.repo.InvalidateUserOTPs(ctx, user.ID); err != nil {
		return fmt.Errorf("failed to invalidate codes: %w", err)
	}
	return s.sendOTP(ctx, user)
}

func (s *Service) sendOTP(ctx context.Context, user *models.User) error {
	code, err := GenerateOTP()
	if err != nil {
		return err
	}

	otp := &models.OTP{
		UserID:    user.ID,
		Email:     user.Email,
		Code:      code,
		ExpiresAt: s.now().Add(OTPTTL),
	}
	if err := s.repo.CreateOTP(ctx, otp); err != nil {
		return fmt.Errorf("failed to store code: %w", err)
	}

	if err := s.mailer.SendOTP(ctx, user.Email, code); err != nil {
		return fmt.Errorf("failed to send code: %w", err)
	}
	return nil
}

// Login authenticates a user by email and password.
func (s *Service) Login(ctx context.Context, email, password string) (*models.User, error) {
	email = normalizeEmail(email)

	user, err := s.repo.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			// Constant-time: always perform bcrypt comparison to prevent timing attacks
			_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
			slog.Warn("login_failed", "email", email, "reason", "user_not_found")
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		slog.Warn("login_failed", "email", email, "reason", "invalid_password")
		return nil, ErrInvalidCredentials
	}

	if !user.IsVerified {
		slog.Info("login_failed", "email", email, "reason", "not_verified")
		return nil, ErrNotVerified
	}

	slog.Info("login_success", "user_id", user.ID, "email", email)
	return user, nil
}

// ChangePassword changes a user's password after checking the current one.
func (s *Service) ChangePassword(ctx context.Context, userID int64, currentPassword, newPassword, confirmPassword string) error {
	user, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to get user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(currentPassword)); err != nil {
		return validation.Errors{"current_password": "validation_current_password"}
	}

	errs := validation.Errors{}
	s.checkNewPassword(errs, "new_password", newPassword, confirmPassword, user.Username, user.Email)
	if err := errs.Err(); err != nil {
		return err
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(newPassword), s.hashCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	if err := s.repo.UpdateUserPassword(ctx, userID, string(passwordHash)); err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}

	// Sessions on other devices end with their refresh tokens.
	if err := s.repo.DeleteUserRefreshTokens(ctx, userID); err != nil {
		return fmt.Errorf("failed to revoke sessions: %w", err)
	}

	slog.Info("password_changed", "user_id", userID)
	return nil
}

// UpdateProfile changes the username and contact number.
func (s *Service) UpdateProfile(ctx context.Context, userID int64, username, contactNumber string) (*models.User, error) {
	username = strings.TrimSpace(username)
	contactNumber = strings.TrimSpace(contactNumber)

	errs := validation.Errors{}
	errs.Username("username", username)
	errs.Phone("contact_number", contactNumber)
	if err := errs.Err(); err != nil {
		return nil, err
	}

	taken, err := s.repo.UsernameTaken(ctx, username, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to check username: %w", err)
	}
	if taken {
		return nil, ErrUsernameTaken
	}

	if err := s.repo.UpdateUserProfile(ctx, userID, username, contactNumber); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrUsernameTaken
		}
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}

	return s.repo.GetUserByID(ctx, userID)
}

// CreateAdmin creates a verified admin account, skipping email verification.
func (s *Service) CreateAdmin(ctx context.Context, username, email, password string) (*models.User, error) {
	username = strings.TrimSpace(username)
	email = normalizeEmail(email)

	errs := validation.Errors{}
	errs.Username("username", username)
	if errs.Required("email", email) {
		errs.Email("email", email)
	}
	s.checkNewPassword(errs, "password", password, password, username, email)
	if err := errs.Err(); err != nil {
		return nil, err
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(password), s.hashCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		Username:     username,
		Email:        email,
		PasswordHash: string(passwordHash),
		IsVerified:   true,
		IsAdmin:      true,
	}
	if err := s.repo.CreateUser(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("failed to create admin: %w", err)
	}

	slog.Info("admin_created", "user_id", user.ID, "email", email)
	return user, nil
}

// SetAdmin grants or revokes admin status by email.
func (s *Service) SetAdmin(ctx context.Context, email string, isAdmin bool) error {
	user, err := s.repo.GetUserByEmail(ctx, normalizeEmail(email))
	if errors.Is(err, repository.ErrNotFound) {
		return ErrUserNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to get user: %w", err)
	}
	return s.repo.SetUserAdmin(ctx, user.ID, isAdmin)
}

func (s *Service) checkNewPassword(errs validation.Errors, field, password, confirm string, attrs ...string) {
	if !errs.Required(field, password) {
		return
	}
	if password != confirm {
		errs.Add("confirm_password", "password_"+ViolationMismatch)
	}

	var perr *PasswordError
	if err := s.passwordValidator.Validate(password, attrs...); errors.As(err, &perr) {
		errs.Add(field, perr.MessageIDs()[0])
	}
}

func (s *Service) domainAllowed(email string) bool {
	if len(s.config.AllowedEmailDomains) == 0 {
		return true
	}
	_, domain, _ := strings.Cut(email, "@")
	return slices.Contains(s.config.AllowedEmailDomains, domain)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
