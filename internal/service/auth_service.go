package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"net/url"
	"strings"

	"authflow/internal/config"
	"authflow/internal/domain"
	"authflow/internal/repository"
	"authflow/internal/security"

	"github.com/google/uuid"
)

// AuthService owns the credential authentication state machine and the
// token-backed flows around it: OTP two-factor, email verification and
// password reset.
type AuthService struct {
	cfg          *config.Config
	userRepo     repository.UserRepository
	otpTokens    *LoginTokenService
	verifyTokens *LoginTokenService
	resetTokens  *LoginTokenService
	mailer       Mailer
}

func NewAuthService(
	cfg *config.Config,
	userRepo repository.UserRepository,
	otpTokens *LoginTokenService,
	verifyTokens *LoginTokenService,
	resetTokens *LoginTokenService,
	mailer Mailer,
) *AuthService {
	return &AuthService{
		cfg:          cfg,
		userRepo:     userRepo,
		otpTokens:    otpTokens,
		verifyTokens: verifyTokens,
		resetTokens:  resetTokens,
		mailer:       mailer,
	}
}

// Authenticate runs the credential checks in order, each a hard stop:
// user lookup, email-verification gate, password hash comparison, then the
// optional OTP second factor. Lookup misses and password mismatches both
// come back as ErrInvalidCredentials; the distinction is logged here and
// goes no further.
func (s *AuthService) Authenticate(ctx context.Context, email, password, code string) (*domain.User, error) {
	email = normalizeEmail(email)
	if err := validateEmail(email); err != nil {
		return nil, ErrInvalidCredentials
	}
	if password == "" {
		return nil, ErrInvalidCredentials
	}

	user, err := s.userRepo.FindByEmail(email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			slog.DebugContext(ctx, "login rejected", "reason", "unknown_email")
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if !user.EmailVerified() {
		return nil, &EmailNotVerifiedError{Email: email}
	}

	if !user.HasPassword() {
		// OAuth-only account; there is no hash to compare against.
		slog.DebugContext(ctx, "login rejected", "reason", "no_password_hash")
		return nil, ErrInvalidCredentials
	}
	ok, err := security.VerifyPassword(*user.PasswordHash, password)
	if err != nil {
		return nil, err
	}
	if !ok {
		slog.DebugContext(ctx, "login rejected", "reason", "password_mismatch")
		return nil, ErrInvalidCredentials
	}

	if !user.IsTwoFactorEnabled {
		return user, nil
	}

	if code == "" {
		return nil, ErrTwoFactorCodeRequired
	}

	// Reviewer backdoor: the configured demo account accepts any code.
	if s.isDemoAccount(email) {
		if _, err := s.otpTokens.DeleteAll(email); err != nil {
			return nil, err
		}
		return user, nil
	}

	token, err := s.otpTokens.GetByEmail(email)
	if err != nil {
		if errors.Is(err, repository.ErrLoginTokenNotFound) {
			return nil, ErrInvalidAuthenticationCode
		}
		return nil, err
	}
	if token.Expired(s.otpTokens.now()) || code != token.Token {
		return nil, ErrInvalidAuthenticationCode
	}

	// Single use: a matched code invalidates the whole token set.
	if _, err := s.otpTokens.DeleteAll(email); err != nil {
		return nil, err
	}
	return user, nil
}

type RegisterInput struct {
	Name            string
	Email           string
	Password        string
	ConfirmPassword string
}

// Register creates a credentials account and sends the email verification
// link. The account starts unverified and cannot sign in until confirmed.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) error {
	in.Email = normalizeEmail(in.Email)
	if err := validateEmail(in.Email); err != nil {
		return ErrInvalidInput
	}
	if strings.TrimSpace(in.Name) == "" {
		return ErrInvalidInput
	}
	if err := validateNewPassword(in.Password, in.ConfirmPassword); err != nil {
		return err
	}

	exists, err := s.userRepo.ExistsByEmail(in.Email)
	if err != nil {
		return err
	}
	if exists {
		return ErrEmailAlreadyExists
	}

	hash, err := security.HashPassword(in.Password)
	if err != nil {
		return err
	}
	name := strings.TrimSpace(in.Name)
	user := &domain.User{
		Name:         &name,
		Email:        &in.Email,
		PasswordHash: &hash,
		Role:         domain.RoleUser,
	}
	if err := s.userRepo.Create(user); err != nil {
		return err
	}

	return s.RequestEmailVerification(ctx, in.Email)
}

// RequestOTP issues a fresh two-factor code and emails it, subject to the
// 60 second cooldown.
func (s *AuthService) RequestOTP(ctx context.Context, email string) error {
	email = normalizeEmail(email)
	if err := validateEmail(email); err != nil {
		return ErrInvalidInput
	}
	exists, err := s.userRepo.ExistsByEmail(email)
	if err != nil {
		return err
	}
	if !exists {
		return ErrAccountNotFound
	}

	token, err := s.otpTokens.Create(email)
	if err != nil {
		return err
	}

	body := fmt.Sprintf("Your OTP code is %s. This code will expire in 5 minutes.", token.Token)
	if err := s.deliver(ctx, email, "OTP Code", body); err != nil {
		return ErrEmailDelivery
	}
	return nil
}

// RequestEmailVerification issues a verification link token, subject to the
// 5 minute cooldown.
func (s *AuthService) RequestEmailVerification(ctx context.Context, email string) error {
	email = normalizeEmail(email)
	if err := validateEmail(email); err != nil {
		return ErrInvalidInput
	}
	exists, err := s.userRepo.ExistsByEmail(email)
	if err != nil {
		return err
	}
	if !exists {
		return ErrAccountNotFound
	}

	token, err := s.verifyTokens.Create(email)
	if err != nil {
		return err
	}

	link := s.flowURL("/auth/verify-email", token.Token)
	body := fmt.Sprintf(`Welcome! Click <a href=%q>here</a> to verify your email address.`, link)
	if err := s.deliver(ctx, email, "Verify your email address", body); err != nil {
		return ErrEmailDelivery
	}
	return nil
}

// ConfirmEmailVerification validates the link token, stamps the user's
// email as verified, then consumes the token set.
func (s *AuthService) ConfirmEmailVerification(ctx context.Context, tokenValue string) error {
	if err := validateUUID(tokenValue); err != nil {
		return ErrInvalidToken
	}
	token, err := s.verifyTokens.Validate(tokenValue)
	if err != nil {
		return err
	}
	if err := s.userRepo.MarkEmailVerified(token.Email); err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return ErrInvalidToken
		}
		return err
	}
	_, err = s.verifyTokens.DeleteAll(token.Email)
	return err
}

// RequestPasswordReset issues a reset link token. OAuth-only accounts have
// no password to reset and are refused.
func (s *AuthService) RequestPasswordReset(ctx context.Context, email string) error {
	email = normalizeEmail(email)
	if err := validateEmail(email); err != nil {
		return ErrInvalidInput
	}
	user, err := s.userRepo.FindByEmail(email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return ErrAccountNotFound
		}
		return err
	}
	if !user.HasPassword() {
		return ErrOAuthAccountNoReset
	}

	token, err := s.resetTokens.Create(email)
	if err != nil {
		return err
	}

	link := s.flowURL("/auth/reset-password", token.Token)
	body := fmt.Sprintf(`A password reset link has been requested for your account. Click <a href=%q>here</a> to reset your password. If you did not request this, please ignore this email.`, link)
	if err := s.deliver(ctx, email, "Reset your password", body); err != nil {
		return ErrEmailDelivery
	}
	return nil
}

// CompletePasswordReset validates the reset token, stores the new password
// hash, then consumes the token set.
func (s *AuthService) CompletePasswordReset(ctx context.Context, tokenValue, newPassword, confirmPassword string) error {
	if err := validateUUID(tokenValue); err != nil {
		return ErrInvalidToken
	}
	if err := validateNewPassword(newPassword, confirmPassword); err != nil {
		return err
	}
	token, err := s.resetTokens.Validate(tokenValue)
	if err != nil {
		return err
	}
	user, err := s.userRepo.FindByEmail(token.Email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return ErrInvalidToken
		}
		return err
	}
	if !user.HasPassword() {
		return ErrOAuthAccountNoReset
	}

	hash, err := security.HashPassword(newPassword)
	if err != nil {
		return err
	}
	if err := s.userRepo.Update(user.ID, map[string]any{"password_hash": hash}); err != nil {
		return err
	}
	_, err = s.resetTokens.DeleteAll(token.Email)
	return err
}

func (s *AuthService) isDemoAccount(email string) bool {
	return s.cfg.DemoMode && s.cfg.DemoBypassEmail != "" && email == s.cfg.DemoBypassEmail
}

// deliver sends the message unless the address is the demo account, which
// never receives real email.
func (s *AuthService) deliver(ctx context.Context, to, subject, html string) error {
	if s.isDemoAccount(to) {
		return nil
	}
	return s.mailer.Send(ctx, to, subject, html)
}

func (s *AuthService) flowURL(path, token string) string {
	return s.cfg.AppURL + path + "?token=" + url.QueryEscape(token)
}

func normalizeEmail(email string) string {
	return strings.TrimSpace(strings.ToLower(email))
}

func validateEmail(email string) error {
	if email == "" {
		return fmt.Errorf("email is required")
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return fmt.Errorf("invalid email")
	}
	return nil
}

func validateNewPassword(password, confirm string) error {
	if len(password) < 8 {
		return ErrInvalidInput
	}
	if password != confirm {
		return ErrInvalidInput
	}
	return nil
}

func validateUUID(value string) error {
	if _, err := uuid.Parse(value); err != nil {
		return fmt.Errorf("invalid token format")
	}
	return nil
}
