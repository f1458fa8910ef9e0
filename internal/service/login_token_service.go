package service

import (
	"errors"
	"time"

	"authflow/internal/domain"
	"authflow/internal/repository"
	"authflow/internal/security"

	"github.com/google/uuid"
)

// LoginTokenService issues, rate-limits and validates the short-lived
// tokens behind OTP two-factor login, email verification and password
// reset. The three flows share one state machine and differ only in the
// token format, expiry window and issuance cooldown.
type LoginTokenService struct {
	repo     repository.LoginTokenRepository
	ttl      time.Duration
	cooldown time.Duration
	generate func() (string, error)
	now      func() time.Time
}

func newLoginTokenService(repo repository.LoginTokenRepository, ttl, cooldown time.Duration, generate func() (string, error)) *LoginTokenService {
	return &LoginTokenService{repo: repo, ttl: ttl, cooldown: cooldown, generate: generate, now: time.Now}
}

// NewOTPTokenService manages the 6-digit two-factor codes.
func NewOTPTokenService(repo repository.LoginTokenRepository, ttl, cooldown time.Duration) *LoginTokenService {
	return newLoginTokenService(repo, ttl, cooldown, security.NewOTPCode)
}

// NewUUIDTokenService manages UUID-valued tokens (email verification and
// password reset).
func NewUUIDTokenService(repo repository.LoginTokenRepository, ttl, cooldown time.Duration) *LoginTokenService {
	return newLoginTokenService(repo, ttl, cooldown, func() (string, error) {
		return uuid.NewString(), nil
	})
}

// CanRequest reports whether the cooldown window measured from the most
// recent token's creation time has elapsed. The window applies regardless
// of whether that token has expired or been consumed.
func (s *LoginTokenService) CanRequest(email string) (bool, error) {
	latest, err := s.repo.FindLatestByEmail(email)
	if err != nil {
		if errors.Is(err, repository.ErrLoginTokenNotFound) {
			return true, nil
		}
		return false, err
	}
	return s.now().After(latest.CreatedAt.Add(s.cooldown)), nil
}

// Create issues a new token, superseding any prior ones for the email.
// A request inside the cooldown window fails without mutating state.
func (s *LoginTokenService) Create(email string) (*domain.LoginToken, error) {
	ok, err := s.CanRequest(email)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrTokenRateLimited
	}
	value, err := s.generate()
	if err != nil {
		return nil, err
	}
	token := &domain.LoginToken{
		Email:     email,
		Token:     value,
		ExpiresAt: s.now().Add(s.ttl),
		CreatedAt: s.now(),
	}
	if err := s.repo.Replace(token); err != nil {
		return nil, err
	}
	return token, nil
}

func (s *LoginTokenService) GetByEmail(email string) (*domain.LoginToken, error) {
	return s.repo.FindLatestByEmail(email)
}

// Validate looks a token up by value and checks its expiry. Consumption is
// the caller's responsibility: delete the email's token set only after the
// action the token guards has succeeded.
func (s *LoginTokenService) Validate(value string) (*domain.LoginToken, error) {
	token, err := s.repo.FindByToken(value)
	if err != nil {
		if errors.Is(err, repository.ErrLoginTokenNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, err
	}
	if token.Expired(s.now()) {
		return nil, ErrTokenExpired
	}
	return token, nil
}

func (s *LoginTokenService) DeleteAll(email string) (int64, error) {
	return s.repo.DeleteByEmail(email)
}
