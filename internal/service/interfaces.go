package service

import (
	"context"

	"authflow/internal/domain"
	"authflow/internal/security"
)

type AuthServiceInterface interface {
	Authenticate(ctx context.Context, email, password, code string) (*domain.User, error)
	Register(ctx context.Context, in RegisterInput) error
	RequestOTP(ctx context.Context, email string) error
	RequestEmailVerification(ctx context.Context, email string) error
	ConfirmEmailVerification(ctx context.Context, tokenValue string) error
	RequestPasswordReset(ctx context.Context, email string) error
	CompletePasswordReset(ctx context.Context, tokenValue, newPassword, confirmPassword string) error
}

type SettingsServiceInterface interface {
	UpdateSettings(ctx context.Context, actor *SessionUser, claims security.SessionClaims, form SettingsForm) (security.SessionClaims, error)
}
