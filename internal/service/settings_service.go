package service

import (
	"context"
	"errors"
	"net/mail"
	"strings"

	"authflow/internal/domain"
	"authflow/internal/repository"
	"authflow/internal/security"
)

// SettingsForm carries the raw settings submission. Pointer fields are
// absent when nil; the password pair must be both present to take effect.
type SettingsForm struct {
	Name               *string          `json:"name,omitempty"`
	Email              *string          `json:"email,omitempty"`
	Role               *domain.UserRole `json:"role,omitempty"`
	IsTwoFactorEnabled *bool            `json:"is_two_factor_enabled,omitempty"`
	NewPassword        *string          `json:"new_password,omitempty"`
	ConfirmNewPassword *string          `json:"confirm_new_password,omitempty"`
}

// SettingsService validates and applies profile/security changes, then
// hands the non-password delta back so the caller can re-sync the live
// session claims.
type SettingsService struct {
	userRepo repository.UserRepository
	sessions *SessionService
}

func NewSettingsService(userRepo repository.UserRepository, sessions *SessionService) *SettingsService {
	return &SettingsService{userRepo: userRepo, sessions: sessions}
}

// UpdateSettings applies the form for the acting session. OAuth-linked
// accounts silently lose email, password and two-factor changes regardless
// of what was submitted. On success it returns the refreshed claims for
// re-signing into the session cookie.
func (s *SettingsService) UpdateSettings(ctx context.Context, actor *SessionUser, claims security.SessionClaims, form SettingsForm) (security.SessionClaims, error) {
	if err := validateSettingsForm(form); err != nil {
		return security.SessionClaims{}, err
	}

	if actor.IsOAuth {
		form.Email = nil
		form.NewPassword = nil
		form.ConfirmNewPassword = nil
		form.IsTwoFactorEnabled = nil
	}

	update := map[string]any{}
	delta := SettingsDelta{}
	if form.Role != nil {
		update["role"] = *form.Role
		delta.Role = form.Role
	}
	if form.Name != nil {
		update["name"] = *form.Name
		delta.Name = form.Name
	}
	if form.Email != nil {
		normalized := normalizeEmail(*form.Email)
		existing, err := s.userRepo.FindByEmail(normalized)
		if err != nil && !errors.Is(err, repository.ErrUserNotFound) {
			return security.SessionClaims{}, err
		}
		if existing != nil && existing.ID != actor.ID {
			return security.SessionClaims{}, ErrEmailAlreadyExists
		}
		update["email"] = normalized
		delta.Email = &normalized
	}
	if form.IsTwoFactorEnabled != nil {
		update["is_two_factor_enabled"] = *form.IsTwoFactorEnabled
		delta.IsTwoFactorEnabled = form.IsTwoFactorEnabled
	}
	if form.NewPassword != nil && *form.NewPassword != "" &&
		form.ConfirmNewPassword != nil && *form.ConfirmNewPassword != "" {
		hash, err := security.HashPassword(*form.NewPassword)
		if err != nil {
			return security.SessionClaims{}, err
		}
		update["password_hash"] = hash
	}

	if len(update) == 0 {
		return claims, nil
	}
	if err := s.userRepo.Update(actor.ID, update); err != nil {
		return security.SessionClaims{}, err
	}

	// Everything except the password hash flows back into the claims.
	if delta.Empty() {
		return claims, nil
	}
	return s.sessions.ApplyUpdate(claims, delta)
}

func validateSettingsForm(form SettingsForm) error {
	if form.Name != nil && strings.TrimSpace(*form.Name) == "" {
		return ErrInvalidInput
	}
	if form.Email != nil {
		if _, err := mail.ParseAddress(*form.Email); err != nil {
			return ErrInvalidInput
		}
	}
	if form.Role != nil && *form.Role != domain.RoleAdmin && *form.Role != domain.RoleUser {
		return ErrInvalidInput
	}
	hasNew := form.NewPassword != nil && *form.NewPassword != ""
	hasConfirm := form.ConfirmNewPassword != nil && *form.ConfirmNewPassword != ""
	if hasNew || hasConfirm {
		if !hasNew || !hasConfirm {
			return ErrInvalidInput
		}
		if err := validateNewPassword(*form.NewPassword, *form.ConfirmNewPassword); err != nil {
			return err
		}
	}
	return nil
}
