package service

import (
	"net/mail"
	"strconv"

	"authflow/internal/domain"
	"authflow/internal/security"
)

// Providers whose accounts count as OAuth-linked for session claims.
var oauthProviders = map[string]bool{
	"github": true,
	"google": true,
}

// SessionUser is the externally visible projection of the session claims.
// It never carries the password hash or raw token values.
type SessionUser struct {
	ID                 uint            `json:"id"`
	Role               domain.UserRole `json:"role"`
	IsTwoFactorEnabled bool            `json:"is_two_factor_enabled"`
	Provider           string          `json:"provider,omitempty"`
	IsOAuth            bool            `json:"is_oauth"`
}

// SettingsDelta is the allow-list of claim fields a settings update may
// change. The password hash deliberately has no claim counterpart.
type SettingsDelta struct {
	Name               *string          `json:"name,omitempty"`
	Email              *string          `json:"email,omitempty"`
	Role               *domain.UserRole `json:"role,omitempty"`
	IsTwoFactorEnabled *bool            `json:"is_two_factor_enabled,omitempty"`
}

func (d SettingsDelta) Empty() bool {
	return d.Name == nil && d.Email == nil && d.Role == nil && d.IsTwoFactorEnabled == nil
}

// SessionService derives session claims from the user record and keeps them
// in sync across explicit settings updates. Claims are per-request-chain
// immutable snapshots; they go stale against the user record until the next
// sign-in or update event.
type SessionService struct{}

func NewSessionService() *SessionService { return &SessionService{} }

// ClaimsForUser builds the initial claim set at sign-in. The OAuth account
// is nil for credentials logins.
func (s *SessionService) ClaimsForUser(user *domain.User, account *domain.OAuthAccount) security.SessionClaims {
	claims := security.SessionClaims{
		Role:               string(user.Role),
		IsTwoFactorEnabled: user.IsTwoFactorEnabled,
	}
	claims.Subject = strconv.FormatUint(uint64(user.ID), 10)
	if account != nil {
		claims.Provider = account.Provider
		claims.IsOAuth = oauthProviders[account.Provider]
	}
	return claims
}

// Project re-derives the visible session object from parsed claims. Done on
// every authorized request rather than cached process-wide.
func (s *SessionService) Project(claims *security.SessionClaims) (*SessionUser, error) {
	id, err := strconv.ParseUint(claims.Subject, 10, 64)
	if err != nil {
		return nil, ErrInvalidSessionDelta
	}
	return &SessionUser{
		ID:                 uint(id),
		Role:               domain.UserRole(claims.Role),
		IsTwoFactorEnabled: claims.IsTwoFactorEnabled,
		Provider:           claims.Provider,
		IsOAuth:            claims.IsOAuth,
	}, nil
}

// ApplyUpdate merges a validated settings delta into existing claims. A
// delta that fails validation is fatal to the update; nothing merges.
func (s *SessionService) ApplyUpdate(claims security.SessionClaims, delta SettingsDelta) (security.SessionClaims, error) {
	if err := validateSettingsDelta(delta); err != nil {
		return security.SessionClaims{}, err
	}
	if delta.Role != nil {
		claims.Role = string(*delta.Role)
	}
	if delta.IsTwoFactorEnabled != nil {
		claims.IsTwoFactorEnabled = *delta.IsTwoFactorEnabled
	}
	// Name and email changes don't alter authorization claims, but the
	// allow-list still gates them so unexpected fields can never merge.
	return claims, nil
}

func validateSettingsDelta(delta SettingsDelta) error {
	if delta.Role != nil && *delta.Role != domain.RoleAdmin && *delta.Role != domain.RoleUser {
		return ErrInvalidSessionDelta
	}
	if delta.Email != nil {
		if _, err := mail.ParseAddress(*delta.Email); err != nil {
			return ErrInvalidSessionDelta
		}
	}
	if delta.Name != nil && *delta.Name == "" {
		return ErrInvalidSessionDelta
	}
	return nil
}
