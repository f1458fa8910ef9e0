package service

import (
	"errors"
	"testing"

	"authflow/internal/domain"
)

func TestClaimsForUser(t *testing.T) {
	svc := NewSessionService()
	email := "alice@example.com"
	user := &domain.User{ID: 7, Email: &email, Role: domain.RoleAdmin, IsTwoFactorEnabled: true}

	t.Run("credentials login has no provider claims", func(t *testing.T) {
		claims := svc.ClaimsForUser(user, nil)
		if claims.Subject != "7" {
			t.Fatalf("subject = %q", claims.Subject)
		}
		if claims.Role != "ADMIN" || !claims.IsTwoFactorEnabled {
			t.Fatalf("unexpected claims %+v", claims)
		}
		if claims.Provider != "" || claims.IsOAuth {
			t.Fatalf("credentials login must not carry oauth claims: %+v", claims)
		}
	})

	t.Run("known oauth provider sets isOAuth", func(t *testing.T) {
		claims := svc.ClaimsForUser(user, &domain.OAuthAccount{Provider: "github"})
		if claims.Provider != "github" || !claims.IsOAuth {
			t.Fatalf("unexpected claims %+v", claims)
		}
	})

	t.Run("unknown provider does not count as oauth", func(t *testing.T) {
		claims := svc.ClaimsForUser(user, &domain.OAuthAccount{Provider: "gitlab"})
		if claims.Provider != "gitlab" {
			t.Fatalf("provider = %q", claims.Provider)
		}
		if claims.IsOAuth {
			t.Fatal("gitlab is not in the oauth provider set")
		}
	})
}

func TestProject(t *testing.T) {
	svc := NewSessionService()

	t.Run("round trip", func(t *testing.T) {
		email := "alice@example.com"
		user := &domain.User{ID: 42, Email: &email, Role: domain.RoleUser, IsTwoFactorEnabled: true}
		claims := svc.ClaimsForUser(user, &domain.OAuthAccount{Provider: "google"})

		projected, err := svc.Project(&claims)
		if err != nil {
			t.Fatalf("project: %v", err)
		}
		if projected.ID != 42 || projected.Role != domain.RoleUser || !projected.IsTwoFactorEnabled {
			t.Fatalf("unexpected projection %+v", projected)
		}
		if projected.Provider != "google" || !projected.IsOAuth {
			t.Fatalf("unexpected oauth projection %+v", projected)
		}
	})

	t.Run("non-numeric subject rejected", func(t *testing.T) {
		claims := svc.ClaimsForUser(&domain.User{ID: 1}, nil)
		claims.Subject = "not-a-number"
		if _, err := svc.Project(&claims); err == nil {
			t.Fatal("expected projection error")
		}
	})
}

func TestApplyUpdate(t *testing.T) {
	svc := NewSessionService()
	base := svc.ClaimsForUser(&domain.User{ID: 1, Role: domain.RoleUser}, nil)

	t.Run("role and two-factor merge into claims", func(t *testing.T) {
		role := domain.RoleAdmin
		enabled := true
		updated, err := svc.ApplyUpdate(base, SettingsDelta{Role: &role, IsTwoFactorEnabled: &enabled})
		if err != nil {
			t.Fatalf("apply: %v", err)
		}
		if updated.Role != "ADMIN" || !updated.IsTwoFactorEnabled {
			t.Fatalf("unexpected claims %+v", updated)
		}
		if updated.Subject != base.Subject {
			t.Fatal("subject must be preserved")
		}
	})

	t.Run("empty delta is a no-op", func(t *testing.T) {
		updated, err := svc.ApplyUpdate(base, SettingsDelta{})
		if err != nil {
			t.Fatalf("apply: %v", err)
		}
		if updated.Role != base.Role || updated.IsTwoFactorEnabled != base.IsTwoFactorEnabled || updated.Subject != base.Subject {
			t.Fatalf("expected unchanged claims, got %+v", updated)
		}
	})

	t.Run("invalid role is fatal and merges nothing", func(t *testing.T) {
		role := domain.UserRole("SUPERUSER")
		if _, err := svc.ApplyUpdate(base, SettingsDelta{Role: &role}); !errors.Is(err, ErrInvalidSessionDelta) {
			t.Fatalf("expected ErrInvalidSessionDelta, got %v", err)
		}
	})

	t.Run("invalid email is fatal even alongside valid fields", func(t *testing.T) {
		role := domain.RoleAdmin
		bad := "not-an-email"
		if _, err := svc.ApplyUpdate(base, SettingsDelta{Role: &role, Email: &bad}); !errors.Is(err, ErrInvalidSessionDelta) {
			t.Fatalf("expected ErrInvalidSessionDelta, got %v", err)
		}
	})
}
