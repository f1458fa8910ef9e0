package service

import (
	"errors"
	"testing"
	"time"
)

type tokenServiceFixture struct {
	repo *fakeTokenRepo
	svc  *LoginTokenService
	now  time.Time
}

func newTokenServiceFixture(ttl, cooldown time.Duration) *tokenServiceFixture {
	fx := &tokenServiceFixture{
		repo: newFakeTokenRepo(),
		now:  time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	fx.svc = NewOTPTokenService(fx.repo, ttl, cooldown)
	fx.svc.now = func() time.Time { return fx.now }
	return fx
}

func (fx *tokenServiceFixture) advance(d time.Duration) { fx.now = fx.now.Add(d) }

func TestLoginTokenServiceCreate(t *testing.T) {
	t.Run("generates six digit code", func(t *testing.T) {
		fx := newTokenServiceFixture(5*time.Minute, 60*time.Second)
		token, err := fx.svc.Create("a@example.com")
		if err != nil {
			t.Fatalf("create: %v", err)
		}
		if len(token.Token) != 6 {
			t.Fatalf("expected 6-digit code, got %q", token.Token)
		}
		if got := token.ExpiresAt.Sub(fx.now); got != 5*time.Minute {
			t.Fatalf("expected 5m expiry, got %v", got)
		}
	})

	t.Run("second create within cooldown is rejected without mutation", func(t *testing.T) {
		fx := newTokenServiceFixture(5*time.Minute, 60*time.Second)
		first, err := fx.svc.Create("a@example.com")
		if err != nil {
			t.Fatalf("create: %v", err)
		}

		fx.advance(10 * time.Second)
		if _, err := fx.svc.Create("a@example.com"); !errors.Is(err, ErrTokenRateLimited) {
			t.Fatalf("expected ErrTokenRateLimited, got %v", err)
		}
		if fx.repo.count("a@example.com") != 1 {
			t.Fatalf("expected 1 live token, got %d", fx.repo.count("a@example.com"))
		}
		latest, err := fx.svc.GetByEmail("a@example.com")
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		if latest.Token != first.Token {
			t.Fatal("rate-limited create must not replace the live token")
		}
	})

	t.Run("create after cooldown replaces prior token", func(t *testing.T) {
		fx := newTokenServiceFixture(5*time.Minute, 60*time.Second)
		first, err := fx.svc.Create("a@example.com")
		if err != nil {
			t.Fatalf("create: %v", err)
		}

		fx.advance(61 * time.Second)
		second, err := fx.svc.Create("a@example.com")
		if err != nil {
			t.Fatalf("create after cooldown: %v", err)
		}
		if fx.repo.count("a@example.com") != 1 {
			t.Fatalf("expected 1 live token, got %d", fx.repo.count("a@example.com"))
		}
		if second.Token == first.Token {
			t.Fatal("expected a fresh token value")
		}
		if _, err := fx.svc.Validate(first.Token); !errors.Is(err, ErrInvalidToken) {
			t.Fatalf("superseded token should be gone, got %v", err)
		}
	})

	t.Run("cooldown applies even when the prior token has expired", func(t *testing.T) {
		fx := newTokenServiceFixture(5*time.Second, 60*time.Second)
		if _, err := fx.svc.Create("a@example.com"); err != nil {
			t.Fatalf("create: %v", err)
		}
		fx.advance(30 * time.Second) // token expired, cooldown not elapsed
		if _, err := fx.svc.Create("a@example.com"); !errors.Is(err, ErrTokenRateLimited) {
			t.Fatalf("expected ErrTokenRateLimited, got %v", err)
		}
	})

	t.Run("independent emails do not share cooldowns", func(t *testing.T) {
		fx := newTokenServiceFixture(5*time.Minute, 60*time.Second)
		if _, err := fx.svc.Create("a@example.com"); err != nil {
			t.Fatalf("create a: %v", err)
		}
		if _, err := fx.svc.Create("b@example.com"); err != nil {
			t.Fatalf("create b: %v", err)
		}
	})
}

func TestLoginTokenServiceValidate(t *testing.T) {
	t.Run("unknown token", func(t *testing.T) {
		fx := newTokenServiceFixture(5*time.Minute, 60*time.Second)
		if _, err := fx.svc.Validate("000000"); !errors.Is(err, ErrInvalidToken) {
			t.Fatalf("expected ErrInvalidToken, got %v", err)
		}
	})

	t.Run("expired token", func(t *testing.T) {
		fx := newTokenServiceFixture(5*time.Minute, 60*time.Second)
		token, err := fx.svc.Create("a@example.com")
		if err != nil {
			t.Fatalf("create: %v", err)
		}
		fx.advance(6 * time.Minute)
		if _, err := fx.svc.Validate(token.Token); !errors.Is(err, ErrTokenExpired) {
			t.Fatalf("expected ErrTokenExpired, got %v", err)
		}
	})

	t.Run("live token validates and survives until consumed", func(t *testing.T) {
		fx := newTokenServiceFixture(5*time.Minute, 60*time.Second)
		token, err := fx.svc.Create("a@example.com")
		if err != nil {
			t.Fatalf("create: %v", err)
		}
		got, err := fx.svc.Validate(token.Token)
		if err != nil {
			t.Fatalf("validate: %v", err)
		}
		if got.Email != "a@example.com" {
			t.Fatalf("unexpected email %q", got.Email)
		}

		// Validation alone must not consume.
		if _, err := fx.svc.Validate(token.Token); err != nil {
			t.Fatalf("second validate: %v", err)
		}

		deleted, err := fx.svc.DeleteAll("a@example.com")
		if err != nil {
			t.Fatalf("delete all: %v", err)
		}
		if deleted != 1 {
			t.Fatalf("expected 1 deleted, got %d", deleted)
		}
		if _, err := fx.svc.Validate(token.Token); !errors.Is(err, ErrInvalidToken) {
			t.Fatalf("consumed token should be gone, got %v", err)
		}
	})
}

func TestUUIDTokenServiceFormat(t *testing.T) {
	repo := newFakeTokenRepo()
	svc := NewUUIDTokenService(repo, 15*time.Minute, 300*time.Second)
	token, err := svc.Create("a@example.com")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if len(token.Token) != 36 {
		t.Fatalf("expected uuid token, got %q", token.Token)
	}
}
