package security

import (
	"strconv"
	"testing"
)

func TestNewOTPCode(t *testing.T) {
	for i := 0; i < 200; i++ {
		code, err := NewOTPCode()
		if err != nil {
			t.Fatalf("generate: %v", err)
		}
		if len(code) != 6 {
			t.Fatalf("expected 6 digits, got %q", code)
		}
		n, err := strconv.Atoi(code)
		if err != nil {
			t.Fatalf("non-numeric code %q", code)
		}
		if n < 1 || n > 999999 {
			t.Fatalf("code %d out of range", n)
		}
	}
}

func TestNewRandomString(t *testing.T) {
	a, err := NewRandomString(24)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	b, err := NewRandomString(24)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if a == b {
		t.Fatal("two random strings collided")
	}
}

func TestSignedState(t *testing.T) {
	const key = "state-signing-key"

	t.Run("round trip", func(t *testing.T) {
		signed := SignState("abc123", key)
		state, ok := VerifySignedState(signed, key)
		if !ok {
			t.Fatal("expected valid signature")
		}
		if state != "abc123" {
			t.Fatalf("state = %q", state)
		}
	})

	t.Run("tampered payload", func(t *testing.T) {
		signed := SignState("abc123", key)
		if _, ok := VerifySignedState("x"+signed, key); ok {
			t.Fatal("expected verification failure")
		}
	})

	t.Run("wrong key", func(t *testing.T) {
		signed := SignState("abc123", key)
		if _, ok := VerifySignedState(signed, "other-key"); ok {
			t.Fatal("expected verification failure")
		}
	})

	t.Run("garbage input", func(t *testing.T) {
		if _, ok := VerifySignedState("no-separator-here", key); ok {
			t.Fatal("expected verification failure")
		}
	})
}
