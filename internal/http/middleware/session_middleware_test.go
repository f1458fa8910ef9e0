package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"authflow/internal/domain"
	"authflow/internal/security"
	"authflow/internal/service"
)

func newSessionFixture(t *testing.T) (*security.SessionTokenManager, *service.SessionService) {
	t.Helper()
	tokens := security.NewSessionTokenManager("authflow", "authflow-web", "0123456789abcdef0123456789abcdef", time.Hour)
	return tokens, service.NewSessionService()
}

func signedSession(t *testing.T, tokens *security.SessionTokenManager, sessions *service.SessionService, role domain.UserRole) string {
	t.Helper()
	user := &domain.User{Role: role, IsTwoFactorEnabled: true}
	user.ID = 42
	raw, err := tokens.Sign(sessions.ClaimsForUser(user, nil))
	if err != nil {
		t.Fatalf("sign session: %v", err)
	}
	return raw
}

func TestSessionMiddleware(t *testing.T) {
	tokens, sessions := newSessionFixture(t)

	var seen *service.SessionUser
	handler := SessionMiddleware(tokens, sessions)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = SessionFromContext(r.Context())
		if _, ok := ClaimsFromContext(r.Context()); !ok {
			t.Error("claims missing from context")
		}
		w.WriteHeader(http.StatusOK)
	}))

	t.Run("valid cookie passes and exposes the session user", func(t *testing.T) {
		seen = nil
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		req.AddCookie(&http.Cookie{Name: security.SessionCookieName, Value: signedSession(t, tokens, sessions, domain.RoleUser)})
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		if seen == nil {
			t.Fatal("session user not set")
		}
		if seen.ID != 42 || seen.Role != domain.RoleUser || !seen.IsTwoFactorEnabled {
			t.Fatalf("unexpected session user: %+v", seen)
		}
	})

	t.Run("bearer token works without a cookie", func(t *testing.T) {
		seen = nil
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		req.Header.Set("Authorization", "Bearer "+signedSession(t, tokens, sessions, domain.RoleUser))
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		if seen == nil || seen.ID != 42 {
			t.Fatalf("unexpected session user: %+v", seen)
		}
	})

	t.Run("missing token is rejected", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", rec.Code)
		}
	})

	t.Run("garbage token is rejected", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		req.AddCookie(&http.Cookie{Name: security.SessionCookieName, Value: "not-a-jwt"})
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", rec.Code)
		}
	})

	t.Run("token from a different secret is rejected", func(t *testing.T) {
		other := security.NewSessionTokenManager("authflow", "authflow-web", "ffffffffffffffffffffffffffffffff", time.Hour)
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		req.AddCookie(&http.Cookie{Name: security.SessionCookieName, Value: signedSession(t, other, sessions, domain.RoleUser)})
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", rec.Code)
		}
	})

	t.Run("expired token is rejected", func(t *testing.T) {
		expired := security.NewSessionTokenManager("authflow", "authflow-web", "0123456789abcdef0123456789abcdef", -time.Minute)
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		req.AddCookie(&http.Cookie{Name: security.SessionCookieName, Value: signedSession(t, expired, sessions, domain.RoleUser)})
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", rec.Code)
		}
	})
}

func TestRequireRole(t *testing.T) {
	tokens, sessions := newSessionFixture(t)
	chain := SessionMiddleware(tokens, sessions)(RequireRole(string(domain.RoleAdmin))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})))

	do := func(raw string) int {
		req := httptest.NewRequest(http.MethodGet, "/admin/ping", nil)
		if raw != "" {
			req.AddCookie(&http.Cookie{Name: security.SessionCookieName, Value: raw})
		}
		rec := httptest.NewRecorder()
		chain.ServeHTTP(rec, req)
		return rec.Code
	}

	t.Run("admin passes", func(t *testing.T) {
		if code := do(signedSession(t, tokens, sessions, domain.RoleAdmin)); code != http.StatusOK {
			t.Fatalf("expected 200, got %d", code)
		}
	})

	t.Run("user is forbidden", func(t *testing.T) {
		if code := do(signedSession(t, tokens, sessions, domain.RoleUser)); code != http.StatusForbidden {
			t.Fatalf("expected 403, got %d", code)
		}
	})

	t.Run("anonymous is unauthorized", func(t *testing.T) {
		if code := do(""); code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", code)
		}
	})
}
