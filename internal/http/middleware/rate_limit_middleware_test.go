package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestLocalFixedWindowLimiter(t *testing.T) {
	t.Run("allows up to the limit then rejects", func(t *testing.T) {
		limiter := NewLocalFixedWindowLimiter()
		ctx := context.Background()
		for i := 0; i < 3; i++ {
			ok, _, err := limiter.Allow(ctx, "1.2.3.4", 3, time.Minute)
			if err != nil {
				t.Fatalf("allow %d: %v", i, err)
			}
			if !ok {
				t.Fatalf("request %d should be allowed", i)
			}
		}
		ok, retry, err := limiter.Allow(ctx, "1.2.3.4", 3, time.Minute)
		if err != nil {
			t.Fatalf("allow: %v", err)
		}
		if ok {
			t.Fatal("fourth request should be rejected")
		}
		if retry <= 0 || retry > time.Minute {
			t.Fatalf("retry-after out of range: %v", retry)
		}
	})

	t.Run("keys are independent", func(t *testing.T) {
		limiter := NewLocalFixedWindowLimiter()
		ctx := context.Background()
		if ok, _, _ := limiter.Allow(ctx, "a", 1, time.Minute); !ok {
			t.Fatal("first key should be allowed")
		}
		if ok, _, _ := limiter.Allow(ctx, "b", 1, time.Minute); !ok {
			t.Fatal("second key should be allowed")
		}
		if ok, _, _ := limiter.Allow(ctx, "a", 1, time.Minute); ok {
			t.Fatal("first key should now be limited")
		}
	})
}

func TestRateLimiterMiddleware(t *testing.T) {
	rl := NewRateLimiter(2, time.Minute)
	handler := rl.Middleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	do := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec
	}

	if rec := do(); rec.Code != http.StatusOK {
		t.Fatalf("first request: %d", rec.Code)
	}
	if rec := do(); rec.Code != http.StatusOK {
		t.Fatalf("second request: %d", rec.Code)
	}
	rec := do()
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Fatal("expected Retry-After header")
	}
}

type failingLimiter struct{}

func (failingLimiter) Allow(context.Context, string, int, time.Duration) (bool, time.Duration, error) {
	return false, 0, context.DeadlineExceeded
}

func TestRateLimiterFailureModes(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	do := func(rl *RateLimiter) int {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		rec := httptest.NewRecorder()
		rl.Middleware()(next).ServeHTTP(rec, req)
		return rec.Code
	}

	t.Run("fail open allows when backend errors", func(t *testing.T) {
		rl := NewScopedRateLimiter(failingLimiter{}, 1, time.Minute, FailOpen, "api")
		if code := do(rl); code != http.StatusOK {
			t.Fatalf("expected 200, got %d", code)
		}
	})

	t.Run("fail closed rejects when backend errors", func(t *testing.T) {
		rl := NewScopedRateLimiter(failingLimiter{}, 1, time.Minute, FailClosed, "auth")
		if code := do(rl); code != http.StatusTooManyRequests {
			t.Fatalf("expected 429, got %d", code)
		}
	})
}

func TestRateLimiterSeparatesClients(t *testing.T) {
	rl := NewRateLimiter(1, time.Minute)
	handler := rl.Middleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	do := func(addr string) int {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = addr
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec.Code
	}

	if code := do("10.0.0.1:1"); code != http.StatusOK {
		t.Fatalf("client a first: %d", code)
	}
	if code := do("10.0.0.2:1"); code != http.StatusOK {
		t.Fatalf("client b first: %d", code)
	}
	if code := do("10.0.0.1:2"); code != http.StatusTooManyRequests {
		t.Fatalf("client a second: %d", code)
	}
}
