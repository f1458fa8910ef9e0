package middleware

import (
	"context"
	"net/http"
	"strings"

	"authflow/internal/http/response"
	"authflow/internal/security"
	"authflow/internal/service"
)

type contextKey string

const (
	claimsContextKey  contextKey = "session_claims"
	sessionContextKey contextKey = "session_user"
)

// SessionMiddleware parses the session cookie (or bearer token), projects
// the claims into a request-scoped session object, and rejects the request
// when neither yields a valid session. The projection happens per request;
// nothing is cached process-wide.
func SessionMiddleware(tokens *security.SessionTokenManager, sessions *service.SessionService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := security.GetCookie(r, security.SessionCookieName)
			if raw == "" {
				auth := r.Header.Get("Authorization")
				if strings.HasPrefix(strings.ToLower(auth), "bearer ") {
					raw = strings.TrimSpace(auth[7:])
				}
			}
			if raw == "" {
				response.Error(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "missing session token", nil)
				return
			}
			claims, err := tokens.Parse(raw)
			if err != nil {
				response.Error(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "invalid session token", nil)
				return
			}
			user, err := sessions.Project(claims)
			if err != nil {
				response.Error(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "invalid session token", nil)
				return
			}
			ctx := context.WithValue(r.Context(), claimsContextKey, claims)
			ctx = context.WithValue(ctx, sessionContextKey, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func ClaimsFromContext(ctx context.Context) (*security.SessionClaims, bool) {
	c, ok := ctx.Value(claimsContextKey).(*security.SessionClaims)
	return c, ok
}

func SessionFromContext(ctx context.Context) (*service.SessionUser, bool) {
	u, ok := ctx.Value(sessionContextKey).(*service.SessionUser)
	return u, ok
}

// RequireRole gates a subtree on the session's role claim.
func RequireRole(role string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, ok := SessionFromContext(r.Context())
			if !ok {
				response.Error(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "missing session", nil)
				return
			}
			if string(user.Role) != role {
				response.Error(w, r, http.StatusForbidden, "FORBIDDEN", "insufficient role", nil)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
