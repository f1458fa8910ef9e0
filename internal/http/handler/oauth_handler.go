package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"authflow/internal/http/response"
	"authflow/internal/observability"
	"authflow/internal/security"
	"authflow/internal/service"
)

const oauthStateCookie = "oauth_state"

type OAuthHandler struct {
	oauthSvc  *service.OAuthService
	sessions  *service.SessionService
	tokens    *security.SessionTokenManager
	cookieMgr *security.CookieManager
	stateKey  string
}

func NewOAuthHandler(
	oauthSvc *service.OAuthService,
	sessions *service.SessionService,
	tokens *security.SessionTokenManager,
	cookieMgr *security.CookieManager,
	stateKey string,
) *OAuthHandler {
	return &OAuthHandler{oauthSvc: oauthSvc, sessions: sessions, tokens: tokens, cookieMgr: cookieMgr, stateKey: stateKey}
}

func (h *OAuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	providerName := chi.URLParam(r, "provider")
	provider, err := h.oauthSvc.Provider(providerName)
	if err != nil {
		response.Error(w, r, http.StatusNotFound, "NOT_FOUND", "unknown provider", nil)
		return
	}

	state, err := security.NewRandomString(24)
	if err != nil {
		observability.Audit(r, "auth.oauth.login.failed", "provider", providerName, "reason", "state_generation")
		response.Error(w, r, http.StatusInternalServerError, "INTERNAL", "failed to generate oauth state", nil)
		return
	}
	signed := security.SignState(state, h.stateKey)
	http.SetCookie(w, &http.Cookie{
		Name:     oauthStateCookie,
		Value:    signed,
		Path:     "/api/v1/auth",
		HttpOnly: true,
		Secure:   h.cookieMgr.Secure,
		SameSite: h.cookieMgr.SameSite,
		Domain:   h.cookieMgr.Domain,
		MaxAge:   300,
	})
	observability.Audit(r, "auth.oauth.login.redirect", "provider", providerName)
	http.Redirect(w, r, provider.AuthCodeURL(state), http.StatusFound)
}

func (h *OAuthHandler) Callback(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	status := "success"
	providerName := chi.URLParam(r, "provider")
	defer func() {
		observability.RecordAuthRequestDuration(r.Context(), "oauth_callback", status, time.Since(start))
	}()

	queryState := r.URL.Query().Get("state")
	code := r.URL.Query().Get("code")
	if queryState == "" || code == "" {
		status = "failure"
		observability.Audit(r, "auth.oauth.callback.failed", "provider", providerName, "reason", "missing_code_or_state")
		observability.RecordLogin(r.Context(), providerName, "failure")
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "missing state or code", nil)
		return
	}
	stateCookie := security.GetCookie(r, oauthStateCookie)
	state, ok := security.VerifySignedState(stateCookie, h.stateKey)
	if !ok || state != queryState {
		status = "failure"
		observability.Audit(r, "auth.oauth.callback.failed", "provider", providerName, "reason", "invalid_state")
		observability.RecordLogin(r.Context(), providerName, "failure")
		response.Error(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "invalid oauth state", nil)
		return
	}
	// One-time state; drop it as soon as it checks out.
	http.SetCookie(w, &http.Cookie{
		Name:     oauthStateCookie,
		Value:    "",
		Path:     "/api/v1/auth",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.cookieMgr.Secure,
		SameSite: h.cookieMgr.SameSite,
		Domain:   h.cookieMgr.Domain,
	})

	user, account, err := h.oauthSvc.HandleCallback(r.Context(), providerName, code)
	if err != nil {
		status = "failure"
		observability.Audit(r, "auth.oauth.callback.failed", "provider", providerName, "reason", "exchange", "error", err.Error())
		observability.RecordLogin(r.Context(), providerName, "failure")
		response.Error(w, r, http.StatusUnauthorized, "OAUTH_FAILED", "OAuth sign in failed!", nil)
		return
	}

	claims := h.sessions.ClaimsForUser(user, account)
	signed, err := h.tokens.Sign(claims)
	if err != nil {
		status = "failure"
		observability.Audit(r, "auth.oauth.callback.failed", "provider", providerName, "reason", "token_sign")
		observability.RecordLogin(r.Context(), providerName, "failure")
		response.Error(w, r, http.StatusInternalServerError, "INTERNAL", "login failed", nil)
		return
	}
	h.cookieMgr.SetSessionCookie(w, signed, h.tokens.TTL())
	observability.Audit(r, "auth.login.success", "user_id", user.ID, "provider", providerName)
	observability.RecordLogin(r.Context(), providerName, "success")
	sessionUser, _ := h.sessions.Project(&claims)
	response.Success(w, r, http.StatusOK, "", map[string]any{"user": sessionUser})
}
