package handler

import (
	"errors"
	"net/http"
	"time"

	"authflow/internal/http/middleware"
	"authflow/internal/http/response"
	"authflow/internal/observability"
	"authflow/internal/security"
	"authflow/internal/service"
)

type SettingsHandler struct {
	settingsSvc service.SettingsServiceInterface
	sessions    *service.SessionService
	tokens      *security.SessionTokenManager
	cookieMgr   *security.CookieManager
}

func NewSettingsHandler(
	settingsSvc service.SettingsServiceInterface,
	sessions *service.SessionService,
	tokens *security.SessionTokenManager,
	cookieMgr *security.CookieManager,
) *SettingsHandler {
	return &SettingsHandler{settingsSvc: settingsSvc, sessions: sessions, tokens: tokens, cookieMgr: cookieMgr}
}

// Update persists the submitted settings and folds the accepted changes
// back into the session, re-issuing the cookie so the new claims take
// effect immediately.
func (h *SettingsHandler) Update(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	status := "success"
	defer func() {
		observability.RecordAuthRequestDuration(r.Context(), "settings_update", status, time.Since(start))
	}()

	actor, ok := middleware.SessionFromContext(r.Context())
	if !ok {
		status = "failure"
		response.Error(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "missing session", nil)
		return
	}
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		status = "failure"
		response.Error(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "missing session", nil)
		return
	}

	var form service.SettingsForm
	if err := decodeJSON(r, &form); err != nil {
		status = "failure"
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "Invalid fields!", nil)
		return
	}

	updated, err := h.settingsSvc.UpdateSettings(r.Context(), actor, *claims, form)
	if err != nil {
		status = "failure"
		observability.Audit(r, "settings.update.failed", "user_id", actor.ID, "error", err.Error())
		observability.RecordSettingsUpdate(r.Context(), "failure")
		writeSettingsError(w, r, err)
		return
	}

	signed, err := h.tokens.Sign(updated)
	if err != nil {
		status = "failure"
		observability.Audit(r, "settings.update.failed", "user_id", actor.ID, "reason", "token_sign")
		observability.RecordSettingsUpdate(r.Context(), "failure")
		response.Error(w, r, http.StatusInternalServerError, "INTERNAL", "Something went wrong!", nil)
		return
	}
	h.cookieMgr.SetSessionCookie(w, signed, h.tokens.TTL())

	observability.Audit(r, "settings.update.success", "user_id", actor.ID)
	observability.RecordSettingsUpdate(r.Context(), "success")
	sessionUser, _ := h.sessions.Project(&updated)
	response.Success(w, r, http.StatusOK, "Settings Updated!", map[string]any{"user": sessionUser})
}

func writeSettingsError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidInput), errors.Is(err, service.ErrInvalidSessionDelta):
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "Invalid fields!", nil)
	case errors.Is(err, service.ErrEmailAlreadyExists):
		response.Error(w, r, http.StatusConflict, "CONFLICT", "Email already in use!", nil)
	case errors.Is(err, service.ErrAccountNotFound):
		response.Error(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "Unauthorized", nil)
	default:
		response.Error(w, r, http.StatusInternalServerError, "INTERNAL", "Something went wrong!", nil)
	}
}
