package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"authflow/internal/http/response"
	"authflow/internal/observability"
	"authflow/internal/security"
	"authflow/internal/service"
)

type AuthHandler struct {
	authSvc   service.AuthServiceInterface
	sessions  *service.SessionService
	tokens    *security.SessionTokenManager
	cookieMgr *security.CookieManager
}

func NewAuthHandler(
	authSvc service.AuthServiceInterface,
	sessions *service.SessionService,
	tokens *security.SessionTokenManager,
	cookieMgr *security.CookieManager,
) *AuthHandler {
	return &AuthHandler{authSvc: authSvc, sessions: sessions, tokens: tokens, cookieMgr: cookieMgr}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Code     string `json:"code"`
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	status := "success"
	defer func() {
		observability.RecordAuthRequestDuration(r.Context(), "login", status, time.Since(start))
	}()

	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		status = "failure"
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "Invalid fields!", nil)
		return
	}

	user, err := h.authSvc.Authenticate(r.Context(), req.Email, req.Password, req.Code)
	if err != nil {
		var unverified *service.EmailNotVerifiedError
		switch {
		case errors.As(err, &unverified):
			// Resend the confirmation link instead of logging the user in.
			if sendErr := h.authSvc.RequestEmailVerification(r.Context(), unverified.Email); sendErr != nil {
				status = "failure"
				observability.Audit(r, "auth.login.failed", "reason", "verification_resend", "error", sendErr.Error())
				writeAuthError(w, r, sendErr)
				return
			}
			observability.Audit(r, "auth.login.verification_resent")
			observability.RecordTokenIssued(r.Context(), "email_verification", "success")
			response.Success(w, r, http.StatusOK, "Confirmation email sent!", nil)
			return
		case errors.Is(err, service.ErrTwoFactorCodeRequired):
			if sendErr := h.authSvc.RequestOTP(r.Context(), req.Email); sendErr != nil {
				status = "failure"
				observability.Audit(r, "auth.login.failed", "reason", "otp_send", "error", sendErr.Error())
				writeAuthError(w, r, sendErr)
				return
			}
			observability.Audit(r, "auth.login.otp_sent")
			observability.RecordTokenIssued(r.Context(), "otp", "success")
			response.Success(w, r, http.StatusOK, "", map[string]bool{"twoFactor": true})
			return
		default:
			status = "failure"
			observability.RecordLogin(r.Context(), "credentials", "failure")
			writeAuthError(w, r, err)
			return
		}
	}

	claims := h.sessions.ClaimsForUser(user, nil)
	signed, err := h.tokens.Sign(claims)
	if err != nil {
		status = "failure"
		observability.Audit(r, "auth.login.failed", "reason", "token_sign", "error", err.Error())
		observability.RecordLogin(r.Context(), "credentials", "failure")
		response.Error(w, r, http.StatusInternalServerError, "INTERNAL", "login failed", nil)
		return
	}
	h.cookieMgr.SetSessionCookie(w, signed, h.tokens.TTL())
	observability.Audit(r, "auth.login.success", "user_id", user.ID)
	observability.RecordLogin(r.Context(), "credentials", "success")
	sessionUser, _ := h.sessions.Project(&claims)
	response.Success(w, r, http.StatusOK, "", map[string]any{"user": sessionUser})
}

type registerRequest struct {
	Name            string `json:"name"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	status := "success"
	defer func() {
		observability.RecordAuthRequestDuration(r.Context(), "register", status, time.Since(start))
	}()

	var req registerRequest
	if err := decodeJSON(r, &req); err != nil {
		status = "failure"
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "Invalid fields!", nil)
		return
	}
	err := h.authSvc.Register(r.Context(), service.RegisterInput{
		Name:            req.Name,
		Email:           req.Email,
		Password:        req.Password,
		ConfirmPassword: req.ConfirmPassword,
	})
	if err != nil {
		status = "failure"
		observability.Audit(r, "auth.register.failed", "error", err.Error())
		writeAuthError(w, r, err)
		return
	}
	observability.Audit(r, "auth.register.success")
	observability.RecordTokenIssued(r.Context(), "email_verification", "success")
	response.Success(w, r, http.StatusCreated, "Confirmation email sent!", nil)
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	h.cookieMgr.ClearSessionCookie(w)
	observability.Audit(r, "auth.logout")
	response.Success(w, r, http.StatusOK, "", map[string]string{"status": "logged_out"})
}

type tokenRequest struct {
	Token string `json:"token"`
}

func (h *AuthHandler) VerifyEmail(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	status := "success"
	defer func() {
		observability.RecordAuthRequestDuration(r.Context(), "verify_email", status, time.Since(start))
	}()

	var req tokenRequest
	if err := decodeJSON(r, &req); err != nil || req.Token == "" {
		status = "failure"
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "Missing token!", nil)
		return
	}
	if err := h.authSvc.ConfirmEmailVerification(r.Context(), req.Token); err != nil {
		status = "failure"
		observability.Audit(r, "auth.verify_email.failed", "error", err.Error())
		observability.RecordTokenConsumed(r.Context(), "email_verification", "failure")
		writeAuthError(w, r, err)
		return
	}
	observability.Audit(r, "auth.verify_email.success")
	observability.RecordTokenConsumed(r.Context(), "email_verification", "success")
	response.Success(w, r, http.StatusOK, "Email verified!", nil)
}

type resetRequest struct {
	Email string `json:"email"`
}

func (h *AuthHandler) RequestPasswordReset(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	status := "success"
	defer func() {
		observability.RecordAuthRequestDuration(r.Context(), "reset_request", status, time.Since(start))
	}()

	var req resetRequest
	if err := decodeJSON(r, &req); err != nil {
		status = "failure"
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "Invalid email!", nil)
		return
	}
	if err := h.authSvc.RequestPasswordReset(r.Context(), req.Email); err != nil {
		status = "failure"
		observability.Audit(r, "auth.reset_request.failed", "error", err.Error())
		writeAuthError(w, r, err)
		return
	}
	observability.Audit(r, "auth.reset_request.success")
	observability.RecordTokenIssued(r.Context(), "password_reset", "success")
	response.Success(w, r, http.StatusOK, "Reset email sent!", nil)
}

type newPasswordRequest struct {
	Token           string `json:"token"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
}

func (h *AuthHandler) CompletePasswordReset(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	status := "success"
	defer func() {
		observability.RecordAuthRequestDuration(r.Context(), "reset_complete", status, time.Since(start))
	}()

	var req newPasswordRequest
	if err := decodeJSON(r, &req); err != nil || req.Token == "" {
		status = "failure"
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "Missing token!", nil)
		return
	}
	if err := h.authSvc.CompletePasswordReset(r.Context(), req.Token, req.Password, req.ConfirmPassword); err != nil {
		status = "failure"
		observability.Audit(r, "auth.reset_complete.failed", "error", err.Error())
		observability.RecordTokenConsumed(r.Context(), "password_reset", "failure")
		writeAuthError(w, r, err)
		return
	}
	observability.Audit(r, "auth.reset_complete.success")
	observability.RecordTokenConsumed(r.Context(), "password_reset", "success")
	response.Success(w, r, http.StatusOK, "Password updated!", nil)
}

// writeAuthError maps service sentinels to stable HTTP codes and the
// user-facing messages the API contract promises.
func writeAuthError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidInput):
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "Invalid fields!", nil)
	case errors.Is(err, service.ErrInvalidCredentials):
		response.Error(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "Invalid credentials!", nil)
	case errors.Is(err, service.ErrInvalidAuthenticationCode):
		response.Error(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "Invalid code!", nil)
	case errors.Is(err, service.ErrEmailAlreadyExists):
		response.Error(w, r, http.StatusConflict, "CONFLICT", "Email already in use!", nil)
	case errors.Is(err, service.ErrAccountNotFound):
		response.Error(w, r, http.StatusNotFound, "NOT_FOUND", "Email does not exist!", nil)
	case errors.Is(err, service.ErrOAuthAccountNoReset):
		response.Error(w, r, http.StatusConflict, "CONFLICT", "Email used with a different provider!", nil)
	case errors.Is(err, service.ErrTokenRateLimited):
		response.Error(w, r, http.StatusTooManyRequests, "RATE_LIMITED", "Please wait before requesting another code.", nil)
	case errors.Is(err, service.ErrTokenExpired):
		response.Error(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "Token has expired!", nil)
	case errors.Is(err, service.ErrInvalidToken):
		response.Error(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "Invalid token!", nil)
	case errors.Is(err, service.ErrEmailDelivery):
		response.Error(w, r, http.StatusBadGateway, "EMAIL_DELIVERY", "Failed to send email!", nil)
	default:
		response.Error(w, r, http.StatusInternalServerError, "INTERNAL", "Something went wrong!", nil)
	}
}

func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}
