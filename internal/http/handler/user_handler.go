package handler

import (
	"net/http"

	"authflow/internal/http/middleware"
	"authflow/internal/http/response"
)

type UserHandler struct{}

func NewUserHandler() *UserHandler { return &UserHandler{} }

// Me returns the session projection for the authenticated user. It reads
// only the request-scoped session, never the database.
func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.SessionFromContext(r.Context())
	if !ok {
		response.Error(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "missing session", nil)
		return
	}
	response.Success(w, r, http.StatusOK, "", map[string]any{"user": user})
}
