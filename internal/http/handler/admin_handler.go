package handler

import (
	"net/http"

	"authflow/internal/http/response"
)

type AdminHandler struct{}

func NewAdminHandler() *AdminHandler { return &AdminHandler{} }

// Ping is a role-gated probe endpoint; reaching it at all proves the
// session carries the ADMIN role claim.
func (h *AdminHandler) Ping(w http.ResponseWriter, r *http.Request) {
	response.Success(w, r, http.StatusOK, "Allowed!", nil)
}
