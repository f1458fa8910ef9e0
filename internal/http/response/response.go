package response

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

// Envelope is the uniform result shape every endpoint returns:
// {success: true, message?, data?} or {success: false, message?, error?}.
type Envelope struct {
	Success bool         `json:"success"`
	Message string       `json:"message,omitempty"`
	Data    any          `json:"data,omitempty"`
	Error   *ErrorDetail `json:"error,omitempty"`
}

type ErrorDetail struct {
	Code    string `json:"code"`
	Details any    `json:"details,omitempty"`
}

func Success(w http.ResponseWriter, r *http.Request, status int, message string, data any) {
	write(w, r, status, Envelope{Success: true, Message: message, Data: data})
}

func Error(w http.ResponseWriter, r *http.Request, status int, code, message string, details any) {
	env := Envelope{Success: false, Message: message, Error: &ErrorDetail{Code: code, Details: details}}
	write(w, r, status, env)
}

func write(w http.ResponseWriter, r *http.Request, status int, env Envelope) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(env); err != nil {
		slog.ErrorContext(r.Context(), "failed to encode response", "error", err)
	}
}
