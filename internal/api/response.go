package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/p-n-ai/pai-academy/internal/access"
	"github.com/p-n-ai/pai-academy/internal/attempt"
	"github.com/p-n-ai/pai-academy/internal/platform/apperr"
)

type apiResponse struct {
	Success bool      `json:"success"`
	Data    any       `json:"data,omitempty"`
	Error   *apiError `json:"error,omitempty"`
}

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	resp := apiResponse{
		Success: status >= 200 && status < 300,
		Data:    data,
	}
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondErrorDetails(w, status, code, message, nil)
}

func respondErrorDetails(w http.ResponseWriter, status int, code, message string, details any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	resp := apiResponse{
		Error: &apiError{
			Code:    code,
			Message: message,
			Details: details,
		},
	}
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Error("failed to encode error response", "error", err)
	}
}

// respondErr maps an error to its status by kind. Unclassified errors are
// logged and reported as internal errors without their text.
func respondErr(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case apperr.IsUnauthorized(err):
		respondError(w, http.StatusUnauthorized, "unauthorized", apperr.Message(err))
	case apperr.IsNotFound(err):
		respondError(w, http.StatusNotFound, "not_found", apperr.Message(err))
	case apperr.IsValidation(err):
		respondError(w, http.StatusBadRequest, "validation_error", apperr.Message(err))
	case apperr.IsForbidden(err):
		respondError(w, http.StatusForbidden, "forbidden", apperr.Message(err))
	case errors.Is(err, apperr.ErrConflict):
		respondError(w, http.StatusConflict, "conflict", apperr.Message(err))
	default:
		slog.Error("request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"request_id", middleware.GetReqID(r.Context()),
			"error", err,
		)
		respondError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}

// respondDenied writes a gating denial. Cooldown denials carry the remaining
// wait and the retry timestamp.
func respondDenied(w http.ResponseWriter, d access.Decision, cd *attempt.Cooldown) {
	if cd != nil {
		respondErrorDetails(w, http.StatusForbidden, "cooldown_active", d.Message, cd)
		return
	}
	respondError(w, http.StatusForbidden, "access_denied", d.Message)
}

// respondDecision writes an access decision: 200 when allowed, 403 otherwise.
func respondDecision(w http.ResponseWriter, d access.Decision) {
	if !d.Allowed {
		respondDenied(w, d, nil)
		return
	}
	respondJSON(w, http.StatusOK, d)
}

// respondOutcome writes a start or submit outcome.
func respondOutcome(w http.ResponseWriter, out attempt.Outcome) {
	if !out.Decision.Allowed {
		respondDenied(w, out.Decision, out.Cooldown)
		return
	}
	respondJSON(w, http.StatusOK, out)
}
