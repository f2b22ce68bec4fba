package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/skyreport/skyreport/internal/service"
)

const maxBodyBytes = 1 << 20 // 1MB

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func errorResponse(msg string) map[string]string {
	return map[string]string{"error": msg}
}

// decodeJSON binds a JSON body with a size cap. Returns false after
// writing the error response itself.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	err := json.NewDecoder(r.Body).Decode(dst)
	if err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			writeJSON(w, http.StatusRequestEntityTooLarge, errorResponse("request body too large"))
			return false
		}
		writeJSON(w, http.StatusBadRequest, errorResponse("invalid request body"))
		return false
	}

	return true
}

// writeServiceError maps service sentinels onto HTTP statuses. Anything
// unrecognized is logged and hidden behind a generic 500.
func writeServiceError(w http.ResponseWriter, err error) {
	var rateLimitErr *service.RateLimitError
	if errors.As(err, &rateLimitErr) {
		writeJSON(w, http.StatusTooManyRequests, map[string]any{
			"error":      rateLimitErr.Error(),
			"retryAfter": rateLimitErr.RetryAfter,
		})
		return
	}

	switch {
	case errors.Is(err, service.ErrValidation),
		errors.Is(err, service.ErrInvalidToken),
		errors.Is(err, service.ErrAlreadyVerified),
		errors.Is(err, service.ErrNoPendingReset),
		errors.Is(err, service.ErrEmailNotFound):
		writeJSON(w, http.StatusBadRequest, errorResponse(err.Error()))
	case errors.Is(err, service.ErrInvalidCredentials),
		errors.Is(err, service.ErrNotVerified):
		writeJSON(w, http.StatusUnauthorized, errorResponse(err.Error()))
	case errors.Is(err, service.ErrEmailTaken),
		errors.Is(err, service.ErrUsernameTaken),
		errors.Is(err, service.ErrUnverifiedExists):
		writeJSON(w, http.StatusConflict, errorResponse(err.Error()))
	default:
		slog.Error("unexpected service error", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse("internal server error"))
	}
}
