package handler

// RESPONSE HELPERS:
// Every endpoint answers with JSON. Errors always have the shape
//
//	{"error": "<human readable message>"}
//
// plus "limitReached": true when a solve was refused because the monthly
// quota is used up. Clients branch on the status code and that one flag.

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/sakif/stepwise/internal/apperror"
)

// maxBodyBytes caps request bodies. A 10 MiB image is ~13.4 MiB as base64.
const maxBodyBytes = 15 << 20

// ErrorResponse is the error body returned by all API endpoints.
type ErrorResponse struct {
	Error        string `json:"error"`
	LimitReached bool   `json:"limitReached,omitempty"`
}

// writeJSON sends data as JSON with the given status code.
// Headers must be set before WriteHeader; anything after is ignored.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
		}
	}
}

// writeError maps a domain error to its HTTP status and sends it.
//
// Client-caused errors (400/401/403/404/409) carry the AppError message.
// Everything else is a 500 with fallback as the message; the cause is
// logged, never sent.
func writeError(w http.ResponseWriter, logger *slog.Logger, err error, fallback string) {
	var appErr *apperror.AppError
	hasMessage := errors.As(err, &appErr)

	switch {
	case errors.Is(err, apperror.ErrUnauthenticated):
		writeJSON(w, http.StatusUnauthorized, ErrorResponse{Error: "Unauthorized"})
		return
	case apperror.IsQuotaExceeded(err):
		writeJSON(w, http.StatusForbidden, ErrorResponse{Error: appErr.Message, LimitReached: true})
		return
	case hasMessage && errors.Is(err, apperror.ErrValidation):
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: appErr.Message})
		return
	case hasMessage && errors.Is(err, apperror.ErrNotFound):
		writeJSON(w, http.StatusNotFound, ErrorResponse{Error: appErr.Message})
		return
	case hasMessage && errors.Is(err, apperror.ErrForbidden):
		writeJSON(w, http.StatusForbidden, ErrorResponse{Error: appErr.Message})
		return
	case hasMessage && errors.Is(err, apperror.ErrConflict):
		writeJSON(w, http.StatusConflict, ErrorResponse{Error: appErr.Message})
		return
	}

	logger.Error(fallback, slog.String("error", err.Error()))
	writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: fallback})
}

// decodeJSON reads a single JSON object from the request body into dst.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return apperror.ValidationFailed("body", "request body is too large")
		}
		return apperror.ValidationFailed("body", "Invalid JSON body")
	}
	return nil
}
