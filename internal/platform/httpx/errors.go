// Package httpx provides HTTP response utilities.
package httpx

import (
	"errors"
	"log/slog"
	"net/http"
)

// Sentinel errors for the transport layer.
var (
	ErrNotFound     = errors.New("resource not found")
	ErrValidation   = errors.New("validation failed")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrConflict     = errors.New("conflict")
)

// RespondError maps transport sentinels to RFC7807 responses. Anything else
// is logged and reported as an internal error without detail.
func RespondError(w http.ResponseWriter, logger *slog.Logger, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, ErrValidation):
		Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	case errors.Is(err, ErrUnauthorized):
		Problem(w, http.StatusUnauthorized, "Unauthorized", err.Error())
	case errors.Is(err, ErrForbidden):
		Problem(w, http.StatusForbidden, "Forbidden", err.Error())
	case errors.Is(err, ErrConflict):
		Problem(w, http.StatusConflict, "Conflict", err.Error())
	default:
		if logger != nil {
			logger.Error("request failed", slog.Any("error", err))
		}
		Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
