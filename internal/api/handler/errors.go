package handler

import (
	"log/slog"
	"net/http"

	"github.com/mcoot/roomhost/internal/api/apierr"
)

// Re-export from apierr for convenience
type APIError = apierr.APIError
type ErrorResponse = apierr.ErrorResponse

// WriteError writes an error response to the response writer
func WriteError(w http.ResponseWriter, err error) {
	apierr.WriteError(w, err)
}

// NewInvalidRequestError creates an invalid request error
func NewInvalidRequestError(message string) error {
	return apierr.NewInvalidRequestError(message)
}

// fail writes err and logs the cause when it maps to a server error
func fail(logger *slog.Logger, w http.ResponseWriter, r *http.Request, err error) {
	if apierr.Status(err) >= http.StatusInternalServerError {
		logger.ErrorContext(r.Context(), "request failed",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()),
		)
	}
	apierr.WriteError(w, err)
}
