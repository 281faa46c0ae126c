package middleware

import (
	"log/slog"
	"net/http"

	"github.com/mcoot/roomhost/internal/api/apierr"
	"github.com/mcoot/roomhost/internal/middleware"
)

// Recovery creates panic recovery middleware that answers with a JSON 500
func Recovery(logger *slog.Logger) func(http.Handler) http.Handler {
	return middleware.Recovery(logger, func(w http.ResponseWriter, _ *http.Request, _ any) {
		apierr.WriteError(w, apierr.NewInternalError())
	})
}

// NotFound answers unknown routes in the API's JSON error shape
func NotFound() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		apierr.WriteError(w, apierr.NewNotFoundError("No route for "+r.Method+" "+r.URL.Path))
	})
}

// MethodNotAllowed answers known routes called with the wrong method
func MethodNotAllowed() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		apierr.WriteError(w, apierr.NewMethodNotAllowedError(r.Method))
	})
}
