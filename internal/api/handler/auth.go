package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/mcoot/roomhost/internal/api/middleware"
	"github.com/mcoot/roomhost/internal/api/request"
	"github.com/mcoot/roomhost/internal/api/response"
	"github.com/mcoot/roomhost/internal/services/auth"
)

// AuthHandler handles login and password changes
type AuthHandler struct {
	authService *auth.Service
	logger      *slog.Logger
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(authService *auth.Service, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		logger:      logger,
	}
}

// Login handles POST /api/v1/auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req request.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, NewInvalidRequestError("invalid request body"))
		return
	}

	session, err := h.authService.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		fail(h.logger, w, r, err)
		return
	}

	response.JSON(w, http.StatusOK, response.AuthResponseFromSession(session))
}

// ChangePassword handles POST /api/v1/auth/change-password
func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	identity := middleware.MustGetIdentity(r.Context())

	var req request.ChangePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, NewInvalidRequestError("invalid request body"))
		return
	}

	if err := h.authService.ChangePassword(r.Context(), identity, req.OldPassword, req.NewPassword); err != nil {
		fail(h.logger, w, r, err)
		return
	}

	response.NoContent(w)
}
