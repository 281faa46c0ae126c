package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/mcoot/roomhost/internal/api/middleware"
	"github.com/mcoot/roomhost/internal/api/request"
	"github.com/mcoot/roomhost/internal/api/response"
	"github.com/mcoot/roomhost/internal/services/user"
)

// UserHandler handles user account endpoints
type UserHandler struct {
	userService *user.Service
	logger      *slog.Logger
}

// NewUserHandler creates a new user handler
func NewUserHandler(userService *user.Service, logger *slog.Logger) *UserHandler {
	return &UserHandler{
		userService: userService,
		logger:      logger,
	}
}

// List handles GET /api/v1/users
func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	users, err := h.userService.ListUsers(r.Context())
	if err != nil {
		fail(h.logger, w, r, err)
		return
	}

	response.JSON(w, http.StatusOK, response.UsersFromModel(users))
}

// Get handles GET /api/v1/users/{username}
func (h *UserHandler) Get(w http.ResponseWriter, r *http.Request) {
	username := mux.Vars(r)["username"]

	profile, err := h.userService.GetUserByUsername(r.Context(), username)
	if err != nil {
		fail(h.logger, w, r, err)
		return
	}

	response.JSON(w, http.StatusOK, response.ProfileFromModel(profile))
}

// Create handles POST /api/v1/users
func (h *UserHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req request.CreateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, NewInvalidRequestError("invalid request body"))
		return
	}

	session, err := h.userService.CreateUser(r.Context(), req.Username, req.Password, req.MobileToken)
	if err != nil {
		fail(h.logger, w, r, err)
		return
	}

	response.JSON(w, http.StatusCreated, response.SignupResponse{
		AuthResponse: response.AuthResponseFromSession(session),
		Message:      response.MessageUserCreated,
	})
}

// Update handles PATCH /api/v1/users
func (h *UserHandler) Update(w http.ResponseWriter, r *http.Request) {
	identity := middleware.MustGetIdentity(r.Context())

	var req request.UpdateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, NewInvalidRequestError("invalid request body"))
		return
	}

	err := h.userService.UpdateUser(r.Context(), identity, req.OldPassword, req.NewPassword, req.MobileToken)
	if err != nil {
		fail(h.logger, w, r, err)
		return
	}

	response.NoContent(w)
}

// Delete handles DELETE /api/v1/users
func (h *UserHandler) Delete(w http.ResponseWriter, r *http.Request) {
	identity := middleware.MustGetIdentity(r.Context())

	if err := h.userService.DeleteUser(r.Context(), identity); err != nil {
		fail(h.logger, w, r, err)
		return
	}

	response.NoContent(w)
}
