package apierr

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/mcoot/roomhost/internal/model"
	"github.com/mcoot/roomhost/internal/services/auth"
	"github.com/mcoot/roomhost/internal/services/room"
	"github.com/mcoot/roomhost/internal/services/token"
)

// FieldError names a single invalid input field
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// APIError represents an API error response
type APIError struct {
	Code    string       `json:"code"`
	Message string       `json:"message"`
	Fields  []FieldError `json:"fields,omitempty"`
}

// ErrorResponse wraps an APIError
type ErrorResponse struct {
	Error APIError `json:"error"`
}

// Common error codes
const (
	CodeInvalidRequest     = "INVALID_REQUEST"
	CodeValidationError    = "VALIDATION_ERROR"
	CodeUnauthorized       = "UNAUTHORIZED"
	CodeInvalidCredentials = "INVALID_CREDENTIALS"
	CodeNotHost            = "NOT_HOST"
	CodeHostCannotLeave    = "HOST_CANNOT_LEAVE"
	CodeUserNotFound       = "USER_NOT_FOUND"
	CodeRoomNotFound       = "ROOM_NOT_FOUND"
	CodeUsernameTaken      = "USERNAME_TAKEN"
	CodeRoomFull           = "ROOM_FULL"
	CodeAlreadyParticipant = "ALREADY_PARTICIPANT"
	CodeNotParticipant     = "NOT_PARTICIPANT"
	CodeUserHostsRooms     = "USER_HOSTS_ROOMS"
	CodeRateLimited        = "RATE_LIMITED"
	CodeNotFound           = "NOT_FOUND"
	CodeMethodNotAllowed   = "METHOD_NOT_ALLOWED"
	CodeInternalError      = "INTERNAL_ERROR"
)

// httpError combines an HTTP status code with an APIError
type httpError struct {
	status   int
	apiError APIError
}

// Error implements error interface
func (e *httpError) Error() string {
	return e.apiError.Message
}

// WriteError writes an error response to the response writer
func WriteError(w http.ResponseWriter, err error) {
	he := toHTTPError(err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(he.status)
	_ = json.NewEncoder(w).Encode(ErrorResponse{Error: he.apiError})
}

// Status returns the HTTP status err maps to
func Status(err error) int {
	return toHTTPError(err).status
}

// toHTTPError converts an error to an httpError
func toHTTPError(err error) *httpError {
	// Check for specific error types
	var he *httpError
	if errors.As(err, &he) {
		return he
	}

	var verr *model.ValidationError
	if errors.As(err, &verr) {
		fields := make([]FieldError, len(verr.Fields))
		for i, f := range verr.Fields {
			fields[i] = FieldError{Field: f.Field, Message: f.Message}
		}
		return &httpError{http.StatusBadRequest, APIError{CodeValidationError, "Validation failed", fields}}
	}

	switch {
	// Map model errors
	case errors.Is(err, model.ErrUserNotFound):
		return newError(http.StatusNotFound, CodeUserNotFound, "User not found")
	case errors.Is(err, model.ErrRoomNotFound):
		return newError(http.StatusNotFound, CodeRoomNotFound, "Room not found")
	case errors.Is(err, model.ErrUsernameTaken):
		return newError(http.StatusConflict, CodeUsernameTaken, "Username already in use")
	case errors.Is(err, model.ErrRoomFull):
		return newError(http.StatusConflict, CodeRoomFull, "Cannot join, room is already full. Please check with the host.")
	case errors.Is(err, model.ErrAlreadyParticipant):
		return newError(http.StatusConflict, CodeAlreadyParticipant, "Action not permitted. You're in the room already")
	case errors.Is(err, model.ErrNotParticipant):
		return newError(http.StatusConflict, CodeNotParticipant, "Action not permitted. You're not a participant of this room.")
	case errors.Is(err, model.ErrHostCannotLeave):
		return newError(http.StatusForbidden, CodeHostCannotLeave,
			"Action not permitted. You're the host of this room. Please select a participant as new host for you to leave the room")
	case errors.Is(err, model.ErrNotHost):
		return newError(http.StatusForbidden, CodeNotHost, "Action not permitted. You're not the host of this room")
	case errors.Is(err, model.ErrUserHostsRooms):
		return newError(http.StatusConflict, CodeUserHostsRooms,
			"Action not permitted. Please select a new host for each of your rooms before deleting your account")

	// Map room errors
	case errors.Is(err, room.ErrNewHostRequired):
		return newError(http.StatusBadRequest, CodeInvalidRequest, "Action not permitted. Please select user as the new host")
	case errors.Is(err, room.ErrAlreadyHost):
		return newError(http.StatusBadRequest, CodeInvalidRequest, "No changes made as you're still the host of this room")
	case errors.Is(err, room.ErrNewHostNotFound):
		return newError(http.StatusBadRequest, CodeInvalidRequest, "Action not permitted. Can't find specified user as the new host")

	// Map auth errors
	case errors.Is(err, auth.ErrMissingCredentials):
		return newError(http.StatusBadRequest, CodeInvalidRequest, "Username and password are required")
	case errors.Is(err, auth.ErrMissingPasswords):
		return newError(http.StatusBadRequest, CodeInvalidRequest, "Old and new password are required")
	case errors.Is(err, auth.ErrInvalidCredentials):
		return newError(http.StatusUnauthorized, CodeInvalidCredentials, "Invalid username or password")
	case errors.Is(err, token.ErrInvalidToken):
		return newError(http.StatusUnauthorized, CodeUnauthorized, "Invalid or expired token")

	default:
		return newError(http.StatusInternalServerError, CodeInternalError, "Internal server error")
	}
}

func newError(status int, code, message string) *httpError {
	return &httpError{status, APIError{Code: code, Message: message}}
}

// NewInvalidRequestError creates an invalid request error
func NewInvalidRequestError(message string) error {
	return newError(http.StatusBadRequest, CodeInvalidRequest, message)
}

// NewUnauthorizedError creates an unauthorized error
func NewUnauthorizedError() error {
	return newError(http.StatusUnauthorized, CodeUnauthorized, "Authentication required")
}

// NewRateLimitedError creates a too many requests error
func NewRateLimitedError() error {
	return newError(http.StatusTooManyRequests, CodeRateLimited, "Too many requests, please slow down")
}

// NewNotFoundError creates a not found error for an unknown route
func NewNotFoundError(message string) error {
	return newError(http.StatusNotFound, CodeNotFound, message)
}

// NewMethodNotAllowedError creates a method not allowed error
func NewMethodNotAllowedError(method string) error {
	return newError(http.StatusMethodNotAllowed, CodeMethodNotAllowed, "Method "+method+" not allowed")
}

// NewInternalError creates an internal server error
func NewInternalError() error {
	return newError(http.StatusInternalServerError, CodeInternalError, "Internal server error")
}
