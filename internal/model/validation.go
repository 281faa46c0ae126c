package model

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// Length constraints for user and room fields
const (
	UsernameMinLength    = 4
	UsernameMaxLength    = 20
	PasswordMinLength    = 4
	PasswordMaxLength    = 100
	MobileTokenMaxLength = 100
	RoomNameMinLength    = 4
	RoomNameMaxLength    = 100
)

// FieldError describes a single constraint violation
type FieldError struct {
	Field   string
	Message string
}

// ValidationError holds every constraint violation found for an entity
type ValidationError struct {
	Fields []FieldError
}

// Error implements error interface
func (e *ValidationError) Error() string {
	msgs := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		msgs[i] = f.Message
	}
	return "validation failed: " + strings.Join(msgs, "; ")
}

// Validate collects the results of field checks into a ValidationError.
// Returns nil when no check reported a violation.
func Validate(checks ...[]FieldError) error {
	var fields []FieldError
	for _, c := range checks {
		fields = append(fields, c...)
	}
	if len(fields) == 0 {
		return nil
	}
	return &ValidationError{Fields: fields}
}

func lengthBetween(field, value string, minLen, maxLen int) []FieldError {
	n := utf8.RuneCountInString(value)
	if n < minLen || n > maxLen {
		return []FieldError{{
			Field:   field,
			Message: fmt.Sprintf("%s must be between %d and %d characters", field, minLen, maxLen),
		}}
	}
	return nil
}

// ValidateUsername checks the username length
func ValidateUsername(username string) []FieldError {
	return lengthBetween("username", username, UsernameMinLength, UsernameMaxLength)
}

// ValidatePassword checks the plaintext password length
func ValidatePassword(password string) []FieldError {
	return lengthBetween("password", password, PasswordMinLength, PasswordMaxLength)
}

// ValidateMobileToken checks the optional mobile token
func ValidateMobileToken(token *string) []FieldError {
	if token == nil {
		return nil
	}
	if utf8.RuneCountInString(*token) > MobileTokenMaxLength {
		return []FieldError{{
			Field:   "mobile_token",
			Message: fmt.Sprintf("mobile_token must be at most %d characters", MobileTokenMaxLength),
		}}
	}
	return nil
}

// ValidateRoomName checks the room name length
func ValidateRoomName(name string) []FieldError {
	return lengthBetween("name", name, RoomNameMinLength, RoomNameMaxLength)
}

// ValidateCapacity checks the room capacity is positive
func ValidateCapacity(capacity int) []FieldError {
	if capacity < 1 {
		return []FieldError{{Field: "capacity", Message: "capacity must be a positive integer"}}
	}
	return nil
}
