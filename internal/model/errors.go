package model

import "errors"

// Common errors used across the application
var (
	// User errors
	ErrUserNotFound   = errors.New("user not found")
	ErrUsernameTaken  = errors.New("username already in use")
	ErrUserHostsRooms = errors.New("user is the host of one or more rooms")

	// Room errors
	ErrRoomNotFound       = errors.New("room not found")
	ErrRoomFull           = errors.New("room is full")
	ErrAlreadyParticipant = errors.New("user is already a participant of this room")
	ErrNotParticipant     = errors.New("user is not a participant of this room")
	ErrHostCannotLeave    = errors.New("host cannot leave the room")
	ErrNotHost            = errors.New("user is not the host of this room")
	ErrGUIDConflict       = errors.New("room guid already exists")
)
