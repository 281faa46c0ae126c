package model

import "time"

// UserID uniquely identifies a user; assigned by the store
type UserID uint64

// User is a registered account
type User struct {
	ID           UserID
	Username     string // unique, login name
	PasswordHash string // bcrypt hash, never serialized to clients
	MobileToken  *string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Summary returns the public projection of the user
func (u *User) Summary() UserSummary {
	return UserSummary{ID: u.ID, Username: u.Username}
}

// Identity returns the caller identity for this user
func (u *User) Identity() Identity {
	return Identity{UserID: u.ID, Username: u.Username}
}

// UserSummary is the non-sensitive projection of a user embedded in rooms
type UserSummary struct {
	ID       UserID
	Username string
}

// Identity is the authenticated caller of a request
type Identity struct {
	UserID   UserID
	Username string
}
