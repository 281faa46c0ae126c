package response

import (
	"time"

	"github.com/mcoot/roomhost/internal/model"
	"github.com/mcoot/roomhost/internal/services/auth"
	"github.com/mcoot/roomhost/internal/services/user"
)

// Success messages shown to clients
const (
	MessageUserCreated = "User created and authenticated"
	MessageJoined      = "Successfully joined the room"
	MessageLeft        = "Successfully left the room."
	MessageHostChanged = "Successfully changed the host of this room."
)

// UserSummary is a user embedded in other responses
type UserSummary struct {
	ID       uint64 `json:"id"`
	Username string `json:"username"`
}

// UserSummaryFromModel converts a model.UserSummary
func UserSummaryFromModel(u model.UserSummary) UserSummary {
	return UserSummary{ID: uint64(u.ID), Username: u.Username}
}

// User represents a user in list responses
type User struct {
	ID          uint64  `json:"id"`
	Username    string  `json:"username"`
	MobileToken *string `json:"mobile_token,omitempty"`
}

// UserFromModel converts a model.User, dropping the password hash
func UserFromModel(u *model.User) User {
	return User{
		ID:          uint64(u.ID),
		Username:    u.Username,
		MobileToken: u.MobileToken,
	}
}

// UsersFromModel converts a list of users
func UsersFromModel(users []*model.User) []User {
	out := make([]User, len(users))
	for i, u := range users {
		out[i] = UserFromModel(u)
	}
	return out
}

// RoomRef is the short form of a room shown on a user profile
type RoomRef struct {
	GUID     string `json:"guid"`
	Name     string `json:"name"`
	Capacity int    `json:"capacity"`
}

func roomRefs(rooms []*model.Room) []RoomRef {
	out := make([]RoomRef, len(rooms))
	for i, r := range rooms {
		out[i] = RoomRef{GUID: string(r.GUID), Name: r.Name, Capacity: r.Capacity}
	}
	return out
}

// Profile is a user with the rooms they host and have joined
type Profile struct {
	User
	HostedRooms []RoomRef `json:"hosted_rooms"`
	JoinedRooms []RoomRef `json:"joined_rooms"`
}

// ProfileFromModel converts a user.Profile
func ProfileFromModel(p *user.Profile) Profile {
	return Profile{
		User:        UserFromModel(p.User),
		HostedRooms: roomRefs(p.HostedRooms),
		JoinedRooms: roomRefs(p.JoinedRooms),
	}
}

// Room represents a room in API responses
type Room struct {
	ID           uint64        `json:"id"`
	GUID         string        `json:"guid"`
	Name         string        `json:"name"`
	Capacity     int           `json:"capacity"`
	Host         UserSummary   `json:"host"`
	Participants []UserSummary `json:"participants"`
	CreatedAt    time.Time     `json:"created_at"`
	UpdatedAt    time.Time     `json:"updated_at"`
}

// RoomFromModel converts a model.Room
func RoomFromModel(r *model.Room) Room {
	participants := make([]UserSummary, len(r.Participants))
	for i, p := range r.Participants {
		participants[i] = UserSummaryFromModel(p)
	}
	return Room{
		ID:           uint64(r.ID),
		GUID:         string(r.GUID),
		Name:         r.Name,
		Capacity:     r.Capacity,
		Host:         UserSummaryFromModel(r.Host),
		Participants: participants,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
}

// RoomsFromModel converts a list of rooms
func RoomsFromModel(rooms []*model.Room) []Room {
	out := make([]Room, len(rooms))
	for i, r := range rooms {
		out[i] = RoomFromModel(r)
	}
	return out
}

// RoomAction is the response for membership changes
type RoomAction struct {
	Message string `json:"message"`
	Room    Room   `json:"room"`
}

// AuthResponse is the response for login
type AuthResponse struct {
	Token     string    `json:"token"`
	Username  string    `json:"username"`
	ExpiresAt time.Time `json:"expires_at"`
}

// AuthResponseFromSession creates an AuthResponse from a session
func AuthResponseFromSession(s *auth.Session) AuthResponse {
	return AuthResponse{
		Token:     s.Token,
		Username:  s.Username,
		ExpiresAt: s.ExpiresAt,
	}
}

// SignupResponse is the response for creating a user
type SignupResponse struct {
	AuthResponse
	Message string `json:"message"`
}

// Health is the response for the health check
type Health struct {
	Status string `json:"status"`
}
