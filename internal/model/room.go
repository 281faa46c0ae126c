package model

import "time"

// DefaultRoomCapacity is used when a room is created without a capacity
const DefaultRoomCapacity = 5

// RoomID is the internal identifier of a room
type RoomID uint64

// RoomGUID is the external, immutable identifier of a room
type RoomGUID string

// Room is a group of users led by a single host
type Room struct {
	ID           RoomID
	GUID         RoomGUID
	Name         string
	Host         UserSummary
	Participants []UserSummary // host included by convention
	Capacity     int
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// IsHost reports whether the user is the room's host
func (r *Room) IsHost(id UserID) bool {
	return r.Host.ID == id
}

// IsParticipant reports whether the user is in the participant set
func (r *Room) IsParticipant(id UserID) bool {
	for _, p := range r.Participants {
		if p.ID == id {
			return true
		}
	}
	return false
}

// IsFull reports whether the participant set has reached capacity
func (r *Room) IsFull() bool {
	return len(r.Participants) >= r.Capacity
}

// AddParticipant appends the user unless already present
func (r *Room) AddParticipant(u UserSummary) {
	if r.IsParticipant(u.ID) {
		return
	}
	r.Participants = append(r.Participants, u)
}

// RemoveParticipant removes the user from the participant set
func (r *Room) RemoveParticipant(id UserID) {
	for i, p := range r.Participants {
		if p.ID == id {
			r.Participants = append(r.Participants[:i], r.Participants[i+1:]...)
			return
		}
	}
}

// Clone returns a deep copy of the room
func (r *Room) Clone() *Room {
	c := *r
	c.Participants = make([]UserSummary, len(r.Participants))
	copy(c.Participants, r.Participants)
	return &c
}
