package redis

import (
	"time"

	"github.com/mcoot/roomhost/internal/model"
)

// userDoc is the stored form of a user
type userDoc struct {
	ID           model.UserID `json:"id"`
	Username     string       `json:"username"`
	PasswordHash string       `json:"password_hash"`
	MobileToken  *string      `json:"mobile_token,omitempty"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
}

// roomDoc is the stored form of a room. Members are kept by id so renames
// never leave stale usernames behind.
type roomDoc struct {
	ID             model.RoomID   `json:"id"`
	GUID           model.RoomGUID `json:"guid"`
	Name           string         `json:"name"`
	HostID         model.UserID   `json:"host_id"`
	ParticipantIDs []model.UserID `json:"participant_ids"`
	Capacity       int            `json:"capacity"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

func userDocFromModel(u *model.User) userDoc {
	return userDoc{
		ID:           u.ID,
		Username:     u.Username,
		PasswordHash: u.PasswordHash,
		MobileToken:  u.MobileToken,
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	}
}

func (d *userDoc) toModel() *model.User {
	return &model.User{
		ID:           d.ID,
		Username:     d.Username,
		PasswordHash: d.PasswordHash,
		MobileToken:  d.MobileToken,
		CreatedAt:    d.CreatedAt,
		UpdatedAt:    d.UpdatedAt,
	}
}

func roomDocFromModel(r *model.Room) roomDoc {
	ids := make([]model.UserID, len(r.Participants))
	for i, p := range r.Participants {
		ids[i] = p.ID
	}
	return roomDoc{
		ID:             r.ID,
		GUID:           r.GUID,
		Name:           r.Name,
		HostID:         r.Host.ID,
		ParticipantIDs: ids,
		Capacity:       r.Capacity,
		CreatedAt:      r.CreatedAt,
		UpdatedAt:      r.UpdatedAt,
	}
}

// toModel resolves member ids through names; unknown ids keep an empty username
func (d *roomDoc) toModel(names map[model.UserID]string) *model.Room {
	participants := make([]model.UserSummary, len(d.ParticipantIDs))
	for i, id := range d.ParticipantIDs {
		participants[i] = model.UserSummary{ID: id, Username: names[id]}
	}
	return &model.Room{
		ID:           d.ID,
		GUID:         d.GUID,
		Name:         d.Name,
		Host:         model.UserSummary{ID: d.HostID, Username: names[d.HostID]},
		Participants: participants,
		Capacity:     d.Capacity,
		CreatedAt:    d.CreatedAt,
		UpdatedAt:    d.UpdatedAt,
	}
}

// memberIDs returns the host and participant ids without duplicates
func (d *roomDoc) memberIDs() []model.UserID {
	seen := map[model.UserID]bool{d.HostID: true}
	ids := []model.UserID{d.HostID}
	for _, id := range d.ParticipantIDs {
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	return ids
}
