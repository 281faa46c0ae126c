package sql

import (
	"time"

	"github.com/mcoot/roomhost/internal/model"
)

// userRecord is the users table row
type userRecord struct {
	ID          uint64  `gorm:"primaryKey"`
	Username    string  `gorm:"size:20;not null;uniqueIndex"`
	Password    string  `gorm:"size:100;not null"`
	MobileToken *string `gorm:"size:100"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (userRecord) TableName() string { return "users" }

// roomRecord is the rooms table row with its host and participants
type roomRecord struct {
	ID           uint64       `gorm:"primaryKey"`
	GUID         string       `gorm:"column:guid;size:36;not null;uniqueIndex"`
	Name         string       `gorm:"size:100;not null"`
	HostID       uint64       `gorm:"not null;index"`
	Host         userRecord   `gorm:"foreignKey:HostID"`
	Participants []userRecord `gorm:"many2many:room_participants;joinForeignKey:RoomID;joinReferences:UserID"`
	Capacity     int          `gorm:"not null"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (roomRecord) TableName() string { return "rooms" }

// participantRecord is the room_participants join table
type participantRecord struct {
	RoomID    uint64 `gorm:"primaryKey"`
	UserID    uint64 `gorm:"primaryKey;index"`
	CreatedAt time.Time
}

func (participantRecord) TableName() string { return "room_participants" }

func userRecordFromModel(u *model.User) userRecord {
	return userRecord{
		ID:          uint64(u.ID),
		Username:    u.Username,
		Password:    u.PasswordHash,
		MobileToken: u.MobileToken,
		CreatedAt:   u.CreatedAt,
		UpdatedAt:   u.UpdatedAt,
	}
}

func (r *userRecord) toModel() *model.User {
	return &model.User{
		ID:           model.UserID(r.ID),
		Username:     r.Username,
		PasswordHash: r.Password,
		MobileToken:  r.MobileToken,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
}

func (r *userRecord) toSummary() model.UserSummary {
	return model.UserSummary{ID: model.UserID(r.ID), Username: r.Username}
}

func (r *roomRecord) toModel() *model.Room {
	participants := make([]model.UserSummary, len(r.Participants))
	for i := range r.Participants {
		participants[i] = r.Participants[i].toSummary()
	}
	return &model.Room{
		ID:           model.RoomID(r.ID),
		GUID:         model.RoomGUID(r.GUID),
		Name:         r.Name,
		Host:         r.Host.toSummary(),
		Participants: participants,
		Capacity:     r.Capacity,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
}
