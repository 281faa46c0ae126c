package sql

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"github.com/mcoot/roomhost/internal/model"
	"github.com/mcoot/roomhost/internal/storage"
)

// Storage is a relational implementation of the storage interface on gorm
type Storage struct {
	db *gorm.DB
	// lockRows enables SELECT ... FOR UPDATE inside room updates
	lockRows bool
}

// New opens the database, retrying while it becomes reachable, and migrates the schema
func New(cfg Config, logger *slog.Logger) (*Storage, error) {
	dialector, err := dialectorFor(cfg)
	if err != nil {
		return nil, err
	}

	gormCfg := &gorm.Config{
		Logger:         newGormLogger(logger, cfg.SlowQueryThreshold),
		TranslateError: true,
	}

	attempts := cfg.ConnectAttempts
	if attempts < 1 {
		attempts = 1
	}

	var db *gorm.DB
	for attempt := 1; attempt <= attempts; attempt++ {
		db, err = gorm.Open(dialector, gormCfg)
		if err == nil {
			break
		}
		logger.Warn("database connection failed",
			slog.Int("attempt", attempt),
			slog.String("driver", cfg.Driver),
			slog.String("error", err.Error()),
		)
		if attempt < attempts {
			time.Sleep(time.Duration(500+attempt*200) * time.Millisecond)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("connecting to %s: %w", cfg.Driver, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	if cfg.Driver == DriverSQLite {
		// sqlite allows a single writer; one connection serializes transactions
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	}

	return NewWithDB(db)
}

// NewWithDB wraps an existing gorm handle and migrates the schema
func NewWithDB(db *gorm.DB) (*Storage, error) {
	if err := Migrate(db); err != nil {
		return nil, err
	}
	return &Storage{
		db:       db,
		lockRows: db.Dialector.Name() == DriverPostgres,
	}, nil
}

// Migrate creates or updates the users, rooms and room_participants tables
func Migrate(db *gorm.DB) error {
	if err := db.SetupJoinTable(&roomRecord{}, "Participants", &participantRecord{}); err != nil {
		return fmt.Errorf("setting up join table: %w", err)
	}
	if err := db.AutoMigrate(&userRecord{}, &roomRecord{}, &participantRecord{}); err != nil {
		return fmt.Errorf("migrating schema: %w", err)
	}
	return nil
}

func dialectorFor(cfg Config) (gorm.Dialector, error) {
	switch cfg.Driver {
	case DriverPostgres:
		return postgres.Open(cfg.DSN), nil
	case DriverSQLite:
		return sqlite.Open(cfg.DSN), nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
}

func newGormLogger(logger *slog.Logger, slowThreshold time.Duration) gormlogger.Interface {
	return gormlogger.New(
		slog.NewLogLogger(logger.Handler(), slog.LevelWarn),
		gormlogger.Config{
			SlowThreshold:             slowThreshold,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)
}

// Close closes the underlying connection pool
func (s *Storage) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Ensure Storage implements the interface
var _ storage.Storage = (*Storage)(nil)

// User operations

func (s *Storage) CreateUser(ctx context.Context, user *model.User) error {
	rec := userRecordFromModel(user)
	rec.ID = 0
	if err := s.db.WithContext(ctx).Create(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return model.ErrUsernameTaken
		}
		return fmt.Errorf("creating user: %w", err)
	}
	user.ID = model.UserID(rec.ID)
	return nil
}

func (s *Storage) GetUser(ctx context.Context, id model.UserID) (*model.User, error) {
	var rec userRecord
	if err := s.db.WithContext(ctx).Where("id = ?", uint64(id)).First(&rec).Error; err != nil {
		return nil, notFound(err, model.ErrUserNotFound)
	}
	return rec.toModel(), nil
}

func (s *Storage) GetUserByUsername(ctx context.Context, username string) (*model.User, error) {
	var rec userRecord
	if err := s.db.WithContext(ctx).Where("username = ?", username).First(&rec).Error; err != nil {
		return nil, notFound(err, model.ErrUserNotFound)
	}
	return rec.toModel(), nil
}

func (s *Storage) ListUsers(ctx context.Context) ([]*model.User, error) {
	var recs []userRecord
	if err := s.db.WithContext(ctx).Order("id").Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("listing users: %w", err)
	}
	users := make([]*model.User, len(recs))
	for i := range recs {
		users[i] = recs[i].toModel()
	}
	return users, nil
}

func (s *Storage) UpdateUser(ctx context.Context, user *model.User) error {
	res := s.db.WithContext(ctx).Model(&userRecord{}).Where("id = ?", uint64(user.ID)).Updates(map[string]any{
		"username":     user.Username,
		"password":     user.PasswordHash,
		"mobile_token": user.MobileToken,
		"updated_at":   user.UpdatedAt,
	})
	if res.Error != nil {
		if errors.Is(res.Error, gorm.ErrDuplicatedKey) {
			return model.ErrUsernameTaken
		}
		return fmt.Errorf("updating user: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return model.ErrUserNotFound
	}
	return nil
}

func (s *Storage) DeleteUser(ctx context.Context, id model.UserID) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Locked first so room updates reading this user either finish
		// before the checks below or see the user gone.
		var rec userRecord
		if err := s.locking(tx, "UPDATE").Where("id = ?", uint64(id)).First(&rec).Error; err != nil {
			return notFound(err, model.ErrUserNotFound)
		}

		var hosted int64
		if err := tx.Model(&roomRecord{}).Where("host_id = ?", rec.ID).Count(&hosted).Error; err != nil {
			return err
		}
		if hosted > 0 {
			return model.ErrUserHostsRooms
		}

		if err := tx.Where("user_id = ?", rec.ID).Delete(&participantRecord{}).Error; err != nil {
			return fmt.Errorf("removing participations: %w", err)
		}
		if err := tx.Delete(&rec).Error; err != nil {
			return fmt.Errorf("deleting user: %w", err)
		}
		return nil
	})
}

// Room operations

func (s *Storage) CreateRoom(ctx context.Context, room *model.Room) error {
	rec := roomRecord{
		GUID:      string(room.GUID),
		Name:      room.Name,
		HostID:    uint64(room.Host.ID),
		Capacity:  room.Capacity,
		CreatedAt: room.CreatedAt,
		UpdatedAt: room.UpdatedAt,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := s.lookupUser(tx, room.Host.ID); err != nil {
			return err
		}
		if err := tx.Omit(clause.Associations).Create(&rec).Error; err != nil {
			return err
		}
		for _, p := range room.Participants {
			if err := addParticipant(tx, rec.ID, p.ID, room.CreatedAt); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		switch {
		case errors.Is(err, model.ErrUserNotFound), errors.Is(err, gorm.ErrForeignKeyViolated):
			return model.ErrUserNotFound
		case errors.Is(err, gorm.ErrDuplicatedKey):
			return model.ErrGUIDConflict
		}
		return fmt.Errorf("creating room: %w", err)
	}

	room.ID = model.RoomID(rec.ID)
	return nil
}

func (s *Storage) GetRoom(ctx context.Context, guid model.RoomGUID) (*model.Room, error) {
	var rec roomRecord
	if err := withMembers(s.db.WithContext(ctx)).Where("guid = ?", string(guid)).First(&rec).Error; err != nil {
		return nil, notFound(err, model.ErrRoomNotFound)
	}
	return rec.toModel(), nil
}

func (s *Storage) ListRooms(ctx context.Context) ([]*model.Room, error) {
	return s.findRooms(withMembers(s.db.WithContext(ctx)))
}

func (s *Storage) ListRoomsByHost(ctx context.Context, userID model.UserID) ([]*model.Room, error) {
	return s.findRooms(withMembers(s.db.WithContext(ctx)).Where("host_id = ?", uint64(userID)))
}

func (s *Storage) ListRoomsByParticipant(ctx context.Context, userID model.UserID) ([]*model.Room, error) {
	db := s.db.WithContext(ctx)
	joined := db.Model(&participantRecord{}).Select("room_id").Where("user_id = ?", uint64(userID))
	return s.findRooms(withMembers(db).Where("id IN (?)", joined))
}

func (s *Storage) UpdateRoom(ctx context.Context, guid model.RoomGUID, fn storage.RoomMutation) (*model.Room, error) {
	var result *model.Room

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if s.lockRows {
			var locked roomRecord
			err := s.locking(tx, "UPDATE").Select("id").Where("guid = ?", string(guid)).First(&locked).Error
			if err != nil {
				return notFound(err, model.ErrRoomNotFound)
			}
		}

		var rec roomRecord
		if err := withMembers(tx).Where("guid = ?", string(guid)).First(&rec).Error; err != nil {
			return notFound(err, model.ErrRoomNotFound)
		}

		before := rec.toModel()
		room := before.Clone()
		lookup := func(id model.UserID) (*model.User, error) {
			return s.lookupUser(tx, id)
		}
		if err := fn(room, lookup); err != nil {
			return err
		}
		room.ID = before.ID
		room.GUID = before.GUID

		err := tx.Model(&roomRecord{}).Where("id = ?", rec.ID).Updates(map[string]any{
			"name":       room.Name,
			"host_id":    uint64(room.Host.ID),
			"capacity":   room.Capacity,
			"updated_at": room.UpdatedAt,
		}).Error
		if err != nil {
			return fmt.Errorf("updating room: %w", err)
		}

		if removed := missingFrom(before.Participants, room.Participants); len(removed) > 0 {
			err := tx.Where("room_id = ? AND user_id IN ?", rec.ID, removed).Delete(&participantRecord{}).Error
			if err != nil {
				return fmt.Errorf("removing participants: %w", err)
			}
		}
		for _, id := range missingFrom(room.Participants, before.Participants) {
			if err := addParticipant(tx, rec.ID, model.UserID(id), room.UpdatedAt); err != nil {
				return fmt.Errorf("adding participant: %w", err)
			}
		}

		result = room
		return nil
	})
	if errors.Is(err, gorm.ErrForeignKeyViolated) {
		return nil, model.ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return result, nil
}

// lookupUser reads a user inside tx, holding a shared lock on postgres until
// the transaction ends
func (s *Storage) lookupUser(tx *gorm.DB, id model.UserID) (*model.User, error) {
	var rec userRecord
	if err := s.locking(tx, "SHARE").Where("id = ?", uint64(id)).First(&rec).Error; err != nil {
		return nil, notFound(err, model.ErrUserNotFound)
	}
	return rec.toModel(), nil
}

// locking adds a FOR <strength> clause when the dialect supports row locks
func (s *Storage) locking(tx *gorm.DB, strength string) *gorm.DB {
	if !s.lockRows {
		return tx
	}
	return tx.Clauses(clause.Locking{Strength: strength})
}

func (s *Storage) findRooms(query *gorm.DB) ([]*model.Room, error) {
	var recs []roomRecord
	if err := query.Order("rooms.id").Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("listing rooms: %w", err)
	}
	rooms := make([]*model.Room, len(recs))
	for i := range recs {
		rooms[i] = recs[i].toModel()
	}
	return rooms, nil
}

// withMembers preloads the host and the participant set, participants in id order
func withMembers(db *gorm.DB) *gorm.DB {
	return db.Preload("Host").Preload("Participants", func(db *gorm.DB) *gorm.DB {
		return db.Order("users.id")
	})
}

func addParticipant(tx *gorm.DB, roomID uint64, userID model.UserID, at time.Time) error {
	return tx.Create(&participantRecord{RoomID: roomID, UserID: uint64(userID), CreatedAt: at}).Error
}

// missingFrom returns the ids in a that are not in b
func missingFrom(a, b []model.UserSummary) []uint64 {
	present := make(map[model.UserID]bool, len(b))
	for _, u := range b {
		present[u.ID] = true
	}
	var missing []uint64
	for _, u := range a {
		if !present[u.ID] {
			missing = append(missing, uint64(u.ID))
		}
	}
	return missing
}

func notFound(err, sentinel error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return sentinel
	}
	return err
}
