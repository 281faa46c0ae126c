package redis

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mcoot/roomhost/internal/model"
	"github.com/mcoot/roomhost/internal/storage"
)

// ErrTxContention is returned when an optimistic transaction keeps losing races
var ErrTxContention = errors.New("redis: transaction retries exhausted")

// Storage is a Redis-backed implementation of the storage interface.
// Multi-key writes run under WATCH/MULTI and are retried on conflict.
type Storage struct {
	client *redis.Client
	cfg    Config
}

// New creates a new Redis storage instance
func New(cfg Config) (*Storage, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, err
	}

	opts.PoolSize = cfg.PoolSize
	opts.MinIdleConns = cfg.MinIdleConns

	client := redis.NewClient(opts)

	// Verify connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	return &Storage{
		client: client,
		cfg:    cfg,
	}, nil
}

// NewWithClient creates a Redis storage with an existing client (for testing)
func NewWithClient(client *redis.Client, cfg Config) *Storage {
	return &Storage{
		client: client,
		cfg:    cfg,
	}
}

// Client exposes the underlying connection for components sharing it
func (s *Storage) Client() *redis.Client {
	return s.client
}

// Close closes the Redis connection
func (s *Storage) Close() error {
	return s.client.Close()
}

// Ensure Storage implements the interface
var _ storage.Storage = (*Storage)(nil)

// User operations

func (s *Storage) CreateUser(ctx context.Context, user *model.User) error {
	id, err := s.client.Incr(ctx, sequenceKey("user")).Result()
	if err != nil {
		return err
	}

	doc := userDocFromModel(user)
	doc.ID = model.UserID(id)
	data, err := json.Marshal(doc)
	if err != nil {
		return err
	}

	// The username index is the uniqueness guard; it is claimed in the same
	// MULTI as the user doc so neither exists without the other.
	index := usernameIndexKey(user.Username)
	err = s.watch(ctx, func(tx *redis.Tx) error {
		taken, err := tx.Exists(ctx, index).Result()
		if err != nil {
			return err
		}
		if taken > 0 {
			return model.ErrUsernameTaken
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, index, id, 0)
			pipe.Set(ctx, userKey(doc.ID), data, 0)
			pipe.ZAdd(ctx, usersKey(), redis.Z{Score: float64(id), Member: formatID(id)})
			return nil
		})
		return err
	}, index)
	if err != nil {
		return err
	}

	user.ID = doc.ID
	return nil
}

func (s *Storage) GetUser(ctx context.Context, id model.UserID) (*model.User, error) {
	doc, err := getUserDoc(ctx, s.client, id)
	if err != nil {
		return nil, err
	}
	return doc.toModel(), nil
}

func (s *Storage) GetUserByUsername(ctx context.Context, username string) (*model.User, error) {
	// Look up user ID from username index
	id, err := s.client.Get(ctx, usernameIndexKey(username)).Uint64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, model.ErrUserNotFound
		}
		return nil, err
	}

	return s.GetUser(ctx, model.UserID(id))
}

func (s *Storage) ListUsers(ctx context.Context) ([]*model.User, error) {
	ids, err := s.client.ZRange(ctx, usersKey(), 0, -1).Result()
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return []*model.User{}, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		n, err := strconv.ParseUint(id, 10, 64)
		if err != nil {
			return nil, err
		}
		keys[i] = userKey(model.UserID(n))
	}

	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}

	users := make([]*model.User, 0, len(values))
	for _, val := range values {
		str, ok := val.(string)
		if !ok {
			continue // Deleted between ZRANGE and MGET
		}
		var doc userDoc
		if err := json.Unmarshal([]byte(str), &doc); err != nil {
			return nil, err
		}
		users = append(users, doc.toModel())
	}
	return users, nil
}

func (s *Storage) UpdateUser(ctx context.Context, user *model.User) error {
	return s.watch(ctx, func(tx *redis.Tx) error {
		existing, err := getUserDoc(ctx, tx, user.ID)
		if err != nil {
			return err
		}

		renamed := existing.Username != user.Username
		if renamed {
			newIndex := usernameIndexKey(user.Username)
			if err := tx.Watch(ctx, newIndex).Err(); err != nil {
				return err
			}
			taken, err := tx.Exists(ctx, newIndex).Result()
			if err != nil {
				return err
			}
			if taken > 0 {
				return model.ErrUsernameTaken
			}
		}

		data, err := json.Marshal(userDocFromModel(user))
		if err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, userKey(user.ID), data, 0)
			if renamed {
				pipe.Del(ctx, usernameIndexKey(existing.Username))
				pipe.Set(ctx, usernameIndexKey(user.Username), uint64(user.ID), 0)
			}
			return nil
		})
		return err
	}, userKey(user.ID))
}

func (s *Storage) DeleteUser(ctx context.Context, id model.UserID) error {
	return s.watch(ctx, func(tx *redis.Tx) error {
		existing, err := getUserDoc(ctx, tx, id)
		if err != nil {
			return err
		}

		hosted, err := tx.SCard(ctx, hostedRoomsKey(id)).Result()
		if err != nil {
			return err
		}
		if hosted > 0 {
			return model.ErrUserHostsRooms
		}

		joined, err := tx.SMembers(ctx, joinedRoomsKey(id)).Result()
		if err != nil {
			return err
		}

		rooms := make([]roomDoc, 0, len(joined))
		for _, guid := range joined {
			key := roomKey(model.RoomGUID(guid))
			if err := tx.Watch(ctx, key).Err(); err != nil {
				return err
			}
			doc, err := getRoomDoc(ctx, tx, model.RoomGUID(guid))
			if errors.Is(err, model.ErrRoomNotFound) {
				continue
			}
			if err != nil {
				return err
			}
			doc.ParticipantIDs = withoutID(doc.ParticipantIDs, id)
			rooms = append(rooms, *doc)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			for i := range rooms {
				data, err := json.Marshal(rooms[i])
				if err != nil {
					return err
				}
				pipe.Set(ctx, roomKey(rooms[i].GUID), data, 0)
			}
			pipe.Del(ctx, userKey(id), usernameIndexKey(existing.Username), hostedRoomsKey(id), joinedRoomsKey(id))
			pipe.ZRem(ctx, usersKey(), formatID(int64(id)))
			return nil
		})
		return err
	}, userKey(id), hostedRoomsKey(id), joinedRoomsKey(id))
}

// Room operations

func (s *Storage) CreateRoom(ctx context.Context, room *model.Room) error {
	id, err := s.client.Incr(ctx, sequenceKey("room")).Result()
	if err != nil {
		return err
	}

	doc := roomDocFromModel(room)
	doc.ID = model.RoomID(id)
	data, err := json.Marshal(doc)
	if err != nil {
		return err
	}

	key := roomKey(room.GUID)
	err = s.watch(ctx, func(tx *redis.Tx) error {
		exists, err := tx.Exists(ctx, key).Result()
		if err != nil {
			return err
		}
		if exists > 0 {
			return model.ErrGUIDConflict
		}
		if _, err := getUserDoc(ctx, tx, doc.HostID); err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, 0)
			pipe.ZAdd(ctx, roomsKey(), redis.Z{Score: float64(id), Member: string(room.GUID)})
			pipe.SAdd(ctx, hostedRoomsKey(doc.HostID), string(room.GUID))
			for _, p := range doc.ParticipantIDs {
				pipe.SAdd(ctx, joinedRoomsKey(p), string(room.GUID))
			}
			return nil
		})
		return err
	}, key, userKey(doc.HostID))
	if err != nil {
		return err
	}

	room.ID = doc.ID
	return nil
}

func (s *Storage) GetRoom(ctx context.Context, guid model.RoomGUID) (*model.Room, error) {
	doc, err := getRoomDoc(ctx, s.client, guid)
	if err != nil {
		return nil, err
	}
	names, err := resolveNames(ctx, s.client, doc.memberIDs())
	if err != nil {
		return nil, err
	}
	return doc.toModel(names), nil
}

func (s *Storage) ListRooms(ctx context.Context) ([]*model.Room, error) {
	guids, err := s.client.ZRange(ctx, roomsKey(), 0, -1).Result()
	if err != nil {
		return nil, err
	}
	return s.loadRooms(ctx, guids)
}

func (s *Storage) ListRoomsByHost(ctx context.Context, userID model.UserID) ([]*model.Room, error) {
	guids, err := s.client.SMembers(ctx, hostedRoomsKey(userID)).Result()
	if err != nil {
		return nil, err
	}
	return s.loadRooms(ctx, guids)
}

func (s *Storage) ListRoomsByParticipant(ctx context.Context, userID model.UserID) ([]*model.Room, error) {
	guids, err := s.client.SMembers(ctx, joinedRoomsKey(userID)).Result()
	if err != nil {
		return nil, err
	}
	return s.loadRooms(ctx, guids)
}

func (s *Storage) UpdateRoom(ctx context.Context, guid model.RoomGUID, fn storage.RoomMutation) (*model.Room, error) {
	var result *model.Room
	key := roomKey(guid)

	err := s.watch(ctx, func(tx *redis.Tx) error {
		before, err := getRoomDoc(ctx, tx, guid)
		if err != nil {
			return err
		}
		names, err := resolveNames(ctx, tx, before.memberIDs())
		if err != nil {
			return err
		}

		// Users read by the mutation are watched too, so a concurrent
		// DeleteUser forces a retry.
		lookup := func(id model.UserID) (*model.User, error) {
			if err := tx.Watch(ctx, userKey(id)).Err(); err != nil {
				return nil, err
			}
			doc, err := getUserDoc(ctx, tx, id)
			if err != nil {
				return nil, err
			}
			return doc.toModel(), nil
		}

		room := before.toModel(names)
		if err := fn(room, lookup); err != nil {
			return err
		}
		room.ID = before.ID
		room.GUID = before.GUID

		after := roomDocFromModel(room)
		data, err := json.Marshal(after)
		if err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, 0)
			if after.HostID != before.HostID {
				pipe.SRem(ctx, hostedRoomsKey(before.HostID), string(guid))
				pipe.SAdd(ctx, hostedRoomsKey(after.HostID), string(guid))
			}
			for _, id := range missingIDs(before.ParticipantIDs, after.ParticipantIDs) {
				pipe.SRem(ctx, joinedRoomsKey(id), string(guid))
			}
			for _, id := range missingIDs(after.ParticipantIDs, before.ParticipantIDs) {
				pipe.SAdd(ctx, joinedRoomsKey(id), string(guid))
			}
			return nil
		})
		if err != nil {
			return err
		}

		result = room
		return nil
	}, key)
	if err != nil {
		return nil, err
	}
	return result, nil
}

// watch runs fn under WATCH on keys, retrying while another client wins the race
func (s *Storage) watch(ctx context.Context, fn func(tx *redis.Tx) error, keys ...string) error {
	retries := s.cfg.MaxTxRetries
	if retries < 1 {
		retries = 1
	}
	for i := 0; i < retries; i++ {
		err := s.client.Watch(ctx, fn, keys...)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return err
	}
	return ErrTxContention
}

// loadRooms fetches rooms by guid and resolves their members in one round trip each
func (s *Storage) loadRooms(ctx context.Context, guids []string) ([]*model.Room, error) {
	if len(guids) == 0 {
		return []*model.Room{}, nil
	}

	keys := make([]string, len(guids))
	for i, guid := range guids {
		keys[i] = roomKey(model.RoomGUID(guid))
	}

	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}

	docs := make([]roomDoc, 0, len(values))
	var memberIDs []model.UserID
	for _, val := range values {
		str, ok := val.(string)
		if !ok {
			continue
		}
		var doc roomDoc
		if err := json.Unmarshal([]byte(str), &doc); err != nil {
			return nil, err
		}
		docs = append(docs, doc)
		memberIDs = append(memberIDs, doc.memberIDs()...)
	}

	names, err := resolveNames(ctx, s.client, memberIDs)
	if err != nil {
		return nil, err
	}

	rooms := make([]*model.Room, len(docs))
	for i := range docs {
		rooms[i] = docs[i].toModel(names)
	}
	sort.Slice(rooms, func(i, j int) bool { return rooms[i].ID < rooms[j].ID })
	return rooms, nil
}

func getUserDoc(ctx context.Context, c redis.Cmdable, id model.UserID) (*userDoc, error) {
	data, err := c.Get(ctx, userKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, model.ErrUserNotFound
		}
		return nil, err
	}

	var doc userDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

func getRoomDoc(ctx context.Context, c redis.Cmdable, guid model.RoomGUID) (*roomDoc, error) {
	data, err := c.Get(ctx, roomKey(guid)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, model.ErrRoomNotFound
		}
		return nil, err
	}

	var doc roomDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

// resolveNames maps user ids to usernames with a single MGET
func resolveNames(ctx context.Context, c redis.Cmdable, ids []model.UserID) (map[model.UserID]string, error) {
	names := make(map[model.UserID]string, len(ids))
	if len(ids) == 0 {
		return names, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = userKey(id)
	}

	values, err := c.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}

	for _, val := range values {
		str, ok := val.(string)
		if !ok {
			continue
		}
		var doc userDoc
		if err := json.Unmarshal([]byte(str), &doc); err != nil {
			return nil, err
		}
		names[doc.ID] = doc.Username
	}
	return names, nil
}

// missingIDs returns the ids in a that are not in b
func missingIDs(a, b []model.UserID) []model.UserID {
	present := make(map[model.UserID]bool, len(b))
	for _, id := range b {
		present[id] = true
	}
	var missing []model.UserID
	for _, id := range a {
		if !present[id] {
			missing = append(missing, id)
		}
	}
	return missing
}

func withoutID(ids []model.UserID, id model.UserID) []model.UserID {
	out := make([]model.UserID, 0, len(ids))
	for _, other := range ids {
		if other != id {
			out = append(out, other)
		}
	}
	return out
}

func formatID(id int64) string {
	return strconv.FormatInt(id, 10)
}
