package redis

import (
	"fmt"

	"github.com/mcoot/roomhost/internal/model"
)

// Key prefix for all room host data
const keyPrefix = "roomhost"

// userKey returns the Redis key for a User
func userKey(id model.UserID) string {
	return fmt.Sprintf("%s:user:%d", keyPrefix, id)
}

// usernameIndexKey returns the Redis key for the username -> user_id index
func usernameIndexKey(username string) string {
	return fmt.Sprintf("%s:idx:username:%s", keyPrefix, username)
}

// usersKey returns the Redis key for the ZSET of user ids scored by id
func usersKey() string {
	return fmt.Sprintf("%s:users", keyPrefix)
}

// roomKey returns the Redis key for a Room
func roomKey(guid model.RoomGUID) string {
	return fmt.Sprintf("%s:room:%s", keyPrefix, guid)
}

// roomsKey returns the Redis key for the ZSET of room guids scored by room id
func roomsKey() string {
	return fmt.Sprintf("%s:rooms", keyPrefix)
}

// hostedRoomsKey returns the Redis key for the SET of guids a user hosts
func hostedRoomsKey(id model.UserID) string {
	return fmt.Sprintf("%s:idx:hosted:%d", keyPrefix, id)
}

// joinedRoomsKey returns the Redis key for the SET of guids a user participates in
func joinedRoomsKey(id model.UserID) string {
	return fmt.Sprintf("%s:idx:joined:%d", keyPrefix, id)
}

// sequenceKey returns the Redis key for an id counter
func sequenceKey(name string) string {
	return fmt.Sprintf("%s:seq:%s", keyPrefix, name)
}
