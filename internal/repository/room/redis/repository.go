package redis

import (
	"strings"

	"github.com/redis/go-redis/v9"
)

const (
	snapshotPrefix = "room:"
	syncPrefix     = "room-sync:"
	requestPrefix  = "room-request:"
)

type repo struct {
	rc *redis.Client
}

func NewRepo(rc *redis.Client) *repo {
	return &repo{
		rc: rc,
	}
}

func normalize(name string) string {
	return strings.ToLower(name)
}

func (r repo) getSnapshotKey(name string) string {
	return snapshotPrefix + normalize(name)
}

func (r repo) getSyncKey(name string) string {
	return syncPrefix + normalize(name)
}

// RequestChannel is the broadcast channel of requests addressed to a room.
func RequestChannel(name string) string {
	return requestPrefix + normalize(name)
}

// RoomFromChannel extracts the room name from a request channel.
func RoomFromChannel(channel string) (string, bool) {
	return strings.CutPrefix(channel, requestPrefix)
}
