package domain

import "time"

// RoomSnapshot is the persistable state of a room. It is the JSON stored under
// the room's snapshot key and the shape saved to the backing store.
type RoomSnapshot struct {
	Name             string              `json:"name"`
	Title            string              `json:"title"`
	Description      string              `json:"description"`
	IsTemporary      bool                `json:"isTemporary"`
	IsPinned         bool                `json:"isPinned"`
	CurrentSource    *Video              `json:"currentSource"`
	Queue            []Video             `json:"queue"`
	QueueMode        QueueMode           `json:"queueMode"`
	IsPlaying        bool                `json:"isPlaying"`
	PlaybackPosition float64             `json:"playbackPosition"`
	PlaybackStart    *time.Time          `json:"playbackStart,omitempty"`
	Votes            map[string][]string `json:"votes"`
	Grants           Grants              `json:"grants"`
	Members          []Member            `json:"members"`
	LastActivity     time.Time           `json:"lastActivity"`
}

// SyncState is what clients need to render the room. It is written next to the
// snapshot on every sync.
type SyncState struct {
	Name             string         `json:"name"`
	Title            string         `json:"title"`
	CurrentSource    *Video         `json:"currentSource"`
	Queue            []Video        `json:"queue"`
	QueueMode        QueueMode      `json:"queueMode"`
	IsPlaying        bool           `json:"isPlaying"`
	PlaybackPosition float64        `json:"playbackPosition"`
	VoteCounts       map[string]int `json:"voteCounts"`
	Users            []Member       `json:"users"`
}

// RoomSummary is the listing entry of a room.
type RoomSummary struct {
	Name        string `json:"name"`
	Title       string `json:"title"`
	IsTemporary bool   `json:"isTemporary"`
	IsPlaying   bool   `json:"isPlaying"`
	Users       int    `json:"users"`
}

// SessionInfo describes the holder of an auth token.
type SessionInfo struct {
	Username   string `json:"username,omitempty"`
	UserID     *int64 `json:"user_id,omitempty"`
	IsLoggedIn bool   `json:"isLoggedIn"`
}
