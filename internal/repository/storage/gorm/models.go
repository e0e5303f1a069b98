package gorm

import (
	"strings"
	"time"

	"github.com/sharetube/roomsync/internal/domain"
)

// roomRecord is a saved room definition. Members and the playing flag are
// transient and not stored.
type roomRecord struct {
	ID               uint                `gorm:"primaryKey"`
	Name             string              `gorm:"size:32;not null"`
	NameKey          string              `gorm:"size:32;not null;uniqueIndex"`
	Title            string              `gorm:"size:255"`
	Description      string              `gorm:"size:1024"`
	IsPinned         bool                `gorm:"not null;default:false"`
	QueueMode        string              `gorm:"size:16;not null"`
	CurrentSource    *domain.Video       `gorm:"serializer:json"`
	Queue            []domain.Video      `gorm:"serializer:json"`
	PlaybackPosition float64             `gorm:"not null;default:0"`
	Votes            map[string][]string `gorm:"serializer:json"`
	Grants           domain.Grants       `gorm:"serializer:json"`
	LastActivity     time.Time
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

func (roomRecord) TableName() string {
	return "rooms"
}

func nameKey(name string) string {
	return strings.ToLower(name)
}

func recordFromSnapshot(s domain.RoomSnapshot) roomRecord {
	return roomRecord{
		Name:             s.Name,
		NameKey:          nameKey(s.Name),
		Title:            s.Title,
		Description:      s.Description,
		IsPinned:         s.IsPinned,
		QueueMode:        s.QueueMode.String(),
		CurrentSource:    s.CurrentSource,
		Queue:            s.Queue,
		PlaybackPosition: s.PlaybackPosition,
		Votes:            s.Votes,
		Grants:           s.Grants,
		LastActivity:     s.LastActivity,
	}
}

func (r roomRecord) snapshot() domain.RoomSnapshot {
	mode, err := domain.ParseQueueMode(r.QueueMode)
	if err != nil {
		mode = domain.QueueModeManual
	}

	queue := r.Queue
	if queue == nil {
		queue = []domain.Video{}
	}

	return domain.RoomSnapshot{
		Name:             r.Name,
		Title:            r.Title,
		Description:      r.Description,
		IsPinned:         r.IsPinned,
		CurrentSource:    r.CurrentSource,
		Queue:            queue,
		QueueMode:        mode,
		PlaybackPosition: r.PlaybackPosition,
		Votes:            r.Votes,
		Grants:           r.Grants,
		LastActivity:     r.LastActivity,
	}
}
