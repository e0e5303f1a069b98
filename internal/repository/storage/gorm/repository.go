package gorm

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/sharetube/roomsync/internal/domain"
)

type Config struct {
	Driver string
	DSN    string
}

// Open connects to the configured database and migrates the schema.
func Open(cfg *Config) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.Driver {
	case "postgres":
		dialector = postgres.Open(cfg.DSN)
	case "sqlite":
		dialector = sqlite.Open(cfg.DSN)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.AutoMigrate(&roomRecord{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return db, nil
}

type repo struct {
	db *gorm.DB
}

func NewRepo(db *gorm.DB) *repo {
	return &repo{db: db}
}

func (r repo) IsRoomNameTaken(ctx context.Context, name string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&roomRecord{}).
		Where("name_key = ?", nameKey(name)).
		Count(&count).Error; err != nil {
		return false, fmt.Errorf("failed to check room name: %w", err)
	}

	return count > 0, nil
}

// GetRoomByName returns the saved definition of a room, or nil when none exists.
func (r repo) GetRoomByName(ctx context.Context, name string) (*domain.RoomSnapshot, error) {
	var record roomRecord
	if err := r.db.WithContext(ctx).
		Where("name_key = ?", nameKey(name)).
		First(&record).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get room: %w", err)
	}

	snapshot := record.snapshot()
	return &snapshot, nil
}

// SaveRoom inserts or replaces the saved definition of a room.
func (r repo) SaveRoom(ctx context.Context, s domain.RoomSnapshot) error {
	record := recordFromSnapshot(s)
	if err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "name_key"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"title",
			"description",
			"is_pinned",
			"queue_mode",
			"current_source",
			"queue",
			"playback_position",
			"votes",
			"grants",
			"last_activity",
			"updated_at",
		}),
	}).Create(&record).Error; err != nil {
		return fmt.Errorf("failed to save room: %w", err)
	}

	return nil
}
