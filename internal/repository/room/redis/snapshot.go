package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/sharetube/roomsync/internal/domain"
	"github.com/sharetube/roomsync/internal/repository/room"
)

// SaveSnapshot writes the snapshot and sync keys of a room in one transaction.
func (r repo) SaveSnapshot(ctx context.Context, name string, snapshot, syncState []byte) error {
	pipe := r.rc.TxPipeline()
	pipe.Set(ctx, r.getSnapshotKey(name), snapshot, 0)
	pipe.Set(ctx, r.getSyncKey(name), syncState, 0)

	if err := r.executePipe(ctx, pipe); err != nil {
		return fmt.Errorf("failed to save snapshot: %w", err)
	}

	return nil
}

func (r repo) GetSnapshot(ctx context.Context, name string) (domain.RoomSnapshot, error) {
	data, err := r.rc.Get(ctx, r.getSnapshotKey(name)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domain.RoomSnapshot{}, room.ErrSnapshotNotFound
		}
		return domain.RoomSnapshot{}, fmt.Errorf("failed to get snapshot: %w", err)
	}

	var snapshot domain.RoomSnapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return domain.RoomSnapshot{}, fmt.Errorf("failed to decode snapshot %s: %w", name, err)
	}

	return snapshot, nil
}

// GetSyncState returns the raw client sync artifact of a room.
func (r repo) GetSyncState(ctx context.Context, name string) ([]byte, error) {
	data, err := r.rc.Get(ctx, r.getSyncKey(name)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, room.ErrSnapshotNotFound
		}
		return nil, fmt.Errorf("failed to get sync state: %w", err)
	}

	return data, nil
}

// ListSnapshots returns every room snapshot in the store. Undecodable snapshots
// are logged and skipped.
func (r repo) ListSnapshots(ctx context.Context) ([]domain.RoomSnapshot, error) {
	var names []string
	iter := r.rc.Scan(ctx, 0, snapshotPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		names = append(names, strings.TrimPrefix(iter.Val(), snapshotPrefix))
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan snapshots: %w", err)
	}

	snapshots := make([]domain.RoomSnapshot, 0, len(names))
	for _, name := range names {
		snapshot, err := r.GetSnapshot(ctx, name)
		if err != nil {
			if errors.Is(err, room.ErrSnapshotNotFound) {
				continue
			}
			slog.WarnContext(ctx, "skipping snapshot", "room", name, "error", err)
			continue
		}
		snapshots = append(snapshots, snapshot)
	}

	return snapshots, nil
}

// RoomExists reports whether a room is loaded on some node.
func (r repo) RoomExists(ctx context.Context, name string) (bool, error) {
	res, err := r.rc.Exists(ctx, r.getSnapshotKey(name)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check if room exists: %w", err)
	}

	return res > 0, nil
}

func (r repo) DeleteRoom(ctx context.Context, name string) error {
	if err := r.rc.Del(ctx, r.getSnapshotKey(name), r.getSyncKey(name)).Err(); err != nil {
		return fmt.Errorf("failed to delete room keys: %w", err)
	}

	return nil
}
