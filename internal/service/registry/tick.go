package registry

import (
	"context"
	"errors"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/sharetube/roomsync/internal/observability"
	"github.com/sharetube/roomsync/internal/service/room"
)

func (r *Registry) run(ctx context.Context) {
	ticker := time.NewTicker(r.cfg.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.Tick(ctx)
		}
	}
}

// Tick updates and syncs every local room once, then unloads the stale ones.
// Each room gets at most TickTimeout; a failing room does not affect the others.
func (r *Registry) Tick(ctx context.Context) {
	start := time.Now()
	defer func() {
		observability.TickDuration.Observe(time.Since(start).Seconds())
	}()

	var (
		mu    sync.Mutex
		stale []string
	)

	var g errgroup.Group
	g.SetLimit(defaultTickWorkers)
	for _, rm := range r.all() {
		g.Go(func() error {
			isStale, err := r.tickRoom(ctx, rm)
			if err != nil {
				r.logger.WarnContext(ctx, "room tick failed", "room", rm.Name(), "error", err)
				return nil
			}
			if isStale {
				mu.Lock()
				stale = append(stale, rm.Name())
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()

	for _, name := range stale {
		if err := r.UnloadRoom(ctx, name); err != nil && !errors.Is(err, room.ErrRoomNotFound) {
			r.logger.WarnContext(ctx, "failed to unload stale room", "room", name, "error", err)
			continue
		}
		r.logger.InfoContext(ctx, "stale room unloaded", "room", name)
	}

	observability.RoomsLoaded.Set(float64(len(r.Rooms())))
}

func (r *Registry) tickRoom(ctx context.Context, rm *room.Room) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.TickTimeout)
	defer cancel()

	if err := rm.Update(ctx); err != nil {
		return false, err
	}
	if err := rm.Sync(ctx); err != nil {
		return false, err
	}

	return rm.IsStale(ctx)
}
