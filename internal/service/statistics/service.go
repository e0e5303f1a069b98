package statistics

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sharetube/roomsync/internal/observability"
	"github.com/sharetube/roomsync/internal/service/room"
)

// Counters are the usage counters rooms bump.
var Counters = []string{
	room.CounterVideosQueued,
	room.CounterVideosSkipped,
	room.CounterVideosWatched,
}

type iCounterStore interface {
	IncrBy(ctx context.Context, key string, amount int64) error
	GetCounter(ctx context.Context, key string) (int64, error)
}

type service struct {
	store  iCounterStore
	logger *slog.Logger
}

func NewService(store iCounterStore, logger *slog.Logger) *service {
	if logger == nil {
		logger = slog.Default()
	}

	return &service{
		store:  store,
		logger: logger,
	}
}

// BumpCounter adds amount to the named counter. Failures are logged and
// otherwise ignored.
func (s service) BumpCounter(ctx context.Context, name string, amount int64) {
	if amount <= 0 {
		return
	}

	observability.StatCounters.WithLabelValues(name).Add(float64(amount))

	if err := s.store.IncrBy(ctx, name, amount); err != nil {
		s.logger.WarnContext(ctx, "failed to bump counter", "counter", name, "error", err)
	}
}

// GetCounters returns the cluster-wide value of every usage counter.
func (s service) GetCounters(ctx context.Context) (map[string]int64, error) {
	counts := make(map[string]int64, len(Counters))
	for _, name := range Counters {
		n, err := s.store.GetCounter(ctx, name)
		if err != nil {
			return nil, fmt.Errorf("failed to get counter %s: %w", name, err)
		}
		counts[name] = n
	}

	return counts, nil
}
