package statistics

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sharetube/roomsync/internal/observability"
	"github.com/sharetube/roomsync/internal/service/room"
)

type fakeStore struct {
	counts map[string]int64
	err    error
}

func (f *fakeStore) IncrBy(_ context.Context, key string, amount int64) error {
	if f.err != nil {
		return f.err
	}
	if f.counts == nil {
		f.counts = map[string]int64{}
	}
	f.counts[key] += amount
	return nil
}

func (f *fakeStore) GetCounter(_ context.Context, key string) (int64, error) {
	if f.err != nil {
		return 0, f.err
	}
	return f.counts[key], nil
}

func TestBumpCounter(t *testing.T) {
	store := &fakeStore{}
	s := NewService(store, nil)
	before := testutil.ToFloat64(observability.StatCounters.WithLabelValues("test:bump"))

	s.BumpCounter(context.Background(), "test:bump", 2)
	s.BumpCounter(context.Background(), "test:bump", 0)
	s.BumpCounter(context.Background(), "test:bump", 1)

	assert.Equal(t, int64(3), store.counts["test:bump"])
	assert.Equal(t, before+3, testutil.ToFloat64(observability.StatCounters.WithLabelValues("test:bump")))
}

func TestBumpCounterSwallowsErrors(t *testing.T) {
	s := NewService(&fakeStore{err: errors.New("redis down")}, nil)

	assert.NotPanics(t, func() {
		s.BumpCounter(context.Background(), "test:fail", 1)
	})
}

func TestGetCounters(t *testing.T) {
	store := &fakeStore{}
	s := NewService(store, nil)
	s.BumpCounter(context.Background(), room.CounterVideosQueued, 4)
	s.BumpCounter(context.Background(), room.CounterVideosWatched, 1)

	counts, err := s.GetCounters(context.Background())
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{
		room.CounterVideosQueued:  4,
		room.CounterVideosSkipped: 0,
		room.CounterVideosWatched: 1,
	}, counts)

	_, err = NewService(&fakeStore{err: errors.New("redis down")}, nil).GetCounters(context.Background())
	assert.Error(t, err)
}
