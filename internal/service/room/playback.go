package room

import (
	"context"
	"math"

	"github.com/sharetube/roomsync/internal/domain"
)

func (r *Room) clampPosition(pos float64) float64 {
	pos = math.Max(pos, 0)
	if r.playlist.Current != nil {
		if length, ok := r.playlist.Current.KnownLength(); ok {
			pos = math.Min(pos, length)
		}
	}

	return pos
}

// elapsed returns the seconds played since the current play segment started.
func (r *Room) elapsed() float64 {
	if r.playbackStart.IsZero() {
		return 0
	}

	return r.deps.Now().Sub(r.playbackStart).Seconds()
}

func (r *Room) setPlaying(state bool) {
	if state == r.isPlaying {
		return
	}

	if state {
		r.playbackStart = r.deps.Now()
		r.isPlaying = true
		return
	}

	r.playbackPosition = r.clampPosition(r.playbackPosition + r.elapsed())
	r.isPlaying = false
}

func (r *Room) seek(value *float64) {
	if value == nil {
		return
	}

	r.playbackPosition = r.clampPosition(*value)
	if r.isPlaying {
		r.playbackStart = r.deps.Now()
	}
}

// dequeueNext advances the playlist under the current queue mode and restarts
// playback at the beginning of whatever is now current. Nothing is reset when
// the playlist did not move.
func (r *Room) dequeueNext() domain.Advance {
	advance := r.playlist.DequeueNext(r.queueMode)
	if advance == domain.AdvanceNone {
		return advance
	}

	r.restart()
	r.votes.Prune(r.playlist.Keys())
	r.logger.Debug("dequeued next", "mode", r.queueMode, "advance", advance)

	return advance
}

func (r *Room) restart() {
	r.playbackPosition = 0
	r.playbackStart = r.deps.Now()
	if r.playlist.Current == nil {
		r.isPlaying = false
	}
}

// Update advances playback by the wall-clock time since the last anchor and
// moves to the next item when the current one has finished.
func (r *Room) Update(ctx context.Context) error {
	if err := r.lock(ctx); err != nil {
		return err
	}
	defer r.unlock()

	r.update(ctx)
	return nil
}

func (r *Room) update(ctx context.Context) {
	if r.unloaded || !r.isPlaying {
		return
	}

	r.playbackPosition += r.elapsed()
	r.playbackStart = r.deps.Now()

	if r.playlist.Current == nil {
		r.isPlaying = false
		r.playbackPosition = 0
		return
	}

	length, ok := r.playlist.Current.KnownLength()
	if !ok || r.playbackPosition < length {
		return
	}

	r.bumpCounter(ctx, CounterVideosWatched, 1)
	// a lone looping item starts over
	if r.dequeueNext() == domain.AdvanceNone {
		r.restart()
	}
}
