package domain

import (
	"errors"
	"math/rand/v2"
	"slices"
)

var ErrInvalidQueueIndex = errors.New("invalid queue index")

// Advance describes what DequeueNext did to the playlist.
type Advance int

const (
	// AdvanceNext means Current now holds a different item (possibly nil).
	AdvanceNext Advance = iota
	// AdvanceRestart means Current is unchanged and should play from the start.
	AdvanceRestart
	// AdvanceNone means nothing changed.
	AdvanceNone
)

// Playlist is the currently playing item plus the pending queue. Its methods are
// pure decision logic and never block.
type Playlist struct {
	Current *Video  `json:"currentSource"`
	Queue   []Video `json:"queue"`
}

func (p *Playlist) Length() int {
	return len(p.Queue)
}

// DequeueNext selects the next item to play according to mode.
func (p *Playlist) DequeueNext(mode QueueMode) Advance {
	switch mode {
	case QueueModeLoop:
		if len(p.Queue) == 0 {
			return AdvanceNone
		}
		prev := p.Current
		p.Current = p.popFront()
		if prev != nil {
			p.Queue = append(p.Queue, *prev)
		}
		return AdvanceNext
	case QueueModeDj:
		return AdvanceRestart
	default:
		p.Current = p.popFront()
		return AdvanceNext
	}
}

func (p *Playlist) popFront() *Video {
	if len(p.Queue) == 0 {
		return nil
	}

	front := p.Queue[0]
	p.Queue = slices.Delete(p.Queue, 0, 1)
	return &front
}

func (p *Playlist) Contains(video Video) bool {
	return p.indexOf(video) >= 0
}

func (p *Playlist) indexOf(video Video) int {
	return slices.IndexFunc(p.Queue, func(v Video) bool {
		return v.Same(video)
	})
}

func (p *Playlist) Append(video Video) error {
	if p.Contains(video) {
		return ErrVideoAlreadyQueued
	}

	p.Queue = append(p.Queue, video)
	return nil
}

func (p *Playlist) PushFront(video Video) {
	p.Queue = slices.Insert(p.Queue, 0, video)
}

// Remove deletes the first occurrence of video from the queue.
func (p *Playlist) Remove(video Video) (Video, error) {
	idx := p.indexOf(video)
	if idx < 0 {
		return Video{}, ErrVideoNotFound
	}

	removed := p.Queue[idx]
	p.Queue = slices.Delete(p.Queue, idx, idx+1)
	return removed, nil
}

// RemoveAll deletes every occurrence of video and reports how many were removed.
func (p *Playlist) RemoveAll(video Video) int {
	before := len(p.Queue)
	p.Queue = slices.DeleteFunc(p.Queue, func(v Video) bool {
		return v.Same(video)
	})
	return before - len(p.Queue)
}

// Move relocates the item at from so that it ends up at index to.
func (p *Playlist) Move(from, to int) error {
	if from < 0 || from >= len(p.Queue) || to < 0 || to >= len(p.Queue) {
		return ErrInvalidQueueIndex
	}

	video := p.Queue[from]
	p.Queue = slices.Delete(p.Queue, from, from+1)
	p.Queue = slices.Insert(p.Queue, to, video)
	return nil
}

// Shuffle permutes the queue uniformly in place.
func (p *Playlist) Shuffle(r *rand.Rand) {
	shuffle := rand.Shuffle
	if r != nil {
		shuffle = r.Shuffle
	}

	shuffle(len(p.Queue), func(i, j int) {
		p.Queue[i], p.Queue[j] = p.Queue[j], p.Queue[i]
	})
}

// SortByVotes orders the queue by descending vote count, keeping insertion order
// among items with equal counts.
func (p *Playlist) SortByVotes(votes Votes) {
	slices.SortStableFunc(p.Queue, func(a, b Video) int {
		return votes.Count(b.Key()) - votes.Count(a.Key())
	})
}

// Keys returns the identity keys of every item in the playlist.
func (p *Playlist) Keys() map[string]struct{} {
	keys := make(map[string]struct{}, len(p.Queue)+1)
	if p.Current != nil {
		keys[p.Current.Key()] = struct{}{}
	}
	for _, v := range p.Queue {
		keys[v.Key()] = struct{}{}
	}

	return keys
}

func (p *Playlist) Clone() Playlist {
	c := Playlist{Queue: slices.Clone(p.Queue)}
	if p.Current != nil {
		current := *p.Current
		c.Current = &current
	}
	if c.Queue == nil {
		c.Queue = []Video{}
	}

	return c
}
