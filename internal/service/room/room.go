package room

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/sharetube/roomsync/internal/domain"
)

type Options struct {
	Name        string           `json:"name" validate:"required,min=3,max=32,roomname"`
	Title       string           `json:"title" validate:"max=255"`
	Description string           `json:"description" validate:"max=1024"`
	IsTemporary bool             `json:"isTemporary"`
	IsPinned    bool             `json:"isPinned"`
	QueueMode   domain.QueueMode `json:"queueMode"`
	Grants      domain.Grants    `json:"-"`
}

// Room is the authoritative state of one room. Every exported method runs to
// completion under the room's lock, so requests and ticks never interleave.
type Room struct {
	sem    *semaphore.Weighted
	deps   Deps
	logger *slog.Logger

	name        string
	title       string
	description string
	isTemporary bool
	isPinned    bool

	playlist         domain.Playlist
	queueMode        domain.QueueMode
	isPlaying        bool
	playbackPosition float64
	playbackStart    time.Time

	votes        domain.Votes
	grants       domain.Grants
	members      *domain.Members
	lastActivity time.Time
	unloaded     bool
}

func New(opts Options, deps Deps) *Room {
	deps = deps.withDefaults()

	grants := opts.Grants
	if grants == nil {
		grants = domain.DefaultGrants()
	}

	return &Room{
		sem:          semaphore.NewWeighted(1),
		deps:         deps,
		logger:       deps.Logger.With("room", opts.Name),
		name:         opts.Name,
		title:        opts.Title,
		description:  opts.Description,
		isTemporary:  opts.IsTemporary,
		isPinned:     opts.IsPinned,
		queueMode:    opts.QueueMode,
		playlist:     domain.Playlist{Queue: []domain.Video{}},
		votes:        domain.NewVotes(),
		grants:       grants.Clone(),
		members:      domain.NewMembers(),
		lastActivity: deps.Now(),
	}
}

// FromSnapshot rehydrates a room from its persisted state.
func FromSnapshot(s domain.RoomSnapshot, deps Deps) *Room {
	r := New(Options{
		Name:        s.Name,
		Title:       s.Title,
		Description: s.Description,
		IsTemporary: s.IsTemporary,
		IsPinned:    s.IsPinned,
		QueueMode:   s.QueueMode,
		Grants:      s.Grants,
	}, deps)

	r.playlist = (&domain.Playlist{Current: s.CurrentSource, Queue: s.Queue}).Clone()
	r.isPlaying = s.IsPlaying
	r.playbackPosition = s.PlaybackPosition
	if s.PlaybackStart != nil {
		r.playbackStart = *s.PlaybackStart
	}
	if r.isPlaying && r.playbackStart.IsZero() {
		r.playbackStart = r.deps.Now()
	}
	if s.Votes != nil {
		r.votes = domain.VotesFromLists(s.Votes)
	}
	r.members = domain.NewMembers(s.Members...)
	if !s.LastActivity.IsZero() {
		r.lastActivity = s.LastActivity
	}

	return r
}

func (r *Room) Name() string {
	return r.name
}

func (r *Room) IsTemporary() bool {
	return r.isTemporary
}

func (r *Room) lock(ctx context.Context) error {
	if err := r.sem.Acquire(ctx, 1); err != nil {
		return fmt.Errorf("failed to lock room %s: %w", r.name, err)
	}

	return nil
}

func (r *Room) unlock() {
	r.sem.Release(1)
}

func (r *Room) touch() {
	r.lastActivity = r.deps.Now()
}

// Snapshot returns a copy of the persistable state.
func (r *Room) Snapshot(ctx context.Context) (domain.RoomSnapshot, error) {
	if err := r.lock(ctx); err != nil {
		return domain.RoomSnapshot{}, err
	}
	defer r.unlock()

	return r.snapshot(), nil
}

func (r *Room) snapshot() domain.RoomSnapshot {
	playlist := r.playlist.Clone()
	s := domain.RoomSnapshot{
		Name:             r.name,
		Title:            r.title,
		Description:      r.description,
		IsTemporary:      r.isTemporary,
		IsPinned:         r.isPinned,
		CurrentSource:    playlist.Current,
		Queue:            playlist.Queue,
		QueueMode:        r.queueMode,
		IsPlaying:        r.isPlaying,
		PlaybackPosition: r.playbackPosition,
		Votes:            r.votes.AsLists(),
		Grants:           r.grants.Clone(),
		Members:          r.members.AsList(),
		LastActivity:     r.lastActivity,
	}
	if !r.playbackStart.IsZero() {
		start := r.playbackStart
		s.PlaybackStart = &start
	}

	return s
}

func (r *Room) syncState() domain.SyncState {
	playlist := r.playlist.Clone()
	counts := make(map[string]int, len(r.votes))
	for key := range r.votes {
		if n := r.votes.Count(key); n > 0 {
			counts[key] = n
		}
	}

	return domain.SyncState{
		Name:             r.name,
		Title:            r.title,
		CurrentSource:    playlist.Current,
		Queue:            playlist.Queue,
		QueueMode:        r.queueMode,
		IsPlaying:        r.isPlaying,
		PlaybackPosition: r.playbackPosition,
		VoteCounts:       counts,
		Users:            r.members.AsList(),
	}
}

// Sync writes the snapshot and the client sync state to the shared store.
func (r *Room) Sync(ctx context.Context) error {
	if err := r.lock(ctx); err != nil {
		return err
	}
	defer r.unlock()

	return r.sync(ctx)
}

func (r *Room) sync(ctx context.Context) error {
	if r.unloaded || r.deps.Store == nil {
		return nil
	}

	snapshot, err := json.Marshal(r.snapshot())
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	syncState, err := json.Marshal(r.syncState())
	if err != nil {
		return fmt.Errorf("failed to marshal sync state: %w", err)
	}

	if err := r.deps.Store.SaveSnapshot(ctx, r.name, snapshot, syncState); err != nil {
		return fmt.Errorf("failed to save snapshot: %w", err)
	}

	return nil
}

// Persist saves the room definition to the backing store.
func (r *Room) Persist(ctx context.Context) error {
	if err := r.lock(ctx); err != nil {
		return err
	}
	defer r.unlock()

	return r.persist(ctx)
}

func (r *Room) persist(ctx context.Context) error {
	if r.isTemporary || r.deps.Storage == nil {
		return nil
	}

	if err := r.deps.Storage.SaveRoom(ctx, r.snapshot()); err != nil {
		return fmt.Errorf("failed to save room: %w", err)
	}

	return nil
}

// IsStale reports whether the room has had no members for longer than the
// retention window and is not pinned.
func (r *Room) IsStale(ctx context.Context) (bool, error) {
	if err := r.lock(ctx); err != nil {
		return false, err
	}
	defer r.unlock()

	return r.isStale(), nil
}

func (r *Room) isStale() bool {
	if r.isPinned || r.members.Length() > 0 {
		return false
	}

	return r.deps.Now().Sub(r.lastActivity) > r.deps.StaleAfter
}

// OnBeforeUnload flushes the definition to the backing store and disconnects
// the members connected to this node. The room rejects requests and stops
// syncing afterwards.
func (r *Room) OnBeforeUnload(ctx context.Context) error {
	if err := r.lock(ctx); err != nil {
		return err
	}
	defer r.unlock()

	if err := r.persist(ctx); err != nil {
		r.logger.WarnContext(ctx, "failed to persist room before unload", "error", err)
	}

	if r.deps.Disconnector != nil {
		r.deps.Disconnector.Disconnect(r.name, r.members.ClientIDs()...)
	}
	r.unloaded = true

	return nil
}
