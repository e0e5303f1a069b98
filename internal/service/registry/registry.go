package registry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/sharetube/roomsync/internal/domain"
	"github.com/sharetube/roomsync/internal/service/room"
	"github.com/sharetube/roomsync/pkg/validator"
)

// Manager is the set of operations a node performs on the rooms it owns.
type Manager interface {
	Start(ctx context.Context) error
	CreateRoom(ctx context.Context, opts room.Options) (*room.Room, error)
	GetRoom(ctx context.Context, name string, mustAlreadyBeLoaded bool) (*room.Room, error)
	UnloadRoom(ctx context.Context, name string) error
	RemoteRequestHandler(ctx context.Context, channel string, payload []byte)
}

type iSharedStore interface {
	SaveSnapshot(ctx context.Context, name string, snapshot, syncState []byte) error
	ListSnapshots(ctx context.Context) ([]domain.RoomSnapshot, error)
	RoomExists(ctx context.Context, name string) (bool, error)
	DeleteRoom(ctx context.Context, name string) error
	PublishRequest(ctx context.Context, name string, payload []byte) error
	SubscribeRequests(ctx context.Context, onMessage func(ctx context.Context, channel string, payload []byte)) error
}

type iStorage interface {
	IsRoomNameTaken(ctx context.Context, name string) (bool, error)
	GetRoomByName(ctx context.Context, name string) (*domain.RoomSnapshot, error)
	SaveRoom(ctx context.Context, snapshot domain.RoomSnapshot) error
}

type iSessions interface {
	GetSessionInfo(ctx context.Context, token string) (domain.SessionInfo, error)
	Validate(ctx context.Context, token string) (bool, error)
}

type iMetadata interface {
	GetVideoInfo(ctx context.Context, video domain.Video) (domain.Video, error)
}

type iCounters interface {
	BumpCounter(ctx context.Context, name string, amount int64)
}

type iDisconnector interface {
	Disconnect(room string, clientIDs ...string)
}

const (
	DefaultTickInterval = time.Second
	DefaultTickTimeout  = 500 * time.Millisecond
	// DefaultRelayTimeout bounds one relayed request, metadata lookups included.
	DefaultRelayTimeout = 15 * time.Second
	defaultTickWorkers  = 16
)

type Config struct {
	TickInterval time.Duration
	TickTimeout  time.Duration
	RelayTimeout time.Duration
	StaleAfter   time.Duration
}

type Params struct {
	Store        iSharedStore
	Storage      iStorage
	Sessions     iSessions
	Metadata     iMetadata
	Counters     iCounters
	Disconnector iDisconnector
	Logger       *slog.Logger
	Config       Config
}

type Registry struct {
	mu    sync.RWMutex
	rooms map[string]*room.Room

	store     iSharedStore
	storage   iStorage
	deps      room.Deps
	validator *validator.Validator
	logger    *slog.Logger
	cfg       Config
}

var _ Manager = (*Registry)(nil)

func New(params *Params) *Registry {
	logger := params.Logger
	if logger == nil {
		logger = slog.Default()
	}

	cfg := params.Config
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = DefaultTickInterval
	}
	if cfg.TickTimeout <= 0 {
		cfg.TickTimeout = DefaultTickTimeout
	}
	if cfg.RelayTimeout <= 0 {
		cfg.RelayTimeout = DefaultRelayTimeout
	}

	deps := room.Deps{
		Sessions:     params.Sessions,
		Metadata:     params.Metadata,
		Store:        params.Store,
		Storage:      params.Storage,
		Counters:     params.Counters,
		Disconnector: params.Disconnector,
		Logger:       logger,
		StaleAfter:   cfg.StaleAfter,
	}

	return &Registry{
		rooms:     make(map[string]*room.Room),
		store:     params.Store,
		storage:   params.Storage,
		deps:      deps,
		validator: validator.NewValidator(),
		logger:    logger,
		cfg:       cfg,
	}
}

func key(name string) string {
	return strings.ToLower(name)
}

func (r *Registry) local(name string) (*room.Room, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rm, ok := r.rooms[key(name)]
	return rm, ok
}

// register adds rm unless a room with the same name is already registered, in
// which case the registered one is returned.
func (r *Registry) register(rm *room.Room) (*room.Room, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.rooms[key(rm.Name())]; ok {
		return existing, false
	}
	r.rooms[key(rm.Name())] = rm

	return rm, true
}

// Rooms returns the sorted names of the locally owned rooms.
func (r *Registry) Rooms() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.rooms))
	for _, rm := range r.rooms {
		names = append(names, rm.Name())
	}
	slices.Sort(names)

	return names
}

// Summaries lists the locally owned rooms sorted by name.
func (r *Registry) Summaries(ctx context.Context) ([]domain.RoomSummary, error) {
	rooms := r.all()
	summaries := make([]domain.RoomSummary, 0, len(rooms))
	for _, rm := range rooms {
		s, err := rm.Snapshot(ctx)
		if err != nil {
			return nil, err
		}
		summaries = append(summaries, domain.RoomSummary{
			Name:        s.Name,
			Title:       s.Title,
			IsTemporary: s.IsTemporary,
			IsPlaying:   s.IsPlaying,
			Users:       len(s.Members),
		})
	}
	slices.SortFunc(summaries, func(a, b domain.RoomSummary) int {
		return strings.Compare(a.Name, b.Name)
	})

	return summaries, nil
}

func (r *Registry) all() []*room.Room {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rooms := make([]*room.Room, 0, len(r.rooms))
	for _, rm := range r.rooms {
		rooms = append(rooms, rm)
	}

	return rooms
}

// Start hydrates every room found in the shared store, subscribes to the
// request relay and starts the tick loop. The loop stops when ctx is done.
func (r *Registry) Start(ctx context.Context) error {
	snapshots, err := r.store.ListSnapshots(ctx)
	if err != nil {
		return fmt.Errorf("failed to list rooms: %w", err)
	}

	for _, snapshot := range snapshots {
		// connections do not survive a restart
		snapshot.Members = nil
		if _, added := r.register(room.FromSnapshot(snapshot, r.deps)); added {
			r.logger.InfoContext(ctx, "room hydrated", "room", snapshot.Name)
		}
	}

	if err := r.store.SubscribeRequests(ctx, r.RemoteRequestHandler); err != nil {
		return fmt.Errorf("failed to start request relay: %w", err)
	}

	go r.run(ctx)

	return nil
}

// CreateRoom registers a new room on this node. The name checks and the
// registration are not atomic across nodes.
func (r *Registry) CreateRoom(ctx context.Context, opts room.Options) (*room.Room, error) {
	if err := r.validator.Struct(opts); err != nil {
		return nil, fmt.Errorf("%w: %w", room.ErrInvalidRoomOptions, err)
	}

	if _, ok := r.local(opts.Name); ok {
		return nil, room.ErrRoomNameTaken
	}

	exists, err := r.store.RoomExists(ctx, opts.Name)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, room.ErrRoomNameTaken
	}

	taken, err := r.storage.IsRoomNameTaken(ctx, opts.Name)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, room.ErrRoomNameTaken
	}

	rm := room.New(opts, r.deps)
	if err := rm.Persist(ctx); err != nil {
		return nil, err
	}
	if err := rm.Update(ctx); err != nil {
		return nil, err
	}
	if err := rm.Sync(ctx); err != nil {
		return nil, err
	}

	if _, added := r.register(rm); !added {
		return nil, room.ErrRoomNameTaken
	}

	r.logger.InfoContext(ctx, "room created", "room", opts.Name, "temporary", opts.IsTemporary)
	return rm, nil
}

// GetRoom returns the local room called name. Unless mustAlreadyBeLoaded is
// set, a room saved in the backing store and not live on another node is
// loaded onto this node.
func (r *Registry) GetRoom(ctx context.Context, name string, mustAlreadyBeLoaded bool) (*room.Room, error) {
	if rm, ok := r.local(name); ok {
		return rm, nil
	}
	if mustAlreadyBeLoaded {
		return nil, room.ErrRoomNotFound
	}

	saved, err := r.storage.GetRoomByName(ctx, name)
	if err != nil {
		return nil, err
	}

	exists, err := r.store.RoomExists(ctx, name)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, room.ErrRoomAlreadyLoaded
	}
	if saved == nil {
		return nil, room.ErrRoomNotFound
	}

	rm, added := r.register(room.FromSnapshot(*saved, r.deps))
	if !added {
		return rm, nil
	}

	if err := rm.Sync(ctx); err != nil {
		r.logger.WarnContext(ctx, "failed to sync loaded room", "room", name, "error", err)
	}

	r.logger.InfoContext(ctx, "room loaded", "room", name)
	return rm, nil
}

// UnloadRoom runs the room's pre-unload hook, drops it from this node and
// removes its keys from the shared store.
func (r *Registry) UnloadRoom(ctx context.Context, name string) error {
	rm, ok := r.local(name)
	if !ok {
		return room.ErrRoomNotFound
	}

	if err := rm.OnBeforeUnload(ctx); err != nil {
		return fmt.Errorf("failed to run unload hook: %w", err)
	}

	r.mu.Lock()
	if r.rooms[key(name)] == rm {
		delete(r.rooms, key(name))
	}
	r.mu.Unlock()

	if err := r.store.DeleteRoom(ctx, name); err != nil {
		return err
	}

	r.logger.InfoContext(ctx, "room unloaded", "room", name)
	return nil
}

// UnloadAll unloads every local room.
func (r *Registry) UnloadAll(ctx context.Context) error {
	var errs []error
	for _, name := range r.Rooms() {
		if err := r.UnloadRoom(ctx, name); err != nil && !errors.Is(err, room.ErrRoomNotFound) {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
		}
	}

	return errors.Join(errs...)
}
