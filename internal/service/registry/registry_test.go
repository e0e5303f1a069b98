package registry

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sharetube/roomsync/internal/domain"
	roomRedis "github.com/sharetube/roomsync/internal/repository/room/redis"
	storage "github.com/sharetube/roomsync/internal/repository/storage/gorm"
	"github.com/sharetube/roomsync/internal/service/room"
	"github.com/sharetube/roomsync/internal/service/session"
)

type testEnv struct {
	s        *miniredis.Miniredis
	rc       *redis.Client
	storage  iStorage
	sessions iSessions
	issuer   interface {
		Issue(ctx context.Context, params *session.IssueParams) (string, error)
	}
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	s := miniredis.RunT(t)
	rc := redis.NewClient(&redis.Options{
		Addr: s.Addr(),
	})
	t.Cleanup(func() { _ = rc.Close() })

	db, err := storage.Open(&storage.Config{Driver: "sqlite", DSN: ":memory:"})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	sessions := session.NewService("secret", time.Hour)

	return &testEnv{
		s:        s,
		rc:       rc,
		storage:  storage.NewRepo(db),
		sessions: sessions,
		issuer:   sessions,
	}
}

func (e *testEnv) registry(cfg Config) *Registry {
	if cfg.TickInterval == 0 {
		cfg.TickInterval = time.Hour
	}

	return New(&Params{
		Store:    roomRedis.NewRepo(e.rc),
		Storage:  e.storage,
		Sessions: e.sessions,
		Config:   cfg,
	})
}

func (e *testEnv) token(t *testing.T) string {
	t.Helper()
	token, err := e.issuer.Issue(context.Background(), &session.IssueParams{Username: "guest"})
	require.NoError(t, err)
	return token
}

func TestCreateRoom(t *testing.T) {
	env := newTestEnv(t)
	reg := env.registry(Config{})
	ctx := context.Background()

	_, err := reg.CreateRoom(ctx, room.Options{Name: "not valid!"})
	assert.ErrorIs(t, err, room.ErrInvalidRoomOptions)

	rm, err := reg.CreateRoom(ctx, room.Options{Name: "Lobby", Title: "lobby"})
	require.NoError(t, err)
	assert.Equal(t, "Lobby", rm.Name())
	assert.True(t, env.s.Exists("room:lobby"))
	assert.True(t, env.s.Exists("room-sync:lobby"))
	assert.Equal(t, []string{"Lobby"}, reg.Rooms())

	saved, err := env.storage.GetRoomByName(ctx, "lobby")
	require.NoError(t, err)
	require.NotNil(t, saved)
	assert.Equal(t, "lobby", saved.Title)

	_, err = reg.CreateRoom(ctx, room.Options{Name: "LOBBY"})
	assert.ErrorIs(t, err, room.ErrRoomNameTaken)

	other := env.registry(Config{})
	_, err = other.CreateRoom(ctx, room.Options{Name: "lobby"})
	assert.ErrorIs(t, err, room.ErrRoomNameTaken, "taken in the shared store")
}

func TestCreateRoomChecksBackingStore(t *testing.T) {
	env := newTestEnv(t)
	reg := env.registry(Config{})
	ctx := context.Background()

	require.NoError(t, env.storage.SaveRoom(ctx, domain.RoomSnapshot{Name: "archived"}))

	_, err := reg.CreateRoom(ctx, room.Options{Name: "archived"})
	assert.ErrorIs(t, err, room.ErrRoomNameTaken)
}

func TestCreateTemporaryRoom(t *testing.T) {
	env := newTestEnv(t)
	reg := env.registry(Config{})
	ctx := context.Background()

	_, err := reg.CreateRoom(ctx, room.Options{Name: "scratch", IsTemporary: true})
	require.NoError(t, err)
	require.NoError(t, reg.UnloadRoom(ctx, "scratch"))

	taken, err := env.storage.IsRoomNameTaken(ctx, "scratch")
	require.NoError(t, err)
	assert.False(t, taken)
}

func TestGetRoom(t *testing.T) {
	env := newTestEnv(t)
	reg := env.registry(Config{})
	ctx := context.Background()

	created, err := reg.CreateRoom(ctx, room.Options{Name: "lobby"})
	require.NoError(t, err)

	got, err := reg.GetRoom(ctx, "LOBBY", true)
	require.NoError(t, err)
	assert.Same(t, created, got)

	_, err = reg.GetRoom(ctx, "nowhere", true)
	assert.ErrorIs(t, err, room.ErrRoomNotFound)
	_, err = reg.GetRoom(ctx, "nowhere", false)
	assert.ErrorIs(t, err, room.ErrRoomNotFound)

	other := env.registry(Config{})
	_, err = other.GetRoom(ctx, "lobby", false)
	assert.ErrorIs(t, err, room.ErrRoomAlreadyLoaded, "live on another node")

	require.NoError(t, env.s.Set("room:orphan", "{}"))
	_, err = other.GetRoom(ctx, "orphan", false)
	assert.ErrorIs(t, err, room.ErrRoomAlreadyLoaded, "orphaned ownership marker")
}

func TestGetRoomLoadsSavedRoom(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	length := 30.0

	require.NoError(t, env.storage.SaveRoom(ctx, domain.RoomSnapshot{
		Name:          "saved",
		CurrentSource: &domain.Video{Service: "test", ID: "a", Length: &length},
		Queue:         []domain.Video{{Service: "test", ID: "b"}},
		QueueMode:     domain.QueueModeLoop,
		Grants:        domain.DefaultGrants(),
	}))

	reg := env.registry(Config{})
	rm, err := reg.GetRoom(ctx, "saved", false)
	require.NoError(t, err)
	assert.Equal(t, []string{"saved"}, reg.Rooms())
	assert.True(t, env.s.Exists("room:saved"), "loading marks the room as live")

	snapshot, err := rm.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, "a", snapshot.CurrentSource.ID)
	assert.Equal(t, domain.QueueModeLoop, snapshot.QueueMode)
	assert.Len(t, snapshot.Queue, 1)
}

func TestUnloadRoom(t *testing.T) {
	env := newTestEnv(t)
	reg := env.registry(Config{})
	ctx := context.Background()

	_, err := reg.CreateRoom(ctx, room.Options{Name: "lobby"})
	require.NoError(t, err)

	require.NoError(t, reg.UnloadRoom(ctx, "lobby"))
	assert.Empty(t, reg.Rooms())
	assert.False(t, env.s.Exists("room:lobby"))
	assert.False(t, env.s.Exists("room-sync:lobby"))

	assert.ErrorIs(t, reg.UnloadRoom(ctx, "lobby"), room.ErrRoomNotFound)

	// the saved definition survives, so the room can be loaded again
	_, err = reg.GetRoom(ctx, "lobby", false)
	require.NoError(t, err)
}

func TestUnloadAll(t *testing.T) {
	env := newTestEnv(t)
	reg := env.registry(Config{})
	ctx := context.Background()

	for _, name := range []string{"one", "two", "three"} {
		_, err := reg.CreateRoom(ctx, room.Options{Name: name})
		require.NoError(t, err)
	}

	require.NoError(t, reg.UnloadAll(ctx))
	assert.Empty(t, reg.Rooms())
	assert.Empty(t, env.s.Keys())
}

func TestStartHydratesSnapshots(t *testing.T) {
	env := newTestEnv(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	snapshot, err := json.Marshal(domain.RoomSnapshot{Name: "restored", Queue: []domain.Video{}})
	require.NoError(t, err)
	require.NoError(t, env.s.Set("room:restored", string(snapshot)))
	require.NoError(t, env.s.Set("room-sync:restored", "{}"))

	reg := env.registry(Config{})
	require.NoError(t, reg.Start(ctx))

	assert.Equal(t, []string{"restored"}, reg.Rooms())
}

func TestTickUnloadsStaleRooms(t *testing.T) {
	env := newTestEnv(t)
	reg := env.registry(Config{StaleAfter: time.Nanosecond})
	ctx := context.Background()

	_, err := reg.CreateRoom(ctx, room.Options{Name: "empty"})
	require.NoError(t, err)
	_, err = reg.CreateRoom(ctx, room.Options{Name: "pinned", IsPinned: true})
	require.NoError(t, err)
	occupied, err := reg.CreateRoom(ctx, room.Options{Name: "occupied"})
	require.NoError(t, err)
	require.NoError(t, occupied.ProcessUnauthorizedRequest(ctx, domain.JoinRequest{Username: "bob"}, env.token(t)))

	time.Sleep(time.Millisecond)
	reg.Tick(ctx)

	assert.Equal(t, []string{"occupied", "pinned"}, reg.Rooms())
	assert.False(t, env.s.Exists("room:empty"))
	assert.True(t, env.s.Exists("room:occupied"))
}

func TestTickAdvancesPlayback(t *testing.T) {
	env := newTestEnv(t)
	reg := env.registry(Config{})
	ctx := context.Background()
	token := env.token(t)

	rm, err := reg.CreateRoom(ctx, room.Options{Name: "lobby"})
	require.NoError(t, err)
	require.NoError(t, rm.ProcessUnauthorizedRequest(ctx, domain.PlaybackRequest{State: true}, token))
	require.NoError(t, rm.ProcessUnauthorizedRequest(ctx, domain.JoinRequest{Username: "bob"}, token))

	reg.Tick(ctx)

	syncState, err := env.s.Get("room-sync:lobby")
	require.NoError(t, err)

	var state domain.SyncState
	require.NoError(t, json.Unmarshal([]byte(syncState), &state))
	assert.Equal(t, "lobby", state.Name)
	require.Len(t, state.Users, 1)
	assert.Equal(t, "bob", state.Users[0].Username)
}

func TestRelayAcrossNodes(t *testing.T) {
	env := newTestEnv(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	owner := env.registry(Config{})
	require.NoError(t, owner.Start(ctx))
	peer := env.registry(Config{})
	require.NoError(t, peer.Start(ctx))

	rm, err := owner.CreateRoom(ctx, room.Options{Name: "lobby"})
	require.NoError(t, err)

	require.NoError(t, peer.Dispatch(ctx, "lobby", domain.PlaybackRequest{State: true}, env.token(t)))

	assert.Eventually(t, func() bool {
		snapshot, err := rm.Snapshot(ctx)
		return err == nil && snapshot.IsPlaying
	}, 2*time.Second, 10*time.Millisecond)
	assert.Empty(t, peer.Rooms(), "the peer never takes ownership")
}

func TestDispatchLoadsSavedRoom(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	require.NoError(t, env.storage.SaveRoom(ctx, domain.RoomSnapshot{Name: "saved", Grants: domain.DefaultGrants()}))

	reg := env.registry(Config{})
	require.NoError(t, reg.Dispatch(ctx, "saved", domain.PlaybackRequest{State: true}, env.token(t)))

	rm, err := reg.GetRoom(ctx, "saved", true)
	require.NoError(t, err)
	snapshot, err := rm.Snapshot(ctx)
	require.NoError(t, err)
	assert.True(t, snapshot.IsPlaying)

	err = reg.Dispatch(ctx, "missing", domain.SkipRequest{}, env.token(t))
	assert.ErrorIs(t, err, room.ErrRoomNotFound)
}

func TestRemoteRequestHandlerSwallowsErrors(t *testing.T) {
	env := newTestEnv(t)
	reg := env.registry(Config{})
	ctx := context.Background()

	_, err := reg.CreateRoom(ctx, room.Options{Name: "lobby"})
	require.NoError(t, err)

	assert.NotPanics(t, func() {
		reg.RemoteRequestHandler(ctx, "unrelated:lobby", []byte(`{}`))
		reg.RemoteRequestHandler(ctx, roomRedis.RequestChannel("elsewhere"), []byte(`{}`))
		reg.RemoteRequestHandler(ctx, roomRedis.RequestChannel("lobby"), []byte(`not json`))
		reg.RemoteRequestHandler(ctx, roomRedis.RequestChannel("lobby"), []byte(`{"request":{"type":"skip"},"token":"bad"}`))
	})
}

type stuckMetadata struct{}

func (stuckMetadata) GetVideoInfo(ctx context.Context, _ domain.Video) (domain.Video, error) {
	<-ctx.Done()
	return domain.Video{}, ctx.Err()
}

func TestRelayedRequestTimesOut(t *testing.T) {
	env := newTestEnv(t)
	reg := New(&Params{
		Store:    roomRedis.NewRepo(env.rc),
		Storage:  env.storage,
		Sessions: env.sessions,
		Metadata: stuckMetadata{},
		Config:   Config{TickInterval: time.Hour, RelayTimeout: 50 * time.Millisecond},
	})
	ctx := context.Background()

	_, err := reg.CreateRoom(ctx, room.Options{Name: "lobby"})
	require.NoError(t, err)

	payload, err := json.Marshal(domain.Envelope{
		Request: domain.AddRequest{Video: &domain.Video{Service: "youtube", ID: "slow"}},
		Token:   env.token(t),
	})
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		reg.RemoteRequestHandler(ctx, roomRedis.RequestChannel("lobby"), payload)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("relayed request was not bounded")
	}

	rm, err := reg.GetRoom(ctx, "lobby", true)
	require.NoError(t, err)
	snapshot, err := rm.Snapshot(ctx)
	require.NoError(t, err)
	assert.Empty(t, snapshot.Queue)
}
