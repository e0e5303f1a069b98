package gorm

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sharetube/roomsync/internal/domain"
)

func newTestRepo(t *testing.T) *repo {
	t.Helper()
	db, err := Open(&Config{Driver: "sqlite", DSN: ":memory:"})
	require.NoError(t, err)

	// each sqlite :memory: connection is its own database
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	return NewRepo(db)
}

func TestSaveAndGetRoom(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()
	length := 42.0

	snapshot := domain.RoomSnapshot{
		Name:          "Lobby",
		Title:         "the lobby",
		IsPinned:      true,
		CurrentSource: &domain.Video{Service: "youtube", ID: "abc", Length: &length},
		Queue:         []domain.Video{{Service: "youtube", ID: "def"}},
		QueueMode:     domain.QueueModeVote,
		Votes:         map[string][]string{"youtubedef": {"c1"}},
		Grants:        domain.DefaultGrants(),
	}
	require.NoError(t, r.SaveRoom(ctx, snapshot))

	taken, err := r.IsRoomNameTaken(ctx, "LOBBY")
	require.NoError(t, err)
	assert.True(t, taken)

	got, err := r.GetRoomByName(ctx, "lobby")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Lobby", got.Name)
	assert.Equal(t, "the lobby", got.Title)
	assert.True(t, got.IsPinned)
	assert.Equal(t, domain.QueueModeVote, got.QueueMode)
	assert.Equal(t, snapshot.CurrentSource, got.CurrentSource)
	assert.Equal(t, snapshot.Queue, got.Queue)
	assert.Equal(t, snapshot.Votes, got.Votes)
	assert.Equal(t, snapshot.Grants, got.Grants)
}

func TestSaveRoomUpserts(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()

	require.NoError(t, r.SaveRoom(ctx, domain.RoomSnapshot{Name: "lobby", Title: "first"}))
	require.NoError(t, r.SaveRoom(ctx, domain.RoomSnapshot{Name: "lobby", Title: "second", QueueMode: domain.QueueModeDj}))

	var count int64
	require.NoError(t, r.db.Model(&roomRecord{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)

	got, err := r.GetRoomByName(ctx, "lobby")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "second", got.Title)
	assert.Equal(t, domain.QueueModeDj, got.QueueMode)
	assert.Empty(t, got.Queue)
}

func TestMissingRoom(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()

	taken, err := r.IsRoomNameTaken(ctx, "nowhere")
	require.NoError(t, err)
	assert.False(t, taken)

	got, err := r.GetRoomByName(ctx, "nowhere")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	_, err := Open(&Config{Driver: "oracle"})
	assert.Error(t, err)
}
