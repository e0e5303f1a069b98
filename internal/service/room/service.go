package room

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/sharetube/roomsync/internal/domain"
)

var (
	ErrRoomNotFound       = errors.New("room not found")
	ErrRoomNameTaken      = errors.New("room name taken")
	ErrRoomAlreadyLoaded  = errors.New("room already loaded")
	ErrPermissionDenied   = errors.New("permission denied")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrInvalidRoomOptions = errors.New("invalid room options")
)

const (
	CounterVideosQueued  = "stats:videos:queued"
	CounterVideosSkipped = "stats:videos:skipped"
	CounterVideosWatched = "stats:videos:watched"
)

const DefaultStaleAfter = 240 * time.Second

type iSessions interface {
	GetSessionInfo(ctx context.Context, token string) (domain.SessionInfo, error)
	Validate(ctx context.Context, token string) (bool, error)
}

type iMetadata interface {
	GetVideoInfo(ctx context.Context, video domain.Video) (domain.Video, error)
}

type iSnapshotStore interface {
	SaveSnapshot(ctx context.Context, name string, snapshot, syncState []byte) error
}

type iStorage interface {
	SaveRoom(ctx context.Context, snapshot domain.RoomSnapshot) error
}

type iCounters interface {
	BumpCounter(ctx context.Context, name string, amount int64)
}

type iDisconnector interface {
	Disconnect(room string, clientIDs ...string)
}

// Deps are the collaborators a Room talks to. Nil collaborators are skipped.
type Deps struct {
	Sessions     iSessions
	Metadata     iMetadata
	Store        iSnapshotStore
	Storage      iStorage
	Counters     iCounters
	Disconnector iDisconnector
	Logger       *slog.Logger
	Now          func() time.Time
	StaleAfter   time.Duration
}

func (d Deps) withDefaults() Deps {
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.StaleAfter <= 0 {
		d.StaleAfter = DefaultStaleAfter
	}

	return d
}

// RequestContext identifies the authorized sender of a request.
type RequestContext struct {
	Username string
	Role     domain.Role
	ClientID string
	Token    string
}

var clientIDNamespace = uuid.MustParse("5b0f5c1e-8d3e-4c53-a1b1-0f3b58d8c2a4")

// ClientIDFromToken derives a stable client id so the same token always maps to
// the same member.
func ClientIDFromToken(token string) string {
	return uuid.NewSHA1(clientIDNamespace, []byte(token)).String()
}
