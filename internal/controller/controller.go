package controller

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/sharetube/roomsync/internal/domain"
	"github.com/sharetube/roomsync/internal/service/room"
	"github.com/sharetube/roomsync/internal/service/session"
	"github.com/sharetube/roomsync/pkg/validator"
	"github.com/sharetube/roomsync/pkg/wsrouter"
)

type iRegistry interface {
	CreateRoom(ctx context.Context, opts room.Options) (*room.Room, error)
	Dispatch(ctx context.Context, name string, req domain.RoomRequest, token string) error
	Summaries(ctx context.Context) ([]domain.RoomSummary, error)
}

type iStatistics interface {
	GetCounters(ctx context.Context) (map[string]int64, error)
}

type iSessions interface {
	Issue(ctx context.Context, params *session.IssueParams) (string, error)
	Validate(ctx context.Context, token string) (bool, error)
}

type iSyncStateStore interface {
	GetSyncState(ctx context.Context, name string) ([]byte, error)
}

type iConnections interface {
	Add(conn *websocket.Conn, room, clientID string) error
	RemoveByConn(conn *websocket.Conn) (string, error)
	GetConn(room, clientID string) (*websocket.Conn, error)
}

type Params struct {
	Registry    iRegistry
	Sessions    iSessions
	SyncStates  iSyncStateStore
	Connections iConnections
	Statistics  iStatistics
	Logger      *slog.Logger
	// ReadTimeout closes websocket connections that stay silent for longer.
	ReadTimeout time.Duration
}

const DefaultReadTimeout = 60 * time.Second

type controller struct {
	registry    iRegistry
	sessions    iSessions
	syncStates  iSyncStateStore
	connections iConnections
	statistics  iStatistics
	upgrader    websocket.Upgrader
	validate    *validator.Validator
	wsmux       *wsrouter.WSRouter
	logger      *slog.Logger
}

func NewController(params *Params) *controller {
	logger := params.Logger
	if logger == nil {
		logger = slog.Default()
	}

	c := &controller{
		registry:    params.Registry,
		sessions:    params.Sessions,
		syncStates:  params.SyncStates,
		connections: params.Connections,
		statistics:  params.Statistics,
		upgrader: websocket.Upgrader{
			HandshakeTimeout: 10 * time.Second,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		validate: validator.NewValidator(),
		logger:   logger,
	}
	readTimeout := params.ReadTimeout
	if readTimeout <= 0 {
		readTimeout = DefaultReadTimeout
	}
	c.wsmux = c.getWSRouter(readTimeout)

	return c
}
