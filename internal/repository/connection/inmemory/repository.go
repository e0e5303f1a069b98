package inmemory

import (
	"log/slog"
	"strings"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/sharetube/roomsync/internal/observability"
	"github.com/sharetube/roomsync/internal/repository/connection"
)

// member is a client in one room. A client may hold one connection per room.
type member struct {
	room     string
	clientID string
}

func newMember(room, clientID string) member {
	return member{room: strings.ToLower(room), clientID: clientID}
}

type repo struct {
	connList map[*websocket.Conn]member
	idList   map[member]*websocket.Conn
	mu       sync.RWMutex
	logger   *slog.Logger
}

func NewRepo(logger *slog.Logger) *repo {
	if logger == nil {
		logger = slog.Default()
	}

	return &repo{
		connList: make(map[*websocket.Conn]member),
		idList:   make(map[member]*websocket.Conn),
		logger:   logger,
	}
}

func (r *repo) Add(conn *websocket.Conn, room, clientID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	m := newMember(room, clientID)
	if _, ok := r.connList[conn]; ok {
		return connection.ErrAlreadyExists
	}
	if _, ok := r.idList[m]; ok {
		return connection.ErrAlreadyExists
	}

	r.connList[conn] = m
	r.idList[m] = conn
	observability.Connections.Set(float64(len(r.connList)))

	r.logger.Debug("connection added", "room", m.room, "client_id", clientID)
	return nil
}

// RemoveByConn forgets conn without closing it and returns its client id.
func (r *repo) RemoveByConn(conn *websocket.Conn) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	m, ok := r.connList[conn]
	if !ok {
		return "", connection.ErrNotFound
	}

	delete(r.connList, conn)
	delete(r.idList, m)
	observability.Connections.Set(float64(len(r.connList)))

	r.logger.Debug("connection removed", "room", m.room, "client_id", m.clientID)
	return m.clientID, nil
}

func (r *repo) GetConn(room, clientID string) (*websocket.Conn, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	conn, ok := r.idList[newMember(room, clientID)]
	if !ok {
		return nil, connection.ErrNotFound
	}

	return conn, nil
}

// Disconnect closes and forgets the connections the given clients hold to
// room. Unknown client ids are ignored.
func (r *repo) Disconnect(room string, clientIDs ...string) {
	r.mu.Lock()
	conns := make([]*websocket.Conn, 0, len(clientIDs))
	for _, clientID := range clientIDs {
		m := newMember(room, clientID)
		conn, ok := r.idList[m]
		if !ok {
			continue
		}
		delete(r.connList, conn)
		delete(r.idList, m)
		conns = append(conns, conn)
	}
	observability.Connections.Set(float64(len(r.connList)))
	r.mu.Unlock()

	for _, conn := range conns {
		if err := conn.Close(); err != nil {
			r.logger.Debug("failed to close connection", "room", room, "error", err)
		}
	}
}
