package controller

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/sharetube/roomsync/internal/domain"
	"github.com/sharetube/roomsync/internal/service/room"
	"github.com/sharetube/roomsync/pkg/ctxlogger"
	"github.com/sharetube/roomsync/pkg/wsrouter"
)

var (
	ErrAlreadyConnected = errors.New("client already connected")
	ErrLifecycleRequest = errors.New("join and leave follow the connection")
)

const (
	writeTimeout = 5 * time.Second

	closeRoomGone = 4004
)

type Output struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

type errorPayload struct {
	Status  int    `json:"status"`
	Message string `json:"message"`
}

func (c controller) writeToConn(conn *websocket.Conn, output *Output) error {
	if err := conn.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
		return err
	}

	return conn.WriteJSON(output)
}

// joinRoom adds the sender to the room, upgrades the request and serves the
// connection until it closes. The room learns about the departure on close.
func (c controller) joinRoom(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "room-name")

	token, err := c.getToken(r)
	if err != nil {
		c.writeError(w, r, err)
		return
	}
	if err := c.validToken(r.Context(), token); err != nil {
		c.writeError(w, r, err)
		return
	}

	clientID := room.ClientIDFromToken(token)
	if _, err := c.connections.GetConn(name, clientID); err == nil {
		c.writeError(w, r, ErrAlreadyConnected)
		return
	}

	ctx := ctxlogger.AppendCtx(r.Context(), slog.String("room", name))
	ctx = ctxlogger.AppendCtx(ctx, slog.String("client_id", clientID))
	ctx = context.WithValue(ctx, roomNameCtxKey, name)
	ctx = context.WithValue(ctx, clientIDCtxKey, clientID)
	ctx = context.WithValue(ctx, tokenCtxKey, token)

	join := domain.JoinRequest{Username: r.URL.Query().Get("username")}
	if err := c.registry.Dispatch(ctx, name, join, token); err != nil {
		c.writeError(w, r, err)
		return
	}

	conn, err := c.upgrader.Upgrade(w, r, nil)
	if err != nil {
		c.logger.WarnContext(ctx, "failed to upgrade to websocket", "error", err)
		c.leave(ctx)
		return
	}
	defer conn.Close()

	if err := c.connections.Add(conn, name, clientID); err != nil {
		c.logger.WarnContext(ctx, "failed to register connection", "error", err)
		c.leave(ctx)
		return
	}
	defer c.disconnect(ctx, conn)

	if err := c.writeToConn(conn, &Output{
		Type: "joined",
		Payload: map[string]any{
			"room":     name,
			"clientId": clientID,
		},
	}); err != nil {
		c.logger.WarnContext(ctx, "failed to write json", "error", err)
		return
	}

	c.logger.InfoContext(ctx, "client connected")
	if err := c.wsmux.ServeConn(ctx, conn); err != nil {
		c.logger.InfoContext(ctx, "connection closed", "error", err)
	}
}

// disconnect forgets conn and tells the room the client left. A connection
// that is already gone was dropped by the room itself.
func (c controller) disconnect(ctx context.Context, conn *websocket.Conn) {
	if _, err := c.connections.RemoveByConn(conn); err != nil {
		return
	}

	c.leave(ctx)
}

func (c controller) leave(ctx context.Context) {
	name := c.getRoomNameFromCtx(ctx)
	err := c.registry.Dispatch(ctx, name, domain.LeaveRequest{}, c.getTokenFromCtx(ctx))
	if err != nil && !errors.Is(err, room.ErrRoomNotFound) {
		c.logger.WarnContext(ctx, "failed to leave room", "error", err)
	}
}

func (c controller) handlePing(_ context.Context, conn *websocket.Conn, _ json.RawMessage) error {
	return c.writeToConn(conn, &Output{Type: "pong"})
}

// handleRequest dispatches a room request on behalf of the connected client.
func (c controller) handleRequest(ctx context.Context, conn *websocket.Conn, payload json.RawMessage) error {
	req, err := domain.DecodeRequest(payload)
	if err != nil {
		return err
	}

	switch req.(type) {
	case domain.JoinRequest, domain.LeaveRequest:
		return fmt.Errorf("%w: %s", ErrLifecycleRequest, req.Type())
	}

	name := c.getRoomNameFromCtx(ctx)
	if err := c.registry.Dispatch(ctx, name, req, c.getTokenFromCtx(ctx)); err != nil {
		return fmt.Errorf("failed to process %s request: %w", req.Type(), err)
	}

	return c.writeToConn(conn, &Output{
		Type: "ack",
		Payload: map[string]any{
			"request": req.Type(),
		},
	})
}

func (c controller) handleGetState(ctx context.Context, conn *websocket.Conn, _ json.RawMessage) error {
	state, err := c.syncStates.GetSyncState(ctx, c.getRoomNameFromCtx(ctx))
	if err != nil {
		return fmt.Errorf("failed to get room state: %w", err)
	}

	return c.writeToConn(conn, &Output{
		Type:    "state",
		Payload: json.RawMessage(state),
	})
}

// handleWSError reports a failed frame to the client. The connection is
// closed once its room is gone.
func (c controller) handleWSError(ctx context.Context, conn *websocket.Conn, err error) error {
	status := statusFromError(err)
	if status == http.StatusInternalServerError {
		c.logger.WarnContext(ctx, "websocket message failed", "error", err)
	}

	if werr := c.writeToConn(conn, &Output{
		Type: "error",
		Payload: errorPayload{
			Status:  status,
			Message: err.Error(),
		},
	}); werr != nil {
		return werr
	}

	if errors.Is(err, room.ErrRoomNotFound) {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(closeRoomGone, "room not found"),
			time.Now().Add(writeTimeout))
		return err
	}

	return nil
}

func (c controller) getWSRouter(readTimeout time.Duration) *wsrouter.WSRouter {
	mux := wsrouter.New()
	mux.SetReadTimeout(readTimeout)
	mux.OnError(c.handleWSError)
	mux.Use(c.wsRequestIdMw(), c.loggerWSMw())

	mux.Handle("ping", c.handlePing)
	mux.Handle("request", c.handleRequest)
	mux.Handle("get-state", c.handleGetState)

	return mux
}
