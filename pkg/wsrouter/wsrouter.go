package wsrouter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/gorilla/websocket"
)

var ErrUnknownMessageType = errors.New("unknown message type")

type message struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type HandlerFunc func(ctx context.Context, conn *websocket.Conn, payload json.RawMessage) error

type Middleware func(next HandlerFunc) HandlerFunc

// ErrorHandler is called with every error returned by a handler and with
// frames that could not be routed. Returning a non-nil error stops ServeConn.
type ErrorHandler func(ctx context.Context, conn *websocket.Conn, err error) error

type WSRouter struct {
	routes      map[string]HandlerFunc
	middlewares []Middleware
	onError     ErrorHandler
	readTimeout time.Duration
}

func New() *WSRouter {
	return &WSRouter{
		routes: make(map[string]HandlerFunc),
		onError: func(_ context.Context, conn *websocket.Conn, err error) error {
			return conn.WriteJSON(map[string]string{"error": err.Error()})
		},
	}
}

// Use appends middlewares. They wrap handlers registered before and after the
// call, the first one outermost.
func (r *WSRouter) Use(mws ...Middleware) {
	r.middlewares = append(r.middlewares, mws...)
}

func (r *WSRouter) Handle(messageType string, handler HandlerFunc) {
	r.routes[messageType] = handler
}

func (r *WSRouter) OnError(handler ErrorHandler) {
	r.onError = handler
}

// SetReadTimeout makes ServeConn fail when no frame arrives within d. Zero
// disables the timeout.
func (r *WSRouter) SetReadTimeout(d time.Duration) {
	r.readTimeout = d
}

func (r *WSRouter) chain(handler HandlerFunc) HandlerFunc {
	for i := len(r.middlewares) - 1; i >= 0; i-- {
		handler = r.middlewares[i](handler)
	}

	return handler
}

// ServeConn reads frames of the form {"type": ..., "payload": ...} until the
// connection fails and routes each one by type. The connection is not closed.
func (r *WSRouter) ServeConn(ctx context.Context, conn *websocket.Conn) error {
	for {
		if r.readTimeout > 0 {
			if err := conn.SetReadDeadline(time.Now().Add(r.readTimeout)); err != nil {
				return err
			}
		}

		_, data, err := conn.ReadMessage()
		if err != nil {
			return err
		}

		var msg message
		if err := json.Unmarshal(data, &msg); err != nil {
			if err := r.onError(ctx, conn, fmt.Errorf("failed to decode message: %w", err)); err != nil {
				return err
			}
			continue
		}

		handler, ok := r.routes[msg.Type]
		if !ok {
			if err := r.onError(ctx, conn, fmt.Errorf("%w: %q", ErrUnknownMessageType, msg.Type)); err != nil {
				return err
			}
			continue
		}

		msgCtx := context.WithValue(ctx, messageTypeKey, msg.Type)
		if err := r.chain(handler)(msgCtx, conn, msg.Payload); err != nil {
			if err := r.onError(msgCtx, conn, err); err != nil {
				return err
			}
		}
	}
}
