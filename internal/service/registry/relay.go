package registry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/sharetube/roomsync/internal/domain"
	"github.com/sharetube/roomsync/internal/observability"
	roomRedis "github.com/sharetube/roomsync/internal/repository/room/redis"
	"github.com/sharetube/roomsync/internal/service/room"
)

// RemoteRequestHandler processes a request received on a room's broadcast
// channel. Every node receives every message; nodes that do not own the room
// ignore it. Errors are logged, never returned.
func (r *Registry) RemoteRequestHandler(ctx context.Context, channel string, payload []byte) {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.RelayTimeout)
	defer cancel()

	name, ok := roomRedis.RoomFromChannel(channel)
	if !ok {
		observability.RelayMessages.WithLabelValues("invalid").Inc()
		r.logger.WarnContext(ctx, "request on unexpected channel", "channel", channel)
		return
	}

	rm, err := r.GetRoom(ctx, name, true)
	if err != nil {
		if errors.Is(err, room.ErrRoomNotFound) {
			observability.RelayMessages.WithLabelValues("ignored").Inc()
			return
		}
		observability.RelayMessages.WithLabelValues("error").Inc()
		r.logger.WarnContext(ctx, "failed to resolve relayed room", "room", name, "error", err)
		return
	}

	var envelope domain.Envelope
	if err := json.Unmarshal(payload, &envelope); err != nil {
		observability.RelayMessages.WithLabelValues("invalid").Inc()
		r.logger.WarnContext(ctx, "failed to decode relayed request", "room", name, "error", err)
		return
	}

	if err := rm.ProcessUnauthorizedRequest(ctx, envelope.Request, envelope.Token); err != nil {
		observability.RelayMessages.WithLabelValues("error").Inc()
		r.logger.InfoContext(ctx, "relayed request failed", "room", name, "type", envelope.Request.Type(), "error", err)
		return
	}

	observability.RelayMessages.WithLabelValues("ok").Inc()
}

// Relay publishes req on the broadcast channel of the room called name.
func (r *Registry) Relay(ctx context.Context, name string, req domain.RoomRequest, token string) error {
	payload, err := json.Marshal(domain.Envelope{Request: req, Token: token})
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}

	return r.store.PublishRequest(ctx, name, payload)
}

// Dispatch delivers req to the room called name wherever it lives: processed
// here when owned locally, published on the relay when live on another node,
// otherwise loaded from the backing store and processed here. Relayed requests
// report success once published.
func (r *Registry) Dispatch(ctx context.Context, name string, req domain.RoomRequest, token string) error {
	rm, err := r.GetRoom(ctx, name, false)
	switch {
	case err == nil:
		return rm.ProcessUnauthorizedRequest(ctx, req, token)
	case errors.Is(err, room.ErrRoomAlreadyLoaded):
		return r.Relay(ctx, name, req, token)
	default:
		return err
	}
}
