package controller

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/sharetube/roomsync/internal/domain"
	roomRepo "github.com/sharetube/roomsync/internal/repository/room"
	"github.com/sharetube/roomsync/internal/service/room"
	"github.com/sharetube/roomsync/pkg/rest"
	"github.com/sharetube/roomsync/pkg/validator"
	"github.com/sharetube/roomsync/pkg/wsrouter"
)

var (
	ErrNoToken      = errors.New("auth token was not provided")
	ErrInvalidToken = errors.New("auth token is invalid")
)

const bearerPrefix = "Bearer "

func (c controller) generateTimeBasedId() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}

	return id.String()
}

// getToken reads the session token from the Authorization header or, for
// websocket handshakes, the token query param.
func (c controller) getToken(r *http.Request) (string, error) {
	if header := r.Header.Get("Authorization"); header != "" {
		token, ok := strings.CutPrefix(header, bearerPrefix)
		if !ok || token == "" {
			return "", ErrNoToken
		}
		return token, nil
	}

	if token := r.URL.Query().Get("token"); token != "" {
		return token, nil
	}

	return "", ErrNoToken
}

func (c controller) validToken(ctx context.Context, token string) error {
	ok, err := c.sessions.Validate(ctx, token)
	if err != nil {
		return fmt.Errorf("failed to validate token: %w", err)
	}
	if !ok {
		return ErrInvalidToken
	}

	return nil
}

func statusFromError(err error) int {
	switch {
	case errors.Is(err, room.ErrInvalidRoomOptions),
		errors.Is(err, ErrLifecycleRequest),
		errors.Is(err, domain.ErrUnknownRequest),
		errors.Is(err, domain.ErrInvalidQueueIndex),
		errors.Is(err, wsrouter.ErrUnknownMessageType):
		return http.StatusBadRequest
	case errors.Is(err, ErrNoToken),
		errors.Is(err, ErrInvalidToken),
		errors.Is(err, room.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, room.ErrPermissionDenied):
		return http.StatusForbidden
	case errors.Is(err, room.ErrRoomNotFound),
		errors.Is(err, roomRepo.ErrSnapshotNotFound),
		errors.Is(err, domain.ErrVideoNotFound):
		return http.StatusNotFound
	case errors.Is(err, room.ErrRoomNameTaken),
		errors.Is(err, ErrAlreadyConnected),
		errors.Is(err, domain.ErrVideoAlreadyQueued):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func (c controller) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFromError(err)
	if status == http.StatusInternalServerError {
		c.logger.ErrorContext(r.Context(), "request failed", "error", err)
	} else {
		c.logger.DebugContext(r.Context(), "request rejected", "status", status, "error", err)
	}

	var validationErrors validator.Errors
	if errors.As(err, &validationErrors) {
		rest.WriteJSON(w, status, rest.Envelope{"errors": validationErrors})
		return
	}

	message := err.Error()
	if status == http.StatusInternalServerError {
		message = http.StatusText(status)
	}
	rest.WriteJSON(w, status, rest.Envelope{"error": message})
}
