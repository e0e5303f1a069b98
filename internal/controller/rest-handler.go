package controller

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sharetube/roomsync/internal/service/room"
	"github.com/sharetube/roomsync/internal/service/session"
	"github.com/sharetube/roomsync/pkg/rest"
)

type createSessionInput struct {
	Username string `json:"username" validate:"max=64"`
}

type createSessionResponse struct {
	Token string `json:"token"`
}

// createSession issues a guest session token.
func (c controller) createSession(w http.ResponseWriter, r *http.Request) {
	var input createSessionInput
	if err := rest.ReadJSON(r, &input); err != nil {
		rest.WriteJSON(w, http.StatusUnprocessableEntity, rest.Envelope{"error": err.Error()})
		return
	}

	if err := c.validate.Struct(input); err != nil {
		rest.WriteJSON(w, http.StatusBadRequest, rest.Envelope{"errors": err})
		return
	}

	token, err := c.sessions.Issue(r.Context(), &session.IssueParams{
		Username: input.Username,
	})
	if err != nil {
		c.writeError(w, r, fmt.Errorf("failed to issue session: %w", err))
		return
	}

	rest.WriteJSON(w, http.StatusCreated, rest.Envelope{"data": createSessionResponse{
		Token: token,
	}})
}

type createRoomResponse struct {
	Name        string `json:"name"`
	IsTemporary bool   `json:"isTemporary"`
}

func (c controller) createRoom(w http.ResponseWriter, r *http.Request) {
	var opts room.Options
	if err := rest.ReadJSON(r, &opts); err != nil {
		rest.WriteJSON(w, http.StatusUnprocessableEntity, rest.Envelope{"error": err.Error()})
		return
	}

	rm, err := c.registry.CreateRoom(r.Context(), opts)
	if err != nil {
		c.writeError(w, r, err)
		return
	}

	rest.WriteJSON(w, http.StatusCreated, rest.Envelope{"data": createRoomResponse{
		Name:        rm.Name(),
		IsTemporary: rm.IsTemporary(),
	}})
}

// listRooms returns the rooms owned by this node.
func (c controller) listRooms(w http.ResponseWriter, r *http.Request) {
	rooms, err := c.registry.Summaries(r.Context())
	if err != nil {
		c.writeError(w, r, fmt.Errorf("failed to list rooms: %w", err))
		return
	}

	rest.WriteJSON(w, http.StatusOK, rest.Envelope{"data": map[string]any{
		"rooms": rooms,
	}})
}

func (c controller) getStats(w http.ResponseWriter, r *http.Request) {
	counts, err := c.statistics.GetCounters(r.Context())
	if err != nil {
		c.writeError(w, r, err)
		return
	}

	rest.WriteJSON(w, http.StatusOK, rest.Envelope{"data": counts})
}

// getRoomState returns the last synced state of a live room, whichever node
// owns it.
func (c controller) getRoomState(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "room-name")

	state, err := c.syncStates.GetSyncState(r.Context(), name)
	if err != nil {
		c.writeError(w, r, err)
		return
	}

	rest.WriteJSON(w, http.StatusOK, rest.Envelope{"data": json.RawMessage(state)})
}
