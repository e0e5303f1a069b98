package controller

import "context"

type contextKey int

const (
	roomNameCtxKey contextKey = iota
	clientIDCtxKey
	tokenCtxKey
)

func (c controller) getRoomNameFromCtx(ctx context.Context) string {
	roomName, ok := ctx.Value(roomNameCtxKey).(string)
	if !ok {
		return ""
	}

	return roomName
}

func (c controller) getClientIDFromCtx(ctx context.Context) string {
	clientID, ok := ctx.Value(clientIDCtxKey).(string)
	if !ok {
		return ""
	}

	return clientID
}

func (c controller) getTokenFromCtx(ctx context.Context) string {
	token, ok := ctx.Value(tokenCtxKey).(string)
	if !ok {
		return ""
	}

	return token
}
