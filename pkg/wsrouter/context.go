package wsrouter

import "context"

type ctxKey string

const (
	messageTypeKey ctxKey = "message_type"
)

// GetMessageTypeFromCtx returns the type of the frame being handled, or "".
func GetMessageTypeFromCtx(ctx context.Context) string {
	messageType, _ := ctx.Value(messageTypeKey).(string)
	return messageType
}
