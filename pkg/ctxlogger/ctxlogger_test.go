package ctxlogger

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestContextHandler(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(ContextHandler{Handler: slog.NewJSONHandler(&buf, nil)})

	ctx := AppendCtx(context.Background(), slog.String("room", "lobby"))
	child := AppendCtx(ctx, slog.String("request_id", "42"))

	logger.InfoContext(child, "processed")
	assert.Contains(t, buf.String(), `"room":"lobby"`)
	assert.Contains(t, buf.String(), `"request_id":"42"`)

	buf.Reset()
	logger.InfoContext(ctx, "parent")
	assert.NotContains(t, buf.String(), "request_id")
}
