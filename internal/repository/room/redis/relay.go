package redis

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"

	"github.com/redis/go-redis/v9"

	"github.com/sharetube/roomsync/internal/observability"
)

// requestQueueSize bounds the requests waiting for one room. Further requests
// for that room are dropped until it catches up.
const requestQueueSize = 64

type requestHandler func(ctx context.Context, channel string, payload []byte)

func (r repo) PublishRequest(ctx context.Context, name string, payload []byte) error {
	if err := r.rc.Publish(ctx, RequestChannel(name), payload).Err(); err != nil {
		return fmt.Errorf("failed to publish request: %w", err)
	}

	return nil
}

// SubscribeRequests pattern-subscribes to every room request channel and calls
// onMessage for each message until ctx is done. Messages of one channel are
// handled in order, channels do not wait for each other. It returns once the
// subscription is confirmed by the server.
func (r repo) SubscribeRequests(ctx context.Context, onMessage func(ctx context.Context, channel string, payload []byte)) error {
	sub := r.rc.PSubscribe(ctx, requestPrefix+"*")
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return fmt.Errorf("failed to subscribe to requests: %w", err)
	}

	workers := newChannelWorkers(onMessage)
	ch := sub.Channel()
	go func() {
		defer func() { _ = sub.Close() }()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				workers.dispatch(ctx, msg)
			}
		}
	}()

	return nil
}

// channelWorkers runs at most one goroutine per channel. A worker exits once
// its queue is empty and the next message starts a new one.
type channelWorkers struct {
	mu     sync.Mutex
	queues map[string]chan *redis.Message
	handle requestHandler
}

func newChannelWorkers(handle requestHandler) *channelWorkers {
	return &channelWorkers{
		queues: make(map[string]chan *redis.Message),
		handle: handle,
	}
}

func (w *channelWorkers) dispatch(ctx context.Context, msg *redis.Message) {
	w.mu.Lock()
	defer w.mu.Unlock()

	queue, ok := w.queues[msg.Channel]
	if !ok {
		queue = make(chan *redis.Message, requestQueueSize)
		w.queues[msg.Channel] = queue
		go w.work(ctx, msg.Channel, queue)
	}

	select {
	case queue <- msg:
	default:
		observability.RelayDropped.Inc()
		slog.WarnContext(ctx, "request queue full, dropping request", "channel", msg.Channel)
	}
}

func (w *channelWorkers) work(ctx context.Context, channel string, queue chan *redis.Message) {
	for {
		w.mu.Lock()
		if len(queue) == 0 {
			delete(w.queues, channel)
			w.mu.Unlock()
			return
		}
		w.mu.Unlock()

		w.run(ctx, <-queue)
	}
}

func (w *channelWorkers) run(ctx context.Context, msg *redis.Message) {
	defer func() {
		if rec := recover(); rec != nil {
			slog.ErrorContext(ctx, "panic in request subscriber", "channel", msg.Channel, "panic", rec, "stack", string(debug.Stack()))
		}
	}()

	w.handle(ctx, msg.Channel, []byte(msg.Payload))
}
