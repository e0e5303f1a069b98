package redis

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

func (r repo) IncrBy(ctx context.Context, key string, amount int64) error {
	if err := r.rc.IncrBy(ctx, key, amount).Err(); err != nil {
		return fmt.Errorf("failed to increment %s: %w", key, err)
	}

	return nil
}

func (r repo) GetCounter(ctx context.Context, key string) (int64, error) {
	n, err := r.rc.Get(ctx, key).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to get %s: %w", key, err)
	}

	return n, nil
}
