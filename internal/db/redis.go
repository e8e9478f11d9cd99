package db

import (
	"context"
	"fmt"
	"time"

	"monopay-be/internal/config"

	"github.com/redis/go-redis/v9"
)

// NewRedis connects to REDIS_ADDR. No address means no client and no error:
// notifications are then processed without a distributed lock.
func NewRedis(ctx context.Context, cfg *config.Config) (*redis.Client, error) {
	if cfg.RedisAddr == "" {
		return nil, nil
	}

	client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}
	return client, nil
}
