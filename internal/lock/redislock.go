package lock

import (
	"context"
	"errors"
	"strings"
	"time"

	"monopay-be/internal/logger"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	defaultTTL     = 30 * time.Second
	defaultBackoff = 50 * time.Millisecond
)

var ErrNotConfigured = errors.New("lock: redis client not configured")

// Locker serialises work on one key across every instance sharing the redis.
type Locker struct {
	R            *redis.Client
	Prefix       string
	RetryBackoff time.Duration
}

func NewLocker(client *redis.Client, prefix string) *Locker {
	return &Locker{R: client, Prefix: prefix}
}

// WithLock runs fn while holding key. The lock is released when fn returns,
// whatever the result; waiting stops when ctx is done.
func (l *Locker) WithLock(ctx context.Context, key string, ttl time.Duration, fn func(context.Context) error) error {
	if l == nil || l.R == nil {
		return ErrNotConfigured
	}
	if fn == nil {
		return errors.New("lock: callback not provided")
	}
	if ttl <= 0 {
		ttl = defaultTTL
	}
	retry := l.RetryBackoff
	if retry <= 0 {
		retry = defaultBackoff
	}

	key = l.Prefix + key
	token := uuid.NewString()

	for {
		ok, err := l.R.SetNX(ctx, key, token, ttl).Result()
		if err != nil {
			return err
		}
		if ok {
			defer l.release(key, token)
			return fn(ctx)
		}

		timer := time.NewTimer(retry)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// release deletes the key only while it still holds our token.
func (l *Locker) release(key, token string) {
	const script = `if redis.call("get", KEYS[1]) == ARGV[1] then
  return redis.call("del", KEYS[1])
else
  return 0
end`

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	if err := l.R.Eval(ctx, script, []string{key}, token).Err(); err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "unknown command") {
			_ = l.R.Del(ctx, key).Err()
			return
		}
		logger.L().Warn("Failed to release lock", zap.String("key", key), zap.Error(err))
	}
}
