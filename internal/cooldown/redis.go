package cooldown

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/suspectuso/econ-bot/internal/storage"
)

// RedisTracker keeps one key per active window; the key's TTL is the
// remaining cooldown. Windows of zero or less are never stored.
type RedisTracker struct {
	client *redis.Client
	prefix string
	now    func() time.Time
}

// NewRedisTracker creates a tracker on top of an existing client
func NewRedisTracker(client *redis.Client, opts ...Option) *RedisTracker {
	o := buildOptions(opts)
	return &RedisTracker{
		client: client,
		prefix: "cooldown",
		now:    o.now,
	}
}

func (t *RedisTracker) key(accountID int64, action storage.Action) string {
	return fmt.Sprintf("%s:%s:%d", t.prefix, action, accountID)
}

// TryConsume sets the key only if it does not exist (SET NX PX)
func (t *RedisTracker) TryConsume(ctx context.Context, accountID int64, action storage.Action, window time.Duration) (Decision, error) {
	if window <= 0 {
		return Decision{Allowed: true}, nil
	}

	key := t.key(accountID, action)

	// The key can expire between a refused SETNX and the PTTL read; one retry
	// covers that gap.
	for attempt := 0; attempt < 2; attempt++ {
		ok, err := t.client.SetNX(ctx, key, t.now().UnixMilli(), window).Result()
		if err != nil {
			return Decision{}, fmt.Errorf("consume cooldown: %w", err)
		}
		if ok {
			return Decision{Allowed: true}, nil
		}

		ttl, err := t.client.PTTL(ctx, key).Result()
		if err != nil {
			return Decision{}, fmt.Errorf("read cooldown ttl: %w", err)
		}
		if ttl > 0 {
			return Decision{Allowed: false, Remaining: ttl}, nil
		}
	}

	return Decision{Allowed: false, Remaining: time.Second}, nil
}
