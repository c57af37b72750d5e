package alerts

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "matchradar:alerts:"

// RedisStore keeps the fired keys of one session in a single Redis set. SADD gives
// the atomic mark-if-new, DEL resets the session.
type RedisStore struct {
	client redis.Cmdable
	setKey string
	ttl    time.Duration
}

// NewRedisStore scopes the store to sessionID. A positive ttl bounds how long the
// set outlives the last fired key.
func NewRedisStore(client redis.Cmdable, sessionID string, ttl time.Duration) *RedisStore {
	return &RedisStore{
		client: client,
		setKey: redisKeyPrefix + sessionID,
		ttl:    ttl,
	}
}

// SetKey is the Redis key holding the session's fired alerts.
func (r *RedisStore) SetKey() string { return r.setKey }

func (r *RedisStore) MarkIfNew(ctx context.Context, key Key) (bool, error) {
	added, err := r.client.SAdd(ctx, r.setKey, key.String()).Result()
	if err != nil {
		return false, fmt.Errorf("mark alert %s: %w", key, err)
	}
	if added == 0 {
		return false, nil
	}

	if r.ttl > 0 {
		if err := r.client.Expire(ctx, r.setKey, r.ttl).Err(); err != nil {
			return true, fmt.Errorf("expire alert set: %w", err)
		}
	}
	return true, nil
}

func (r *RedisStore) Reset(ctx context.Context) error {
	if err := r.client.Del(ctx, r.setKey).Err(); err != nil {
		return fmt.Errorf("reset alert set: %w", err)
	}
	return nil
}

func (r *RedisStore) Len(ctx context.Context) (int, error) {
	n, err := r.client.SCard(ctx, r.setKey).Result()
	if err != nil {
		return 0, fmt.Errorf("count alert set: %w", err)
	}
	return int(n), nil
}
