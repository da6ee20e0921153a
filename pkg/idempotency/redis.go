package idempotency

import (
	"context"
	"fmt"
	"time"

	redis "github.com/redis/go-redis/v9"
)

const (
	redisKeyPrefix = "idempotency:"
	statePending   = "pending"
	stateProcessed = "processed"
	admitted       = 1
)

const admitScript = `
local state = redis.call("GET", KEYS[1])
if state == ARGV[2] then
  return 0
end
if not state then
  redis.call("SET", KEYS[1], ARGV[3], "PX", ARGV[1])
end
return 1
`

const markProcessedScript = `
if redis.call("EXISTS", KEYS[1]) == 1 then
  redis.call("SET", KEYS[1], ARGV[2], "KEEPTTL")
else
  redis.call("SET", KEYS[1], ARGV[2], "PX", ARGV[1])
end
return 1
`

// RedisStore shares idempotency records between instances. Both operations are single Lua
// scripts, so admission is atomic across callers.
type RedisStore struct {
	client        redis.UniversalClient
	ttl           time.Duration
	admit         *redis.Script
	markProcessed *redis.Script
}

// NewRedisStore builds a RedisStore whose keys expire after ttl.
func NewRedisStore(client redis.UniversalClient, ttl time.Duration) (*RedisStore, error) {
	if client == nil {
		return nil, fmt.Errorf("%w: redis client is nil", ErrInvalidGuardConfig)
	}
	if ttl < time.Millisecond {
		return nil, fmt.Errorf("%w: ttl must be at least 1ms", ErrInvalidGuardConfig)
	}
	return &RedisStore{
		client:        client,
		ttl:           ttl,
		admit:         redis.NewScript(admitScript),
		markProcessed: redis.NewScript(markProcessedScript),
	}, nil
}

// Admit implements Store.
func (store *RedisStore) Admit(ctx context.Context, signature string) (Decision, error) {
	result, err := store.admit.Run(ctx, store.client, []string{redisKeyPrefix + signature},
		store.ttl.Milliseconds(), stateProcessed, statePending).Int()
	if err != nil {
		return 0, fmt.Errorf("idempotency admit: %w", err)
	}
	if result == admitted {
		return Admitted, nil
	}
	return Rejected, nil
}

// MarkProcessed implements Store.
func (store *RedisStore) MarkProcessed(ctx context.Context, signature string) error {
	if err := store.markProcessed.Run(ctx, store.client, []string{redisKeyPrefix + signature},
		store.ttl.Milliseconds(), stateProcessed).Err(); err != nil {
		return fmt.Errorf("idempotency mark processed: %w", err)
	}
	return nil
}
