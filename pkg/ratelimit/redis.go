package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// takeScript increments the window counter and stamps the expiry in one
// atomic round trip, so concurrent replicas never double-admit the last
// slot.
var takeScript = redis.NewScript(`
local count = redis.call('INCR', KEYS[1])
if count == 1 then
  redis.call('PEXPIRE', KEYS[1], ARGV[1])
end
local ttl = redis.call('PTTL', KEYS[1])
return {count, ttl}
`)

// RedisStore shares fixed-window counters across instances. Window expiry
// rides on key TTL, so no sweeping is needed.
type RedisStore struct {
	rdb    *redis.Client
	limit  int
	window time.Duration

	now func() time.Time
}

func NewRedisStore(rdb *redis.Client, limit int, windowDur time.Duration) *RedisStore {
	return &RedisStore{
		rdb:    rdb,
		limit:  limit,
		window: windowDur,
		now:    time.Now,
	}
}

func (s *RedisStore) Take(ctx context.Context, key string) (*Result, error) {
	raw, err := takeScript.Run(ctx, s.rdb, []string{key}, s.window.Milliseconds()).Result()
	if err != nil {
		return nil, fmt.Errorf("rate limit take: %w", err)
	}

	values, ok := raw.([]interface{})
	if !ok || len(values) != 2 {
		return nil, fmt.Errorf("rate limit take: unexpected reply %v", raw)
	}
	count, _ := values[0].(int64)
	ttlMs, _ := values[1].(int64)
	if ttlMs < 0 {
		ttlMs = s.window.Milliseconds()
	}

	remaining := s.limit - int(count)
	if remaining < 0 {
		remaining = 0
	}

	return &Result{
		Allowed:   int(count) <= s.limit,
		Limit:     s.limit,
		Remaining: remaining,
		ResetAt:   s.now().Add(time.Duration(ttlMs) * time.Millisecond),
	}, nil
}
