package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// slidingWindow prunes members at or beyond the window, then admits and
// records the request when the remaining count is below the limit.
var slidingWindow = redis.NewScript(`
local key = KEYS[1]
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local limit = tonumber(ARGV[3])
redis.call('ZREMRANGEBYSCORE', key, '-inf', now - window)
if redis.call('ZCARD', key) >= limit then
	return 0
end
redis.call('ZADD', key, now, ARGV[4])
redis.call('PEXPIRE', key, window)
return 1
`)

// RedisLimiter keeps each client's window in a sorted set scored by milliseconds.
type RedisLimiter struct {
	client redis.Cmdable
	prefix string
	limit  int
	window time.Duration
	now    func() time.Time
	member func() string
}

// NewRedisLimiter creates a limiter whose keys are prefix+"rate:"+clientID.
func NewRedisLimiter(client redis.Cmdable, prefix string, limit int, window time.Duration) *RedisLimiter {
	return &RedisLimiter{
		client: client,
		prefix: prefix,
		limit:  limit,
		window: window,
		now:    time.Now,
		member: func() string { return uuid.NewString() },
	}
}

func (l *RedisLimiter) Allow(ctx context.Context, clientID string) (bool, error) {
	key := l.prefix + "rate:" + clientID
	admitted, err := slidingWindow.Run(ctx, l.client, []string{key},
		l.now().UnixMilli(), l.window.Milliseconds(), l.limit, l.member()).Int()
	if err != nil {
		return false, fmt.Errorf("rate limit %s: %w", clientID, err)
	}
	return admitted == 1, nil
}
