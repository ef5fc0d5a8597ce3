package ratelimit

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// slidingWindowScript trims the sorted-set log to the window, counts it and
// records the request when under the limit, all in one atomic step.
var slidingWindowScript = redis.NewScript(`
    local key = KEYS[1]
    local now_ms = tonumber(ARGV[1])
    local window_ms = tonumber(ARGV[2])
    local limit = tonumber(ARGV[3])
    local member = ARGV[4]

    redis.call('ZREMRANGEBYSCORE', key, '-inf', now_ms - window_ms)
    local count = redis.call('ZCARD', key)

    local allowed = 0
    local retry_after_ms = 0
    if count < limit then
        redis.call('ZADD', key, now_ms, member)
        count = count + 1
        allowed = 1
    else
        local oldest = redis.call('ZRANGE', key, 0, 0, 'WITHSCORES')
        if oldest[2] ~= nil then
            retry_after_ms = tonumber(oldest[2]) + window_ms - now_ms
        end
        if retry_after_ms < 0 then retry_after_ms = 0 end
    end

    redis.call('PEXPIRE', key, window_ms)

    local remaining = limit - count
    if remaining < 0 then remaining = 0 end
    return { allowed, remaining, retry_after_ms }
`)

// RedisLimiter shares counters across service instances through Redis.
type RedisLimiter struct {
	rdb *redis.Client
	now func() time.Time
}

// NewRedisLimiter wraps a connected client. now may be nil.
func NewRedisLimiter(rdb *redis.Client, now func() time.Time) *RedisLimiter {
	if now == nil {
		now = time.Now
	}
	return &RedisLimiter{rdb: rdb, now: now}
}

// Allow implements Limiter.
func (l *RedisLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (Decision, error) {
	args := []interface{}{
		l.now().UnixMilli(),
		window.Milliseconds(),
		limit,
		uuid.NewString(),
	}
	vals, err := slidingWindowScript.Run(ctx, l.rdb, []string{key}, args...).Result()
	if err != nil {
		return Decision{}, fmt.Errorf("rate limit script: %w", err)
	}
	arr, ok := vals.([]interface{})
	if !ok || len(arr) != 3 {
		return Decision{}, fmt.Errorf("rate limit script: unexpected result %#v", vals)
	}
	return Decision{
		Allowed:    asInt64(arr[0]) == 1,
		Limit:      limit,
		Remaining:  int(asInt64(arr[1])),
		RetryAfter: time.Duration(asInt64(arr[2])) * time.Millisecond,
	}, nil
}

func asInt64(v interface{}) int64 {
	switch t := v.(type) {
	case int64:
		return t
	case int32:
		return int64(t)
	case int:
		return int64(t)
	case float64:
		return int64(t)
	case string:
		if n, err := strconv.ParseInt(t, 10, 64); err == nil {
			return n
		}
	}
	return 0
}
