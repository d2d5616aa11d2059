package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const DefaultRedisPrefix = "socialnet:login:"

// fixedWindowScript increments the counter, starts the window on the first
// hit and returns {allowed, remaining window in ms}.
var fixedWindowScript = redis.NewScript(`
local n = redis.call("INCR", KEYS[1])
if n == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
local ttl = redis.call("PTTL", KEYS[1])
if ttl < 0 then
  ttl = tonumber(ARGV[2])
end
if n > tonumber(ARGV[1]) then
  return {0, ttl}
end
return {1, ttl}
`)

var errUnexpectedReply = errors.New("unexpected redis reply")

// RedisLimiter shares counters between server instances.
type RedisLimiter struct {
	client redis.Scripter
	limit  int
	length time.Duration
	prefix string
}

func NewRedisLimiter(client redis.Scripter, limit int, length time.Duration, prefix string) *RedisLimiter {
	if prefix == "" {
		prefix = DefaultRedisPrefix
	}
	return &RedisLimiter{client: client, limit: limit, length: length, prefix: prefix}
}

func (l *RedisLimiter) Allow(ctx context.Context, key string, _ time.Time) (bool, time.Duration, error) {
	ms := l.length.Milliseconds()
	if ms <= 0 {
		return false, 0, fmt.Errorf("rate limit window must be at least 1ms, got %s", l.length)
	}

	res, err := fixedWindowScript.Run(ctx, l.client, []string{l.prefix + key}, l.limit, ms).Int64Slice()
	if err != nil {
		return false, 0, fmt.Errorf("rate limit script: %w", err)
	}
	if len(res) != 2 {
		return false, 0, errUnexpectedReply
	}

	if res[0] == 1 {
		return true, 0, nil
	}
	return false, time.Duration(max(res[1], 0)) * time.Millisecond, nil
}
