package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisWindowStore implements WindowStore against Redis so that the
// sliding window is shared across multiple API processes, using the
// sorted-set-per-client Lua script this package's original
// single-profile limiter used, generalized to an arbitrary client key
// and split into a Peek that records nothing (it only prunes entries
// older than the window) and a Record that adds the new timestamp, to
// match the admit-then-record ordering C6 requires.
type RedisWindowStore struct {
	client    *redis.Client
	keyPrefix string
}

func NewRedisWindowStore(client *redis.Client, keyPrefix string) *RedisWindowStore {
	if keyPrefix == "" {
		keyPrefix = "matchcore:ratelimit"
	}
	return &RedisWindowStore{client: client, keyPrefix: keyPrefix}
}

var peekScript = redis.NewScript(`
	local key = KEYS[1]
	local window_start = tonumber(ARGV[1])
	redis.call('ZREMRANGEBYSCORE', key, '-inf', window_start)
	return redis.call('ZCARD', key)
`)

var recordScript = redis.NewScript(`
	local key = KEYS[1]
	local now_ms = tonumber(ARGV[1])
	local window_start = tonumber(ARGV[2])
	local window_ms = tonumber(ARGV[3])
	local member = ARGV[4]

	redis.call('ZREMRANGEBYSCORE', key, '-inf', window_start)
	redis.call('ZADD', key, now_ms, member)
	redis.call('PEXPIRE', key, window_ms)
	return redis.call('ZCARD', key)
`)

func (s *RedisWindowStore) Peek(ctx context.Context, key string, now time.Time, window time.Duration) (int, error) {
	redisKey := fmt.Sprintf("%s:%s", s.keyPrefix, key)
	windowStart := now.Add(-window).UnixMilli()
	result, err := peekScript.Run(ctx, s.client, []string{redisKey}, windowStart).Result()
	if err != nil {
		return 0, fmt.Errorf("ratelimit: redis window peek failed: %w", err)
	}
	count, ok := result.(int64)
	if !ok {
		return 0, fmt.Errorf("ratelimit: unexpected redis script result %T", result)
	}
	return int(count), nil
}

func (s *RedisWindowStore) Record(ctx context.Context, key string, now time.Time, window time.Duration) (int, error) {
	redisKey := fmt.Sprintf("%s:%s", s.keyPrefix, key)
	windowStart := now.Add(-window).UnixMilli()
	member := fmt.Sprintf("%d-%d", now.UnixNano(), now.UnixMilli())
	result, err := recordScript.Run(ctx, s.client, []string{redisKey}, now.UnixMilli(), windowStart, window.Milliseconds(), member).Result()
	if err != nil {
		return 0, fmt.Errorf("ratelimit: redis window record failed: %w", err)
	}
	count, ok := result.(int64)
	if !ok {
		return 0, fmt.Errorf("ratelimit: unexpected redis script result %T", result)
	}
	return int(count), nil
}

// Sweep is a no-op for Redis: PEXPIRE on every write already reclaims
// abandoned windows without a separate housekeeping pass.
func (s *RedisWindowStore) Sweep(time.Time, time.Duration) {}

func (s *RedisWindowStore) Close() error {
	if s.client != nil {
		return s.client.Close()
	}
	return nil
}
