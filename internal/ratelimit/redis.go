package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisLimiter keeps the window counters in Redis so several gateway
// instances can share one budget per key. Counter keys embed the
// wall-clock bucket index, which keeps windows aligned the same way as
// the in-memory limiter; the TTLs only garbage-collect dead buckets.
type RedisLimiter struct {
	cfg    Config
	client *redis.Client
	now    func() time.Time
}

// admitScript checks both windows and increments both counters only
// when both have headroom, so a rejected request leaves no trace.
var admitScript = redis.NewScript(`
local sec = tonumber(redis.call("GET", KEYS[1]) or "0")
local min = tonumber(redis.call("GET", KEYS[2]) or "0")
if sec >= tonumber(ARGV[1]) or min >= tonumber(ARGV[2]) then
  return {0, sec, min}
end
redis.call("INCR", KEYS[1])
redis.call("PEXPIRE", KEYS[1], 2000)
redis.call("INCR", KEYS[2])
redis.call("PEXPIRE", KEYS[2], 120000)
return {1, sec + 1, min + 1}
`)

func NewRedisLimiter(cfg Config, addr, password string, db int) (*RedisLimiter, error) {
	if addr == "" {
		return nil, errors.New("redis addr is required")
	}
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	return &RedisLimiter{cfg: cfg, client: client, now: time.Now}, nil
}

func (l *RedisLimiter) Admit(ctx context.Context, key string) (Decision, error) {
	now := l.now()
	sec := now.Unix()
	min := sec / 60

	secKey := fmt.Sprintf("ratelimit:%s:s:%d", key, sec)
	minKey := fmt.Sprintf("ratelimit:%s:m:%d", key, min)

	result, err := admitScript.Run(ctx, l.client,
		[]string{secKey, minKey},
		l.cfg.MaxPerSecond, l.cfg.MaxPerMinute,
	).Result()
	if err != nil {
		return Decision{}, fmt.Errorf("redis rate limit check: %w", err)
	}

	values, ok := result.([]any)
	if !ok || len(values) < 3 {
		return Decision{}, errors.New("unexpected redis rate limit response")
	}
	allowed, _ := values[0].(int64)
	secCount, _ := values[1].(int64)
	minCount, _ := values[2].(int64)

	d := Decision{
		Allowed:         allowed == 1,
		SecondRemaining: l.cfg.MaxPerSecond - int(secCount),
		MinuteRemaining: l.cfg.MaxPerMinute - int(minCount),
	}
	if !d.Allowed {
		d.RetryAfter = retryAfter(now,
			int(secCount) >= l.cfg.MaxPerSecond,
			int(minCount) >= l.cfg.MaxPerMinute)
	}
	return d, nil
}

// Close releases the Redis connection pool.
func (l *RedisLimiter) Close() error {
	return l.client.Close()
}
