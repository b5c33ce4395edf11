// Package ratelimit implements Redis-backed token buckets for the gateway.
// Each route class (auth, write, read) carries its own refill rate and burst
// so a client hammering login attempts does not eat into their message quota.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Rule is one route class's bucket shape.
type Rule struct {
	// Name keys the Redis bucket and the metrics label.
	Name string

	// PerMinute is the refill rate.
	PerMinute int

	// Burst is the bucket capacity, the number of requests a client may
	// make at once before the refill rate takes over.
	Burst int
}

// Decision is the outcome of one bucket check.
type Decision struct {
	Allowed   bool
	Remaining int

	// RetryAfter is how long until the bucket refills one token. Zero
	// when the request was allowed.
	RetryAfter time.Duration
}

// Limiter decides whether a keyed request fits under a rule's bucket.
type Limiter interface {
	Check(ctx context.Context, rule Rule, key string) (Decision, error)
	Close() error
}

// bucketScript refills and drains one token bucket atomically. The bucket
// lives in a Redis hash holding the remaining token count and the last
// refill timestamp; state expires once the bucket would be full again.
var bucketScript = redis.NewScript(`
local rate = tonumber(ARGV[1])
local burst = tonumber(ARGV[2])
local now = tonumber(ARGV[3])
local ttl = tonumber(ARGV[4])

local state = redis.call('HMGET', KEYS[1], 'tokens', 'ts')
local tokens = tonumber(state[1])
local ts = tonumber(state[2])
if tokens == nil then
	tokens = burst
	ts = now
end

local elapsed = now - ts
if elapsed > 0 then
	tokens = math.min(burst, tokens + elapsed * rate)
end

local allowed = 0
local wait = 0
if tokens >= 1 then
	tokens = tokens - 1
	allowed = 1
else
	wait = math.ceil(((1 - tokens) / rate) * 1000)
end

redis.call('HSET', KEYS[1], 'tokens', tokens, 'ts', now)
redis.call('PEXPIRE', KEYS[1], ttl)
return {allowed, math.floor(tokens), wait}
`)

// RedisLimiter shares buckets across gateway replicas through Redis.
type RedisLimiter struct {
	client *redis.Client

	// now is replaceable so tests can refill buckets without sleeping.
	now func() time.Time
}

// New connects to Redis and verifies the connection.
func New(redisURL string) (Limiter, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}

	client := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}

	return &RedisLimiter{client: client, now: time.Now}, nil
}

// NewWithClient wraps an existing client, mainly for tests.
func NewWithClient(client *redis.Client) *RedisLimiter {
	return &RedisLimiter{client: client, now: time.Now}
}

func (l *RedisLimiter) Check(ctx context.Context, rule Rule, key string) (Decision, error) {
	rate := float64(rule.PerMinute) / 60.0
	if rate <= 0 || rule.Burst <= 0 {
		return Decision{Allowed: true}, nil
	}

	// Keep the bucket around twice as long as a full refill takes.
	ttlMillis := int64(2 * float64(rule.Burst) / rate * 1000)

	now := float64(l.now().UnixMilli()) / 1000.0
	bucketKey := "gateway:rl:" + rule.Name + ":" + key

	res, err := bucketScript.Run(ctx, l.client, []string{bucketKey},
		rate, rule.Burst, now, ttlMillis).Int64Slice()
	if err != nil {
		return Decision{}, fmt.Errorf("rate limit check failed: %w", err)
	}
	if len(res) != 3 {
		return Decision{}, fmt.Errorf("rate limit script returned %d values", len(res))
	}

	return Decision{
		Allowed:    res[0] == 1,
		Remaining:  int(res[1]),
		RetryAfter: time.Duration(res[2]) * time.Millisecond,
	}, nil
}

func (l *RedisLimiter) Close() error {
	return l.client.Close()
}

// AllowAll is a Limiter that never limits, used when rate limiting is
// disabled in config.
type AllowAll struct{}

func (AllowAll) Check(ctx context.Context, rule Rule, key string) (Decision, error) {
	return Decision{Allowed: true, Remaining: rule.Burst}, nil
}

func (AllowAll) Close() error { return nil }
