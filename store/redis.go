package store

import (
	"context"
	"fmt"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
)

// slideScript prunes, counts and conditionally records one request in a
// sorted set scored by millisecond timestamps, all in one atomic step.
// Returns {allowed, count, reset_ms}.
var slideScript = redis.NewScript(`
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local limit = tonumber(ARGV[3])
redis.call('ZREMRANGEBYSCORE', KEYS[1], '-inf', now - window)
local count = redis.call('ZCARD', KEYS[1])
local allowed = 0
if count < limit then
    redis.call('ZADD', KEYS[1], now, ARGV[4])
    count = count + 1
    allowed = 1
end
redis.call('PEXPIRE', KEYS[1], window)
local reset = 0
local oldest = redis.call('ZRANGE', KEYS[1], 0, 0, 'WITHSCORES')
if oldest[2] then
    reset = tonumber(oldest[2]) + window - now
end
return {allowed, count, reset}
`)

// Redis is a Store shared by every replica pointing at the same server.
type Redis struct {
	client *redis.Client
	prefix string
	seq    atomic.Uint64
}

// RedisConfig holds configuration for the Redis connection. It is filled by
// the application's config layer; the store never reads the environment.
type RedisConfig struct {
	// URL is the Redis server address (e.g., "localhost:6379")
	URL string

	// Password for Redis authentication (optional)
	Password string

	// DB is the Redis database number
	DB int

	// Prefix is prepended to all keys (default: "logos:ratelimit:")
	Prefix string

	// DialTimeout is the timeout for establishing new connections (default: 5s)
	DialTimeout time.Duration
}

// NewRedis connects to Redis and verifies the connection with a ping.
func NewRedis(config RedisConfig) (*Redis, error) {
	if config.Prefix == "" {
		config.Prefix = "logos:ratelimit:"
	}

	opts := &redis.Options{
		Addr:     config.URL,
		Password: config.Password,
		DB:       config.DB,
	}
	if config.DialTimeout > 0 {
		opts.DialTimeout = config.DialTimeout
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &Redis{
		client: client,
		prefix: config.Prefix,
	}, nil
}

func (r *Redis) Allow(ctx context.Context, key string, limit int64, window time.Duration) (Result, error) {
	now := time.Now()
	member := strconv.FormatInt(now.UnixNano(), 36) + "-" + strconv.FormatUint(r.seq.Add(1), 36)

	result, err := slideScript.Run(ctx, r.client, []string{r.prefix + key},
		now.UnixMilli(), window.Milliseconds(), limit, member).Int64Slice()
	if err != nil {
		return Result{}, fmt.Errorf("redis allow failed: %w", err)
	}
	if len(result) != 3 {
		return Result{}, fmt.Errorf("unexpected result length: got %d, want 3", len(result))
	}

	return Result{
		Allowed: result[0] == 1,
		Count:   result[1],
		ResetIn: time.Duration(max(0, result[2])) * time.Millisecond,
	}, nil
}

// Close releases the Redis client connection.
func (r *Redis) Close() error {
	return r.client.Close()
}
