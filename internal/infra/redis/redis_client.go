package redis

import (
	"context"
	"strings"
	"time"

	"instagram-unfollower-bot/internal/config"

	"github.com/go-redis/redis/v8"
)

// Nil is returned by Get for a missing key.
const Nil = redis.Nil

// RedisClient is the slice of Redis the bot needs: a string cache and
// windowed counters.
type RedisClient interface {
	Ping(ctx context.Context) error
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
	// IncrWindow increments key and starts its expiry on the first hit of a window.
	IncrWindow(ctx context.Context, key string, window time.Duration) (int64, error)
	Close() error
}

var _ RedisClient = (*Client)(nil)

// Client prefixes every key with cfg.KeyPrefix so several deployments can
// share one database.
type Client struct {
	rdb    *redis.Client
	prefix string
}

// NewClient connects to Redis and pings it. cfg.URL is a redis:// URL or host:port.
func NewClient(ctx context.Context, cfg *config.RedisConfig) (*Client, error) {
	opts, err := options(cfg)
	if err != nil {
		return nil, err
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, err
	}
	return &Client{rdb: rdb, prefix: cfg.KeyPrefix}, nil
}

func options(cfg *config.RedisConfig) (*redis.Options, error) {
	if !strings.Contains(cfg.URL, "://") {
		return &redis.Options{Addr: cfg.URL, Password: cfg.Password, DB: cfg.DB}, nil
	}
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, err
	}
	if cfg.Password != "" {
		opts.Password = cfg.Password
	}
	return opts, nil
}

func (c *Client) key(k string) string { return c.prefix + k }

func (c *Client) Ping(ctx context.Context) error { return c.rdb.Ping(ctx).Err() }

func (c *Client) Get(ctx context.Context, key string) (string, error) {
	return c.rdb.Get(ctx, c.key(key)).Result()
}

func (c *Client) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	return c.rdb.Set(ctx, c.key(key), value, ttl).Err()
}

func (c *Client) Del(ctx context.Context, keys ...string) error {
	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = c.key(k)
	}
	return c.rdb.Del(ctx, full...).Err()
}

// incrWindow runs INCR and PEXPIRE atomically so a crash between them cannot
// leave a counter without a TTL.
var incrWindow = redis.NewScript(`
local n = redis.call("INCR", KEYS[1])
if n == 1 then
	redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return n
`)

func (c *Client) IncrWindow(ctx context.Context, key string, window time.Duration) (int64, error) {
	return incrWindow.Run(ctx, c.rdb, []string{c.key(key)}, window.Milliseconds()).Int64()
}

func (c *Client) Close() error { return c.rdb.Close() }
