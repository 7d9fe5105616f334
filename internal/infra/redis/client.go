package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	runLockKey    = "txsync:run_lock"
	lastReportKey = "txsync:last_report"
)

// ErrLockHeld is returned when another run owns the lock.
var ErrLockHeld = errors.New("another run is in progress")

// Client wraps Redis operations for run coordination.
type Client struct {
	rdb *redis.Client
}

// Config holds Redis connection configuration. An empty URL disables Redis.
type Config struct {
	URL      string `yaml:"url"`
	Password string `yaml:"password"`
}

// Enabled reports whether a Redis URL is configured.
func (c Config) Enabled() bool { return c.URL != "" }

// NewClient creates a new Redis client.
func NewClient(cfg Config) (*Client, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}
	if cfg.Password != "" {
		opts.Password = cfg.Password
	}

	rdb := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &Client{rdb: rdb}, nil
}

// Close closes the Redis connection.
func (c *Client) Close() error {
	return c.rdb.Close()
}

// Lock is a held run lock.
type Lock struct {
	token string
}

// AcquireRunLock takes the single run lock for ttl. It returns ErrLockHeld
// if another process has it.
func (c *Client) AcquireRunLock(ctx context.Context, ttl time.Duration) (*Lock, error) {
	token := uuid.NewString()
	ok, err := c.rdb.SetNX(ctx, runLockKey, token, ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("setnx failed: %w", err)
	}
	if !ok {
		return nil, ErrLockHeld
	}
	return &Lock{token: token}, nil
}

// Deletes the key only if it still holds our token, so a lock that
// expired and was re-taken by another run is left alone.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// ReleaseRunLock releases a lock taken by AcquireRunLock.
func (c *Client) ReleaseRunLock(ctx context.Context, l *Lock) error {
	if l == nil {
		return nil
	}
	if err := releaseScript.Run(ctx, c.rdb, []string{runLockKey}, l.token).Err(); err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("release lock failed: %w", err)
	}
	return nil
}
