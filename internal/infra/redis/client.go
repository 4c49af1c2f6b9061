package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Client wraps Redis operations for cooldown-state persistence. Cooldown
// timestamps survive process restarts so a crash loop cannot bypass an
// action's cooldown window.
type Client struct {
	rdb *redis.Client
}

// Config holds Redis connection configuration.
type Config struct {
	URL      string `yaml:"url"`
	Password string `yaml:"password"`
}

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

	// Test connection
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

func cooldownKey(actionID string) string {
	return fmt.Sprintf("cooldown:%s", actionID)
}

// SetCooldown records when an action executed. The key expires with the
// cooldown window, so stale entries clean themselves up.
func (c *Client) SetCooldown(ctx context.Context, actionID string, executedAt time.Time, window time.Duration) error {
	key := cooldownKey(actionID)
	if err := c.rdb.Set(ctx, key, executedAt.UnixMilli(), window).Err(); err != nil {
		return fmt.Errorf("set failed: %w", err)
	}
	return nil
}

// GetCooldown returns the last execution time for an action, if any.
func (c *Client) GetCooldown(ctx context.Context, actionID string) (time.Time, bool, error) {
	key := cooldownKey(actionID)
	ms, err := c.rdb.Get(ctx, key).Int64()
	if err == redis.Nil {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("get failed: %w", err)
	}
	return time.UnixMilli(ms), true, nil
}
