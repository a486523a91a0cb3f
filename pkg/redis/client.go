package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Opts configures the Redis connection.
type Opts struct {
	Addr     string
	Password string
	DB       int
	PoolSize int
}

// Client wraps the Redis client for live update fan-out (Pub/Sub) and small key/value state.
type Client struct {
	client *redis.Client
	logger *zap.Logger
}

// NewClient connects to Redis and pings it.
func NewClient(ctx context.Context, o Opts, logger *zap.Logger) (*Client, error) {
	if o.Addr == "" {
		o.Addr = "localhost:6379"
	}
	if o.PoolSize <= 0 {
		o.PoolSize = 10
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     o.Addr,
		Password: o.Password,
		DB:       o.DB,

		// Connection pool
		PoolSize:     o.PoolSize,
		MinIdleConns: 2,

		// Timeouts
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", o.Addr, err)
	}

	logger.Info("Connected to Redis", zap.String("addr", o.Addr), zap.Int("db", o.DB))

	return &Client{client: rdb, logger: logger}, nil
}

// Close closes the Redis connection.
func (c *Client) Close() error {
	return c.client.Close()
}

// Publish publishes a message to a Pub/Sub channel.
// This is best-effort: errors are logged, not returned.
func (c *Client) Publish(ctx context.Context, channel string, message interface{}) {
	if err := c.client.Publish(ctx, channel, message).Err(); err != nil {
		c.logger.Warn("Failed to publish Redis message",
			zap.String("channel", channel),
			zap.Error(err))
	}
}

// PSubscribe subscribes to one or more channel patterns, e.g. "depositview:feed:*".
// The caller closes the returned PubSub.
func (c *Client) PSubscribe(ctx context.Context, patterns ...string) *redis.PubSub {
	c.logger.Debug("Subscribing to Redis patterns", zap.Strings("patterns", patterns))
	return c.client.PSubscribe(ctx, patterns...)
}

// Get returns the value at key. ok is false when the key does not exist.
func (c *Client) Get(ctx context.Context, key string) (string, bool, error) {
	v, err := c.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

// Set stores value at key. A zero ttl keeps it forever.
func (c *Client) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return c.client.Set(ctx, key, value, ttl).Err()
}

// Health checks if Redis is healthy.
func (c *Client) Health(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}
