package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/canopy-network/trackx/pkg/utils"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Channels published on when stored data changes.
const (
	ChannelReposCollected = "trackx:repos.collected"
	ChannelViewsIngested  = "trackx:views.ingested"
)

// Client wraps the Redis client for the query cache and change notifications (Pub/Sub).
type Client struct {
	client *redis.Client
	logger *zap.Logger
	ttl    time.Duration
}

// NewClient creates a new Redis client using environment variables for configuration.
// Environment variables:
//   - REDIS_HOST: Redis host (default: "localhost")
//   - REDIS_PORT: Redis port (default: "6379")
//   - REDIS_PASSWORD: Redis password (default: "")
//   - REDIS_DB: Redis database number (default: "0")
//   - QUERY_CACHE_TTL: cache entry lifetime (default: "60s")
func NewClient(ctx context.Context, logger *zap.Logger) (*Client, error) {
	host := utils.Env("REDIS_HOST", "localhost")
	port := utils.Env("REDIS_PORT", "6379")

	return NewClientWithOptions(ctx, logger, &redis.Options{
		Addr:     fmt.Sprintf("%s:%s", host, port),
		Password: utils.Env("REDIS_PASSWORD", ""),
		DB:       utils.EnvInt("REDIS_DB", 0),

		// Connection pool
		PoolSize:     10,
		MinIdleConns: 2,

		// Timeouts
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	}, utils.EnvDuration("QUERY_CACHE_TTL", time.Minute))
}

// NewClientWithOptions connects with explicit options and verifies the connection with a ping.
func NewClientWithOptions(ctx context.Context, logger *zap.Logger, opts *redis.Options, ttl time.Duration) (*Client, error) {
	rdb := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", opts.Addr, err)
	}

	logger.Info("Connected to Redis",
		zap.String("addr", opts.Addr),
		zap.Int("db", opts.DB),
		zap.Duration("ttl", ttl))

	return &Client{
		client: rdb,
		logger: logger,
		ttl:    ttl,
	}, nil
}

// Close closes the Redis connection.
func (c *Client) Close() error {
	return c.client.Close()
}

// Publish publishes a message to a Redis Pub/Sub channel.
// This is a best-effort operation - errors are logged but not returned.
func (c *Client) Publish(ctx context.Context, channel string, message interface{}) {
	if err := c.client.Publish(ctx, channel, message).Err(); err != nil {
		c.logger.Warn("Failed to publish Redis message",
			zap.String("channel", channel),
			zap.Error(err))
	}
}

// Subscribe subscribes to one or more Redis Pub/Sub channels.
// The caller is responsible for closing the PubSub object when done.
func (c *Client) Subscribe(ctx context.Context, channels ...string) *redis.PubSub {
	c.logger.Debug("Subscribing to Redis channels", zap.Strings("channels", channels))
	return c.client.Subscribe(ctx, channels...)
}

// Health checks if Redis is healthy.
func (c *Client) Health(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}
