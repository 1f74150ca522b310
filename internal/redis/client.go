package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"clipfeed/internal/logger"
)

const pingTimeout = 5 * time.Second

// Client is the single Redis connection pool shared by the stream
// publisher and the worker consumers.
type Client struct {
	*redis.Client
}

// Connect parses redisURL, opens a pool and pings it so start-up fails
// fast when Redis is unreachable.
// URL format: redis://[:password@]host:port[/db]
func Connect(ctx context.Context, redisURL string) (*Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	c := &Client{Client: redis.NewClient(opts)}

	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := c.Client.Ping(ctx).Err(); err != nil {
		_ = c.Client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	logger.Log.Info("Connected to redis", zap.String("addr", opts.Addr), zap.Int("db", opts.DB))
	return c, nil
}

// Close closes the pool, logging instead of failing shutdown.
func (c *Client) Close() {
	if err := c.Client.Close(); err != nil {
		logger.Log.Warn("redis close failed", zap.Error(err))
	}
}
