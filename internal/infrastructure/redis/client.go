package redis

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/aryan0dhankhar/aptlease/internal/reliability/circuitbreaker"
	"github.com/aryan0dhankhar/aptlease/internal/reliability/retry"
)

// Client wraps the Redis client with the few operations the service needs.
// Key operations go through a circuit breaker.
type Client struct {
	rdb     *redis.Client
	breaker *circuitbreaker.CircuitBreaker
	logger  *slog.Logger
}

func newBreaker(logger *slog.Logger) *circuitbreaker.CircuitBreaker {
	cb := circuitbreaker.New(5, 1, 30*time.Second)
	cb.OnStateChange(func(from, to circuitbreaker.State) {
		logger.Warn("redis circuit breaker state changed",
			slog.String("from", from.String()),
			slog.String("to", to.String()),
		)
	})
	return cb
}

// NewClient creates a new Redis client and checks connectivity
func NewClient(ctx context.Context, url string, logger *slog.Logger) (*Client, error) {
	if logger == nil {
		logger = slog.Default()
	}

	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}

	rdb := redis.NewClient(opts)

	_, err = retry.Do(ctx, retry.DefaultConfig(), logger, "redis ping", func(ctx context.Context) (string, error) {
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		return rdb.Ping(pingCtx).Result()
	})
	if err != nil {
		rdb.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	logger.Info("redis connected", slog.String("addr", opts.Addr))
	return &Client{rdb: rdb, breaker: newBreaker(logger), logger: logger}, nil
}

// NewFromRedis wraps an existing go-redis client
func NewFromRedis(rdb *redis.Client, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{rdb: rdb, breaker: newBreaker(logger), logger: logger}
}

// Set stores a value with optional TTL
func (c *Client) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	return c.breaker.Execute(func() error {
		return c.rdb.Set(ctx, key, value, ttl).Err()
	})
}

// Exists reports whether key is present
func (c *Client) Exists(ctx context.Context, key string) (bool, error) {
	var n int64
	err := c.breaker.Execute(func() error {
		var err error
		n, err = c.rdb.Exists(ctx, key).Result()
		return err
	})
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Delete removes a key
func (c *Client) Delete(ctx context.Context, key string) error {
	return c.breaker.Execute(func() error {
		return c.rdb.Del(ctx, key).Err()
	})
}

// Ping checks connectivity. It bypasses the breaker so readiness reports the
// real state.
func (c *Client) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

// Close closes the Redis connection
func (c *Client) Close() error {
	return c.rdb.Close()
}
