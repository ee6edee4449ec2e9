package redis

import (
	"context"
	"time"

	"github.com/Karlli16/OrderMatch/pkg/errors"
	"github.com/Karlli16/OrderMatch/pkg/logger"
	v9 "github.com/redis/go-redis/v9"
)

type client struct {
	logger  *logger.Logger
	config  *Config
	cmdable *v9.Client
}

// NewClient creates a new Redis client with the provided logger and configuration.
func NewClient(logger *logger.Logger, config *Config) Client {
	return &client{
		logger: logger,
		config: config,
	}
}

func (c *client) Connect(ctx context.Context) error {
	if c.config == nil {
		return errors.NewErrorDetails("Redis config is nil", string(errors.RedisConfigError), "connect")
	}

	if c.config.Addr == "" {
		return errors.NewErrorDetails("Redis address is empty", string(errors.RedisConfigError), "connect")
	}

	if c.config.ConnectTimeout <= 0 {
		return errors.NewErrorDetails("Invalid Redis connect timeout", string(errors.RedisConfigError), "connect")
	}

	if c.config.PoolSize <= 0 {
		return errors.NewErrorDetails("Invalid Redis pool size", string(errors.RedisConfigError), "connect")
	}

	c.cmdable = v9.NewClient(&v9.Options{
		Addr:            c.config.Addr,
		Username:        c.config.Username,
		Password:        c.config.Password,
		DB:              c.config.DB,
		DialTimeout:     c.config.ConnectTimeout,
		MaxRetries:      c.config.MaxRetries,
		MinRetryBackoff: c.config.MinRetryBackoff,
		MaxRetryBackoff: c.config.MaxRetryBackoff,
		PoolSize:        c.config.PoolSize,
		MinIdleConns:    c.config.MinIdleConns,
		PoolTimeout:     c.config.PoolTimeout,
	})

	if err := c.Ping(ctx); err != nil {
		return errors.NewErrorDetails(err.Error(), string(errors.RedisConnectionError), "connect")
	}

	c.logger.Info("connected to redis", logger.Field{Key: "addr", Value: c.config.Addr})
	return nil
}

func (c *client) Ping(ctx context.Context) error {
	return c.cmdable.Ping(ctx).Err()
}

func (c *client) Close() error {
	if c.cmdable == nil {
		return nil
	}
	return c.cmdable.Close()
}

// Get returns the string value stored at key. A missing key is returned
// as an empty string, not an error.
func (c *client) Get(ctx context.Context, key string) (string, error) {
	val, err := c.cmdable.Get(ctx, key).Result()
	if err == v9.Nil {
		return "", nil
	}
	if err != nil {
		return "", errors.NewErrorDetails(err.Error(), string(errors.RedisGetError), key)
	}
	return val, nil
}

func (c *client) Set(ctx context.Context, key string, value any, expiration time.Duration) error {
	if err := c.cmdable.Set(ctx, key, value, expiration).Err(); err != nil {
		return errors.NewErrorDetails(err.Error(), string(errors.RedisSetError), key)
	}
	return nil
}
