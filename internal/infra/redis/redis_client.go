package redis

import (
	"context"

	"karaoke-subscription/internal/config"

	"github.com/go-redis/redis/v8"
)

// Client wraps the go-redis client so infra consumers do not import the
// driver directly.
type Client struct {
	cli *redis.Client
}

func NewClient(ctx context.Context, cfg *config.RedisConfig) (*Client, error) {
	opts := &redis.Options{
		Addr:     cfg.URL,
		Password: cfg.Password,
		DB:       cfg.DB,
	}
	c := redis.NewClient(opts)
	if err := c.Ping(ctx).Err(); err != nil {
		return nil, err
	}
	return &Client{cli: c}, nil
}

func (c *Client) Ping(ctx context.Context) error { return c.cli.Ping(ctx).Err() }
func (c *Client) Close() error                   { return c.cli.Close() }
