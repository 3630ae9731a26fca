package redis

import (
	"context"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

const (
	pingTimeout = 2 * time.Second
	// all keys written by this service share the prefix
	keyPrefix = "contacts:"
)

// Client wraps go-redis with the timeouts the HTTP path expects.
type Client struct {
	rdb *goredis.Client
}

func New(addr, password string, db int) *Client {
	opts := &goredis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		DialTimeout:  pingTimeout,
		ReadTimeout:  500 * time.Millisecond,
		WriteTimeout: 500 * time.Millisecond,
		MaxRetries:   1,
	}
	return &Client{rdb: goredis.NewClient(opts)}
}

// Ping is used both at startup and by /readyz.
func (c *Client) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	return c.rdb.Ping(ctx).Err()
}

func (c *Client) Close() error { return c.rdb.Close() }
