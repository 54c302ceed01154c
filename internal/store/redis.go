package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/cenkalti/backoff/v5"
	"github.com/redis/go-redis/v9"
)

// RedisBackend keeps records as plain redis strings
type RedisBackend struct {
	client *redis.Client
}

// NewRedisBackend connects to addr, which may be host:port or a redis:// URL,
// retrying the initial ping up to retries times.
func NewRedisBackend(ctx context.Context, addr string, retries int) (*RedisBackend, error) {
	var opts *redis.Options
	if strings.Contains(addr, "://") {
		parsed, err := redis.ParseURL(addr)
		if err != nil {
			return nil, fmt.Errorf("parse redis url: %w", err)
		}
		opts = parsed
	} else {
		opts = &redis.Options{Addr: addr}
	}

	client := redis.NewClient(opts)
	b := &RedisBackend{client: client}

	if retries < 1 {
		retries = 1
	}
	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		return struct{}{}, client.Ping(ctx).Err()
	},
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxTries(uint(retries)),
	)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("connect redis at %s: %w", opts.Addr, err)
	}

	return b, nil
}

func (r *RedisBackend) Read(ctx context.Context, key string) ([]byte, error) {
	v, err := r.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	return v, err
}

func (r *RedisBackend) Write(ctx context.Context, key string, value []byte) error {
	return r.client.Set(ctx, key, value, 0).Err()
}

func (r *RedisBackend) Delete(ctx context.Context, key string) error {
	return r.client.Del(ctx, key).Err()
}

func (r *RedisBackend) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *RedisBackend) Close() error {
	return r.client.Close()
}
