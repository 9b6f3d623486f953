package kvslot

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis stores the slot value under one fixed Redis key with no TTL.
type Redis struct {
	client *redis.Client
	key    string
}

// NewRedis wraps an existing client. The key scopes the slot; two stores
// sharing a key share state, which this design treats as unsupported.
func NewRedis(client *redis.Client, key string) *Redis {
	return &Redis{client: client, key: key}
}

// DialRedis connects to addr and verifies the connection before use.
func DialRedis(addr, key string) (*Redis, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect to redis at %s: %w", addr, err)
	}
	return NewRedis(client, key), nil
}

func (r *Redis) Read(ctx context.Context) ([]byte, bool, error) {
	data, err := r.client.Get(ctx, r.key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("read slot key %q: %w", r.key, err)
	}
	return data, true, nil
}

func (r *Redis) Write(ctx context.Context, data []byte) error {
	if err := r.client.Set(ctx, r.key, data, 0).Err(); err != nil {
		return fmt.Errorf("write slot key %q: %w", r.key, err)
	}
	return nil
}

// Close releases the underlying client connection pool.
func (r *Redis) Close() error { return r.client.Close() }
