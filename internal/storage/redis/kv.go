// Package redis implements storage.Store on top of Redis string keys.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/and161185/focus-vault/internal/errs"
	"github.com/and161185/focus-vault/internal/storage"
)

const defaultTimeout = 5 * time.Second

// Config captures the settings for establishing a Redis connection.
type Config struct {
	Addr    string
	DB      int
	Prefix  string // prepended to every key, e.g. "fv:"
	Timeout time.Duration
}

// Cmdable is the subset of the go-redis client the store uses.
type Cmdable interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
}

// KV stores values as plain Redis strings without expiry.
type KV struct {
	c      Cmdable
	prefix string
}

var _ storage.Store = (*KV)(nil)

// Connect initialises a Redis client and validates connectivity with a ping.
// A default timeout is applied when none is provided.
func Connect(ctx context.Context, cfg Config) (*redis.Client, error) {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	client := redis.NewClient(&redis.Options{
		Addr: cfg.Addr,
		DB:   cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return client, nil
}

// NewKV wraps a client. prefix namespaces the keys.
func NewKV(c Cmdable, prefix string) *KV { return &KV{c: c, prefix: prefix} }

// Get returns the string stored under key.
func (s *KV) Get(ctx context.Context, key string) ([]byte, error) {
	v, err := s.c.Get(ctx, s.prefix+key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, errs.ErrNotFound
		}
		return nil, err
	}
	return v, nil
}

// Set stores value under key with no expiration.
func (s *KV) Set(ctx context.Context, key string, value []byte) error {
	return s.c.Set(ctx, s.prefix+key, value, 0).Err()
}
