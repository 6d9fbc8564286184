// Copyright (c) 2026 Nlaak Studios (https://nlaak.com)
// Author: Andrew Donelson (https://www.linkedin.com/in/andrew-donelson/)
//
// l2.go — Redis-backed L2 tier: codec-encoded envelopes keyed by the
// store key, plus the pub/sub plumbing the invalidation engine rides
// on, and the ErrMiss sentinel that drives clean tier fallthrough.

// Package l2 provides the Redis envelope cache tier.
package l2

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/AndrewDonelson/anybox/internal/codec"
	"github.com/redis/go-redis/v9"
)

// ErrMiss is returned by Get when the key does not exist in Redis.
// Callers use errors.Is(err, l2.ErrMiss) to distinguish a miss from a
// genuine Redis error.
var ErrMiss = errors.New("l2: miss")

// Cache is the L2 Redis envelope cache.
type Cache struct {
	client    redis.UniversalClient
	codec     codec.Codec
	keyPrefix string
	hits      atomic.Int64
	misses    atomic.Int64
}

// Options configures a new Cache.
type Options struct {
	Client    redis.UniversalClient
	Codec     codec.Codec
	KeyPrefix string
}

// New creates a Cache.
func New(opts Options) *Cache {
	if opts.Codec == nil {
		opts.Codec = codec.MsgPack{}
	}
	return &Cache{client: opts.Client, codec: opts.Codec, keyPrefix: opts.KeyPrefix}
}

func (c *Cache) key(k string) string {
	if c.keyPrefix != "" {
		return c.keyPrefix + ":" + k
	}
	return k
}

// Set stores env under key with the given TTL (0 = no expiry).
func (c *Cache) Set(ctx context.Context, key string, env codec.Envelope, ttl time.Duration) error {
	b, err := c.codec.Marshal(env)
	if err != nil {
		return fmt.Errorf("l2 marshal: %w", err)
	}
	k := c.key(key)
	if err := c.client.Set(ctx, k, b, ttl).Err(); err != nil {
		return fmt.Errorf("l2 set %s: %w", k, err)
	}
	return nil
}

// Get retrieves the envelope stored under key. Returns ErrMiss when
// the key is absent.
func (c *Cache) Get(ctx context.Context, key string) (codec.Envelope, error) {
	k := c.key(key)
	b, err := c.client.Get(ctx, k).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			c.misses.Add(1)
			return codec.Envelope{}, ErrMiss
		}
		return codec.Envelope{}, fmt.Errorf("l2 get %s: %w", k, err)
	}
	var env codec.Envelope
	if err := c.codec.Unmarshal(b, &env); err != nil {
		return codec.Envelope{}, fmt.Errorf("l2 unmarshal: %w", err)
	}
	c.hits.Add(1)
	return env, nil
}

// Exists checks whether key exists in Redis.
func (c *Cache) Exists(ctx context.Context, key string) (bool, error) {
	k := c.key(key)
	n, err := c.client.Exists(ctx, k).Result()
	if err != nil {
		return false, fmt.Errorf("l2 exists %s: %w", k, err)
	}
	return n > 0, nil
}

// Delete removes key from Redis. Deleting an absent key is not an
// error.
func (c *Cache) Delete(ctx context.Context, key string) error {
	k := c.key(key)
	if err := c.client.Del(ctx, k).Err(); err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("l2 delete %s: %w", k, err)
	}
	return nil
}

// Publish sends payload on the given pub/sub channel.
func (c *Cache) Publish(ctx context.Context, channel string, payload []byte) error {
	return c.client.Publish(ctx, channel, payload).Err()
}

// Subscribe returns a pub/sub subscription on the given channel.
func (c *Cache) Subscribe(ctx context.Context, channel string) *redis.PubSub {
	return c.client.Subscribe(ctx, channel)
}

// Ping checks that Redis is reachable.
func (c *Cache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Close releases the underlying Redis client.
func (c *Cache) Close() error {
	return c.client.Close()
}

// Stats holds hit and miss counts.
type Stats struct {
	Hits   int64
	Misses int64
}

// Stats returns current statistics.
func (c *Cache) Stats() Stats {
	return Stats{Hits: c.hits.Load(), Misses: c.misses.Load()}
}
