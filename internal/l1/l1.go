// Copyright (c) 2026 Nlaak Studios (https://nlaak.com)
// Author: Andrew Donelson (https://www.linkedin.com/in/andrew-donelson/)
//
// l1.go — in-memory L1 tier: a TTL + LRU cache of envelopes. Expiry is
// lazy (checked on Get) and eviction happens on insert, so there is no
// background sweeper to manage.

// Package l1 provides the in-memory envelope cache tier.
package l1

import (
	"container/list"
	"sync"
	"sync/atomic"
	"time"

	"github.com/AndrewDonelson/anybox/internal/clock"
	"github.com/AndrewDonelson/anybox/internal/codec"
)

// Options configures a Cache.
type Options struct {
	TTL        time.Duration
	MaxEntries int
	Clock      clock.Clock
	OnEvict    func(key string)
}

type entry struct {
	key       string
	env       codec.Envelope
	expiresAt time.Time // zero = no expiry
	elem      *list.Element
}

// Cache is the L1 in-memory envelope cache.
type Cache struct {
	mu     sync.Mutex
	items  map[string]*entry
	lru    *list.List // front = most recently used
	opts   Options
	clock  clock.Clock
	hits   atomic.Int64
	misses atomic.Int64
}

// New creates a Cache.
func New(opts Options) *Cache {
	if opts.Clock == nil {
		opts.Clock = clock.Real{}
	}
	return &Cache{
		items: make(map[string]*entry),
		lru:   list.New(),
		opts:  opts,
		clock: opts.Clock,
	}
}

// Set stores env under key. ttl == 0 uses the configured default;
// ttl < 0 means no expiry.
func (c *Cache) Set(key string, env codec.Envelope, ttl time.Duration) {
	if ttl == 0 {
		ttl = c.opts.TTL
	}
	var expiresAt time.Time
	if ttl > 0 {
		expiresAt = c.clock.Now().Add(ttl)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.items[key]; ok {
		e.env = env
		e.expiresAt = expiresAt
		c.lru.MoveToFront(e.elem)
		return
	}
	if c.opts.MaxEntries > 0 && len(c.items) >= c.opts.MaxEntries {
		c.evictOldest()
	}
	e := &entry{key: key, env: env, expiresAt: expiresAt}
	e.elem = c.lru.PushFront(e)
	c.items[key] = e
}

// Get returns the envelope for key and whether it was present and
// unexpired. An expired entry is removed on the way out.
func (c *Cache) Get(key string) (codec.Envelope, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.items[key]
	if !ok {
		c.misses.Add(1)
		return codec.Envelope{}, false
	}
	if !e.expiresAt.IsZero() && c.clock.Now().After(e.expiresAt) {
		c.removeLocked(e)
		c.misses.Add(1)
		return codec.Envelope{}, false
	}
	c.lru.MoveToFront(e.elem)
	c.hits.Add(1)
	// Hand out a detached copy so callers cannot mutate cached bytes.
	return e.env.Clone(), true
}

// Delete removes key if present.
func (c *Cache) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.items[key]; ok {
		c.removeLocked(e)
	}
}

// Purge removes every entry.
func (c *Cache) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = make(map[string]*entry)
	c.lru.Init()
}

// Len returns the current entry count, expired entries included.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// Stats holds hit and miss counts plus the live entry count.
type Stats struct {
	Hits    int64
	Misses  int64
	Entries int
}

// Stats returns a snapshot of cache statistics.
func (c *Cache) Stats() Stats {
	c.mu.Lock()
	entries := len(c.items)
	c.mu.Unlock()
	return Stats{
		Hits:    c.hits.Load(),
		Misses:  c.misses.Load(),
		Entries: entries,
	}
}

func (c *Cache) evictOldest() {
	back := c.lru.Back()
	if back == nil {
		return
	}
	e := back.Value.(*entry)
	c.removeLocked(e)
	if c.opts.OnEvict != nil {
		c.opts.OnEvict(e.key)
	}
}

func (c *Cache) removeLocked(e *entry) {
	c.lru.Remove(e.elem)
	delete(c.items, e.key)
}
