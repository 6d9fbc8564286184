// Copyright (c) 2026 Nlaak Studios (https://nlaak.com)
// Author: Andrew Donelson (https://www.linkedin.com/in/andrew-donelson/)
//
// store.go — tiered key/value store of boxed values: L1 in-memory
// envelope cache, optional L2 Redis, optional L3 PostgreSQL. Writes
// are write-through; reads fall through tier by tier and backfill on
// the way back up.

package anybox

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/AndrewDonelson/anybox/internal/clock"
	"github.com/AndrewDonelson/anybox/internal/codec"
	"github.com/AndrewDonelson/anybox/internal/l1"
	"github.com/AndrewDonelson/anybox/internal/l2"
	"github.com/AndrewDonelson/anybox/internal/l3"
	"github.com/AndrewDonelson/anybox/internal/metrics"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

// Clock re-exported so callers only import this package.
type Clock = clock.Clock

// ────────────────────────────────────────────────────────────────────────────
// Config
// ────────────────────────────────────────────────────────────────────────────

// L2PoolConfig configures the Redis L2 client.
type L2PoolConfig struct {
	PoolSize     int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// L3PoolConfig configures the PostgreSQL connection pool.
type L3PoolConfig struct {
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// Config contains all Store configuration. L2 and L3 are enabled by
// setting RedisAddr and PostgresDSN respectively; with neither set the
// store is a process-local cache.
type Config struct {
	// DSNs
	PostgresDSN   string
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// L3 table holding the envelopes; defaults to "anybox_values".
	TableName string

	// Pools
	L2Pool L2PoolConfig
	L3Pool L3PoolConfig

	// TTLs and L1 sizing
	DefaultL1TTL time.Duration
	DefaultL2TTL time.Duration
	L1MaxEntries int

	// Invalidation
	InvalidationChannel string

	// Optional overrideable components
	Codec   Codec
	Clock   Clock
	Metrics Recorder
	Logger  Logger

	// Encryption key for envelope payloads written to L2/L3 (must be
	// 32 bytes for AES-256-GCM; nil = disabled).
	EncryptionKey []byte
}

func (c *Config) defaults() {
	if c.Codec == nil {
		c.Codec = codec.Default
	}
	if c.Clock == nil {
		c.Clock = clock.Real{}
	}
	if c.Metrics == nil {
		c.Metrics = metrics.Noop{}
	}
	if c.Logger == nil {
		c.Logger = noopLogger{}
	}
	if c.DefaultL1TTL == 0 {
		c.DefaultL1TTL = 5 * time.Minute
	}
	if c.DefaultL2TTL == 0 {
		c.DefaultL2TTL = 30 * time.Minute
	}
	if c.L1MaxEntries == 0 {
		c.L1MaxEntries = 100_000
	}
	if c.InvalidationChannel == "" {
		c.InvalidationChannel = defaultInvalidationChannel
	}
	if c.L3Pool.MaxConns == 0 {
		c.L3Pool.MaxConns = 20
	}
	if c.L3Pool.MinConns == 0 {
		c.L3Pool.MinConns = 2
	}
	if c.L3Pool.MaxConnLifetime == 0 {
		c.L3Pool.MaxConnLifetime = 30 * time.Minute
	}
	if c.L3Pool.MaxConnIdleTime == 0 {
		c.L3Pool.MaxConnIdleTime = 10 * time.Minute
	}
}

// ────────────────────────────────────────────────────────────────────────────
// Stats
// ────────────────────────────────────────────────────────────────────────────

type storeStats struct {
	Gets    atomic.Int64
	Puts    atomic.Int64
	Deletes atomic.Int64
	Errors  atomic.Int64
}

// Stats is the snapshot returned by Store.Stats().
type Stats struct {
	Gets      int64
	Puts      int64
	Deletes   int64
	Errors    int64
	L1Entries int64
	L1Hits    int64
	L1Misses  int64
}

// ────────────────────────────────────────────────────────────────────────────
// Store
// ────────────────────────────────────────────────────────────────────────────

// Store is a tiered key/value store of boxed values. Payload types
// must be registered with RegisterType before Put/Get traffic.
type Store struct {
	cfg       Config
	l1        *l1.Cache
	l2        *l2.Cache
	l3        *l3.Store
	sync      *syncEngine
	stats     storeStats
	metrics   Recorder
	logger    Logger
	encryptor Encryptor
	closed    atomic.Bool
}

// NewStore creates and initialises a Store from the provided Config.
func NewStore(cfg Config) (*Store, error) {
	cfg.defaults()

	s := &Store{
		cfg:     cfg,
		metrics: cfg.Metrics,
		logger:  cfg.Logger,
	}

	// Encryption
	if len(cfg.EncryptionKey) > 0 {
		enc, err := NewAES256GCM(cfg.EncryptionKey)
		if err != nil {
			return nil, fmt.Errorf("anybox: encryption init: %w", err)
		}
		s.encryptor = enc
	}

	// L1
	s.l1 = l1.New(l1.Options{
		TTL:        cfg.DefaultL1TTL,
		MaxEntries: cfg.L1MaxEntries,
		Clock:      cfg.Clock,
	})

	// L2
	if cfg.RedisAddr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:         cfg.RedisAddr,
			Password:     cfg.RedisPassword,
			DB:           cfg.RedisDB,
			PoolSize:     cfg.L2Pool.PoolSize,
			DialTimeout:  cfg.L2Pool.DialTimeout,
			ReadTimeout:  cfg.L2Pool.ReadTimeout,
			WriteTimeout: cfg.L2Pool.WriteTimeout,
		})
		s.l2 = l2.New(l2.Options{
			Client: redisClient,
			Codec:  cfg.Codec,
		})
	}

	// L3
	if cfg.PostgresDSN != "" {
		pgCfg, err := pgxpool.ParseConfig(cfg.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("anybox: postgres config: %w", err)
		}
		pgCfg.MaxConns = cfg.L3Pool.MaxConns
		pgCfg.MinConns = cfg.L3Pool.MinConns
		pgCfg.MaxConnLifetime = cfg.L3Pool.MaxConnLifetime
		pgCfg.MaxConnIdleTime = cfg.L3Pool.MaxConnIdleTime

		pool, err := pgxpool.NewWithConfig(context.Background(), pgCfg)
		if err != nil {
			return nil, fmt.Errorf("anybox: postgres pool: %w", err)
		}
		s.l3 = l3.New(pool, cfg.TableName)
		if err := s.l3.EnsureTable(context.Background()); err != nil {
			pool.Close()
			return nil, err
		}
	}

	// Invalidation engine
	s.sync = newSyncEngine(s)
	s.sync.start()

	return s, nil
}

// ────────────────────────────────────────────────────────────────────────────
// Put / Get / Delete
// ────────────────────────────────────────────────────────────────────────────

// Put stores b under key in every configured tier.
func (s *Store) Put(ctx context.Context, key string, b *Box) error {
	if s.closed.Load() {
		return ErrUnavailable
	}
	env, err := MarshalBox(b, s.cfg.Codec)
	if err != nil {
		s.stats.Errors.Add(1)
		return err
	}
	s.stats.Puts.Add(1)
	// Latency is wall-clock elapsed time; cfg.Clock only drives TTLs.
	start := time.Now()
	defer func() { s.metrics.RecordLatency("put", time.Since(start)) }()

	// L1 keeps the plaintext envelope.
	s.l1.Set(key, env, s.cfg.DefaultL1TTL)

	wire, err := s.wireEnvelope(env)
	if err != nil {
		s.stats.Errors.Add(1)
		return err
	}
	if s.l3 != nil {
		if err := s.l3.Upsert(ctx, key, wire.Type, wire.Data); err != nil {
			s.stats.Errors.Add(1)
			s.metrics.RecordError("put")
			return err
		}
	}
	if s.l2 != nil {
		if err := s.l2.Set(ctx, key, wire, s.cfg.DefaultL2TTL); err != nil {
			// Cache write is best-effort once L3 has the row.
			s.logger.Warn("anybox: l2 write failed", "key", key, "err", err)
		}
	}
	s.sync.publish(ctx, key, opSet)
	return nil
}

// Get retrieves the box stored under key, trying L1, then L2, then L3,
// backfilling the upper tiers on the way back.
func (s *Store) Get(ctx context.Context, key string) (Box, error) {
	if s.closed.Load() {
		return Box{}, ErrUnavailable
	}
	s.stats.Gets.Add(1)
	start := time.Now()
	defer func() { s.metrics.RecordLatency("get", time.Since(start)) }()

	if env, ok := s.l1.Get(key); ok {
		s.metrics.RecordHit("l1")
		return UnmarshalBox(env, s.cfg.Codec)
	}
	s.metrics.RecordMiss("l1")

	if s.l2 != nil {
		wire, err := s.l2.Get(ctx, key)
		switch {
		case err == nil:
			s.metrics.RecordHit("l2")
			env, err := s.plainEnvelope(wire)
			if err != nil {
				s.stats.Errors.Add(1)
				return Box{}, err
			}
			s.l1.Set(key, env, s.cfg.DefaultL1TTL)
			return UnmarshalBox(env, s.cfg.Codec)
		case errors.Is(err, l2.ErrMiss):
			s.metrics.RecordMiss("l2")
		default:
			s.logger.Warn("anybox: l2 read failed", "key", key, "err", err)
		}
	}

	if s.l3 != nil {
		typeName, data, err := s.l3.Get(ctx, key)
		switch {
		case err == nil:
			s.metrics.RecordHit("l3")
			env, err := s.plainEnvelope(Envelope{Type: typeName, Data: data})
			if err != nil {
				s.stats.Errors.Add(1)
				return Box{}, err
			}
			s.l1.Set(key, env, s.cfg.DefaultL1TTL)
			if s.l2 != nil {
				wire, werr := s.wireEnvelope(env)
				if werr == nil {
					if werr = s.l2.Set(ctx, key, wire, s.cfg.DefaultL2TTL); werr != nil {
						s.logger.Warn("anybox: l2 backfill failed", "key", key, "err", werr)
					}
				}
			}
			return UnmarshalBox(env, s.cfg.Codec)
		case errors.Is(err, l3.ErrMiss):
			s.metrics.RecordMiss("l3")
		default:
			s.stats.Errors.Add(1)
			s.metrics.RecordError("get")
			return Box{}, err
		}
	}

	return Box{}, ErrNotFound
}

// Delete removes key from every configured tier.
func (s *Store) Delete(ctx context.Context, key string) error {
	if s.closed.Load() {
		return ErrUnavailable
	}
	s.stats.Deletes.Add(1)
	s.l1.Delete(key)
	if s.l2 != nil {
		if err := s.l2.Delete(ctx, key); err != nil {
			s.logger.Warn("anybox: l2 delete failed", "key", key, "err", err)
		}
	}
	if s.l3 != nil {
		if err := s.l3.Delete(ctx, key); err != nil {
			s.stats.Errors.Add(1)
			return err
		}
	}
	s.sync.publish(ctx, key, opDelete)
	return nil
}

// Exists reports whether key is present in any tier.
func (s *Store) Exists(ctx context.Context, key string) (bool, error) {
	if s.closed.Load() {
		return false, ErrUnavailable
	}
	if _, ok := s.l1.Get(key); ok {
		return true, nil
	}
	if s.l2 != nil {
		ok, err := s.l2.Exists(ctx, key)
		if err == nil && ok {
			return true, nil
		}
	}
	if s.l3 != nil {
		return s.l3.Exists(ctx, key)
	}
	return false, nil
}

// Keys lists up to limit keys with the given prefix from L3, in key
// order. Requires a configured PostgresDSN; the cache tiers are not
// enumerable.
func (s *Store) Keys(ctx context.Context, prefix string, limit int) ([]string, error) {
	if s.closed.Load() {
		return nil, ErrUnavailable
	}
	if s.l3 == nil {
		return nil, ErrL3Unavailable
	}
	return s.l3.Keys(ctx, prefix, limit)
}

// Invalidate drops key from the cache tiers (not L3) and tells peer
// processes to do the same.
func (s *Store) Invalidate(ctx context.Context, key string) error {
	if s.closed.Load() {
		return ErrUnavailable
	}
	s.l1.Delete(key)
	if s.l2 != nil {
		if err := s.l2.Delete(ctx, key); err != nil {
			s.logger.Warn("anybox: l2 invalidate failed", "key", key, "err", err)
		}
	}
	s.sync.publish(ctx, key, opDelete)
	return nil
}

// InvalidateAll drops every entry from the local L1 and tells peers to
// do the same. L2 and L3 are untouched.
func (s *Store) InvalidateAll(ctx context.Context) error {
	if s.closed.Load() {
		return ErrUnavailable
	}
	s.l1.Purge()
	s.sync.publish(ctx, "", opPurge)
	return nil
}

// ────────────────────────────────────────────────────────────────────────────
// Envelope transforms
// ────────────────────────────────────────────────────────────────────────────

// wireEnvelope returns the envelope as written to L2/L3: payload
// encrypted when an encryptor is configured, unchanged otherwise.
func (s *Store) wireEnvelope(env Envelope) (Envelope, error) {
	if s.encryptor == nil {
		return env, nil
	}
	enc, err := s.encryptor.Encrypt(env.Data)
	if err != nil {
		return Envelope{}, fmt.Errorf("%w: encrypt: %v", ErrEncodeFailed, err)
	}
	return Envelope{Type: env.Type, Data: enc}, nil
}

// plainEnvelope reverses wireEnvelope.
func (s *Store) plainEnvelope(wire Envelope) (Envelope, error) {
	if s.encryptor == nil {
		return wire, nil
	}
	dec, err := s.encryptor.Decrypt(wire.Data)
	if err != nil {
		return Envelope{}, fmt.Errorf("%w: decrypt: %v", ErrDecodeFailed, err)
	}
	return Envelope{Type: wire.Type, Data: dec}, nil
}

// ────────────────────────────────────────────────────────────────────────────
// Stats / Close
// ────────────────────────────────────────────────────────────────────────────

// Stats returns a snapshot of operational metrics.
func (s *Store) Stats() Stats {
	l1Stats := s.l1.Stats()
	return Stats{
		Gets:      s.stats.Gets.Load(),
		Puts:      s.stats.Puts.Load(),
		Deletes:   s.stats.Deletes.Load(),
		Errors:    s.stats.Errors.Load(),
		L1Entries: int64(l1Stats.Entries),
		L1Hits:    l1Stats.Hits,
		L1Misses:  l1Stats.Misses,
	}
}

// Close gracefully shuts down the Store.
func (s *Store) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	if s.sync != nil {
		s.sync.stop()
	}
	if s.l2 != nil {
		if err := s.l2.Close(); err != nil {
			s.logger.Warn("anybox: l2 close failed", "err", err)
		}
	}
	if s.l3 != nil {
		s.l3.Pool().Close()
	}
	return nil
}
