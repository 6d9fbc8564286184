// Copyright (c) 2026 Nlaak Studios (https://nlaak.com)
// Author: Andrew Donelson (https://www.linkedin.com/in/andrew-donelson/)
//
// l3.go — PostgreSQL persistence tier: one fixed key/value table
// holding the type name and payload bytes of each stored envelope,
// with upsert, lookup, delete, existence, and prefix listing.

// Package l3 provides the PostgreSQL persistence tier for envelopes.
package l3

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DefaultTable is the table used when none is configured.
const DefaultTable = "anybox_values"

// ErrMiss is returned by Get when no row exists for the key.
var ErrMiss = errors.New("l3: no row")

// Store is the L3 PostgreSQL adapter.
type Store struct {
	pool  *pgxpool.Pool
	table string
}

// New creates a Store on an existing pool. An empty table name selects
// DefaultTable.
func New(pool *pgxpool.Pool, table string) *Store {
	if table == "" {
		table = DefaultTable
	}
	return &Store{pool: pool, table: table}
}

// Ping verifies the pool is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// EnsureTable creates the key/value table if it does not exist.
func (s *Store) EnsureTable(ctx context.Context) error {
	sql := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		key        TEXT PRIMARY KEY,
		type       TEXT NOT NULL,
		data       BYTEA NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`, s.table)
	if _, err := s.pool.Exec(ctx, sql); err != nil {
		return fmt.Errorf("l3 ensure table %s: %w", s.table, err)
	}
	return nil
}

// Upsert writes or replaces the row for key.
func (s *Store) Upsert(ctx context.Context, key, typeName string, data []byte) error {
	sql := fmt.Sprintf(`INSERT INTO %s (key, type, data, updated_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (key) DO UPDATE SET
			type = EXCLUDED.type, data = EXCLUDED.data, updated_at = now()`, s.table)
	if _, err := s.pool.Exec(ctx, sql, key, typeName, data); err != nil {
		return fmt.Errorf("l3 upsert %s: %w", key, err)
	}
	return nil
}

// Get returns the type name and payload bytes for key, or ErrMiss.
func (s *Store) Get(ctx context.Context, key string) (string, []byte, error) {
	sql := fmt.Sprintf("SELECT type, data FROM %s WHERE key = $1", s.table)
	var typeName string
	var data []byte
	err := s.pool.QueryRow(ctx, sql, key).Scan(&typeName, &data)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", nil, ErrMiss
		}
		return "", nil, fmt.Errorf("l3 get %s: %w", key, err)
	}
	return typeName, data, nil
}

// Delete removes the row for key. Deleting an absent key is not an
// error.
func (s *Store) Delete(ctx context.Context, key string) error {
	sql := fmt.Sprintf("DELETE FROM %s WHERE key = $1", s.table)
	if _, err := s.pool.Exec(ctx, sql, key); err != nil {
		return fmt.Errorf("l3 delete %s: %w", key, err)
	}
	return nil
}

// Exists reports whether a row exists for key.
func (s *Store) Exists(ctx context.Context, key string) (bool, error) {
	sql := fmt.Sprintf("SELECT 1 FROM %s WHERE key = $1 LIMIT 1", s.table)
	var dummy int
	err := s.pool.QueryRow(ctx, sql, key).Scan(&dummy)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("l3 exists %s: %w", key, err)
	}
	return true, nil
}

// Keys returns up to limit keys with the given prefix, in key order.
// limit <= 0 means no limit.
func (s *Store) Keys(ctx context.Context, prefix string, limit int) ([]string, error) {
	sql := fmt.Sprintf("SELECT key FROM %s WHERE key LIKE $1 ORDER BY key", s.table)
	if limit > 0 {
		sql += fmt.Sprintf(" LIMIT %d", limit)
	}
	rows, err := s.pool.Query(ctx, sql, EscapeLike(prefix)+"%")
	if err != nil {
		return nil, fmt.Errorf("l3 keys: %w", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, fmt.Errorf("l3 keys scan: %w", err)
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

// Pool exposes the underlying pool for lifecycle management.
func (s *Store) Pool() *pgxpool.Pool {
	return s.pool
}

// EscapeLike escapes LIKE metacharacters so a key prefix matches
// literally.
func EscapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
