package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"mcpfeeder/internal/domain/entity"
	"mcpfeeder/internal/domain/repository"

	_ "modernc.org/sqlite"
)

// Every connection to ":memory:" gets its own database, so the pool is
// pinned to a single connection that is never recycled.
const sqliteMemoryDSN = ":memory:"

type sqliteCache struct {
	db     *sql.DB
	policy repository.ExpirationPolicy
	now    func() time.Time
}

func NewSQLiteCacheRepository(policy repository.ExpirationPolicy) (repository.CacheRepository, error) {
	db, err := sql.Open("sqlite", sqliteMemoryDSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)
	db.SetConnMaxIdleTime(0)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to sqlite database: %w", err)
	}

	cache := &sqliteCache{
		db:     db,
		policy: policy,
		now:    time.Now,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := cache.initSchema(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return cache, nil
}

func (c *sqliteCache) initSchema(ctx context.Context) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS feed_cache (
			cache_key TEXT PRIMARY KEY,
			items TEXT NOT NULL,
			expires_at INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_feed_cache_expires_at ON feed_cache(expires_at)`,
	}

	for _, query := range queries {
		if _, err := c.db.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("failed to execute schema query: %w", err)
		}
	}

	return nil
}

func (c *sqliteCache) Get(ctx context.Context, key string) ([]*entity.FeedItem, bool, error) {
	var blob string
	err := c.db.QueryRowContext(
		ctx,
		"SELECT items FROM feed_cache WHERE cache_key = ? AND expires_at > ?",
		key,
		c.now().UnixNano(),
	).Scan(&blob)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to get cached feeds: %w", err)
	}

	var items []*entity.FeedItem
	if err := json.Unmarshal([]byte(blob), &items); err != nil {
		return nil, false, fmt.Errorf("failed to decode cached feeds: %w", err)
	}

	return items, true, nil
}

func (c *sqliteCache) Set(ctx context.Context, key string, items []*entity.FeedItem) error {
	blob, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("failed to encode feeds: %w", err)
	}

	_, err = c.db.ExecContext(
		ctx,
		`INSERT INTO feed_cache (cache_key, items, expires_at) VALUES (?, ?, ?)
		ON CONFLICT(cache_key) DO UPDATE SET items = excluded.items, expires_at = excluded.expires_at`,
		key,
		string(blob),
		c.policy.ExpiresAt(c.now()).UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("failed to save cached feeds: %w", err)
	}

	return nil
}

func (c *sqliteCache) DeleteExpired(ctx context.Context) (int64, error) {
	result, err := c.db.ExecContext(
		ctx,
		"DELETE FROM feed_cache WHERE expires_at <= ?",
		c.now().UnixNano(),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired feeds: %w", err)
	}

	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return deleted, nil
}

func (c *sqliteCache) Close() error {
	return c.db.Close()
}
