package storage

import (
	"context"
	"sync"
	"time"

	"mcpfeeder/internal/domain/entity"
	"mcpfeeder/internal/domain/repository"
)

type memoryEntry struct {
	items     []*entity.FeedItem
	expiresAt time.Time
}

type memoryCache struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	policy  repository.ExpirationPolicy
	now     func() time.Time
}

func NewMemoryCacheRepository(policy repository.ExpirationPolicy) repository.CacheRepository {
	return &memoryCache{
		entries: make(map[string]memoryEntry),
		policy:  policy,
		now:     time.Now,
	}
}

func (c *memoryCache) Get(ctx context.Context, key string) ([]*entity.FeedItem, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.entries[key]
	if !ok || !c.now().Before(entry.expiresAt) {
		return nil, false, nil
	}
	return entry.items, true, nil
}

func (c *memoryCache) Set(ctx context.Context, key string, items []*entity.FeedItem) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = memoryEntry{
		items:     items,
		expiresAt: c.policy.ExpiresAt(c.now()),
	}
	return nil
}

func (c *memoryCache) DeleteExpired(ctx context.Context) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	var deleted int64
	for key, entry := range c.entries {
		if !now.Before(entry.expiresAt) {
			delete(c.entries, key)
			deleted++
		}
	}
	return deleted, nil
}
