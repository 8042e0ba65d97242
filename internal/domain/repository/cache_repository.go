package repository

import (
	"context"
	"time"

	"mcpfeeder/internal/domain/entity"
)

type CacheRepository interface {
	Get(ctx context.Context, key string) ([]*entity.FeedItem, bool, error)
	Set(ctx context.Context, key string, items []*entity.FeedItem) error
	DeleteExpired(ctx context.Context) (int64, error)
}

// ExpirationPolicy decides when an entry stored at storedAt stops being served.
type ExpirationPolicy interface {
	ExpiresAt(storedAt time.Time) time.Time
}

// FixedTTL expires every entry a constant duration after it was stored.
type FixedTTL time.Duration

func (ttl FixedTTL) ExpiresAt(storedAt time.Time) time.Time {
	return storedAt.Add(time.Duration(ttl))
}
