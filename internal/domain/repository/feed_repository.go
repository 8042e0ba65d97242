package repository

import (
	"context"
	"errors"

	"mcpfeeder/internal/domain/entity"
)

var (
	// ErrTransport covers DNS, connect, timeout and non-2xx failures.
	ErrTransport = errors.New("feed transport failure")
	// ErrParse covers malformed XML, non-RSS documents and a missing channel.
	ErrParse = errors.New("feed parse failure")
)

// FeedRepository returns every channel item with a parseable pubDate,
// sanitized and in document order.
type FeedRepository interface {
	Fetch(ctx context.Context, url string) ([]*entity.FeedItem, error)
}
