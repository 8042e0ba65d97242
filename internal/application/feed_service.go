package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"mcpfeeder/internal/domain/entity"
	"mcpfeeder/internal/domain/repository"

	"golang.org/x/sync/singleflight"
)

const cacheKeyDateLayout = "20060102"

type FeedService struct {
	feedRepo  repository.FeedRepository
	cacheRepo repository.CacheRepository
	flights   singleflight.Group
	log       *slog.Logger
}

func NewFeedService(
	feedRepo repository.FeedRepository,
	cacheRepo repository.CacheRepository,
	log *slog.Logger,
) *FeedService {
	return &FeedService{
		feedRepo:  feedRepo,
		cacheRepo: cacheRepo,
		log:       log.With(slog.String("component", "feed_service")),
	}
}

// CacheKey identifies a feed URL and date range. Only the calendar dates of
// start and end, in their own locations, take part.
func CacheKey(url string, start, end time.Time) string {
	return fmt.Sprintf("feeds_%s_%s_%s", url, start.Format(cacheKeyDateLayout), end.Format(cacheKeyDateLayout))
}

// GetFeeds returns the items of url published in [start, end]. It never
// fails: transport and parse failures are logged and yield an empty result.
func (s *FeedService) GetFeeds(ctx context.Context, url string, start, end time.Time) []*entity.FeedItem {
	key := CacheKey(url, start, end)
	log := s.log.With(slog.String("url", url), slog.String("cache_key", key))

	if items, ok := s.cached(ctx, key, log); ok {
		log.Info("feed served from cache")
		return cloneItems(items)
	}

	// The shared fetch outlives a cancelled caller; the client timeout bounds it.
	flightCtx := context.WithoutCancel(ctx)
	ch := s.flights.DoChan(key, func() (interface{}, error) {
		if items, ok := s.cached(flightCtx, key, log); ok {
			return items, nil
		}

		items, err := s.fetchFeeds(flightCtx, url, start, end)
		if err != nil {
			return nil, err
		}

		if len(items) > 0 {
			if err := s.cacheRepo.Set(flightCtx, key, items); err != nil {
				log.Warn("failed to cache feeds", slog.Any("error", err))
			}
		}
		return items, nil
	})

	select {
	case <-ctx.Done():
		log.Warn("stopped waiting for feed fetch", slog.Any("error", ctx.Err()))
		return []*entity.FeedItem{}
	case res := <-ch:
		if res.Err != nil {
			log.Warn("feed fetch failed",
				slog.String("kind", failureKind(res.Err)),
				slog.Any("error", res.Err),
			)
			return []*entity.FeedItem{}
		}
		if res.Shared {
			log.Debug("joined in-flight feed fetch")
		}
		return cloneItems(res.Val.([]*entity.FeedItem))
	}
}

func (s *FeedService) cached(ctx context.Context, key string, log *slog.Logger) ([]*entity.FeedItem, bool) {
	items, found, err := s.cacheRepo.Get(ctx, key)
	if err != nil {
		log.Warn("feed cache read error, treating as miss", slog.Any("error", err))
		return nil, false
	}
	if !found {
		return nil, false
	}
	if items == nil {
		items = []*entity.FeedItem{}
	}
	return items, true
}

// fetchFeeds fetches url and keeps the items published in [start, end], in
// document order.
func (s *FeedService) fetchFeeds(ctx context.Context, url string, start, end time.Time) ([]*entity.FeedItem, error) {
	entries, err := s.feedRepo.Fetch(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch RSS feed [%s]: %w", url, err)
	}

	items := make([]*entity.FeedItem, 0, len(entries))
	for _, entry := range entries {
		if entry.PublishedWithin(start, end) {
			items = append(items, entry)
		}
	}

	s.log.Info("fetched feed",
		slog.String("url", url),
		slog.Int("entries", len(entries)),
		slog.Int("in_range", len(items)),
	)
	return items, nil
}

// cloneItems hands callers their own copies so they cannot alter cached or
// shared results.
func cloneItems(items []*entity.FeedItem) []*entity.FeedItem {
	cloned := make([]*entity.FeedItem, 0, len(items))
	for _, item := range items {
		c := *item
		cloned = append(cloned, &c)
	}
	return cloned
}

func failureKind(err error) string {
	switch {
	case errors.Is(err, repository.ErrTransport):
		return "transport"
	case errors.Is(err, repository.ErrParse):
		return "parse"
	default:
		return "unknown"
	}
}
