package storage

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"mcpfeeder/internal/domain/entity"
	"mcpfeeder/internal/domain/repository"
)

func testItems(published time.Time) []*entity.FeedItem {
	return []*entity.FeedItem{
		entity.NewFeedItem("Article 1", "Content 1", "https://example.tld/1", published),
		entity.NewFeedItem("Article 2", "Content 2", "https://example.tld/2", published.Add(time.Hour)),
	}
}

func newTestMemoryCache(now *time.Time) *memoryCache {
	cache := NewMemoryCacheRepository(repository.FixedTTL(24 * time.Hour)).(*memoryCache)
	cache.now = func() time.Time { return *now }
	return cache
}

func TestMemoryCache_SetAndGet(t *testing.T) {
	now := time.Date(2023, 1, 1, 12, 0, 0, 0, time.UTC)
	cache := newTestMemoryCache(&now)
	ctx := context.Background()

	key := "feeds_https://example.tld/rss_20230101_20230102"

	_, found, err := cache.Get(ctx, key)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if found {
		t.Error("expected cache miss before Set")
	}

	items := testItems(now)
	if err := cache.Set(ctx, key, items); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, found, err := cache.Get(ctx, key)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !found {
		t.Fatal("expected cache hit after Set")
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 items, got %d", len(got))
	}
	if got[0].Title != "Article 1" || got[1].Title != "Article 2" {
		t.Errorf("unexpected order: %s, %s", got[0].Title, got[1].Title)
	}
}

func TestMemoryCache_Expiry(t *testing.T) {
	now := time.Date(2023, 1, 1, 12, 0, 0, 0, time.UTC)
	cache := newTestMemoryCache(&now)
	ctx := context.Background()

	key := "feeds_https://example.tld/rss_20230101_20230102"
	_ = cache.Set(ctx, key, testItems(now))

	now = now.Add(24*time.Hour - time.Second)
	if _, found, _ := cache.Get(ctx, key); !found {
		t.Error("expected entry to be served just before expiry")
	}

	now = now.Add(time.Second)
	if _, found, _ := cache.Get(ctx, key); found {
		t.Error("expected entry to be expired after 24 hours")
	}
}

func TestMemoryCache_DeleteExpired(t *testing.T) {
	now := time.Date(2023, 1, 1, 12, 0, 0, 0, time.UTC)
	cache := newTestMemoryCache(&now)
	ctx := context.Background()

	_ = cache.Set(ctx, "old", testItems(now))
	now = now.Add(12 * time.Hour)
	_ = cache.Set(ctx, "new", testItems(now))
	now = now.Add(13 * time.Hour)

	deleted, err := cache.DeleteExpired(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if deleted != 1 {
		t.Errorf("expected 1 deleted entry, got %d", deleted)
	}
	if _, found, _ := cache.Get(ctx, "new"); !found {
		t.Error("expected unexpired entry to survive")
	}
	if _, ok := cache.entries["old"]; ok {
		t.Error("expected expired entry to be removed")
	}
}

func TestMemoryCache_ConcurrentDistinctKeys(t *testing.T) {
	now := time.Date(2023, 1, 1, 12, 0, 0, 0, time.UTC)
	cache := newTestMemoryCache(&now)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key := fmt.Sprintf("key-%d", i)
			_ = cache.Set(ctx, key, testItems(now))
			_, _, _ = cache.Get(ctx, key)
		}(i)
	}
	wg.Wait()

	for i := 0; i < 50; i++ {
		if _, found, _ := cache.Get(ctx, fmt.Sprintf("key-%d", i)); !found {
			t.Errorf("expected key-%d to be cached", i)
		}
	}
}
