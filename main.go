package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"mcpfeeder/internal/application"
	"mcpfeeder/internal/domain/repository"
	"mcpfeeder/internal/infrastructure/rss"
	"mcpfeeder/internal/infrastructure/storage"
	"mcpfeeder/internal/interfaces/config"
	"mcpfeeder/internal/interfaces/server"
	"mcpfeeder/internal/logger"
)

func main() {
	var feedURL string
	flag.StringVar(&feedURL, "url", "", "invoke get_feeds once for this feed URL and print the result")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("Failed to load configuration:", err)
	}

	logg := logger.New(os.Stderr, cfg.LogLevel)

	cacheRepo, err := newCacheRepository(cfg)
	if err != nil {
		log.Fatal("Failed to initialize cache:", err)
	}
	if closer, ok := cacheRepo.(io.Closer); ok {
		defer closer.Close()
	}

	feedRepo := rss.NewFeedRepository(rss.Config{
		Timeout:   cfg.GetFetchTimeout(),
		UserAgent: cfg.UserAgent,
	}, logg)
	service := application.NewFeedService(feedRepo, cacheRepo, logg)
	tool := application.NewFeederTool(service, logg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if feedURL != "" {
		fmt.Println(tool.Invoke(ctx, feedURL))
		return
	}

	httpServer := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           server.NewServer(logg, server.NewHandler(logg, tool)),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logg.Info("starting HTTP server", slog.String("addr", cfg.ListenAddr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error("HTTP server failed", slog.Any("error", err))
			stop()
		}
	}()

	interval := cfg.GetCachePurgeInterval()
	logg.Info("cache purge interval", slog.Duration("interval", interval), slog.String("backend", cfg.CacheBackend))
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logg.Info("shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := httpServer.Shutdown(shutdownCtx); err != nil {
				logg.Error("HTTP server shutdown failed", slog.Any("error", err))
			}
			return
		case <-ticker.C:
			deleted, err := cacheRepo.DeleteExpired(ctx)
			if err != nil {
				logg.Warn("failed to purge expired cache entries", slog.Any("error", err))
				continue
			}
			if deleted > 0 {
				logg.Info("purged expired cache entries", slog.Int64("deleted", deleted))
			}
		}
	}
}

func newCacheRepository(cfg *config.Config) (repository.CacheRepository, error) {
	policy := repository.FixedTTL(cfg.GetCacheTTL())
	switch cfg.CacheBackend {
	case config.CacheBackendSQLite:
		return storage.NewSQLiteCacheRepository(policy)
	default:
		return storage.NewMemoryCacheRepository(policy), nil
	}
}
