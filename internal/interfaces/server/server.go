package server

import (
	"log/slog"
	"net/http"
	"time"
)

// NewServer wires the tool endpoints behind request logging.
func NewServer(log *slog.Logger, h *Handler) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/tools", h.listTools)
	mux.HandleFunc("/tools/get_feeds", h.getFeeds)
	mux.HandleFunc("/health", h.healthCheck)

	return loggingMiddleware(log)(mux)
}

func loggingMiddleware(log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			entry := log.With(
				slog.String("component", "http"),
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.String("remote_addr", r.RemoteAddr),
			)
			start := time.Now()

			next.ServeHTTP(w, r)

			entry.Info("request completed", slog.Duration("duration", time.Since(start)))
		})
	}
}
