package server

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"mcpfeeder/internal/application"
)

const maxRequestBytes = 64 * 1024

type feederTool interface {
	Definition() application.ToolDefinition
	Invoke(ctx context.Context, url string) string
}

type Handler struct {
	log  *slog.Logger
	tool feederTool
}

func NewHandler(log *slog.Logger, tool feederTool) *Handler {
	return &Handler{
		log:  log,
		tool: tool,
	}
}

type invokeRequest struct {
	URL string `json:"url"`
}

// listTools handles GET /tools.
func (h *Handler) listTools(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		respondWithError(w, http.StatusMethodNotAllowed, "Method Not Allowed")
		return
	}
	respondWithJSON(w, http.StatusOK, []application.ToolDefinition{h.tool.Definition()})
}

// getFeeds handles GET /tools/get_feeds?url=... and POST with {"url": "..."}.
func (h *Handler) getFeeds(w http.ResponseWriter, r *http.Request) {
	log := h.log.With(slog.String("op", "server/getFeeds"))

	var url string
	switch r.Method {
	case http.MethodGet:
		url = r.URL.Query().Get("url")
	case http.MethodPost:
		var req invokeRequest
		if err := json.NewDecoder(io.LimitReader(r.Body, maxRequestBytes)).Decode(&req); err != nil {
			log.Warn("invalid request body", slog.Any("error", err))
			respondWithError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
		url = req.URL
	default:
		log.Warn("method not allowed", slog.String("method", r.Method))
		respondWithError(w, http.StatusMethodNotAllowed, "Method Not Allowed")
		return
	}

	respondWithText(w, http.StatusOK, h.tool.Invoke(r.Context(), url))
}

func (h *Handler) healthCheck(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, map[string]string{"error": message})
}

func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error": "Failed to marshal JSON response"}`))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}

func respondWithText(w http.ResponseWriter, code int, text string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(code)
	w.Write([]byte(text))
}
