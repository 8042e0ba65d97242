package application

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"mcpfeeder/internal/domain/entity"
)

const (
	FeederToolName        = "get_feeds"
	FeederToolDescription = "Feeds data from a specified URL."
	URLParameterName      = "Url"
	URLParameterDesc      = "The URL to fetch data from."

	NoFeedsMessage = "No feeds found for the specified URL and time range."
)

type ToolParameter struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Required    bool   `json:"required"`
}

type ToolDefinition struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Parameters  []ToolParameter `json:"parameters"`
}

type feedGetter interface {
	GetFeeds(ctx context.Context, url string, start, end time.Time) []*entity.FeedItem
}

// FeederTool returns the previous UTC day's item contents of a feed as text.
type FeederTool struct {
	feeds feedGetter
	log   *slog.Logger
	now   func() time.Time
}

func NewFeederTool(feeds feedGetter, log *slog.Logger) *FeederTool {
	return &FeederTool{
		feeds: feeds,
		log:   log.With(slog.String("component", "feeder_tool")),
		now:   time.Now,
	}
}

func (t *FeederTool) Definition() ToolDefinition {
	return ToolDefinition{
		Name:        FeederToolName,
		Description: FeederToolDescription,
		Parameters: []ToolParameter{
			{Name: URLParameterName, Description: URLParameterDesc, Required: true},
		},
	}
}

// Invoke never fails; problems are rendered into the returned text.
func (t *FeederTool) Invoke(ctx context.Context, feedURL string) (result string) {
	log := t.log.With(slog.String("url", feedURL))
	log.Info("fetching data from URL")

	defer func() {
		if r := recover(); r != nil {
			log.Error("panic while fetching feeds", slog.Any("panic", r))
			result = fmt.Sprintf("Error fetching feeds: %v", r)
		}
	}()

	if err := validateFeedURL(feedURL); err != nil {
		log.Error("error fetching feeds", slog.Any("error", err))
		return fmt.Sprintf("Error fetching feeds: %v", err)
	}

	start, end := PreviousUTCDay(t.now())
	log.Info("fetching data for day", slog.String("day", start.Format(time.DateOnly)))

	items := t.feeds.GetFeeds(ctx, feedURL, start, end)
	if len(items) == 0 {
		return NoFeedsMessage
	}

	return strings.Join(entity.Contents(items), "\n")
}

// PreviousUTCDay returns the most recent UTC midnight at or before now as end
// and the midnight 24 hours earlier as start.
func PreviousUTCDay(now time.Time) (start, end time.Time) {
	now = now.UTC()
	end = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	return end.Add(-24 * time.Hour), end
}

func validateFeedURL(raw string) error {
	if strings.TrimSpace(raw) == "" {
		return fmt.Errorf("url is required")
	}

	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("unsupported url scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("url %q has no host", raw)
	}
	return nil
}
