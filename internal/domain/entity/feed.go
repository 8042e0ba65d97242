package entity

import "time"

type FeedItem struct {
	Title       string    `json:"title"`
	Content     string    `json:"content"`
	Link        string    `json:"link"`
	PublishDate time.Time `json:"publish_date"`
}

func NewFeedItem(title, content, link string, published time.Time) *FeedItem {
	return &FeedItem{
		Title:       title,
		Content:     content,
		Link:        link,
		PublishDate: published,
	}
}

// PublishedWithin reports whether the item was published in [start, end].
func (f *FeedItem) PublishedWithin(start, end time.Time) bool {
	return !f.PublishDate.Before(start) && !f.PublishDate.After(end)
}

func Contents(items []*FeedItem) []string {
	contents := make([]string, 0, len(items))
	for _, item := range items {
		contents = append(contents, item.Content)
	}
	return contents
}
