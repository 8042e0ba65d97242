package rss

import (
	"html"
	"regexp"
	"strings"
)

var tagPattern = regexp.MustCompile(`<[^>]+>`)

// StripMarkup replaces every tag with a space, then decodes entities so
// encoded markup survives as text.
func StripMarkup(description string) string {
	text := tagPattern.ReplaceAllString(description, " ")
	text = html.UnescapeString(text)
	return strings.Join(strings.Fields(text), " ")
}
