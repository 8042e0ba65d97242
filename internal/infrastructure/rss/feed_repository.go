package rss

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"mcpfeeder/internal/domain/entity"
	"mcpfeeder/internal/domain/repository"

	gofeedrss "github.com/mmcdole/gofeed/rss"
	"golang.org/x/net/html/charset"
)

const (
	// MaxTimeout bounds every fetch; larger configured values are clamped.
	MaxTimeout       = 15 * time.Second
	DefaultUserAgent = "Mozilla/5.0 (compatible; MCPFeeder/1.0)"
	// PubDateLayout is the only accepted pubDate format.
	PubDateLayout = "Mon, 02 Jan 2006 15:04:05 -0700"

	defaultMaxBodyBytes = int64(10 * 1024 * 1024)
)

type Config struct {
	Timeout      time.Duration
	UserAgent    string
	MaxBodyBytes int64
}

type feedRepository struct {
	client       *http.Client
	userAgent    string
	maxBodyBytes int64
	log          *slog.Logger
}

func NewFeedRepository(cfg Config, log *slog.Logger) repository.FeedRepository {
	timeout := cfg.Timeout
	if timeout <= 0 || timeout > MaxTimeout {
		timeout = MaxTimeout
	}

	userAgent := cfg.UserAgent
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}

	maxBodyBytes := cfg.MaxBodyBytes
	if maxBodyBytes <= 0 {
		maxBodyBytes = defaultMaxBodyBytes
	}

	return &feedRepository{
		client:       &http.Client{Timeout: timeout},
		userAgent:    userAgent,
		maxBodyBytes: maxBodyBytes,
		log:          log.With(slog.String("component", "rss")),
	}
}

func (r *feedRepository) Fetch(ctx context.Context, url string) ([]*entity.FeedItem, error) {
	log := r.log.With(slog.String("url", url))

	body, err := r.download(ctx, url)
	if err != nil {
		return nil, err
	}

	channel, err := decode(body)
	if err != nil {
		return nil, err
	}

	items := make([]*entity.FeedItem, 0, len(channel.Items))
	for _, dto := range channel.Items {
		published, err := parsePubDate(dto.PubDate)
		if err != nil {
			log.Debug(
				"could not parse item pubDate, skipping item",
				slog.String("pubDate", dto.PubDate),
				slog.String("item_title", dto.Title),
			)
			continue
		}

		items = append(items, entity.NewFeedItem(
			dto.Title,
			StripMarkup(dto.Description),
			dto.Link,
			published,
		))
	}

	log.Debug("parsed feed", slog.Int("items", len(items)), slog.Int("skipped", len(channel.Items)-len(items)))
	return items, nil
}

func (r *feedRepository) download(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create request: %w", repository.ErrTransport, err)
	}
	req.Header.Set("User-Agent", r.userAgent)

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to fetch url: %w", repository.ErrTransport, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, fmt.Errorf("%w: unexpected status code: %d", repository.ErrTransport, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, r.maxBodyBytes+1))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read response body: %w", repository.ErrTransport, err)
	}
	if int64(len(body)) > r.maxBodyBytes {
		return nil, fmt.Errorf("%w: response body exceeds %d bytes", repository.ErrTransport, r.maxBodyBytes)
	}

	return body, nil
}

// decode requires an un-namespaced channel child under the document root
// and hands the items to gofeed's RSS parser, which keeps namespaced
// siblings such as media:title or atom:link out of the item fields.
func decode(body []byte) (*gofeedrss.Feed, error) {
	body = bytes.TrimSpace(body)

	root, err := findChannel(body)
	if err != nil {
		return nil, err
	}

	// gofeed only accepts rss and rdf roots.
	if root.Space != "" || root.Local != "rss" {
		if body, err = renameRoot(body); err != nil {
			return nil, err
		}
	}

	parser := &gofeedrss.Parser{}
	channel, err := parser.Parse(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to parse RSS: %w", repository.ErrParse, err)
	}

	return channel, nil
}

// findChannel walks the root's direct children and returns the root name
// when one of them is a channel element without a namespace.
func findChannel(body []byte) (xml.Name, error) {
	decoder := xml.NewDecoder(bytes.NewReader(body))
	decoder.CharsetReader = charset.NewReaderLabel

	var root xml.Name
	for root.Local == "" {
		tok, err := decoder.Token()
		if err == io.EOF {
			return xml.Name{}, fmt.Errorf("%w: document has no root element", repository.ErrParse)
		}
		if err != nil {
			return xml.Name{}, fmt.Errorf("%w: failed to decode XML: %w", repository.ErrParse, err)
		}
		if start, ok := tok.(xml.StartElement); ok {
			root = start.Name
		}
	}

	found := false
	for {
		tok, err := decoder.Token()
		if err != nil {
			return xml.Name{}, fmt.Errorf("%w: failed to decode XML: %w", repository.ErrParse, err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Space == "" && t.Name.Local == "channel" {
				found = true
			}
			if err := decoder.Skip(); err != nil {
				return xml.Name{}, fmt.Errorf("%w: failed to decode XML: %w", repository.ErrParse, err)
			}
		case xml.EndElement:
			if !found {
				return xml.Name{}, fmt.Errorf("%w: channel element not found", repository.ErrParse)
			}
			return root, nil
		}
	}
}

// renameRoot rewrites the root element's start and end tags to rss.
func renameRoot(body []byte) ([]byte, error) {
	start := rootOffset(body)
	if start < 0 {
		return nil, fmt.Errorf("%w: document has no root element", repository.ErrParse)
	}

	nameStart := start + 1
	nameEnd := bytes.IndexAny(body[nameStart:], " \t\r\n/>")
	if nameEnd <= 0 {
		return nil, fmt.Errorf("%w: malformed root element", repository.ErrParse)
	}
	nameEnd += nameStart

	closing := append([]byte("</"), body[nameStart:nameEnd]...)
	end := bytes.LastIndex(body, closing)
	if end < nameEnd {
		return nil, fmt.Errorf("%w: root element is not closed", repository.ErrParse)
	}

	out := make([]byte, 0, len(body))
	out = append(out, body[:nameStart]...)
	out = append(out, "rss"...)
	out = append(out, body[nameEnd:end]...)
	out = append(out, "</rss"...)
	out = append(out, body[end+len(closing):]...)
	return out, nil
}

// rootOffset returns the index of the root start tag, skipping the XML
// declaration, processing instructions, comments and the doctype.
func rootOffset(body []byte) int {
	pos := 0
	for {
		i := bytes.IndexByte(body[pos:], '<')
		if i < 0 || pos+i+1 >= len(body) {
			return -1
		}
		pos += i

		var terminator string
		switch {
		case body[pos+1] == '?':
			terminator = "?>"
		case bytes.HasPrefix(body[pos:], []byte("<!--")):
			terminator = "-->"
		case body[pos+1] == '!':
			terminator = ">"
		default:
			return pos
		}

		j := bytes.Index(body[pos+1:], []byte(terminator))
		if j < 0 {
			return -1
		}
		pos += 1 + j + len(terminator)
	}
}

// parsePubDate also rejects values whose weekday does not match the date.
func parsePubDate(value string) (time.Time, error) {
	value = strings.TrimSpace(value)

	published, err := time.Parse(PubDateLayout, value)
	if err != nil {
		return time.Time{}, err
	}

	weekday := published.Weekday().String()[:3]
	if !strings.EqualFold(value[:3], weekday) {
		return time.Time{}, fmt.Errorf("pubDate %q: weekday does not match date, want %s", value, weekday)
	}

	return published, nil
}
