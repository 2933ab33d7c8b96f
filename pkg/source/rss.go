package source

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"
)

// Feed is a named RSS/Atom feed URL.
type Feed struct {
	Name string
	URL  string
}

// Feeds collects tourism news entries that mention a gazetteer place.
type Feeds struct {
	client    *http.Client
	parser    *gofeed.Parser
	feeds     []Feed
	gazetteer []string
}

var _ Collector = (*Feeds)(nil)

// NewFeeds creates a feed collector. Entries that mention none of the
// gazetteer names are dropped at the source.
func NewFeeds(feeds []Feed, gazetteer []string, timeout time.Duration) *Feeds {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Feeds{
		client:    &http.Client{Timeout: timeout},
		parser:    gofeed.NewParser(),
		feeds:     feeds,
		gazetteer: gazetteer,
	}
}

func (f *Feeds) Name() string { return "feeds" }

func (f *Feeds) Collect(ctx context.Context) ([]Post, error) {
	var all []Post
	var errs []string

	for _, feed := range f.feeds {
		posts, err := f.collectFeed(ctx, feed)
		if err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", feed.Name, err))
			continue
		}
		all = append(all, posts...)
	}

	if len(all) == 0 && len(errs) > 0 {
		return nil, fmt.Errorf("[Feeds] all feeds failed: %s", strings.Join(errs, "; "))
	}
	return all, nil
}

func (f *Feeds) collectFeed(ctx context.Context, feed Feed) ([]Post, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, feed.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", "atlaswatch/1.0")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status %d", resp.StatusCode)
	}

	parsed, err := f.parser.Parse(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse: %w", err)
	}

	var posts []Post
	for _, entry := range parsed.Items {
		body := htmlToText(entry.Description)
		if entry.Content != "" {
			body = htmlToText(entry.Content)
		}

		if !f.mentionsPlace(entry.Title + " " + body) {
			continue
		}

		published := time.Now().UTC()
		if entry.PublishedParsed != nil {
			published = entry.PublishedParsed.UTC()
		} else if entry.UpdatedParsed != nil {
			published = entry.UpdatedParsed.UTC()
		}

		guid := entry.GUID
		if guid == "" {
			guid = entry.Link
		}

		author := ""
		if entry.Author != nil {
			author = entry.Author.Name
		}

		posts = append(posts, Post{
			ID:        fmt.Sprintf("rss_%s_%s", slug(feed.Name), slug(guid)),
			Title:     entry.Title,
			Body:      body,
			Author:    author,
			URL:       entry.Link,
			Channel:   feed.Name,
			CreatedAt: published,
		})
	}
	return posts, nil
}

func (f *Feeds) mentionsPlace(text string) bool {
	lower := strings.ToLower(text)
	for _, name := range f.gazetteer {
		if strings.Contains(lower, strings.ToLower(name)) {
			return true
		}
	}
	return false
}

// htmlToText reduces feed HTML to plain text.
func htmlToText(s string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return strings.TrimSpace(s)
	}
	return strings.Join(strings.Fields(doc.Text()), " ")
}

// slug makes a feed name or GUID safe for use inside a record id.
func slug(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		default:
			b.WriteRune('-')
		}
	}
	return strings.Trim(b.String(), "-")
}
