package source

import (
	"context"
	"time"
)

// Post is one search-result item before normalization.
type Post struct {
	ID         string
	Title      string
	Body       string
	Author     string
	URL        string
	Channel    string
	Score      int
	ReplyCount int
	CreatedAt  time.Time
}

// Reply is one nested reply of a Post. The reply tree is expanded lazily
// through Searcher.Replies, never inline with the search call.
type Reply struct {
	ID        string
	Body      string
	Author    string
	Score     int
	CreatedAt time.Time
}

// Searcher is the search API boundary consumed by the ingestion runner.
type Searcher interface {
	Search(ctx context.Context, query, sort string, limit int) ([]Post, error)
	Replies(ctx context.Context, postID string) ([]Reply, error)
}

// Collector is a secondary source producing posts without a search query,
// such as a news feed.
type Collector interface {
	Name() string
	Collect(ctx context.Context) ([]Post, error)
}
