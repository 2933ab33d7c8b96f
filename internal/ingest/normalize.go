package ingest

import (
	"strings"
	"time"

	"github.com/atlaswatch/atlaswatch/internal/store"
	"github.com/atlaswatch/atlaswatch/pkg/source"
)

// UnknownLocation is the sentinel for text that matches no gazetteer entry.
const UnknownLocation = "Unknown"

// DeletedAuthor is the sentinel for an unavailable author.
const DeletedAuthor = "[deleted]"

var deletedBodies = map[string]bool{
	"[deleted]": true,
	"[removed]": true,
}

// Normalizer converts search items and their replies into flat Records.
// It is a pure transformation: the gazetteer is injected once and never
// mutated, and no call touches anything outside its arguments.
type Normalizer struct {
	gazetteer []string
}

// NewNormalizer creates a Normalizer over the given gazetteer. List order is
// the tie-break: an ambiguous text resolves to the first matching name.
func NewNormalizer(gazetteer []string) *Normalizer {
	return &Normalizer{gazetteer: gazetteer}
}

// ResolveLocation finds the first gazetteer name contained in text,
// case-insensitive, or UnknownLocation.
func (n *Normalizer) ResolveLocation(text string) string {
	lower := strings.ToLower(text)
	for _, name := range n.gazetteer {
		if strings.Contains(lower, strings.ToLower(name)) {
			return name
		}
	}
	return UnknownLocation
}

// Flatten turns one post and its replies into records. The post with both
// title and body empty yields nothing; deleted reply bodies are dropped. For
// an item with R surviving replies the result is exactly 1+R records.
func (n *Normalizer) Flatten(post source.Post, replies []source.Reply, query string, scrapedAt time.Time) []store.Record {
	if post.Title == "" && post.Body == "" {
		return nil
	}

	location := n.ResolveLocation(query)

	records := make([]store.Record, 0, 1+len(replies))
	records = append(records, store.Record{
		ID:            post.ID,
		Query:         query,
		Location:      location,
		IsReply:       false,
		Title:         post.Title,
		Text:          joinText(post.Title, post.Body),
		Score:         post.Score,
		Author:        authorOrDeleted(post.Author),
		URL:           post.URL,
		ReplyCount:    post.ReplyCount,
		SourceChannel: post.Channel,
		CreatedAt:     post.CreatedAt.UTC(),
		ScrapedAt:     scrapedAt.UTC(),
	})

	for _, reply := range replies {
		if deletedBodies[reply.Body] {
			continue
		}
		records = append(records, store.Record{
			ID:            post.ID + "_" + reply.ID,
			Query:         query,
			Location:      location,
			IsReply:       true,
			ParentID:      post.ID,
			Text:          reply.Body,
			Score:         reply.Score,
			Author:        authorOrDeleted(reply.Author),
			SourceChannel: post.Channel,
			CreatedAt:     reply.CreatedAt.UTC(),
			ScrapedAt:     scrapedAt.UTC(),
		})
	}
	return records
}

// FlattenFeedPost normalizes a feed entry. Feed posts carry no query, so the
// location is resolved from the entry text instead.
func (n *Normalizer) FlattenFeedPost(post source.Post, scrapedAt time.Time) []store.Record {
	if post.Title == "" && post.Body == "" {
		return nil
	}

	return []store.Record{{
		ID:            post.ID,
		Location:      n.ResolveLocation(post.Title + " " + post.Body),
		IsReply:       false,
		Title:         post.Title,
		Text:          joinText(post.Title, post.Body),
		Score:         post.Score,
		Author:        authorOrDeleted(post.Author),
		URL:           post.URL,
		SourceChannel: post.Channel,
		CreatedAt:     post.CreatedAt.UTC(),
		ScrapedAt:     scrapedAt.UTC(),
	}}
}

func joinText(title, body string) string {
	switch {
	case title == "":
		return body
	case body == "":
		return title
	default:
		return title + "\n\n" + body
	}
}

func authorOrDeleted(author string) string {
	if author == "" {
		return DeletedAuthor
	}
	return author
}
