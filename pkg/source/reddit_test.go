package source

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newFakeReddit points a Reddit client at a stub API and a stub token
// endpoint, so the full OAuth transport runs against local servers.
func newFakeReddit(t *testing.T, handler http.HandlerFunc) *Reddit {
	t.Helper()

	api := httptest.NewServer(handler)
	t.Cleanup(api.Close)

	tokens := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"access_token":"test-token","token_type":"bearer","expires_in":3600}`))
	}))
	t.Cleanup(tokens.Close)

	r := NewReddit("id", "secret", "test-agent", 5*time.Second)
	r.apiURL = api.URL
	r.conf.TokenURL = tokens.URL
	r.client = r.conf.Client(r.baseContext())
	return r
}

func TestVerify(t *testing.T) {
	r := newFakeReddit(t, func(w http.ResponseWriter, req *http.Request) {})
	require.NoError(t, r.Verify(context.Background()))
}

const searchListing = `{
  "data": {
    "children": [
      {"kind": "t3", "data": {
        "id": "abc1", "title": "Visiting Fes next month", "selftext": "Any riad tips?",
        "author": "wanderer", "url": "https://reddit.com/r/travel/abc1",
        "subreddit": "travel", "score": 42, "num_comments": 3,
        "created_utc": 1717000000.0
      }},
      {"kind": "t3", "data": {
        "id": "abc2", "title": "Agadir beaches", "selftext": "",
        "author": "surfer", "url": "https://reddit.com/r/Morocco/abc2",
        "subreddit": "Morocco", "score": 7, "num_comments": 0,
        "created_utc": 1717000100.0
      }},
      {"kind": "t5", "data": {"id": "not-a-post"}}
    ]
  }
}`

func TestSearch(t *testing.T) {
	var gotQuery, gotSort, gotLimit string
	r := newFakeReddit(t, func(w http.ResponseWriter, req *http.Request) {
		require.Equal(t, "/search", req.URL.Path)
		assert.Equal(t, "test-agent", req.Header.Get("User-Agent"))
		gotQuery = req.URL.Query().Get("q")
		gotSort = req.URL.Query().Get("sort")
		gotLimit = req.URL.Query().Get("limit")
		w.Write([]byte(searchListing))
	})

	posts, err := r.Search(context.Background(), "visit Fes", "new", 100)
	require.NoError(t, err)

	assert.Equal(t, "visit Fes", gotQuery)
	assert.Equal(t, "new", gotSort)
	assert.Equal(t, "100", gotLimit)

	// The t5 child is not a link post and gets dropped.
	require.Len(t, posts, 2)
	first := posts[0]
	assert.Equal(t, "abc1", first.ID)
	assert.Equal(t, "Visiting Fes next month", first.Title)
	assert.Equal(t, "Any riad tips?", first.Body)
	assert.Equal(t, "wanderer", first.Author)
	assert.Equal(t, "travel", first.Channel)
	assert.Equal(t, 42, first.Score)
	assert.Equal(t, 3, first.ReplyCount)
	assert.Equal(t, time.Unix(1717000000, 0).UTC(), first.CreatedAt)
}

func TestSearchDefaultsSortAndLimit(t *testing.T) {
	r := newFakeReddit(t, func(w http.ResponseWriter, req *http.Request) {
		assert.Equal(t, "new", req.URL.Query().Get("sort"))
		assert.Equal(t, "100", req.URL.Query().Get("limit"))
		w.Write([]byte(`{"data":{"children":[]}}`))
	})

	posts, err := r.Search(context.Background(), "visit Fes", "", 0)
	require.NoError(t, err)
	assert.Empty(t, posts)
}

func TestSearchHTTPError(t *testing.T) {
	r := newFakeReddit(t, func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	})

	_, err := r.Search(context.Background(), "visit Fes", "new", 10)
	assert.Error(t, err)
}

const commentsListing = `[
  {"data": {"children": [{"kind": "t3", "data": {"id": "abc1"}}]}},
  {"data": {"children": [
    {"kind": "t1", "data": {
      "id": "c1", "body": "The medina is a maze, get a guide.",
      "author": "localguide", "score": 12, "created_utc": 1717000200.0,
      "replies": {"data": {"children": [
        {"kind": "t1", "data": {
          "id": "c2", "body": "Seconded, worth every dirham.",
          "author": "wanderer", "score": 4, "created_utc": 1717000300.0,
          "replies": ""
        }}
      ]}}
    }},
    {"kind": "more", "data": {"count": 17, "children": ["c9", "c10"]}},
    {"kind": "t1", "data": {
      "id": "c3", "body": "[deleted]",
      "author": "[deleted]", "score": 0, "created_utc": 1717000400.0,
      "replies": ""
    }}
  ]}}
]`

func TestRepliesFlattensTree(t *testing.T) {
	r := newFakeReddit(t, func(w http.ResponseWriter, req *http.Request) {
		require.Equal(t, "/comments/abc1", req.URL.Path)
		w.Write([]byte(commentsListing))
	})

	replies, err := r.Replies(context.Background(), "abc1")
	require.NoError(t, err)

	// Depth-first: nested c2 follows its parent c1; the "more" stub is
	// skipped but real comments after it are kept.
	require.Len(t, replies, 3)
	assert.Equal(t, "c1", replies[0].ID)
	assert.Equal(t, "c2", replies[1].ID)
	assert.Equal(t, "c3", replies[2].ID)
	assert.Equal(t, "The medina is a maze, get a guide.", replies[0].Body)
	assert.Equal(t, 12, replies[0].Score)
}

func TestRepliesShortResponse(t *testing.T) {
	r := newFakeReddit(t, func(w http.ResponseWriter, req *http.Request) {
		w.Write([]byte(`[{"data":{"children":[]}}]`))
	})

	replies, err := r.Replies(context.Background(), "abc1")
	require.NoError(t, err)
	assert.Nil(t, replies)
}

func TestUnauthorizedRetriesOnce(t *testing.T) {
	var calls atomic.Int32
	r := newFakeReddit(t, func(w http.ResponseWriter, req *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Write([]byte(`{"data":{"children":[]}}`))
	})

	_, err := r.Search(context.Background(), "visit Fes", "new", 10)
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())
}
