package source

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

const (
	redditAuthURL = "https://www.reddit.com/api/v1/access_token"
	redditAPIURL  = "https://oauth.reddit.com"
)

// Reddit searches reddit site-wide through the OAuth2 client-credentials flow.
type Reddit struct {
	conf      *clientcredentials.Config
	client    *http.Client
	userAgent string
	apiURL    string
	timeout   time.Duration
	mu        sync.Mutex
}

var _ Searcher = (*Reddit)(nil)

// NewReddit creates a new reddit search client. Every request carries a
// bounded timeout; the upstream API has none of its own.
func NewReddit(clientID, clientSecret, userAgent string, timeout time.Duration) *Reddit {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if userAgent == "" {
		userAgent = "atlaswatch/1.0"
	}

	conf := &clientcredentials.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		TokenURL:     redditAuthURL,
		AuthStyle:    oauth2.AuthStyleInHeader,
	}

	r := &Reddit{
		conf:      conf,
		userAgent: userAgent,
		apiURL:    redditAPIURL,
		timeout:   timeout,
	}
	r.client = conf.Client(r.baseContext())
	return r
}

func (r *Reddit) baseContext() context.Context {
	return context.WithValue(context.Background(), oauth2.HTTPClient,
		&http.Client{Timeout: r.timeout})
}

// Verify fetches a token to confirm the credentials work. Called once at
// startup; a failure here is fatal for the run.
func (r *Reddit) Verify(ctx context.Context) error {
	if _, err := r.conf.Token(r.baseContext()); err != nil {
		return fmt.Errorf("[Reddit] authenticate: %w", err)
	}
	return nil
}

// refreshClient drops the cached token after a 401.
func (r *Reddit) refreshClient() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.client = r.conf.Client(r.baseContext())
}

// Search runs a site-wide search and returns matching posts, replies not
// included.
func (r *Reddit) Search(ctx context.Context, query, sort string, limit int) ([]Post, error) {
	if sort == "" {
		sort = "new"
	}
	if limit <= 0 || limit > 100 {
		limit = 100
	}

	u, err := url.Parse(r.apiURL + "/search")
	if err != nil {
		return nil, fmt.Errorf("[Reddit] parse search url: %w", err)
	}
	q := u.Query()
	q.Set("q", query)
	q.Set("sort", sort)
	q.Set("limit", strconv.Itoa(limit))
	q.Set("type", "link")
	u.RawQuery = q.Encode()

	var listing redditListing
	if err := r.getJSON(ctx, u.String(), &listing); err != nil {
		return nil, fmt.Errorf("[Reddit] search %q: %w", query, err)
	}

	var posts []Post
	for _, child := range listing.Data.Children {
		if child.Kind != "t3" {
			continue
		}
		var p redditPost
		if err := json.Unmarshal(child.Data, &p); err != nil {
			continue
		}
		posts = append(posts, Post{
			ID:         p.ID,
			Title:      p.Title,
			Body:       p.Selftext,
			Author:     p.Author,
			URL:        p.URL,
			Channel:    p.Subreddit,
			Score:      p.Score,
			ReplyCount: p.NumComments,
			CreatedAt:  time.Unix(int64(p.CreatedUTC), 0).UTC(),
		})
	}
	return posts, nil
}

// Replies expands the full reply tree of one post, depth-first. Collapsed
// "load more" stubs are skipped rather than fetched.
func (r *Reddit) Replies(ctx context.Context, postID string) ([]Reply, error) {
	u := fmt.Sprintf("%s/comments/%s?limit=500&threaded=true", r.apiURL, postID)

	var listings []redditListing
	if err := r.getJSON(ctx, u, &listings); err != nil {
		return nil, fmt.Errorf("[Reddit] replies for %s: %w", postID, err)
	}
	if len(listings) < 2 {
		return nil, nil
	}

	return flattenComments(listings[1].Data.Children), nil
}

func flattenComments(children []redditChild) []Reply {
	var replies []Reply
	for _, child := range children {
		if child.Kind != "t1" {
			continue
		}
		var c redditComment
		if err := json.Unmarshal(child.Data, &c); err != nil {
			continue
		}
		replies = append(replies, Reply{
			ID:        c.ID,
			Body:      c.Body,
			Author:    c.Author,
			Score:     c.Score,
			CreatedAt: time.Unix(int64(c.CreatedUTC), 0).UTC(),
		})

		if len(c.Replies) > 0 && string(c.Replies) != `""` {
			var nested redditListing
			if err := json.Unmarshal(c.Replies, &nested); err == nil {
				replies = append(replies, flattenComments(nested.Data.Children)...)
			}
		}
	}
	return replies
}

func (r *Reddit) getJSON(ctx context.Context, rawURL string, out any) error {
	return r.doGetJSON(ctx, rawURL, out, true)
}

func (r *Reddit) doGetJSON(ctx context.Context, rawURL string, out any, retryAuth bool) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", r.userAgent)

	r.mu.Lock()
	client := r.client
	r.mu.Unlock()

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		return json.NewDecoder(resp.Body).Decode(out)
	case http.StatusUnauthorized:
		if retryAuth {
			r.refreshClient()
			return r.doGetJSON(ctx, rawURL, out, false)
		}
		return fmt.Errorf("status %d", resp.StatusCode)
	default:
		return fmt.Errorf("status %d", resp.StatusCode)
	}
}

type redditListing struct {
	Data struct {
		Children []redditChild `json:"children"`
	} `json:"data"`
}

type redditChild struct {
	Kind string          `json:"kind"`
	Data json.RawMessage `json:"data"`
}

type redditPost struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	Selftext    string  `json:"selftext"`
	Author      string  `json:"author"`
	URL         string  `json:"url"`
	Subreddit   string  `json:"subreddit"`
	Score       int     `json:"score"`
	NumComments int     `json:"num_comments"`
	CreatedUTC  float64 `json:"created_utc"`
}

type redditComment struct {
	ID         string          `json:"id"`
	Body       string          `json:"body"`
	Author     string          `json:"author"`
	Score      int             `json:"score"`
	CreatedUTC float64         `json:"created_utc"`
	Replies    json.RawMessage `json:"replies"`
}
