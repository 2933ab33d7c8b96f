package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/atlaswatch/atlaswatch/internal/store"
	"github.com/atlaswatch/atlaswatch/pkg/source"
)

// Runner drives one run-to-completion ingestion pass: every query in order,
// one at a time, one item at a time. The delays are the fair-use throttling
// contract toward the search API and are always applied, even when zero items
// came back.
type Runner struct {
	searcher   source.Searcher
	collectors []source.Collector
	store      store.Store
	norm       *Normalizer

	queries       []string
	sort          string
	postsPerQuery int
	itemDelay     time.Duration
	queryDelay    time.Duration
}

// RunStats summarizes one ingestion pass.
type RunStats struct {
	Queries        int
	QueriesFailed  int
	ItemsFetched   int
	RepliesFetched int
	Saved          int
	Duplicates     int
}

// NewRunner assembles a runner. Collectors may be nil.
func NewRunner(
	searcher source.Searcher,
	collectors []source.Collector,
	st store.Store,
	norm *Normalizer,
	queries []string,
	sort string,
	postsPerQuery int,
	itemDelay, queryDelay time.Duration,
) *Runner {
	if postsPerQuery <= 0 {
		postsPerQuery = 100
	}
	return &Runner{
		searcher:      searcher,
		collectors:    collectors,
		store:         st,
		norm:          norm,
		queries:       queries,
		sort:          sort,
		postsPerQuery: postsPerQuery,
		itemDelay:     itemDelay,
		queryDelay:    queryDelay,
	}
}

// Run executes the full pass. A failed query or a failed reply expansion is
// logged and skipped; only context cancellation aborts the run.
func (r *Runner) Run(ctx context.Context) (*RunStats, error) {
	stats := &RunStats{}

	for i, query := range r.queries {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		if i > 0 {
			time.Sleep(r.queryDelay)
		}

		stats.Queries++
		slog.Info("[Runner] searching", slog.String("query", query))

		posts, err := r.searcher.Search(ctx, query, r.sort, r.postsPerQuery)
		if err != nil {
			slog.Error("[Runner] search failed",
				slog.String("query", query), slog.String("error", err.Error()))
			stats.QueriesFailed++
			continue
		}

		var batch []store.Record
		for _, post := range posts {
			replies, err := r.searcher.Replies(ctx, post.ID)
			if err != nil {
				slog.Warn("[Runner] reply expansion failed",
					slog.String("post_id", post.ID), slog.String("error", err.Error()))
				replies = nil
			}

			records := r.norm.Flatten(post, replies, query, time.Now())
			if len(records) > 0 {
				stats.ItemsFetched++
				stats.RepliesFetched += len(records) - 1
				batch = append(batch, records...)
			}

			time.Sleep(r.itemDelay)
		}

		saved, dups := r.saveBatch(ctx, batch)
		stats.Saved += saved
		stats.Duplicates += dups
		if saved > 0 {
			slog.Info("[Runner] saved new records",
				slog.String("query", query), slog.Int("saved", saved))
		}
	}

	r.runCollectors(ctx, stats)

	slog.Info("[Runner] run complete",
		slog.Int("queries", stats.Queries),
		slog.Int("failed_queries", stats.QueriesFailed),
		slog.Int("saved", stats.Saved))
	return stats, nil
}

func (r *Runner) runCollectors(ctx context.Context, stats *RunStats) {
	for _, col := range r.collectors {
		if ctx.Err() != nil {
			return
		}

		posts, err := col.Collect(ctx)
		if err != nil {
			slog.Error("[Runner] collector failed",
				slog.String("collector", col.Name()), slog.String("error", err.Error()))
			continue
		}

		var batch []store.Record
		for _, post := range posts {
			records := r.norm.FlattenFeedPost(post, time.Now())
			if len(records) > 0 {
				stats.ItemsFetched++
				batch = append(batch, records...)
			}
		}

		saved, dups := r.saveBatch(ctx, batch)
		stats.Saved += saved
		stats.Duplicates += dups
		slog.Info("[Runner] collector done",
			slog.String("collector", col.Name()), slog.Int("saved", saved))
	}
}

// saveBatch writes unseen records. The existence check is only a cheap
// pre-filter; the store's uniqueness constraint is the real dedup guard, so a
// duplicate insert is treated as already-seen, not a failure. Any other store
// failure reports the whole batch as zero saved.
func (r *Runner) saveBatch(ctx context.Context, batch []store.Record) (saved, dups int) {
	for i := range batch {
		rec := &batch[i]

		exists, err := r.store.Exists(ctx, rec.ID)
		if err != nil {
			slog.Error("[Runner] store lookup failed", slog.String("error", err.Error()))
			return 0, 0
		}
		if exists {
			dups++
			continue
		}

		if err := r.store.Insert(ctx, rec); err != nil {
			if errors.Is(err, store.ErrDuplicateID) {
				dups++
				continue
			}
			slog.Error("[Runner] store insert failed", slog.String("error", err.Error()))
			return 0, 0
		}
		saved++
	}
	return saved, dups
}

// Report is the end-of-run statistics summary.
type Report struct {
	TotalPosts   int
	TotalReplies int
	TopLocations []store.FieldCount
	TopChannels  []store.FieldCount
}

// TotalItems returns posts plus replies.
func (r *Report) TotalItems() int { return r.TotalPosts + r.TotalReplies }

// BuildReport queries the store for the statistics summary printed after a
// scrape run: totals, top 5 locations, top 10 channels.
func BuildReport(ctx context.Context, st store.Store) (*Report, error) {
	posts, err := st.CountRecords(ctx, false)
	if err != nil {
		return nil, fmt.Errorf("report totals: %w", err)
	}
	replies, err := st.CountRecords(ctx, true)
	if err != nil {
		return nil, fmt.Errorf("report totals: %w", err)
	}
	locations, err := st.CountByField(ctx, "location", 5)
	if err != nil {
		return nil, fmt.Errorf("report locations: %w", err)
	}
	channels, err := st.CountByField(ctx, "source_channel", 10)
	if err != nil {
		return nil, fmt.Errorf("report channels: %w", err)
	}

	return &Report{
		TotalPosts:   posts,
		TotalReplies: replies,
		TopLocations: locations,
		TopChannels:  channels,
	}, nil
}
