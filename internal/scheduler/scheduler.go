package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/atlaswatch/atlaswatch/internal/ingest"
	"github.com/atlaswatch/atlaswatch/internal/store"
	"github.com/atlaswatch/atlaswatch/pkg/alert"
	"github.com/atlaswatch/atlaswatch/pkg/server"
)

// Scheduler runs periodic scrape passes for daemon mode and refreshes the
// analytics snapshot after each one.
type Scheduler struct {
	runner   *ingest.Runner
	store    store.Store
	srv      *server.Server
	alertMgr *alert.Manager
	interval time.Duration
}

// New creates a new scheduler.
func New(runner *ingest.Runner, st store.Store, srv *server.Server, alertMgr *alert.Manager, interval time.Duration) *Scheduler {
	if interval == 0 {
		interval = 12 * time.Hour
	}
	return &Scheduler{
		runner:   runner,
		store:    st,
		srv:      srv,
		alertMgr: alertMgr,
		interval: interval,
	}
}

// Run starts the scheduler loop. Blocks until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	slog.Info("[Scheduler] initial scrape")
	s.scrapeOnce(ctx)

	slog.Info("[Scheduler] running", slog.Duration("interval", s.interval))

	for {
		select {
		case <-ctx.Done():
			slog.Info("[Scheduler] stopped")
			return ctx.Err()
		case <-ticker.C:
			slog.Info("[Scheduler] scraping")
			s.scrapeOnce(ctx)
		}
	}
}

func (s *Scheduler) scrapeOnce(ctx context.Context) {
	stats, err := s.runner.Run(ctx)
	if err != nil {
		slog.Error("[Scheduler] scrape aborted", slog.String("error", err.Error()))
		return
	}

	if s.srv != nil {
		if err := s.srv.Refresh(ctx); err != nil {
			slog.Error("[Scheduler] snapshot refresh failed", slog.String("error", err.Error()))
		}
	}

	if s.alertMgr == nil || !s.alertMgr.HasNotifiers() {
		return
	}

	report, err := ingest.BuildReport(ctx, s.store)
	if err != nil {
		slog.Error("[Scheduler] report failed", slog.String("error", err.Error()))
		return
	}

	summary := &alert.RunSummary{
		Queries:       stats.Queries,
		FailedQueries: stats.QueriesFailed,
		Saved:         stats.Saved,
		Duplicates:    stats.Duplicates,
		TotalPosts:    report.TotalPosts,
		TotalReplies:  report.TotalReplies,
		TopLocations:  report.TopLocations,
	}
	if err := s.alertMgr.Broadcast(ctx, summary); err != nil {
		slog.Error("[Scheduler] alert failed", slog.String("error", err.Error()))
	}
}
