package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/atlaswatch/atlaswatch/internal/analytics"
	"github.com/atlaswatch/atlaswatch/internal/config"
	"github.com/atlaswatch/atlaswatch/internal/ingest"
	"github.com/atlaswatch/atlaswatch/internal/scheduler"
	"github.com/atlaswatch/atlaswatch/internal/store"
	"github.com/atlaswatch/atlaswatch/pkg/alert"
	"github.com/atlaswatch/atlaswatch/pkg/server"
	"github.com/atlaswatch/atlaswatch/pkg/source"
)

func loadConfig() (*config.Config, error) {
	path := cfgFile
	if path == "" {
		if _, err := os.Stat("config.yaml"); err == nil {
			path = "config.yaml"
		}
	}
	return config.Load(path)
}

func buildRunner(cfg *config.Config, db store.Store, searcher source.Searcher, postsPerQuery int) *ingest.Runner {
	var collectors []source.Collector
	if cfg.Feeds.Enabled {
		feeds := make([]source.Feed, len(cfg.Feeds.Feeds))
		for i, f := range cfg.Feeds.Feeds {
			feeds[i] = source.Feed{Name: f.Name, URL: f.URL}
		}
		collectors = append(collectors,
			source.NewFeeds(feeds, cfg.PlaceNames(), cfg.Scrape.ParseRequestTimeout()))
	}

	if postsPerQuery <= 0 {
		postsPerQuery = cfg.Scrape.PostsPerQuery
	}

	return ingest.NewRunner(
		searcher,
		collectors,
		db,
		ingest.NewNormalizer(cfg.PlaceNames()),
		ingest.BuildQueries(cfg.PlaceNames(), cfg.Queries.Templates),
		cfg.Scrape.Sort,
		postsPerQuery,
		cfg.Scrape.ParseItemDelay(),
		cfg.Scrape.ParseQueryDelay(),
	)
}

func buildAlertManager(cfg *config.Config) *alert.Manager {
	var notifiers []alert.Notifier

	if cfg.Alerts.Slack.Enabled && cfg.Alerts.Slack.WebhookURL != "" {
		notifiers = append(notifiers, alert.NewSlack(cfg.Alerts.Slack.WebhookURL))
	}
	if cfg.Alerts.Discord.Enabled && cfg.Alerts.Discord.WebhookURL != "" {
		notifiers = append(notifiers, alert.NewDiscord(cfg.Alerts.Discord.WebhookURL))
	}
	if cfg.Alerts.Webhook.Enabled && cfg.Alerts.Webhook.URL != "" {
		notifiers = append(notifiers, alert.NewWebhook(cfg.Alerts.Webhook.URL, cfg.Alerts.Webhook.Secret))
	}

	return alert.NewManager(notifiers)
}

// connectReddit builds and verifies the search client. A credential failure
// here aborts the whole run.
func connectReddit(ctx context.Context, cfg *config.Config) (*source.Reddit, error) {
	reddit := source.NewReddit(
		cfg.Reddit.ClientID,
		cfg.Reddit.ClientSecret,
		cfg.Reddit.UserAgent,
		cfg.Scrape.ParseRequestTimeout(),
	)
	if err := reddit.Verify(ctx); err != nil {
		return nil, err
	}
	return reddit, nil
}

func runScrape(postsPerQuery int) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	db, err := store.New(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer db.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	reddit, err := connectReddit(ctx, cfg)
	if err != nil {
		return err
	}

	runner := buildRunner(cfg, db, reddit, postsPerQuery)
	stats, err := runner.Run(ctx)
	if err != nil {
		return fmt.Errorf("scrape: %w", err)
	}

	report, err := ingest.BuildReport(ctx, db)
	if err != nil {
		return fmt.Errorf("build report: %w", err)
	}
	printReport(report)

	alertMgr := buildAlertManager(cfg)
	if alertMgr.HasNotifiers() {
		summary := &alert.RunSummary{
			Queries:       stats.Queries,
			FailedQueries: stats.QueriesFailed,
			Saved:         stats.Saved,
			Duplicates:    stats.Duplicates,
			TotalPosts:    report.TotalPosts,
			TotalReplies:  report.TotalReplies,
			TopLocations:  report.TopLocations,
		}
		if err := alertMgr.Broadcast(ctx, summary); err != nil {
			fmt.Fprintf(os.Stderr, "alert error: %v\n", err)
		}
	}

	return nil
}

func printReport(report *ingest.Report) {
	fmt.Println("\nCollection Statistics:")
	fmt.Printf("Total Posts: %d\n", report.TotalPosts)
	fmt.Printf("Total Replies: %d\n", report.TotalReplies)
	fmt.Printf("Total Items: %d\n", report.TotalItems())

	fmt.Println("\nTop Locations:")
	for _, lc := range report.TopLocations {
		fmt.Printf("  %s: %d items\n", lc.Value, lc.Count)
	}

	fmt.Println("\nTop Channels:")
	for _, cc := range report.TopChannels {
		fmt.Printf("  %s: %d items\n", cc.Value, cc.Count)
	}
}

func runServe(port int, csvPath string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if port == 0 {
		port = cfg.Server.Port
	}

	taxonomy := analytics.DefaultTaxonomy()

	if csvPath != "" {
		f, err := os.Open(csvPath)
		if err != nil {
			return fmt.Errorf("open dataset %s: %w", csvPath, err)
		}
		rows, err := analytics.ReadCSV(f)
		f.Close()
		if err != nil {
			return fmt.Errorf("load dataset %s: %w", csvPath, err)
		}

		srv := server.New(nil, taxonomy, cfg.Places, port)
		srv.SetSnapshot(rows)
		return srv.ListenAndServe()
	}

	db, err := store.New(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer db.Close()

	srv := server.New(db, taxonomy, cfg.Places, port)
	if err := srv.Refresh(context.Background()); err != nil {
		return err
	}
	return srv.ListenAndServe()
}

func runStats() error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	db, err := store.New(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer db.Close()

	report, err := ingest.BuildReport(context.Background(), db)
	if err != nil {
		return fmt.Errorf("build report: %w", err)
	}
	printReport(report)
	return nil
}

func runExport(out string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	db, err := store.New(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer db.Close()

	records, err := db.ListRecords(context.Background(), store.ListOpts{})
	if err != nil {
		return fmt.Errorf("list records: %w", err)
	}

	rows := analytics.BuildSnapshot(records,
		analytics.DefaultTaxonomy(), cfg.Places, analytics.NewSentimentAnalyzer())

	f, err := os.Create(out)
	if err != nil {
		return fmt.Errorf("create %s: %w", out, err)
	}
	defer f.Close()

	if err := analytics.WriteCSV(f, rows); err != nil {
		return fmt.Errorf("write %s: %w", out, err)
	}

	fmt.Fprintf(os.Stderr, "exported %d rows to %s\n", len(rows), out)
	return nil
}

func runDaemon(port int) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if port == 0 {
		port = cfg.Server.Port
	}

	db, err := store.New(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer db.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	reddit, err := connectReddit(ctx, cfg)
	if err != nil {
		return err
	}

	srv := server.New(db, analytics.DefaultTaxonomy(), cfg.Places, port)
	runner := buildRunner(cfg, db, reddit, 0)
	sched := scheduler.New(runner, db, srv, buildAlertManager(cfg), cfg.Schedule.ParseScrapeInterval())

	go func() {
		if err := sched.Run(ctx); err != nil && ctx.Err() == nil {
			fmt.Fprintf(os.Stderr, "scheduler error: %v\n", err)
		}
	}()

	if err := srv.Refresh(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "initial snapshot error: %v\n", err)
	}
	return srv.ListenAndServe()
}
