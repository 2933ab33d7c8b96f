package alert

import (
	"context"
	"errors"
	"fmt"

	"github.com/atlaswatch/atlaswatch/internal/store"
)

// RunSummary is the scrape-run report sent to alert destinations.
type RunSummary struct {
	Queries       int                `json:"queries"`
	FailedQueries int                `json:"failed_queries"`
	Saved         int                `json:"saved"`
	Duplicates    int                `json:"duplicates"`
	TotalPosts    int                `json:"total_posts"`
	TotalReplies  int                `json:"total_replies"`
	TopLocations  []store.FieldCount `json:"top_locations"`
}

// Notifier delivers run summaries to a specific destination.
type Notifier interface {
	Name() string
	Send(ctx context.Context, s *RunSummary) error
}

// Manager broadcasts run summaries to all registered notifiers.
type Manager struct {
	notifiers []Notifier
}

// NewManager creates a new alert manager.
func NewManager(notifiers []Notifier) *Manager {
	return &Manager{notifiers: notifiers}
}

// HasNotifiers returns true if at least one notifier is configured.
func (m *Manager) HasNotifiers() bool {
	return len(m.notifiers) > 0
}

// Broadcast sends the summary to all registered notifiers.
func (m *Manager) Broadcast(ctx context.Context, s *RunSummary) error {
	var errs []error
	for _, notifier := range m.notifiers {
		if err := notifier.Send(ctx, s); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", notifier.Name(), err))
		}
	}
	return errors.Join(errs...)
}

func summaryLine(s *RunSummary) string {
	return fmt.Sprintf("%d queries (%d failed), %d new records saved, corpus now %d posts / %d replies",
		s.Queries, s.FailedQueries, s.Saved, s.TotalPosts, s.TotalReplies)
}

func topLocationsLine(s *RunSummary) string {
	out := ""
	for i, lc := range s.TopLocations {
		if i > 0 {
			out += ", "
		}
		out += fmt.Sprintf("%s (%d)", lc.Value, lc.Count)
	}
	return out
}
