package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"

	"github.com/atlaswatch/atlaswatch/internal/analytics"
	"github.com/atlaswatch/atlaswatch/internal/config"
	"github.com/atlaswatch/atlaswatch/internal/store"
)

// Server exposes the analytics API over a loaded dataset snapshot. The
// snapshot is immutable between refreshes; every request recomputes its
// aggregates over the filtered view, no incremental state.
type Server struct {
	store     store.Store
	taxonomy  analytics.Taxonomy
	places    []config.Place
	sentiment *analytics.SentimentAnalyzer
	port      int

	mu   sync.RWMutex
	rows []analytics.Row
}

// New creates a new analytics server.
func New(st store.Store, taxonomy analytics.Taxonomy, places []config.Place, port int) *Server {
	if port == 0 {
		port = 8080
	}
	return &Server{
		store:     st,
		taxonomy:  taxonomy,
		places:    places,
		sentiment: analytics.NewSentimentAnalyzer(),
		port:      port,
	}
}

// Refresh rebuilds the snapshot from the store.
func (s *Server) Refresh(ctx context.Context) error {
	if s.store == nil {
		return fmt.Errorf("refresh snapshot: no store configured")
	}

	records, err := s.store.ListRecords(ctx, store.ListOpts{})
	if err != nil {
		return fmt.Errorf("refresh snapshot: %w", err)
	}

	rows := analytics.BuildSnapshot(records, s.taxonomy, s.places, s.sentiment)

	s.mu.Lock()
	s.rows = rows
	s.mu.Unlock()

	slog.Info("[Server] snapshot refreshed", slog.Int("rows", len(rows)))
	return nil
}

// SetSnapshot replaces the snapshot directly. Used by tests and the CSV path.
func (s *Server) SetSnapshot(rows []analytics.Row) {
	s.mu.Lock()
	s.rows = rows
	s.mu.Unlock()
}

func (s *Server) snapshot() []analytics.Row {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.rows
}

// Handler returns the HTTP handler with all routes registered.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/api/v1/stats", s.handleStats)
	mux.HandleFunc("/api/v1/locations", s.handleLocations)
	mux.HandleFunc("/api/v1/themes", s.handleThemes)
	mux.HandleFunc("/api/v1/sentiments", s.handleSentiments)
	mux.HandleFunc("/api/v1/keywords", s.handleKeywords)
	mux.HandleFunc("/api/v1/map", s.handleMap)
	mux.HandleFunc("/api/v1/feed", s.handleFeed)
	mux.HandleFunc("/api/v1/refresh", s.handleRefresh)
	return mux
}

// ListenAndServe starts the HTTP server.
func (s *Server) ListenAndServe() error {
	addr := fmt.Sprintf(":%d", s.port)
	slog.Info("[Server] listening", slog.String("addr", addr))
	return http.ListenAndServe(addr, s.Handler())
}

// filterFromQuery builds the conjunctive filter from query params. Absent
// params pass everything.
func filterFromQuery(r *http.Request) analytics.Filter {
	return analytics.Filter{
		LieuTypes:  splitParam(r.URL.Query().Get("lieu_type")),
		Cities:     splitParam(r.URL.Query().Get("cities")),
		Themes:     splitParam(r.URL.Query().Get("themes")),
		Sentiments: splitParam(r.URL.Query().Get("sentiments")),
	}
}

func splitParam(raw string) []string {
	if raw == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func intParam(r *http.Request, name string, fallback int) int {
	v := r.URL.Query().Get(name)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return fallback
	}
	return n
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	rows := filterFromQuery(r).Apply(s.snapshot())

	writeJSON(w, http.StatusOK, map[string]any{
		"messages":        len(rows),
		"unique_villes":   analytics.UniqueCities(rows, "Ville"),
		"unique_villages": analytics.UniqueCities(rows, "Village"),
	})
}

func (s *Server) handleLocations(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	rows := filterFromQuery(r).Apply(s.snapshot())
	counts := analytics.CountByLocation(rows)

	if limit := intParam(r, "limit", 10); limit > 0 && len(counts) > limit {
		counts = counts[:limit]
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": counts, "count": len(counts)})
}

func (s *Server) handleThemes(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	rows := filterFromQuery(r).Apply(s.snapshot())
	writeJSON(w, http.StatusOK, map[string]any{
		"data":   analytics.CountByTheme(rows),
		"themes": s.taxonomy.Names(),
	})
}

func (s *Server) handleSentiments(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	rows := filterFromQuery(r).Apply(s.snapshot())
	writeJSON(w, http.StatusOK, map[string]any{
		"data":   analytics.CountBySentiment(rows),
		"labels": analytics.SentimentLabels(),
	})
}

func (s *Server) handleKeywords(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}

	filter := filterFromQuery(r)
	if len(filter.Themes) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "themes param required"})
		return
	}

	rows := filter.Apply(s.snapshot())
	limit := intParam(r, "limit", 10)
	counts := analytics.KeywordOccurrences(rows, s.taxonomy, filter.Themes, limit)
	writeJSON(w, http.StatusOK, map[string]any{"data": counts, "count": len(counts)})
}

func (s *Server) handleMap(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	rows := filterFromQuery(r).Apply(s.snapshot())
	markers := analytics.MapMarkers(rows)
	writeJSON(w, http.StatusOK, map[string]any{"data": markers, "count": len(markers)})
}

func (s *Server) handleFeed(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	rows := filterFromQuery(r).Apply(s.snapshot())

	offset := intParam(r, "offset", 0)
	limit := intParam(r, "limit", 5)
	total := len(rows)

	if offset > total {
		offset = total
	}
	end := offset + limit
	if end > total {
		end = total
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"data":   rows[offset:end],
		"offset": offset,
		"limit":  limit,
		"total":  total,
	})
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	if err := s.Refresh(r.Context()); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"rows": len(s.snapshot())})
}

func methodNotAllowed(w http.ResponseWriter) {
	writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
