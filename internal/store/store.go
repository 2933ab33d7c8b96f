package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

// ErrDuplicateID is returned by Insert when a record with the same id already
// exists. Records are inserted at most once and never overwritten.
var ErrDuplicateID = errors.New("store: duplicate record id")

// Record is one scraped post or reply, flattened. A reply carries the id
// "<parent_id>_<reply_id>" and shares the parent's query and location.
type Record struct {
	ID            string    `db:"id" json:"id"`
	Query         string    `db:"query" json:"query"`
	Location      string    `db:"location" json:"location"`
	IsReply       bool      `db:"is_reply" json:"is_reply"`
	ParentID      string    `db:"parent_id" json:"parent_id,omitempty"`
	Title         string    `db:"title" json:"title,omitempty"`
	Text          string    `db:"text" json:"text"`
	Score         int       `db:"score" json:"score"`
	Author        string    `db:"author" json:"author"`
	URL           string    `db:"url" json:"url,omitempty"`
	ReplyCount    int       `db:"reply_count" json:"reply_count"`
	SourceChannel string    `db:"source_channel" json:"source_channel"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
	ScrapedAt     time.Time `db:"scraped_at" json:"scraped_at"`
}

// ListOpts controls record listing.
type ListOpts struct {
	Location string
	Channel  string
	Replies  *bool
	Limit    int
}

// FieldCount is one row of a grouping aggregation.
type FieldCount struct {
	Value string `db:"value" json:"value"`
	Count int    `db:"count" json:"count"`
}

// Store is the persistence interface the ingestion and analytics pipelines
// depend on.
type Store interface {
	Exists(ctx context.Context, id string) (bool, error)
	Insert(ctx context.Context, rec *Record) error
	ListRecords(ctx context.Context, opts ListOpts) ([]Record, error)
	CountRecords(ctx context.Context, isReply bool) (int, error)
	CountByField(ctx context.Context, field string, limit int) ([]FieldCount, error)
	Close() error
}

// groupableFields whitelists the columns CountByField may group on.
var groupableFields = map[string]bool{
	"location":       true,
	"source_channel": true,
	"query":          true,
	"author":         true,
}

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sqlx.DB
}

var _ Store = (*SQLiteStore)(nil)

// New opens a SQLite database and runs migrations.
func New(path string) (*SQLiteStore, error) {
	db, err := sqlx.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite %s: %w", path, err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) Exists(ctx context.Context, id string) (bool, error) {
	var one int
	err := s.db.GetContext(ctx, &one, "SELECT 1 FROM records WHERE id = ?", id)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("exists %s: %w", id, err)
	}
	return true, nil
}

// Insert writes one record. It never overwrites: a second insert with the
// same id fails with ErrDuplicateID even if mutable fields changed upstream.
func (s *SQLiteStore) Insert(ctx context.Context, rec *Record) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO records (id, query, location, is_reply, parent_id, title, text,
			score, author, url, reply_count, source_channel, created_at, scraped_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, rec.ID, rec.Query, rec.Location, rec.IsReply, rec.ParentID, rec.Title, rec.Text,
		rec.Score, rec.Author, rec.URL, rec.ReplyCount, rec.SourceChannel,
		rec.CreatedAt, rec.ScrapedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateID
		}
		return fmt.Errorf("insert record %s: %w", rec.ID, err)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func (s *SQLiteStore) ListRecords(ctx context.Context, opts ListOpts) ([]Record, error) {
	b := sq.Select("*").From("records")

	if opts.Location != "" {
		b = b.Where(sq.Eq{"location": opts.Location})
	}
	if opts.Channel != "" {
		b = b.Where(sq.Eq{"source_channel": opts.Channel})
	}
	if opts.Replies != nil {
		b = b.Where(sq.Eq{"is_reply": *opts.Replies})
	}

	b = b.OrderBy("scraped_at DESC")
	if opts.Limit > 0 {
		b = b.Limit(uint64(opts.Limit))
	}

	query, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list query: %w", err)
	}

	var recs []Record
	if err := s.db.SelectContext(ctx, &recs, query, args...); err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	return recs, nil
}

func (s *SQLiteStore) CountRecords(ctx context.Context, isReply bool) (int, error) {
	var n int
	err := s.db.GetContext(ctx, &n,
		"SELECT COUNT(*) FROM records WHERE is_reply = ?", isReply)
	if err != nil {
		return 0, fmt.Errorf("count records: %w", err)
	}
	return n, nil
}

// CountByField runs a group-by-field count, descending, used for the
// end-of-run statistics report.
func (s *SQLiteStore) CountByField(ctx context.Context, field string, limit int) ([]FieldCount, error) {
	if !groupableFields[field] {
		return nil, fmt.Errorf("count by field: %q is not groupable", field)
	}

	b := sq.Select(field+" AS value", "COUNT(*) AS count").
		From("records").
		GroupBy(field).
		OrderBy("count DESC")
	if limit > 0 {
		b = b.Limit(uint64(limit))
	}

	query, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build count query: %w", err)
	}

	var counts []FieldCount
	if err := s.db.SelectContext(ctx, &counts, query, args...); err != nil {
		return nil, fmt.Errorf("count by %s: %w", field, err)
	}
	return counts, nil
}
