// Package journal records every load, save and stub generation of the
// topology document in the topology_journal table.
package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Actions recorded in the journal.
const (
	ActionLoad   = "load"
	ActionReload = "reload"
	ActionSave   = "save"
	ActionStub   = "stub"
)

// timeLayout is fixed width so created_at sorts lexically.
const timeLayout = "2006-01-02T15:04:05.000000Z07:00"

const (
	defaultLimit = 50
	maxLimit     = 200
)

// ErrNotFound is returned by Latest when no entry matches.
var ErrNotFound = errors.New("journal: entry not found")

// Entry is one journal row.
type Entry struct {
	ID           string    `json:"id"`
	Action       string    `json:"action"`
	Version      string    `json:"version"`
	Checksum     string    `json:"checksum,omitempty"`
	NodeCount    int       `json:"node_count"`
	BuiltCount   int       `json:"built_count"`
	FailedCount  int       `json:"failed_count"`
	SkippedCount int       `json:"skipped_count"`
	Duration     int64     `json:"duration_ms"`
	Host         string    `json:"host,omitempty"`
	Error        string    `json:"error,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// Filter selects journal entries.
type Filter struct {
	Action string // optional
	Limit  int    // default 50, max 200
	Offset int
}

// ListResult is a page of entries, newest first.
type ListResult struct {
	Entries []Entry `json:"entries"`
	Total   int     `json:"total"`
	Limit   int     `json:"limit"`
	Offset  int     `json:"offset"`
}

// Repository stores journal entries.
type Repository interface {
	Record(ctx context.Context, e *Entry) error
	List(ctx context.Context, filter Filter) (*ListResult, error)
	Latest(ctx context.Context, action string) (*Entry, error)
}

// SQLiteRepository is the SQLite Repository.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a repository on db. The topology_journal
// migration must already be applied.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// Record inserts e, filling ID and CreatedAt when empty.
func (r *SQLiteRepository) Record(ctx context.Context, e *Entry) error {
	if e.Action == "" {
		return fmt.Errorf("recording journal entry: action is required")
	}
	if e.ID == "" {
		e.ID = "jnl-" + uuid.NewString()[:8]
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	e.CreatedAt = e.CreatedAt.UTC()

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO topology_journal
		 (id, action, version, checksum, node_count, built_count, failed_count,
		  skipped_count, duration_ms, host, error, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.Action, e.Version, nullable(e.Checksum),
		e.NodeCount, e.BuiltCount, e.FailedCount, e.SkippedCount, e.Duration,
		nullable(e.Host), nullable(e.Error), e.CreatedAt.Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("inserting journal entry: %w", err)
	}
	return nil
}

// List returns entries matching filter, newest first.
func (r *SQLiteRepository) List(ctx context.Context, filter Filter) (*ListResult, error) {
	filter.Limit = min(max(filter.Limit, 0), maxLimit)
	if filter.Limit == 0 {
		filter.Limit = defaultLimit
	}
	filter.Offset = max(filter.Offset, 0)

	where, args := "", []any{}
	if filter.Action != "" {
		where, args = "WHERE action = ?", append(args, filter.Action)
	}

	var total int
	if err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM topology_journal "+where, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("counting journal entries: %w", err)
	}

	entries, err := r.query(ctx,
		where+" ORDER BY created_at DESC, id LIMIT ? OFFSET ?",
		append(args, filter.Limit, filter.Offset)...)
	if err != nil {
		return nil, err
	}
	return &ListResult{Entries: entries, Total: total, Limit: filter.Limit, Offset: filter.Offset}, nil
}

// Latest returns the newest entry for action, or for any action when empty.
func (r *SQLiteRepository) Latest(ctx context.Context, action string) (*Entry, error) {
	result, err := r.List(ctx, Filter{Action: action, Limit: 1})
	if err != nil {
		return nil, err
	}
	if len(result.Entries) == 0 {
		return nil, ErrNotFound
	}
	return &result.Entries[0], nil
}

func (r *SQLiteRepository) query(ctx context.Context, clause string, args ...any) ([]Entry, error) {
	rows, err := r.db.QueryContext(ctx, //nolint:gosec // clause holds placeholders only
		`SELECT id, action, version, checksum, node_count, built_count, failed_count,
		        skipped_count, duration_ms, host, error, created_at
		 FROM topology_journal `+clause, args...)
	if err != nil {
		return nil, fmt.Errorf("querying journal: %w", err)
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		var e Entry
		var checksum, host, errText sql.NullString
		var createdAt string
		if err := rows.Scan(&e.ID, &e.Action, &e.Version, &checksum,
			&e.NodeCount, &e.BuiltCount, &e.FailedCount, &e.SkippedCount, &e.Duration,
			&host, &errText, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning journal entry: %w", err)
		}
		e.Checksum, e.Host, e.Error = checksum.String, host.String, errText.String
		if e.CreatedAt, err = time.Parse(timeLayout, createdAt); err != nil {
			return nil, fmt.Errorf("parsing journal timestamp %q: %w", createdAt, err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating journal: %w", err)
	}
	return entries, nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
