package journal

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/nerrad567/gray-logic-topology/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-topology/internal/infrastructure/database"
	"github.com/nerrad567/gray-logic-topology/migrations"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	db, err := database.Open(config.DatabaseConfig{
		Path:        filepath.Join(t.TempDir(), "journal.db"),
		BusyTimeout: 5,
	})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { db.Close() }) //nolint:errcheck // Test cleanup

	if err := db.Migrate(context.Background(), migrations.FS); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	return NewSQLiteRepository(db.DB)
}

func TestRecord(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	e := &Entry{Action: ActionSave, Version: "3.1", Checksum: "abc", NodeCount: 8, Host: "core-01"}
	if err := repo.Record(ctx, e); err != nil {
		t.Fatalf("Record() error = %v", err)
	}
	if e.ID == "" || e.CreatedAt.IsZero() {
		t.Errorf("ID/CreatedAt not filled: %+v", e)
	}

	got, err := repo.Latest(ctx, ActionSave)
	if err != nil {
		t.Fatalf("Latest() error = %v", err)
	}
	if got.ID != e.ID || got.Checksum != "abc" || got.NodeCount != 8 || got.Error != "" {
		t.Errorf("Latest() = %+v", got)
	}
	if !got.CreatedAt.Equal(e.CreatedAt.Truncate(time.Microsecond)) {
		t.Errorf("CreatedAt = %v, want %v", got.CreatedAt, e.CreatedAt)
	}
}

func TestRecord_RequiresAction(t *testing.T) {
	repo := newTestRepo(t)
	if err := repo.Record(context.Background(), &Entry{}); err == nil {
		t.Error("Record() expected error for empty action")
	}
}

func TestList(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	base := time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)

	actions := []string{ActionStub, ActionLoad, ActionSave, ActionLoad, ActionReload}
	for i, action := range actions {
		e := &Entry{Action: action, Version: "3.1", CreatedAt: base.Add(time.Duration(i) * time.Minute)}
		if err := repo.Record(ctx, e); err != nil {
			t.Fatal(err)
		}
	}

	tests := []struct {
		name      string
		filter    Filter
		wantTotal int
		wantFirst string
		wantLen   int
	}{
		{"all newest first", Filter{}, 5, ActionReload, 5},
		{"by action", Filter{Action: ActionLoad}, 2, ActionLoad, 2},
		{"paged", Filter{Limit: 2, Offset: 1}, 5, ActionLoad, 2},
		{"limit clamped", Filter{Limit: 1000}, 5, ActionReload, 5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := repo.List(ctx, tt.filter)
			if err != nil {
				t.Fatalf("List() error = %v", err)
			}
			if got.Total != tt.wantTotal || len(got.Entries) != tt.wantLen {
				t.Fatalf("Total = %d, len = %d", got.Total, len(got.Entries))
			}
			if got.Entries[0].Action != tt.wantFirst {
				t.Errorf("first action = %q, want %q", got.Entries[0].Action, tt.wantFirst)
			}
			if got.Limit > maxLimit {
				t.Errorf("Limit = %d", got.Limit)
			}
		})
	}
}

func TestLatest_NotFound(t *testing.T) {
	repo := newTestRepo(t)
	if _, err := repo.Latest(context.Background(), ActionSave); !errors.Is(err, ErrNotFound) {
		t.Errorf("Latest() error = %v, want ErrNotFound", err)
	}
}
