// Package storagetest opens throwaway SQLite databases for tests.
package storagetest

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/meltforce/liftlog/internal/storage"
)

// New returns a migrated SQLite database in t.TempDir(), closed on cleanup.
func New(t *testing.T) *storage.DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "liftlog.db")
	if err := storage.RunMigrations(storage.SQLite, path); err != nil {
		t.Fatalf("running migrations: %v", err)
	}
	db, err := storage.Open(context.Background(), storage.SQLite, path, Logger())
	if err != nil {
		t.Fatalf("opening db: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

// Logger discards output.
func Logger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
