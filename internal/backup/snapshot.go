package backup

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/multierr"
	_ "modernc.org/sqlite"
)

const (
	snapshotKey = "auto-backup"
	metaKey     = "backup-meta"
)

// Slot is a small key-value file that holds the latest automatic snapshot.
// It lives outside the main database so it survives that database being
// cleared or corrupted.
type Slot struct {
	db *sql.DB
}

// OpenSlot opens (or creates) the slot file at path.
func OpenSlot(path string) (*Slot, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating snapshot dir: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening snapshot slot: %w", err)
	}
	db.SetMaxOpenConns(1)

	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS slot (
		key        TEXT PRIMARY KEY,
		value      TEXT NOT NULL,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	)`)
	if err != nil {
		return nil, multierr.Append(fmt.Errorf("creating slot table: %w", err), db.Close())
	}
	return &Slot{db: db}, nil
}

// Close closes the slot file.
func (s *Slot) Close() error {
	return s.db.Close()
}

// put writes all values in one transaction.
func (s *Slot) put(ctx context.Context, values map[string]string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning slot write: %w", err)
	}
	for k, v := range values {
		if _, err := tx.ExecContext(ctx,
			`INSERT OR REPLACE INTO slot (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)`, k, v); err != nil {
			return multierr.Append(fmt.Errorf("writing %s: %w", k, err), tx.Rollback())
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing slot write: %w", err)
	}
	return nil
}

// get returns the value stored under key, or ErrNoSnapshot.
func (s *Slot) get(ctx context.Context, key string) (string, error) {
	var v string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM slot WHERE key = ?`, key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNoSnapshot
	}
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", key, err)
	}
	return v, nil
}

// SnapshotMeta describes the stored snapshot.
type SnapshotMeta struct {
	SavedAt      time.Time `json:"savedAt"`
	SessionCount int       `json:"sessionCount"`
	SetCount     int       `json:"setCount"`
}

// SaveSnapshot exports the store into the slot, replacing the previous snapshot.
func (s *Service) SaveSnapshot(ctx context.Context) error {
	if s.slot == nil {
		return nil
	}
	doc, err := s.Export(ctx)
	if err != nil {
		return err
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encoding snapshot: %w", err)
	}
	meta, err := json.Marshal(SnapshotMeta{
		SavedAt:      doc.ExportedAt,
		SessionCount: len(doc.WorkoutSessions),
		SetCount:     len(doc.WorkoutSets),
	})
	if err != nil {
		return fmt.Errorf("encoding snapshot meta: %w", err)
	}
	if err := s.slot.put(ctx, map[string]string{snapshotKey: string(data), metaKey: string(meta)}); err != nil {
		return fmt.Errorf("saving snapshot: %w", err)
	}
	s.log.Debug("snapshot saved", "sessions", len(doc.WorkoutSessions), "sets", len(doc.WorkoutSets))
	return nil
}

// Meta returns the stored snapshot's metadata, or ErrNoSnapshot.
func (s *Service) Meta(ctx context.Context) (*SnapshotMeta, error) {
	if s.slot == nil {
		return nil, ErrNoSnapshot
	}
	raw, err := s.slot.get(ctx, metaKey)
	if err != nil {
		return nil, err
	}
	var m SnapshotMeta
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		return nil, fmt.Errorf("decoding snapshot meta: %w", err)
	}
	return &m, nil
}

// LoadSnapshot returns the stored snapshot document, or ErrNoSnapshot.
func (s *Service) LoadSnapshot(ctx context.Context) (*Document, error) {
	if s.slot == nil {
		return nil, ErrNoSnapshot
	}
	raw, err := s.slot.get(ctx, snapshotKey)
	if err != nil {
		return nil, err
	}
	return Parse([]byte(raw))
}

// RestoreSnapshot replaces the store's contents with the stored snapshot.
func (s *Service) RestoreSnapshot(ctx context.Context) Result {
	doc, err := s.LoadSnapshot(ctx)
	var orphans int
	if err == nil {
		orphans, err = s.ImportDocument(ctx, doc)
	}
	return s.finish("snapshot", orphans, err)
}
