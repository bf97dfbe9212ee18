package upload

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/multierr"
	_ "modernc.org/sqlite"
)

// StateDB tracks which backups have been pushed to which servers to avoid re-sending.
type StateDB struct {
	db *sql.DB
}

// OpenStateDB opens (or creates) the SQLite state database at dir/state.db.
func OpenStateDB(dir string) (*StateDB, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating state dir %s: %w", dir, err)
	}

	dbPath := filepath.Join(dir, "state.db")
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening state db: %w", err)
	}

	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS pushed_backups (
		server    TEXT PRIMARY KEY,
		hash      TEXT NOT NULL,
		sessions  INTEGER NOT NULL,
		sets      INTEGER NOT NULL,
		pushed_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	)`)
	if err != nil {
		return nil, multierr.Append(fmt.Errorf("creating state table: %w", err), db.Close())
	}

	return &StateDB{db: db}, nil
}

// IsPushed reports whether the last backup pushed to server had this hash.
func (s *StateDB) IsPushed(server, hash string) (bool, error) {
	var count int
	err := s.db.QueryRow(
		`SELECT COUNT(*) FROM pushed_backups WHERE server = ? AND hash = ?`,
		server, hash,
	).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// MarkPushed records the latest backup pushed to server.
func (s *StateDB) MarkPushed(server, hash string, sessions, sets int) error {
	_, err := s.db.Exec(
		`INSERT OR REPLACE INTO pushed_backups (server, hash, sessions, sets) VALUES (?, ?, ?, ?)`,
		server, hash, sessions, sets,
	)
	return err
}

// Close closes the state database.
func (s *StateDB) Close() error {
	return s.db.Close()
}

// HashBytes computes the SHA-256 hash of data.
func HashBytes(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}
