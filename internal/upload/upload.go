// Package upload pushes the local workout log to a remote LiftLog server.
package upload

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/meltforce/liftlog/internal/backup"
)

// Stats reports what a push did.
type Stats struct {
	Sessions int
	Sets     int
	Bytes    int
	Hash     string
	Skipped  bool // the server already has this exact data
	Pushed   bool
}

// Uploader exports the local store and sends it to one server.
type Uploader struct {
	client *Client
	state  *StateDB
	backup *backup.Service
	server string
	dryRun bool
	force  bool
	log    *slog.Logger
}

// New creates a new Uploader. client may be nil in dry-run mode.
func New(client *Client, state *StateDB, svc *backup.Service, dryRun, force bool, log *slog.Logger) *Uploader {
	u := &Uploader{
		client: client,
		state:  state,
		backup: svc,
		dryRun: dryRun,
		force:  force,
		log:    log,
	}
	if client != nil {
		u.server = client.serverURL
	}
	return u
}

// contentHash hashes a document without its export timestamp so that an
// unchanged store hashes the same on every run.
func contentHash(doc *backup.Document) (string, error) {
	c := *doc
	c.ExportedAt = time.Time{}
	data, err := json.Marshal(&c)
	if err != nil {
		return "", fmt.Errorf("encoding backup for hashing: %w", err)
	}
	return HashBytes(data), nil
}

// Run executes the push.
func (u *Uploader) Run(ctx context.Context) (*Stats, error) {
	doc, err := u.backup.Export(ctx)
	if err != nil {
		return nil, fmt.Errorf("exporting: %w", err)
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("encoding backup: %w", err)
	}
	hash, err := contentHash(doc)
	if err != nil {
		return nil, err
	}
	stats := &Stats{
		Sessions: len(doc.WorkoutSessions),
		Sets:     len(doc.WorkoutSets),
		Bytes:    len(data),
		Hash:     hash,
	}

	if u.dryRun {
		u.log.Info("dry run: not pushing", "sessions", stats.Sessions, "sets", stats.Sets, "bytes", stats.Bytes)
		return stats, nil
	}

	if !u.force {
		pushed, err := u.state.IsPushed(u.server, hash)
		if err != nil {
			return stats, fmt.Errorf("checking push state: %w", err)
		}
		if pushed {
			stats.Skipped = true
			u.log.Info("server already up to date", "server", u.server)
			return stats, nil
		}
	}

	if err := u.client.PushBackup(ctx, data); err != nil {
		return stats, fmt.Errorf("pushing to %s: %w", u.server, err)
	}
	stats.Pushed = true

	if err := u.state.MarkPushed(u.server, hash, stats.Sessions, stats.Sets); err != nil {
		u.log.Warn("failed to record push state", "error", err)
	}
	u.log.Info("backup pushed", "server", u.server, "sessions", stats.Sessions, "sets", stats.Sets)
	return stats, nil
}
