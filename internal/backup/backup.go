// Package backup exports the whole record store to a versioned JSON document,
// restores it, and keeps an automatic snapshot outside the main database.
package backup

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/meltforce/liftlog/internal/models"
	"github.com/meltforce/liftlog/internal/storage"
	"github.com/meltforce/liftlog/internal/telemetry"
)

// Version is the only document version this build reads and writes.
const Version = 1

var (
	// ErrEmptyBackup is returned for empty input.
	ErrEmptyBackup = errors.New("backup file is empty")
	// ErrUnsupportedVersion is returned for documents with a version other than Version.
	ErrUnsupportedVersion = errors.New("unsupported backup version")
	// ErrNoSnapshot is returned when no automatic snapshot has been saved yet.
	ErrNoSnapshot = errors.New("no local backup found")
)

// Document is the backup file format.
type Document struct {
	Version           int                       `json:"version"`
	ExportedAt        time.Time                 `json:"exportedAt"`
	Exercises         []models.Exercise         `json:"exercises"`
	WorkoutTemplates  []models.WorkoutTemplate  `json:"workoutTemplates"`
	TemplateParts     []models.TemplatePart     `json:"templateParts"`
	TemplateExercises []models.TemplateExercise `json:"templateExercises"`
	WorkoutSessions   []models.WorkoutSession   `json:"workoutSessions"`
	WorkoutSets       []models.WorkoutSet       `json:"workoutSets"`
	UserPreferences   []models.UserPreferences  `json:"userPreferences"`
}

// Result reports the outcome of an import or restore. Orphans counts rows
// dropped because their parent row was missing from the document.
type Result struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
	Orphans int    `json:"orphans,omitempty"`
}

// message is the text shown to users for a failed import.
func message(err error) string {
	switch {
	case errors.Is(err, ErrUnsupportedVersion):
		return "Unsupported backup version"
	case errors.Is(err, ErrNoSnapshot):
		return "No local backup found"
	default:
		return err.Error()
	}
}

func failed(err error) Result {
	return Result{Error: message(err)}
}

// FileName returns the conventional file name for a backup taken on t.
func FileName(t time.Time) string {
	return "workout-backup-" + t.Format(time.DateOnly) + ".json"
}

// Service exports and imports the record store.
type Service struct {
	db      *storage.DB
	slot    *Slot
	metrics *telemetry.Metrics
	log     *slog.Logger
	now     func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithMetrics counts imports and restores.
func WithMetrics(m *telemetry.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// New creates a Service. slot may be nil, which disables snapshots.
func New(db *storage.DB, slot *Slot, log *slog.Logger, opts ...Option) *Service {
	s := &Service{db: db, slot: slot, log: log, now: time.Now}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Export reads all seven tables in one transaction.
func (s *Service) Export(ctx context.Context) (*Document, error) {
	doc := &Document{Version: Version, ExportedAt: s.now().UTC()}
	err := s.db.WithTx(ctx, func(tx *storage.Tx) error {
		var err error
		if doc.Exercises, err = tx.ListExercises(ctx); err != nil {
			return err
		}
		if doc.WorkoutTemplates, err = tx.ListTemplates(ctx); err != nil {
			return err
		}
		if doc.TemplateParts, err = tx.ListParts(ctx); err != nil {
			return err
		}
		if doc.TemplateExercises, err = tx.ListTemplateExercises(ctx); err != nil {
			return err
		}
		if doc.WorkoutSessions, err = tx.ListSessions(ctx); err != nil {
			return err
		}
		if doc.WorkoutSets, err = tx.ListSets(ctx); err != nil {
			return err
		}
		doc.UserPreferences, err = tx.ListPreferences(ctx)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("exporting: %w", err)
	}
	doc.normalize()
	return doc, nil
}

// normalize replaces nil tables with empty ones so they encode as [].
func (d *Document) normalize() {
	d.Exercises = orEmpty(d.Exercises)
	d.WorkoutTemplates = orEmpty(d.WorkoutTemplates)
	d.TemplateParts = orEmpty(d.TemplateParts)
	d.TemplateExercises = orEmpty(d.TemplateExercises)
	d.WorkoutSessions = orEmpty(d.WorkoutSessions)
	d.WorkoutSets = orEmpty(d.WorkoutSets)
	d.UserPreferences = orEmpty(d.UserPreferences)
}

func orEmpty[T any](v []T) []T {
	if v == nil {
		return []T{}
	}
	return v
}

// WriteFile exports the store to dir under FileName and returns the path.
func (s *Service) WriteFile(ctx context.Context, dir string) (string, error) {
	doc, err := s.Export(ctx)
	if err != nil {
		return "", err
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encoding backup: %w", err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating backup dir %s: %w", dir, err)
	}
	path := filepath.Join(dir, FileName(doc.ExportedAt))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("writing backup: %w", err)
	}
	s.log.Info("backup written", "path", path, "sessions", len(doc.WorkoutSessions), "sets", len(doc.WorkoutSets))
	return path, nil
}

// Parse decodes and validates a backup document without touching the store.
func Parse(raw []byte) (*Document, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, ErrEmptyBackup
	}
	var doc Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parsing backup: %w", err)
	}
	if doc.Version != Version {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, doc.Version)
	}
	return &doc, nil
}

// Import replaces the store's contents with a backup document. Invalid input
// is rejected before anything is written.
func (s *Service) Import(ctx context.Context, raw []byte) Result {
	doc, err := Parse(raw)
	var orphans int
	if err == nil {
		orphans, err = s.ImportDocument(ctx, doc)
	}
	return s.finish("file", orphans, err)
}

func (s *Service) finish(source string, orphans int, err error) Result {
	s.metrics.ImportFinished(source, err == nil)
	if err != nil {
		s.log.Warn("import failed", "source", source, "error", err)
		return failed(err)
	}
	s.log.Info("import finished", "source", source, "orphans", orphans)
	return Result{Success: true, Orphans: orphans}
}

// dropOrphans removes parts without their template, template exercises
// without their part and sets without their session. It returns how many
// rows were removed.
func (d *Document) dropOrphans() int {
	templates := make(map[int64]bool, len(d.WorkoutTemplates))
	for _, t := range d.WorkoutTemplates {
		templates[t.ID] = true
	}
	parts := make(map[int64]bool, len(d.TemplateParts))
	keptParts := d.TemplateParts[:0]
	for _, p := range d.TemplateParts {
		if templates[p.TemplateID] {
			parts[p.ID] = true
			keptParts = append(keptParts, p)
		}
	}
	sessions := make(map[int64]bool, len(d.WorkoutSessions))
	for _, s := range d.WorkoutSessions {
		sessions[s.ID] = true
	}

	dropped := len(d.TemplateParts) - len(keptParts)
	d.TemplateParts = keptParts

	keptExercises := d.TemplateExercises[:0]
	for _, te := range d.TemplateExercises {
		if parts[te.PartID] {
			keptExercises = append(keptExercises, te)
		}
	}
	dropped += len(d.TemplateExercises) - len(keptExercises)
	d.TemplateExercises = keptExercises

	keptSets := d.WorkoutSets[:0]
	for _, set := range d.WorkoutSets {
		if sessions[set.SessionID] {
			keptSets = append(keptSets, set)
		}
	}
	dropped += len(d.WorkoutSets) - len(keptSets)
	d.WorkoutSets = keptSets
	return dropped
}

// ImportDocument clears all seven tables and inserts the document's rows with
// their original ids in a single transaction. Rows whose parent is missing
// from the document are dropped and counted rather than failing the import.
func (s *Service) ImportDocument(ctx context.Context, doc *Document) (int, error) {
	if doc.Version != Version {
		return 0, fmt.Errorf("%w: %d", ErrUnsupportedVersion, doc.Version)
	}
	orphans := doc.dropOrphans()
	if orphans > 0 {
		s.log.Warn("dropping rows with missing parents", "rows", orphans)
	}
	err := s.db.WithTx(ctx, func(tx *storage.Tx) error {
		if err := tx.ClearAll(ctx); err != nil {
			return err
		}
		for i := range doc.Exercises {
			if err := tx.InsertExercise(ctx, &doc.Exercises[i]); err != nil {
				return err
			}
		}
		for i := range doc.WorkoutTemplates {
			if err := tx.InsertTemplate(ctx, &doc.WorkoutTemplates[i]); err != nil {
				return err
			}
		}
		for i := range doc.TemplateParts {
			if err := tx.InsertPart(ctx, &doc.TemplateParts[i]); err != nil {
				return err
			}
		}
		for i := range doc.TemplateExercises {
			if err := tx.InsertTemplateExercise(ctx, &doc.TemplateExercises[i]); err != nil {
				return err
			}
		}
		for i := range doc.WorkoutSessions {
			if err := tx.InsertSession(ctx, &doc.WorkoutSessions[i]); err != nil {
				return err
			}
		}
		for i := range doc.WorkoutSets {
			if err := tx.InsertSet(ctx, &doc.WorkoutSets[i]); err != nil {
				return err
			}
		}
		for i := range doc.UserPreferences {
			if err := tx.SavePreferences(ctx, &doc.UserPreferences[i]); err != nil {
				return err
			}
		}
		return tx.ResetSequences(ctx)
	})
	if err != nil {
		return 0, fmt.Errorf("importing backup: %w", err)
	}
	return orphans, nil
}
