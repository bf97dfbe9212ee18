// Package app assembles the record store and the services built on it.
package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/meltforce/liftlog/internal/analytics"
	"github.com/meltforce/liftlog/internal/backup"
	"github.com/meltforce/liftlog/internal/config"
	"github.com/meltforce/liftlog/internal/ingest/alpha"
	"github.com/meltforce/liftlog/internal/journal"
	"github.com/meltforce/liftlog/internal/live"
	"github.com/meltforce/liftlog/internal/planedit"
	"github.com/meltforce/liftlog/internal/seed"
	"github.com/meltforce/liftlog/internal/storage"
	"github.com/meltforce/liftlog/internal/telemetry"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/multierr"
)

// App holds the opened store and every service wired to it.
type App struct {
	DB       *storage.DB
	Hub      *live.Hub
	Backup   *backup.Service
	Alpha    *alpha.Provider
	Journal  *journal.Journal
	Editor   *planedit.Editor
	Engine   *analytics.Engine
	Metrics  *telemetry.Metrics
	Registry *prometheus.Registry
	Log      *slog.Logger

	slot *backup.Slot
}

// Migrate applies pending schema migrations.
func Migrate(cfg *config.Config) error {
	return storage.RunMigrations(storage.Driver(cfg.Database.Driver), cfg.Database.DSN())
}

// Open migrates and connects the database, seeds the catalogue and builds
// the services.
func Open(ctx context.Context, cfg *config.Config, log *slog.Logger) (*App, error) {
	loc, err := cfg.Analytics.Location()
	if err != nil {
		return nil, fmt.Errorf("loading timezone: %w", err)
	}

	if err := Migrate(cfg); err != nil {
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	log.Info("migrations applied")

	db, err := storage.Open(ctx, storage.Driver(cfg.Database.Driver), cfg.Database.DSN(), log)
	if err != nil {
		return nil, fmt.Errorf("connecting database: %w", err)
	}
	log.Info("database connected", "driver", cfg.Database.Driver)

	cat, err := seed.LoadCatalog()
	if err != nil {
		return nil, multierr.Append(fmt.Errorf("loading catalogue: %w", err), db.Close())
	}
	res, err := seed.Seed(ctx, db, cat, log)
	if err != nil {
		return nil, multierr.Append(err, db.Close())
	}
	if !res.UpToDate {
		log.Info("catalogue seeded", "exercises", res.ExercisesSeeded, "templates", res.TemplatesSeeded, "updated", res.TemplatesUpdated)
	}

	slot, err := backup.OpenSlot(cfg.Backup.SnapshotPath)
	if err != nil {
		return nil, multierr.Append(fmt.Errorf("opening snapshot slot: %w", err), db.Close())
	}

	hub := live.NewHub()
	db.SetNotifier(hub)

	reg := telemetry.SetupPrometheus()
	m := telemetry.NewMetrics(reg)
	svc := backup.New(db, slot, log, backup.WithMetrics(m))

	return &App{
		DB:       db,
		Hub:      hub,
		Backup:   svc,
		Alpha:    alpha.NewProvider(db, loc, log),
		Journal:  journal.New(db, svc, log, journal.WithMetrics(m)),
		Editor:   planedit.New(db, log, planedit.WithMetrics(m)),
		Engine:   analytics.NewEngine(db, log, analytics.WithLocation(loc), analytics.WithPlateauThreshold(cfg.Analytics.PlateauThreshold)),
		Metrics:  m,
		Registry: reg,
		Log:      log,
		slot:     slot,
	}, nil
}

// Close waits for pending snapshots, then closes the slot and the database.
func (a *App) Close() error {
	a.Journal.Wait()
	return multierr.Combine(a.slot.Close(), a.DB.Close())
}
