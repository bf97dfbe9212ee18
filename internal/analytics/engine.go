package analytics

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/meltforce/liftlog/internal/models"
	"github.com/meltforce/liftlog/internal/storage"
	"golang.org/x/sync/errgroup"
)

// Engine computes statistics from the current contents of the store. It keeps
// no state between calls.
type Engine struct {
	db  *storage.DB
	log *slog.Logger
	now func() time.Time
	loc *time.Location

	plateau int
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithLocation sets the zone used for calendar dates and week boundaries.
func WithLocation(loc *time.Location) Option {
	return func(e *Engine) { e.loc = loc }
}

// WithPlateauThreshold sets the stalled-session count used when a caller
// passes no threshold and for the dashboard.
func WithPlateauThreshold(n int) Option {
	return func(e *Engine) { e.plateau = n }
}

// NewEngine creates an Engine using the local zone.
func NewEngine(db *storage.DB, log *slog.Logger, opts ...Option) *Engine {
	e := &Engine{db: db, log: log, now: time.Now, loc: time.Local, plateau: DefaultPlateauThreshold}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Load reads sessions, sets and exercises.
func (e *Engine) Load(ctx context.Context) (*Dataset, error) {
	var ds Dataset
	var err error
	if ds.Sessions, err = e.db.ListSessions(ctx); err != nil {
		return nil, fmt.Errorf("loading sessions: %w", err)
	}
	if ds.Sets, err = e.db.ListSets(ctx); err != nil {
		return nil, fmt.Errorf("loading sets: %w", err)
	}
	if ds.Exercises, err = e.db.ListExercises(ctx); err != nil {
		return nil, fmt.Errorf("loading exercises: %w", err)
	}
	return &ds, nil
}

// Exercises returns the exercise catalogue.
func (e *Engine) Exercises(ctx context.Context) ([]models.Exercise, error) {
	return e.db.ListExercises(ctx)
}

// Summaries returns completed session summaries inside the range, most recent first.
func (e *Engine) Summaries(ctx context.Context, r Range) ([]SessionSummary, error) {
	ds, err := e.Load(ctx)
	if err != nil {
		return nil, err
	}
	return FilterByRange(SessionSummaries(ds), r, e.now()), nil
}

// StrengthCurve returns the per-session strength points of one exercise.
func (e *Engine) StrengthCurve(ctx context.Context, exerciseID int64, r Range) ([]StrengthPoint, error) {
	ds, err := e.Load(ctx)
	if err != nil {
		return nil, err
	}
	return StrengthCurve(ds, exerciseID, r, e.now(), e.loc), nil
}

// MoodEnergy returns the mood and energy groupings.
func (e *Engine) MoodEnergy(ctx context.Context) ([]MoodEnergyInsight, error) {
	ds, err := e.Load(ctx)
	if err != nil {
		return nil, err
	}
	return MoodEnergyInsights(ds), nil
}

// Streaks returns the weekly streaks as of now.
func (e *Engine) Streaks(ctx context.Context) (*StreakData, error) {
	ds, err := e.Load(ctx)
	if err != nil {
		return nil, err
	}
	sd := Streaks(ds, e.now(), e.loc)
	return &sd, nil
}

// Plateaus returns plateau alerts for the given threshold. A threshold below
// 1 selects the configured one.
func (e *Engine) Plateaus(ctx context.Context, minStalled int) ([]PlateauAlert, error) {
	ds, err := e.Load(ctx)
	if err != nil {
		return nil, err
	}
	if minStalled < 1 {
		minStalled = e.plateau
	}
	return DetectPlateaus(ds, minStalled), nil
}

// Dashboard is everything the progress page shows.
type Dashboard struct {
	Range          Range               `json:"range"`
	Summaries      []SessionSummary    `json:"summaries"`
	AverageVolume  float64             `json:"averageVolume"`
	Trend          []TrendPoint        `json:"trend"`
	Streaks        StreakData          `json:"streaks"`
	Plateaus       []PlateauAlert      `json:"plateaus"`
	MoodEnergy     []MoodEnergyInsight `json:"moodEnergy"`
	BestMoodEnergy *MoodEnergyInsight  `json:"bestMoodEnergy,omitempty"`
}

// Dashboard loads the dataset once and computes each panel concurrently.
func (e *Engine) Dashboard(ctx context.Context, r Range) (*Dashboard, error) {
	ds, err := e.Load(ctx)
	if err != nil {
		return nil, err
	}
	now := e.now()
	d := &Dashboard{Range: r}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		d.Summaries = FilterByRange(SessionSummaries(ds), r, now)
		d.AverageVolume = AverageVolume(d.Summaries)
		d.Trend = TrendSeries(d.Summaries, e.loc)
		return ctx.Err()
	})
	g.Go(func() error {
		d.Streaks = Streaks(ds, now, e.loc)
		return ctx.Err()
	})
	g.Go(func() error {
		d.Plateaus = DetectPlateaus(ds, e.plateau)
		return ctx.Err()
	})
	g.Go(func() error {
		d.MoodEnergy = MoodEnergyInsights(ds)
		d.BestMoodEnergy = BestMoodEnergy(d.MoodEnergy)
		return ctx.Err()
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("building dashboard: %w", err)
	}
	e.log.Debug("dashboard built", "range", r, "sessions", len(d.Summaries), "plateaus", len(d.Plateaus))
	return d, nil
}
