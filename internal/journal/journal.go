// Package journal records workout sessions and the sets logged in them.
package journal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/meltforce/liftlog/internal/models"
	"github.com/meltforce/liftlog/internal/storage"
	"github.com/meltforce/liftlog/internal/telemetry"
)

var (
	// ErrSessionActive is returned by Start while another session is still open.
	ErrSessionActive = errors.New("a workout session is already active")
	// ErrInvalidRPE is returned for an RPE outside 6-10 or not on a half step.
	ErrInvalidRPE = errors.New("rpe must be between 6 and 10 in steps of 0.5")
	// ErrInvalidRating is returned for a mood or energy outside 1-10.
	ErrInvalidRating = errors.New("mood and energy must be between 1 and 10")
)

// Snapshotter writes the automatic local backup after a workout completes.
type Snapshotter interface {
	SaveSnapshot(ctx context.Context) error
}

const snapshotTimeout = 30 * time.Second

// Journal runs the lifecycle of workout sessions.
type Journal struct {
	db      *storage.DB
	snap    Snapshotter
	metrics *telemetry.Metrics
	log     *slog.Logger
	now     func() time.Time

	wg sync.WaitGroup
}

// Option configures a Journal.
type Option func(*Journal)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(j *Journal) { j.now = now }
}

// WithMetrics records session and snapshot counters.
func WithMetrics(m *telemetry.Metrics) Option {
	return func(j *Journal) { j.metrics = m }
}

// New creates a Journal. snap may be nil to disable automatic snapshots.
func New(db *storage.DB, snap Snapshotter, log *slog.Logger, opts ...Option) *Journal {
	j := &Journal{db: db, snap: snap, log: log, now: time.Now}
	for _, o := range opts {
		o(j)
	}
	return j
}

// Start opens a session for a template day. Only one session may be open.
func (j *Journal) Start(ctx context.Context, templateID int64, dayIndex int) (int64, error) {
	var id int64
	err := j.db.WithTx(ctx, func(tx *storage.Tx) error {
		active, err := tx.ActiveSession(ctx)
		if err != nil {
			return err
		}
		if active != nil {
			return fmt.Errorf("%w: session %d", ErrSessionActive, active.ID)
		}
		s := models.WorkoutSession{
			TemplateID: templateID,
			DayIndex:   dayIndex,
			StartedAt:  j.now(),
		}
		if err := tx.InsertSession(ctx, &s); err != nil {
			return err
		}
		id = s.ID
		return nil
	})
	if err != nil {
		return 0, err
	}
	j.metrics.SessionStarted()
	j.log.Info("session started", "session_id", id, "template_id", templateID, "day", dayIndex)
	return id, nil
}

// SetDetails carries the optional fields of a logged set.
type SetDetails struct {
	TemplateExerciseID *int64   `json:"templateExerciseId,omitempty"`
	RPE                *float64 `json:"rpe,omitempty"`
	PartialsCount      *int     `json:"partialsCount,omitempty"`
	DropSetWeight      *float64 `json:"dropSetWeight,omitempty"`
	DropSetReps        *int     `json:"dropSetReps,omitempty"`
	ForcedRepsCount    *int     `json:"forcedRepsCount,omitempty"`
	IsPausedReps       *bool    `json:"isPausedReps,omitempty"`
}

// ValidRPE reports whether r is 6-10 in steps of 0.5.
func ValidRPE(r float64) bool {
	return r >= 6 && r <= 10 && r*2 == math.Trunc(r*2)
}

func checkRPE(r *float64) error {
	if r != nil && !ValidRPE(*r) {
		return fmt.Errorf("%w: got %v", ErrInvalidRPE, *r)
	}
	return nil
}

// LogSet appends a set. The set number is one more than the sets already
// logged for the exercise in this session. Weight and reps are stored as given.
func (j *Journal) LogSet(ctx context.Context, sessionID, exerciseID int64, weight float64, reps int, d SetDetails) (int64, error) {
	if err := checkRPE(d.RPE); err != nil {
		return 0, err
	}
	var id int64
	err := j.db.WithTx(ctx, func(tx *storage.Tx) error {
		if _, err := tx.GetSession(ctx, sessionID); err != nil {
			return err
		}
		n, err := tx.CountSetsForExercise(ctx, sessionID, exerciseID)
		if err != nil {
			return err
		}
		s := models.WorkoutSet{
			SessionID:          sessionID,
			ExerciseID:         exerciseID,
			TemplateExerciseID: d.TemplateExerciseID,
			SetNumber:          n + 1,
			Weight:             weight,
			Reps:               reps,
			RPE:                d.RPE,
			PartialsCount:      d.PartialsCount,
			DropSetWeight:      d.DropSetWeight,
			DropSetReps:        d.DropSetReps,
			ForcedRepsCount:    d.ForcedRepsCount,
			IsPausedReps:       d.IsPausedReps,
			CompletedAt:        j.now(),
		}
		if err := tx.InsertSet(ctx, &s); err != nil {
			return err
		}
		id = s.ID
		return nil
	})
	if err != nil {
		return 0, err
	}
	j.metrics.SetLogged()
	return id, nil
}

// SetUpdate lists the editable fields of a set. Nil fields are left alone.
type SetUpdate struct {
	Weight *float64 `json:"weight,omitempty"`
	Reps   *int     `json:"reps,omitempty"`
	RPE    *float64 `json:"rpe,omitempty"`
}

// UpdateSet applies a partial edit. Unknown ids return storage.ErrNotFound.
func (j *Journal) UpdateSet(ctx context.Context, setID int64, u SetUpdate) error {
	if err := checkRPE(u.RPE); err != nil {
		return err
	}
	return j.db.WithTx(ctx, func(tx *storage.Tx) error {
		s, err := tx.GetSet(ctx, setID)
		if err != nil {
			return err
		}
		if u.Weight != nil {
			s.Weight = *u.Weight
		}
		if u.Reps != nil {
			s.Reps = *u.Reps
		}
		if u.RPE != nil {
			s.RPE = u.RPE
		}
		return tx.UpdateSet(ctx, *s)
	})
}

// DeleteSet removes a set. Deleting a missing set is not an error.
func (j *Journal) DeleteSet(ctx context.Context, setID int64) error {
	return j.db.DeleteSet(ctx, setID)
}

// Complete stamps the session as finished and schedules the automatic
// snapshot in the background. Snapshot failures are logged and counted only.
func (j *Journal) Complete(ctx context.Context, sessionID int64) error {
	if err := j.db.CompleteSession(ctx, sessionID, j.now()); err != nil {
		return err
	}
	j.metrics.SessionCompleted()
	j.log.Info("session completed", "session_id", sessionID)

	if j.snap == nil {
		return nil
	}
	j.wg.Add(1)
	go func() {
		defer j.wg.Done()
		sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), snapshotTimeout)
		defer cancel()
		if err := j.snap.SaveSnapshot(sctx); err != nil {
			j.metrics.SnapshotFailed()
			j.log.Warn("auto-backup failed", "session_id", sessionID, "error", err)
			return
		}
		j.metrics.SnapshotSaved()
	}()
	return nil
}

// Wait blocks until scheduled snapshots have finished.
func (j *Journal) Wait() {
	j.wg.Wait()
}

// RecordMoodEnergy stores the post-workout ratings and optional notes.
func (j *Journal) RecordMoodEnergy(ctx context.Context, sessionID int64, mood, energy int, notes string) error {
	if mood < 1 || mood > 10 || energy < 1 || energy > 10 {
		return fmt.Errorf("%w: mood %d, energy %d", ErrInvalidRating, mood, energy)
	}
	var n *string
	if notes != "" {
		n = &notes
	}
	return j.db.RateSession(ctx, sessionID, mood, energy, n)
}

// Cancel deletes a session's sets and then the session in one transaction.
func (j *Journal) Cancel(ctx context.Context, sessionID int64) error {
	err := j.db.WithTx(ctx, func(tx *storage.Tx) error {
		return tx.DeleteSession(ctx, sessionID)
	})
	if err != nil {
		return err
	}
	j.log.Info("session cancelled", "session_id", sessionID)
	return nil
}

// Active returns the open session, or nil.
func (j *Journal) Active(ctx context.Context) (*models.WorkoutSession, error) {
	return j.db.ActiveSession(ctx)
}

// Sets returns the sets of a session in logging order.
func (j *Journal) Sets(ctx context.Context, sessionID int64) ([]models.WorkoutSet, error) {
	return j.db.SetsBySession(ctx, sessionID)
}

// PreviousSets returns the sets of the last completed session of the same
// template day, or nil when there is none.
func (j *Journal) PreviousSets(ctx context.Context, templateID int64, dayIndex int) ([]models.WorkoutSet, error) {
	prev, err := j.db.LatestCompletedSession(ctx, templateID, dayIndex)
	if err != nil || prev == nil {
		return nil, err
	}
	return j.db.SetsBySession(ctx, prev.ID)
}

// History is an exercise's logged sets, most recent first, with the set of
// highest weight × reps.
type History struct {
	Sets    []models.WorkoutSet `json:"sets"`
	BestSet *models.WorkoutSet  `json:"bestSet"`
}

// ExerciseHistory returns every set of an exercise. BestSet is the first
// (most recent) set with the strictly highest volume, or nil when no set has
// positive volume.
func (j *Journal) ExerciseHistory(ctx context.Context, exerciseID int64) (*History, error) {
	sets, err := j.db.SetsByExercise(ctx, exerciseID)
	if err != nil {
		return nil, err
	}
	h := &History{Sets: sets}
	best := 0.0
	for i := range sets {
		if v := sets[i].Volume(); v > best {
			best = v
			h.BestSet = &sets[i]
		}
	}
	return h, nil
}
