package alpha

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/meltforce/liftlog/internal/ingest"
	"github.com/meltforce/liftlog/internal/models"
	"github.com/meltforce/liftlog/internal/storage"
)

// ErrMalformed wraps parse failures.
var ErrMalformed = errors.New("malformed Alpha Progression export")

// Provider writes Alpha Progression history into the journal.
type Provider struct {
	db  *storage.DB
	loc *time.Location
	log *slog.Logger
}

// NewProvider creates a new Alpha Progression ingest provider. Export times
// are read in loc.
func NewProvider(db *storage.DB, loc *time.Location, log *slog.Logger) *Provider {
	return &Provider{db: db, loc: loc, log: log}
}

// Ingest parses an export and stores each session as a completed workout in
// one transaction. A session already in the journal with the same start time
// is replaced, so re-importing an export is idempotent. Exercises are matched
// by name (case-insensitive); unknown ones are created as custom exercises.
// Warm-up sets are skipped.
func (p *Provider) Ingest(ctx context.Context, r io.Reader) (*ingest.Result, error) {
	sessions, err := Parse(r, p.loc)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformed, err)
	}

	res := &ingest.Result{SessionsReceived: len(sessions)}
	err = p.db.WithTx(ctx, func(tx *storage.Tx) error {
		exercises, err := tx.ListExercises(ctx)
		if err != nil {
			return err
		}
		byName := make(map[string]int64, len(exercises))
		for _, e := range exercises {
			byName[strings.ToLower(e.Name)] = e.ID
		}
		existing, err := tx.ListSessions(ctx)
		if err != nil {
			return err
		}
		byStart := make(map[int64]int64, len(existing))
		for _, s := range existing {
			byStart[s.StartedAt.Unix()] = s.ID
		}

		for _, s := range sessions {
			if id, ok := byStart[s.Start.Unix()]; ok {
				if err := tx.DeleteSession(ctx, id); err != nil {
					return err
				}
				res.SessionsReplaced++
			}
			id, err := p.insertSession(ctx, tx, s, byName, res)
			if err != nil {
				return fmt.Errorf("session %q on %s: %w", s.Name, s.Start.Format(time.DateOnly), err)
			}
			byStart[s.Start.Unix()] = id
			res.SessionsInserted++
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	p.log.Info("alpha progression import",
		"sessions", res.SessionsInserted, "replaced", res.SessionsReplaced,
		"sets", res.SetsInserted, "warmups_skipped", res.WarmupsSkipped,
		"exercises_created", len(res.ExercisesCreated))
	return res, nil
}

func (p *Provider) insertSession(ctx context.Context, tx *storage.Tx, s Session, byName map[string]int64, res *ingest.Result) (int64, error) {
	var working int
	for _, ex := range s.Exercises {
		for _, set := range ex.Sets {
			if !set.Warmup {
				working++
			}
		}
	}

	end := s.Start.Add(s.Duration)
	notes := "Imported from Alpha Progression: " + s.Name
	sess := models.WorkoutSession{StartedAt: s.Start, CompletedAt: &end, Notes: &notes}
	if err := tx.InsertSession(ctx, &sess); err != nil {
		return 0, err
	}

	// Sets get evenly spaced completion times across the session.
	step := s.Duration / time.Duration(working+1)
	n := 0
	for _, ex := range s.Exercises {
		exID, err := p.resolveExercise(ctx, tx, ex, byName, res)
		if err != nil {
			return 0, err
		}
		setNumber := 0
		for _, set := range ex.Sets {
			res.SetsReceived++
			if set.Warmup {
				res.WarmupsSkipped++
				continue
			}
			n++
			setNumber++
			row := models.WorkoutSet{
				SessionID:   sess.ID,
				ExerciseID:  exID,
				SetNumber:   setNumber,
				Weight:      set.Weight,
				Reps:        set.Reps,
				RPE:         rpeFromRIR(set.RIR),
				CompletedAt: s.Start.Add(time.Duration(n) * step),
			}
			if err := tx.InsertSet(ctx, &row); err != nil {
				return 0, err
			}
			res.SetsInserted++
		}
	}
	return sess.ID, nil
}

func (p *Provider) resolveExercise(ctx context.Context, tx *storage.Tx, ex Exercise, byName map[string]int64, res *ingest.Result) (int64, error) {
	key := strings.ToLower(ex.Name)
	if id, ok := byName[key]; ok {
		return id, nil
	}
	e := models.Exercise{
		Name:        ex.Name,
		MuscleGroup: guessMuscleGroup(ex.Name),
		Equipment:   mapEquipment(ex.Equipment),
		IsCustom:    true,
	}
	if err := tx.InsertExercise(ctx, &e); err != nil {
		return 0, err
	}
	byName[key] = e.ID
	res.ExercisesCreated = append(res.ExercisesCreated, e.Name)
	return e.ID, nil
}

// rpeFromRIR converts reps in reserve to RPE (10 - RIR) on the half-point
// scale. Efforts easier than RPE 6 are left unrated.
func rpeFromRIR(rir *float64) *float64 {
	if rir == nil {
		return nil
	}
	rpe := math.Round((10-*rir)*2) / 2
	if rpe < 6 || rpe > 10 {
		return nil
	}
	return &rpe
}

var equipmentNames = map[string]models.Equipment{
	"barbell":       models.Barbell,
	"dumbbell":      models.Dumbbell,
	"dumbbells":     models.Dumbbell,
	"cable":         models.Cable,
	"cables":        models.Cable,
	"machine":       models.Machine,
	"bodyweight":    models.Bodyweight,
	"smith machine": models.SmithMachine,
	"ez bar":        models.EZBar,
	"ez-bar":        models.EZBar,
	"kettlebell":    models.Kettlebell,
	"kettlebells":   models.Kettlebell,
	"band":          models.Band,
	"bands":         models.Band,
}

func mapEquipment(s string) models.Equipment {
	if e, ok := equipmentNames[strings.ToLower(strings.TrimSpace(s))]; ok {
		return e
	}
	return models.OtherEquip
}

// muscleKeywords is checked in order; the first keyword found in the
// exercise name wins.
var muscleKeywords = []struct {
	keyword string
	group   models.MuscleGroup
}{
	{"calf", models.Calves},
	{"leg raise", models.Abs},
	{"crunch", models.Abs},
	{"plank", models.Abs},
	{"shrug", models.Traps},
	{"pulldown", models.Lats},
	{"pull-up", models.Lats},
	{"pullup", models.Lats},
	{"chin", models.Lats},
	{"leg curl", models.Hamstrings},
	{"romanian", models.Hamstrings},
	{"hyperextension", models.Hamstrings},
	{"hip thrust", models.Glutes},
	{"glute", models.Glutes},
	{"squat", models.Quads},
	{"lunge", models.Quads},
	{"leg press", models.Quads},
	{"leg extension", models.Quads},
	{"deadlift", models.Back},
	{"row", models.Back},
	{"wrist", models.Forearms},
	{"curl", models.Biceps},
	{"triceps", models.Triceps},
	{"pushdown", models.Triceps},
	{"skull", models.Triceps},
	{"dip", models.Triceps},
	{"lateral raise", models.Shoulders},
	{"overhead", models.Shoulders},
	{"shoulder", models.Shoulders},
	{"bench", models.Chest},
	{"fly", models.Chest},
	{"chest", models.Chest},
	{"push-up", models.Chest},
	{"press", models.Chest},
}

// guessMuscleGroup picks a primary muscle group from the exercise name.
// Unrecognised names fall back to back.
func guessMuscleGroup(name string) models.MuscleGroup {
	n := strings.ToLower(name)
	for _, k := range muscleKeywords {
		if strings.Contains(n, k.keyword) {
			return k.group
		}
	}
	return models.Back
}
