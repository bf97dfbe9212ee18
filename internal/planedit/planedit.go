// Package planedit restructures workout templates: merging parts, splitting
// them, expanding them into circuit rounds and the smaller per-part edits.
//
// Structural edits run in one transaction. When a precondition does not hold
// (too few parts or exercises, missing part) the edit is a no-op and returns
// a zero result with a nil error.
package planedit

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"strings"

	"github.com/meltforce/liftlog/internal/models"
	"github.com/meltforce/liftlog/internal/storage"
	"github.com/meltforce/liftlog/internal/telemetry"
)

// ErrInvalidStructure is returned by SetStructure for unknown structure kinds.
var ErrInvalidStructure = errors.New("invalid part structure")

// Default slot values for exercises added by hand.
const (
	DefaultTargetSets = 3
	DefaultTargetReps = "8-12"
)

// Editor applies template edits.
type Editor struct {
	db      *storage.DB
	metrics *telemetry.Metrics
	log     *slog.Logger
}

// Option configures an Editor.
type Option func(*Editor)

// WithMetrics counts structural edits.
func WithMetrics(m *telemetry.Metrics) Option {
	return func(e *Editor) { e.metrics = m }
}

// New creates an Editor.
func New(db *storage.DB, log *slog.Logger, opts ...Option) *Editor {
	e := &Editor{db: db, log: log}
	for _, o := range opts {
		o(e)
	}
	return e
}

// PartView is a part with its exercises in display order.
type PartView struct {
	models.TemplatePart
	Exercises []models.TemplateExercise `json:"exercises"`
}

// Parts returns a template's parts ordered by day and part order, each with
// its exercises ordered by order.
func (e *Editor) Parts(ctx context.Context, templateID int64) ([]PartView, error) {
	parts, err := e.db.PartsByTemplate(ctx, templateID)
	if err != nil {
		return nil, err
	}
	views := make([]PartView, 0, len(parts))
	for _, p := range parts {
		exs, err := e.db.TemplateExercisesByPart(ctx, p.ID)
		if err != nil {
			return nil, err
		}
		views = append(views, PartView{TemplatePart: p, Exercises: exs})
	}
	return views, nil
}

// identityKey groups slots that prescribe the same movement.
func identityKey(te models.TemplateExercise) string {
	if te.IsChoice {
		mg := ""
		if te.ChoiceMuscleGroup != nil {
			mg = string(*te.ChoiceMuscleGroup)
		}
		return "choice-" + mg
	}
	if te.ExerciseID == nil {
		return "exercise-"
	}
	return "exercise-" + strconv.FormatInt(*te.ExerciseID, 10)
}

// groupByIdentity makes slots with the same identity contiguous. Groups keep
// the order in which their key first appears; slots keep their relative order.
func groupByIdentity(slots []models.TemplateExercise) []models.TemplateExercise {
	groups := make(map[string][]models.TemplateExercise)
	var order []string
	for _, te := range slots {
		key := identityKey(te)
		if _, ok := groups[key]; !ok {
			order = append(order, key)
		}
		groups[key] = append(groups[key], te)
	}
	out := make([]models.TemplateExercise, 0, len(slots))
	for _, key := range order {
		out = append(out, groups[key]...)
	}
	return out
}

// MergeParts combines two or more parts of the same template day into one
// straight-sets part placed at the lowest source order and named by joining
// the source names with " + ". Returns the new part id, or 0 when nothing was done.
func (e *Editor) MergeParts(ctx context.Context, partIDs []int64) (int64, error) {
	ids := slices.Clone(partIDs)
	slices.Sort(ids)
	ids = slices.Compact(ids)
	if len(ids) < 2 {
		e.metrics.PlanEdited("merge", false)
		return 0, nil
	}

	var newID int64
	err := e.db.WithTx(ctx, func(tx *storage.Tx) error {
		parts := make([]models.TemplatePart, 0, len(ids))
		for _, id := range ids {
			p, err := tx.GetPart(ctx, id)
			if errors.Is(err, storage.ErrNotFound) {
				return nil
			}
			if err != nil {
				return err
			}
			parts = append(parts, *p)
		}
		for _, p := range parts[1:] {
			if p.TemplateID != parts[0].TemplateID || p.DayIndex != parts[0].DayIndex {
				return nil
			}
		}
		slices.SortFunc(parts, func(a, b models.TemplatePart) int {
			return cmp.Or(cmp.Compare(a.PartOrder, b.PartOrder), cmp.Compare(a.ID, b.ID))
		})

		var slots []models.TemplateExercise
		names := make([]string, 0, len(parts))
		minOrder := parts[0].PartOrder
		for _, p := range parts {
			exs, err := tx.TemplateExercisesByPart(ctx, p.ID)
			if err != nil {
				return err
			}
			slots = append(slots, exs...)
			names = append(names, p.Name)
			minOrder = min(minOrder, p.PartOrder)
		}

		merged := models.TemplatePart{
			TemplateID: parts[0].TemplateID,
			DayIndex:   parts[0].DayIndex,
			PartOrder:  minOrder,
			Name:       strings.Join(names, " + "),
			Structure:  models.StraightSets,
		}
		if err := tx.InsertPart(ctx, &merged); err != nil {
			return err
		}
		for i, te := range groupByIdentity(slots) {
			te.PartID = merged.ID
			te.Order = i + 1
			if err := tx.UpdateTemplateExercise(ctx, te); err != nil {
				return err
			}
		}
		for _, p := range parts {
			if err := tx.DeletePart(ctx, p.ID); err != nil {
				return err
			}
		}
		newID = merged.ID
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("merging parts: %w", err)
	}
	e.metrics.PlanEdited("merge", newID != 0)
	if newID != 0 {
		e.log.Info("parts merged", "sources", ids, "part_id", newID)
	}
	return newID, nil
}

// SplitInHalf splits a part with at least two exercises into "<name> (1)" and
// "<name> (2)". The first half gets the extra exercise on odd counts. Returns
// the two new part ids, or nil when nothing was done.
func (e *Editor) SplitInHalf(ctx context.Context, partID int64) ([]int64, error) {
	var ids []int64
	err := e.db.WithTx(ctx, func(tx *storage.Tx) error {
		part, err := tx.GetPart(ctx, partID)
		if errors.Is(err, storage.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		slots, err := tx.TemplateExercisesByPart(ctx, partID)
		if err != nil {
			return err
		}
		if len(slots) < 2 {
			return nil
		}

		mid := (len(slots) + 1) / 2
		halves := [][]models.TemplateExercise{slots[:mid], slots[mid:]}
		for i, half := range halves {
			np := models.TemplatePart{
				TemplateID: part.TemplateID,
				DayIndex:   part.DayIndex,
				PartOrder:  part.PartOrder + i,
				Name:       fmt.Sprintf("%s (%d)", part.Name, i+1),
				Structure:  part.Structure,
			}
			if err := tx.InsertPart(ctx, &np); err != nil {
				return err
			}
			for j, te := range half {
				te.PartID = np.ID
				te.Order = j + 1
				if err := tx.UpdateTemplateExercise(ctx, te); err != nil {
					return err
				}
			}
			ids = append(ids, np.ID)
		}
		return tx.DeletePart(ctx, partID)
	})
	if err != nil {
		return nil, fmt.Errorf("splitting part %d: %w", partID, err)
	}
	e.metrics.PlanEdited("split", ids != nil)
	return ids, nil
}

// SplitIntoRounds expands a part into circuit parts "Round 1".."Round R",
// where R is the highest target set count (at least 2). An exercise with S
// target sets appears once in each of rounds 1..S with one set; a slot with
// no target sets goes to round 1 only. Round 1 keeps the original row; the
// copies keep the original order value unchanged.
// Returns the round part ids, or nil when nothing was done.
func (e *Editor) SplitIntoRounds(ctx context.Context, partID int64) ([]int64, error) {
	var rounds []int64
	err := e.db.WithTx(ctx, func(tx *storage.Tx) error {
		part, err := tx.GetPart(ctx, partID)
		if errors.Is(err, storage.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		slots, err := tx.TemplateExercisesByPart(ctx, partID)
		if err != nil {
			return err
		}
		if len(slots) == 0 {
			return nil
		}
		maxSets := 0
		for _, te := range slots {
			maxSets = max(maxSets, te.TargetSets)
		}
		if maxSets < 2 {
			return nil
		}

		ids := make([]int64, 0, maxSets)
		for r := 1; r <= maxSets; r++ {
			rp := models.TemplatePart{
				TemplateID: part.TemplateID,
				DayIndex:   part.DayIndex,
				PartOrder:  part.PartOrder + r - 1,
				Name:       fmt.Sprintf("Round %d", r),
				Structure:  models.Circuit,
			}
			if err := tx.InsertPart(ctx, &rp); err != nil {
				return err
			}
			ids = append(ids, rp.ID)
		}

		for _, te := range slots {
			for r := range max(te.TargetSets, 1) {
				row := te
				row.PartID = ids[r]
				row.TargetSets = 1
				if r == 0 {
					if err := tx.UpdateTemplateExercise(ctx, row); err != nil {
						return err
					}
					continue
				}
				row.ID = 0
				if err := tx.InsertTemplateExercise(ctx, &row); err != nil {
					return err
				}
			}
		}
		if err := tx.DeletePart(ctx, partID); err != nil {
			return err
		}
		rounds = ids
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("splitting part %d into rounds: %w", partID, err)
	}
	e.metrics.PlanEdited("rounds", rounds != nil)
	return rounds, nil
}
