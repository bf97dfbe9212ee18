package planedit

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/meltforce/liftlog/internal/models"
	"github.com/meltforce/liftlog/internal/storage"
)

// AddPart appends a straight-sets part to a template day. An empty name
// becomes "Part N" where N is the number of parts on the day after adding.
func (e *Editor) AddPart(ctx context.Context, templateID int64, dayIndex int, name string) (int64, error) {
	p := models.TemplatePart{
		TemplateID: templateID,
		DayIndex:   dayIndex,
		Name:       strings.TrimSpace(name),
		Structure:  models.StraightSets,
	}
	err := e.db.WithTx(ctx, func(tx *storage.Tx) error {
		if _, err := tx.GetTemplate(ctx, templateID); err != nil {
			return err
		}
		existing, err := tx.PartsByDay(ctx, templateID, dayIndex)
		if err != nil {
			return err
		}
		maxOrder, err := tx.MaxPartOrder(ctx, templateID, dayIndex)
		if err != nil {
			return err
		}
		p.PartOrder = max(0, maxOrder) + 1
		if p.Name == "" {
			p.Name = fmt.Sprintf("Part %d", len(existing)+1)
		}
		return tx.InsertPart(ctx, &p)
	})
	if err != nil {
		return 0, fmt.Errorf("adding part: %w", err)
	}
	return p.ID, nil
}

// DeletePart removes a part and its exercises.
func (e *Editor) DeletePart(ctx context.Context, partID int64) error {
	if err := e.db.DeletePart(ctx, partID); err != nil {
		return fmt.Errorf("deleting part %d: %w", partID, err)
	}
	return nil
}

// RenamePart changes a part's display name.
func (e *Editor) RenamePart(ctx context.Context, partID int64, name string) error {
	return e.UpdatePart(ctx, partID, PartUpdate{Name: &name})
}

// SetStructure changes how a part's exercises are performed.
func (e *Editor) SetStructure(ctx context.Context, partID int64, s models.Structure) error {
	return e.UpdatePart(ctx, partID, PartUpdate{Structure: &s})
}

// PartUpdate lists the part fields to change. Nil fields are left alone.
type PartUpdate struct {
	Name      *string
	Structure *models.Structure
}

// UpdatePart applies every field of u in one transaction. An invalid
// structure is rejected before anything is written.
func (e *Editor) UpdatePart(ctx context.Context, partID int64, u PartUpdate) error {
	if u.Structure != nil && !u.Structure.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidStructure, *u.Structure)
	}
	return e.updatePart(ctx, partID, func(p *models.TemplatePart) error {
		if u.Name != nil {
			p.Name = strings.TrimSpace(*u.Name)
		}
		if u.Structure != nil {
			p.Structure = *u.Structure
		}
		return nil
	})
}

func (e *Editor) updatePart(ctx context.Context, partID int64, fn func(*models.TemplatePart) error) error {
	err := e.db.WithTx(ctx, func(tx *storage.Tx) error {
		p, err := tx.GetPart(ctx, partID)
		if err != nil {
			return err
		}
		if err := fn(p); err != nil {
			return err
		}
		return tx.UpdatePart(ctx, *p)
	})
	if err != nil {
		return fmt.Errorf("updating part %d: %w", partID, err)
	}
	return nil
}

// Slot names what an added exercise slot prescribes: a concrete exercise or a
// muscle group choice. Exactly one must be set.
type Slot struct {
	ExerciseID        *int64              `json:"exerciseId,omitempty"`
	ChoiceMuscleGroup *models.MuscleGroup `json:"choiceMuscleGroup,omitempty"`
}

// ErrInvalidSlot is returned when a slot names neither or both of an exercise and a choice.
var ErrInvalidSlot = errors.New("slot needs exactly one of exercise or muscle group choice")

// AddExercise appends a slot to a part with 3 sets of 8-12 and the default rest.
func (e *Editor) AddExercise(ctx context.Context, partID int64, slot Slot) (int64, error) {
	if (slot.ExerciseID == nil) == (slot.ChoiceMuscleGroup == nil) {
		return 0, ErrInvalidSlot
	}
	if slot.ChoiceMuscleGroup != nil && !slot.ChoiceMuscleGroup.Valid() {
		return 0, fmt.Errorf("%w: unknown muscle group %q", ErrInvalidSlot, *slot.ChoiceMuscleGroup)
	}
	te := models.TemplateExercise{
		PartID:            partID,
		ExerciseID:        slot.ExerciseID,
		IsChoice:          slot.ChoiceMuscleGroup != nil,
		ChoiceMuscleGroup: slot.ChoiceMuscleGroup,
		TargetSets:        DefaultTargetSets,
		TargetReps:        DefaultTargetReps,
		RestSeconds:       models.DefaultRestSeconds,
	}
	err := e.db.WithTx(ctx, func(tx *storage.Tx) error {
		if _, err := tx.GetPart(ctx, partID); err != nil {
			return err
		}
		if slot.ExerciseID != nil {
			if _, err := tx.GetExercise(ctx, *slot.ExerciseID); err != nil {
				return err
			}
		}
		maxOrder, err := tx.MaxExerciseOrder(ctx, partID)
		if err != nil {
			return err
		}
		te.Order = maxOrder + 1
		return tx.InsertTemplateExercise(ctx, &te)
	})
	if err != nil {
		return 0, fmt.Errorf("adding exercise to part %d: %w", partID, err)
	}
	return te.ID, nil
}

// RemoveExercise deletes a slot from its part.
func (e *Editor) RemoveExercise(ctx context.Context, templateExerciseID int64) error {
	if err := e.db.DeleteTemplateExercise(ctx, templateExerciseID); err != nil {
		return fmt.Errorf("removing exercise %d: %w", templateExerciseID, err)
	}
	return nil
}
