package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/meltforce/liftlog/internal/models"
)

const exerciseColumns = `id, name, muscle_group, secondary_muscles, equipment, is_custom`

func scanExercise(row interface{ Scan(...any) error }) (models.Exercise, error) {
	var (
		e         models.Exercise
		secondary string
	)
	if err := row.Scan(&e.ID, &e.Name, &e.MuscleGroup, &secondary, &e.Equipment, &e.IsCustom); err != nil {
		return e, err
	}
	list, err := decodeList[models.MuscleGroup](secondary)
	if err != nil {
		return e, err
	}
	e.SecondaryMuscles = list
	return e, nil
}

// ListExercises returns the whole catalogue ordered by muscle group and name.
func (c *Conn) ListExercises(ctx context.Context) ([]models.Exercise, error) {
	rows, err := c.query(ctx, `SELECT `+exerciseColumns+` FROM exercises ORDER BY muscle_group, name, id`)
	if err != nil {
		return nil, fmt.Errorf("querying exercises: %w", err)
	}
	defer rows.Close()

	var result []models.Exercise
	for rows.Next() {
		e, err := scanExercise(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning exercise: %w", err)
		}
		result = append(result, e)
	}
	return result, rows.Err()
}

// GetExercise returns one exercise or ErrNotFound.
func (c *Conn) GetExercise(ctx context.Context, id int64) (*models.Exercise, error) {
	e, err := scanExercise(c.queryRow(ctx, `SELECT `+exerciseColumns+` FROM exercises WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying exercise %d: %w", id, err)
	}
	return &e, nil
}

// InsertExercise stores e and sets e.ID. A non-zero e.ID is kept.
func (c *Conn) InsertExercise(ctx context.Context, e *models.Exercise) error {
	secondary, err := encodeList(e.SecondaryMuscles)
	if err != nil {
		return err
	}
	q, args := c.insert(TableExercises, e.ID,
		`name, muscle_group, secondary_muscles, equipment, is_custom`,
		[]any{e.Name, e.MuscleGroup, secondary, e.Equipment, e.IsCustom})
	if err := c.queryRow(ctx, q, args...).Scan(&e.ID); err != nil {
		return fmt.Errorf("inserting exercise %q: %w", e.Name, err)
	}
	c.touch(TableExercises)
	return nil
}

// DeleteExercise removes an unreferenced exercise. Referenced exercises
// return ErrExerciseInUse.
func (c *Conn) DeleteExercise(ctx context.Context, id int64) error {
	var refs int
	err := c.queryRow(ctx,
		`SELECT (SELECT COUNT(*) FROM workout_sets WHERE exercise_id = ?)
		      + (SELECT COUNT(*) FROM template_exercises WHERE exercise_id = ?)`,
		id, id).Scan(&refs)
	if err != nil {
		return fmt.Errorf("counting exercise references: %w", err)
	}
	if refs > 0 {
		return ErrExerciseInUse
	}
	if _, err := c.exec(ctx, `DELETE FROM exercises WHERE id = ?`, id); err != nil {
		return fmt.Errorf("deleting exercise %d: %w", id, err)
	}
	c.touch(TableExercises)
	return nil
}
