package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/meltforce/liftlog/internal/models"
)

const sessionColumns = `id, template_id, day_index, started_at, completed_at, mood, energy, notes`

func scanSession(row interface{ Scan(...any) error }) (models.WorkoutSession, error) {
	var s models.WorkoutSession
	err := row.Scan(&s.ID, &s.TemplateID, &s.DayIndex, &s.StartedAt, &s.CompletedAt, &s.Mood, &s.Energy, &s.Notes)
	return s, err
}

func (c *Conn) querySessions(ctx context.Context, query string, args ...any) ([]models.WorkoutSession, error) {
	rows, err := c.query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying sessions: %w", err)
	}
	defer rows.Close()

	var result []models.WorkoutSession
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning session: %w", err)
		}
		result = append(result, s)
	}
	return result, rows.Err()
}

// ListSessions returns every session, oldest first.
func (c *Conn) ListSessions(ctx context.Context) ([]models.WorkoutSession, error) {
	return c.querySessions(ctx, `SELECT `+sessionColumns+` FROM workout_sessions ORDER BY started_at, id`)
}

// GetSession returns one session or ErrNotFound.
func (c *Conn) GetSession(ctx context.Context, id int64) (*models.WorkoutSession, error) {
	s, err := scanSession(c.queryRow(ctx, `SELECT `+sessionColumns+` FROM workout_sessions WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying session %d: %w", id, err)
	}
	return &s, nil
}

// ActiveSession returns the most recently started uncompleted session, or nil.
func (c *Conn) ActiveSession(ctx context.Context) (*models.WorkoutSession, error) {
	s, err := scanSession(c.queryRow(ctx,
		`SELECT `+sessionColumns+` FROM workout_sessions WHERE completed_at IS NULL
		 ORDER BY started_at DESC, id DESC LIMIT 1`))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying active session: %w", err)
	}
	return &s, nil
}

// LatestCompletedSession returns the last completed session for a template day, or nil.
func (c *Conn) LatestCompletedSession(ctx context.Context, templateID int64, dayIndex int) (*models.WorkoutSession, error) {
	s, err := scanSession(c.queryRow(ctx,
		`SELECT `+sessionColumns+` FROM workout_sessions
		 WHERE template_id = ? AND day_index = ? AND completed_at IS NOT NULL
		 ORDER BY completed_at DESC, id DESC LIMIT 1`, templateID, dayIndex))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying latest session: %w", err)
	}
	return &s, nil
}

// InsertSession stores s and sets s.ID. A non-zero s.ID is kept.
func (c *Conn) InsertSession(ctx context.Context, s *models.WorkoutSession) error {
	q, args := c.insert(TableWorkoutSessions, s.ID,
		`template_id, day_index, started_at, completed_at, mood, energy, notes`,
		[]any{s.TemplateID, s.DayIndex, utc(s.StartedAt), utcPtr(s.CompletedAt), s.Mood, s.Energy, s.Notes})
	if err := c.queryRow(ctx, q, args...).Scan(&s.ID); err != nil {
		return fmt.Errorf("inserting session: %w", err)
	}
	c.touch(TableWorkoutSessions)
	return nil
}

// CompleteSession stamps completed_at.
func (c *Conn) CompleteSession(ctx context.Context, id int64, at time.Time) error {
	res, err := c.exec(ctx, `UPDATE workout_sessions SET completed_at = ? WHERE id = ?`, utc(at), id)
	if err != nil {
		return fmt.Errorf("completing session %d: %w", id, err)
	}
	if err := mustAffect(res); err != nil {
		return err
	}
	c.touch(TableWorkoutSessions)
	return nil
}

// RateSession records the post-workout mood, energy and notes.
func (c *Conn) RateSession(ctx context.Context, id int64, mood, energy int, notes *string) error {
	res, err := c.exec(ctx,
		`UPDATE workout_sessions SET mood = ?, energy = ?, notes = ? WHERE id = ?`,
		mood, energy, notes, id)
	if err != nil {
		return fmt.Errorf("rating session %d: %w", id, err)
	}
	if err := mustAffect(res); err != nil {
		return err
	}
	c.touch(TableWorkoutSessions)
	return nil
}

// DeleteSession removes a session's sets and then the session.
func (c *Conn) DeleteSession(ctx context.Context, id int64) error {
	if _, err := c.exec(ctx, `DELETE FROM workout_sets WHERE session_id = ?`, id); err != nil {
		return fmt.Errorf("deleting sets of session %d: %w", id, err)
	}
	if _, err := c.exec(ctx, `DELETE FROM workout_sessions WHERE id = ?`, id); err != nil {
		return fmt.Errorf("deleting session %d: %w", id, err)
	}
	c.touch(TableWorkoutSets, TableWorkoutSessions)
	return nil
}

// --- Sets ---

const setColumns = `id, session_id, exercise_id, template_exercise_id, set_number, weight, reps, rpe,
	partials_count, drop_set_weight, drop_set_reps, forced_reps_count, is_paused_reps, completed_at`

func scanSet(row interface{ Scan(...any) error }) (models.WorkoutSet, error) {
	var s models.WorkoutSet
	err := row.Scan(&s.ID, &s.SessionID, &s.ExerciseID, &s.TemplateExerciseID, &s.SetNumber,
		&s.Weight, &s.Reps, &s.RPE, &s.PartialsCount, &s.DropSetWeight, &s.DropSetReps,
		&s.ForcedRepsCount, &s.IsPausedReps, &s.CompletedAt)
	return s, err
}

func (c *Conn) querySets(ctx context.Context, query string, args ...any) ([]models.WorkoutSet, error) {
	rows, err := c.query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying sets: %w", err)
	}
	defer rows.Close()

	var result []models.WorkoutSet
	for rows.Next() {
		s, err := scanSet(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning set: %w", err)
		}
		result = append(result, s)
	}
	return result, rows.Err()
}

// ListSets returns every logged set ordered by id.
func (c *Conn) ListSets(ctx context.Context) ([]models.WorkoutSet, error) {
	return c.querySets(ctx, `SELECT `+setColumns+` FROM workout_sets ORDER BY id`)
}

// SetsBySession returns a session's sets in logging order.
func (c *Conn) SetsBySession(ctx context.Context, sessionID int64) ([]models.WorkoutSet, error) {
	return c.querySets(ctx,
		`SELECT `+setColumns+` FROM workout_sets WHERE session_id = ? ORDER BY completed_at, id`, sessionID)
}

// SetsByExercise returns every set of one exercise, most recent first.
func (c *Conn) SetsByExercise(ctx context.Context, exerciseID int64) ([]models.WorkoutSet, error) {
	return c.querySets(ctx,
		`SELECT `+setColumns+` FROM workout_sets WHERE exercise_id = ? ORDER BY completed_at DESC, id DESC`, exerciseID)
}

// GetSet returns one set or ErrNotFound.
func (c *Conn) GetSet(ctx context.Context, id int64) (*models.WorkoutSet, error) {
	s, err := scanSet(c.queryRow(ctx, `SELECT `+setColumns+` FROM workout_sets WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying set %d: %w", id, err)
	}
	return &s, nil
}

// CountSetsForExercise counts the sets already logged for an exercise in a session.
func (c *Conn) CountSetsForExercise(ctx context.Context, sessionID, exerciseID int64) (int, error) {
	var n int
	err := c.queryRow(ctx,
		`SELECT COUNT(*) FROM workout_sets WHERE session_id = ? AND exercise_id = ?`,
		sessionID, exerciseID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("counting sets: %w", err)
	}
	return n, nil
}

// InsertSet stores s and sets s.ID. A non-zero s.ID is kept.
func (c *Conn) InsertSet(ctx context.Context, s *models.WorkoutSet) error {
	q, args := c.insert(TableWorkoutSets, s.ID,
		`session_id, exercise_id, template_exercise_id, set_number, weight, reps, rpe,
		 partials_count, drop_set_weight, drop_set_reps, forced_reps_count, is_paused_reps, completed_at`,
		[]any{s.SessionID, s.ExerciseID, s.TemplateExerciseID, s.SetNumber, s.Weight, s.Reps, s.RPE,
			s.PartialsCount, s.DropSetWeight, s.DropSetReps, s.ForcedRepsCount, s.IsPausedReps, utc(s.CompletedAt)})
	if err := c.queryRow(ctx, q, args...).Scan(&s.ID); err != nil {
		return fmt.Errorf("inserting set: %w", err)
	}
	c.touch(TableWorkoutSets)
	return nil
}

// UpdateSet rewrites weight, reps and rpe of a set.
func (c *Conn) UpdateSet(ctx context.Context, s models.WorkoutSet) error {
	res, err := c.exec(ctx, `UPDATE workout_sets SET weight = ?, reps = ?, rpe = ? WHERE id = ?`,
		s.Weight, s.Reps, s.RPE, s.ID)
	if err != nil {
		return fmt.Errorf("updating set %d: %w", s.ID, err)
	}
	if err := mustAffect(res); err != nil {
		return err
	}
	c.touch(TableWorkoutSets)
	return nil
}

// DeleteSet removes a set. Missing ids are not an error.
func (c *Conn) DeleteSet(ctx context.Context, id int64) error {
	if _, err := c.exec(ctx, `DELETE FROM workout_sets WHERE id = ?`, id); err != nil {
		return fmt.Errorf("deleting set %d: %w", id, err)
	}
	c.touch(TableWorkoutSets)
	return nil
}
