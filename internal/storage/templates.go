package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/meltforce/liftlog/internal/models"
)

const templateColumns = `id, name, frequency, focus, duration_minutes, split_days, description`

func scanTemplate(row interface{ Scan(...any) error }) (models.WorkoutTemplate, error) {
	var (
		t    models.WorkoutTemplate
		days string
	)
	if err := row.Scan(&t.ID, &t.Name, &t.Frequency, &t.Focus, &t.DurationMinutes, &days, &t.Description); err != nil {
		return t, err
	}
	list, err := decodeList[models.SplitFocus](days)
	if err != nil {
		return t, err
	}
	t.SplitDays = list
	return t, nil
}

// ListTemplates returns all templates ordered by id.
func (c *Conn) ListTemplates(ctx context.Context) ([]models.WorkoutTemplate, error) {
	rows, err := c.query(ctx, `SELECT `+templateColumns+` FROM workout_templates ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("querying templates: %w", err)
	}
	defer rows.Close()

	var result []models.WorkoutTemplate
	for rows.Next() {
		t, err := scanTemplate(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning template: %w", err)
		}
		result = append(result, t)
	}
	return result, rows.Err()
}

// GetTemplate returns one template or ErrNotFound.
func (c *Conn) GetTemplate(ctx context.Context, id int64) (*models.WorkoutTemplate, error) {
	t, err := scanTemplate(c.queryRow(ctx, `SELECT `+templateColumns+` FROM workout_templates WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying template %d: %w", id, err)
	}
	return &t, nil
}

// InsertTemplate stores t and sets t.ID. A non-zero t.ID is kept.
func (c *Conn) InsertTemplate(ctx context.Context, t *models.WorkoutTemplate) error {
	days, err := encodeList(t.SplitDays)
	if err != nil {
		return err
	}
	q, args := c.insert(TableWorkoutTemplates, t.ID,
		`name, frequency, focus, duration_minutes, split_days, description`,
		[]any{t.Name, t.Frequency, t.Focus, t.DurationMinutes, days, t.Description})
	if err := c.queryRow(ctx, q, args...).Scan(&t.ID); err != nil {
		return fmt.Errorf("inserting template %q: %w", t.Name, err)
	}
	c.touch(TableWorkoutTemplates)
	return nil
}

// UpdateTemplate rewrites the metadata of an existing template. Parts are untouched.
func (c *Conn) UpdateTemplate(ctx context.Context, t models.WorkoutTemplate) error {
	days, err := encodeList(t.SplitDays)
	if err != nil {
		return err
	}
	res, err := c.exec(ctx,
		`UPDATE workout_templates SET name = ?, frequency = ?, focus = ?, duration_minutes = ?,
		 split_days = ?, description = ? WHERE id = ?`,
		t.Name, t.Frequency, t.Focus, t.DurationMinutes, days, t.Description, t.ID)
	if err != nil {
		return fmt.Errorf("updating template %d: %w", t.ID, err)
	}
	if err := mustAffect(res); err != nil {
		return err
	}
	c.touch(TableWorkoutTemplates)
	return nil
}

// --- Parts ---

const partColumns = `id, template_id, day_index, part_order, name, structure`

func scanPart(row interface{ Scan(...any) error }) (models.TemplatePart, error) {
	var p models.TemplatePart
	err := row.Scan(&p.ID, &p.TemplateID, &p.DayIndex, &p.PartOrder, &p.Name, &p.Structure)
	return p, err
}

func (c *Conn) queryParts(ctx context.Context, query string, args ...any) ([]models.TemplatePart, error) {
	rows, err := c.query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying template parts: %w", err)
	}
	defer rows.Close()

	var result []models.TemplatePart
	for rows.Next() {
		p, err := scanPart(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning template part: %w", err)
		}
		result = append(result, p)
	}
	return result, rows.Err()
}

// ListParts returns every part of every template.
func (c *Conn) ListParts(ctx context.Context) ([]models.TemplatePart, error) {
	return c.queryParts(ctx, `SELECT `+partColumns+` FROM template_parts ORDER BY id`)
}

// PartsByTemplate returns a template's parts ordered by day, part order and id.
func (c *Conn) PartsByTemplate(ctx context.Context, templateID int64) ([]models.TemplatePart, error) {
	return c.queryParts(ctx,
		`SELECT `+partColumns+` FROM template_parts WHERE template_id = ?
		 ORDER BY day_index, part_order, id`, templateID)
}

// PartsByDay returns the parts of one template day in display order.
func (c *Conn) PartsByDay(ctx context.Context, templateID int64, dayIndex int) ([]models.TemplatePart, error) {
	return c.queryParts(ctx,
		`SELECT `+partColumns+` FROM template_parts WHERE template_id = ? AND day_index = ?
		 ORDER BY part_order, id`, templateID, dayIndex)
}

// GetPart returns one part or ErrNotFound.
func (c *Conn) GetPart(ctx context.Context, id int64) (*models.TemplatePart, error) {
	p, err := scanPart(c.queryRow(ctx, `SELECT `+partColumns+` FROM template_parts WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying template part %d: %w", id, err)
	}
	return &p, nil
}

// InsertPart stores p and sets p.ID. A non-zero p.ID is kept.
func (c *Conn) InsertPart(ctx context.Context, p *models.TemplatePart) error {
	q, args := c.insert(TableTemplateParts, p.ID,
		`template_id, day_index, part_order, name, structure`,
		[]any{p.TemplateID, p.DayIndex, p.PartOrder, p.Name, p.Structure})
	if err := c.queryRow(ctx, q, args...).Scan(&p.ID); err != nil {
		return fmt.Errorf("inserting template part %q: %w", p.Name, err)
	}
	c.touch(TableTemplateParts)
	return nil
}

// UpdatePart rewrites name, order and structure of a part.
func (c *Conn) UpdatePart(ctx context.Context, p models.TemplatePart) error {
	res, err := c.exec(ctx,
		`UPDATE template_parts SET day_index = ?, part_order = ?, name = ?, structure = ? WHERE id = ?`,
		p.DayIndex, p.PartOrder, p.Name, p.Structure, p.ID)
	if err != nil {
		return fmt.Errorf("updating template part %d: %w", p.ID, err)
	}
	if err := mustAffect(res); err != nil {
		return err
	}
	c.touch(TableTemplateParts)
	return nil
}

// DeletePart removes a part and its template exercises.
func (c *Conn) DeletePart(ctx context.Context, id int64) error {
	if _, err := c.exec(ctx, `DELETE FROM template_exercises WHERE part_id = ?`, id); err != nil {
		return fmt.Errorf("deleting exercises of part %d: %w", id, err)
	}
	if _, err := c.exec(ctx, `DELETE FROM template_parts WHERE id = ?`, id); err != nil {
		return fmt.Errorf("deleting template part %d: %w", id, err)
	}
	c.touch(TableTemplateParts, TableTemplateExercises)
	return nil
}

// MaxPartOrder returns the highest part order of a template day, or -1 when the day is empty.
func (c *Conn) MaxPartOrder(ctx context.Context, templateID int64, dayIndex int) (int, error) {
	var max sql.NullInt64
	err := c.queryRow(ctx,
		`SELECT MAX(part_order) FROM template_parts WHERE template_id = ? AND day_index = ?`,
		templateID, dayIndex).Scan(&max)
	if err != nil {
		return 0, fmt.Errorf("querying max part order: %w", err)
	}
	if !max.Valid {
		return -1, nil
	}
	return int(max.Int64), nil
}

// --- Template exercises ---

const templateExerciseColumns = `id, part_id, exercise_id, is_choice, choice_muscle_group, target_sets,
	target_reps, rest_seconds, weight_descriptor, intensity_descriptor, special_set_type, notes, sort_order`

func scanTemplateExercise(row interface{ Scan(...any) error }) (models.TemplateExercise, error) {
	var te models.TemplateExercise
	err := row.Scan(&te.ID, &te.PartID, &te.ExerciseID, &te.IsChoice, &te.ChoiceMuscleGroup,
		&te.TargetSets, &te.TargetReps, &te.RestSeconds, &te.WeightDescriptor,
		&te.IntensityDescriptor, &te.SpecialSetType, &te.Notes, &te.Order)
	return te, err
}

func (c *Conn) queryTemplateExercises(ctx context.Context, query string, args ...any) ([]models.TemplateExercise, error) {
	rows, err := c.query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying template exercises: %w", err)
	}
	defer rows.Close()

	var result []models.TemplateExercise
	for rows.Next() {
		te, err := scanTemplateExercise(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning template exercise: %w", err)
		}
		result = append(result, te)
	}
	return result, rows.Err()
}

// ListTemplateExercises returns every template exercise.
func (c *Conn) ListTemplateExercises(ctx context.Context) ([]models.TemplateExercise, error) {
	return c.queryTemplateExercises(ctx, `SELECT `+templateExerciseColumns+` FROM template_exercises ORDER BY id`)
}

// TemplateExercisesByPart returns a part's exercises ordered by order then id.
func (c *Conn) TemplateExercisesByPart(ctx context.Context, partID int64) ([]models.TemplateExercise, error) {
	return c.queryTemplateExercises(ctx,
		`SELECT `+templateExerciseColumns+` FROM template_exercises WHERE part_id = ?
		 ORDER BY sort_order, id`, partID)
}

// GetTemplateExercise returns one template exercise or ErrNotFound.
func (c *Conn) GetTemplateExercise(ctx context.Context, id int64) (*models.TemplateExercise, error) {
	te, err := scanTemplateExercise(c.queryRow(ctx,
		`SELECT `+templateExerciseColumns+` FROM template_exercises WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying template exercise %d: %w", id, err)
	}
	return &te, nil
}

func templateExerciseArgs(te *models.TemplateExercise) []any {
	return []any{te.PartID, te.ExerciseID, te.IsChoice, te.ChoiceMuscleGroup, te.TargetSets,
		te.TargetReps, te.RestSeconds, te.WeightDescriptor, te.IntensityDescriptor,
		te.SpecialSetType, te.Notes, te.Order}
}

// InsertTemplateExercise stores te and sets te.ID. A non-zero te.ID is kept.
func (c *Conn) InsertTemplateExercise(ctx context.Context, te *models.TemplateExercise) error {
	q, args := c.insert(TableTemplateExercises, te.ID,
		`part_id, exercise_id, is_choice, choice_muscle_group, target_sets, target_reps,
		 rest_seconds, weight_descriptor, intensity_descriptor, special_set_type, notes, sort_order`,
		templateExerciseArgs(te))
	if err := c.queryRow(ctx, q, args...).Scan(&te.ID); err != nil {
		return fmt.Errorf("inserting template exercise: %w", err)
	}
	c.touch(TableTemplateExercises)
	return nil
}

// UpdateTemplateExercise rewrites every column of an existing template exercise.
func (c *Conn) UpdateTemplateExercise(ctx context.Context, te models.TemplateExercise) error {
	args := append(templateExerciseArgs(&te), te.ID)
	res, err := c.exec(ctx,
		`UPDATE template_exercises SET part_id = ?, exercise_id = ?, is_choice = ?,
		 choice_muscle_group = ?, target_sets = ?, target_reps = ?, rest_seconds = ?,
		 weight_descriptor = ?, intensity_descriptor = ?, special_set_type = ?, notes = ?,
		 sort_order = ? WHERE id = ?`, args...)
	if err != nil {
		return fmt.Errorf("updating template exercise %d: %w", te.ID, err)
	}
	if err := mustAffect(res); err != nil {
		return err
	}
	c.touch(TableTemplateExercises)
	return nil
}

// DeleteTemplateExercise removes one template exercise. Missing ids are ignored.
func (c *Conn) DeleteTemplateExercise(ctx context.Context, id int64) error {
	if _, err := c.exec(ctx, `DELETE FROM template_exercises WHERE id = ?`, id); err != nil {
		return fmt.Errorf("deleting template exercise %d: %w", id, err)
	}
	c.touch(TableTemplateExercises)
	return nil
}

// MaxExerciseOrder returns the highest order in a part, or 0 when the part is empty.
func (c *Conn) MaxExerciseOrder(ctx context.Context, partID int64) (int, error) {
	var max sql.NullInt64
	err := c.queryRow(ctx, `SELECT MAX(sort_order) FROM template_exercises WHERE part_id = ?`, partID).Scan(&max)
	if err != nil {
		return 0, fmt.Errorf("querying max exercise order: %w", err)
	}
	return int(max.Int64), nil
}

func mustAffect(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("reading affected rows: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
