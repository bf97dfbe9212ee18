package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/meltforce/liftlog/internal/models"
)

const preferencesColumns = `id, weight_unit, active_template_id, theme, rest_timer_enabled,
	show_rpe_prompt, show_mood_prompt, default_increment, seed_version`

func scanPreferences(row interface{ Scan(...any) error }) (models.UserPreferences, error) {
	var p models.UserPreferences
	err := row.Scan(&p.ID, &p.WeightUnit, &p.ActiveTemplateID, &p.Theme, &p.RestTimerEnabled,
		&p.ShowRPEPrompt, &p.ShowMoodPrompt, &p.DefaultIncrement, &p.SeedVersion)
	return p, err
}

// ListPreferences returns every preferences row (normally exactly one).
func (c *Conn) ListPreferences(ctx context.Context) ([]models.UserPreferences, error) {
	rows, err := c.query(ctx, `SELECT `+preferencesColumns+` FROM user_preferences ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("querying preferences: %w", err)
	}
	defer rows.Close()

	var result []models.UserPreferences
	for rows.Next() {
		p, err := scanPreferences(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning preferences: %w", err)
		}
		result = append(result, p)
	}
	return result, rows.Err()
}

// GetPreferences returns the first preferences row, or nil when none has been written.
func (c *Conn) GetPreferences(ctx context.Context) (*models.UserPreferences, error) {
	p, err := scanPreferences(c.queryRow(ctx, `SELECT `+preferencesColumns+` FROM user_preferences ORDER BY id LIMIT 1`))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying preferences: %w", err)
	}
	return &p, nil
}

// SavePreferences inserts or replaces the row with p.ID (PreferencesID when zero).
func (c *Conn) SavePreferences(ctx context.Context, p *models.UserPreferences) error {
	if p.ID == 0 {
		p.ID = models.PreferencesID
	}
	_, err := c.exec(ctx,
		`INSERT INTO user_preferences (`+preferencesColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (id) DO UPDATE SET
		   weight_unit = excluded.weight_unit,
		   active_template_id = excluded.active_template_id,
		   theme = excluded.theme,
		   rest_timer_enabled = excluded.rest_timer_enabled,
		   show_rpe_prompt = excluded.show_rpe_prompt,
		   show_mood_prompt = excluded.show_mood_prompt,
		   default_increment = excluded.default_increment,
		   seed_version = excluded.seed_version`,
		p.ID, p.WeightUnit, p.ActiveTemplateID, p.Theme, p.RestTimerEnabled,
		p.ShowRPEPrompt, p.ShowMoodPrompt, p.DefaultIncrement, p.SeedVersion)
	if err != nil {
		return fmt.Errorf("saving preferences: %w", err)
	}
	c.touch(TableUserPreferences)
	return nil
}
