package storage

import (
	"context"
	"fmt"
)

// ClearAll deletes every row of every table, children first.
func (c *Conn) ClearAll(ctx context.Context) error {
	for i := len(allTables) - 1; i >= 0; i-- {
		if _, err := c.exec(ctx, `DELETE FROM `+allTables[i]); err != nil {
			return fmt.Errorf("clearing %s: %w", allTables[i], err)
		}
	}
	c.touch(allTables...)
	return nil
}

// ClearTemplates deletes all templates with their parts and exercises.
func (c *Conn) ClearTemplates(ctx context.Context) error {
	for _, table := range []string{TableTemplateExercises, TableTemplateParts, TableWorkoutTemplates} {
		if _, err := c.exec(ctx, `DELETE FROM `+table); err != nil {
			return fmt.Errorf("clearing %s: %w", table, err)
		}
	}
	c.touch(TableTemplateExercises, TableTemplateParts, TableWorkoutTemplates)
	return nil
}

// ResetSequences moves PostgreSQL identity sequences past the highest stored
// id after rows were inserted with explicit ids. SQLite tracks this itself.
func (c *Conn) ResetSequences(ctx context.Context) error {
	if c.driver != Postgres {
		return nil
	}
	for _, table := range allTables {
		if table == TableUserPreferences {
			continue
		}
		_, err := c.exec(ctx, fmt.Sprintf(
			`SELECT setval(pg_get_serial_sequence('%[1]s', 'id'), COALESCE(MAX(id), 0) + 1, false) FROM %[1]s`,
			table))
		if err != nil {
			return fmt.Errorf("resetting sequence of %s: %w", table, err)
		}
	}
	return nil
}
