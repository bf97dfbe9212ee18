package storage

import (
	"encoding/json"
	"fmt"
	"time"
)

// Table names, also used as live-change topics.
const (
	TableExercises         = "exercises"
	TableWorkoutTemplates  = "workout_templates"
	TableTemplateParts     = "template_parts"
	TableTemplateExercises = "template_exercises"
	TableWorkoutSessions   = "workout_sessions"
	TableWorkoutSets       = "workout_sets"
	TableUserPreferences   = "user_preferences"
)

// allTables is in parent-before-child order; clear it in reverse.
var allTables = []string{
	TableExercises,
	TableWorkoutTemplates,
	TableTemplateParts,
	TableTemplateExercises,
	TableWorkoutSessions,
	TableWorkoutSets,
	TableUserPreferences,
}

// AllTables returns every table name in insert order.
func AllTables() []string {
	out := make([]string, len(allTables))
	copy(out, allTables)
	return out
}

func encodeList[T any](v []T) (string, error) {
	if v == nil {
		v = []T{}
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("encoding list: %w", err)
	}
	return string(b), nil
}

func decodeList[T any](s string) ([]T, error) {
	if s == "" {
		return nil, nil
	}
	var v []T
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		return nil, fmt.Errorf("decoding list: %w", err)
	}
	if len(v) == 0 {
		return nil, nil
	}
	return v, nil
}

func utc(t time.Time) time.Time {
	return t.UTC()
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}

// insertColumns prefixes id when the caller supplied one (restores keep ids).
func insertColumns(id int64, cols string, args []any) (string, string, []any) {
	n := len(args)
	if id != 0 {
		cols = "id, " + cols
		args = append([]any{id}, args...)
		n++
	}
	ph := "?"
	for i := 1; i < n; i++ {
		ph += ", ?"
	}
	return cols, ph, args
}

func (c *Conn) insert(table string, id int64, cols string, args []any) (string, []any) {
	cols, ph, args := insertColumns(id, cols, args)
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) RETURNING id", table, cols, ph), args
}
