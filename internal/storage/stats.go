package storage

import (
	"context"
	"fmt"
	"time"
)

// DataStats holds row counts and the span of recorded sessions.
type DataStats struct {
	Exercises       int64      `json:"exercises"`
	Templates       int64      `json:"templates"`
	Sessions        int64      `json:"sessions"`
	ActiveSessions  int64      `json:"active_sessions"`
	Sets            int64      `json:"sets"`
	EarliestSession *time.Time `json:"earliest_session"`
	LatestSession   *time.Time `json:"latest_session"`
}

// Count returns the number of rows in a table. table must be one of AllTables.
func (c *Conn) Count(ctx context.Context, table string) (int64, error) {
	if !knownTable(table) {
		return 0, fmt.Errorf("unknown table %q", table)
	}
	var n int64
	if err := c.queryRow(ctx, `SELECT COUNT(*) FROM `+table).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting %s: %w", table, err)
	}
	return n, nil
}

// GetDataStats returns aggregate statistics for the stored data.
func (c *Conn) GetDataStats(ctx context.Context) (*DataStats, error) {
	stats := &DataStats{}
	counts := []struct {
		table string
		dst   *int64
	}{
		{TableExercises, &stats.Exercises},
		{TableWorkoutTemplates, &stats.Templates},
		{TableWorkoutSessions, &stats.Sessions},
		{TableWorkoutSets, &stats.Sets},
	}
	for _, cnt := range counts {
		n, err := c.Count(ctx, cnt.table)
		if err != nil {
			return nil, err
		}
		*cnt.dst = n
	}

	err := c.queryRow(ctx,
		`SELECT COUNT(*) FROM workout_sessions WHERE completed_at IS NULL`,
	).Scan(&stats.ActiveSessions)
	if err != nil {
		return nil, fmt.Errorf("counting active sessions: %w", err)
	}

	// MIN/MAX lose the column type on SQLite, so read the boundary rows instead.
	if stats.Sessions > 0 {
		var first, last time.Time
		if err := c.queryRow(ctx, `SELECT started_at FROM workout_sessions ORDER BY started_at, id LIMIT 1`).Scan(&first); err != nil {
			return nil, fmt.Errorf("querying earliest session: %w", err)
		}
		if err := c.queryRow(ctx, `SELECT started_at FROM workout_sessions ORDER BY started_at DESC, id DESC LIMIT 1`).Scan(&last); err != nil {
			return nil, fmt.Errorf("querying latest session: %w", err)
		}
		stats.EarliestSession = &first
		stats.LatestSession = &last
	}
	return stats, nil
}

func knownTable(table string) bool {
	for _, t := range allTables {
		if t == table {
			return true
		}
	}
	return false
}
