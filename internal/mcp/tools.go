package mcp

import (
	"context"
	"fmt"
	"strings"

	"github.com/meltforce/liftlog/internal/analytics"
	"github.com/meltforce/liftlog/internal/models"
	"github.com/mark3labs/mcp-go/mcp"
)

var rangeEnum = mcp.Enum("7d", "30d", "90d", "180d", "1y", "all")

// --- Tool definitions ---

var toolGetSessionSummaries = mcp.NewTool("get_session_summaries",
	mcp.WithDescription("Completed workout sessions, most recent first, with total volume (weight x reps), set count and duration in minutes. Also returns the average session volume."),
	mcp.WithString("range", mcp.Description("Look-back window. Defaults to 30d."), rangeEnum),
)

var toolGetStrengthCurve = mcp.NewTool("get_strength_curve",
	mcp.WithDescription("Per-session strength progression for one exercise: heaviest weight and best single-set volume, oldest first."),
	mcp.WithString("exercise", mcp.Required(), mcp.Description("Exercise id, or a name (case-insensitive partial match, e.g. 'bench press')")),
	mcp.WithString("range", mcp.Description("Look-back window. Defaults to all."), rangeEnum),
)

var toolGetMoodEnergy = mcp.NewTool("get_mood_energy",
	mcp.WithDescription("Average session volume grouped by the mood and energy ratings (1-10) given after each workout, plus the pairing with the highest average volume."),
)

var toolGetStreaks = mcp.NewTool("get_streaks",
	mcp.WithDescription("Weekly training streaks: consecutive Monday-to-Sunday weeks with at least one completed workout, current and longest, plus every workout date."),
)

var toolDetectPlateaus = mcp.NewTool("detect_plateaus",
	mcp.WithDescription("Exercises whose top working weight has not increased over recent sessions. Returns the stalled session count and the most recent top weight and reps."),
	mcp.WithNumber("min_sessions", mcp.Description("Stalled sessions needed to raise an alert. Defaults to the configured threshold (3 unless changed).")),
)

var toolListExercises = mcp.NewTool("list_exercises",
	mcp.WithDescription("List exercises with ids, primary muscle group and equipment. Optionally filter by muscle group."),
	mcp.WithString("muscle_group", mcp.Description("Only exercises whose primary muscle group matches (e.g. chest, quads)")),
)

// --- Tool handlers ---

func parseRange(s, def string) (analytics.Range, error) {
	if s == "" {
		s = def
	}
	return analytics.ParseRange(s)
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	result, err := mcp.NewToolResultJSON(v)
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}

func (h *handlers) getSessionSummaries(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	r, err := parseRange(req.GetString("range", ""), "30d")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	summaries, err := h.ds.Summaries(ctx, r)
	if err != nil {
		h.log.Error("mcp get_session_summaries", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}

	return jsonResult(map[string]any{
		"range":          r,
		"average_volume": analytics.AverageVolume(summaries),
		"sessions":       summaries,
	})
}

// resolveExercise accepts an id or a partial name. Ambiguous names are an error.
func (h *handlers) resolveExercise(ctx context.Context, ref string) (int64, string, error) {
	exercises, err := h.ds.Exercises(ctx)
	if err != nil {
		return 0, "", err
	}
	var id int64
	if _, err := fmt.Sscan(ref, &id); err == nil {
		for _, e := range exercises {
			if e.ID == id {
				return e.ID, e.Name, nil
			}
		}
		return 0, "", fmt.Errorf("no exercise with id %d", id)
	}

	needle := strings.ToLower(strings.TrimSpace(ref))
	var matches []string
	var matchID int64
	for _, e := range exercises {
		name := strings.ToLower(e.Name)
		if name == needle {
			return e.ID, e.Name, nil
		}
		if strings.Contains(name, needle) {
			matches = append(matches, e.Name)
			matchID = e.ID
		}
	}
	switch len(matches) {
	case 0:
		return 0, "", fmt.Errorf("no exercise matches %q", ref)
	case 1:
		return matchID, matches[0], nil
	default:
		return 0, "", fmt.Errorf("%q matches several exercises: %s", ref, strings.Join(matches, ", "))
	}
}

func (h *handlers) getStrengthCurve(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ref, err := req.RequireString("exercise")
	if err != nil {
		return mcp.NewToolResultError("exercise parameter is required"), nil
	}
	r, err := parseRange(req.GetString("range", ""), "all")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	id, name, err := h.resolveExercise(ctx, ref)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	points, err := h.ds.StrengthCurve(ctx, id, r)
	if err != nil {
		h.log.Error("mcp get_strength_curve", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}

	return jsonResult(map[string]any{
		"exercise_id":   id,
		"exercise_name": name,
		"range":         r,
		"points":        points,
	})
}

func (h *handlers) getMoodEnergy(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	insights, err := h.ds.MoodEnergy(ctx)
	if err != nil {
		h.log.Error("mcp get_mood_energy", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}
	return jsonResult(map[string]any{
		"groups": insights,
		"best":   analytics.BestMoodEnergy(insights),
	})
}

func (h *handlers) getStreaks(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	streaks, err := h.ds.Streaks(ctx)
	if err != nil {
		h.log.Error("mcp get_streaks", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}
	return jsonResult(streaks)
}

func (h *handlers) detectPlateaus(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	// Absent means the server's configured threshold.
	minSessions := req.GetInt("min_sessions", 0)
	if _, set := req.GetArguments()["min_sessions"]; set && minSessions < 1 {
		return mcp.NewToolResultError("min_sessions must be at least 1"), nil
	}

	alerts, err := h.ds.Plateaus(ctx, minSessions)
	if err != nil {
		h.log.Error("mcp detect_plateaus", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}
	return jsonResult(alerts)
}

func (h *handlers) listExercises(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	exercises, err := h.ds.Exercises(ctx)
	if err != nil {
		h.log.Error("mcp list_exercises", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}
	if mg := req.GetString("muscle_group", ""); mg != "" {
		var filtered []models.Exercise
		for _, e := range exercises {
			if strings.EqualFold(string(e.MuscleGroup), mg) {
				filtered = append(filtered, e)
			}
		}
		exercises = filtered
	}
	return jsonResult(exercises)
}
