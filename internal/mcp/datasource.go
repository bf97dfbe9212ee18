package mcp

import (
	"context"

	"github.com/meltforce/liftlog/internal/analytics"
	"github.com/meltforce/liftlog/internal/models"
)

// DataSource abstracts the data layer for MCP tools. Both *analytics.Engine
// (local) and HTTPClient (remote via REST API) satisfy this interface.
type DataSource interface {
	Exercises(ctx context.Context) ([]models.Exercise, error)
	Summaries(ctx context.Context, r analytics.Range) ([]analytics.SessionSummary, error)
	StrengthCurve(ctx context.Context, exerciseID int64, r analytics.Range) ([]analytics.StrengthPoint, error)
	MoodEnergy(ctx context.Context) ([]analytics.MoodEnergyInsight, error)
	Streaks(ctx context.Context) (*analytics.StreakData, error)
	Plateaus(ctx context.Context, minStalled int) ([]analytics.PlateauAlert, error)
	Dashboard(ctx context.Context, r analytics.Range) (*analytics.Dashboard, error)
}

// Compile-time check: *analytics.Engine satisfies DataSource.
var _ DataSource = (*analytics.Engine)(nil)
