package mcp

import (
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// New creates an MCP server with all tools and resources registered.
func New(ds DataSource, version string, log *slog.Logger) *server.MCPServer {
	s := server.NewMCPServer("LiftLog", version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
		server.WithInstructions("LiftLog strength training journal. Query completed workout summaries, per-exercise strength curves, mood and energy correlations, weekly streaks and plateau alerts. Weights are in the user's configured unit."),
	)

	h := &handlers{ds: ds, log: log}

	// Tools
	s.AddTools(
		server.ServerTool{Tool: toolGetSessionSummaries, Handler: h.getSessionSummaries},
		server.ServerTool{Tool: toolGetStrengthCurve, Handler: h.getStrengthCurve},
		server.ServerTool{Tool: toolGetMoodEnergy, Handler: h.getMoodEnergy},
		server.ServerTool{Tool: toolGetStreaks, Handler: h.getStreaks},
		server.ServerTool{Tool: toolDetectPlateaus, Handler: h.detectPlateaus},
		server.ServerTool{Tool: toolListExercises, Handler: h.listExercises},
	)

	// Resources
	s.AddResources(
		server.ServerResource{Resource: resProgressDashboard, Handler: h.progressDashboard},
		server.ServerResource{Resource: resExerciseCatalog, Handler: h.exerciseCatalog},
	)

	return s
}

// handlers holds dependencies for MCP tool/resource handlers.
type handlers struct {
	ds  DataSource
	log *slog.Logger
}

// --- Resource definitions ---

var resProgressDashboard = mcp.NewResource(
	"liftlog://progress_dashboard",
	"Progress Dashboard",
	mcp.WithResourceDescription("Last 30 days of sessions with average volume, volume trend, streaks, plateau alerts and the best mood/energy pairing"),
	mcp.WithMIMEType("application/json"),
)

var resExerciseCatalog = mcp.NewResource(
	"liftlog://exercise_catalog",
	"Exercise Catalog",
	mcp.WithResourceDescription("All exercises with their ids, muscle groups and equipment"),
	mcp.WithMIMEType("application/json"),
)
