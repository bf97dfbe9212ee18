package server

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/meltforce/liftlog/internal/analytics"
	"github.com/meltforce/liftlog/internal/backup"
	"github.com/meltforce/liftlog/internal/ingest/alpha"
	"github.com/meltforce/liftlog/internal/journal"
	"github.com/meltforce/liftlog/internal/live"
	"github.com/meltforce/liftlog/internal/planedit"
	"github.com/meltforce/liftlog/internal/storage"
	"github.com/meltforce/liftlog/internal/telemetry"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
)

// Deps are the services exposed over HTTP. Alpha, Registry and MCP are optional.
type Deps struct {
	DB        *storage.DB
	Journal   *journal.Journal
	Editor    *planedit.Editor
	Analytics *analytics.Engine
	Backup    *backup.Service
	Alpha     *alpha.Provider
	Hub       *live.Hub
	Metrics   *telemetry.Metrics
	Registry  *prometheus.Registry
	MCP       *mcpserver.MCPServer
}

// Options configures authentication and CORS.
type Options struct {
	APIKey      string
	CORSOrigins []string
}

// Server holds dependencies for HTTP handlers.
type Server struct {
	db      *storage.DB
	journal *journal.Journal
	editor  *planedit.Editor
	engine  *analytics.Engine
	backup  *backup.Service
	alpha   *alpha.Provider
	hub     *live.Hub
	metrics *telemetry.Metrics
	log     *slog.Logger
	opts    Options
	whois   WhoIser
	router  chi.Router
}

// New creates a new Server with all routes configured.
func New(d Deps, opts Options, log *slog.Logger) *Server {
	s := &Server{
		db:      d.DB,
		journal: d.Journal,
		editor:  d.Editor,
		engine:  d.Analytics,
		backup:  d.Backup,
		alpha:   d.Alpha,
		hub:     d.Hub,
		metrics: d.Metrics,
		log:     log,
		opts:    opts,
		router:  chi.NewRouter(),
	}
	s.routes(d)
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// SetTailscale enables tailnet identity lookup for /api/v1/me.
func (s *Server) SetTailscale(w WhoIser) {
	s.whois = w
}

func (s *Server) routes(d Deps) {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.Recoverer)
	s.router.Use(RequestLogging(s.log, s.metrics))
	// Without configured origins no CORS headers are sent, so browsers keep
	// the API same-origin.
	if len(s.opts.CORSOrigins) > 0 {
		s.router.Use(cors.New(cors.Options{
			AllowedOrigins: s.opts.CORSOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
			AllowedHeaders: []string{"Content-Type", "X-API-Key"},
		}).Handler)
	}
	s.router.Use(s.identity)

	if d.Registry != nil {
		s.router.Handle("/metrics", promhttp.HandlerFor(d.Registry, promhttp.HandlerOpts{}))
	}
	if d.MCP != nil {
		s.router.Handle("/mcp", mcpserver.NewStreamableHTTPServer(d.MCP, mcpserver.WithEndpointPath("/mcp")))
	}

	s.router.Route("/api/v1", func(r chi.Router) {
		// Reads (no auth, tsnet handles access)
		r.Get("/me", s.handleMe)
		r.Get("/stats", s.handleStats)
		r.Get("/preferences", s.handleGetPreferences)
		r.Get("/exercises", s.handleListExercises)
		r.Get("/exercises/{id}/history", s.handleExerciseHistory)
		r.Get("/templates", s.handleListTemplates)
		r.Get("/templates/{id}/parts", s.handleTemplateParts)
		r.Get("/templates/{id}/days/{day}/previous", s.handlePreviousSets)
		r.Get("/sessions/active", s.handleActiveSession)
		r.Get("/sessions/{id}/sets", s.handleSessionSets)

		r.Route("/analytics", func(r chi.Router) {
			r.Get("/summaries", s.handleSummaries)
			r.Get("/strength/{exerciseId}", s.handleStrengthCurve)
			r.Get("/mood-energy", s.handleMoodEnergy)
			r.Get("/streaks", s.handleStreaks)
			r.Get("/plateaus", s.handlePlateaus)
			r.Get("/dashboard", s.handleDashboard)
		})

		r.Get("/backup/export", s.handleExport)
		r.Get("/backup/snapshot", s.handleSnapshotMeta)

		r.Get("/live", s.handleLive)
		r.Get("/live/events", s.handleLiveEvents)

		// Writes (API key required when configured)
		r.Group(func(r chi.Router) {
			r.Use(OriginGuard(s.opts.CORSOrigins))
			r.Use(RequireMediaType)
			if s.opts.APIKey != "" {
				r.Use(APIKeyAuth(s.opts.APIKey))
			}
			r.Put("/preferences", s.handleSavePreferences)
			r.Post("/exercises", s.handleCreateExercise)
			r.Delete("/exercises/{id}", s.handleDeleteExercise)

			r.Post("/templates/{id}/days/{day}/parts", s.handleAddPart)
			r.Post("/parts/merge", s.handleMergeParts)
			r.Post("/parts/{id}/split", s.handleSplitPart)
			r.Post("/parts/{id}/rounds", s.handleSplitRounds)
			r.Patch("/parts/{id}", s.handleUpdatePart)
			r.Delete("/parts/{id}", s.handleDeletePart)
			r.Post("/parts/{id}/exercises", s.handleAddPartExercise)
			r.Delete("/template-exercises/{id}", s.handleRemovePartExercise)

			r.Post("/sessions", s.handleStartSession)
			r.Post("/sessions/{id}/sets", s.handleLogSet)
			r.Post("/sessions/{id}/complete", s.handleCompleteSession)
			r.Post("/sessions/{id}/mood", s.handleRateSession)
			r.Delete("/sessions/{id}", s.handleCancelSession)
			r.Patch("/sets/{id}", s.handleUpdateSet)
			r.Delete("/sets/{id}", s.handleDeleteSet)

			r.Post("/backup/import", s.handleImport)
			r.Post("/backup/snapshot", s.handleSaveSnapshot)
			r.Post("/backup/snapshot/restore", s.handleRestoreSnapshot)

			if s.alpha != nil {
				r.Post("/ingest/alpha", s.handleAlphaIngest)
			}
		})
	})
}
