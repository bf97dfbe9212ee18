package server

import (
	"net/http"
	"strconv"

	"github.com/meltforce/liftlog/internal/analytics"
)

func rangeQuery(r *http.Request) (analytics.Range, error) {
	return analytics.ParseRange(r.URL.Query().Get("range"))
}

func (s *Server) handleSummaries(w http.ResponseWriter, r *http.Request) {
	rng, err := rangeQuery(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	summaries, err := s.engine.Summaries(r.Context(), rng)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, orEmpty(summaries))
}

func (s *Server) handleStrengthCurve(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "exerciseId")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	rng, err := rangeQuery(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	points, err := s.engine.StrengthCurve(r.Context(), id, rng)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, orEmpty(points))
}

func (s *Server) handleMoodEnergy(w http.ResponseWriter, r *http.Request) {
	insights, err := s.engine.MoodEnergy(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, orEmpty(insights))
}

func (s *Server) handleStreaks(w http.ResponseWriter, r *http.Request) {
	streaks, err := s.engine.Streaks(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, streaks)
}

func (s *Server) handlePlateaus(w http.ResponseWriter, r *http.Request) {
	var minStalled int
	if v := r.URL.Query().Get("min"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			s.writeError(w, r, badRequest("min must be a positive integer"))
			return
		}
		minStalled = n
	}
	alerts, err := s.engine.Plateaus(r.Context(), minStalled)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, orEmpty(alerts))
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	rng, err := rangeQuery(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	d, err := s.engine.Dashboard(r.Context(), rng)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}
