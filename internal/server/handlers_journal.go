package server

import (
	"net/http"

	"github.com/meltforce/liftlog/internal/journal"
)

type startSessionRequest struct {
	TemplateID int64 `json:"templateId"`
	DayIndex   int   `json:"dayIndex"`
}

func (s *Server) handleStartSession(w http.ResponseWriter, r *http.Request) {
	var req startSessionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	tmpl, err := s.db.GetTemplate(r.Context(), req.TemplateID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if req.DayIndex < 0 || (len(tmpl.SplitDays) > 0 && req.DayIndex >= len(tmpl.SplitDays)) {
		s.writeError(w, r, badRequest("template %d has no day %d", req.TemplateID, req.DayIndex))
		return
	}
	id, err := s.journal.Start(r.Context(), req.TemplateID, req.DayIndex)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	created(w, id)
}

func (s *Server) handleActiveSession(w http.ResponseWriter, r *http.Request) {
	active, err := s.journal.Active(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	// session is null when nothing is in progress.
	writeJSON(w, http.StatusOK, map[string]any{"session": active})
}

func (s *Server) handleSessionSets(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if _, err := s.db.GetSession(r.Context(), id); err != nil {
		s.writeError(w, r, err)
		return
	}
	sets, err := s.journal.Sets(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, orEmpty(sets))
}

func (s *Server) handlePreviousSets(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	day, err := intParam(r, "day")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	sets, err := s.journal.PreviousSets(r.Context(), id, day)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, orEmpty(sets))
}

type logSetRequest struct {
	ExerciseID int64   `json:"exerciseId"`
	Weight     float64 `json:"weight"`
	Reps       int     `json:"reps"`
	journal.SetDetails
}

func (s *Server) handleLogSet(w http.ResponseWriter, r *http.Request) {
	sessionID, err := idParam(r, "id")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var req logSetRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if req.ExerciseID <= 0 {
		s.writeError(w, r, badRequest("exerciseId is required"))
		return
	}
	id, err := s.journal.LogSet(r.Context(), sessionID, req.ExerciseID, req.Weight, req.Reps, req.SetDetails)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	created(w, id)
}

func (s *Server) handleUpdateSet(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var u journal.SetUpdate
	if err := decodeJSON(w, r, &u); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.journal.UpdateSet(r.Context(), id, u); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDeleteSet(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.journal.DeleteSet(r.Context(), id); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleCompleteSession(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.journal.Complete(r.Context(), id); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type rateSessionRequest struct {
	Mood   int    `json:"mood"`
	Energy int    `json:"energy"`
	Notes  string `json:"notes"`
}

func (s *Server) handleRateSession(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var req rateSessionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.journal.RecordMoodEnergy(r.Context(), id, req.Mood, req.Energy, req.Notes); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleCancelSession(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.journal.Cancel(r.Context(), id); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
