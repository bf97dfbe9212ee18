package server

import (
	"net/http"

	"github.com/meltforce/liftlog/internal/models"
	"github.com/meltforce/liftlog/internal/storage"
)

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, userInfoFromContext(r))
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.db.GetDataStats(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleGetPreferences(w http.ResponseWriter, r *http.Request) {
	prefs, err := s.db.GetPreferences(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if prefs == nil {
		d := models.DefaultPreferences()
		prefs = &d
	}
	writeJSON(w, http.StatusOK, prefs)
}

func (s *Server) handleSavePreferences(w http.ResponseWriter, r *http.Request) {
	var prefs models.UserPreferences
	if err := decodeJSON(w, r, &prefs); err != nil {
		s.writeError(w, r, err)
		return
	}
	if !prefs.WeightUnit.Valid() {
		s.writeError(w, r, badRequest("unknown weight unit %q", prefs.WeightUnit))
		return
	}
	if !prefs.Theme.Valid() {
		s.writeError(w, r, badRequest("unknown theme %q", prefs.Theme))
		return
	}
	if prefs.DefaultIncrement <= 0 {
		s.writeError(w, r, badRequest("defaultIncrement must be positive"))
		return
	}

	// The seed version is owned by the seeder.
	err := s.db.WithTx(r.Context(), func(tx *storage.Tx) error {
		current, err := tx.GetPreferences(r.Context())
		if err != nil {
			return err
		}
		prefs.ID = models.PreferencesID
		prefs.SeedVersion = nil
		if current != nil {
			prefs.SeedVersion = current.SeedVersion
		}
		return tx.SavePreferences(r.Context(), &prefs)
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, prefs)
}
