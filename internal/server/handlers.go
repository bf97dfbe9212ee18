package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/meltforce/liftlog/internal/analytics"
	"github.com/meltforce/liftlog/internal/backup"
	"github.com/meltforce/liftlog/internal/ingest/alpha"
	"github.com/meltforce/liftlog/internal/journal"
	"github.com/meltforce/liftlog/internal/models"
	"github.com/meltforce/liftlog/internal/planedit"
	"github.com/meltforce/liftlog/internal/storage"
)

// maxBodyBytes caps JSON request bodies. Backup imports use maxImportBytes.
const maxBodyBytes = 1 << 20

// errBadRequest marks client input errors found by handlers.
var errBadRequest = errors.New("bad request")

// errTooLarge marks request bodies over their size cap.
var errTooLarge = errors.New("upload too large")

func badRequest(format string, args ...any) error {
	return fmt.Errorf("%w: %s", errBadRequest, fmt.Sprintf(format, args...))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, storage.ErrNotFound), errors.Is(err, backup.ErrNoSnapshot):
		return http.StatusNotFound
	case errors.Is(err, journal.ErrSessionActive), errors.Is(err, storage.ErrExerciseInUse):
		return http.StatusConflict
	case errors.Is(err, errTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, errBadRequest),
		errors.Is(err, journal.ErrInvalidRPE),
		errors.Is(err, journal.ErrInvalidRating),
		errors.Is(err, analytics.ErrUnknownRange),
		errors.Is(err, planedit.ErrInvalidStructure),
		errors.Is(err, planedit.ErrInvalidSlot),
		errors.Is(err, alpha.ErrMalformed):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		s.log.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return badRequest("invalid JSON: %v", err)
	}
	return nil
}

func idParam(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, badRequest("invalid %s", name)
	}
	return id, nil
}

func intParam(r *http.Request, name string) (int, error) {
	n, err := strconv.Atoi(chi.URLParam(r, name))
	if err != nil || n < 0 {
		return 0, badRequest("invalid %s", name)
	}
	return n, nil
}

// orEmpty keeps list responses as [] rather than null.
func orEmpty[T any](v []T) []T {
	if v == nil {
		return []T{}
	}
	return v
}

func created(w http.ResponseWriter, id int64) {
	writeJSON(w, http.StatusCreated, map[string]int64{"id": id})
}

// --- Exercises ---

func (s *Server) handleListExercises(w http.ResponseWriter, r *http.Request) {
	exercises, err := s.db.ListExercises(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, orEmpty(exercises))
}

type createExerciseRequest struct {
	Name             string               `json:"name"`
	MuscleGroup      models.MuscleGroup   `json:"muscleGroup"`
	SecondaryMuscles []models.MuscleGroup `json:"secondaryMuscles"`
	Equipment        models.Equipment     `json:"equipment"`
}

func (req createExerciseRequest) validate() error {
	if strings.TrimSpace(req.Name) == "" {
		return badRequest("name is required")
	}
	if !req.MuscleGroup.Valid() {
		return badRequest("unknown muscle group %q", req.MuscleGroup)
	}
	for _, g := range req.SecondaryMuscles {
		if !g.Valid() {
			return badRequest("unknown muscle group %q", g)
		}
	}
	if !req.Equipment.Valid() {
		return badRequest("unknown equipment %q", req.Equipment)
	}
	return nil
}

func (s *Server) handleCreateExercise(w http.ResponseWriter, r *http.Request) {
	var req createExerciseRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := req.validate(); err != nil {
		s.writeError(w, r, err)
		return
	}
	e := models.Exercise{
		Name:             strings.TrimSpace(req.Name),
		MuscleGroup:      req.MuscleGroup,
		SecondaryMuscles: req.SecondaryMuscles,
		Equipment:        req.Equipment,
		IsCustom:         true,
	}
	if err := s.db.InsertExercise(r.Context(), &e); err != nil {
		s.writeError(w, r, err)
		return
	}
	created(w, e.ID)
}

func (s *Server) handleDeleteExercise(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.db.DeleteExercise(r.Context(), id); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleExerciseHistory(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if _, err := s.db.GetExercise(r.Context(), id); err != nil {
		s.writeError(w, r, err)
		return
	}
	h, err := s.journal.ExerciseHistory(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, h)
}

// --- Templates and plan edits ---

func (s *Server) handleListTemplates(w http.ResponseWriter, r *http.Request) {
	templates, err := s.db.ListTemplates(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, orEmpty(templates))
}

func (s *Server) handleTemplateParts(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if _, err := s.db.GetTemplate(r.Context(), id); err != nil {
		s.writeError(w, r, err)
		return
	}
	parts, err := s.editor.Parts(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, orEmpty(parts))
}

func (s *Server) handleAddPart(w http.ResponseWriter, r *http.Request) {
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
	var req struct {
		Name string `json:"name"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	partID, err := s.editor.AddPart(r.Context(), id, day, req.Name)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	created(w, partID)
}

func (s *Server) handleMergeParts(w http.ResponseWriter, r *http.Request) {
	var req struct {
		PartIDs []int64 `json:"partIds"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	id, err := s.editor.MergeParts(r.Context(), req.PartIDs)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	// partId is 0 when the parts could not be merged.
	writeJSON(w, http.StatusOK, map[string]int64{"partId": id})
}

func (s *Server) handleSplitPart(w http.ResponseWriter, r *http.Request) {
	s.splitPart(w, r, s.editor.SplitInHalf)
}

func (s *Server) handleSplitRounds(w http.ResponseWriter, r *http.Request) {
	s.splitPart(w, r, s.editor.SplitIntoRounds)
}

func (s *Server) splitPart(w http.ResponseWriter, r *http.Request, split func(ctx context.Context, partID int64) ([]int64, error)) {
	id, err := idParam(r, "id")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	ids, err := split(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if ids == nil {
		ids = []int64{}
	}
	writeJSON(w, http.StatusOK, map[string][]int64{"partIds": ids})
}

type updatePartRequest struct {
	Name      *string           `json:"name"`
	Structure *models.Structure `json:"structure"`
}

func (s *Server) handleUpdatePart(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var req updatePartRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.editor.UpdatePart(r.Context(), id, planedit.PartUpdate{Name: req.Name, Structure: req.Structure}); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDeletePart(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.editor.DeletePart(r.Context(), id); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleAddPartExercise(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var slot planedit.Slot
	if err := decodeJSON(w, r, &slot); err != nil {
		s.writeError(w, r, err)
		return
	}
	teID, err := s.editor.AddExercise(r.Context(), id, slot)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	created(w, teID)
}

func (s *Server) handleRemovePartExercise(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.editor.RemoveExercise(r.Context(), id); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
