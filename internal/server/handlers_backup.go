package server

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"time"

	"github.com/meltforce/liftlog/internal/backup"
)

// maxImportBytes caps uploaded backup files.
var maxImportBytes int64 = 64 << 20

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	doc, err := s.backup.Export(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, backup.FileName(time.Now())))
	writeJSON(w, http.StatusOK, doc)
}

// readImport returns the uploaded backup: the "file" field of a multipart
// form, or the raw request body.
func readImport(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxImportBytes)
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType != "multipart/form-data" {
		data, err := io.ReadAll(r.Body)
		if err != nil {
			return nil, uploadError(err)
		}
		return data, nil
	}
	if err := r.ParseMultipartForm(maxImportBytes); err != nil {
		return nil, uploadError(err)
	}
	f, _, err := r.FormFile("file")
	if err != nil {
		return nil, badRequest("missing file field")
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return nil, uploadError(err)
	}
	return data, nil
}

// uploadError classifies a failed upload read as too large or malformed.
func uploadError(err error) error {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return fmt.Errorf("%w: limit is %d MB", errTooLarge, tooLarge.Limit>>20)
	}
	return badRequest("reading upload: %v", err)
}

func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	raw, err := readImport(w, r)
	if err != nil {
		s.metrics.ImportFinished("file", false)
		writeJSON(w, statusFor(err), backup.Result{Error: err.Error()})
		return
	}
	writeResult(w, s.backup.Import(r.Context(), raw))
}

func (s *Server) handleSnapshotMeta(w http.ResponseWriter, r *http.Request) {
	meta, err := s.backup.Meta(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, meta)
}

func (s *Server) handleSaveSnapshot(w http.ResponseWriter, r *http.Request) {
	if err := s.backup.SaveSnapshot(r.Context()); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleRestoreSnapshot(w http.ResponseWriter, r *http.Request) {
	writeResult(w, s.backup.RestoreSnapshot(r.Context()))
}

// writeResult reports an import or restore. Failures keep the result shape.
func writeResult(w http.ResponseWriter, res backup.Result) {
	status := http.StatusOK
	if !res.Success {
		status = http.StatusUnprocessableEntity
	}
	writeJSON(w, status, res)
}

func (s *Server) handleAlphaIngest(w http.ResponseWriter, r *http.Request) {
	raw, err := readImport(w, r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	result, err := s.alpha.Ingest(r.Context(), bytes.NewReader(raw))
	s.metrics.ImportFinished("alpha", err == nil)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}
