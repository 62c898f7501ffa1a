package web

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/asistencia/internal/core"
	"github.com/JonMunkholm/asistencia/internal/logging"
)

// handleImport loads a roster or attendance CSV. Row-level failures are
// reported in the result; only file-level problems fail the request.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	kind := chi.URLParam(r, "kind")

	data, fileName, err := s.readUpload(w, r)
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}

	ctx := WithRequestMetadata(r.Context(), r)
	res, err := s.service.Import(ctx, kind, fileName, data)
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}

	logging.FromContext(ctx).Info("import finished",
		"kind", res.Kind,
		"file", res.FileName,
		"inserted", res.Inserted,
		"updated", res.Updated,
		"skipped", res.Skipped,
		"failed", len(res.FailedRows),
	)
	writeJSON(w, http.StatusOK, res)
}

// handleRepairPreview reports how an uploaded file would be decoded
// without importing it.
func (s *Server) handleRepairPreview(w http.ResponseWriter, r *http.Request) {
	data, fileName, err := s.readUpload(w, r)
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}

	rep, err := core.PreviewRepair(fileName, data)
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}
	writeJSON(w, http.StatusOK, rep)
}
