package web

import (
	"net/http"
)

// handleListAudit returns audit entries, newest first.
func (s *Server) handleListAudit(w http.ResponseWriter, r *http.Request) {
	f, err := s.auditFilter(r)
	if err != nil {
		s.respondError(w, r, err, http.StatusBadRequest)
		return
	}

	entries, err := s.service.ListAudit(r.Context(), f)
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

// handleBackup writes a snapshot on demand.
func (s *Server) handleBackup(w http.ResponseWriter, r *http.Request) {
	res, err := s.service.Backup(WithRequestMetadata(r.Context(), r))
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

func (s *Server) handleDiagnostics(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.service.Diagnose(r.Context()))
}
