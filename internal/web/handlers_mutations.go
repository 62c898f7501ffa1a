package web

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/asistencia/internal/core"
)

// handleSaveStudent creates or updates one roster entry.
func (s *Server) handleSaveStudent(w http.ResponseWriter, r *http.Request) {
	var in core.StudentInput
	if err := decodeJSON(w, r, &in); err != nil {
		s.respondError(w, r, err, http.StatusBadRequest)
		return
	}

	st, created, err := s.service.SaveStudent(WithRequestMetadata(r.Context(), r), in)
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	writeJSON(w, status, st)
}

func (s *Server) handleDeleteStudent(w http.ResponseWriter, r *http.Request) {
	ctx := WithRequestMetadata(r.Context(), r)
	if err := s.service.DeleteStudent(ctx, chi.URLParam(r, "matricula")); err != nil {
		s.respondError(w, r, err, 0)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleManualAttendance records a registration on behalf of a student.
func (s *Server) handleManualAttendance(w http.ResponseWriter, r *http.Request) {
	var in core.ManualEntry
	if err := decodeJSON(w, r, &in); err != nil {
		s.respondError(w, r, err, http.StatusBadRequest)
		return
	}

	a, err := s.service.RecordAttendance(WithRequestMetadata(r.Context(), r), in)
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}
	writeJSON(w, http.StatusCreated, a)
}

func (s *Server) handleDeleteAttendance(w http.ResponseWriter, r *http.Request) {
	ctx := WithRequestMetadata(r.Context(), r)
	if err := s.service.DeleteAttendance(ctx, chi.URLParam(r, "id")); err != nil {
		s.respondError(w, r, err, 0)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := s.service.ListUsers(r.Context())
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}
	writeJSON(w, http.StatusOK, users)
}

type createUserRequest struct {
	Username string    `json:"username"`
	Password string    `json:"password"`
	Role     core.Role `json:"role"`
}

// handleCreateUser adds an administrator or viewer account. Role defaults
// to viewer.
func (s *Server) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.respondError(w, r, err, http.StatusBadRequest)
		return
	}
	if req.Role == "" {
		req.Role = core.RoleViewer
	}

	ctx := WithRequestMetadata(r.Context(), r)
	user, err := s.service.CreateUser(ctx, strings.TrimSpace(req.Username), req.Password, req.Role)
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}
	writeJSON(w, http.StatusCreated, user)
}
