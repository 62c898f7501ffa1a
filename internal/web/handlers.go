package web

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/JonMunkholm/asistencia/internal/core"
	"github.com/JonMunkholm/asistencia/internal/logging"
)

// healthTimeout bounds the store ping in /healthz.
const healthTimeout = 2 * time.Second

// handleKiosk renders the registration page.
func (s *Server) handleKiosk(w http.ResponseWriter, r *http.Request) {
	s.renderKiosk(w, r, http.StatusOK, KioskParams{})
}

// handleKioskSubmit handles the kiosk form post. htmx requests get only the
// result fragment; plain form posts get the whole page back.
func (s *Server) handleKioskSubmit(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		s.respondError(w, r, core.ErrInvalidInput, http.StatusBadRequest)
		return
	}

	ctx := WithRequestMetadata(r.Context(), r)
	a, err := s.service.Register(ctx, r.PostFormValue("matricula"))
	if err != nil {
		status := statusFor(err)
		if isHTMX(r) {
			s.respondError(w, r, err, status)
			return
		}
		logging.FromContext(ctx).Info("kiosk registration rejected", "error", err)
		msg := core.MapError(err)
		s.renderKiosk(w, r, status, KioskParams{Error: &msg})
		return
	}

	if isHTMX(r) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusCreated)
		RegistrationResult(a).Render(r.Context(), w)
		return
	}
	s.renderKiosk(w, r, http.StatusCreated, KioskParams{Result: &a})
}

func (s *Server) renderKiosk(w http.ResponseWriter, r *http.Request, status int, p KioskParams) {
	p.Today = s.service.Today()
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := KioskPage(p).Render(r.Context(), w); err != nil {
		logging.FromContext(r.Context()).Error("render kiosk", "error", err)
	}
}

type registerRequest struct {
	Matricula string `json:"matricula"`
}

// handleRegister is the kiosk JSON endpoint.
func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.respondError(w, r, err, http.StatusBadRequest)
		return
	}

	a, err := s.service.Register(WithRequestMetadata(r.Context(), r), req.Matricula)
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}
	writeJSON(w, http.StatusCreated, a)
}

// handleHealth reports liveness and store reachability.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
	defer cancel()

	resp := map[string]string{
		"status":    "ok",
		"store":     s.service.Store().Kind(),
		"requestId": requestID(r),
	}
	status := http.StatusOK
	if err := s.service.Store().Ping(ctx); err != nil {
		logging.FromContext(ctx).Warn("health check: store unreachable", "error", err)
		resp["status"] = "degraded"
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, resp)
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
	Role      core.Role `json:"role"`
}

// handleLogin exchanges credentials for a bearer token.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.respondError(w, r, err, http.StatusBadRequest)
		return
	}

	ctx := WithRequestMetadata(r.Context(), r)
	user, err := s.service.Authenticate(ctx, strings.TrimSpace(req.Username), req.Password)
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}

	token, expires, err := s.issuer.Issue(user.Username, string(user.Role))
	if err != nil {
		s.respondError(w, r, err, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, loginResponse{Token: token, ExpiresAt: expires, Role: user.Role})
}
