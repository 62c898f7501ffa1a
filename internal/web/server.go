// Package web provides the HTTP server: the public kiosk page, the kiosk
// JSON endpoint and the authenticated administration API.
package web

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/JonMunkholm/asistencia/internal/auth"
	"github.com/JonMunkholm/asistencia/internal/config"
	"github.com/JonMunkholm/asistencia/internal/core"
	"github.com/JonMunkholm/asistencia/internal/web/middleware"
)

// Server is the HTTP server for the attendance application.
type Server struct {
	service *core.Service
	issuer  *auth.Issuer
	cfg     *config.Config
	router  *chi.Mux
	server  *http.Server
}

// NewServer creates a Server with all middleware and routes installed.
func NewServer(service *core.Service, issuer *auth.Issuer, cfg *config.Config) *Server {
	s := &Server{
		service: service,
		issuer:  issuer,
		cfg:     cfg,
		router:  chi.NewRouter(),
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

// setupMiddleware configures middleware for all routes.
func (s *Server) setupMiddleware() {
	s.router.Use(chimw.RequestID)
	s.router.Use(middleware.TrustedRealIP(s.cfg.Security.TrustedProxies))
	s.router.Use(middleware.Logger)
	s.router.Use(chimw.Recoverer)
	if s.cfg.Security.AttackGuard {
		s.router.Use(middleware.AttackGuard)
	}
	if s.cfg.Rate.Enabled {
		s.router.Use(middleware.NewRateLimiter(s.cfg.Rate.RequestsPerMinute).Middleware(s.respondError))
	}
	s.router.Use(middleware.SecurityHeaders(s.cfg.Security.EnableCSP))
	s.router.Use(chimw.Compress(5))
	s.router.Use(chimw.Timeout(s.cfg.Server.RequestTimeout))
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	requireAuth := middleware.RequireAuth(s.issuer, s.respondError)
	adminOnly := middleware.RequireRole(s.respondError, string(core.RoleAdmin))
	loginLimit := s.strictLimit(s.cfg.Rate.LoginLimit)
	importLimit := s.strictLimit(s.cfg.Rate.ImportLimit)

	// Kiosk
	s.router.Get("/", s.handleKiosk)
	s.router.Post("/registrar", s.handleKioskSubmit)
	s.router.Get("/healthz", s.handleHealth)

	s.router.Route("/api", func(r chi.Router) {
		r.With(loginLimit).Post("/auth/login", s.handleLogin)
		r.Post("/attendance", s.handleRegister)

		r.Group(func(r chi.Router) {
			r.Use(requireAuth)

			r.Get("/students", s.handleListStudents)
			r.Get("/students/{matricula}", s.handleGetStudent)
			r.Get("/groups", s.handleListGroups)
			r.Get("/attendance", s.handleListAttendance)
			r.Get("/reports/daily", s.handleDailyReport)
			r.Get("/reports/students", s.handleStudentReport)
			r.Get("/export/attendance", s.handleExportAttendance)
			r.Get("/export/report", s.handleExportReport)

			r.Group(func(r chi.Router) {
				r.Use(adminOnly)

				r.Post("/students", s.handleSaveStudent)
				r.Delete("/students/{matricula}", s.handleDeleteStudent)
				r.Post("/attendance/manual", s.handleManualAttendance)
				r.Delete("/attendance/{id}", s.handleDeleteAttendance)
				r.With(importLimit).Post("/import/{kind}", s.handleImport)
				r.Get("/users", s.handleListUsers)
				r.Post("/users", s.handleCreateUser)
				r.Get("/audit", s.handleListAudit)
				r.Post("/admin/backup", s.handleBackup)
				r.Get("/admin/diagnostics", s.handleDiagnostics)
				r.Post("/admin/repair-preview", s.handleRepairPreview)
			})
		})
	})
}

// strictLimit returns a per-route limiter, or a pass-through when rate
// limiting is disabled.
func (s *Server) strictLimit(perMinute int) func(http.Handler) http.Handler {
	if !s.cfg.Rate.Enabled {
		return func(next http.Handler) http.Handler { return next }
	}
	return middleware.NewRateLimiter(perMinute).Middleware(s.respondError)
}

// Start begins listening for HTTP requests on the configured address.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:         s.cfg.Server.Addr(),
		Handler:      s.router,
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
		IdleTimeout:  s.cfg.Server.IdleTimeout,
	}
	return s.server.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Router returns the underlying chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// writeJSON encodes v as JSON and writes it to w.
// Logs encoding errors since headers are already sent.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode error", "error", err)
	}
}
