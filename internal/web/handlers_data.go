package web

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// handleListStudents returns the roster, optionally restricted by ?grupo=.
func (s *Server) handleListStudents(w http.ResponseWriter, r *http.Request) {
	students, err := s.service.ListStudents(r.Context(), r.URL.Query().Get("grupo"))
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}
	writeJSON(w, http.StatusOK, students)
}

func (s *Server) handleGetStudent(w http.ResponseWriter, r *http.Request) {
	st, err := s.service.GetStudent(r.Context(), chi.URLParam(r, "matricula"))
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) handleListGroups(w http.ResponseWriter, r *http.Request) {
	groups, err := s.service.Groups(r.Context())
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}
	writeJSON(w, http.StatusOK, groups)
}

// handleListAttendance returns records filtered by desde, hasta, grupo,
// matricula and limite.
func (s *Server) handleListAttendance(w http.ResponseWriter, r *http.Request) {
	records, err := s.service.ListAttendance(r.Context(), attendanceFilter(r))
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}
	writeJSON(w, http.StatusOK, records)
}

// handleDailyReport returns the per-group summary for ?fecha= (default today).
func (s *Server) handleDailyReport(w http.ResponseWriter, r *http.Request) {
	sum, err := s.service.DailySummary(r.Context(), r.URL.Query().Get("fecha"))
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

// handleStudentReport returns per-student totals between desde and hasta.
func (s *Server) handleStudentReport(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	report, err := s.service.StudentReport(r.Context(), q.Get("desde"), q.Get("hasta"), q.Get("grupo"))
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// handleExportAttendance streams matching records as CSV.
func (s *Server) handleExportAttendance(w http.ResponseWriter, r *http.Request) {
	f := attendanceFilter(r)
	name := "asistencia.csv"
	if f.From != "" || f.To != "" {
		name = "asistencia_" + safeName(f.From) + "_" + safeName(f.To) + ".csv"
	}
	csvDownload(w, name)
	if err := s.service.ExportAttendanceCSV(r.Context(), w, f); err != nil {
		s.respondError(w, r, err, 0)
	}
}

// handleExportReport streams the student report as CSV.
func (s *Server) handleExportReport(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	csvDownload(w, "reporte_"+safeName(q.Get("desde"))+"_"+safeName(q.Get("hasta"))+".csv")
	if err := s.service.ExportReportCSV(r.Context(), w, q.Get("desde"), q.Get("hasta"), q.Get("grupo")); err != nil {
		s.respondError(w, r, err, 0)
	}
}

// safeName keeps only characters that are safe in a download file name.
func safeName(s string) string {
	out := make([]rune, 0, len(s))
	for _, c := range s {
		switch {
		case c >= '0' && c <= '9', c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c == '-':
			out = append(out, c)
		case c == '/':
			out = append(out, '-')
		}
	}
	return string(out)
}
