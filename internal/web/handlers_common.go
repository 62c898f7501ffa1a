package web

// handlers_common.go contains shared request parsing helpers.

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/JonMunkholm/asistencia/internal/core"
)

const (
	// maxJSONBody bounds JSON request bodies.
	maxJSONBody = 1 << 20

	// multipartOverhead is allowed on top of the import size limit for the
	// multipart envelope.
	multipartOverhead = 1 << 20

	defaultAuditLimit = 100
	maxListLimit      = 5000
)

var errNoFile = errors.New("no file provided")

// parseIntParam parses a positive integer query parameter with a default
// value, capped at max.
func parseIntParam(r *http.Request, name string, defaultVal, max int) int {
	val := r.URL.Query().Get(name)
	if val == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(val)
	if err != nil || i < 1 {
		return defaultVal
	}
	if i > max {
		return max
	}
	return i
}

// decodeJSON reads a bounded JSON body into v, rejecting unknown fields.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: malformed JSON body: %v", core.ErrInvalidInput, err)
	}
	return nil
}

// readUpload returns the contents and name of the multipart "file" field.
func (s *Server) readUpload(w http.ResponseWriter, r *http.Request) ([]byte, string, error) {
	maxSize := s.cfg.Import.MaxFileSize
	r.Body = http.MaxBytesReader(w, r.Body, maxSize+multipartOverhead)

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, "", fmt.Errorf("%w: limit is %d bytes", core.ErrFileTooLarge, maxSize)
		}
		return nil, "", fmt.Errorf("%w: %v", errNoFile, err)
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		return nil, "", errNoFile
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, "", fmt.Errorf("read upload: %w", err)
	}
	return data, header.Filename, nil
}

// attendanceFilter reads desde, hasta, grupo, matricula and limite.
func attendanceFilter(r *http.Request) core.AttendanceFilter {
	q := r.URL.Query()
	return core.AttendanceFilter{
		From:      q.Get("desde"),
		To:        q.Get("hasta"),
		Group:     q.Get("grupo"),
		Matricula: q.Get("matricula"),
		Limit:     parseIntParam(r, "limite", 0, maxListLimit),
	}
}

// auditFilter reads action, severity, actor, desde and limite. desde is a
// local date; entries from its midnight onwards match.
func (s *Server) auditFilter(r *http.Request) (core.AuditFilter, error) {
	q := r.URL.Query()
	f := core.AuditFilter{
		Action:   core.AuditAction(q.Get("action")),
		Severity: core.AuditSeverity(q.Get("severity")),
		Actor:    q.Get("actor"),
		Limit:    parseIntParam(r, "limite", defaultAuditLimit, maxListLimit),
	}
	if since := strings.TrimSpace(q.Get("desde")); since != "" {
		d, ok := core.ParseDate(since)
		if !ok {
			return f, fmt.Errorf("%w: invalid date %q", core.ErrInvalidInput, since)
		}
		f.Since = time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, s.service.Location())
	}
	return f, nil
}

// csvDownload sets the headers for a CSV attachment.
func csvDownload(w http.ResponseWriter, name string) {
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
}
