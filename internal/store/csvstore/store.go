// Package csvstore keeps all data in CSV files under one directory.
//
// Files are loaded into memory by Open and rewritten on every change through
// a temporary file and rename, so a crash never leaves a half-written file.
// The audit log is append-only. Files that are not valid UTF-8 are treated as
// legacy exports and load through the same repair pipeline as imports.
package csvstore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"unicode/utf8"

	"github.com/JonMunkholm/asistencia/internal/auth"
	"github.com/JonMunkholm/asistencia/internal/core"
)

// File names inside the data directory.
const (
	StudentsFile   = "students.csv"
	AttendanceFile = "attendance.csv"
	UsersFile      = "users.csv"
	AuditFile      = "audit.csv"
)

// Store implements core.Store on CSV files.
type Store struct {
	dir string

	mu         sync.RWMutex
	students   map[string]core.Student
	attendance []core.Attendance
	registered map[string]bool // matricula|date
	users      map[string]core.User
	audit      []core.AuditEntry
}

var _ core.Store = (*Store)(nil)

// Open creates dir if needed and loads every file in it. Missing files are
// treated as empty. Rows that cannot be decoded are logged and skipped.
func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	s := &Store{
		dir:        dir,
		students:   make(map[string]core.Student),
		registered: make(map[string]bool),
		users:      make(map[string]core.User),
	}
	if err := s.load(); err != nil {
		return nil, err
	}

	slog.Info("csv store opened",
		"dir", dir,
		"students", len(s.students),
		"attendance", len(s.attendance),
		"users", len(s.users),
	)
	return s, nil
}

func (s *Store) path(name string) string {
	return filepath.Join(s.dir, name)
}

// readRecords loads name. A missing or empty file yields no records. Valid
// UTF-8 is taken as written; anything else goes through the repair pipeline.
func (s *Store) readRecords(name string) ([]core.Record, error) {
	data, err := os.ReadFile(s.path(name))
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	var doc *core.Document
	if utf8.Valid(data) {
		doc, err = core.ParseUTF8CSV(string(data))
	} else {
		doc, err = core.DecodeCSV(data)
	}
	if errors.Is(err, core.ErrEmptyFile) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", name, err)
	}
	if doc.Repaired > 0 {
		slog.Warn("repaired mis-encoded fields on load", "file", name, "fields", doc.Repaired)
	}
	return core.Records(doc), nil
}

func (s *Store) load() error {
	records, err := s.readRecords(StudentsFile)
	if err != nil {
		return err
	}
	for i, r := range records {
		st, err := core.StudentFromRecord(r)
		if err != nil {
			slog.Warn("skipping student row", "file", StudentsFile, "row", i+2, "error", err)
			continue
		}
		s.students[st.Matricula] = st
	}

	if records, err = s.readRecords(AttendanceFile); err != nil {
		return err
	}
	for i, r := range records {
		a := core.AttendanceFromRecord(r)
		if a.Matricula == "" || a.Date == "" {
			slog.Warn("skipping attendance row", "file", AttendanceFile, "row", i+2)
			continue
		}
		if a.ID == "" {
			a.ID = fmt.Sprintf("legacy-%d", i+1)
		}
		s.attendance = append(s.attendance, a)
		s.registered[registrationKey(a)] = true
	}
	sortAttendance(s.attendance)

	if records, err = s.readRecords(UsersFile); err != nil {
		return err
	}
	for i, r := range records {
		u := core.UserFromRecord(r)
		if u.Username == "" || !auth.IsHash(u.PasswordHash) || !u.Role.Valid() {
			slog.Warn("skipping user row", "file", UsersFile, "row", i+2, "username", u.Username)
			continue
		}
		s.users[u.Username] = u
	}

	if records, err = s.readRecords(AuditFile); err != nil {
		return err
	}
	for _, r := range records {
		s.audit = append(s.audit, core.AuditFromRecord(r))
	}
	return nil
}

func registrationKey(a core.Attendance) string {
	return a.Matricula + "|" + a.Date
}

func sortAttendance(records []core.Attendance) {
	sort.SliceStable(records, func(i, j int) bool {
		if records[i].Date != records[j].Date {
			return records[i].Date < records[j].Date
		}
		return records[i].Time < records[j].Time
	})
}

// Kind implements core.Store.
func (s *Store) Kind() string { return "csv" }

// Ping checks that the data directory is still reachable.
func (s *Store) Ping(ctx context.Context) error {
	info, err := os.Stat(s.dir)
	if err != nil {
		return fmt.Errorf("data dir: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("data dir: %s is not a directory", s.dir)
	}
	return nil
}

// Close is a no-op; every change is already on disk.
func (s *Store) Close() error { return nil }

// Dir returns the data directory.
func (s *Store) Dir() string { return s.dir }

// ----------------------------------------------------------------------------
// Students
// ----------------------------------------------------------------------------

func (s *Store) ListStudents(ctx context.Context) ([]core.Student, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]core.Student, 0, len(s.students))
	for _, st := range s.students {
		out = append(out, st)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Matricula < out[j].Matricula })
	return out, nil
}

func (s *Store) GetStudent(ctx context.Context, matricula string) (core.Student, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.students[matricula]
	if !ok {
		return core.Student{}, core.ErrStudentNotFound
	}
	return st, nil
}

func (s *Store) UpsertStudents(ctx context.Context, students []core.Student) (int, int, error) {
	if len(students) == 0 {
		return 0, 0, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	next := make(map[string]core.Student, len(s.students)+len(students))
	for k, v := range s.students {
		next[k] = v
	}
	var inserted, updated int
	for _, st := range students {
		if _, ok := next[st.Matricula]; ok {
			updated++
		} else {
			inserted++
		}
		next[st.Matricula] = st
	}

	if err := s.writeStudents(next); err != nil {
		return 0, 0, err
	}
	s.students = next
	return inserted, updated, nil
}

func (s *Store) DeleteStudent(ctx context.Context, matricula string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.students[matricula]; !ok {
		return core.ErrStudentNotFound
	}

	next := make(map[string]core.Student, len(s.students))
	for k, v := range s.students {
		if k != matricula {
			next[k] = v
		}
	}
	if err := s.writeStudents(next); err != nil {
		return err
	}
	s.students = next
	return nil
}

func (s *Store) writeStudents(students map[string]core.Student) error {
	keys := make([]string, 0, len(students))
	for k := range students {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	rows := make([][]string, len(keys))
	for i, k := range keys {
		rows[i] = core.StudentRow(students[k])
	}
	return writeFileAtomic(s.path(StudentsFile), core.StudentColumns, rows)
}

// ----------------------------------------------------------------------------
// Attendance
// ----------------------------------------------------------------------------

func (s *Store) ListAttendance(ctx context.Context, f core.AttendanceFilter) ([]core.Attendance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []core.Attendance{}
	for _, a := range s.attendance {
		if !f.Matches(a) {
			continue
		}
		out = append(out, a)
		if f.Limit > 0 && len(out) == f.Limit {
			break
		}
	}
	return out, nil
}

func (s *Store) InsertAttendance(ctx context.Context, a core.Attendance) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.registered[registrationKey(a)] {
		return core.ErrAlreadyRegistered
	}
	return s.commitAttendance([]core.Attendance{a})
}

func (s *Store) ImportAttendance(ctx context.Context, records []core.Attendance) (int, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	fresh := make([]core.Attendance, 0, len(records))
	seen := make(map[string]bool, len(records))
	for _, a := range records {
		key := registrationKey(a)
		if s.registered[key] || seen[key] {
			continue
		}
		seen[key] = true
		fresh = append(fresh, a)
	}
	if len(fresh) == 0 {
		return 0, len(records), nil
	}
	if err := s.commitAttendance(fresh); err != nil {
		return 0, 0, err
	}
	return len(fresh), len(records) - len(fresh), nil
}

// commitAttendance appends records, rewrites the file and only then swaps
// the in-memory state. Callers hold s.mu.
func (s *Store) commitAttendance(records []core.Attendance) error {
	next := make([]core.Attendance, 0, len(s.attendance)+len(records))
	next = append(next, s.attendance...)
	next = append(next, records...)
	sortAttendance(next)

	if err := s.writeAttendance(next); err != nil {
		return err
	}
	s.attendance = next
	for _, a := range records {
		s.registered[registrationKey(a)] = true
	}
	return nil
}

func (s *Store) DeleteAttendance(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := -1
	for i, a := range s.attendance {
		if a.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return core.ErrAttendanceNotFound
	}

	removed := s.attendance[idx]
	next := make([]core.Attendance, 0, len(s.attendance)-1)
	next = append(next, s.attendance[:idx]...)
	next = append(next, s.attendance[idx+1:]...)
	if err := s.writeAttendance(next); err != nil {
		return err
	}
	s.attendance = next
	delete(s.registered, registrationKey(removed))
	return nil
}

func (s *Store) writeAttendance(records []core.Attendance) error {
	rows := make([][]string, len(records))
	for i, a := range records {
		rows[i] = core.AttendanceRow(a)
	}
	return writeFileAtomic(s.path(AttendanceFile), core.AttendanceColumns, rows)
}

// ----------------------------------------------------------------------------
// Users
// ----------------------------------------------------------------------------

func (s *Store) ListUsers(ctx context.Context) ([]core.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]core.User, 0, len(s.users))
	for _, u := range s.users {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	return out, nil
}

func (s *Store) GetUser(ctx context.Context, username string) (core.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[username]
	if !ok {
		return core.User{}, core.ErrUserNotFound
	}
	return u, nil
}

func (s *Store) SaveUser(ctx context.Context, u core.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := make(map[string]core.User, len(s.users)+1)
	for k, v := range s.users {
		next[k] = v
	}
	next[u.Username] = u

	names := make([]string, 0, len(next))
	for k := range next {
		names = append(names, k)
	}
	sort.Strings(names)
	rows := make([][]string, len(names))
	for i, k := range names {
		rows[i] = core.UserRow(next[k])
	}
	if err := writeFileAtomic(s.path(UsersFile), core.UserColumns, rows); err != nil {
		return err
	}
	s.users = next
	return nil
}

// ----------------------------------------------------------------------------
// Audit
// ----------------------------------------------------------------------------

func (s *Store) AppendAudit(ctx context.Context, e core.AuditEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := appendRow(s.path(AuditFile), core.AuditColumns, core.AuditRow(e)); err != nil {
		return err
	}
	s.audit = append(s.audit, e)
	return nil
}

// ListAudit returns matching entries newest first.
func (s *Store) ListAudit(ctx context.Context, f core.AuditFilter) ([]core.AuditEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []core.AuditEntry{}
	for i := len(s.audit) - 1; i >= 0; i-- {
		if !f.Matches(s.audit[i]) {
			continue
		}
		out = append(out, s.audit[i])
		if f.Limit > 0 && len(out) == f.Limit {
			break
		}
	}
	return out, nil
}
