package core

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"
)

// memStore is an in-memory Store for service tests.
type memStore struct {
	mu         sync.Mutex
	students   map[string]Student
	attendance []Attendance
	users      map[string]User
	audit      []AuditEntry
	pingErr    error
	auditErr   error
}

func newMemStore() *memStore {
	return &memStore{
		students: make(map[string]Student),
		users:    make(map[string]User),
	}
}

func (m *memStore) Kind() string                 { return "memory" }
func (m *memStore) Ping(ctx context.Context) error { return m.pingErr }
func (m *memStore) Close() error                 { return nil }

func (m *memStore) ListStudents(ctx context.Context) ([]Student, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Student, 0, len(m.students))
	for _, st := range m.students {
		out = append(out, st)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Matricula < out[j].Matricula })
	return out, nil
}

func (m *memStore) GetStudent(ctx context.Context, matricula string) (Student, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	st, ok := m.students[matricula]
	if !ok {
		return Student{}, ErrStudentNotFound
	}
	return st, nil
}

func (m *memStore) UpsertStudents(ctx context.Context, students []Student) (int, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var inserted, updated int
	for _, st := range students {
		if _, ok := m.students[st.Matricula]; ok {
			updated++
		} else {
			inserted++
		}
		m.students[st.Matricula] = st
	}
	return inserted, updated, nil
}

func (m *memStore) DeleteStudent(ctx context.Context, matricula string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.students[matricula]; !ok {
		return ErrStudentNotFound
	}
	delete(m.students, matricula)
	return nil
}

func (m *memStore) ListAttendance(ctx context.Context, f AttendanceFilter) ([]Attendance, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Attendance
	for _, a := range m.attendance {
		if f.Matches(a) {
			out = append(out, a)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Date != out[j].Date {
			return out[i].Date < out[j].Date
		}
		return out[i].Time < out[j].Time
	})
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (m *memStore) hasRecord(matricula, date string) bool {
	for _, a := range m.attendance {
		if a.Matricula == matricula && a.Date == date {
			return true
		}
	}
	return false
}

func (m *memStore) InsertAttendance(ctx context.Context, a Attendance) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.hasRecord(a.Matricula, a.Date) {
		return ErrAlreadyRegistered
	}
	m.attendance = append(m.attendance, a)
	return nil
}

func (m *memStore) ImportAttendance(ctx context.Context, records []Attendance) (int, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var inserted, skipped int
	for _, a := range records {
		if m.hasRecord(a.Matricula, a.Date) {
			skipped++
			continue
		}
		m.attendance = append(m.attendance, a)
		inserted++
	}
	return inserted, skipped, nil
}

func (m *memStore) DeleteAttendance(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, a := range m.attendance {
		if a.ID == id {
			m.attendance = append(m.attendance[:i], m.attendance[i+1:]...)
			return nil
		}
	}
	return ErrAttendanceNotFound
}

func (m *memStore) ListUsers(ctx context.Context) ([]User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]User, 0, len(m.users))
	for _, u := range m.users {
		out = append(out, u)
	}
	return out, nil
}

func (m *memStore) GetUser(ctx context.Context, username string) (User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[username]
	if !ok {
		return User{}, ErrUserNotFound
	}
	return u, nil
}

func (m *memStore) SaveUser(ctx context.Context, u User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[u.Username] = u
	return nil
}

func (m *memStore) AppendAudit(ctx context.Context, e AuditEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.auditErr != nil {
		return m.auditErr
	}
	m.audit = append(m.audit, e)
	return nil
}

func (m *memStore) ListAudit(ctx context.Context, f AuditFilter) ([]AuditEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []AuditEntry
	for i := len(m.audit) - 1; i >= 0; i-- {
		if f.Matches(m.audit[i]) {
			out = append(out, m.audit[i])
		}
		if f.Limit > 0 && len(out) == f.Limit {
			break
		}
	}
	return out, nil
}

func (m *memStore) auditActions() []AuditAction {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]AuditAction, len(m.audit))
	for i, e := range m.audit {
		out[i] = e.Action
	}
	return out
}

var errStoreDown = errors.New("connection refused")

// testLocation is a fixed-offset zone so tests do not depend on tzdata.
var testLocation = time.FixedZone("CST", -6*60*60)

// newTestService returns a Service over a fresh memStore with the clock
// fixed at the given local time.
func newTestService(t *testing.T, now time.Time) (*Service, *memStore) {
	t.Helper()
	store := newMemStore()
	svc := NewService(store, Options{
		Location:             testLocation,
		LateAfter:            8*time.Hour + 10*time.Minute,
		MaxFileSize:          1 << 20,
		ImportTimeout:        time.Minute,
		MaxConcurrentImports: 2,
		ImportWait:           time.Second,
		BackupDir:            t.TempDir(),
		BackupKeep:           3,
	})
	svc.now = func() time.Time { return now }
	return svc, store
}

// at builds a local time on 2024-03-04 (a Monday).
func at(hour, min int) time.Time {
	return time.Date(2024, 3, 4, hour, min, 0, 0, testLocation)
}

func seedStudents(t *testing.T, store *memStore, students ...Student) {
	t.Helper()
	if _, _, err := store.UpsertStudents(context.Background(), students); err != nil {
		t.Fatalf("seed students: %v", err)
	}
}

func student(matricula, name, group string) Student {
	return Student{Matricula: matricula, Name: name, Group: group, Active: true}
}
