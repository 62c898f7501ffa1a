package pgstore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/JonMunkholm/asistencia/internal/config"
	"github.com/JonMunkholm/asistencia/internal/core"
)

func TestIsUniqueViolation(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"plain", errors.New("boom"), false},
		{"unique", &pgconn.PgError{Code: "23505"}, true},
		{"wrapped unique", fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505"}), true},
		{"foreign key", &pgconn.PgError{Code: "23503"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isUniqueViolation(tt.err); got != tt.want {
				t.Errorf("isUniqueViolation(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestPgConversions(t *testing.T) {
	if v := toPgText(""); v.Valid {
		t.Error("toPgText(\"\") should be NULL")
	}
	if got := textValue(toPgText("admin")); got != "admin" {
		t.Errorf("text round trip = %q", got)
	}

	id := uuid.NewString()
	if got := uuidString(toPgUUID(id)); got != id {
		t.Errorf("uuid round trip = %s, want %s", got, id)
	}
	if u := toPgUUID("legacy-7"); !u.Valid {
		t.Error("non-UUID id should get a generated UUID")
	}
	if uuidString(pgtype.UUID{}) != "" {
		t.Error("invalid UUID should map to empty string")
	}

	now := time.Date(2024, 3, 4, 12, 0, 0, 0, time.UTC)
	if ts := timestampOr(time.Time{}, now); !ts.Time.Equal(now) {
		t.Errorf("timestampOr(zero) = %v, want now", ts.Time)
	}
	if !timeValue(pgtype.Timestamptz{}).IsZero() {
		t.Error("NULL timestamp should be zero time")
	}
}

// openTestStore connects to ASISTENCIA_TEST_DATABASE_URL and empties every
// table. Tests are skipped when it is unset.
func openTestStore(t *testing.T) *Store {
	t.Helper()
	dsn := os.Getenv("ASISTENCIA_TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("ASISTENCIA_TEST_DATABASE_URL not set")
	}

	ctx := context.Background()
	s, err := Open(ctx, config.StoreConfig{DatabaseURL: dsn, MaxConns: 4, MinConns: 0})
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	if _, err := s.pool.Exec(ctx, `TRUNCATE students, attendance, users, audit_log`); err != nil {
		t.Fatalf("truncate failed: %v", err)
	}
	return s
}

func TestStore_Students(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	ins, upd, err := s.UpsertStudents(ctx, []core.Student{
		{Matricula: "A001", Name: "José Núñez", Group: "1°A", Active: true},
		{Matricula: "A002", Name: "Beto", Group: "1A", Active: true},
		{Matricula: "A002", Name: "Beto Ruiz", Group: "1B", Active: false},
	})
	if err != nil || ins != 2 || upd != 0 {
		t.Fatalf("UpsertStudents = %d, %d, %v; want 2, 0, nil", ins, upd, err)
	}

	ins, upd, err = s.UpsertStudents(ctx, []core.Student{{Matricula: "A001", Name: "José", Group: "2A", Active: true}})
	if err != nil || ins != 0 || upd != 1 {
		t.Fatalf("second UpsertStudents = %d, %d, %v; want 0, 1, nil", ins, upd, err)
	}

	st, err := s.GetStudent(ctx, "A002")
	if err != nil || st.Name != "Beto Ruiz" || st.Active {
		t.Errorf("GetStudent = %+v, %v", st, err)
	}
	if err := s.DeleteStudent(ctx, "A002"); err != nil {
		t.Fatalf("DeleteStudent failed: %v", err)
	}
	if _, err := s.GetStudent(ctx, "A002"); !errors.Is(err, core.ErrStudentNotFound) {
		t.Errorf("GetStudent after delete = %v", err)
	}
	if err := s.DeleteStudent(ctx, "A002"); !errors.Is(err, core.ErrStudentNotFound) {
		t.Errorf("second delete = %v", err)
	}
}

func TestStore_Attendance(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	rec := func(id, m, date, clock string) core.Attendance {
		return core.Attendance{ID: id, Matricula: m, Name: "Ana", Group: "1A", Date: date, Time: clock,
			Status: core.StatusPresent, Source: core.SourceKiosk}
	}

	if err := s.InsertAttendance(ctx, rec("r1", "A001", "2024-03-04", "07:55:00")); err != nil {
		t.Fatalf("InsertAttendance failed: %v", err)
	}
	if err := s.InsertAttendance(ctx, rec("r2", "A001", "2024-03-04", "08:30:00")); !errors.Is(err, core.ErrAlreadyRegistered) {
		t.Errorf("duplicate insert = %v, want ErrAlreadyRegistered", err)
	}

	ins, skipped, err := s.ImportAttendance(ctx, []core.Attendance{
		rec("i1", "A001", "2024-03-04", "07:00:00"),
		rec("i2", "A002", "2024-03-05", "07:10:00"),
		rec("i3", "A002", "2024-03-05", "07:20:00"),
	})
	if err != nil || ins != 1 || skipped != 2 {
		t.Fatalf("ImportAttendance = %d, %d, %v; want 1, 2, nil", ins, skipped, err)
	}

	got, err := s.ListAttendance(ctx, core.AttendanceFilter{From: "2024-03-05", Group: "1a"})
	if err != nil {
		t.Fatalf("ListAttendance failed: %v", err)
	}
	if len(got) != 1 || got[0].ID != "i2" || got[0].Date != "2024-03-05" {
		t.Errorf("filtered = %+v", got)
	}

	if err := s.DeleteAttendance(ctx, "r1"); err != nil {
		t.Fatalf("DeleteAttendance failed: %v", err)
	}
	if err := s.DeleteAttendance(ctx, "r1"); !errors.Is(err, core.ErrAttendanceNotFound) {
		t.Errorf("second delete = %v", err)
	}
}

func TestStore_UsersAndAudit(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if err := s.SaveUser(ctx, core.User{Username: "admin", PasswordHash: "$2a$10$x", Role: core.RoleAdmin}); err != nil {
		t.Fatalf("SaveUser failed: %v", err)
	}
	if _, err := s.GetUser(ctx, "nadie"); !errors.Is(err, core.ErrUserNotFound) {
		t.Errorf("GetUser missing = %v", err)
	}

	for _, action := range []core.AuditAction{core.ActionLogin, core.ActionBackup, core.ActionLoginFailed} {
		err := s.AppendAudit(ctx, core.AuditEntry{
			ID: uuid.NewString(), CreatedAt: time.Now(), Action: action, Severity: core.SeverityLow, Actor: "admin",
		})
		if err != nil {
			t.Fatalf("AppendAudit failed: %v", err)
		}
	}
	entries, err := s.ListAudit(ctx, core.AuditFilter{Actor: "admin", Limit: 2})
	if err != nil {
		t.Fatalf("ListAudit failed: %v", err)
	}
	if len(entries) != 2 || entries[0].Action != core.ActionLoginFailed {
		t.Errorf("entries = %+v, want newest first", entries)
	}
}
