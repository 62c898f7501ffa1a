package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/JonMunkholm/asistencia/internal/logging"
)

// Register records a kiosk registration for matricula at the current time.
//
// Unknown matriculas return ErrStudentNotFound. Inactive students return an
// error matching both ErrStudentInactive and ErrStudentNotFound. A second
// registration on the same local date returns ErrAlreadyRegistered.
func (s *Service) Register(ctx context.Context, matricula string) (Attendance, error) {
	id := NormalizeMatricula(matricula)
	if id == "" {
		return Attendance{}, fmt.Errorf("%w: required field matricula is empty", ErrInvalidInput)
	}

	st, err := s.store.GetStudent(ctx, id)
	if err != nil {
		return Attendance{}, fmt.Errorf("register %s: %w", id, err)
	}
	if !st.Active {
		return Attendance{}, fmt.Errorf("register %s: %w: %w", id, ErrStudentInactive, ErrStudentNotFound)
	}

	now := s.localNow()
	a := NewAttendance(st, now, s.statusAt(now), SourceKiosk)
	if err := s.store.InsertAttendance(ctx, a); err != nil {
		return Attendance{}, fmt.Errorf("register %s: %w", id, err)
	}

	logging.FromContext(ctx).Info("attendance registered",
		"matricula", a.Matricula,
		"group", a.Group,
		"status", a.Status,
	)
	return a, nil
}

// ManualEntry is an attendance record entered by an administrator.
type ManualEntry struct {
	Matricula string `json:"matricula"`
	Date      string `json:"fecha"`
	Time      string `json:"hora"`
	Status    string `json:"estado"`
}

// RecordAttendance stores an administrator-entered registration, for
// students who could not use the kiosk. Empty Date means today; empty
// Status is derived from Time.
func (s *Service) RecordAttendance(ctx context.Context, in ManualEntry) (Attendance, error) {
	id := NormalizeMatricula(in.Matricula)
	st, err := s.store.GetStudent(ctx, id)
	if err != nil {
		return Attendance{}, fmt.Errorf("record %s: %w", id, err)
	}

	at := s.localNow()
	if in.Date != "" {
		d, ok := ParseDate(in.Date)
		if !ok {
			return Attendance{}, fmt.Errorf("%w: invalid date %q", ErrInvalidInput, in.Date)
		}
		at = time.Date(d.Year(), d.Month(), d.Day(), at.Hour(), at.Minute(), at.Second(), 0, s.opts.Location)
	}
	if in.Time != "" {
		clock, ok := ParseClock(in.Time)
		if !ok {
			return Attendance{}, fmt.Errorf("%w: invalid time %q", ErrInvalidInput, in.Time)
		}
		c, _ := time.Parse(TimeLayout, clock)
		at = time.Date(at.Year(), at.Month(), at.Day(), c.Hour(), c.Minute(), c.Second(), 0, s.opts.Location)
	}

	status := s.statusAt(at)
	if in.Status != "" {
		parsed, ok := ParseStatus(in.Status)
		if !ok {
			return Attendance{}, fmt.Errorf("%w: invalid enum estado %q", ErrInvalidInput, in.Status)
		}
		status = parsed
	}

	a := NewAttendance(st, at, status, SourceAdmin)
	a.CreatedAt = s.now().UTC()
	if err := s.store.InsertAttendance(ctx, a); err != nil {
		return Attendance{}, fmt.Errorf("record %s: %w", id, err)
	}

	s.LogAudit(ctx, AuditLogParams{
		Action:       ActionAttendanceAdd,
		Target:       a.Matricula,
		Detail:       a.Date + " " + a.Time + " " + string(a.Status),
		RowsAffected: 1,
	})
	return a, nil
}

// ListAttendance returns records matching f. Dates in f may use any
// accepted input layout and are normalised to YYYY-MM-DD.
func (s *Service) ListAttendance(ctx context.Context, f AttendanceFilter) ([]Attendance, error) {
	var err error
	if f.From, err = normalizeDateParam(f.From); err != nil {
		return nil, err
	}
	if f.To, err = normalizeDateParam(f.To); err != nil {
		return nil, err
	}
	return s.store.ListAttendance(ctx, f)
}

// DeleteAttendance removes one record by id.
func (s *Service) DeleteAttendance(ctx context.Context, id string) error {
	if err := s.store.DeleteAttendance(ctx, id); err != nil {
		return fmt.Errorf("delete attendance %s: %w", id, err)
	}
	s.LogAudit(ctx, AuditLogParams{Action: ActionAttendanceDelete, Target: id, RowsAffected: 1})
	return nil
}

func normalizeDateParam(s string) (string, error) {
	if s == "" {
		return "", nil
	}
	d, ok := ParseDate(s)
	if !ok {
		return "", fmt.Errorf("%w: invalid date %q", ErrInvalidInput, s)
	}
	return d.Format(DateLayout), nil
}

// IsNotFound reports whether err is one of the not-found sentinels.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrStudentNotFound) ||
		errors.Is(err, ErrAttendanceNotFound) ||
		errors.Is(err, ErrUserNotFound)
}
