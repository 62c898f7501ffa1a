package core

// import.go implements roster and attendance imports.
//
// Both imports share one pipeline:
//  1. size check and an import slot from the limiter
//  2. DecodeCSV (buffer repair, tokenizing, per-field repair)
//  3. header resolution against the field specs and their aliases
//  4. row validation; invalid rows become FailedRows, never abort the file
//  5. one bulk write to the store
//
// The whole file is processed or nothing is written: a store error during
// step 5 fails the import.

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/JonMunkholm/asistencia/internal/logging"
)

const (
	importKindStudents   = "students"
	importKindAttendance = "attendance"
)

type applyFunc func(ctx context.Context, doc *Document, cols Columns, res *ImportResult) error

// ImportStudents loads a roster CSV. Existing students are replaced by
// matricula; students missing from the file are left untouched.
func (s *Service) ImportStudents(ctx context.Context, fileName string, data []byte) (*ImportResult, error) {
	return s.runImport(ctx, importKindStudents, fileName, data, studentFields, s.applyStudents)
}

// ImportAttendance loads historical attendance. Records for a (matricula,
// date) pair already present are skipped.
func (s *Service) ImportAttendance(ctx context.Context, fileName string, data []byte) (*ImportResult, error) {
	return s.runImport(ctx, importKindAttendance, fileName, data, attendanceFields, s.applyAttendance)
}

func (s *Service) runImport(ctx context.Context, kind, fileName string, data []byte, specs []FieldSpec, apply applyFunc) (*ImportResult, error) {
	logger := logging.WithFields(ctx, "import", kind, "file", fileName)

	if len(data) == 0 {
		return nil, fmt.Errorf("import %s: %w", kind, ErrEmptyFile)
	}
	if s.opts.MaxFileSize > 0 && int64(len(data)) > s.opts.MaxFileSize {
		return nil, fmt.Errorf("import %s: %w: %d bytes exceeds %d", kind, ErrFileTooLarge, len(data), s.opts.MaxFileSize)
	}

	start := time.Now()
	res := &ImportResult{Kind: kind, FileName: fileName, FailedRows: []FailedRow{}}

	err := s.limiter.Do(ctx, func() error {
		runCtx := ctx
		if s.opts.ImportTimeout > 0 {
			var cancel context.CancelFunc
			runCtx, cancel = context.WithTimeout(ctx, s.opts.ImportTimeout)
			defer cancel()
		}

		doc, err := DecodeCSV(data)
		if err != nil {
			return err
		}
		cols, err := ResolveHeaders(doc.Header, specs)
		if err != nil {
			return err
		}

		res.TotalRows = len(doc.Rows)
		res.Repaired = doc.Repaired
		return apply(runCtx, doc, cols, res)
	})
	res.Duration = time.Since(start)
	if err != nil {
		logger.Warn("import failed", "error", err)
		return nil, fmt.Errorf("import %s: %w", kind, err)
	}

	res.Skipped = res.TotalRows - res.Inserted - res.Updated
	action := ActionImportStudents
	if kind == importKindAttendance {
		action = ActionImportAttendance
	}
	s.LogAudit(ctx, AuditLogParams{
		Action:       action,
		Target:       fileName,
		Detail:       fmt.Sprintf("inserted=%d updated=%d skipped=%d repaired=%d", res.Inserted, res.Updated, res.Skipped, res.Repaired),
		RowsAffected: res.Inserted + res.Updated,
	})
	logger.Info("import finished",
		"rows", res.TotalRows,
		"inserted", res.Inserted,
		"updated", res.Updated,
		"skipped", res.Skipped,
		"repaired", res.Repaired,
		"duration_ms", res.Duration.Milliseconds(),
	)
	return res, nil
}

func (s *Service) applyStudents(ctx context.Context, doc *Document, cols Columns, res *ImportResult) error {
	v := NewRowValidator(studentFields, cols)
	now := s.now().UTC()

	existing, err := s.studentIndex(ctx)
	if err != nil {
		return err
	}

	seen := make(map[string]bool, len(doc.Rows))
	batch := make([]Student, 0, len(doc.Rows))
	for i, row := range doc.Rows {
		fail := func(reason string) {
			res.FailedRows = append(res.FailedRows, FailedRow{LineNumber: doc.Lines[i], Reason: reason, Data: row})
		}

		if err := v.ValidateRowFirst(row); err != nil {
			fail(err.Error())
			continue
		}

		active := true
		if raw := cols.Cell(row, "activo"); raw != "" {
			active, _ = ParseBool(raw)
		}
		st, err := NewStudent(cols.Cell(row, "matricula"), cols.Cell(row, "nombre"), cols.Cell(row, "grupo"), active)
		if err != nil {
			fail(err.Error())
			continue
		}
		if seen[st.Matricula] {
			fail("duplicate matricula in file: " + st.Matricula)
			continue
		}
		seen[st.Matricula] = true

		st.CreatedAt, st.UpdatedAt = now, now
		if prev, ok := existing[st.Matricula]; ok {
			st.CreatedAt = prev.CreatedAt
		}
		batch = append(batch, st)
	}

	if err := ctx.Err(); err != nil {
		return err
	}
	inserted, updated, err := s.store.UpsertStudents(ctx, batch)
	if err != nil {
		return err
	}
	res.Inserted, res.Updated = inserted, updated
	return nil
}

func (s *Service) applyAttendance(ctx context.Context, doc *Document, cols Columns, res *ImportResult) error {
	v := NewRowValidator(attendanceFields, cols)
	now := s.now().UTC()

	roster, err := s.studentIndex(ctx)
	if err != nil {
		return err
	}

	seen := make(map[string]bool, len(doc.Rows))
	batch := make([]Attendance, 0, len(doc.Rows))
	for i, row := range doc.Rows {
		fail := func(reason string) {
			res.FailedRows = append(res.FailedRows, FailedRow{LineNumber: doc.Lines[i], Reason: reason, Data: row})
		}

		if err := v.ValidateRowFirst(row); err != nil {
			fail(err.Error())
			continue
		}

		id := NormalizeMatricula(cols.Cell(row, "matricula"))
		st, known := roster[id]
		if name := cols.Cell(row, "nombre"); name != "" {
			st.Name = name
		}
		if group := cols.Cell(row, "grupo"); group != "" {
			st.Group = group
		}
		if !known && st.Name == "" {
			fail(ErrStudentNotFound.Error() + ": " + id)
			continue
		}
		st.Matricula = id

		date, _ := ParseDate(cols.Cell(row, "fecha"))
		day := date.Format(DateLayout)
		key := id + "|" + day
		if seen[key] {
			fail("duplicate registration in file: " + id + " " + day)
			continue
		}
		seen[key] = true

		clock, hasClock := ParseClock(cols.Cell(row, "hora"))
		var c time.Time
		if hasClock {
			c, _ = time.Parse(TimeLayout, clock)
		}
		at := time.Date(date.Year(), date.Month(), date.Day(), c.Hour(), c.Minute(), c.Second(), 0, s.opts.Location)

		status := StatusPresent
		if parsed, ok := ParseStatus(cols.Cell(row, "estado")); ok {
			status = parsed
		} else if hasClock {
			status = s.statusAt(at)
		}

		a := NewAttendance(st, at, status, SourceImport)
		a.CreatedAt = now
		if !hasClock {
			a.Time = ""
		}
		batch = append(batch, a)
	}

	if err := ctx.Err(); err != nil {
		return err
	}
	inserted, _, err := s.store.ImportAttendance(ctx, batch)
	if err != nil {
		return err
	}
	res.Inserted = inserted
	return nil
}

func (s *Service) studentIndex(ctx context.Context) (map[string]Student, error) {
	students, err := s.store.ListStudents(ctx)
	if err != nil {
		return nil, fmt.Errorf("load roster: %w", err)
	}
	idx := make(map[string]Student, len(students))
	for _, st := range students {
		idx[st.Matricula] = st
	}
	return idx, nil
}

// ImportKinds lists the accepted import kinds.
func ImportKinds() []string {
	return []string{importKindStudents, importKindAttendance}
}

// Import dispatches to ImportStudents or ImportAttendance by kind.
func (s *Service) Import(ctx context.Context, kind, fileName string, data []byte) (*ImportResult, error) {
	switch strings.ToLower(kind) {
	case importKindStudents:
		return s.ImportStudents(ctx, fileName, data)
	case importKindAttendance:
		return s.ImportAttendance(ctx, fileName, data)
	default:
		return nil, fmt.Errorf("%w: unknown import kind %q", ErrInvalidInput, kind)
	}
}
