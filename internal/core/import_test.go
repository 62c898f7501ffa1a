package core

import (
	"context"
	"errors"
	"slices"
	"testing"
	"time"
	_ "time/tzdata"
)

func TestImportStudents(t *testing.T) {
	svc, store := newTestService(t, at(9, 0))
	ctx := context.Background()

	// Spanish-locale spreadsheet export: Windows-1252 with semicolons.
	data := []byte("Matr\xedcula;Nombre;Grupo;Activo\n" +
		"a001;Jos\xe9 P\xe9rez;1A;s\xed\n" +
		"A002;Mar\xeda Ya\xf1ez;1A;no\n" +
		"A003;;2B;\n" +
		"A001;Otro;1A;si\n")

	res, err := svc.ImportStudents(ctx, "alumnos.csv", data)
	if err != nil {
		t.Fatalf("ImportStudents failed: %v", err)
	}

	if res.TotalRows != 4 || res.Inserted != 2 || res.Updated != 0 || res.Skipped != 2 {
		t.Errorf("result = total %d inserted %d updated %d skipped %d, want 4/2/0/2",
			res.TotalRows, res.Inserted, res.Updated, res.Skipped)
	}
	if len(res.FailedRows) != 2 {
		t.Fatalf("FailedRows = %+v, want 2", res.FailedRows)
	}
	if res.FailedRows[0].LineNumber != 4 || res.FailedRows[1].LineNumber != 5 {
		t.Errorf("failed lines = %d, %d, want 4, 5", res.FailedRows[0].LineNumber, res.FailedRows[1].LineNumber)
	}

	st, err := store.GetStudent(ctx, "A001")
	if err != nil {
		t.Fatalf("GetStudent failed: %v", err)
	}
	if st.Name != "José Pérez" || !st.Active {
		t.Errorf("A001 = %+v", st)
	}
	if st2, _ := store.GetStudent(ctx, "A002"); st2.Name != "María Yañez" || st2.Active {
		t.Errorf("A002 = %+v", st2)
	}
	if !slices.Contains(store.auditActions(), ActionImportStudents) {
		t.Error("import was not audited")
	}
}

func TestImportStudents_ReimportUpdates(t *testing.T) {
	svc, store := newTestService(t, at(9, 0))
	ctx := context.Background()

	if _, err := svc.ImportStudents(ctx, "a.csv", []byte("matricula,nombre\nA001,José Pérez\n")); err != nil {
		t.Fatalf("first import failed: %v", err)
	}

	svc.now = func() time.Time { return at(10, 0) }
	res, err := svc.ImportStudents(ctx, "b.csv", []byte("matricula,nombre,grupo\nA001,José Pérez López,2B\n"))
	if err != nil {
		t.Fatalf("second import failed: %v", err)
	}
	if res.Inserted != 0 || res.Updated != 1 {
		t.Errorf("inserted/updated = %d/%d, want 0/1", res.Inserted, res.Updated)
	}

	st, _ := store.GetStudent(ctx, "A001")
	if st.Name != "José Pérez López" || st.Group != "2B" {
		t.Errorf("student = %+v", st)
	}
	if !st.CreatedAt.Equal(at(9, 0)) || !st.UpdatedAt.Equal(at(10, 0)) {
		t.Errorf("CreatedAt/UpdatedAt = %v/%v", st.CreatedAt, st.UpdatedAt)
	}
}

func TestImportStudents_RepairsDoubleEncodedCells(t *testing.T) {
	svc, store := newTestService(t, at(9, 0))
	ctx := context.Background()

	res, err := svc.ImportStudents(ctx, "a.csv", []byte("matricula,nombre\nA001,JosÃ© PÃ©rez\nA002,Ana\n"))
	if err != nil {
		t.Fatalf("ImportStudents failed: %v", err)
	}
	if res.Repaired != 1 {
		t.Errorf("Repaired = %d, want 1", res.Repaired)
	}
	if st, _ := store.GetStudent(ctx, "A001"); st.Name != "José Pérez" {
		t.Errorf("Name = %q, want José Pérez", st.Name)
	}
}

func TestImportAttendance(t *testing.T) {
	svc, store := newTestService(t, at(9, 0))
	ctx := context.Background()
	seedStudents(t, store, student("A001", "Ana", "1A"), student("A002", "Beto", "1A"))
	store.attendance = []Attendance{{ID: "old", Matricula: "A002", Date: "2024-03-01", Time: "07:30:00", Status: StatusPresent}}

	data := []byte("matricula,fecha,hora,estado,nombre\n" +
		"A001,01/03/2024,07:50,,\n" + // line 2: on time, computed
		"A001,02/03/2024,08:30,,\n" + // line 3: late, computed
		"A001,03/03/2024,,retardo,\n" + // line 4: explicit status, no clock
		"A002,01/03/2024,07:40,,\n" + // line 5: already stored
		"Z999,01/03/2024,07:40,,\n" + // line 6: unknown, no name
		"Z998,01/03/2024,07:40,,Nuevo Alumno\n" + // line 7: unknown with name
		"A001,01/03/2024,09:00,,\n" + // line 8: duplicate in file
		"A001,ayer,,,\n") // line 9: bad date

	res, err := svc.ImportAttendance(ctx, "historial.csv", data)
	if err != nil {
		t.Fatalf("ImportAttendance failed: %v", err)
	}

	if res.TotalRows != 8 || res.Inserted != 4 || res.Skipped != 4 {
		t.Errorf("total/inserted/skipped = %d/%d/%d, want 8/4/4", res.TotalRows, res.Inserted, res.Skipped)
	}
	var lines []int
	for _, f := range res.FailedRows {
		lines = append(lines, f.LineNumber)
	}
	if want := []int{6, 8, 9}; !slices.Equal(lines, want) {
		t.Errorf("failed lines = %v, want %v", lines, want)
	}

	records, _ := store.ListAttendance(ctx, AttendanceFilter{Matricula: "A001"})
	if len(records) != 3 {
		t.Fatalf("A001 records = %d, want 3", len(records))
	}
	want := []struct {
		date, clock string
		status      Status
	}{
		{"2024-03-01", "07:50:00", StatusPresent},
		{"2024-03-02", "08:30:00", StatusLate},
		{"2024-03-03", "", StatusLate},
	}
	for i, w := range want {
		r := records[i]
		if r.Date != w.date || r.Time != w.clock || r.Status != w.status {
			t.Errorf("record %d = %s %q %s, want %s %q %s", i, r.Date, r.Time, r.Status, w.date, w.clock, w.status)
		}
		if r.Source != SourceImport || r.Name != "Ana" || r.Group != "1A" {
			t.Errorf("record %d = %+v", i, r)
		}
	}

	newcomer, _ := store.ListAttendance(ctx, AttendanceFilter{Matricula: "Z998"})
	if len(newcomer) != 1 || newcomer[0].Name != "Nuevo Alumno" {
		t.Errorf("Z998 records = %+v", newcomer)
	}
}

func TestImportAttendance_WallClockOnDSTChange(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}
	svc, store := newTestService(t, at(9, 0))
	svc.opts.Location = loc
	seedStudents(t, store, student("A001", "Ana", "1A"))

	// Clocks jump from 02:00 to 03:00 on 2024-03-10 in New York.
	data := []byte("matricula,fecha,hora\nA001,10/03/2024,08:05\n")
	if _, err := svc.ImportAttendance(context.Background(), "dst.csv", data); err != nil {
		t.Fatalf("ImportAttendance failed: %v", err)
	}

	records, _ := store.ListAttendance(context.Background(), AttendanceFilter{Matricula: "A001"})
	if len(records) != 1 {
		t.Fatalf("records = %+v, want 1", records)
	}
	if r := records[0]; r.Date != "2024-03-10" || r.Time != "08:05:00" || r.Status != StatusPresent {
		t.Errorf("record = %s %s %s, want 2024-03-10 08:05:00 presente", r.Date, r.Time, r.Status)
	}
}

func TestImport_Errors(t *testing.T) {
	tests := []struct {
		name     string
		kind     string
		data     []byte
		setup    func(*Service)
		wantErr  error
		wantCode string
	}{
		{
			name:     "empty file",
			kind:     "students",
			data:     nil,
			wantErr:  ErrEmptyFile,
			wantCode: "FILE005",
		},
		{
			name:     "too large",
			kind:     "students",
			data:     []byte("matricula,nombre\nA001,Ana\n"),
			setup:    func(s *Service) { s.opts.MaxFileSize = 10 },
			wantErr:  ErrFileTooLarge,
			wantCode: "FILE001",
		},
		{
			name:     "missing column",
			kind:     "students",
			data:     []byte("nombre,grupo\nAna,1A\n"),
			wantCode: "VAL004",
		},
		{
			name:     "unknown kind",
			kind:     "calificaciones",
			data:     []byte("a\n1\n"),
			wantErr:  ErrInvalidInput,
			wantCode: "VAL007",
		},
		{
			name: "busy",
			kind: "attendance",
			data: []byte("matricula,fecha\nA001,2024-03-01\n"),
			setup: func(s *Service) {
				s.limiter = NewImportLimiter(1, 10*time.Millisecond)
				s.limiter.TryAcquire()
			},
			wantErr:  ErrTooManyImports,
			wantCode: "IMP001",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _ := newTestService(t, at(9, 0))
			if tt.setup != nil {
				tt.setup(svc)
			}

			_, err := svc.Import(context.Background(), tt.kind, "x.csv", tt.data)
			if err == nil {
				t.Fatal("expected error")
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("error = %v, want %v", err, tt.wantErr)
			}
			if got := MapError(err).Code; got != tt.wantCode {
				t.Errorf("MapError(%v) code = %s, want %s", err, got, tt.wantCode)
			}
		})
	}
}

func TestImportKinds(t *testing.T) {
	if got := ImportKinds(); !slices.Equal(got, []string{"students", "attendance"}) {
		t.Errorf("ImportKinds = %v", got)
	}
}
