package core

// records.go defines the CSV layout of each entity. The CSV store and the
// backup writer share these so a snapshot directory can be used as a data
// directory as-is.

import (
	"strconv"
	"time"
)

// Column layouts, in file order.
var (
	StudentColumns    = []string{"matricula", "nombre", "grupo", "activo", "created_at", "updated_at"}
	AttendanceColumns = []string{"id", "matricula", "nombre", "grupo", "fecha", "hora", "estado", "origen", "created_at"}
	UserColumns       = []string{"username", "password_hash", "role", "created_at"}
	AuditColumns      = []string{"id", "created_at", "action", "severity", "actor", "target", "detail", "rows_affected", "ip_address", "user_agent"}
)

// Record is one data row addressed by header name, so files with reordered
// or extra columns still load.
type Record struct {
	idx   HeaderIndex
	cells []string
}

// Records returns the rows of doc as Records.
func Records(doc *Document) []Record {
	idx := MakeHeaderIndex(doc.Header)
	out := make([]Record, len(doc.Rows))
	for i, row := range doc.Rows {
		out[i] = Record{idx: idx, cells: row}
	}
	return out
}

// Get returns the trimmed cell for column name, or "".
func (r Record) Get(name string) string {
	pos, ok := r.idx[FoldKey(name)]
	if !ok || pos >= len(r.cells) {
		return ""
	}
	return CleanCell(r.cells[pos])
}

func (r Record) timestamp(name string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, r.Get(name))
	if err != nil {
		return time.Time{}
	}
	return t
}

func formatTimestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

// StudentRow encodes st in StudentColumns order.
func StudentRow(st Student) []string {
	return []string{st.Matricula, st.Name, st.Group, strconv.FormatBool(st.Active), formatTimestamp(st.CreatedAt), formatTimestamp(st.UpdatedAt)}
}

// StudentFromRecord decodes a student row. A missing activo column means
// active. Names pass through CleanText, so legacy rows are repaired on load.
func StudentFromRecord(r Record) (Student, error) {
	active := true
	if raw := r.Get("activo"); raw != "" {
		active, _ = ParseBool(raw)
	}
	st, err := NewStudent(r.Get("matricula"), r.Get("nombre"), r.Get("grupo"), active)
	if err != nil {
		return Student{}, err
	}
	st.CreatedAt = r.timestamp("created_at")
	st.UpdatedAt = r.timestamp("updated_at")
	return st, nil
}

// AttendanceRow encodes a in AttendanceColumns order.
func AttendanceRow(a Attendance) []string {
	return []string{a.ID, a.Matricula, a.Name, a.Group, a.Date, a.Time, string(a.Status), string(a.Source), formatTimestamp(a.CreatedAt)}
}

// AttendanceFromRecord decodes an attendance row.
func AttendanceFromRecord(r Record) Attendance {
	status, ok := ParseStatus(r.Get("estado"))
	if !ok {
		status = StatusPresent
	}
	source := Source(r.Get("origen"))
	if source == "" {
		source = SourceImport
	}
	date := r.Get("fecha")
	if d, ok := ParseDate(date); ok {
		date = d.Format(DateLayout)
	}
	return Attendance{
		ID:        r.Get("id"),
		Matricula: NormalizeMatricula(r.Get("matricula")),
		Name:      CleanText(r.Get("nombre")),
		Group:     CleanText(r.Get("grupo")),
		Date:      date,
		Time:      r.Get("hora"),
		Status:    status,
		Source:    source,
		CreatedAt: r.timestamp("created_at"),
	}
}

// UserRow encodes u in UserColumns order.
func UserRow(u User) []string {
	return []string{u.Username, u.PasswordHash, string(u.Role), formatTimestamp(u.CreatedAt)}
}

// UserFromRecord decodes a user row.
func UserFromRecord(r Record) User {
	return User{
		Username:     normalizeUsername(r.Get("username")),
		PasswordHash: r.Get("password_hash"),
		Role:         Role(r.Get("role")),
		CreatedAt:    r.timestamp("created_at"),
	}
}

// AuditRow encodes e in AuditColumns order.
func AuditRow(e AuditEntry) []string {
	return []string{
		e.ID, formatTimestamp(e.CreatedAt), string(e.Action), string(e.Severity), e.Actor,
		e.Target, e.Detail, strconv.Itoa(e.RowsAffected), e.IPAddress, e.UserAgent,
	}
}

// AuditFromRecord decodes an audit row.
func AuditFromRecord(r Record) AuditEntry {
	rows, _ := strconv.Atoi(r.Get("rows_affected"))
	return AuditEntry{
		ID:           r.Get("id"),
		CreatedAt:    r.timestamp("created_at"),
		Action:       AuditAction(r.Get("action")),
		Severity:     AuditSeverity(r.Get("severity")),
		Actor:        r.Get("actor"),
		Target:       r.Get("target"),
		Detail:       r.Get("detail"),
		RowsAffected: rows,
		IPAddress:    r.Get("ip_address"),
		UserAgent:    r.Get("user_agent"),
	}
}
