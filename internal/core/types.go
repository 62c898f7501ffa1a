package core

import (
	"context"
	"time"
)

// Status is the outcome recorded for a registration.
type Status string

const (
	StatusPresent Status = "presente"
	StatusLate    Status = "retardo"
)

// Source identifies how an attendance record entered the system.
type Source string

const (
	SourceKiosk  Source = "kiosk"
	SourceImport Source = "import"
	SourceAdmin  Source = "admin"
)

// Role is a user's permission level.
type Role string

const (
	RoleAdmin  Role = "admin"
	RoleViewer Role = "viewer"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleViewer
}

// Student is an enrolled student. Matricula is the enrollment id.
type Student struct {
	Matricula string    `json:"matricula"`
	Name      string    `json:"nombre"`
	Group     string    `json:"grupo"`
	Active    bool      `json:"activo"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Attendance is one registration. Name and Group are copied from the student
// at registration time so history survives roster changes.
type Attendance struct {
	ID        string    `json:"id"`
	Matricula string    `json:"matricula"`
	Name      string    `json:"nombre"`
	Group     string    `json:"grupo"`
	Date      string    `json:"fecha"` // YYYY-MM-DD, local
	Time      string    `json:"hora"`  // HH:MM:SS, local
	Status    Status    `json:"estado"`
	Source    Source    `json:"origen"`
	CreatedAt time.Time `json:"createdAt"`
}

// User is a dashboard account.
type User struct {
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"`
	CreatedAt    time.Time `json:"createdAt"`
}

// AttendanceFilter narrows ListAttendance. Zero fields match everything.
// From and To are inclusive YYYY-MM-DD bounds.
type AttendanceFilter struct {
	From      string
	To        string
	Group     string
	Matricula string
	Limit     int
}

// Matches reports whether a passes the filter (Limit is ignored).
func (f AttendanceFilter) Matches(a Attendance) bool {
	if f.From != "" && a.Date < f.From {
		return false
	}
	if f.To != "" && a.Date > f.To {
		return false
	}
	if f.Group != "" && !equalFold(a.Group, f.Group) {
		return false
	}
	if f.Matricula != "" && a.Matricula != NormalizeMatricula(f.Matricula) {
		return false
	}
	return true
}

// Store is the persistence boundary. Implementations live under
// internal/store and must be safe for concurrent use.
type Store interface {
	// Kind names the backend ("csv", "postgres").
	Kind() string
	Ping(ctx context.Context) error
	Close() error

	ListStudents(ctx context.Context) ([]Student, error)
	// GetStudent returns ErrStudentNotFound when no row matches.
	GetStudent(ctx context.Context, matricula string) (Student, error)
	// UpsertStudents inserts new students and replaces existing ones by matricula.
	UpsertStudents(ctx context.Context, students []Student) (inserted, updated int, err error)
	DeleteStudent(ctx context.Context, matricula string) error

	// ListAttendance returns matching records ordered by date then time.
	ListAttendance(ctx context.Context, f AttendanceFilter) ([]Attendance, error)
	// InsertAttendance returns ErrAlreadyRegistered when the student already
	// has a record for a.Date.
	InsertAttendance(ctx context.Context, a Attendance) error
	// ImportAttendance inserts records, skipping any (matricula, date) pair
	// already present.
	ImportAttendance(ctx context.Context, records []Attendance) (inserted, skipped int, err error)
	DeleteAttendance(ctx context.Context, id string) error

	ListUsers(ctx context.Context) ([]User, error)
	// GetUser returns ErrUserNotFound when no row matches.
	GetUser(ctx context.Context, username string) (User, error)
	SaveUser(ctx context.Context, u User) error

	AppendAudit(ctx context.Context, e AuditEntry) error
	ListAudit(ctx context.Context, f AuditFilter) ([]AuditEntry, error)
}

// FailedRow contains information about an import row that was rejected.
type FailedRow struct {
	LineNumber int      `json:"line"`
	Reason     string   `json:"reason"`
	Data       []string `json:"data"`
}

// ImportResult contains the final result of an import operation.
type ImportResult struct {
	Kind       string        `json:"kind"`
	FileName   string        `json:"fileName"`
	TotalRows  int           `json:"totalRows"`
	Inserted   int           `json:"inserted"`
	Updated    int           `json:"updated"`
	Skipped    int           `json:"skipped"`
	Repaired   int           `json:"repaired"`
	FailedRows []FailedRow   `json:"failedRows"`
	Duration   time.Duration `json:"duration"`
}
