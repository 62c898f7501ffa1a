package core

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/JonMunkholm/asistencia/internal/logging"
)

// AuditAction represents the type of action being audited.
type AuditAction string

const (
	ActionImportStudents   AuditAction = "import_students"
	ActionImportAttendance AuditAction = "import_attendance"
	ActionStudentSave      AuditAction = "student_save"
	ActionStudentDelete    AuditAction = "student_delete"
	ActionAttendanceAdd    AuditAction = "attendance_add"
	ActionAttendanceDelete AuditAction = "attendance_delete"
	ActionUserCreate       AuditAction = "user_create"
	ActionLogin            AuditAction = "login"
	ActionLoginFailed      AuditAction = "login_failed"
	ActionBackup           AuditAction = "backup"
)

// AuditSeverity represents the severity level of an audit entry.
type AuditSeverity string

const (
	SeverityLow      AuditSeverity = "low"
	SeverityMedium   AuditSeverity = "medium"
	SeverityHigh     AuditSeverity = "high"
	SeverityCritical AuditSeverity = "critical"
)

// AuditEntry represents a single audit log entry.
type AuditEntry struct {
	ID           string        `json:"id"`
	Action       AuditAction   `json:"action"`
	Severity     AuditSeverity `json:"severity"`
	Actor        string        `json:"actor"`
	Target       string        `json:"target,omitempty"`
	Detail       string        `json:"detail,omitempty"`
	RowsAffected int           `json:"rowsAffected,omitempty"`
	IPAddress    string        `json:"ipAddress,omitempty"`
	UserAgent    string        `json:"userAgent,omitempty"`
	CreatedAt    time.Time     `json:"createdAt"`
}

// AuditFilter narrows ListAudit. Results are newest first.
type AuditFilter struct {
	Action   AuditAction
	Severity AuditSeverity
	Actor    string
	Since    time.Time
	Limit    int
}

// Matches reports whether e passes the filter (Limit is ignored).
func (f AuditFilter) Matches(e AuditEntry) bool {
	if f.Action != "" && e.Action != f.Action {
		return false
	}
	if f.Severity != "" && e.Severity != f.Severity {
		return false
	}
	if f.Actor != "" && e.Actor != f.Actor {
		return false
	}
	if !f.Since.IsZero() && e.CreatedAt.Before(f.Since) {
		return false
	}
	return true
}

// AuditLogParams contains parameters for creating an audit log entry.
// Actor, IP address and user agent are taken from the context.
type AuditLogParams struct {
	Action       AuditAction
	Target       string
	Detail       string
	RowsAffected int
}

// determineSeverity returns the appropriate severity for an action.
func determineSeverity(action AuditAction) AuditSeverity {
	switch action {
	case ActionImportStudents, ActionImportAttendance, ActionStudentDelete, ActionAttendanceDelete:
		return SeverityHigh
	case ActionUserCreate, ActionLoginFailed:
		return SeverityCritical
	case ActionLogin, ActionBackup:
		return SeverityLow
	default:
		return SeverityMedium
	}
}

// LogAudit records an audit entry. Failures are logged, not returned: an
// audit outage must not block registrations or imports.
func (s *Service) LogAudit(ctx context.Context, params AuditLogParams) *AuditEntry {
	entry := AuditEntry{
		ID:           uuid.NewString(),
		Action:       params.Action,
		Severity:     determineSeverity(params.Action),
		Actor:        GetActorFromContext(ctx),
		Target:       params.Target,
		Detail:       params.Detail,
		RowsAffected: params.RowsAffected,
		IPAddress:    GetIPAddressFromContext(ctx),
		UserAgent:    GetUserAgentFromContext(ctx),
		CreatedAt:    s.now().UTC(),
	}

	if err := s.store.AppendAudit(ctx, entry); err != nil {
		logging.FromContext(ctx).Error("audit write failed",
			"action", entry.Action,
			"target", entry.Target,
			"error", err,
		)
		return nil
	}

	level := slog.LevelDebug
	if entry.Severity == SeverityCritical || entry.Severity == SeverityHigh {
		level = slog.LevelInfo
	}
	logging.FromContext(ctx).Log(ctx, level, "audit",
		"action", entry.Action,
		"actor", entry.Actor,
		"target", entry.Target,
		"rows", entry.RowsAffected,
	)
	return &entry
}

// ListAudit returns audit entries, newest first.
func (s *Service) ListAudit(ctx context.Context, f AuditFilter) ([]AuditEntry, error) {
	if f.Limit <= 0 || f.Limit > 1000 {
		f.Limit = 200
	}
	entries, err := s.store.ListAudit(ctx, f)
	if err != nil {
		return nil, err
	}
	return entries, nil
}
