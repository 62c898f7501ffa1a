// Package pgstore implements core.Store on PostgreSQL using a pgx pool.
//
// The schema is embedded and applied idempotently on Open. Uniqueness of one
// registration per student per day is enforced by a table constraint, so
// concurrent kiosks cannot double-register.
package pgstore

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JonMunkholm/asistencia/internal/config"
	"github.com/JonMunkholm/asistencia/internal/core"
)

//go:embed schema.sql
var schemaSQL string

// DBTX is the subset of pgx used by queries.
// Satisfied by both *pgxpool.Pool and pgx.Tx.
type DBTX interface {
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
	Query(context.Context, string, ...any) (pgx.Rows, error)
	QueryRow(context.Context, string, ...any) pgx.Row
}

// Store implements core.Store.
type Store struct {
	pool *pgxpool.Pool
	now  func() time.Time
}

var _ core.Store = (*Store)(nil)

// Open connects using cfg, verifies the connection and applies the schema.
func Open(ctx context.Context, cfg config.StoreConfig) (*Store, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database URL: %w", err)
	}
	poolConfig.MaxConns = int32(cfg.MaxConns)
	poolConfig.MinConns = int32(cfg.MinConns)
	poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if _, err := pool.Exec(ctx, schemaSQL); err != nil {
		pool.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	if u, err := url.Parse(cfg.DatabaseURL); err == nil {
		slog.Info("connected to database", "name", strings.TrimPrefix(u.Path, "/"))
	} else {
		slog.Info("connected to database")
	}

	return &Store{pool: pool, now: time.Now}, nil
}

func (s *Store) Kind() string { return "postgres" }

func (s *Store) Ping(ctx context.Context) error { return s.pool.Ping(ctx) }

func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

// ----------------------------------------------------------------------------
// Students
// ----------------------------------------------------------------------------

const studentColumns = `matricula, nombre, grupo, activo, created_at, updated_at`

func scanStudent(row pgx.Row) (core.Student, error) {
	var (
		st                   core.Student
		createdAt, updatedAt pgtype.Timestamptz
	)
	if err := row.Scan(&st.Matricula, &st.Name, &st.Group, &st.Active, &createdAt, &updatedAt); err != nil {
		return core.Student{}, err
	}
	st.CreatedAt = timeValue(createdAt)
	st.UpdatedAt = timeValue(updatedAt)
	return st, nil
}

func (s *Store) ListStudents(ctx context.Context) ([]core.Student, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+studentColumns+` FROM students ORDER BY matricula`)
	if err != nil {
		return nil, fmt.Errorf("list students: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (core.Student, error) {
		return scanStudent(row)
	})
}

func (s *Store) GetStudent(ctx context.Context, matricula string) (core.Student, error) {
	return getStudent(ctx, s.pool, matricula)
}

func getStudent(ctx context.Context, q DBTX, matricula string) (core.Student, error) {
	st, err := scanStudent(q.QueryRow(ctx,
		`SELECT `+studentColumns+` FROM students WHERE matricula = $1`, matricula))
	if errors.Is(err, pgx.ErrNoRows) {
		return core.Student{}, core.ErrStudentNotFound
	}
	if err != nil {
		return core.Student{}, fmt.Errorf("get student: %w", err)
	}
	return st, nil
}

// UpsertStudents copies the batch into a staging table and merges it in one
// statement. The last occurrence of a matricula in the batch wins.
func (s *Store) UpsertStudents(ctx context.Context, students []core.Student) (int, int, error) {
	if len(students) == 0 {
		return 0, 0, nil
	}

	latest := make(map[string]int, len(students))
	for i, st := range students {
		latest[st.Matricula] = i
	}
	batch := make([]core.Student, 0, len(latest))
	for i, st := range students {
		if latest[st.Matricula] == i {
			batch = append(batch, st)
		}
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx,
		`CREATE TEMP TABLE students_stage (LIKE students INCLUDING DEFAULTS) ON COMMIT DROP`); err != nil {
		return 0, 0, fmt.Errorf("create staging table: %w", err)
	}

	now := s.now()
	_, err = tx.CopyFrom(ctx,
		pgx.Identifier{"students_stage"},
		[]string{"matricula", "nombre", "grupo", "activo", "created_at", "updated_at"},
		pgx.CopyFromSlice(len(batch), func(i int) ([]any, error) {
			st := batch[i]
			return []any{st.Matricula, st.Name, st.Group, st.Active,
				timestampOr(st.CreatedAt, now), timestampOr(st.UpdatedAt, now)}, nil
		}),
	)
	if err != nil {
		return 0, 0, fmt.Errorf("copy students: %w", err)
	}

	rows, err := tx.Query(ctx, `
		INSERT INTO students (`+studentColumns+`)
		SELECT `+studentColumns+` FROM students_stage
		ON CONFLICT (matricula) DO UPDATE SET
			nombre = EXCLUDED.nombre,
			grupo = EXCLUDED.grupo,
			activo = EXCLUDED.activo,
			updated_at = EXCLUDED.updated_at
		RETURNING (xmax = 0) AS inserted`)
	if err != nil {
		return 0, 0, fmt.Errorf("merge students: %w", err)
	}
	flags, err := pgx.CollectRows(rows, pgx.RowTo[bool])
	if err != nil {
		return 0, 0, fmt.Errorf("merge students: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, 0, fmt.Errorf("commit: %w", err)
	}

	var inserted, updated int
	for _, isNew := range flags {
		if isNew {
			inserted++
		} else {
			updated++
		}
	}
	return inserted, updated, nil
}

func (s *Store) DeleteStudent(ctx context.Context, matricula string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM students WHERE matricula = $1`, matricula)
	if err != nil {
		return fmt.Errorf("delete student: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return core.ErrStudentNotFound
	}
	return nil
}

// ----------------------------------------------------------------------------
// Attendance
// ----------------------------------------------------------------------------

const insertAttendanceSQL = `
	INSERT INTO attendance (id, matricula, nombre, grupo, grupo_key, fecha, hora, estado, origen, created_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

func (s *Store) attendanceArgs(a core.Attendance) []any {
	return []any{
		a.ID, a.Matricula, a.Name, a.Group, core.FoldKey(a.Group),
		a.Date, a.Time, string(a.Status), string(a.Source), timestampOr(a.CreatedAt, s.now()),
	}
}

func (s *Store) ListAttendance(ctx context.Context, f core.AttendanceFilter) ([]core.Attendance, error) {
	wb := NewWhereBuilder()
	wb.AddRange("fecha", f.From, f.To)
	wb.Add("grupo_key", core.FoldKey(f.Group))
	wb.Add("matricula", core.NormalizeMatricula(f.Matricula))
	whereClause, args := wb.Build()

	query := `SELECT id, matricula, nombre, grupo, to_char(fecha, 'YYYY-MM-DD'), hora, estado, origen, created_at
		FROM attendance` + whereClause + ` ORDER BY fecha, hora, created_at`
	if f.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", wb.NextArgIndex())
		args = append(args, f.Limit)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list attendance: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (core.Attendance, error) {
		var (
			a              core.Attendance
			status, source string
			createdAt      pgtype.Timestamptz
		)
		err := row.Scan(&a.ID, &a.Matricula, &a.Name, &a.Group, &a.Date, &a.Time, &status, &source, &createdAt)
		a.Status = core.Status(status)
		a.Source = core.Source(source)
		a.CreatedAt = timeValue(createdAt)
		return a, err
	})
}

func (s *Store) InsertAttendance(ctx context.Context, a core.Attendance) error {
	_, err := s.pool.Exec(ctx, insertAttendanceSQL, s.attendanceArgs(a)...)
	if isUniqueViolation(err) {
		return core.ErrAlreadyRegistered
	}
	if err != nil {
		return fmt.Errorf("insert attendance: %w", err)
	}
	return nil
}

// ImportAttendance sends every row in one batch inside a transaction.
// Conflicting (matricula, fecha) pairs are skipped by the database.
func (s *Store) ImportAttendance(ctx context.Context, records []core.Attendance) (int, int, error) {
	if len(records) == 0 {
		return 0, 0, nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	batch := &pgx.Batch{}
	for _, a := range records {
		batch.Queue(insertAttendanceSQL+` ON CONFLICT (matricula, fecha) DO NOTHING`, s.attendanceArgs(a)...)
	}

	br := tx.SendBatch(ctx, batch)
	var inserted int
	for i := range records {
		tag, err := br.Exec()
		if err != nil {
			br.Close()
			return 0, 0, fmt.Errorf("import attendance row %d: %w", i+1, err)
		}
		inserted += int(tag.RowsAffected())
	}
	if err := br.Close(); err != nil {
		return 0, 0, fmt.Errorf("import attendance: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, 0, fmt.Errorf("commit: %w", err)
	}
	return inserted, len(records) - inserted, nil
}

func (s *Store) DeleteAttendance(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM attendance WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete attendance: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return core.ErrAttendanceNotFound
	}
	return nil
}

// ----------------------------------------------------------------------------
// Users
// ----------------------------------------------------------------------------

func scanUser(row pgx.Row) (core.User, error) {
	var (
		u         core.User
		role      string
		createdAt pgtype.Timestamptz
	)
	if err := row.Scan(&u.Username, &u.PasswordHash, &role, &createdAt); err != nil {
		return core.User{}, err
	}
	u.Role = core.Role(role)
	u.CreatedAt = timeValue(createdAt)
	return u, nil
}

func (s *Store) ListUsers(ctx context.Context) ([]core.User, error) {
	rows, err := s.pool.Query(ctx, `SELECT username, password_hash, role, created_at FROM users ORDER BY username`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (core.User, error) {
		return scanUser(row)
	})
}

func (s *Store) GetUser(ctx context.Context, username string) (core.User, error) {
	u, err := scanUser(s.pool.QueryRow(ctx,
		`SELECT username, password_hash, role, created_at FROM users WHERE username = $1`, username))
	if errors.Is(err, pgx.ErrNoRows) {
		return core.User{}, core.ErrUserNotFound
	}
	if err != nil {
		return core.User{}, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

func (s *Store) SaveUser(ctx context.Context, u core.User) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO users (username, password_hash, role, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (username) DO UPDATE SET
			password_hash = EXCLUDED.password_hash,
			role = EXCLUDED.role`,
		u.Username, u.PasswordHash, string(u.Role), timestampOr(u.CreatedAt, s.now()))
	if err != nil {
		return fmt.Errorf("save user: %w", err)
	}
	return nil
}

// ----------------------------------------------------------------------------
// Audit
// ----------------------------------------------------------------------------

func (s *Store) AppendAudit(ctx context.Context, e core.AuditEntry) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO audit_log (id, created_at, action, severity, actor, target, detail, rows_affected, ip_address, user_agent)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		toPgUUID(e.ID), timestampOr(e.CreatedAt, s.now()), string(e.Action), string(e.Severity),
		toPgText(e.Actor), toPgText(e.Target), toPgText(e.Detail), e.RowsAffected,
		toPgText(e.IPAddress), toPgText(e.UserAgent))
	if err != nil {
		return fmt.Errorf("append audit: %w", err)
	}
	return nil
}

// ListAudit returns matching entries newest first.
func (s *Store) ListAudit(ctx context.Context, f core.AuditFilter) ([]core.AuditEntry, error) {
	wb := NewWhereBuilder()
	wb.Add("action", string(f.Action))
	wb.Add("severity", string(f.Severity))
	wb.Add("actor", f.Actor)
	wb.AddSince("created_at", f.Since)
	whereClause, args := wb.Build()

	query := `SELECT id, created_at, action, severity, actor, target, detail, rows_affected, ip_address, user_agent
		FROM audit_log` + whereClause + ` ORDER BY seq DESC`
	if f.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", wb.NextArgIndex())
		args = append(args, f.Limit)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list audit: %w", err)
	}
	return pgx.CollectRows(rows, scanAuditRow)
}

func scanAuditRow(row pgx.CollectableRow) (core.AuditEntry, error) {
	var (
		id                                   pgtype.UUID
		createdAt                            pgtype.Timestamptz
		action, severity                     string
		actor, target, detail, ip, userAgent pgtype.Text
		rowsAffected                         int32
	)
	err := row.Scan(&id, &createdAt, &action, &severity, &actor, &target, &detail, &rowsAffected, &ip, &userAgent)
	if err != nil {
		return core.AuditEntry{}, err
	}
	return core.AuditEntry{
		ID:           uuidString(id),
		CreatedAt:    timeValue(createdAt),
		Action:       core.AuditAction(action),
		Severity:     core.AuditSeverity(severity),
		Actor:        textValue(actor),
		Target:       textValue(target),
		Detail:       textValue(detail),
		RowsAffected: int(rowsAffected),
		IPAddress:    textValue(ip),
		UserAgent:    textValue(userAgent),
	}, nil
}
