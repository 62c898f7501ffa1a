package core

// backup.go writes point-in-time snapshots of every entity as CSV.
//
// A snapshot is a directory named snapshot-YYYYMMDD-HHMMSS containing
// students.csv, attendance.csv, users.csv and audit.csv in the same layout
// the CSV store uses. Files start with a UTF-8 BOM so they open cleanly in
// spreadsheet programs. The directory is written under a temporary name and
// renamed when complete.

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/JonMunkholm/asistencia/internal/logging"
)

const snapshotPrefix = "snapshot-"

// BackupResult describes one snapshot.
type BackupResult struct {
	Dir        string        `json:"dir"`
	Students   int           `json:"students"`
	Attendance int           `json:"attendance"`
	Users      int           `json:"users"`
	Audit      int           `json:"audit"`
	Pruned     int           `json:"pruned"`
	CreatedAt  time.Time     `json:"createdAt"`
	Duration   time.Duration `json:"duration"`
}

// Backup writes a snapshot into the configured backup directory and prunes
// old snapshots beyond the configured count.
func (s *Service) Backup(ctx context.Context) (*BackupResult, error) {
	return s.BackupTo(ctx, s.opts.BackupDir, s.opts.BackupKeep)
}

// BackupTo writes a snapshot under dir. keep <= 0 disables pruning.
func (s *Service) BackupTo(ctx context.Context, dir string, keep int) (*BackupResult, error) {
	s.backupMu.Lock()
	defer s.backupMu.Unlock()

	start := time.Now()
	created := s.now().UTC()
	name := snapshotPrefix + created.Format("20060102-150405")
	final := filepath.Join(dir, name)
	if _, err := os.Stat(final); err == nil {
		name += fmt.Sprintf("-%03d", created.Nanosecond()/int(time.Millisecond))
		final = filepath.Join(dir, name)
	}
	tmp := final + ".tmp"

	if err := os.MkdirAll(tmp, 0o755); err != nil {
		return nil, fmt.Errorf("backup: create dir: %w", err)
	}

	res := &BackupResult{Dir: final, CreatedAt: created}
	if err := s.writeSnapshot(ctx, tmp, res); err != nil {
		os.RemoveAll(tmp)
		return nil, fmt.Errorf("backup: %w", err)
	}
	if err := os.Rename(tmp, final); err != nil {
		os.RemoveAll(tmp)
		return nil, fmt.Errorf("backup: finalize: %w", err)
	}

	if keep > 0 {
		pruned, err := pruneSnapshots(dir, keep)
		if err != nil {
			logging.FromContext(ctx).Warn("backup prune failed", "dir", dir, "error", err)
		}
		res.Pruned = pruned
	}
	res.Duration = time.Since(start)
	s.lastBackup = res

	s.LogAudit(ctx, AuditLogParams{
		Action:       ActionBackup,
		Target:       name,
		RowsAffected: res.Students + res.Attendance,
	})
	return res, nil
}

func (s *Service) writeSnapshot(ctx context.Context, dir string, res *BackupResult) error {
	students, err := s.store.ListStudents(ctx)
	if err != nil {
		return err
	}
	attendance, err := s.store.ListAttendance(ctx, AttendanceFilter{})
	if err != nil {
		return err
	}
	users, err := s.store.ListUsers(ctx)
	if err != nil {
		return err
	}
	audit, err := s.store.ListAudit(ctx, AuditFilter{})
	if err != nil {
		return err
	}
	// ListAudit is newest first; the audit file is append order.
	for i, j := 0, len(audit)-1; i < j; i, j = i+1, j-1 {
		audit[i], audit[j] = audit[j], audit[i]
	}

	files := []struct {
		name   string
		header []string
		rows   [][]string
	}{
		{"students.csv", StudentColumns, mapRows(students, StudentRow)},
		{"attendance.csv", AttendanceColumns, mapRows(attendance, AttendanceRow)},
		{"users.csv", UserColumns, mapRows(users, UserRow)},
		{"audit.csv", AuditColumns, mapRows(audit, AuditRow)},
	}
	for _, f := range files {
		if err := writeCSVFile(filepath.Join(dir, f.name), f.header, f.rows); err != nil {
			return err
		}
	}

	res.Students, res.Attendance, res.Users, res.Audit = len(students), len(attendance), len(users), len(audit)
	return nil
}

func mapRows[T any](items []T, encode func(T) []string) [][]string {
	rows := make([][]string, len(items))
	for i, it := range items {
		rows[i] = encode(it)
	}
	return rows
}

func writeCSVFile(path string, header []string, rows [][]string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", filepath.Base(path), err)
	}
	if err := WriteCSV(f, header, rows, true); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	return f.Close()
}

// ListSnapshots returns snapshot directory names under dir, oldest first.
func ListSnapshots(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() && strings.HasPrefix(e.Name(), snapshotPrefix) && !strings.HasSuffix(e.Name(), ".tmp") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

func pruneSnapshots(dir string, keep int) (int, error) {
	names, err := ListSnapshots(dir)
	if err != nil {
		return 0, err
	}
	pruned := 0
	for len(names)-pruned > keep {
		if err := os.RemoveAll(filepath.Join(dir, names[pruned])); err != nil {
			return pruned, err
		}
		pruned++
	}
	return pruned, nil
}

// LastBackup returns the most recent snapshot taken by this process, or nil.
func (s *Service) LastBackup() *BackupResult {
	s.backupMu.Lock()
	defer s.backupMu.Unlock()
	return s.lastBackup
}
