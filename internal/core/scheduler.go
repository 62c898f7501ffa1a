package core

// scheduler.go runs periodic snapshots in the background.
//
// The scheduler is long-running and context-aware for graceful shutdown.
// A failed snapshot is logged and retried on the next tick; it never stops
// the server.

import (
	"context"
	"log/slog"
	"path/filepath"
	"strings"
	"time"
)

// StartBackupScheduler takes a snapshot every interval until ctx ends. On
// start it takes one immediately if the newest snapshot is older than
// interval (or none exists).
func (s *Service) StartBackupScheduler(ctx context.Context, interval time.Duration) {
	slog.Info("backup scheduler started",
		"dir", s.opts.BackupDir,
		"interval", interval.String(),
		"keep", s.opts.BackupKeep,
	)

	if s.snapshotDue(interval) {
		s.runBackupJob(ctx)
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("backup scheduler stopped")
			return
		case <-ticker.C:
			s.runBackupJob(ctx)
		}
	}
}

func (s *Service) runBackupJob(ctx context.Context) {
	res, err := s.Backup(ContextWithActor(ctx, "scheduler"))
	if err != nil {
		slog.Error("scheduled backup failed", "error", err)
		return
	}
	slog.Info("scheduled backup completed",
		"dir", res.Dir,
		"students", res.Students,
		"attendance", res.Attendance,
		"pruned", res.Pruned,
		"duration_ms", res.Duration.Milliseconds(),
	)
}

// snapshotDue reports whether the newest snapshot is older than interval.
func (s *Service) snapshotDue(interval time.Duration) bool {
	names, err := ListSnapshots(s.opts.BackupDir)
	if err != nil || len(names) == 0 {
		return true
	}
	newest := filepath.Base(names[len(names)-1])
	stamp := strings.TrimPrefix(newest, snapshotPrefix)
	if len(stamp) > len("20060102-150405") {
		stamp = stamp[:len("20060102-150405")]
	}
	taken, err := time.Parse("20060102-150405", stamp)
	if err != nil {
		return true
	}
	return s.now().UTC().Sub(taken) >= interval
}
