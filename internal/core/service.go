package core

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/JonMunkholm/asistencia/internal/config"
)

// Options are the service settings derived from configuration.
type Options struct {
	// Location dates registrations (kiosk wall clock).
	Location *time.Location
	// LateAfter is the offset from local midnight after which a
	// registration is recorded as late.
	LateAfter time.Duration

	MaxFileSize          int64
	ImportTimeout        time.Duration
	MaxConcurrentImports int
	ImportWait           time.Duration

	BackupDir  string
	BackupKeep int
}

// OptionsFromConfig builds Options from the loaded configuration.
func OptionsFromConfig(cfg *config.Config) (Options, error) {
	loc, err := cfg.Attendance.Location()
	if err != nil {
		return Options{}, err
	}
	late, err := cfg.Attendance.LateCutoff()
	if err != nil {
		return Options{}, err
	}
	return Options{
		Location:             loc,
		LateAfter:            late,
		MaxFileSize:          cfg.Import.MaxFileSize,
		ImportTimeout:        cfg.Import.Timeout,
		MaxConcurrentImports: cfg.Import.MaxConcurrent,
		ImportWait:           cfg.Import.MaxWaitTime,
		BackupDir:            cfg.Backup.Dir,
		BackupKeep:           cfg.Backup.Keep,
	}, nil
}

// Service provides the business logic for attendance registration.
type Service struct {
	store   Store
	opts    Options
	limiter *ImportLimiter
	now     func() time.Time

	backupMu   sync.Mutex
	lastBackup *BackupResult
}

// NewService creates a Service on top of store.
func NewService(store Store, opts Options) *Service {
	if opts.Location == nil {
		opts.Location = time.Local
	}
	return &Service{
		store:   store,
		opts:    opts,
		limiter: NewImportLimiter(opts.MaxConcurrentImports, opts.ImportWait),
		now:     time.Now,
	}
}

// Store returns the underlying store.
func (s *Service) Store() Store {
	return s.store
}

// Limiter returns the import limiter, for status reporting.
func (s *Service) Limiter() *ImportLimiter {
	return s.limiter
}

// Location returns the registration timezone.
func (s *Service) Location() *time.Location {
	return s.opts.Location
}

// Today returns the current local date as YYYY-MM-DD.
func (s *Service) Today() string {
	return s.localNow().Format(DateLayout)
}

func (s *Service) localNow() time.Time {
	return s.now().In(s.opts.Location)
}

// statusAt classifies a registration made at local time t.
func (s *Service) statusAt(t time.Time) Status {
	sinceMidnight := time.Duration(t.Hour())*time.Hour +
		time.Duration(t.Minute())*time.Minute +
		time.Duration(t.Second())*time.Second
	if sinceMidnight > s.opts.LateAfter {
		return StatusLate
	}
	return StatusPresent
}

// Shutdown waits for running imports and closes the store.
func (s *Service) Shutdown(ctx context.Context) error {
	if err := s.limiter.WaitForDrain(ctx); err != nil {
		return fmt.Errorf("wait for imports: %w", err)
	}
	return s.store.Close()
}
