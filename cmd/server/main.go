package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/JonMunkholm/asistencia/internal/auth"
	"github.com/JonMunkholm/asistencia/internal/config"
	"github.com/JonMunkholm/asistencia/internal/core"
	"github.com/JonMunkholm/asistencia/internal/logging"
	"github.com/JonMunkholm/asistencia/internal/store"
	"github.com/JonMunkholm/asistencia/internal/web"
)

func main() {
	// Load .env file if it exists (Overload overwrites existing env vars)
	if err := godotenv.Overload(); err != nil {
		slog.Info("no .env file found, using environment variables")
	} else {
		slog.Info("loaded .env file (overwriting existing env vars)")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)

	slog.Info("configuration loaded",
		"port", cfg.Server.Port,
		"store", cfg.Store.Kind,
		"timezone", cfg.Attendance.Timezone,
		"late_after", cfg.Attendance.LateAfter,
		"import_max_concurrent", cfg.Import.MaxConcurrent,
		"rate_limit_enabled", cfg.Rate.Enabled,
	)

	ctx := context.Background()
	st, err := store.Open(ctx, cfg.Store)
	if err != nil {
		slog.Error("failed to open store", "kind", cfg.Store.Kind, "error", err)
		os.Exit(1)
	}

	opts, err := core.OptionsFromConfig(cfg)
	if err != nil {
		st.Close()
		slog.Error("invalid attendance settings", "error", err)
		os.Exit(1)
	}
	service := core.NewService(st, opts)

	if created, err := service.EnsureAdmin(ctx, cfg.Auth.AdminUser, cfg.Auth.AdminPassword); err != nil {
		slog.Error("failed to bootstrap admin account", "error", err)
		os.Exit(1)
	} else if !created && cfg.Auth.AdminPassword != "" {
		slog.Debug("admin bootstrap skipped, users already exist")
	}

	issuer := auth.NewIssuer(cfg.Auth.JWTSecret, cfg.Auth.Issuer, cfg.Auth.TokenTTL)
	server := web.NewServer(service, issuer, cfg)

	// Create cancellable context for background jobs
	jobCtx, cancelJobs := context.WithCancel(context.Background())
	if cfg.Backup.Enabled {
		go service.StartBackupScheduler(jobCtx, cfg.Backup.Interval)
	}

	// Graceful shutdown
	done := make(chan struct{})
	go func() {
		defer close(done)
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down...")
		cancelJobs()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown error", "error", err)
		}

		// Wait for active imports, then close the store
		if active := service.Limiter().ActiveCount(); active > 0 {
			slog.Info("waiting for imports to complete", "active", active)
		}
		if err := service.Shutdown(shutdownCtx); err != nil {
			slog.Warn("service shutdown incomplete", "error", err)
		}
	}()

	slog.Info("server starting", "addr", cfg.Server.Addr())
	if err := server.Start(); !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server failed", "error", err)
		cancelJobs()
		st.Close()
		os.Exit(1)
	}
	<-done
	slog.Info("server stopped")
}
