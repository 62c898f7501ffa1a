// Package config provides centralized configuration management for the application.
// It loads configuration from environment variables with sensible defaults and
// validates all settings on startup to fail fast on misconfiguration.
package config

import (
	"fmt"
	"net"
	"strconv"
	"time"
)

// Config holds all application configuration.
// All settings can be configured via environment variables.
type Config struct {
	Server     ServerConfig
	Store      StoreConfig
	Import     ImportConfig
	Rate       RateLimitConfig
	Security   SecurityConfig
	Auth       AuthConfig
	Attendance AttendanceConfig
	Backup     BackupConfig
	Logging    LoggingConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host is the interface to bind to (default: 0.0.0.0)
	Host string `env:"SERVER_HOST" default:"0.0.0.0"`

	// Port is the port to listen on (default: 8080)
	Port int `env:"SERVER_PORT" envAlt:"PORT" default:"8080"`

	ReadTimeout     time.Duration `env:"SERVER_READ_TIMEOUT" default:"15s"`
	WriteTimeout    time.Duration `env:"SERVER_WRITE_TIMEOUT" default:"30s"`
	IdleTimeout     time.Duration `env:"SERVER_IDLE_TIMEOUT" default:"60s"`
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`

	// RequestTimeout is the middleware timeout for requests (default: 60s)
	RequestTimeout time.Duration `env:"SERVER_REQUEST_TIMEOUT" default:"60s"`
}

// StoreConfig selects and configures the persistence backend.
type StoreConfig struct {
	// Kind is "csv" (files under DataDir) or "postgres" (default: csv)
	Kind string `env:"STORE_KIND" default:"csv"`

	// DataDir holds the CSV files when Kind is csv (default: data)
	DataDir string `env:"DATA_DIR" default:"data"`

	// DatabaseURL is the PostgreSQL connection string, required when Kind is postgres.
	// Supports both DATABASE_URL and DB_URL env vars for compatibility
	DatabaseURL string `env:"DATABASE_URL" envAlt:"DB_URL"`

	MaxConns        int           `env:"DB_MAX_CONNS" default:"10"`
	MinConns        int           `env:"DB_MIN_CONNS" default:"2"`
	MaxConnLifetime time.Duration `env:"DB_MAX_CONN_LIFETIME" default:"1h"`
	MaxConnIdleTime time.Duration `env:"DB_MAX_CONN_IDLE_TIME" default:"30m"`
}

// ImportConfig holds CSV import settings.
type ImportConfig struct {
	// MaxFileSize is the maximum allowed file size in bytes (default: 10MB)
	MaxFileSize int64 `env:"IMPORT_MAX_FILE_SIZE" default:"10485760"`

	// MaxConcurrent is the maximum number of parallel imports (default: 2)
	MaxConcurrent int `env:"IMPORT_MAX_CONCURRENT" default:"2"`

	// MaxWaitTime is how long to wait for an import slot (default: 15s)
	MaxWaitTime time.Duration `env:"IMPORT_MAX_WAIT_TIME" default:"15s"`

	// Timeout is the maximum duration for a single import (default: 2m)
	Timeout time.Duration `env:"IMPORT_TIMEOUT" default:"2m"`
}

// RateLimitConfig holds rate limiting settings per time window.
type RateLimitConfig struct {
	Enabled bool `env:"RATE_LIMIT_ENABLED" default:"true"`

	// RequestsPerMinute is the default rate limit per IP (default: 120)
	RequestsPerMinute int `env:"RATE_LIMIT_REQUESTS_PER_MINUTE" default:"120"`

	// LoginLimit is login attempts per minute per IP (default: 10)
	LoginLimit int `env:"RATE_LIMIT_LOGIN" default:"10"`

	// ImportLimit is import requests per minute per IP (default: 10)
	ImportLimit int `env:"RATE_LIMIT_IMPORT" default:"10"`
}

// SecurityConfig holds security-related settings.
type SecurityConfig struct {
	// TrustedProxies is a comma-separated list of trusted proxy CIDRs
	TrustedProxies []string `env:"TRUSTED_PROXIES"`

	// EnableCSP enables Content-Security-Policy headers (default: true)
	EnableCSP bool `env:"SECURITY_ENABLE_CSP" default:"true"`

	// AttackGuard rejects requests matching known attack patterns (default: true)
	AttackGuard bool `env:"SECURITY_ATTACK_GUARD" default:"true"`
}

// AuthConfig holds token and bootstrap account settings.
type AuthConfig struct {
	// JWTSecret signs access tokens (required, at least 32 bytes)
	JWTSecret string `env:"JWT_SECRET" required:"true"`

	// TokenTTL is how long an issued token stays valid (default: 8h)
	TokenTTL time.Duration `env:"JWT_TTL" default:"8h"`

	Issuer string `env:"JWT_ISSUER" default:"asistencia"`

	// AdminUser and AdminPassword create the first admin account when the
	// user store is empty. Leave AdminPassword unset to skip bootstrapping.
	AdminUser     string `env:"ADMIN_USER" default:"admin"`
	AdminPassword string `env:"ADMIN_PASSWORD"`
}

// AttendanceConfig holds registration rules.
type AttendanceConfig struct {
	// Timezone is the IANA zone used to date registrations (default: America/Mexico_City)
	Timezone string `env:"ATTENDANCE_TIMEZONE" default:"America/Mexico_City"`

	// LateAfter is the HH:MM local time after which a registration counts as late (default: 08:10)
	LateAfter string `env:"ATTENDANCE_LATE_AFTER" default:"08:10"`
}

// BackupConfig holds snapshot settings.
type BackupConfig struct {
	Enabled bool `env:"BACKUP_ENABLED" default:"true"`

	// Dir receives one timestamped directory per snapshot (default: backups)
	Dir string `env:"BACKUP_DIR" default:"backups"`

	// Interval is how often the scheduler takes a snapshot (default: 24h)
	Interval time.Duration `env:"BACKUP_INTERVAL" default:"24h"`

	// Keep is how many snapshots to retain (default: 14)
	Keep int `env:"BACKUP_KEEP" default:"14"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: info)
	Level string `env:"LOG_LEVEL" default:"info"`

	// Format is the log format: text or json (default: text)
	Format string `env:"LOG_FORMAT" default:"text"`
}

// Addr returns the server listen address in host:port format.
func (c *ServerConfig) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// Location resolves the configured timezone.
func (c *AttendanceConfig) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// LateCutoff parses LateAfter into an offset from local midnight.
func (c *AttendanceConfig) LateCutoff() (time.Duration, error) {
	t, err := time.Parse("15:04", c.LateAfter)
	if err != nil {
		return 0, fmt.Errorf("parse late cutoff %q: %w", c.LateAfter, err)
	}
	return time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute, nil
}
