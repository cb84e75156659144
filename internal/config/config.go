// Package config loads service configuration from environment variables.
// Every setting has a default except DATABASE_URL, and Validate reports all
// problems at once so a misconfigured deployment fails on startup.
package config

import (
	"net"
	"strconv"
	"time"

	"github.com/JonMunkholm/finimport/internal/core"
)

// Config holds all service configuration.
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Upload    UploadConfig
	Import    ImportConfig
	Oracle    OracleConfig
	Redis     RedisConfig
	Rate      RateLimitConfig
	Security  SecurityConfig
	Logging   LoggingConfig
	Retention RetentionConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host is the interface to bind to (default: 0.0.0.0)
	Host string `env:"SERVER_HOST" default:"0.0.0.0"`

	// Port is the port to listen on (default: 8080)
	Port int `env:"SERVER_PORT" default:"8080"`

	ReadTimeout  time.Duration `env:"SERVER_READ_TIMEOUT" default:"15s"`
	WriteTimeout time.Duration `env:"SERVER_WRITE_TIMEOUT" default:"0s"`
	IdleTimeout  time.Duration `env:"SERVER_IDLE_TIMEOUT" default:"60s"`

	// ShutdownTimeout bounds the wait for in-flight requests and executions (default: 30s)
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`

	// RequestTimeout is the middleware timeout for ordinary requests (default: 60s).
	// Execute is exempt; it runs detached from the request.
	RequestTimeout time.Duration `env:"SERVER_REQUEST_TIMEOUT" default:"60s"`
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	// URL is the PostgreSQL connection string (required).
	// DB_URL is accepted for compatibility.
	URL string `env:"DATABASE_URL" envAlt:"DB_URL" required:"true"`

	MaxConns        int           `env:"DB_MAX_CONNS" default:"20"`
	MinConns        int           `env:"DB_MIN_CONNS" default:"4"`
	MaxConnLifetime time.Duration `env:"DB_MAX_CONN_LIFETIME" default:"1h"`
	MaxConnIdleTime time.Duration `env:"DB_MAX_CONN_IDLE_TIME" default:"30m"`

	// AutoMigrate applies the embedded schema on startup (default: true)
	AutoMigrate bool `env:"DB_AUTO_MIGRATE" default:"true"`
}

// UploadConfig holds file intake and execution concurrency settings.
type UploadConfig struct {
	// MaxFileSize is the maximum accepted upload in bytes (default: 10MB)
	MaxFileSize int64 `env:"UPLOAD_MAX_FILE_SIZE" default:"10485760"`

	// MaxConcurrent is the number of executions allowed at once (default: 5)
	MaxConcurrent int `env:"UPLOAD_MAX_CONCURRENT" default:"5"`

	// MaxWaitTime is how long Execute waits for a free slot (default: 30s)
	MaxWaitTime time.Duration `env:"UPLOAD_MAX_WAIT_TIME" default:"30s"`
}

// ImportConfig holds the default ImportOptions and reporting limits.
type ImportConfig struct {
	CreateMissingAccounts   bool          `env:"IMPORT_CREATE_MISSING_ACCOUNTS" default:"true"`
	CreateMissingCategories bool          `env:"IMPORT_CREATE_MISSING_CATEGORIES" default:"true"`
	CreateMissingPayees     bool          `env:"IMPORT_CREATE_MISSING_PAYEES" default:"true"`
	AccountDuplicates       string        `env:"IMPORT_ACCOUNT_DUPLICATES" default:"fail"`
	CategoryDuplicates      string        `env:"IMPORT_CATEGORY_DUPLICATES" default:"fail"`
	DefaultCurrency         string        `env:"IMPORT_DEFAULT_CURRENCY" default:"USD"`
	RowDelay                time.Duration `env:"IMPORT_ROW_DELAY" default:"0s"`

	// ErrorLimit caps the row errors returned in an ExecutionSummary (default: 10)
	ErrorLimit int `env:"IMPORT_ERROR_LIMIT" default:"10"`

	// MaxValidationIssues caps the issues returned by validate (default: 200)
	MaxValidationIssues int `env:"IMPORT_MAX_VALIDATION_ISSUES" default:"200"`
}

// Options converts the section to core.ImportOptions.
func (c ImportConfig) Options() core.ImportOptions {
	return core.ImportOptions{
		CreateMissingAccounts:   c.CreateMissingAccounts,
		CreateMissingCategories: c.CreateMissingCategories,
		CreateMissingPayees:     c.CreateMissingPayees,
		AccountDuplicates:       core.DuplicatePolicy(c.AccountDuplicates),
		CategoryDuplicates:      core.DuplicatePolicy(c.CategoryDuplicates),
		DefaultCurrency:         c.DefaultCurrency,
		RowDelay:                c.RowDelay,
	}
}

// OracleConfig configures the Gemini classification oracle.
type OracleConfig struct {
	Enabled bool          `env:"ORACLE_ENABLED" default:"false"`
	APIKey  string        `env:"GEMINI_API_KEY" envAlt:"GOOGLE_API_KEY"`
	Model   string        `env:"ORACLE_MODEL" default:"gemini-2.5-flash"`
	Timeout time.Duration `env:"ORACLE_TIMEOUT" default:"10s"`
}

// RedisConfig configures the distributed execution lock.
// An empty URL disables it.
type RedisConfig struct {
	URL     string        `env:"REDIS_URL"`
	LockTTL time.Duration `env:"REDIS_LOCK_TTL" default:"10m"`
}

// RateLimitConfig holds per-IP rate limits.
type RateLimitConfig struct {
	Enabled bool `env:"RATE_LIMIT_ENABLED" default:"true"`

	// RequestsPerMinute is the default rate limit per IP (default: 100)
	RequestsPerMinute int `env:"RATE_LIMIT_REQUESTS_PER_MINUTE" default:"100"`

	// UploadLimit is requests per minute for upload and execute (default: 10)
	UploadLimit int `env:"RATE_LIMIT_UPLOAD" default:"10"`
}

// SecurityConfig holds security-related settings.
type SecurityConfig struct {
	// TrustedProxies is a comma-separated list of trusted proxy CIDRs
	TrustedProxies []string `env:"TRUSTED_PROXIES"`

	RequireAPIKey bool     `env:"REQUIRE_API_KEY" default:"false"`
	APIKeys       []string `env:"API_KEYS"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: info)
	Level string `env:"LOG_LEVEL" default:"info"`

	// Format is the log format: text or json (default: text)
	Format string `env:"LOG_FORMAT" default:"text"`
}

// RetentionConfig controls the purge of finished import sessions.
type RetentionConfig struct {
	// MaxAge is how long completed and failed sessions are kept (default: 30 days)
	MaxAge time.Duration `env:"RETENTION_MAX_AGE" default:"720h"`

	CheckInterval time.Duration `env:"RETENTION_CHECK_INTERVAL" default:"1h"`
}

// Addr returns the server listen address in host:port format.
func (c *ServerConfig) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}
