// Package config provides centralized configuration management for the application.
// It loads configuration from environment variables with sensible defaults and
// validates all settings on startup to fail fast on misconfiguration.
package config

import (
	"strconv"
	"time"
)

// Config holds all application configuration.
// All settings can be configured via environment variables.
type Config struct {
	Server    ServerConfig
	Upload    UploadConfig
	Session   SessionConfig
	Pipeline  PipelineConfig
	Warehouse WarehouseConfig
	Mail      MailConfig
	Rate      RateLimitConfig
	Security  SecurityConfig
	Logging   LoggingConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host is the interface to bind to (default: 0.0.0.0)
	Host string `env:"SERVER_HOST" default:"0.0.0.0"`

	// Port is the port to listen on (default: 8080)
	Port int `env:"SERVER_PORT" default:"8080"`

	// ReadTimeout is the maximum duration for reading request body (default: 30s)
	ReadTimeout time.Duration `env:"SERVER_READ_TIMEOUT" default:"30s"`

	// WriteTimeout is the maximum duration for writing a response (default: 0, pipeline runs inline)
	WriteTimeout time.Duration `env:"SERVER_WRITE_TIMEOUT" default:"0s"`

	// IdleTimeout is the keep-alive timeout (default: 60s)
	IdleTimeout time.Duration `env:"SERVER_IDLE_TIMEOUT" default:"60s"`

	// ShutdownTimeout is the maximum duration to wait for graceful shutdown (default: 30s)
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`

	// RequestTimeout is the middleware timeout for non-upload requests (default: 60s)
	RequestTimeout time.Duration `env:"SERVER_REQUEST_TIMEOUT" default:"60s"`
}

// UploadConfig holds spreadsheet upload settings.
type UploadConfig struct {
	// MaxFileSize is the maximum allowed file size in bytes (default: 50MB)
	MaxFileSize int64 `env:"UPLOAD_MAX_FILE_SIZE" default:"52428800"`

	// MaxConcurrent is the maximum number of pipeline runs across all sessions (default: 4)
	MaxConcurrent int `env:"UPLOAD_MAX_CONCURRENT" default:"4"`

	// MaxWaitTime is how long to wait for a pipeline slot (default: 30s)
	MaxWaitTime time.Duration `env:"UPLOAD_MAX_WAIT_TIME" default:"30s"`

	// Timeout bounds a single extraction/validation/transformation run (default: 5m)
	Timeout time.Duration `env:"UPLOAD_TIMEOUT" default:"5m"`

	// TempDir is where uploads are staged while the pipeline runs (default: OS temp dir)
	TempDir string `env:"UPLOAD_TEMP_DIR"`
}

// SessionConfig holds browser session settings.
type SessionConfig struct {
	// Secret signs the session cookie; at least 32 bytes (required)
	Secret string `env:"SESSION_SECRET" required:"true"`

	// CookieName is the name of the session cookie (default: sheetflow_session)
	CookieName string `env:"SESSION_COOKIE_NAME" default:"sheetflow_session"`

	// TTL is how long an idle upload session is kept (default: 2h)
	TTL time.Duration `env:"SESSION_TTL" default:"2h"`

	// SweepInterval is how often expired sessions are removed (default: 5m)
	SweepInterval time.Duration `env:"SESSION_SWEEP_INTERVAL" default:"5m"`

	// Secure marks the cookie HTTPS-only (default: false)
	Secure bool `env:"SESSION_SECURE_COOKIE" default:"false"`
}

// PipelineConfig holds extraction settings.
type PipelineConfig struct {
	// LLMModel is the Gemini model used to title extracted tables (default: gemini-2.5-flash)
	LLMModel string `env:"PIPELINE_LLM_MODEL" default:"gemini-2.5-flash"`

	// PreviewRows is how many rows per table are shown to the model (default: 5)
	PreviewRows int `env:"PIPELINE_PREVIEW_ROWS" default:"5"`

	// MinTableCells is the minimum non-empty cells for a block to count as a table (default: 4)
	MinTableCells int `env:"PIPELINE_MIN_TABLE_CELLS" default:"4"`
}

// WarehouseConfig holds settings for the warehouse sink.
type WarehouseConfig struct {
	// Driver selects the backend: postgres, sqlite, or empty to disable (default: disabled)
	Driver string `env:"WAREHOUSE_DRIVER"`

	// URL is the connection string (postgres URL or sqlite file path)
	// Supports both WAREHOUSE_URL and DATABASE_URL env vars
	URL string `env:"WAREHOUSE_URL" envAlt:"DATABASE_URL"`

	// TablePrefix is prepended to every loaded table name (default: upload_)
	TablePrefix string `env:"WAREHOUSE_TABLE_PREFIX" default:"upload_"`

	// MaxConns is the maximum number of connections in the pool (default: 4)
	MaxConns int `env:"WAREHOUSE_MAX_CONNS" default:"4"`

	// MinConns is the minimum number of connections to keep open (default: 0)
	MinConns int `env:"WAREHOUSE_MIN_CONNS" default:"0"`

	// MaxConnLifetime is the maximum lifetime of a connection (default: 1h)
	MaxConnLifetime time.Duration `env:"WAREHOUSE_MAX_CONN_LIFETIME" default:"1h"`

	// MaxConnIdleTime is the maximum idle time before a connection is closed (default: 30m)
	MaxConnIdleTime time.Duration `env:"WAREHOUSE_MAX_CONN_IDLE_TIME" default:"30m"`

	// Timeout bounds a single warehouse load (default: 2m)
	Timeout time.Duration `env:"WAREHOUSE_TIMEOUT" default:"2m"`
}

// MailConfig holds SMTP delivery settings.
// Sender address and password are entered per request, never configured.
type MailConfig struct {
	// SMTPHost is the mail relay (default: smtp.gmail.com)
	SMTPHost string `env:"MAIL_SMTP_HOST" default:"smtp.gmail.com"`

	// SMTPPort is the submission port; STARTTLS is mandatory (default: 587)
	SMTPPort int `env:"MAIL_SMTP_PORT" default:"587"`

	// Timeout bounds dialing and sending (default: 30s)
	Timeout time.Duration `env:"MAIL_TIMEOUT" default:"30s"`

	// AttachmentTables lists the table labels written to the attachment
	AttachmentTables []string `env:"MAIL_ATTACHMENT_TABLES" default:"Table 1,Table 4,Table 5,Table 6,Table 8"`

	// AttachmentName is the attached workbook file name (default: tables.xlsx)
	AttachmentName string `env:"MAIL_ATTACHMENT_NAME" default:"tables.xlsx"`
}

// RateLimitConfig holds rate limiting settings per time window.
type RateLimitConfig struct {
	// Enabled controls whether rate limiting is active (default: true)
	Enabled bool `env:"RATE_LIMIT_ENABLED" default:"true"`

	// RequestsPerMinute is the default rate limit per IP (default: 100)
	RequestsPerMinute int `env:"RATE_LIMIT_REQUESTS_PER_MINUTE" default:"100"`

	// UploadLimit is requests per minute for upload and delivery endpoints (default: 10)
	UploadLimit int `env:"RATE_LIMIT_UPLOAD" default:"10"`
}

// SecurityConfig holds security-related settings.
type SecurityConfig struct {
	// TrustedProxies is a comma-separated list of trusted proxy CIDRs
	TrustedProxies []string `env:"TRUSTED_PROXIES"`

	// EnableCSP enables Content-Security-Policy headers (default: true)
	EnableCSP bool `env:"SECURITY_ENABLE_CSP" default:"true"`

	// RequireAPIKey protects the /api routes with X-API-Key (default: false)
	RequireAPIKey bool `env:"REQUIRE_API_KEY" default:"false"`

	// APIKeys is a comma-separated list of accepted keys
	APIKeys []string `env:"API_KEYS"`
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
	return c.Host + ":" + strconv.Itoa(c.Port)
}

// Enabled reports whether a warehouse backend is configured.
func (c *WarehouseConfig) Enabled() bool {
	return c.Driver != ""
}
