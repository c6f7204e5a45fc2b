// Package config loads scanledger configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"maps"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

// Environment constants
const (
	EnvProduction = "production"
)

// Config holds all application configuration.
type Config struct {
	App          AppConfig
	Server       ServerConfig
	Database     DatabaseConfig
	Redis        RedisConfig
	Log          LogConfig
	CORS         CORSConfig
	RateLimit    RateLimitConfig
	Ingest       IngestConfig
	SLA          SLAConfig
	Notification NotificationConfig
	Worker       WorkerConfig
	NATS         NATSConfig
	Archive      ArchiveConfig
	Tracing      TracingConfig
	Cache        CacheConfig
}

// AppConfig holds application-level configuration.
type AppConfig struct {
	Name  string
	Env   string
	Debug bool
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	RequestTimeout  time.Duration // Per-request handler timeout
	ShutdownTimeout time.Duration
	MaxBodySize     int64 // Non-upload endpoints
}

// DatabaseConfig holds database configuration.
type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	Name            string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// RedisConfig holds Redis configuration.
type RedisConfig struct {
	Host          string
	Port          int
	Password      string
	DB            int
	PoolSize      int
	MinIdleConns  int
	DialTimeout   time.Duration
	ReadTimeout   time.Duration
	WriteTimeout  time.Duration
	TLSEnabled    bool
	MaxRetries    int
	MinRetryDelay time.Duration
	MaxRetryDelay time.Duration
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level  string
	Format string

	SamplingEnabled   bool
	SamplingThreshold int
	SamplingRate      float64
	ErrorSamplingRate float64

	SkipHealthLogs     bool
	SlowRequestSeconds int
}

// CORSConfig holds CORS configuration.
type CORSConfig struct {
	AllowedOrigins []string
	AllowedMethods []string
	AllowedHeaders []string
	MaxAge         int
}

// RateLimitConfig holds per-client rate limit configuration.
type RateLimitConfig struct {
	Enabled         bool
	RequestsPerSec  float64
	Burst           int
	CleanupInterval time.Duration

	// Upload limits are shared across replicas through Redis.
	UploadLimit  int
	UploadWindow time.Duration
}

// IngestConfig bounds a single upload.
type IngestConfig struct {
	MaxUploadSize     int64 // Compressed or raw bytes accepted per request
	MaxDecompressed   int64 // Bytes after gzip/zstd decoding
	MaxRecords        int
	MaxLineBytes      int
	NormalizeWorkers  int
	ReconcileWorkers  int
	MaxErrorsToReturn int
}

// SLAConfig holds the remediation policy and breach sweep schedule.
type SLAConfig struct {
	// PolicyFile is an optional YAML file with per-severity days.
	PolicyFile string

	// Days holds per-severity overrides from SLA_<SEVERITY>_DAYS.
	// File values take precedence over env values.
	Days map[string]int

	SweepEnabled bool
	SweepCron    string
}

// NotificationConfig controls batch and breach notifications.
type NotificationConfig struct {
	Enabled bool

	// Async delivers through the job queue; otherwise notifications are stored inline.
	Async bool

	// WebhookProvider is "webhook" for the generic JSON payload or "slack".
	WebhookProvider string
	WebhookURL      string
	WebhookSecret   string
	WebhookTimeout  time.Duration
	MaxRetry        int
}

// WorkerConfig holds asynq worker configuration.
type WorkerConfig struct {
	Enabled     bool
	Concurrency int
}

// NATSConfig holds event bus configuration.
type NATSConfig struct {
	Enabled bool
	URL     string
	Subject string
}

// ArchiveConfig holds raw upload archive configuration.
type ArchiveConfig struct {
	Enabled         bool
	Bucket          string
	Prefix          string
	Region          string
	Endpoint        string // S3-compatible endpoint, e.g. MinIO
	AccessKeyID     string
	SecretAccessKey string
	RoleARN         string
}

// TracingConfig holds OpenTelemetry configuration.
type TracingConfig struct {
	Enabled     bool
	Endpoint    string
	Insecure    bool
	SampleRatio float64
}

// CacheConfig holds read-through cache TTLs.
type CacheConfig struct {
	DisplayNameTTL time.Duration
}

// Load reads configuration from .env files and the environment, then
// applies the optional SLA policy file.
func Load() (*Config, error) {
	LoadEnvFiles()

	cfg := &Config{
		App: AppConfig{
			Name:  envString("APP_NAME", "scanledger"),
			Env:   envString("APP_ENV", "development"),
			Debug: envBool("APP_DEBUG", false),
		},
		Server: ServerConfig{
			Host:            envString("SERVER_HOST", "0.0.0.0"),
			Port:            envInt("SERVER_PORT", 8080),
			ReadTimeout:     envDuration("SERVER_READ_TIMEOUT", 60*time.Second),
			WriteTimeout:    envDuration("SERVER_WRITE_TIMEOUT", 120*time.Second),
			RequestTimeout:  envDuration("SERVER_REQUEST_TIMEOUT", 110*time.Second),
			ShutdownTimeout: envDuration("SERVER_SHUTDOWN_TIMEOUT", 30*time.Second),
			MaxBodySize:     envInt64("SERVER_MAX_BODY_SIZE", 1<<20),
		},
		Database: loadDatabase(),
		Redis: RedisConfig{
			Host:          envString("REDIS_HOST", "localhost"),
			Port:          envInt("REDIS_PORT", 6379),
			Password:      envString("REDIS_PASSWORD", ""),
			DB:            envInt("REDIS_DB", 0),
			PoolSize:      envInt("REDIS_POOL_SIZE", 10),
			MinIdleConns:  envInt("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:   envDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:   envDuration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout:  envDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
			TLSEnabled:    envBool("REDIS_TLS_ENABLED", false),
			MaxRetries:    envInt("REDIS_MAX_RETRIES", 3),
			MinRetryDelay: envDuration("REDIS_MIN_RETRY_DELAY", 100*time.Millisecond),
			MaxRetryDelay: envDuration("REDIS_MAX_RETRY_DELAY", 3*time.Second),
		},
		Log: LogConfig{
			Level:              envString("LOG_LEVEL", "info"),
			Format:             envString("LOG_FORMAT", "json"),
			SamplingEnabled:    envBool("LOG_SAMPLING_ENABLED", false),
			SamplingThreshold:  envInt("LOG_SAMPLING_THRESHOLD", 100),
			SamplingRate:       envFloat("LOG_SAMPLING_RATE", 0.1),
			ErrorSamplingRate:  envFloat("LOG_ERROR_SAMPLING_RATE", 1.0),
			SkipHealthLogs:     envBool("LOG_SKIP_HEALTH", true),
			SlowRequestSeconds: envInt("LOG_SLOW_REQUEST_SECONDS", 5),
		},
		CORS: CORSConfig{
			AllowedOrigins: envList("CORS_ALLOWED_ORIGINS", []string{"*"}),
			AllowedMethods: envList("CORS_ALLOWED_METHODS", []string{"GET", "POST", "PUT", "PATCH", "OPTIONS"}),
			AllowedHeaders: envList("CORS_ALLOWED_HEADERS", []string{"Accept", "Content-Type", "Content-Encoding", "X-Request-ID"}),
			MaxAge:         envInt("CORS_MAX_AGE", 86400),
		},
		RateLimit: RateLimitConfig{
			Enabled:         envBool("RATE_LIMIT_ENABLED", true),
			RequestsPerSec:  envFloat("RATE_LIMIT_RPS", 20),
			Burst:           envInt("RATE_LIMIT_BURST", 40),
			CleanupInterval: envDuration("RATE_LIMIT_CLEANUP", time.Minute),
			UploadLimit:     envInt("RATE_LIMIT_UPLOADS", 30),
			UploadWindow:    envDuration("RATE_LIMIT_UPLOAD_WINDOW", time.Minute),
		},
		Ingest: IngestConfig{
			MaxUploadSize:     envInt64("INGEST_MAX_UPLOAD_SIZE", 50<<20),
			MaxDecompressed:   envInt64("INGEST_MAX_DECOMPRESSED_SIZE", 200<<20),
			MaxRecords:        envInt("INGEST_MAX_RECORDS", 100000),
			MaxLineBytes:      envInt("INGEST_MAX_LINE_BYTES", 4<<20),
			NormalizeWorkers:  envInt("INGEST_NORMALIZE_WORKERS", 8),
			ReconcileWorkers:  envInt("INGEST_RECONCILE_WORKERS", 4),
			MaxErrorsToReturn: envInt("INGEST_MAX_ERRORS", 100),
		},
		SLA: SLAConfig{
			PolicyFile:   envString("SLA_POLICY_FILE", ""),
			Days:         slaDaysFromEnv(),
			SweepEnabled: envBool("SLA_SWEEP_ENABLED", true),
			SweepCron:    envString("SLA_SWEEP_CRON", "0 8 * * *"),
		},
		Notification: NotificationConfig{
			Enabled:         envBool("NOTIFICATION_ENABLED", true),
			Async:           envBool("NOTIFICATION_ASYNC", true),
			WebhookProvider: envString("NOTIFICATION_WEBHOOK_PROVIDER", "webhook"),
			WebhookURL:      envString("NOTIFICATION_WEBHOOK_URL", ""),
			WebhookSecret:   envString("NOTIFICATION_WEBHOOK_SECRET", ""),
			WebhookTimeout:  envDuration("NOTIFICATION_WEBHOOK_TIMEOUT", 10*time.Second),
			MaxRetry:        envInt("NOTIFICATION_MAX_RETRY", 5),
		},
		Worker: WorkerConfig{
			Enabled:     envBool("WORKER_ENABLED", true),
			Concurrency: envInt("WORKER_CONCURRENCY", 10),
		},
		NATS: NATSConfig{
			Enabled: envBool("NATS_ENABLED", false),
			URL:     envString("NATS_URL", "nats://localhost:4222"),
			Subject: envString("NATS_SUBJECT", "scanledger.batch.completed"),
		},
		Archive: ArchiveConfig{
			Enabled:         envBool("ARCHIVE_ENABLED", false),
			Bucket:          envString("ARCHIVE_BUCKET", ""),
			Prefix:          envString("ARCHIVE_PREFIX", "batches"),
			Region:          envString("ARCHIVE_REGION", "us-east-1"),
			Endpoint:        envString("ARCHIVE_ENDPOINT", ""),
			AccessKeyID:     envString("ARCHIVE_ACCESS_KEY_ID", ""),
			SecretAccessKey: envString("ARCHIVE_SECRET_ACCESS_KEY", ""),
			RoleARN:         envString("ARCHIVE_ROLE_ARN", ""),
		},
		Tracing: TracingConfig{
			Enabled:     envBool("TRACING_ENABLED", false),
			Endpoint:    envString("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4318"),
			Insecure:    envBool("OTEL_EXPORTER_OTLP_INSECURE", true),
			SampleRatio: envFloat("TRACING_SAMPLE_RATIO", 1.0),
		},
		Cache: CacheConfig{
			DisplayNameTTL: envDuration("CACHE_DISPLAY_NAME_TTL", 10*time.Minute),
		},
	}

	if cfg.SLA.PolicyFile != "" {
		days, err := LoadSLAPolicyFile(cfg.SLA.PolicyFile)
		if err != nil {
			return nil, err
		}
		maps.Copy(cfg.SLA.Days, days)
	}

	return cfg, nil
}

// Validate reports every configuration problem at once. Production adds
// stricter checks on secrets and transport security.
func (c *Config) Validate() error {
	errs := []error{
		c.validateBasic(),
		c.validateLog(),
		c.validateIngest(),
		c.validateSLA(),
		c.validateIntegrations(),
	}
	if c.IsProduction() {
		errs = append(errs, c.validateProduction())
	}
	return errors.Join(errs...)
}

func (c *Config) validateBasic() error {
	var errs []error
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("SERVER_PORT out of range: %d", c.Server.Port))
	}
	if c.Database.Host == "" {
		errs = append(errs, errors.New("DB_HOST is required"))
	}
	return errors.Join(errs...)
}

func (c *Config) validateLog() error {
	var errs []error
	if !slices.Contains([]string{"", "debug", "info", "warn", "warning", "error"}, strings.ToLower(c.Log.Level)) {
		errs = append(errs, fmt.Errorf("LOG_LEVEL %q is not one of debug, info, warn, error", c.Log.Level))
	}
	if !slices.Contains([]string{"", "json", "text"}, strings.ToLower(c.Log.Format)) {
		errs = append(errs, fmt.Errorf("LOG_FORMAT %q is not one of json, text", c.Log.Format))
	}
	if !isRatio(c.Log.SamplingRate) {
		errs = append(errs, fmt.Errorf("LOG_SAMPLING_RATE %v is outside [0, 1]", c.Log.SamplingRate))
	}
	if !isRatio(c.Log.ErrorSamplingRate) {
		errs = append(errs, fmt.Errorf("LOG_ERROR_SAMPLING_RATE %v is outside [0, 1]", c.Log.ErrorSamplingRate))
	}
	if c.Log.SamplingThreshold < 0 {
		errs = append(errs, fmt.Errorf("LOG_SAMPLING_THRESHOLD %d is negative", c.Log.SamplingThreshold))
	}
	return errors.Join(errs...)
}

func (c *Config) validateIngest() error {
	var errs []error
	if c.Ingest.MaxUploadSize <= 0 {
		errs = append(errs, fmt.Errorf("INGEST_MAX_UPLOAD_SIZE must be positive, got %d", c.Ingest.MaxUploadSize))
	}
	if c.Ingest.MaxDecompressed < c.Ingest.MaxUploadSize {
		errs = append(errs, errors.New("INGEST_MAX_DECOMPRESSED_SIZE must be at least INGEST_MAX_UPLOAD_SIZE"))
	}
	if c.Ingest.NormalizeWorkers < 1 || c.Ingest.ReconcileWorkers < 1 {
		errs = append(errs, errors.New("ingest worker counts must be at least 1"))
	}
	if c.Ingest.MaxRecords < 0 {
		errs = append(errs, fmt.Errorf("INGEST_MAX_RECORDS %d is negative", c.Ingest.MaxRecords))
	}
	return errors.Join(errs...)
}

func (c *Config) validateSLA() error {
	var errs []error
	for _, severity := range slices.Sorted(maps.Keys(c.SLA.Days)) {
		days := c.SLA.Days[severity]
		if !isSeverityKey(severity) {
			errs = append(errs, fmt.Errorf("unknown SLA severity %q", severity))
			continue
		}
		if days <= 0 {
			errs = append(errs, fmt.Errorf("SLA days for %s must be positive, got %d", severity, days))
		}
	}
	if c.SLA.SweepEnabled {
		if _, err := cron.ParseStandard(c.SLA.SweepCron); err != nil {
			errs = append(errs, fmt.Errorf("SLA_SWEEP_CRON %q: %w", c.SLA.SweepCron, err))
		}
	}
	return errors.Join(errs...)
}

func (c *Config) validateIntegrations() error {
	var errs []error
	if c.Notification.WebhookURL != "" {
		u, err := url.Parse(c.Notification.WebhookURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			errs = append(errs, fmt.Errorf("NOTIFICATION_WEBHOOK_URL %q is not an http(s) URL", c.Notification.WebhookURL))
		}
		if !slices.Contains([]string{"webhook", "slack"}, c.Notification.WebhookProvider) {
			errs = append(errs, fmt.Errorf("NOTIFICATION_WEBHOOK_PROVIDER %q is not one of webhook, slack", c.Notification.WebhookProvider))
		}
	}
	if c.Archive.Enabled && c.Archive.Bucket == "" {
		errs = append(errs, errors.New("ARCHIVE_BUCKET is required when ARCHIVE_ENABLED is set"))
	}
	if c.NATS.Enabled && c.NATS.Subject == "" {
		errs = append(errs, errors.New("NATS_SUBJECT is required when NATS_ENABLED is set"))
	}
	if !isRatio(c.Tracing.SampleRatio) {
		errs = append(errs, fmt.Errorf("TRACING_SAMPLE_RATIO %v is outside [0, 1]", c.Tracing.SampleRatio))
	}
	return errors.Join(errs...)
}

func (c *Config) validateProduction() error {
	var errs []error
	if c.App.Debug {
		errs = append(errs, errors.New("APP_DEBUG must be off in production"))
	}
	if strings.EqualFold(c.Log.Level, "debug") {
		errs = append(errs, errors.New("LOG_LEVEL debug is not allowed in production"))
	}
	if c.Database.SSLMode == "disable" {
		errs = append(errs, errors.New("DB_SSLMODE must not be disable in production"))
	}
	if c.Database.Password == "secret" {
		errs = append(errs, errors.New("DB_PASSWORD still has the development default"))
	}
	if c.Redis.Password == "" {
		errs = append(errs, errors.New("REDIS_PASSWORD is required in production"))
	}
	return errors.Join(errs...)
}

func isRatio(v float64) bool {
	return v >= 0 && v <= 1
}

// DSN returns the database connection string.
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}

// Addr returns the Redis address.
func (c *RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Addr returns the HTTP server address.
func (c *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// IsDevelopment returns true if the application is in development mode.
func (c *Config) IsDevelopment() bool {
	return c.App.Env == "development"
}

// LoadDatabase reads only the DB_* settings. Tools that touch the schema
// use it without validating the rest of the server configuration.
func LoadDatabase() DatabaseConfig {
	LoadEnvFiles()
	return loadDatabase()
}

func loadDatabase() DatabaseConfig {
	return DatabaseConfig{
		Host:            envString("DB_HOST", "localhost"),
		Port:            envInt("DB_PORT", 5432),
		User:            envString("DB_USER", "scanledger"),
		Password:        envString("DB_PASSWORD", "secret"),
		Name:            envString("DB_NAME", "scanledger"),
		SSLMode:         envString("DB_SSLMODE", "disable"),
		MaxOpenConns:    envInt("DB_MAX_OPEN_CONNS", 25),
		MaxIdleConns:    envInt("DB_MAX_IDLE_CONNS", 5),
		ConnMaxLifetime: envDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
	}
}

// IsProduction returns true if the application is in production mode.
func (c *Config) IsProduction() bool {
	return c.App.Env == EnvProduction
}
