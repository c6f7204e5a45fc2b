// Package logger wraps log/slog with redaction of sensitive attributes,
// optional sampling and context propagation.
package logger

import (
	"context"
	"io"
	"log"
	"log/slog"
	"os"
	"strings"
)

// Logger is a slog.Logger with scanledger conventions attached.
type Logger struct {
	*slog.Logger
}

// Config holds logger configuration.
type Config struct {
	Level  string // debug, info, warn or error
	Format string // json or text
	Output io.Writer

	// Sampling thins repeated messages during large ingestion bursts.
	Sampling SamplingConfig
}

// New builds a logger from cfg. Unknown levels fall back to info and
// unknown formats to JSON.
func New(cfg Config) *Logger {
	level := parseLevel(cfg.Level)
	out := cfg.Output
	if out == nil {
		out = os.Stdout
	}

	opts := &slog.HandlerOptions{
		Level:       level,
		AddSource:   level <= slog.LevelDebug,
		ReplaceAttr: redact,
	}

	var h slog.Handler
	if strings.EqualFold(cfg.Format, "text") {
		h = slog.NewTextHandler(out, opts)
	} else {
		h = slog.NewJSONHandler(out, opts)
	}
	return &Logger{Logger: slog.New(NewSamplingHandler(h, cfg.Sampling))}
}

// NewDefault is an info level JSON logger on stdout.
func NewDefault() *Logger {
	return New(Config{Level: "info", Format: "json"})
}

// NewDevelopment is a debug level text logger on stdout.
func NewDevelopment() *Logger {
	return New(Config{Level: "debug", Format: "text"})
}

// NewNop discards everything.
func NewNop() *Logger {
	return &Logger{Logger: slog.New(slog.DiscardHandler)}
}

// redactedKeys are masked wherever they appear inside an attribute key.
// Scanner exports and webhook settings routinely carry these.
var redactedKeys = []string{
	"password",
	"secret",
	"token",
	"authorization",
	"api_key",
	"apikey",
	"private_key",
	"cookie",
	"session",
	"dsn",
	"database_url",
	"redis_url",
	"access_key",
	"credential",
}

const redactedValue = "[REDACTED]"

func redact(_ []string, a slog.Attr) slog.Attr {
	key := strings.ToLower(a.Key)
	for _, k := range redactedKeys {
		if strings.Contains(key, k) {
			return slog.String(a.Key, redactedValue)
		}
	}
	return a
}

func parseLevel(s string) slog.Level {
	var lvl slog.Level
	if s == "warning" {
		s = "warn"
	}
	if err := lvl.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo
	}
	return lvl
}

// With returns a logger that adds args to every record.
func (l *Logger) With(args ...any) *Logger {
	return &Logger{Logger: l.Logger.With(args...)}
}

// WithError returns a logger carrying err under the "error" key.
func (l *Logger) WithError(err error) *Logger {
	return l.With(slog.Any("error", err))
}

// SetDefault installs l as the process wide slog default.
func (l *Logger) SetDefault() {
	slog.SetDefault(l.Logger)
}

// StdLogger adapts l for APIs that want a *log.Logger, such as
// http.Server.ErrorLog. Lines are logged at warn level.
func (l *Logger) StdLogger() *log.Logger {
	return slog.NewLogLogger(l.Handler(), slog.LevelWarn)
}

// ContextKey is the type of context values picked up by WithContext.
type ContextKey string

const (
	ContextKeyRequestID ContextKey = "request_id"
	ContextKeyBatchID   ContextKey = "batch_id"
)

// contextIDs lists the ids WithContext copies onto the logger, in order.
var contextIDs = []ContextKey{ContextKeyRequestID, ContextKeyBatchID}

// WithContext returns a logger carrying the request and batch ids in ctx.
func (l *Logger) WithContext(ctx context.Context) *Logger {
	var attrs []any
	for _, key := range contextIDs {
		if v, ok := ctx.Value(key).(string); ok && v != "" {
			attrs = append(attrs, slog.String(string(key), v))
		}
	}
	if len(attrs) == 0 {
		return l
	}
	return l.With(attrs...)
}

// WithBatchID returns ctx tagged with the ingestion batch id.
func WithBatchID(ctx context.Context, batchID string) context.Context {
	return context.WithValue(ctx, ContextKeyBatchID, batchID)
}

type loggerKey struct{}

// ToContext stores logger in ctx.
func ToContext(ctx context.Context, logger *Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, logger)
}

// FromContext returns the logger stored by ToContext, or slog's default.
func FromContext(ctx context.Context) *Logger {
	if logger, ok := ctx.Value(loggerKey{}).(*Logger); ok {
		return logger
	}
	return &Logger{Logger: slog.Default()}
}
