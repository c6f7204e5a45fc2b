package middleware

import (
	"log/slog"
	"net/http"
	"slices"
	"time"

	"github.com/openctemio/scanledger/pkg/logger"
)

// AccessLogConfig controls which requests are logged and when a request
// counts as slow.
type AccessLogConfig struct {
	// SkipPaths are exact paths never logged, typically probes.
	SkipPaths []string

	// SlowThreshold promotes successful requests slower than this to
	// warnings. Zero disables the check.
	SlowThreshold time.Duration
}

// DefaultAccessLogConfig skips probe and scrape endpoints and flags
// requests slower than five seconds.
func DefaultAccessLogConfig() AccessLogConfig {
	return AccessLogConfig{
		SkipPaths:     []string{"/health", "/ready", "/metrics"},
		SlowThreshold: 5 * time.Second,
	}
}

// AccessLog writes one line per request and stores a request scoped
// logger in the context for handlers to pick up with logger.FromContext.
func AccessLog(log *logger.Logger, cfg AccessLogConfig) func(http.Handler) http.Handler {
	skip := slices.Clone(cfg.SkipPaths)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if slices.Contains(skip, r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}

			requestID := GetRequestID(r.Context())
			ctx := logger.ToContext(r.Context(), log.With("request_id", requestID))

			start := time.Now()
			rec := newStatusRecorder(w)
			next.ServeHTTP(rec, r.WithContext(ctx))
			elapsed := time.Since(start)

			level, msg := accessLevel(rec.status, elapsed, cfg.SlowThreshold)
			log.Log(r.Context(), level, msg,
				"method", r.Method,
				"route", routePattern(r),
				"path", r.URL.Path,
				"status", rec.status,
				"duration_ms", elapsed.Milliseconds(),
				"bytes_in", max(r.ContentLength, 0),
				"bytes_out", rec.written,
				"request_id", requestID,
				"remote_addr", r.RemoteAddr,
			)
		})
	}
}

func accessLevel(status int, elapsed, slow time.Duration) (slog.Level, string) {
	switch {
	case status >= http.StatusInternalServerError:
		return slog.LevelError, "http request failed"
	case status >= http.StatusBadRequest:
		return slog.LevelWarn, "http request rejected"
	case slow > 0 && elapsed > slow:
		return slog.LevelWarn, "slow http request"
	default:
		return slog.LevelInfo, "http request"
	}
}
