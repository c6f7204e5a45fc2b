package middleware

import (
	"context"
	"net/http"
	"strconv"
	"time"

	redisinfra "github.com/openctemio/scanledger/internal/infra/redis"
	"github.com/openctemio/scanledger/pkg/apierror"
	"github.com/openctemio/scanledger/pkg/logger"
)

// DistributedLimiter is a limiter shared between API replicas.
type DistributedLimiter interface {
	Allow(ctx context.Context, key string) (*redisinfra.RateLimitResult, error)
	Limit() int
}

// DistributedRateLimitConfig configures DistributedRateLimit. KeyFunc
// defaults to the client IP and Logger may be nil.
type DistributedRateLimitConfig struct {
	Limiter  DistributedLimiter
	KeyFunc  func(r *http.Request) string
	SkipFunc func(r *http.Request) bool
	Logger   *logger.Logger
}

// DistributedRateLimit limits requests through a limiter shared by every
// replica. The API fails open: a limiter error lets the request through.
func DistributedRateLimit(cfg DistributedRateLimitConfig) func(http.Handler) http.Handler {
	keyOf := cfg.KeyFunc
	if keyOf == nil {
		keyOf = clientIP
	}
	log := cfg.Logger
	if log == nil {
		log = logger.NewNop()
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if cfg.SkipFunc != nil && cfg.SkipFunc(r) {
				next.ServeHTTP(w, r)
				return
			}

			key := keyOf(r)
			res, err := cfg.Limiter.Allow(r.Context(), key)
			if err != nil {
				log.Error("distributed rate limit check failed",
					"error", err,
					"key", key,
					"request_id", GetRequestID(r.Context()),
				)
				next.ServeHTTP(w, r)
				return
			}

			writeRateHeaders(w.Header(), cfg.Limiter.Limit(), res.Remaining, res.ResetAt)
			if res.Allowed {
				next.ServeHTTP(w, r)
				return
			}

			retry := max(int(time.Until(res.RetryAt).Seconds()), 1)
			w.Header().Set("Retry-After", strconv.Itoa(retry))
			log.Warn("distributed rate limit exceeded",
				"key", key,
				"retry_at", res.RetryAt,
				"request_id", GetRequestID(r.Context()),
			)
			apierror.RateLimitExceeded().WriteJSON(w)
		})
	}
}
