package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/openctemio/scanledger/internal/config"
	"github.com/openctemio/scanledger/pkg/apierror"
	"github.com/openctemio/scanledger/pkg/logger"
)

// ClientLimiter keeps one token bucket per client IP inside this process.
// Buckets idle for three sweep intervals are dropped.
type ClientLimiter struct {
	limit rate.Limit
	burst int
	idle  time.Duration
	log   *logger.Logger

	mu      sync.Mutex
	buckets map[string]*clientBucket

	stop     chan struct{}
	stopOnce sync.Once
	swept    sync.WaitGroup
}

type clientBucket struct {
	*rate.Limiter
	lastSeen time.Time
}

// NewClientLimiter starts a limiter and its sweeper. Close stops the sweeper.
func NewClientLimiter(cfg *config.RateLimitConfig, log *logger.Logger) *ClientLimiter {
	sweep := cfg.CleanupInterval
	if sweep <= 0 {
		sweep = time.Minute
	}

	cl := &ClientLimiter{
		limit:   rate.Limit(cfg.RequestsPerSec),
		burst:   cfg.Burst,
		idle:    3 * sweep,
		log:     log.With("component", "rate_limiter"),
		buckets: make(map[string]*clientBucket),
		stop:    make(chan struct{}),
	}
	cl.swept.Go(func() { cl.sweepLoop(sweep) })
	return cl
}

// Close stops the sweeper and waits for it. Safe to call twice.
func (cl *ClientLimiter) Close() {
	cl.stopOnce.Do(func() { close(cl.stop) })
	cl.swept.Wait()
}

func (cl *ClientLimiter) bucket(ip string, now time.Time) *rate.Limiter {
	cl.mu.Lock()
	defer cl.mu.Unlock()

	b, ok := cl.buckets[ip]
	if !ok {
		b = &clientBucket{Limiter: rate.NewLimiter(cl.limit, cl.burst)}
		cl.buckets[ip] = b
	}
	b.lastSeen = now
	return b.Limiter
}

func (cl *ClientLimiter) sweepLoop(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-cl.stop:
			return
		case now := <-ticker.C:
			cl.evictIdle(now)
		}
	}
}

func (cl *ClientLimiter) evictIdle(now time.Time) {
	cl.mu.Lock()
	defer cl.mu.Unlock()

	for ip, b := range cl.buckets {
		if now.Sub(b.lastSeen) > cl.idle {
			delete(cl.buckets, ip)
		}
	}
}

// Handler rejects requests with 429 once the client's bucket is empty.
func (cl *ClientLimiter) Handler() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := clientIP(r)
			now := time.Now()
			lim := cl.bucket(ip, now)

			res := lim.ReserveN(now, 1)
			delay := res.DelayFrom(now)
			if !res.OK() || delay > 0 {
				res.CancelAt(now)
				retry := max(delay, time.Second)
				cl.log.Warn("client rate limit exceeded",
					"ip", ip,
					"path", r.URL.Path,
					"request_id", GetRequestID(r.Context()),
				)
				writeRateHeaders(w.Header(), cl.burst, 0, now.Add(retry))
				w.Header().Set("Retry-After", strconv.Itoa(int(retry.Round(time.Second)/time.Second)))
				apierror.RateLimitExceeded().WriteJSON(w)
				return
			}

			remaining := int(lim.TokensAt(now))
			refill := time.Duration(0)
			if cl.limit > 0 {
				refill = time.Duration(float64(cl.burst-remaining) / float64(cl.limit) * float64(time.Second))
			}
			writeRateHeaders(w.Header(), cl.burst, max(remaining, 0), now.Add(refill))

			next.ServeHTTP(w, r)
		})
	}
}

// RateLimit builds the per-client limiter from cfg. The returned stop
// function is a no-op when rate limiting is disabled.
func RateLimit(cfg *config.RateLimitConfig, log *logger.Logger) (func(http.Handler) http.Handler, func()) {
	if !cfg.Enabled {
		return func(next http.Handler) http.Handler { return next }, func() {}
	}
	cl := NewClientLimiter(cfg, log)
	return cl.Handler(), cl.Close
}

func writeRateHeaders(h http.Header, limit, remaining int, reset time.Time) {
	h.Set("X-RateLimit-Limit", strconv.Itoa(limit))
	h.Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
	h.Set("X-RateLimit-Reset", strconv.FormatInt(reset.Unix(), 10))
}
