package handler

import (
	"context"
	"net/http"
	"sync"
	"time"
)

// readyTimeout bounds the whole readiness check, all pings included.
const readyTimeout = 5 * time.Second

// Pinger is a dependency the readiness probe can check.
type Pinger interface {
	Ping(ctx context.Context) error
}

// dependency is one readiness check. An optional dependency that fails
// degrades the service instead of taking it out of rotation.
type dependency struct {
	name     string
	pinger   Pinger
	optional bool
}

// HealthHandler serves the liveness and readiness probes.
type HealthHandler struct {
	deps    []dependency
	started time.Time
}

// HealthHandlerOption registers a dependency on the readiness probe.
type HealthHandlerOption func(*HealthHandler)

// WithDatabase makes readiness depend on PostgreSQL.
func WithDatabase(db Pinger) HealthHandlerOption {
	return withDependency("database", db, false)
}

// WithRedis makes readiness depend on Redis.
func WithRedis(redis Pinger) HealthHandlerOption {
	return withDependency("redis", redis, false)
}

// WithEventBus reports the NATS connection. Batch events are best effort,
// so a lost connection only degrades readiness.
func WithEventBus(bus Pinger) HealthHandlerOption {
	return withDependency("nats", bus, true)
}

func withDependency(name string, p Pinger, optional bool) HealthHandlerOption {
	return func(h *HealthHandler) {
		h.deps = append(h.deps, dependency{name: name, pinger: p, optional: optional})
	}
}

// NewHealthHandler creates a HealthHandler checking the given dependencies.
func NewHealthHandler(opts ...HealthHandlerOption) *HealthHandler {
	h := &HealthHandler{started: time.Now()}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// HealthResponse is the liveness body.
type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Uptime    string    `json:"uptime"`
}

// Health handles GET /health. It never touches dependencies.
func (h *HealthHandler) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC(),
		Uptime:    time.Since(h.started).Round(time.Second).String(),
	})
}

// ReadyResponse is the readiness body.
type ReadyResponse struct {
	Status    string                 `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Checks    map[string]CheckResult `json:"checks,omitempty"`
}

// CheckResult is the outcome of one dependency ping.
type CheckResult struct {
	Status   string `json:"status"`
	Duration string `json:"duration,omitempty"`
	Error    string `json:"error,omitempty"`
}

// Ready handles GET /ready. Dependencies are pinged concurrently. A failed
// required dependency answers 503 "not_ready"; a failed optional one
// answers 200 "degraded".
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
	defer cancel()

	results := make([]CheckResult, len(h.deps))
	var wg sync.WaitGroup
	for i, dep := range h.deps {
		wg.Go(func() { results[i] = ping(ctx, dep.pinger) })
	}
	wg.Wait()

	resp := ReadyResponse{
		Status:    "ready",
		Timestamp: time.Now().UTC(),
		Checks:    make(map[string]CheckResult, len(h.deps)),
	}
	code := http.StatusOK
	for i, dep := range h.deps {
		res := results[i]
		resp.Checks[dep.name] = res
		switch {
		case res.Error == "":
		case dep.optional:
			if code == http.StatusOK {
				resp.Status = "degraded"
			}
		default:
			resp.Status = "not_ready"
			code = http.StatusServiceUnavailable
		}
	}

	writeJSON(w, code, resp)
}

func ping(ctx context.Context, p Pinger) CheckResult {
	start := time.Now()
	err := p.Ping(ctx)
	res := CheckResult{Status: "ok", Duration: time.Since(start).String()}
	if err != nil {
		res.Status = "error"
		res.Error = err.Error()
	}
	return res
}
