package logger

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"
)

// SamplingConfig configures log sampling. Identical messages beyond
// Threshold per Tick are logged at Rate (ErrorRate for warn and above).
type SamplingConfig struct {
	Enabled   bool
	Tick      time.Duration
	Threshold uint64
	Rate      float64
	ErrorRate float64

	// NeverSampleMessages are message prefixes that are always logged.
	NeverSampleMessages []string
}

// Default values for sampling configuration
const (
	DefaultSamplingTick      = time.Second
	DefaultSamplingThreshold = 100
	DefaultSamplingRate      = 0.1
	maxSamplingKeys          = 10000
)

type samplingState struct {
	mu        sync.Mutex
	counts    map[string]uint64
	lastReset time.Time
}

type samplingHandler struct {
	handler slog.Handler
	config  SamplingConfig
	state   *samplingState
}

// NewSamplingHandler wraps h with threshold sampling. A disabled config
// returns h unchanged.
func NewSamplingHandler(h slog.Handler, cfg SamplingConfig) slog.Handler {
	if !cfg.Enabled {
		return h
	}
	if cfg.Tick <= 0 {
		cfg.Tick = DefaultSamplingTick
	}
	if cfg.Threshold == 0 {
		cfg.Threshold = DefaultSamplingThreshold
	}
	return &samplingHandler{
		handler: h,
		config:  cfg,
		state: &samplingState{
			counts:    make(map[string]uint64),
			lastReset: time.Now(),
		},
	}
}

func (h *samplingHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.handler.Enabled(ctx, level)
}

func (h *samplingHandler) Handle(ctx context.Context, r slog.Record) error {
	for _, prefix := range h.config.NeverSampleMessages {
		if strings.HasPrefix(r.Message, prefix) {
			return h.handler.Handle(ctx, r)
		}
	}

	count, tracked := h.state.increment(r.Level.String()+":"+r.Message, h.config.Tick)
	if !tracked || count <= h.config.Threshold {
		return h.handler.Handle(ctx, r)
	}

	rate := h.config.Rate
	if r.Level >= slog.LevelWarn {
		rate = h.config.ErrorRate
	}
	if shouldSample(count, rate) {
		return h.handler.Handle(ctx, r)
	}

	sampledOut.WithLabelValues(levelLabel(r.Level)).Inc()
	return nil
}

// increment bumps the counter for key and reports whether the key is tracked.
func (s *samplingState) increment(key string, tick time.Duration) (uint64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if now := time.Now(); now.Sub(s.lastReset) >= tick {
		clear(s.counts)
		s.lastReset = now
	}

	if _, ok := s.counts[key]; !ok && len(s.counts) >= maxSamplingKeys {
		return 0, false
	}
	s.counts[key]++
	return s.counts[key], true
}

func (h *samplingHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &samplingHandler{handler: h.handler.WithAttrs(attrs), config: h.config, state: h.state}
}

func (h *samplingHandler) WithGroup(name string) slog.Handler {
	return &samplingHandler{handler: h.handler.WithGroup(name), config: h.config, state: h.state}
}

func shouldSample(count uint64, rate float64) bool {
	if rate >= 1.0 {
		return true
	}
	if rate <= 0.0 {
		return false
	}
	interval := uint64(1.0 / rate)
	return count%interval == 0
}
