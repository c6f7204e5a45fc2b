package logger

import (
	"errors"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

// sampledOut counts records the sampling handler discarded. It is only
// exported once RegisterMetrics is called.
var sampledOut = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "scanledger",
		Subsystem: "logger",
		Name:      "sampled_out_total",
		Help:      "Log records dropped by sampling, by level",
	},
	[]string{"level"},
)

// RegisterMetrics exports the sampling counters on reg. Registering twice
// is not an error.
func RegisterMetrics(reg prometheus.Registerer) error {
	err := reg.Register(sampledOut)
	var are prometheus.AlreadyRegisteredError
	if errors.As(err, &are) {
		return nil
	}
	return err
}

// levelLabel buckets custom levels into the four standard ones.
func levelLabel(level slog.Level) string {
	switch {
	case level >= slog.LevelError:
		return "error"
	case level >= slog.LevelWarn:
		return "warn"
	case level >= slog.LevelInfo:
		return "info"
	default:
		return "debug"
	}
}

// SampledOut returns how many records of level have been dropped so far.
func SampledOut(level string) float64 {
	c, err := sampledOut.GetMetricWithLabelValues(level)
	if err != nil {
		return 0
	}
	var m dto.Metric
	if err := c.Write(&m); err != nil {
		return 0
	}
	return m.GetCounter().GetValue()
}
