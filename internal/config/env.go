package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// envPaths are tried in order; the first readable file wins.
var envPaths = []string{
	".env",
	"../.env",
	"/app/.env", // Docker
}

// LoadEnvFiles applies the first .env file found. A variable already set
// to a non-blank value in the process environment wins; blank values count
// as unset, matching how the env helpers read them.
func LoadEnvFiles() string {
	for _, path := range envPaths {
		vars, err := godotenv.Read(path)
		if err != nil {
			continue
		}
		for k, v := range vars {
			if strings.TrimSpace(os.Getenv(k)) != "" {
				continue
			}
			if err := os.Setenv(k, v); err != nil {
				slog.Warn("failed to apply environment file entry", "path", path, "key", k, "error", err)
			}
		}
		slog.Debug("loaded environment file", "path", path)
		return path
	}
	return ""
}

// envOr parses the variable named key, falling back to def when it is
// unset, blank or unparsable.
func envOr[T any](key string, def T, parse func(string) (T, error)) T {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	v, err := parse(raw)
	if err != nil {
		slog.Warn("ignoring invalid environment value", "key", key, "error", err)
		return def
	}
	return v
}

func envString(key, def string) string {
	return envOr(key, def, func(s string) (string, error) { return s, nil })
}

func envInt(key string, def int) int {
	return envOr(key, def, strconv.Atoi)
}

func envInt64(key string, def int64) int64 {
	return envOr(key, def, func(s string) (int64, error) { return strconv.ParseInt(s, 10, 64) })
}

func envBool(key string, def bool) bool {
	return envOr(key, def, strconv.ParseBool)
}

func envFloat(key string, def float64) float64 {
	return envOr(key, def, func(s string) (float64, error) { return strconv.ParseFloat(s, 64) })
}

func envDuration(key string, def time.Duration) time.Duration {
	return envOr(key, def, time.ParseDuration)
}

// envList splits a comma separated variable, dropping empty items.
func envList(key string, def []string) []string {
	var items []string
	for item := range strings.SplitSeq(os.Getenv(key), ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	if len(items) == 0 {
		return def
	}
	return items
}
