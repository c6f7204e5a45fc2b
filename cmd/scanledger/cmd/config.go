package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Settings is the YAML config file read by --config.
type Settings struct {
	APIURL  string        `yaml:"api-url"`
	Timeout time.Duration `yaml:"timeout,omitempty"`

	// Database is used by migrate only; empty fields fall back to the
	// server's DB_* environment variables.
	Database DatabaseSettings `yaml:"database,omitempty"`
}

// DatabaseSettings overrides the server database connection for migrate.
type DatabaseSettings struct {
	Host     string `yaml:"host,omitempty"`
	Port     int    `yaml:"port,omitempty"`
	User     string `yaml:"user,omitempty"`
	Password string `yaml:"password,omitempty"`
	Name     string `yaml:"name,omitempty"`
	SSLMode  string `yaml:"sslmode,omitempty"`
}

func defaultSettings() Settings {
	return Settings{
		APIURL:  "http://localhost:8080",
		Timeout: 30 * time.Second,
	}
}

func expandPath(p string) string {
	if strings.HasPrefix(p, "~/") {
		home, _ := os.UserHomeDir()
		return filepath.Join(home, p[2:])
	}
	return p
}

func loadSettings(path string) (Settings, error) {
	s := defaultSettings()
	data, err := os.ReadFile(expandPath(path))
	if err != nil {
		return s, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &s); err != nil {
		return s, fmt.Errorf("invalid config: %w", err)
	}
	if s.APIURL == "" {
		return s, fmt.Errorf("invalid config: api-url is required")
	}
	return s, nil
}
