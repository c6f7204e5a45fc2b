package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "scanledger", cfg.App.Name)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, int64(50<<20), cfg.Ingest.MaxUploadSize)
	assert.Empty(t, cfg.SLA.Days)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr())
	assert.True(t, cfg.IsDevelopment())
}

func TestLoad_SLAOverrides(t *testing.T) {
	t.Chdir(t.TempDir())

	policy := filepath.Join(t.TempDir(), "sla.yaml")
	require.NoError(t, os.WriteFile(policy, []byte("sla:\n  Critical: 1\n  low: 180\n"), 0o600))

	t.Setenv("SLA_CRITICAL_DAYS", "2")
	t.Setenv("SLA_HIGH_DAYS", "5")
	t.Setenv("SLA_POLICY_FILE", policy)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"critical": 1, "high": 5, "low": 180}, cfg.SLA.Days)
}

func TestLoad_EnvFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("APP_NAME=dotenv-app\nSERVER_PORT=9090\n"), 0o600))
	t.Chdir(dir)
	t.Setenv("APP_NAME", "from-env")
	t.Setenv("SERVER_PORT", "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.App.Name, "process env wins over .env")
	assert.Equal(t, 9090, cfg.Server.Port)
}

func TestParseSLAPolicy_Errors(t *testing.T) {
	_, err := ParseSLAPolicy([]byte("sla:\n  urgent: 1\n"))
	assert.Error(t, err)

	_, err = ParseSLAPolicy([]byte("sla: [1, 2"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	t.Chdir(t.TempDir())

	base := func(t *testing.T) *Config {
		cfg, err := Load()
		require.NoError(t, err)
		return cfg
	}

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad port", func(c *Config) { c.Server.Port = 0 }},
		{"bad log level", func(c *Config) { c.Log.Level = "verbose" }},
		{"bad sampling rate", func(c *Config) { c.Log.SamplingRate = 2 }},
		{"zero workers", func(c *Config) { c.Ingest.NormalizeWorkers = 0 }},
		{"bad sla days", func(c *Config) { c.SLA.Days["high"] = -1 }},
		{"bad sla key", func(c *Config) { c.SLA.Days["urgent"] = 3 }},
		{"bad cron", func(c *Config) { c.SLA.SweepCron = "every day" }},
		{"bad webhook", func(c *Config) { c.Notification.WebhookURL = "ftp://x" }},
		{"archive without bucket", func(c *Config) { c.Archive.Enabled = true }},
		{"production debug", func(c *Config) { c.App.Env = EnvProduction; c.App.Debug = true }},
		{"production default password", func(c *Config) {
			c.App.Env = EnvProduction
			c.Database.SSLMode = "require"
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base(t)
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestLoadDatabase(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("DB_HOST", "db.internal")
	t.Setenv("DB_PORT", "6543")
	// An invalid unrelated setting does not matter here.
	t.Setenv("SERVER_PORT", "-1")

	db := LoadDatabase()
	assert.Equal(t, "db.internal", db.Host)
	assert.Equal(t, 6543, db.Port)
	assert.Equal(t, "scanledger", db.Name)
}

func TestValidate_ReportsEveryProblem(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)
	cfg.Server.Port = 0
	cfg.Log.Format = "xml"
	cfg.Archive.Enabled = true

	err = cfg.Validate()
	require.Error(t, err)
	assert.ErrorContains(t, err, "SERVER_PORT")
	assert.ErrorContains(t, err, "LOG_FORMAT")
	assert.ErrorContains(t, err, "ARCHIVE_BUCKET")
}

func TestEnvHelpers(t *testing.T) {
	t.Setenv("SCANLEDGER_TEST_INT", "not-a-number")
	t.Setenv("SCANLEDGER_TEST_LIST", " a, ,b ,")
	t.Setenv("SCANLEDGER_TEST_DURATION", "90s")

	assert.Equal(t, 7, envInt("SCANLEDGER_TEST_INT", 7))
	assert.Equal(t, []string{"a", "b"}, envList("SCANLEDGER_TEST_LIST", nil))
	assert.Equal(t, []string{"x"}, envList("SCANLEDGER_TEST_UNSET", []string{"x"}))
	assert.Equal(t, 90*time.Second, envDuration("SCANLEDGER_TEST_DURATION", time.Second))
	assert.Equal(t, "fallback", envString("SCANLEDGER_TEST_UNSET", "fallback"))
}

func TestLoadEnvFiles_BlankCountsAsUnset(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("LOG_FORMAT=text\nLOG_LEVEL=debug\n"), 0o600))
	t.Chdir(dir)
	t.Setenv("LOG_FORMAT", "  ")
	t.Setenv("LOG_LEVEL", "warn")

	assert.Equal(t, ".env", LoadEnvFiles())
	assert.Equal(t, "text", os.Getenv("LOG_FORMAT"))
	assert.Equal(t, "warn", os.Getenv("LOG_LEVEL"))
}
