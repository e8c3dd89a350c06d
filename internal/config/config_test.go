package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var configKeys = []string{
	"TELEGRAM_TOKEN", "DATABASE_URL", "STORE", "LOG_LEVEL", "LOG_FORMAT", "PROMETHEUS_PORT", "PORT",
	"MIGRATIONS_PATH", "TIMEZONE", "OVERLAP_CONCURRENCY", "SYNC_CRON", "SYNC_WINDOW_DAYS",
	"ICS_CACHE_DIR", "NLPARSE_URL", "NLPARSE_TIMEOUT",
}

// clearEnv blanks every key for the duration of the test. Empty values are
// treated as unset by viper.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range configKeys {
		t.Setenv(k, "")
		require.NoError(t, os.Unsetenv(k))
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("DATABASE_URL", "postgres://localhost/freeslot")

	cfg, err := LoadFile("")
	require.NoError(t, err)

	assert.Equal(t, StorePostgres, cfg.Store)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "9090", cfg.PrometheusPort)
	assert.Equal(t, "migrations", cfg.MigrationsPath)
	assert.Equal(t, time.UTC, cfg.Location)
	assert.Equal(t, 8, cfg.OverlapConcurrency)
	assert.Equal(t, "*/30 * * * *", cfg.SyncCron)
	assert.Equal(t, 28, cfg.SyncWindowDays)
	assert.Equal(t, 10*time.Second, cfg.NLParseTimeout)
	assert.False(t, cfg.BotEnabled())
}

func TestLoadRequiresDatabaseForPostgres(t *testing.T) {
	clearEnv(t)

	_, err := LoadFile("")
	assert.ErrorContains(t, err, "DATABASE_URL")

	t.Setenv("STORE", "memory")
	cfg, err := LoadFile("")
	require.NoError(t, err)
	assert.Equal(t, StoreMemory, cfg.Store)
}

func TestLoadOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("STORE", "Memory")
	t.Setenv("TELEGRAM_TOKEN", "123:abc")
	t.Setenv("OVERLAP_CONCURRENCY", "3")
	t.Setenv("SYNC_WINDOW_DAYS", "14")
	t.Setenv("NLPARSE_TIMEOUT", "2s")
	t.Setenv("NLPARSE_URL", "http://parser:8000/parse")

	cfg, err := LoadFile("")
	require.NoError(t, err)
	assert.Equal(t, StoreMemory, cfg.Store)
	assert.True(t, cfg.BotEnabled())
	assert.Equal(t, 3, cfg.OverlapConcurrency)
	assert.Equal(t, 14, cfg.SyncWindowDays)
	assert.Equal(t, 2*time.Second, cfg.NLParseTimeout)
	assert.Equal(t, "http://parser:8000/parse", cfg.NLParseURL)
}

func TestLoadRejectsBadValues(t *testing.T) {
	clearEnv(t)
	t.Setenv("STORE", "sqlite")
	_, err := LoadFile("")
	assert.ErrorContains(t, err, "STORE")

	t.Setenv("STORE", "memory")
	t.Setenv("TIMEZONE", "Mars/Olympus_Mons")
	_, err = LoadFile("")
	assert.ErrorContains(t, err, "TIMEZONE")

	t.Setenv("TIMEZONE", "UTC")
	t.Setenv("OVERLAP_CONCURRENCY", "0")
	_, err = LoadFile("")
	assert.ErrorContains(t, err, "OVERLAP_CONCURRENCY")
}

func TestLoadEnvFile(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "9999")

	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("STORE=memory\nPORT=1234\nLOG_LEVEL=debug\n"), 0o600))

	cfg, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, StoreMemory, cfg.Store)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "9999", cfg.Port, "the environment wins over the file")
}
