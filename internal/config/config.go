package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Store backends
const (
	StorePostgres = "postgres"
	StoreMemory   = "memory"
)

// Config holds all configuration for the application
type Config struct {
	TelegramToken  string
	DatabaseURL    string
	Store          string
	LogLevel       string
	LogFormat      string
	PrometheusPort string
	Port           string
	MigrationsPath string

	Location           *time.Location
	OverlapConcurrency int

	SyncCron       string
	SyncWindowDays int
	ICSCacheDir    string

	NLParseURL     string
	NLParseTimeout time.Duration
}

// BotEnabled reports whether a Telegram token was configured.
func (c *Config) BotEnabled() bool { return c.TelegramToken != "" }

// Load loads configuration from environment variables, after merging a
// .env file from the working directory when one exists.
func Load() (*Config, error) {
	return LoadFile(".env")
}

// LoadFile is Load with an explicit env file. Variables already set in the
// environment win over the file.
func LoadFile(envFile string) (*Config, error) {
	if envFile != "" {
		// A missing file is fine; the environment alone may be complete.
		_ = godotenv.Load(envFile)
	}

	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("store", StorePostgres)
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "text")
	v.SetDefault("prometheus_port", "9090")
	v.SetDefault("port", "8080")
	v.SetDefault("migrations_path", "migrations")
	v.SetDefault("timezone", "UTC")
	v.SetDefault("overlap_concurrency", 8)
	v.SetDefault("sync_cron", "*/30 * * * *")
	v.SetDefault("sync_window_days", 28)
	v.SetDefault("ics_cache_dir", "./var/ics-cache")
	v.SetDefault("nlparse_timeout", "10s")

	cfg := &Config{
		TelegramToken:      strings.TrimSpace(v.GetString("telegram_token")),
		DatabaseURL:        strings.TrimSpace(v.GetString("database_url")),
		Store:              strings.ToLower(strings.TrimSpace(v.GetString("store"))),
		LogLevel:           v.GetString("log_level"),
		LogFormat:          strings.ToLower(strings.TrimSpace(v.GetString("log_format"))),
		PrometheusPort:     v.GetString("prometheus_port"),
		Port:               v.GetString("port"),
		MigrationsPath:     v.GetString("migrations_path"),
		OverlapConcurrency: v.GetInt("overlap_concurrency"),
		SyncCron:           strings.TrimSpace(v.GetString("sync_cron")),
		SyncWindowDays:     v.GetInt("sync_window_days"),
		ICSCacheDir:        v.GetString("ics_cache_dir"),
		NLParseURL:         strings.TrimSpace(v.GetString("nlparse_url")),
		NLParseTimeout:     v.GetDuration("nlparse_timeout"),
	}

	switch cfg.Store {
	case StorePostgres:
		if cfg.DatabaseURL == "" {
			return nil, fmt.Errorf("DATABASE_URL environment variable is required")
		}
	case StoreMemory:
	default:
		return nil, fmt.Errorf("STORE must be %q or %q, got %q", StorePostgres, StoreMemory, cfg.Store)
	}

	loc, err := time.LoadLocation(v.GetString("timezone"))
	if err != nil {
		return nil, fmt.Errorf("invalid TIMEZONE: %w", err)
	}
	cfg.Location = loc

	if cfg.OverlapConcurrency <= 0 {
		return nil, fmt.Errorf("OVERLAP_CONCURRENCY must be positive, got %d", cfg.OverlapConcurrency)
	}
	if cfg.SyncWindowDays <= 0 {
		return nil, fmt.Errorf("SYNC_WINDOW_DAYS must be positive, got %d", cfg.SyncWindowDays)
	}
	if cfg.NLParseTimeout <= 0 {
		cfg.NLParseTimeout = 10 * time.Second
	}

	return cfg, nil
}
