package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration for the copydesk session process.
type Config struct {
	Server    ServerConfig
	Optimizer OptimizerConfig
	Poll      PollConfig
	Redis     RedisConfig
	Database  DatabaseConfig
}

type ServerConfig struct {
	Port        int
	Env         string
	LogLevel    string
	CORSOrigins []string
}

type OptimizerConfig struct {
	BaseURL string
	Timeout time.Duration
}

// PollConfig controls the background loops and the history page size.
type PollConfig struct {
	StatusInterval time.Duration
	StatsInterval  time.Duration
	HistoryLimit   int
}

// RedisConfig is optional. An empty URL disables the snapshot cache and
// rate limiting.
type RedisConfig struct {
	URL                string
	RateLimitPerMinute int
}

// DatabaseConfig is optional. An empty URL disables the lifecycle journal.
type DatabaseConfig struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	MigrationsDir   string
}

var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Load reads configuration from environment variables and returns a validated Config.
// Returns an error with a descriptive message if any required value is missing or invalid.
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port:        envInt("COPYDESK_PORT", 8080),
			Env:         envString("COPYDESK_ENV", "development"),
			LogLevel:    strings.ToLower(envString("COPYDESK_LOG_LEVEL", "info")),
			CORSOrigins: envList("CORS_ORIGINS", []string{"*"}),
		},
		Optimizer: OptimizerConfig{
			BaseURL: strings.TrimRight(os.Getenv("OPTIMIZER_BASE_URL"), "/"),
			Timeout: envDuration("OPTIMIZER_TIMEOUT", 15*time.Second),
		},
		Poll: PollConfig{
			StatusInterval: envDuration("POLL_STATUS_INTERVAL", 3*time.Second),
			StatsInterval:  envDuration("POLL_STATS_INTERVAL", 30*time.Second),
			HistoryLimit:   envInt("HISTORY_LIMIT", 20),
		},
		Redis: RedisConfig{
			URL:                os.Getenv("REDIS_URL"),
			RateLimitPerMinute: envInt("RATE_LIMIT_PER_MINUTE", 60),
		},
		Database: DatabaseConfig{
			URL:             os.Getenv("DATABASE_URL"),
			MaxOpenConns:    envInt("DATABASE_MAX_OPEN_CONNS", 10),
			MaxIdleConns:    envInt("DATABASE_MAX_IDLE_CONNS", 2),
			ConnMaxLifetime: envDuration("DATABASE_CONN_MAX_LIFETIME", 5*time.Minute),
			MigrationsDir:   envString("DATABASE_MIGRATIONS_DIR", "migrations"),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.Optimizer.BaseURL == "" {
		return fmt.Errorf("OPTIMIZER_BASE_URL is required")
	}
	if !strings.HasPrefix(c.Optimizer.BaseURL, "http://") && !strings.HasPrefix(c.Optimizer.BaseURL, "https://") {
		return fmt.Errorf("OPTIMIZER_BASE_URL must start with http:// or https://, got %q", c.Optimizer.BaseURL)
	}
	if c.Optimizer.Timeout <= 0 {
		return fmt.Errorf("OPTIMIZER_TIMEOUT must be positive, got %s", c.Optimizer.Timeout)
	}

	if !validLogLevels[c.Server.LogLevel] {
		return fmt.Errorf("COPYDESK_LOG_LEVEL must be one of debug, info, warn, error; got %q", c.Server.LogLevel)
	}

	if c.Poll.StatusInterval <= 0 {
		return fmt.Errorf("POLL_STATUS_INTERVAL must be positive, got %s", c.Poll.StatusInterval)
	}
	if c.Poll.StatsInterval <= 0 {
		return fmt.Errorf("POLL_STATS_INTERVAL must be positive, got %s", c.Poll.StatsInterval)
	}
	if c.Poll.StatusInterval >= c.Poll.StatsInterval {
		return fmt.Errorf("POLL_STATUS_INTERVAL (%s) must be shorter than POLL_STATS_INTERVAL (%s)",
			c.Poll.StatusInterval, c.Poll.StatsInterval)
	}
	if c.Poll.HistoryLimit <= 0 {
		return fmt.Errorf("HISTORY_LIMIT must be positive, got %d", c.Poll.HistoryLimit)
	}

	if c.Redis.URL != "" && c.Redis.RateLimitPerMinute <= 0 {
		return fmt.Errorf("RATE_LIMIT_PER_MINUTE must be positive, got %d", c.Redis.RateLimitPerMinute)
	}

	return nil
}

// SlogLevel maps the configured log level to a slog.Level.
func (s ServerConfig) SlogLevel() slog.Level {
	switch s.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func envString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

// envList splits a comma-separated variable, dropping empty entries.
func envList(key string, defaultVal []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return defaultVal
	}
	return out
}

func envInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func envDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}
