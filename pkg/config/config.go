package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// Config holds application configuration
type Config struct {
	Port      string
	LogLevel  string
	LogFormat string // "json" or "text"

	// Storage
	DBDriver string // "sqlite" or "postgres"
	DBDSN    string

	// Simulation cache
	CacheBackend string // "memory" or "redis"
	CacheSize    int
	CacheTTL     time.Duration
	RedisAddr    string

	// Cron spec for recomputing cached simulations
	RefreshSchedule string
}

// Load reads configuration from the environment, after loading a .env file if one exists.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		Port:      getEnv("PORT", "8080"),
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),

		DBDriver: getEnv("DB_DRIVER", "sqlite"),
		DBDSN:    getEnv("DB_DSN", "fredDebt.db"),

		CacheBackend: getEnv("CACHE_BACKEND", "memory"),
		CacheSize:    getEnvInt("CACHE_SIZE", 256),
		CacheTTL:     getEnvDuration("CACHE_TTL", 24*time.Hour),
		RedisAddr:    getEnv("REDIS_ADDR", "localhost:6379"),

		RefreshSchedule: getEnv("REFRESH_SCHEDULE", "@daily"),
	}
}

// Validate validates the configuration and returns an error listing every problem.
func (c *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		errors = append(errors, fmt.Sprintf("invalid log level '%s'", c.LogLevel))
	}
	if c.LogFormat != "json" && c.LogFormat != "text" {
		errors = append(errors, fmt.Sprintf("invalid log format '%s': must be 'json' or 'text'", c.LogFormat))
	}

	switch c.DBDriver {
	case "sqlite", "sqlite3", "postgres":
	default:
		errors = append(errors, fmt.Sprintf("invalid database driver '%s': must be 'sqlite' or 'postgres'", c.DBDriver))
	}
	if c.DBDSN == "" {
		errors = append(errors, "database DSN cannot be empty")
	}

	switch c.CacheBackend {
	case "memory":
		if c.CacheSize <= 0 {
			errors = append(errors, fmt.Sprintf("invalid cache size %d: must be positive", c.CacheSize))
		}
	case "redis":
		if c.RedisAddr == "" {
			errors = append(errors, "Redis address cannot be empty when using redis cache")
		}
	default:
		errors = append(errors, fmt.Sprintf("invalid cache backend '%s': must be 'memory' or 'redis'", c.CacheBackend))
	}
	if c.CacheTTL <= 0 {
		errors = append(errors, fmt.Sprintf("invalid cache TTL %s: must be positive", c.CacheTTL))
	}

	if _, err := cron.ParseStandard(c.RefreshSchedule); err != nil {
		errors = append(errors, fmt.Sprintf("invalid refresh schedule '%s': %v", c.RefreshSchedule, err))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n  - %s", strings.Join(errors, "\n  - "))
	}
	return nil
}

// NewLogger builds the application logger from LogLevel and LogFormat.
func (c *Config) NewLogger() *logrus.Logger {
	logger := logrus.New()
	if c.LogFormat == "text" {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	} else {
		logger.SetFormatter(&logrus.JSONFormatter{})
	}
	level, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)
	return logger
}

func getEnv(key, defaultVal string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if value, exists := os.LookupEnv(key); exists {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultVal
}
