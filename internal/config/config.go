package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"expensetracker/internal/storage"
)

type Config struct {
	// Database
	DBDriver     string
	DBURL        string
	DBUser       string
	DBPassword   string
	SQLiteDBPath string

	// AMQP, empty URL disables transaction events
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Logging
	LogLevel string

	// Worker
	WorkerPrefetch  int
	ShutdownTimeout time.Duration
}

func Load() *Config {
	cfg := &Config{
		DBDriver:     getEnv("DB_DRIVER", storage.SQLite.String()),
		DBURL:        getEnv("DB_URL", ""),
		DBUser:       getEnv("DB_USER", ""),
		DBPassword:   getEnv("DB_PASSWORD", ""),
		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/expensetracker.db"),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "expensetracker"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "transaction_events"),

		LogLevel: getEnv("LOG_LEVEL", "info"),

		WorkerPrefetch:  getEnvInt("WORKER_PREFETCH", 10),
		ShutdownTimeout: getEnvDuration("SHUTDOWN_TIMEOUT", 10*time.Second),
	}

	return cfg
}

// Storage returns the gateway configuration. For SQLite DB_URL falls back to
// SQLITE_DB_PATH.
func (c *Config) Storage() storage.Config {
	cfg := storage.Config{
		Driver:   storage.Driver(c.DBDriver),
		URL:      c.DBURL,
		User:     c.DBUser,
		Password: c.DBPassword,
	}
	if cfg.Driver == storage.SQLite && cfg.URL == "" {
		cfg.URL = c.SQLiteDBPath
	}
	return cfg
}

// EventsEnabled reports whether an AMQP broker is configured.
func (c *Config) EventsEnabled() bool {
	return c.AMQPURL != ""
}

// SlogLevel maps LOG_LEVEL to a slog level. Validate rejects unknown names.
func (c *Config) SlogLevel() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return level
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	driver := storage.Driver(c.DBDriver)
	if !driver.IsValid() {
		errors = append(errors, fmt.Sprintf("invalid database driver '%s': must be one of %v", c.DBDriver, storage.Drivers()))
	}

	switch driver {
	case storage.SQLite:
		path := c.Storage().URL
		if path == "" {
			errors = append(errors, "SQLite database path cannot be empty when using sqlite driver")
		} else if dir := filepath.Dir(path); dir != "." && dir != "" {
			if _, err := os.Stat(dir); os.IsNotExist(err) {
				if err := os.MkdirAll(dir, 0755); err != nil {
					errors = append(errors, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
				}
			}
		}
	case storage.Postgres:
		if c.DBURL == "" {
			errors = append(errors, "DB_URL is required when using postgres driver")
		} else if u, err := url.Parse(c.DBURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid postgres URL '%s': %v", c.DBURL, err))
		} else if u.Scheme != "postgres" && u.Scheme != "postgresql" {
			errors = append(errors, fmt.Sprintf("invalid postgres URL scheme '%s': must be 'postgres' or 'postgresql'", u.Scheme))
		}
	case storage.MySQL:
		if c.DBURL == "" {
			errors = append(errors, "DB_URL is required when using mysql driver")
		}
	}

	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errors = append(errors, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		errors = append(errors, fmt.Sprintf("invalid log level '%s': must be one of debug, info, warn, error", c.LogLevel))
	}

	if c.WorkerPrefetch < 1 {
		errors = append(errors, fmt.Sprintf("invalid worker prefetch %d: must be at least 1", c.WorkerPrefetch))
	} else if c.WorkerPrefetch > 1000 {
		errors = append(errors, fmt.Sprintf("invalid worker prefetch %d: must be at most 1000", c.WorkerPrefetch))
	}

	if c.ShutdownTimeout < time.Second {
		errors = append(errors, fmt.Sprintf("invalid shutdown timeout %v: must be at least 1 second", c.ShutdownTimeout))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
