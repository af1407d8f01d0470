// Package config reads the service configuration from the environment.
package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"ledger-query/pkg/logging"
	"ledger-query/pkg/store/postgres"

	"github.com/joho/godotenv"
)

type Config struct {
	// HTTP server
	Port            string
	OwnerHeader     string
	ShutdownTimeout time.Duration

	// Database
	DatabaseURL       string
	DBMaxConns        int
	DBMaxIdleConns    int
	DBConnMaxLifetime time.Duration

	// Detail cache
	CacheEnabled    bool
	CacheTTL        time.Duration
	CacheMemorySize int
	RedisAddr       string
	RedisPassword   string
	RedisKeyPrefix  string

	// Logging
	LogLevel  string
	LogFormat string
	LogDev    bool
}

// Load reads optional env files (".env" when none are named), then the
// environment. Variables already set in the environment win over the files.
func Load(files ...string) *Config {
	_ = godotenv.Load(files...)
	return FromEnv()
}

// FromEnv builds a Config from the current environment only.
func FromEnv() *Config {
	return &Config{
		Port:            getEnv("PORT", "8080"),
		OwnerHeader:     getEnv("OWNER_HEADER", "X-Owner-ID"),
		ShutdownTimeout: getEnvDuration("SHUTDOWN_TIMEOUT", 10*time.Second),

		DatabaseURL:       getEnv("DATABASE_URL", ""),
		DBMaxConns:        getEnvInt("DB_MAX_CONNS", 5),
		DBMaxIdleConns:    getEnvInt("DB_MAX_IDLE_CONNS", 5),
		DBConnMaxLifetime: getEnvDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute),

		CacheEnabled:    getEnvBool("CACHE_ENABLED", false),
		CacheTTL:        getEnvDuration("CACHE_TTL", 30*time.Second),
		CacheMemorySize: getEnvInt("CACHE_MEMORY_SIZE", 10000),
		RedisAddr:       getEnv("REDIS_ADDR", ""),
		RedisPassword:   getEnv("REDIS_PASSWORD", ""),
		RedisKeyPrefix:  getEnv("REDIS_KEY_PREFIX", "ledger:"),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),
		LogDev:    getEnvBool("LOG_DEV", false),
	}
}

// Validate checks the configuration and reports every problem at once.
func (c *Config) Validate() error {
	var problems []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		problems = append(problems, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		problems = append(problems, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	if strings.TrimSpace(c.OwnerHeader) == "" {
		problems = append(problems, "owner header name cannot be empty")
	} else if strings.ContainsAny(c.OwnerHeader, " \t:") {
		problems = append(problems, fmt.Sprintf("invalid owner header '%s'", c.OwnerHeader))
	}

	if c.DatabaseURL == "" {
		problems = append(problems, "DATABASE_URL is required")
	} else if u, err := url.Parse(c.DatabaseURL); err != nil {
		problems = append(problems, fmt.Sprintf("invalid DATABASE_URL: %v", err))
	} else if u.Scheme != "postgres" && u.Scheme != "postgresql" {
		problems = append(problems, fmt.Sprintf("invalid DATABASE_URL scheme '%s': must be 'postgres' or 'postgresql'", u.Scheme))
	}

	if c.DBMaxConns < 1 {
		problems = append(problems, fmt.Sprintf("invalid DB_MAX_CONNS %d: must be at least 1", c.DBMaxConns))
	}
	if c.DBMaxIdleConns < 0 || c.DBMaxIdleConns > c.DBMaxConns {
		problems = append(problems, fmt.Sprintf("invalid DB_MAX_IDLE_CONNS %d: must be between 0 and DB_MAX_CONNS", c.DBMaxIdleConns))
	}

	if c.CacheEnabled {
		if c.CacheTTL <= 0 {
			problems = append(problems, fmt.Sprintf("invalid CACHE_TTL %v: must be positive", c.CacheTTL))
		}
		if c.CacheMemorySize < 1 {
			problems = append(problems, fmt.Sprintf("invalid CACHE_MEMORY_SIZE %d: must be at least 1", c.CacheMemorySize))
		}
	}

	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		problems = append(problems, err.Error())
	}
	if c.LogFormat != "json" && c.LogFormat != "console" {
		problems = append(problems, fmt.Sprintf("invalid LOG_FORMAT '%s': must be 'json' or 'console'", c.LogFormat))
	}

	if c.ShutdownTimeout <= 0 {
		problems = append(problems, fmt.Sprintf("invalid SHUTDOWN_TIMEOUT %v: must be positive", c.ShutdownTimeout))
	}

	if len(problems) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(problems, "\n- "))
	}
	return nil
}

// Logging returns the logger configuration.
func (c *Config) Logging() logging.Config {
	cfg := logging.DefaultConfig()
	cfg.Level = c.LogLevel
	cfg.Format = c.LogFormat
	cfg.Development = c.LogDev
	return cfg
}

// Postgres returns the connection pool configuration.
func (c *Config) Postgres() postgres.Config {
	cfg := postgres.DefaultConfig()
	cfg.URL = c.DatabaseURL
	cfg.MaxOpenConns = c.DBMaxConns
	cfg.MaxIdleConns = c.DBMaxIdleConns
	cfg.ConnMaxLifetime = c.DBConnMaxLifetime
	return cfg
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

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
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
