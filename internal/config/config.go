package config

import (
	"fmt"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"tally/internal/backend"
)

type Config struct {
	// HTTP Server
	Port string

	// Backend selection
	DataBackend string

	// Postgres (hosted service)
	PostgresURL string

	// SQLite (local mode)
	SQLiteDBPath string

	// AMQP
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Auth
	JWTSecret   string
	SessionTTL  time.Duration
	DefaultUser string

	// Preferences
	DataDir string

	// CIDRs of reverse proxies whose forwarding headers are trusted.
	// Empty means loopback plus the private ranges.
	TrustedProxies []string

	// Cache
	BudgetCacheSize int
	BudgetCacheTTL  time.Duration
}

func Load() *Config {
	cfg := &Config{
		Port: getEnv("PORT", "8081"),

		DataBackend: getEnv("DATA_BACKEND", "memory"),

		PostgresURL:  getEnv("POSTGRES_URL", ""),
		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/tally.db"),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "tally"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "entity_changes"),

		JWTSecret:   getEnv("JWT_SECRET", ""),
		SessionTTL:  getEnvDuration("SESSION_TTL", 24*time.Hour),
		DefaultUser: getEnv("DEFAULT_USER", ""),

		DataDir: getEnv("DATA_DIR", "./data"),

		TrustedProxies: getEnvList("TRUSTED_PROXIES"),

		BudgetCacheSize: getEnvInt("BUDGET_CACHE_SIZE", 100),
		BudgetCacheTTL:  getEnvDuration("BUDGET_CACHE_TTL", 30*time.Second),
	}

	return cfg
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	// Validate port
	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	// Validate data backend
	if !backend.Type(c.DataBackend).IsValid() {
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of [memory sqlite postgres]", c.DataBackend))
	}

	// Validate postgres configuration if backend is postgres
	if c.DataBackend == string(backend.PostgresBackend) {
		if c.PostgresURL == "" {
			errors = append(errors, "Postgres URL cannot be empty when using postgres backend")
		} else if parsedURL, err := url.Parse(c.PostgresURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid Postgres URL '%s': %v", c.PostgresURL, err))
		} else if parsedURL.Scheme != "postgres" && parsedURL.Scheme != "postgresql" {
			errors = append(errors, fmt.Sprintf("invalid Postgres URL scheme '%s': must be 'postgres' or 'postgresql'", parsedURL.Scheme))
		}
	}

	// Validate SQLite configuration if backend is sqlite
	if c.DataBackend == string(backend.SQLiteBackend) {
		if c.SQLiteDBPath == "" {
			errors = append(errors, "SQLite database path cannot be empty when using sqlite backend")
		} else {
			// Check if directory exists or can be created
			dir := filepath.Dir(c.SQLiteDBPath)
			if dir != "." && dir != "" {
				if _, err := os.Stat(dir); os.IsNotExist(err) {
					if err := os.MkdirAll(dir, 0755); err != nil {
						errors = append(errors, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
					}
				}
			}
		}
	}

	// Validate AMQP URL if provided
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

	// Validate auth configuration
	if c.JWTSecret == "" {
		errors = append(errors, "JWT secret cannot be empty")
	} else if len(c.JWTSecret) < 16 {
		errors = append(errors, "JWT secret must be at least 16 characters")
	}

	if c.SessionTTL < time.Minute {
		errors = append(errors, fmt.Sprintf("invalid session TTL %v: must be at least 1 minute", c.SessionTTL))
	} else if c.SessionTTL > 30*24*time.Hour {
		errors = append(errors, fmt.Sprintf("invalid session TTL %v: must be at most 30 days", c.SessionTTL))
	}

	// Validate trusted proxy CIDRs
	for _, cidr := range c.TrustedProxies {
		if _, _, err := net.ParseCIDR(cidr); err != nil {
			errors = append(errors, fmt.Sprintf("invalid trusted proxy CIDR '%s': %v", cidr, err))
		}
	}

	// Validate cache configuration
	if c.BudgetCacheSize < 1 {
		errors = append(errors, fmt.Sprintf("invalid budget cache size %d: must be at least 1", c.BudgetCacheSize))
	} else if c.BudgetCacheSize > 100000 {
		errors = append(errors, fmt.Sprintf("invalid budget cache size %d: must be at most 100000", c.BudgetCacheSize))
	}

	if c.BudgetCacheTTL < time.Second {
		errors = append(errors, fmt.Sprintf("invalid budget cache TTL %v: must be at least 1 second", c.BudgetCacheTTL))
	} else if c.BudgetCacheTTL > 24*time.Hour {
		errors = append(errors, fmt.Sprintf("invalid budget cache TTL %v: must be at most 24 hours", c.BudgetCacheTTL))
	}

	// Return combined errors
	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

// BackendConfig maps the flat env configuration onto the backend factory's.
func (c *Config) BackendConfig() backend.Config {
	return backend.Config{
		Type:         backend.Type(c.DataBackend),
		PostgresURL:  c.PostgresURL,
		SQLiteDBPath: c.SQLiteDBPath,
	}
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

// getEnvList splits a comma-separated variable, trimming whitespace and
// dropping empty entries. Unset means nil.
func getEnvList(key string) []string {
	value := os.Getenv(key)
	if value == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
