package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Session backends understood by the console.
const (
	SessionBackendRedis    = "redis"
	SessionBackendPostgres = "postgres"
	SessionBackendMemory   = "memory"
)

// Config aggregates runtime configuration for the console.
type Config struct {
	App      AppConfig
	Logger   LoggerConfig
	Session  SessionConfig
	Redis    RedisConfig
	Postgres PostgresConfig
	Upstream UpstreamConfig
	Menu     MenuConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	RequestTimeoutSeconds int
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
}

// SessionConfig describes where browser sessions are persisted and how the cookie looks.
type SessionConfig struct {
	Backend        string
	CookieName     string
	CookieSecure   bool
	KeyPrefix      string
	RetentionHours int
}

// PostgresConfig holds DB connection values.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	RunMigrations  bool
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
}

// RedisConfig holds Redis connection values.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// UpstreamConfig points at the e-commerce API the console fronts.
type UpstreamConfig struct {
	BaseURL        string
	TimeoutMillis  int
	Retries        int
	BackoffMillis  int
	MinErrorStatus int
}

// MenuConfig optionally replaces the embedded navigation menu.
type MenuConfig struct {
	File string
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "merchant-console"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Session: SessionConfig{
			Backend:        strings.ToLower(getEnv("SESSION_BACKEND", SessionBackendRedis)),
			CookieName:     getEnv("SESSION_COOKIE_NAME", "console_sid"),
			CookieSecure:   getEnvAsBool("SESSION_COOKIE_SECURE", false),
			KeyPrefix:      getEnv("SESSION_KEY_PREFIX", "console:session"),
			RetentionHours: getEnvAsInt("SESSION_RETENTION_HOURS", 168),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10)),
			MinConns:       int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2)),
			RunMigrations:  getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true),
			ConnMaxIdleSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30)),
			ConnMaxLifeSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300)),
		},
		Upstream: UpstreamConfig{
			BaseURL:        strings.TrimRight(getEnv("UPSTREAM_BASE_URL", "http://127.0.0.1:8081"), "/"),
			TimeoutMillis:  getEnvAsInt("UPSTREAM_TIMEOUT_MS", 10000),
			Retries:        getEnvAsInt("UPSTREAM_RETRIES", 2),
			BackoffMillis:  getEnvAsInt("UPSTREAM_RETRY_BACKOFF_MS", 200),
			MinErrorStatus: getEnvAsInt("UPSTREAM_MIN_ERROR_STATUS", 500),
		},
		Menu: MenuConfig{
			File: os.Getenv("MENU_FILE"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects combinations the console cannot start with.
func (c *Config) Validate() error {
	switch c.Session.Backend {
	case SessionBackendRedis, SessionBackendMemory:
	case SessionBackendPostgres:
		if c.Postgres.DSN == "" {
			return errors.New("POSTGRES_DSN is required for the postgres session backend")
		}
	default:
		return fmt.Errorf("unknown SESSION_BACKEND %q", c.Session.Backend)
	}
	if c.Upstream.BaseURL == "" {
		return errors.New("UPSTREAM_BASE_URL is required")
	}
	if c.Session.CookieName == "" {
		return errors.New("SESSION_COOKIE_NAME must not be empty")
	}
	return nil
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

// Retention returns how long an idle session scope is kept by the backend. Zero keeps it forever.
func (s SessionConfig) Retention() time.Duration {
	if s.RetentionHours <= 0 {
		return 0
	}
	return time.Duration(s.RetentionHours) * time.Hour
}

// Timeout returns the per-attempt upstream timeout.
func (u UpstreamConfig) Timeout() time.Duration {
	if u.TimeoutMillis <= 0 {
		return 10 * time.Second
	}
	return time.Duration(u.TimeoutMillis) * time.Millisecond
}

// Backoff returns the pause between upstream retries.
func (u UpstreamConfig) Backoff() time.Duration {
	if u.BackoffMillis <= 0 {
		return 0
	}
	return time.Duration(u.BackoffMillis) * time.Millisecond
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}
