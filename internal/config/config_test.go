package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var configKeys = []string{
	"APP_NAME", "APP_ENV", "APP_HOST", "APP_PORT", "APP_VERSION", "HTTP_REQUEST_TIMEOUT_SECONDS",
	"LOG_LEVEL", "SESSION_BACKEND", "SESSION_COOKIE_NAME", "SESSION_COOKIE_SECURE",
	"SESSION_KEY_PREFIX", "SESSION_RETENTION_HOURS", "REDIS_ADDR", "REDIS_PASSWORD", "REDIS_DB",
	"POSTGRES_DSN", "POSTGRES_MAX_CONNS", "POSTGRES_MIN_CONNS", "POSTGRES_RUN_MIGRATIONS",
	"UPSTREAM_BASE_URL", "UPSTREAM_TIMEOUT_MS", "UPSTREAM_RETRIES", "UPSTREAM_RETRY_BACKOFF_MS",
	"UPSTREAM_MIN_ERROR_STATUS", "MENU_FILE",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range configKeys {
		t.Setenv(key, "")
	}
}

func TestLoad(t *testing.T) {
	tests := []struct {
		name    string
		envVars map[string]string
		wantErr string
		check   func(*testing.T, *Config)
	}{
		{
			name: "defaults",
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "merchant-console", cfg.App.Name)
				assert.Equal(t, "0.0.0.0:8080", cfg.App.Addr())
				assert.Equal(t, 30*time.Second, cfg.App.RequestTimeout())
				assert.Equal(t, SessionBackendRedis, cfg.Session.Backend)
				assert.Equal(t, "console_sid", cfg.Session.CookieName)
				assert.Equal(t, 168*time.Hour, cfg.Session.Retention())
				assert.Equal(t, "127.0.0.1:6379", cfg.Redis.Addr)
				assert.Equal(t, "http://127.0.0.1:8081", cfg.Upstream.BaseURL)
				assert.Equal(t, 10*time.Second, cfg.Upstream.Timeout())
				assert.Equal(t, 200*time.Millisecond, cfg.Upstream.Backoff())
				assert.Empty(t, cfg.Menu.File)
			},
		},
		{
			name: "overrides",
			envVars: map[string]string{
				"APP_PORT":                "9000",
				"SESSION_BACKEND":         "Memory",
				"SESSION_COOKIE_SECURE":   "true",
				"SESSION_RETENTION_HOURS": "0",
				"UPSTREAM_BASE_URL":       "https://api.example.com/",
				"UPSTREAM_TIMEOUT_MS":     "1500",
				"REDIS_DB":                "3",
				"MENU_FILE":               "/etc/console/menu.yaml",
			},
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "0.0.0.0:9000", cfg.App.Addr())
				assert.Equal(t, SessionBackendMemory, cfg.Session.Backend)
				assert.True(t, cfg.Session.CookieSecure)
				assert.Zero(t, cfg.Session.Retention())
				assert.Equal(t, "https://api.example.com", cfg.Upstream.BaseURL)
				assert.Equal(t, 1500*time.Millisecond, cfg.Upstream.Timeout())
				assert.Equal(t, 3, cfg.Redis.DB)
				assert.Equal(t, "/etc/console/menu.yaml", cfg.Menu.File)
			},
		},
		{
			name:    "invalid redis db",
			envVars: map[string]string{"REDIS_DB": "one"},
			wantErr: "invalid REDIS_DB",
		},
		{
			name:    "unknown session backend",
			envVars: map[string]string{"SESSION_BACKEND": "cookie"},
			wantErr: "unknown SESSION_BACKEND",
		},
		{
			name:    "postgres backend without dsn",
			envVars: map[string]string{"SESSION_BACKEND": "postgres"},
			wantErr: "POSTGRES_DSN is required",
		},
		{
			name: "postgres backend with dsn",
			envVars: map[string]string{
				"SESSION_BACKEND": "postgres",
				"POSTGRES_DSN":    "postgres://console@localhost/console",
			},
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, SessionBackendPostgres, cfg.Session.Backend)
				assert.True(t, cfg.Postgres.RunMigrations)
				assert.Equal(t, int32(10), cfg.Postgres.MaxConns)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.envVars {
				t.Setenv(k, v)
			}

			cfg, err := Load()
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			tt.check(t, cfg)
		})
	}
}
