package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var configEnvKeys = []string{
	"MKT_APP_NAME",
	"MKT_APP_ENV",
	"MKT_APP_PORT",
	"MKT_DATABASE_HOST",
	"MKT_DATABASE_PORT",
	"MKT_DATABASE_USER",
	"MKT_DATABASE_PASSWORD",
	"MKT_DATABASE_DBNAME",
	"MKT_DATABASE_SSLMODE",
	"MKT_DATABASE_MAX_OPEN_CONNS",
	"MKT_DATABASE_MAX_IDLE_CONNS",
	"MKT_JWT_SECRET",
	"MKT_JWT_REQUIRED",
	"MKT_PLATFORM_TAX_ENABLED",
	"MKT_PLATFORM_SHIPPING_ENABLED",
	"MKT_PLATFORM_CURRENCY",
	"MKT_IDEMPOTENCY_BACKEND",
	"MKT_IDEMPOTENCY_TTL",
	"MKT_IDEMPOTENCY_PENDING_TTL",
	"MKT_TELEMETRY_SAMPLING_RATIO",
	"MKT_HTTP_RATE_LIMIT_ENABLED",
	"MKT_HTTP_RATE_LIMIT_REQUESTS",
}

// clearEnv unsets every config variable for the duration of the test
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range configEnvKeys {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
}

func TestLoad(t *testing.T) {
	t.Run("loads default values when env vars not set", func(t *testing.T) {
		clearEnv(t)

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, "marketplace-backend", cfg.App.Name)
		assert.Equal(t, "development", cfg.App.Env)
		assert.Equal(t, "8080", cfg.App.Port)
		assert.Equal(t, "localhost", cfg.Database.Host)
		assert.Equal(t, 5432, cfg.Database.Port)
		assert.Equal(t, "marketplace", cfg.Database.DBName)
		assert.Equal(t, "disable", cfg.Database.SSLMode)
		assert.Equal(t, 25, cfg.Database.MaxOpenConns)
		assert.Equal(t, 5, cfg.Database.MaxIdleConns)

		assert.True(t, cfg.Platform.TaxEnabled)
		assert.True(t, cfg.Platform.ShippingEnabled)
		assert.Equal(t, "PKR", cfg.Platform.Currency)
		assert.Equal(t, "PK", cfg.Platform.DefaultZone)
		assert.Equal(t, "standard", cfg.Platform.DefaultMethod)

		assert.True(t, cfg.Idempotency.Enabled)
		assert.Equal(t, "memory", cfg.Idempotency.Backend)
		assert.Equal(t, 24*time.Hour, cfg.Idempotency.TTL)
		assert.Equal(t, 2*time.Minute, cfg.Idempotency.PendingTTL)
		assert.Contains(t, cfg.HTTP.CORSAllowHeaders, "Idempotency-Key")
		assert.Equal(t, 10*time.Second, cfg.HTTP.RequestTimeout)
		assert.False(t, cfg.HTTP.RateLimitEnabled)
		assert.Equal(t, 120, cfg.HTTP.RateLimitRequests)
		assert.Equal(t, time.Minute, cfg.HTTP.RateLimitWindow)
	})

	t.Run("loads values from environment variables with MKT prefix", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("MKT_APP_NAME", "test-app")
		t.Setenv("MKT_APP_PORT", "9000")
		t.Setenv("MKT_DATABASE_HOST", "testdb.local")
		t.Setenv("MKT_DATABASE_PORT", "5433")
		t.Setenv("MKT_DATABASE_PASSWORD", "testpass")
		t.Setenv("MKT_DATABASE_MAX_OPEN_CONNS", "50")
		t.Setenv("MKT_DATABASE_MAX_IDLE_CONNS", "10")
		t.Setenv("MKT_PLATFORM_TAX_ENABLED", "false")
		t.Setenv("MKT_PLATFORM_CURRENCY", "USD")
		t.Setenv("MKT_IDEMPOTENCY_BACKEND", "redis")
		t.Setenv("MKT_IDEMPOTENCY_TTL", "1h")
		t.Setenv("MKT_HTTP_RATE_LIMIT_ENABLED", "true")
		t.Setenv("MKT_HTTP_RATE_LIMIT_REQUESTS", "30")

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, "test-app", cfg.App.Name)
		assert.Equal(t, "9000", cfg.App.Port)
		assert.Equal(t, "testdb.local", cfg.Database.Host)
		assert.Equal(t, 5433, cfg.Database.Port)
		assert.Equal(t, "testpass", cfg.Database.Password)
		assert.Equal(t, 50, cfg.Database.MaxOpenConns)
		assert.Equal(t, 10, cfg.Database.MaxIdleConns)
		assert.False(t, cfg.Platform.TaxEnabled)
		assert.True(t, cfg.Platform.ShippingEnabled)
		assert.Equal(t, "USD", cfg.Platform.Currency)
		assert.Equal(t, "redis", cfg.Idempotency.Backend)
		assert.Equal(t, time.Hour, cfg.Idempotency.TTL)
		assert.True(t, cfg.HTTP.RateLimitEnabled)
		assert.Equal(t, 30, cfg.HTTP.RateLimitRequests)
	})

	t.Run("validates MaxIdleConns cannot exceed MaxOpenConns", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("MKT_DATABASE_MAX_OPEN_CONNS", "10")
		t.Setenv("MKT_DATABASE_MAX_IDLE_CONNS", "20")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "cannot exceed")
	})

	t.Run("validates MaxIdleConns cannot be negative", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("MKT_DATABASE_MAX_IDLE_CONNS", "-1")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "max_idle_conns cannot be negative")
	})

	t.Run("rejects unknown idempotency backend", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("MKT_IDEMPOTENCY_BACKEND", "memcached")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "idempotency.backend")
	})

	t.Run("rejects pending ttl longer than ttl", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("MKT_IDEMPOTENCY_TTL", "1m")
		t.Setenv("MKT_IDEMPOTENCY_PENDING_TTL", "5m")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "pending_ttl")
	})

	t.Run("requires a secret when tokens are mandatory", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("MKT_JWT_REQUIRED", "true")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "jwt.secret")
	})

	t.Run("rejects sampling ratio out of range", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("MKT_TELEMETRY_SAMPLING_RATIO", "1.5")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "sampling_ratio")
	})
}

func TestLoad_ProductionValidation(t *testing.T) {
	setValidProductionBase := func(t *testing.T) {
		clearEnv(t)
		t.Setenv("MKT_APP_ENV", "production")
		t.Setenv("MKT_JWT_SECRET", "this-is-a-very-secure-jwt-secret-key-32chars")
		t.Setenv("MKT_DATABASE_PASSWORD", "secure-password")
		t.Setenv("MKT_DATABASE_SSLMODE", "require")
		t.Setenv("MKT_IDEMPOTENCY_BACKEND", "redis")
	}

	t.Run("accepts a valid production config", func(t *testing.T) {
		setValidProductionBase(t)

		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, "production", cfg.App.Env)
	})

	tests := []struct {
		name    string
		env     map[string]string
		wantErr string
	}{
		{"requires jwt.secret", map[string]string{"MKT_JWT_SECRET": ""}, "jwt.secret is required in production"},
		{"requires a long jwt.secret", map[string]string{"MKT_JWT_SECRET": "short"}, "at least 32 characters"},
		{"requires database password", map[string]string{"MKT_DATABASE_PASSWORD": ""}, "database.password is required"},
		{"requires ssl", map[string]string{"MKT_DATABASE_SSLMODE": "disable"}, "sslmode cannot be 'disable'"},
		{"requires shared idempotency store", map[string]string{"MKT_IDEMPOTENCY_BACKEND": "memory"}, "must be redis in production"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setValidProductionBase(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
				if v == "" {
					os.Unsetenv(k)
				}
			}

			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestDatabaseConfig_DSN(t *testing.T) {
	t.Run("generates valid DSN", func(t *testing.T) {
		cfg := DatabaseConfig{
			Host:     "localhost",
			Port:     5432,
			User:     "testuser",
			Password: "testpass",
			DBName:   "testdb",
			SSLMode:  "disable",
		}

		dsn := cfg.DSN()
		assert.Contains(t, dsn, "localhost")
		assert.Contains(t, dsn, "5432")
		assert.Contains(t, dsn, "testuser")
		assert.Contains(t, dsn, "testdb")
		assert.Contains(t, dsn, "sslmode=disable")
	})

	t.Run("escapes special characters in password", func(t *testing.T) {
		cfg := DatabaseConfig{
			Host:     "localhost",
			Port:     5432,
			User:     "user",
			Password: "pass@word#123",
			DBName:   "db",
			SSLMode:  "disable",
		}

		dsn := cfg.DSN()
		// URL-encoded password should be in the DSN
		assert.Contains(t, dsn, "pass%40word%23123")
	})

	t.Run("handles empty password", func(t *testing.T) {
		cfg := DatabaseConfig{
			Host:     "localhost",
			Port:     5432,
			User:     "user",
			Password: "",
			DBName:   "db",
			SSLMode:  "disable",
		}

		dsn := cfg.DSN()
		assert.NotEmpty(t, dsn)
	})
}

func TestLoad_ConfigFileUnderEnvironment(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.toml"), []byte(`
[platform]
currency = "USD"
shipping_enabled = false

[http]
cors_allow_origins = ["https://shop.example.pk"]
rate_limit_window = "30s"
`), 0o644))
	t.Chdir(dir)
	t.Setenv("MKT_PLATFORM_CURRENCY", "AED")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "AED", cfg.Platform.Currency)
	assert.False(t, cfg.Platform.ShippingEnabled)
	assert.True(t, cfg.Platform.TaxEnabled)
	assert.Equal(t, []string{"https://shop.example.pk"}, cfg.HTTP.CORSAllowOrigins)
	assert.Equal(t, 30*time.Second, cfg.HTTP.RateLimitWindow)
	assert.Equal(t, 5432, cfg.Database.Port)
}

func TestLoad_ReportsEveryProblem(t *testing.T) {
	clearEnv(t)
	t.Setenv("MKT_IDEMPOTENCY_BACKEND", "memcached")
	t.Setenv("MKT_TELEMETRY_SAMPLING_RATIO", "2")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "idempotency.backend")
	assert.Contains(t, err.Error(), "sampling_ratio")
}
