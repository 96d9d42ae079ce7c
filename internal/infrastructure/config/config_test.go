package config

import (
	"os"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	// Save original env vars and restore after tests
	originalEnv := map[string]string{
		"AR_APP_NAME":                      os.Getenv("AR_APP_NAME"),
		"AR_APP_ENV":                       os.Getenv("AR_APP_ENV"),
		"AR_APP_PORT":                      os.Getenv("AR_APP_PORT"),
		"AR_DATABASE_HOST":                 os.Getenv("AR_DATABASE_HOST"),
		"AR_DATABASE_PORT":                 os.Getenv("AR_DATABASE_PORT"),
		"AR_DATABASE_USER":                 os.Getenv("AR_DATABASE_USER"),
		"AR_DATABASE_PASSWORD":             os.Getenv("AR_DATABASE_PASSWORD"),
		"AR_DATABASE_DBNAME":               os.Getenv("AR_DATABASE_DBNAME"),
		"AR_DATABASE_SSLMODE":              os.Getenv("AR_DATABASE_SSLMODE"),
		"AR_DATABASE_MAX_OPEN_CONNS":       os.Getenv("AR_DATABASE_MAX_OPEN_CONNS"),
		"AR_DATABASE_MAX_IDLE_CONNS":       os.Getenv("AR_DATABASE_MAX_IDLE_CONNS"),
		"AR_SETTLEMENT_APPROVAL_THRESHOLD": os.Getenv("AR_SETTLEMENT_APPROVAL_THRESHOLD"),
		"AR_SETTLEMENT_CONFLICT_RETRIES":   os.Getenv("AR_SETTLEMENT_CONFLICT_RETRIES"),
		"AR_SCHEDULER_ENABLED":             os.Getenv("AR_SCHEDULER_ENABLED"),
		"AR_SCHEDULER_DAILY_CRON_SCHEDULE": os.Getenv("AR_SCHEDULER_DAILY_CRON_SCHEDULE"),
	}

	defer func() {
		for k, v := range originalEnv {
			if v == "" {
				os.Unsetenv(k)
			} else {
				os.Setenv(k, v)
			}
		}
	}()

	clearEnv := func() {
		for k := range originalEnv {
			os.Unsetenv(k)
		}
	}

	t.Run("loads default values when env vars not set", func(t *testing.T) {
		clearEnv()

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, "arledger-backend", cfg.App.Name)
		assert.Equal(t, "development", cfg.App.Env)
		assert.Equal(t, "8080", cfg.App.Port)
		assert.Equal(t, "localhost", cfg.Database.Host)
		assert.Equal(t, 5432, cfg.Database.Port)
		assert.Equal(t, "postgres", cfg.Database.User)
		assert.Equal(t, "", cfg.Database.Password)
		assert.Equal(t, "arledger", cfg.Database.DBName)
		assert.Equal(t, "disable", cfg.Database.SSLMode)
		assert.Equal(t, 25, cfg.Database.MaxOpenConns)
		assert.Equal(t, 5, cfg.Database.MaxIdleConns)
		assert.True(t, cfg.Settlement.ApprovalThreshold.Equal(decimal.NewFromInt(10_000_000)))
		assert.Equal(t, 3, cfg.Settlement.ConflictRetries)
		assert.Equal(t, "0 2 * * *", cfg.Scheduler.DailyCronSchedule)
		assert.Equal(t, 30*time.Minute, cfg.Scheduler.JobTimeout)
	})

	t.Run("loads values from environment variables with AR prefix", func(t *testing.T) {
		clearEnv()
		os.Setenv("AR_APP_NAME", "test-app")
		os.Setenv("AR_APP_ENV", "testing")
		os.Setenv("AR_APP_PORT", "9000")
		os.Setenv("AR_DATABASE_HOST", "testdb.local")
		os.Setenv("AR_DATABASE_PORT", "5433")
		os.Setenv("AR_DATABASE_USER", "testuser")
		os.Setenv("AR_DATABASE_PASSWORD", "testpass")
		os.Setenv("AR_DATABASE_DBNAME", "testdb")
		os.Setenv("AR_DATABASE_SSLMODE", "require")
		os.Setenv("AR_DATABASE_MAX_OPEN_CONNS", "50")
		os.Setenv("AR_DATABASE_MAX_IDLE_CONNS", "10")

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, "test-app", cfg.App.Name)
		assert.Equal(t, "testing", cfg.App.Env)
		assert.Equal(t, "9000", cfg.App.Port)
		assert.Equal(t, "testdb.local", cfg.Database.Host)
		assert.Equal(t, 5433, cfg.Database.Port)
		assert.Equal(t, "testuser", cfg.Database.User)
		assert.Equal(t, "testpass", cfg.Database.Password)
		assert.Equal(t, "testdb", cfg.Database.DBName)
		assert.Equal(t, "require", cfg.Database.SSLMode)
		assert.Equal(t, 50, cfg.Database.MaxOpenConns)
		assert.Equal(t, 10, cfg.Database.MaxIdleConns)
	})

	t.Run("parses approval threshold from string", func(t *testing.T) {
		clearEnv()
		os.Setenv("AR_SETTLEMENT_APPROVAL_THRESHOLD", "2500000.50")

		cfg, err := Load()
		require.NoError(t, err)
		assert.True(t, cfg.Settlement.ApprovalThreshold.Equal(decimal.RequireFromString("2500000.50")))
	})

	t.Run("rejects a malformed approval threshold", func(t *testing.T) {
		clearEnv()
		os.Setenv("AR_SETTLEMENT_APPROVAL_THRESHOLD", "ten million")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "approval_threshold")
	})

	t.Run("rejects a negative approval threshold", func(t *testing.T) {
		clearEnv()
		os.Setenv("AR_SETTLEMENT_APPROVAL_THRESHOLD", "-1000")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "cannot be negative")
	})

	t.Run("validates MaxIdleConns cannot exceed MaxOpenConns", func(t *testing.T) {
		clearEnv()
		os.Setenv("AR_DATABASE_MAX_OPEN_CONNS", "10")
		os.Setenv("AR_DATABASE_MAX_IDLE_CONNS", "20")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "max_idle_conns")
		assert.Contains(t, err.Error(), "cannot exceed")
	})

	t.Run("zero MaxOpenConns uses default", func(t *testing.T) {
		clearEnv()
		os.Setenv("AR_DATABASE_MAX_OPEN_CONNS", "0")

		cfg, err := Load()
		require.NoError(t, err)
		// 0 is treated as "not set", so default (25) is used
		assert.Equal(t, 25, cfg.Database.MaxOpenConns)
	})

	t.Run("validates MaxIdleConns cannot be negative", func(t *testing.T) {
		clearEnv()
		os.Setenv("AR_DATABASE_MAX_IDLE_CONNS", "-1")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "max_idle_conns cannot be negative")
	})
}

func TestLoad_ProductionValidation(t *testing.T) {
	originalEnv := map[string]string{
		"AR_APP_ENV":                 os.Getenv("AR_APP_ENV"),
		"AR_DATABASE_PASSWORD":       os.Getenv("AR_DATABASE_PASSWORD"),
		"AR_DATABASE_SSLMODE":        os.Getenv("AR_DATABASE_SSLMODE"),
		"AR_HTTP_CORS_ALLOW_ORIGINS": os.Getenv("AR_HTTP_CORS_ALLOW_ORIGINS"),
	}

	defer func() {
		for k, v := range originalEnv {
			if v == "" {
				os.Unsetenv(k)
			} else {
				os.Setenv(k, v)
			}
		}
	}()

	clearEnv := func() {
		for k := range originalEnv {
			os.Unsetenv(k)
		}
	}

	t.Run("requires database.password in production", func(t *testing.T) {
		clearEnv()
		os.Setenv("AR_APP_ENV", "production")
		os.Setenv("AR_DATABASE_SSLMODE", "require")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "database.password is required in production")
	})

	t.Run("requires SSL enabled in production", func(t *testing.T) {
		clearEnv()
		os.Setenv("AR_APP_ENV", "production")
		os.Setenv("AR_DATABASE_PASSWORD", "secure-password")
		os.Setenv("AR_DATABASE_SSLMODE", "disable")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "database.sslmode cannot be 'disable' in production")
	})

	t.Run("rejects wildcard CORS origin in production", func(t *testing.T) {
		clearEnv()
		os.Setenv("AR_APP_ENV", "production")
		os.Setenv("AR_DATABASE_PASSWORD", "secure-password")
		os.Setenv("AR_DATABASE_SSLMODE", "require")
		os.Setenv("AR_HTTP_CORS_ALLOW_ORIGINS", "*")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "cors_allow_origins cannot be '*' in production")
	})

	t.Run("passes validation with valid production config", func(t *testing.T) {
		clearEnv()
		os.Setenv("AR_APP_ENV", "production")
		os.Setenv("AR_DATABASE_PASSWORD", "secure-password")
		os.Setenv("AR_DATABASE_SSLMODE", "require")

		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, "production", cfg.App.Env)
	})
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
