package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	// Save original env vars and restore after tests
	originalEnv := map[string]string{
		"FACTURE_APP_NAME":                     os.Getenv("FACTURE_APP_NAME"),
		"FACTURE_APP_ENV":                      os.Getenv("FACTURE_APP_ENV"),
		"FACTURE_DATABASE_HOST":                os.Getenv("FACTURE_DATABASE_HOST"),
		"FACTURE_DATABASE_PORT":                os.Getenv("FACTURE_DATABASE_PORT"),
		"FACTURE_DATABASE_USER":                os.Getenv("FACTURE_DATABASE_USER"),
		"FACTURE_DATABASE_PASSWORD":            os.Getenv("FACTURE_DATABASE_PASSWORD"),
		"FACTURE_DATABASE_SSLMODE":             os.Getenv("FACTURE_DATABASE_SSLMODE"),
		"FACTURE_LOG_LEVEL":                    os.Getenv("FACTURE_LOG_LEVEL"),
		"FACTURE_ACCOUNTING_JOURNAL_CODE":      os.Getenv("FACTURE_ACCOUNTING_JOURNAL_CODE"),
		"FACTURE_ACCOUNTING_FISCAL_YEAR_MONTH": os.Getenv("FACTURE_ACCOUNTING_FISCAL_YEAR_MONTH"),
		"FACTURE_ACCOUNTING_FISCAL_YEAR_DAY":   os.Getenv("FACTURE_ACCOUNTING_FISCAL_YEAR_DAY"),
		"FACTURE_ACCOUNTING_LOCALE":            os.Getenv("FACTURE_ACCOUNTING_LOCALE"),
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

		assert.Equal(t, "facture-backend", cfg.App.Name)
		assert.Equal(t, "development", cfg.App.Env)
		assert.Equal(t, "localhost", cfg.Database.Host)
		assert.Equal(t, 5432, cfg.Database.Port)
		assert.Equal(t, "postgres", cfg.Database.User)
		assert.Equal(t, "facture", cfg.Database.DBName)
		assert.Equal(t, "disable", cfg.Database.SSLMode)
		assert.Equal(t, "info", cfg.Log.Level)
		assert.Equal(t, "console", cfg.Log.Format)

		assert.Equal(t, "VE", cfg.Accounting.JournalCode)
		assert.Equal(t, "411000", cfg.Accounting.CustomerAccount)
		assert.Equal(t, "706000", cfg.Accounting.SalesAccount)
		assert.Equal(t, "445712", cfg.Accounting.VATAccounts["20"])
		assert.Equal(t, "445710", cfg.Accounting.VATFallbackAccount)
		assert.Equal(t, 1, cfg.Accounting.FiscalYearMonth)
		assert.Equal(t, 1, cfg.Accounting.FiscalYearDay)
		assert.Equal(t, "fr-FR", cfg.Accounting.Locale)
	})

	t.Run("environment variables override defaults", func(t *testing.T) {
		clearEnv()
		os.Setenv("FACTURE_APP_NAME", "facture-test")
		os.Setenv("FACTURE_DATABASE_HOST", "db.internal")
		os.Setenv("FACTURE_DATABASE_PORT", "5433")
		os.Setenv("FACTURE_LOG_LEVEL", "debug")
		os.Setenv("FACTURE_ACCOUNTING_JOURNAL_CODE", "VT")
		os.Setenv("FACTURE_ACCOUNTING_FISCAL_YEAR_MONTH", "4")
		os.Setenv("FACTURE_ACCOUNTING_LOCALE", "en-US")

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, "facture-test", cfg.App.Name)
		assert.Equal(t, "db.internal", cfg.Database.Host)
		assert.Equal(t, 5433, cfg.Database.Port)
		assert.Equal(t, "debug", cfg.Log.Level)
		assert.Equal(t, "VT", cfg.Accounting.JournalCode)
		assert.Equal(t, 4, cfg.Accounting.FiscalYearMonth)
		assert.Equal(t, "en-US", cfg.Accounting.Locale)
	})

	t.Run("rejects fiscal year boundary outside range", func(t *testing.T) {
		clearEnv()
		os.Setenv("FACTURE_ACCOUNTING_FISCAL_YEAR_MONTH", "13")

		_, err := Load()
		assert.ErrorContains(t, err, "fiscal_year_month")

		os.Setenv("FACTURE_ACCOUNTING_FISCAL_YEAR_MONTH", "4")
		os.Setenv("FACTURE_ACCOUNTING_FISCAL_YEAR_DAY", "31")

		_, err = Load()
		assert.ErrorContains(t, err, "fiscal_year_day")
	})
}

func TestLoad_ProductionValidation(t *testing.T) {
	envKeys := []string{
		"FACTURE_APP_ENV",
		"FACTURE_DATABASE_PASSWORD",
		"FACTURE_DATABASE_SSLMODE",
	}
	original := map[string]string{}
	for _, k := range envKeys {
		original[k] = os.Getenv(k)
	}
	defer func() {
		for k, v := range original {
			if v == "" {
				os.Unsetenv(k)
			} else {
				os.Setenv(k, v)
			}
		}
	}()

	t.Run("production requires database password", func(t *testing.T) {
		os.Setenv("FACTURE_APP_ENV", "production")
		os.Unsetenv("FACTURE_DATABASE_PASSWORD")
		os.Setenv("FACTURE_DATABASE_SSLMODE", "require")

		_, err := Load()
		assert.ErrorContains(t, err, "database.password is required in production")
	})

	t.Run("production rejects sslmode disable", func(t *testing.T) {
		os.Setenv("FACTURE_APP_ENV", "production")
		os.Setenv("FACTURE_DATABASE_PASSWORD", "secret")
		os.Setenv("FACTURE_DATABASE_SSLMODE", "disable")

		_, err := Load()
		assert.ErrorContains(t, err, "sslmode")
	})

	t.Run("production passes with password and ssl", func(t *testing.T) {
		os.Setenv("FACTURE_APP_ENV", "production")
		os.Setenv("FACTURE_DATABASE_PASSWORD", "secret")
		os.Setenv("FACTURE_DATABASE_SSLMODE", "require")

		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, "production", cfg.App.Env)
	})
}

func TestDatabaseConfig_DSN(t *testing.T) {
	d := DatabaseConfig{
		Host:     "localhost",
		Port:     5432,
		User:     "postgres",
		Password: "p@ss/word",
		DBName:   "facture",
		SSLMode:  "disable",
	}

	dsn := d.DSN()
	assert.Contains(t, dsn, "postgres://")
	assert.Contains(t, dsn, "localhost:5432")
	assert.Contains(t, dsn, "/facture")
	assert.Contains(t, dsn, "sslmode=disable")
	// Special characters in the password must be escaped
	assert.NotContains(t, dsn, "p@ss/word")
}
