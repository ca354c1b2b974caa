package config

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	App        AppConfig
	Database   DatabaseConfig
	Log        LogConfig
	Accounting AccountingConfig
}

// AppConfig holds application-specific settings
type AppConfig struct {
	Name string
	Env  string
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	DBName          string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime int // in minutes
	ConnMaxIdleTime int // in minutes
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	Output string // stdout, stderr, or file path
}

// AccountingConfig holds the chart of accounts, sequencing and locale
// settings used to post invoices into the ledger export
type AccountingConfig struct {
	JournalCode        string
	JournalLabel       string
	CustomerAccount    string
	CustomerLabel      string
	SalesAccount       string
	SalesLabel         string
	VATAccounts        map[string]string // VAT rate text -> account number
	VATFallbackAccount string
	VATFallbackLabel   string
	FiscalYearMonth    int    // first month of the fiscal year, 1-12
	FiscalYearDay      int    // first day of that month
	Locale             string // BCP 47 tag for money display, e.g. "fr-FR"
}

// Load loads configuration from TOML file and environment variables
// Priority (highest to lowest):
// 1. Environment variables with FACTURE_ prefix (e.g., FACTURE_DATABASE_PASSWORD)
// 2. config.toml
// 3. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()

	// Set config file settings
	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("/app")

	// Read config file
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found is OK, we'll use defaults and env vars
	}

	// Enable environment variable override
	v.SetEnvPrefix("FACTURE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Build config struct
	cfg := &Config{
		App: AppConfig{
			Name: v.GetString("app.name"),
			Env:  v.GetString("app.env"),
		},
		Database: DatabaseConfig{
			Host:            v.GetString("database.host"),
			Port:            v.GetInt("database.port"),
			User:            v.GetString("database.user"),
			Password:        v.GetString("database.password"),
			DBName:          v.GetString("database.dbname"),
			SSLMode:         v.GetString("database.sslmode"),
			MaxOpenConns:    v.GetInt("database.max_open_conns"),
			MaxIdleConns:    v.GetInt("database.max_idle_conns"),
			ConnMaxLifetime: v.GetInt("database.conn_max_lifetime"),
			ConnMaxIdleTime: v.GetInt("database.conn_max_idle_time"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
		Accounting: AccountingConfig{
			JournalCode:        v.GetString("accounting.journal_code"),
			JournalLabel:       v.GetString("accounting.journal_label"),
			CustomerAccount:    v.GetString("accounting.customer_account"),
			CustomerLabel:      v.GetString("accounting.customer_label"),
			SalesAccount:       v.GetString("accounting.sales_account"),
			SalesLabel:         v.GetString("accounting.sales_label"),
			VATAccounts:        v.GetStringMapString("accounting.vat_accounts"),
			VATFallbackAccount: v.GetString("accounting.vat_fallback_account"),
			VATFallbackLabel:   v.GetString("accounting.vat_fallback_label"),
			FiscalYearMonth:    v.GetInt("accounting.fiscal_year_month"),
			FiscalYearDay:      v.GetInt("accounting.fiscal_year_day"),
			Locale:             v.GetString("accounting.locale"),
		},
	}

	// Apply defaults for empty values
	applyDefaults(cfg)

	// Validate configuration
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// applyDefaults sets default values for any empty config fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "facture-backend"
	}
	if cfg.App.Env == "" {
		cfg.App.Env = "development"
	}
	if cfg.Database.Host == "" {
		cfg.Database.Host = "localhost"
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = 5432
	}
	if cfg.Database.User == "" {
		cfg.Database.User = "postgres"
	}
	if cfg.Database.DBName == "" {
		cfg.Database.DBName = "facture"
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 25
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = 5
	}
	if cfg.Database.ConnMaxLifetime == 0 {
		cfg.Database.ConnMaxLifetime = 60
	}
	if cfg.Database.ConnMaxIdleTime == 0 {
		cfg.Database.ConnMaxIdleTime = 30
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "console"
	}
	if cfg.Log.Output == "" {
		cfg.Log.Output = "stdout"
	}
	if cfg.Accounting.JournalCode == "" {
		cfg.Accounting.JournalCode = "VE"
	}
	if cfg.Accounting.JournalLabel == "" {
		cfg.Accounting.JournalLabel = "Journal des ventes"
	}
	if cfg.Accounting.CustomerAccount == "" {
		cfg.Accounting.CustomerAccount = "411000"
	}
	if cfg.Accounting.CustomerLabel == "" {
		cfg.Accounting.CustomerLabel = "Clients"
	}
	if cfg.Accounting.SalesAccount == "" {
		cfg.Accounting.SalesAccount = "706000"
	}
	if cfg.Accounting.SalesLabel == "" {
		cfg.Accounting.SalesLabel = "Prestations de services"
	}
	if len(cfg.Accounting.VATAccounts) == 0 {
		cfg.Accounting.VATAccounts = map[string]string{
			"20":  "445712",
			"10":  "445713",
			"5.5": "445714",
		}
	}
	if cfg.Accounting.VATFallbackAccount == "" {
		cfg.Accounting.VATFallbackAccount = "445710"
	}
	if cfg.Accounting.VATFallbackLabel == "" {
		cfg.Accounting.VATFallbackLabel = "TVA collectée"
	}
	if cfg.Accounting.FiscalYearMonth == 0 {
		cfg.Accounting.FiscalYearMonth = 1
	}
	if cfg.Accounting.FiscalYearDay == 0 {
		cfg.Accounting.FiscalYearDay = 1
	}
	if cfg.Accounting.Locale == "" {
		cfg.Accounting.Locale = "fr-FR"
	}
}

// validate performs validation on the configuration
func (c *Config) validate() error {
	// Validate connection pool settings
	if c.Database.MaxOpenConns <= 0 {
		return fmt.Errorf("database.max_open_conns must be positive")
	}
	if c.Database.MaxIdleConns < 0 {
		return fmt.Errorf("database.max_idle_conns cannot be negative")
	}
	if c.Database.MaxIdleConns > c.Database.MaxOpenConns {
		return fmt.Errorf("database.max_idle_conns (%d) cannot exceed database.max_open_conns (%d)",
			c.Database.MaxIdleConns, c.Database.MaxOpenConns)
	}

	if c.Accounting.FiscalYearMonth < 1 || c.Accounting.FiscalYearMonth > 12 {
		return fmt.Errorf("accounting.fiscal_year_month must be between 1 and 12, got %d", c.Accounting.FiscalYearMonth)
	}
	// Day 29+ would not exist in every fiscal year, so the boundary is
	// capped at 28 regardless of the month.
	if c.Accounting.FiscalYearDay < 1 || c.Accounting.FiscalYearDay > 28 {
		return fmt.Errorf("accounting.fiscal_year_day must be between 1 and 28, got %d", c.Accounting.FiscalYearDay)
	}

	// Production-specific validations
	if c.App.Env == "production" {
		if c.Database.Password == "" {
			return fmt.Errorf("database.password is required in production")
		}
		if c.Database.SSLMode == "disable" {
			return fmt.Errorf("database.sslmode cannot be 'disable' in production")
		}
	}

	return nil
}

// DSN returns the database connection string with properly escaped values
func (d *DatabaseConfig) DSN() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(d.User, d.Password),
		Host:   fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:   d.DBName,
	}
	q := u.Query()
	q.Set("sslmode", d.SSLMode)
	u.RawQuery = q.Encode()
	return u.String()
}
