package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	App      AppConfig
	HTTP     HTTPConfig
	Database DatabaseConfig
	Log      LogConfig
	JWT      JWTConfig
	Safety   SafetyConfig
	Pipeline PipelineConfig
	Clients  []ClientConfig
}

// AppConfig holds application-specific settings
type AppConfig struct {
	Name string
	Env  string
	Port string
}

// HTTPConfig holds HTTP server settings
type HTTPConfig struct {
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	MaxBodyBytes    int64
}

// DatabaseConfig holds database connection settings.
// Driver selects postgres for shared deployments or sqlite for
// single-office installations where client data must stay on premises.
type DatabaseConfig struct {
	Driver          string // postgres, sqlite
	Host            string
	Port            int
	User            string
	Password        string
	DBName          string
	SSLMode         string
	SQLitePath      string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime int // in minutes
	ConnMaxIdleTime int // in minutes
}

// DSN builds the postgres connection string
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode)
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	Output string // stdout, stderr, or file path
}

// JWTConfig holds approver-token settings
type JWTConfig struct {
	Secret     string
	Issuer     string
	Expiration time.Duration
}

// SafetyConfig holds the overseer's numeric domain limits
type SafetyConfig struct {
	CashCeiling float64 // Single cash transaction ceiling, currency-agnostic
	MaxKmRate   float64 // Maximum tax-recognized per-kilometer rate
}

// PipelineConfig holds booking pipeline settings
type PipelineConfig struct {
	// AutoApproveEnabled must be switched on explicitly; the default keeps
	// every proposal behind human approval
	AutoApproveEnabled   bool
	AutoApproveThreshold float64
}

// ClientConfig is one client registry entry
type ClientConfig struct {
	ID           string `mapstructure:"id"`
	Name         string `mapstructure:"name"`
	ERPTarget    string `mapstructure:"erp_target"`
	ExportFormat string `mapstructure:"export_format"`
}

// Load reads configuration from config.toml and KNJ_-prefixed environment
// variables, falling back to defaults
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("/app")

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found is OK, we'll use defaults and env vars
	}

	v.SetEnvPrefix("KNJ")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{
		App: AppConfig{
			Name: v.GetString("app.name"),
			Env:  v.GetString("app.env"),
			Port: v.GetString("app.port"),
		},
		HTTP: HTTPConfig{
			ReadTimeout:     v.GetDuration("http.read_timeout"),
			WriteTimeout:    v.GetDuration("http.write_timeout"),
			ShutdownTimeout: v.GetDuration("http.shutdown_timeout"),
			MaxBodyBytes:    v.GetInt64("http.max_body_bytes"),
		},
		Database: DatabaseConfig{
			Driver:          v.GetString("database.driver"),
			Host:            v.GetString("database.host"),
			Port:            v.GetInt("database.port"),
			User:            v.GetString("database.user"),
			Password:        v.GetString("database.password"),
			DBName:          v.GetString("database.dbname"),
			SSLMode:         v.GetString("database.sslmode"),
			SQLitePath:      v.GetString("database.sqlite_path"),
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
		JWT: JWTConfig{
			Secret:     v.GetString("jwt.secret"),
			Issuer:     v.GetString("jwt.issuer"),
			Expiration: v.GetDuration("jwt.expiration"),
		},
		Safety: SafetyConfig{
			CashCeiling: v.GetFloat64("safety.cash_ceiling"),
			MaxKmRate:   v.GetFloat64("safety.max_km_rate"),
		},
		Pipeline: PipelineConfig{
			AutoApproveEnabled:   v.GetBool("pipeline.auto_approve_enabled"),
			AutoApproveThreshold: v.GetFloat64("pipeline.auto_approve_threshold"),
		},
	}

	if err := v.UnmarshalKey("clients", &cfg.Clients); err != nil {
		return nil, fmt.Errorf("error parsing client registry entries: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// setDefaults registers the default value for every key
func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "knjigovodja")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "8080")

	v.SetDefault("http.read_timeout", "15s")
	v.SetDefault("http.write_timeout", "15s")
	v.SetDefault("http.shutdown_timeout", "10s")
	v.SetDefault("http.max_body_bytes", 1<<20)

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "knjigovodja")
	v.SetDefault("database.password", "")
	v.SetDefault("database.dbname", "knjigovodja")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.sqlite_path", "knjigovodja.db")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", 30)
	v.SetDefault("database.conn_max_idle_time", 10)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("log.output", "stdout")

	v.SetDefault("jwt.secret", "")
	v.SetDefault("jwt.issuer", "knjigovodja")
	v.SetDefault("jwt.expiration", "12h")

	v.SetDefault("safety.cash_ceiling", 10000.0)
	v.SetDefault("safety.max_km_rate", 0.30)

	v.SetDefault("pipeline.auto_approve_enabled", false)
	v.SetDefault("pipeline.auto_approve_threshold", 0.95)
}

// Validate checks the configuration for inconsistencies
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("unsupported database driver %q", c.Database.Driver)
	}
	if c.Database.Driver == "sqlite" && c.Database.SQLitePath == "" {
		return fmt.Errorf("database.sqlite_path is required for the sqlite driver")
	}
	if c.Safety.CashCeiling <= 0 {
		return fmt.Errorf("safety.cash_ceiling must be positive")
	}
	if c.Safety.MaxKmRate <= 0 {
		return fmt.Errorf("safety.max_km_rate must be positive")
	}
	if c.Pipeline.AutoApproveThreshold < 0 || c.Pipeline.AutoApproveThreshold > 1 {
		return fmt.Errorf("pipeline.auto_approve_threshold must be within [0,1]")
	}
	if c.Pipeline.AutoApproveEnabled && c.App.Env == "production" && c.JWT.Secret == "" {
		return fmt.Errorf("jwt.secret is required in production when auto-approval is enabled")
	}
	return nil
}

// IsProduction reports whether the app runs in production mode
func (c *Config) IsProduction() bool {
	return c.App.Env == "production"
}
