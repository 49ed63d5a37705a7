package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"

	apprma "github.com/rma/plugin/internal/application/rma"
	"github.com/rma/plugin/internal/domain/rma"
)

// Config holds all plugin configuration
type Config struct {
	App      AppConfig
	Database DatabaseConfig
	JWT      JWTConfig
	Log      LogConfig
	HTTP     HTTPConfig
	RMA      RMAConfig
}

// AppConfig holds application-specific settings
type AppConfig struct {
	Name string
	Env  string
	Port string
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

// JWTConfig holds the settings for validating host-issued tokens
type JWTConfig struct {
	Secret string
	Issuer string
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	Output string // stdout, stderr, or file path
}

// HTTPConfig holds HTTP server configuration
type HTTPConfig struct {
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	MaxHeaderBytes int
	MaxBodySize    int64
	TrustedProxies []string
}

// RMAConfig holds the completion processing toggles and the outcome-to-status
// mapping overrides. A status code of 0 disables the mapping for that outcome.
type RMAConfig struct {
	AutoStatusChange   bool
	CustomerReassign   bool
	TrackingNotes      bool
	ConsumeRepairParts bool
	StatusReturn       int
	StatusRepair       int
	StatusReplace      int
	StatusRefund       int
	StatusReject       int
}

// Load loads configuration from TOML file and environment variables
// Priority (highest to lowest):
// 1. Environment variables with RMA_ prefix (e.g., RMA_DATABASE_PASSWORD)
// 2. config.toml
// 3. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("/app")

	// Booleans that default to true need explicit viper defaults,
	// applyDefaults cannot tell "false" from "unset"
	v.SetDefault("rma.auto_status_change", true)
	v.SetDefault("rma.customer_reassign", false)
	v.SetDefault("rma.tracking_notes", true)
	v.SetDefault("rma.consume_repair_parts", true)
	v.SetDefault("rma.status_return", int(rma.StockStatusOK))
	v.SetDefault("rma.status_repair", int(rma.StockStatusOK))
	v.SetDefault("rma.status_replace", int(rma.StockStatusAttention))
	v.SetDefault("rma.status_refund", int(rma.StockStatusAttention))
	v.SetDefault("rma.status_reject", int(rma.StockStatusRejected))

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found is OK, we'll use defaults and env vars
	}

	v.SetEnvPrefix("RMA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{
		App: AppConfig{
			Name: v.GetString("app.name"),
			Env:  v.GetString("app.env"),
			Port: v.GetString("app.port"),
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
		JWT: JWTConfig{
			Secret: v.GetString("jwt.secret"),
			Issuer: v.GetString("jwt.issuer"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
		HTTP: HTTPConfig{
			ReadTimeout:    v.GetDuration("http.read_timeout"),
			WriteTimeout:   v.GetDuration("http.write_timeout"),
			IdleTimeout:    v.GetDuration("http.idle_timeout"),
			MaxHeaderBytes: v.GetInt("http.max_header_bytes"),
			MaxBodySize:    v.GetInt64("http.max_body_size"),
			TrustedProxies: v.GetStringSlice("http.trusted_proxies"),
		},
		RMA: RMAConfig{
			AutoStatusChange:   v.GetBool("rma.auto_status_change"),
			CustomerReassign:   v.GetBool("rma.customer_reassign"),
			TrackingNotes:      v.GetBool("rma.tracking_notes"),
			ConsumeRepairParts: v.GetBool("rma.consume_repair_parts"),
			StatusReturn:       v.GetInt("rma.status_return"),
			StatusRepair:       v.GetInt("rma.status_repair"),
			StatusReplace:      v.GetInt("rma.status_replace"),
			StatusRefund:       v.GetInt("rma.status_refund"),
			StatusReject:       v.GetInt("rma.status_reject"),
		},
	}

	applyDefaults(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// applyDefaults sets default values for any empty config fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "rma-plugin"
	}
	if cfg.App.Env == "" {
		cfg.App.Env = "development"
	}
	if cfg.App.Port == "" {
		cfg.App.Port = "8090"
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
		cfg.Database.DBName = "rma"
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
	if cfg.JWT.Issuer == "" {
		cfg.JWT.Issuer = "rma-plugin"
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
	if cfg.HTTP.ReadTimeout == 0 {
		cfg.HTTP.ReadTimeout = 15 * time.Second
	}
	if cfg.HTTP.WriteTimeout == 0 {
		cfg.HTTP.WriteTimeout = 15 * time.Second
	}
	if cfg.HTTP.IdleTimeout == 0 {
		cfg.HTTP.IdleTimeout = 60 * time.Second
	}
	if cfg.HTTP.MaxHeaderBytes == 0 {
		cfg.HTTP.MaxHeaderBytes = 1 << 20 // 1MB
	}
	if cfg.HTTP.MaxBodySize == 0 {
		cfg.HTTP.MaxBodySize = 1 << 20 // 1MB
	}
}

// validate performs validation on the configuration
func (c *Config) validate() error {
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

	for key, code := range map[string]int{
		"rma.status_return":  c.RMA.StatusReturn,
		"rma.status_repair":  c.RMA.StatusRepair,
		"rma.status_replace": c.RMA.StatusReplace,
		"rma.status_refund":  c.RMA.StatusRefund,
		"rma.status_reject":  c.RMA.StatusReject,
	} {
		if code != 0 && !rma.StockStatus(code).IsValid() {
			return fmt.Errorf("%s: unknown stock status code %d", key, code)
		}
	}

	if c.App.Env == "production" {
		if c.JWT.Secret == "" {
			return fmt.Errorf("jwt.secret is required in production")
		}
		if len(c.JWT.Secret) < 32 {
			return fmt.Errorf("jwt.secret must be at least 32 characters in production")
		}
		if c.Database.Password == "" {
			return fmt.Errorf("database.password is required in production")
		}
		if c.Database.SSLMode == "disable" {
			return fmt.Errorf("database.sslmode cannot be 'disable' in production")
		}
	}

	return nil
}

// Settings builds the completion processing settings from the RMA section
func (c *Config) Settings() apprma.Settings {
	mapping := rma.StatusMapping{}
	for outcome, code := range map[rma.Outcome]int{
		rma.OutcomeReturn:  c.RMA.StatusReturn,
		rma.OutcomeRepair:  c.RMA.StatusRepair,
		rma.OutcomeReplace: c.RMA.StatusReplace,
		rma.OutcomeRefund:  c.RMA.StatusRefund,
		rma.OutcomeReject:  c.RMA.StatusReject,
	} {
		if code != 0 {
			mapping[outcome] = rma.StockStatus(code)
		}
	}

	return apprma.Settings{
		AutoStatusChange:   c.RMA.AutoStatusChange,
		CustomerReassign:   c.RMA.CustomerReassign,
		TrackingNotes:      c.RMA.TrackingNotes,
		ConsumeRepairParts: c.RMA.ConsumeRepairParts,
		Mapping:            mapping,
	}
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
