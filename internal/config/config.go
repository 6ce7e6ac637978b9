// Package config provides configuration management using viper.
// It supports loading from YAML files and environment variable overrides.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"player-session/internal/model"
)

// Supported database drivers.
const (
	DriverPostgres = "postgres"
	DriverMySQL    = "mysql"
	DriverMemory   = "memory"
)

// Config holds all application configuration.
type Config struct {
	Database DatabaseConfig `mapstructure:"database"`
	Economy  EconomyConfig  `mapstructure:"economy"`
	Session  SessionConfig  `mapstructure:"session"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
	Log      LogConfig      `mapstructure:"log"`
}

// DatabaseConfig holds durable storage connection configuration.
type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver"`
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Name            string        `mapstructure:"name"`
	PoolSize        int           `mapstructure:"pool_size"`
	ConnectTimeout  time.Duration `mapstructure:"connect_timeout"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
	MaxConnIdleTime time.Duration `mapstructure:"max_conn_idle_time"`
}

// EconomyConfig holds balance settings.
type EconomyConfig struct {
	// StartingBalance is a decimal string such as "100.00".
	StartingBalance string `mapstructure:"starting_balance"`
	Symbol          string `mapstructure:"symbol"`
}

// SessionConfig holds session lifecycle settings.
type SessionConfig struct {
	LockTimeout        time.Duration `mapstructure:"lock_timeout"`
	WriteTimeout       time.Duration `mapstructure:"write_timeout"`
	CheckpointInterval time.Duration `mapstructure:"checkpoint_interval"`
}

// MetricsConfig holds the prometheus endpoint settings.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Addr    string `mapstructure:"addr"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Pretty bool   `mapstructure:"pretty"`
}

// DSN returns the connection string for the configured driver.
func (d *DatabaseConfig) DSN() string {
	switch d.Driver {
	case DriverMySQL:
		return fmt.Sprintf(
			"%s:%s@tcp(%s:%d)/%s?parseTime=true&clientFoundRows=true",
			d.User, d.Password, d.Host, d.Port, d.Name,
		)
	default:
		return fmt.Sprintf(
			"postgres://%s:%s@%s:%d/%s?sslmode=disable",
			d.User, d.Password, d.Host, d.Port, d.Name,
		)
	}
}

// ParsedStartingBalance parses the configured starting balance.
func (e *EconomyConfig) ParsedStartingBalance() (model.Amount, error) {
	amount, err := model.ParseAmount(e.StartingBalance)
	if err != nil {
		return 0, fmt.Errorf("economy.starting_balance: %w", err)
	}
	if amount < 0 {
		return 0, fmt.Errorf("economy.starting_balance: %w: must not be negative", model.ErrInvalidAmount)
	}
	return amount, nil
}

// Load reads configuration from file and environment variables.
// It looks for config.yaml in the config directory.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configPath)
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	// e.g. DATABASE_HOST, ECONOMY_STARTING_BALANCE
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found is OK - we can use env vars
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks values that cannot be defaulted.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case DriverPostgres, DriverMySQL, DriverMemory:
	default:
		return fmt.Errorf("unsupported database driver %q", c.Database.Driver)
	}
	if _, err := c.Economy.ParsedStartingBalance(); err != nil {
		return err
	}
	if c.Session.LockTimeout <= 0 {
		return fmt.Errorf("session.lock_timeout must be positive")
	}
	// A disconnect may queue behind one checkpoint write for the same player.
	if c.Session.WriteTimeout > 0 && c.Session.LockTimeout <= c.Session.WriteTimeout {
		return fmt.Errorf("session.lock_timeout (%s) must exceed session.write_timeout (%s)",
			c.Session.LockTimeout, c.Session.WriteTimeout)
	}
	return nil
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	v.SetDefault("database.driver", DriverPostgres)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "sessions")
	v.SetDefault("database.name", "sessions")
	v.SetDefault("database.pool_size", 20)
	v.SetDefault("database.connect_timeout", "10s")
	v.SetDefault("database.max_conn_lifetime", "1h")
	v.SetDefault("database.max_conn_idle_time", "30m")

	v.SetDefault("economy.starting_balance", "0")
	v.SetDefault("economy.symbol", "$")

	v.SetDefault("session.lock_timeout", "15s")
	v.SetDefault("session.write_timeout", "10s")
	v.SetDefault("session.checkpoint_interval", "5m")

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.addr", ":9102")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", true)
}
