package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the overall application configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Vendor   VendorConfig   `yaml:"vendor"`
	Watcher  WatcherConfig  `yaml:"watcher"`
	Auth     AuthConfig     `yaml:"auth"`
	Janitor  JanitorConfig  `yaml:"janitor"`
	Log      LogConfig      `yaml:"log"`
}

// ServerConfig holds the HTTP server configuration.
type ServerConfig struct {
	Port            int     `yaml:"port"`
	RateLimitPerSec float64 `yaml:"rate_limit_per_sec"`
	RateLimitBurst  int     `yaml:"rate_limit_burst"`
	CacheTTLSeconds int     `yaml:"cache_ttl_seconds"`
}

// DatabaseConfig holds the database connection configuration. A DSN
// starting with "file:" or ending in ".db" selects SQLite, anything else
// is treated as a Postgres DSN.
type DatabaseConfig struct {
	DSN                    string `yaml:"dsn"`
	MaxOpenConns           int    `yaml:"max_open_conns"`
	MaxIdleConns           int    `yaml:"max_idle_conns"`
	ConnMaxLifetimeMinutes int    `yaml:"conn_max_lifetime_minutes"`
}

// VendorConfig holds the upstream AC API settings.
type VendorConfig struct {
	BaseURL        string        `yaml:"base_url"`
	HTTPProxy      string        `yaml:"http_proxy"`
	TimeoutSeconds int           `yaml:"timeout_seconds"`
	Timeout        time.Duration `yaml:"-"`
	RatePerSec     float64       `yaml:"rate_per_sec"`
	Burst          int           `yaml:"burst"`
}

// WatcherConfig holds the weekly reconciliation watcher settings.
type WatcherConfig struct {
	Enabled         bool          `yaml:"enabled"`
	IntervalSeconds int           `yaml:"interval_seconds"`
	Interval        time.Duration `yaml:"-"`
	Timezone        string        `yaml:"timezone"`
}

// AuthConfig holds the bearer-token verification settings.
type AuthConfig struct {
	JWTSecret string `yaml:"jwt_secret"`
}

// JanitorConfig holds the retention sweeper settings.
type JanitorConfig struct {
	Enabled       bool   `yaml:"enabled"`
	CronSpec      string `yaml:"cron_spec"`
	RetentionDays int    `yaml:"retention_days"`
}

// LogConfig holds the logging settings.
type LogConfig struct {
	Level string `yaml:"level"`
}

// Load reads the configuration from the given path and applies defaults.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var cfg Config
	decoder := yaml.NewDecoder(f)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, err
	}
	cfg.ApplyDefaults()
	return &cfg, nil
}

// ApplyDefaults fills unset fields with working values.
func (cfg *Config) ApplyDefaults() {
	if cfg.Server.Port <= 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.RateLimitPerSec <= 0 {
		cfg.Server.RateLimitPerSec = 10
	}
	if cfg.Server.RateLimitBurst <= 0 {
		cfg.Server.RateLimitBurst = 5
	}
	if cfg.Server.CacheTTLSeconds <= 0 {
		cfg.Server.CacheTTLSeconds = 15
	}

	if cfg.Vendor.BaseURL == "" {
		cfg.Vendor.BaseURL = "https://w5.ab.ust.hk/njggt/api/app"
	}
	if cfg.Vendor.TimeoutSeconds <= 0 {
		cfg.Vendor.TimeoutSeconds = 30
	}
	cfg.Vendor.Timeout = time.Duration(cfg.Vendor.TimeoutSeconds) * time.Second
	if cfg.Vendor.RatePerSec <= 0 {
		cfg.Vendor.RatePerSec = 5
	}
	if cfg.Vendor.Burst <= 0 {
		cfg.Vendor.Burst = 5
	}

	if cfg.Watcher.IntervalSeconds <= 0 {
		cfg.Watcher.IntervalSeconds = 15
	}
	cfg.Watcher.Interval = time.Duration(cfg.Watcher.IntervalSeconds) * time.Second
	if cfg.Watcher.Timezone == "" {
		cfg.Watcher.Timezone = "Local"
	}

	if cfg.Janitor.CronSpec == "" {
		cfg.Janitor.CronSpec = "0 3 * * *"
	}
	if cfg.Janitor.RetentionDays <= 0 {
		cfg.Janitor.RetentionDays = 30
	}

	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
}
