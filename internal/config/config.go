// Package config loads and validates service configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Scraper  ScraperConfig  `mapstructure:"scraper"`
	Schedule ScheduleConfig `mapstructure:"schedule"`
	DB       DBConfig       `mapstructure:"db"`
	Snapshot SnapshotConfig `mapstructure:"snapshot"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// ServerConfig controls HTTP server behavior.
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// ScraperConfig governs fetch pacing and browser behavior for every source.
type ScraperConfig struct {
	DelaySeconds   int    `mapstructure:"delay_seconds"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
	City           string `mapstructure:"city"`
	UserAgent      string `mapstructure:"user_agent"`
	Headless       bool   `mapstructure:"headless"`
}

// ScheduleConfig controls the recurring scrape cycle.
type ScheduleConfig struct {
	IntervalMinutes int `mapstructure:"interval_minutes"`
}

// DBConfig controls access to the relational database.
type DBConfig struct {
	DSN      string `mapstructure:"dsn"`
	MaxConns int32  `mapstructure:"max_conns"`
	MinConns int32  `mapstructure:"min_conns"`
}

// SnapshotConfig selects where rendered listing pages are archived.
type SnapshotConfig struct {
	Provider  string `mapstructure:"provider"`
	BaseDir   string `mapstructure:"base_dir"`
	GCSBucket string `mapstructure:"gcs_bucket"`
	Prefix    string `mapstructure:"prefix"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("EVENTS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("scraper.delay_seconds", 3)
	v.SetDefault("scraper.timeout_seconds", 30)
	v.SetDefault("scraper.city", "sydney")
	v.SetDefault("scraper.user_agent", "SydneyEventsBot/1.0 (+https://github.com/oharris/sydney-events-crawler)")
	v.SetDefault("scraper.headless", true)
	v.SetDefault("schedule.interval_minutes", 60)
	v.SetDefault("db.max_conns", 4)
	v.SetDefault("db.min_conns", 1)
	v.SetDefault("snapshot.provider", "none")
	v.SetDefault("snapshot.prefix", "pages")
	v.SetDefault("logging.development", true)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.Scraper.DelaySeconds < 0 {
		return fmt.Errorf("scraper.delay_seconds must be >= 0")
	}
	if c.Scraper.TimeoutSeconds <= 0 {
		return fmt.Errorf("scraper.timeout_seconds must be > 0")
	}
	if c.Scraper.City == "" {
		return fmt.Errorf("scraper.city must be set")
	}
	if c.Schedule.IntervalMinutes <= 0 {
		return fmt.Errorf("schedule.interval_minutes must be > 0")
	}
	switch c.Snapshot.Provider {
	case "none", "local", "gcs":
	default:
		return fmt.Errorf("unknown snapshot provider: %s", c.Snapshot.Provider)
	}
	if c.Snapshot.Provider == "local" && c.Snapshot.BaseDir == "" {
		return fmt.Errorf("snapshot.base_dir must be set when provider is local")
	}
	if c.Snapshot.Provider == "gcs" && c.Snapshot.GCSBucket == "" {
		return fmt.Errorf("snapshot.gcs_bucket must be set when provider is gcs")
	}
	return nil
}

// Delay converts the configured inter-request delay into a duration.
func (c Config) Delay() time.Duration {
	return time.Duration(c.Scraper.DelaySeconds) * time.Second
}

// NavigationTimeout converts the configured page timeout into a duration.
func (c Config) NavigationTimeout() time.Duration {
	return time.Duration(c.Scraper.TimeoutSeconds) * time.Second
}

// Interval converts the schedule interval into a duration.
func (c Config) Interval() time.Duration {
	return time.Duration(c.Schedule.IntervalMinutes) * time.Minute
}
