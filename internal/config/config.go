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
	Auth     AuthConfig     `mapstructure:"auth"`
	DB       DBConfig       `mapstructure:"db"`
	Scrape   ScrapeConfig   `mapstructure:"scrape"`
	Backfill BackfillConfig `mapstructure:"backfill"`
	Catalog  CatalogConfig  `mapstructure:"catalog"`
	YouTube  YouTubeConfig  `mapstructure:"youtube"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// ServerConfig controls HTTP server behavior.
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// AuthConfig defines API authentication toggles for the maintenance surface.
type AuthConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	APIKey  string `mapstructure:"api_key"`
}

// DBConfig controls access to the relational database.
type DBConfig struct {
	DSN                 string `mapstructure:"dsn"`
	MaxConns            int    `mapstructure:"max_conns"`
	MinConns            int    `mapstructure:"min_conns"`
	MaxConnLifetimeMins int    `mapstructure:"max_conn_lifetime_minutes"`
}

// ScrapeConfig governs the chart page fetcher and its politeness delays.
type ScrapeConfig struct {
	BaseURL         string `mapstructure:"base_url"`
	UserAgent       string `mapstructure:"user_agent"`
	RespectRobots   bool   `mapstructure:"respect_robots"`
	TimeoutSeconds  int    `mapstructure:"timeout_seconds"`
	PolitenessMinMs int    `mapstructure:"politeness_min_ms"`
	PolitenessMaxMs int    `mapstructure:"politeness_max_ms"`
}

// BackfillConfig sets the defaults applied when a maintenance request omits
// tuning parameters.
type BackfillConfig struct {
	DefaultWeeks     int `mapstructure:"default_weeks"`
	AlbumLimit       int `mapstructure:"album_limit"`
	AlbumConcurrency int `mapstructure:"album_concurrency"`
	VideoLimit       int `mapstructure:"video_limit"`
	VideoConcurrency int `mapstructure:"video_concurrency"`
	VideoMaxResults  int `mapstructure:"video_max_results"`
}

// CatalogConfig holds client credentials for the external music catalog.
type CatalogConfig struct {
	ClientID     string `mapstructure:"client_id"`
	ClientSecret string `mapstructure:"client_secret"`
}

// YouTubeConfig holds the video search API key.
type YouTubeConfig struct {
	APIKey string `mapstructure:"api_key"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("CHARTPULSE")
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
	v.SetDefault("db.max_conns", 8)
	v.SetDefault("db.min_conns", 1)
	v.SetDefault("db.max_conn_lifetime_minutes", 30)
	v.SetDefault("scrape.base_url", "https://www.billboard.com")
	v.SetDefault("scrape.user_agent", "chartpulse-bot/0.1")
	v.SetDefault("scrape.respect_robots", true)
	v.SetDefault("scrape.timeout_seconds", 20)
	v.SetDefault("scrape.politeness_min_ms", 2000)
	v.SetDefault("scrape.politeness_max_ms", 5000)
	v.SetDefault("backfill.default_weeks", 4)
	v.SetDefault("backfill.album_limit", 25)
	v.SetDefault("backfill.album_concurrency", 2)
	v.SetDefault("backfill.video_limit", 25)
	v.SetDefault("backfill.video_concurrency", 2)
	v.SetDefault("backfill.video_max_results", 3)
	v.SetDefault("logging.development", true)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.DB.DSN == "" {
		return fmt.Errorf("db.dsn must be set")
	}
	if c.Scrape.TimeoutSeconds <= 0 {
		return fmt.Errorf("scrape.timeout_seconds must be > 0")
	}
	if c.Scrape.PolitenessMinMs < 0 || c.Scrape.PolitenessMaxMs < c.Scrape.PolitenessMinMs {
		return fmt.Errorf("scrape politeness bounds must satisfy 0 <= min <= max")
	}
	if c.Backfill.DefaultWeeks <= 0 {
		return fmt.Errorf("backfill.default_weeks must be > 0")
	}
	if c.Backfill.AlbumConcurrency <= 0 || c.Backfill.VideoConcurrency <= 0 {
		return fmt.Errorf("backfill concurrency values must be > 0")
	}
	if c.Auth.Enabled && c.Auth.APIKey == "" {
		return fmt.Errorf("auth.api_key must be set when auth is enabled")
	}
	return nil
}

// ScrapeTimeout converts the configured fetch timeout into a duration.
func (c Config) ScrapeTimeout() time.Duration {
	return time.Duration(c.Scrape.TimeoutSeconds) * time.Second
}

// PolitenessBounds converts the politeness window into durations.
func (c Config) PolitenessBounds() (min, max time.Duration) {
	return time.Duration(c.Scrape.PolitenessMinMs) * time.Millisecond,
		time.Duration(c.Scrape.PolitenessMaxMs) * time.Millisecond
}

// MaxConnLifetime converts the pool lifetime knob into a duration.
func (c DBConfig) MaxConnLifetime() time.Duration {
	return time.Duration(c.MaxConnLifetimeMins) * time.Minute
}
