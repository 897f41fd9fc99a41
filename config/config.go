// Package config loads client settings from a YAML file and REVIEWHUB_* environment variables.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/krisalay/reviewhub-client/eviction"
	"github.com/krisalay/reviewhub-client/retry"
)

type Config struct {
	APIURL          string        `mapstructure:"api_url"`
	TokenFile       string        `mapstructure:"token_file"`
	RequestTimeout  time.Duration `mapstructure:"request_timeout"`
	RateLimitPerSec float64       `mapstructure:"rate_limit_per_sec"` // 0 = no limit
	RateLimitBurst  int           `mapstructure:"rate_limit_burst"`
	UserAgent       string        `mapstructure:"user_agent"`

	Cache CacheConfig `mapstructure:"cache"`
	Retry RetryConfig `mapstructure:"retry"`
	Log   LogConfig   `mapstructure:"log"`
}

type CacheConfig struct {
	Shards          int           `mapstructure:"shards"`
	Capacity        int           `mapstructure:"capacity"` // 0 = unbounded
	Eviction        string        `mapstructure:"eviction"`
	StaleTime       time.Duration `mapstructure:"stale_time"`
	GCTime          time.Duration `mapstructure:"gc_time"`
	FetchTimeout    time.Duration `mapstructure:"fetch_timeout"`
	RevalidateLimit int64         `mapstructure:"revalidate_limit"`
}

type RetryConfig struct {
	MaxRetries     int           `mapstructure:"max_retries"`
	InitialBackoff time.Duration `mapstructure:"initial_backoff"`
	MaxBackoff     time.Duration `mapstructure:"max_backoff"`
}

type LogConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"` // json or console
	File       string `mapstructure:"file"`   // empty = stderr
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	Compress   bool   `mapstructure:"compress"`
}

func setDefaults(v *viper.Viper) {
	home, _ := os.UserHomeDir()

	v.SetDefault("api_url", "http://localhost:5000/api")
	v.SetDefault("token_file", filepath.Join(home, ".reviewhub", "state.json"))
	v.SetDefault("request_timeout", 30*time.Second)
	v.SetDefault("rate_limit_per_sec", 0)
	v.SetDefault("rate_limit_burst", 0)
	v.SetDefault("user_agent", "reviewhub-client")

	v.SetDefault("cache.shards", 16)
	v.SetDefault("cache.capacity", 0)
	v.SetDefault("cache.eviction", string(eviction.LRU))
	v.SetDefault("cache.stale_time", time.Duration(0))
	v.SetDefault("cache.gc_time", 5*time.Minute)
	v.SetDefault("cache.fetch_timeout", 30*time.Second)
	v.SetDefault("cache.revalidate_limit", 8)

	p := retry.DefaultPolicy()
	v.SetDefault("retry.max_retries", p.MaxRetries)
	v.SetDefault("retry.initial_backoff", p.InitialBackoff)
	v.SetDefault("retry.max_backoff", p.MaxBackoff)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("log.file", "")
	v.SetDefault("log.max_size_mb", 50)
	v.SetDefault("log.max_backups", 3)
	v.SetDefault("log.max_age_days", 28)
	v.SetDefault("log.compress", false)
}

/*
Load reads configuration. With an empty path it looks for reviewhub.yaml
in $HOME/.reviewhub and the working directory, and a missing file is not
an error. Environment variables override the file: REVIEWHUB_API_URL,
REVIEWHUB_CACHE_STALE_TIME, REVIEWHUB_LOG_LEVEL and so on.
*/
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("reviewhub")
		v.SetConfigType("yaml")
		v.AddConfigPath("$HOME/.reviewhub")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("REVIEWHUB")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
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

// Validate checks values that would otherwise fail later and less clearly.
func (c *Config) Validate() error {
	u, err := url.Parse(c.APIURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("config: api_url %q is not an absolute URL", c.APIURL)
	}
	if c.Cache.Shards < 1 {
		return fmt.Errorf("config: cache.shards must be at least 1")
	}
	if c.Cache.Capacity < 0 {
		return fmt.Errorf("config: cache.capacity must not be negative")
	}
	switch eviction.PolicyType(strings.ToUpper(c.Cache.Eviction)) {
	case eviction.LRU, eviction.FIFO:
	default:
		return fmt.Errorf("config: unknown cache.eviction %q", c.Cache.Eviction)
	}
	if c.Cache.StaleTime < 0 || c.Cache.GCTime < 0 || c.Cache.FetchTimeout < 0 {
		return fmt.Errorf("config: cache durations must not be negative")
	}
	if c.Retry.MaxRetries < 0 {
		return fmt.Errorf("config: retry.max_retries must not be negative")
	}
	switch c.Log.Format {
	case "json", "console":
	default:
		return fmt.Errorf("config: log.format must be json or console, got %q", c.Log.Format)
	}
	return nil
}

// EvictionPolicy returns the configured eviction strategy.
func (c *Config) EvictionPolicy() eviction.PolicyType {
	return eviction.PolicyType(strings.ToUpper(c.Cache.Eviction))
}

// RetryPolicy turns the retry section into a policy, keeping the default multiplier and jitter.
func (c *Config) RetryPolicy() retry.Policy {
	p := retry.DefaultPolicy()
	p.MaxRetries = c.Retry.MaxRetries
	p.InitialBackoff = c.Retry.InitialBackoff
	p.MaxBackoff = c.Retry.MaxBackoff
	return p
}
