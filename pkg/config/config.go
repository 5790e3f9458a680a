// Package config loads the pageload command configuration from PAGELOAD_*
// environment variables and an optional .env file.
package config

import (
	"fmt"
	"net/url"
	"time"

	"github.com/Sternrassler/pageload/pkg/client"
	"github.com/Sternrassler/pageload/pkg/logging"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/redis/go-redis/v9"
)

// Prefix of all environment variables.
const Prefix = "pageload"

// Config represents the application configuration structure
type Config struct {
	BaseURL   string `envconfig:"BASE_URL" required:"true"`
	Endpoint  string `envconfig:"ENDPOINT" default:"/"`
	Query     string `envconfig:"QUERY"`
	UserAgent string `envconfig:"USER_AGENT" default:"pageload/0.1.0"`

	RedisAddr      string `envconfig:"REDIS_ADDR"`
	RedisDB        int    `envconfig:"REDIS_DB" default:"0"`
	CacheNamespace string `envconfig:"CACHE_NAMESPACE" default:"pageload"`
	Revalidate     bool   `envconfig:"REVALIDATE" default:"true"`
	TrackQuota     bool   `envconfig:"TRACK_QUOTA" default:"true"`

	PageSize int `envconfig:"PAGE_SIZE" default:"8"`
	MaxPages int `envconfig:"MAX_PAGES" default:"0"`

	RateLimit       float64       `envconfig:"RATE_LIMIT" default:"10"`
	RateBurst       int           `envconfig:"RATE_BURST" default:"5"`
	RetryAttempts   int           `envconfig:"RETRY_ATTEMPTS" default:"3"`
	RetryBackoff    time.Duration `envconfig:"RETRY_BACKOFF" default:"500ms"`
	RetryMaxBackoff time.Duration `envconfig:"RETRY_MAX_BACKOFF" default:"10s"`
	Timeout         time.Duration `envconfig:"TIMEOUT" default:"30s"`

	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`
	LogPretty bool   `envconfig:"LOG_PRETTY" default:"false"`

	MetricsAddr string `envconfig:"METRICS_ADDR"`
}

// LoadFromEnv loads a new configuration structure using environment variables and an optional .env file
func LoadFromEnv() (*Config, error) {
	// Load a .env file if it exists
	_ = godotenv.Overload()
	return process()
}

// LoadFromFile loads path into the environment before processing it. Unlike
// LoadFromEnv a missing file is an error.
func LoadFromFile(path string) (*Config, error) {
	if err := godotenv.Overload(path); err != nil {
		return nil, fmt.Errorf("load env file: %w", err)
	}
	return process()
}

func process() (*Config, error) {
	config := new(Config)
	if err := envconfig.Process(Prefix, config); err != nil {
		return nil, err
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// Validate checks values envconfig cannot check on its own.
func (c *Config) Validate() error {
	u, err := url.Parse(c.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("invalid base url %q", c.BaseURL)
	}
	if _, err := url.ParseQuery(c.Query); err != nil {
		return fmt.Errorf("invalid query %q: %w", c.Query, err)
	}
	if c.PageSize <= 0 {
		return fmt.Errorf("page size must be > 0 (got %d)", c.PageSize)
	}
	if c.MaxPages < 0 {
		return fmt.Errorf("max pages must be >= 0 (got %d)", c.MaxPages)
	}
	if c.RateLimit < 0 {
		return fmt.Errorf("rate limit must be >= 0 (got %v)", c.RateLimit)
	}
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}

// QueryValues returns the parsed extra query parameters.
func (c *Config) QueryValues() url.Values {
	values, _ := url.ParseQuery(c.Query)
	return values
}

// RedisOptions returns the Redis connection options, or nil when no Redis
// address is configured.
func (c *Config) RedisOptions() *redis.Options {
	if c.RedisAddr == "" {
		return nil
	}
	return &redis.Options{Addr: c.RedisAddr, DB: c.RedisDB}
}

// ClientConfig builds the HTTP client configuration. rdb may be nil.
func (c *Config) ClientConfig(rdb *redis.Client) client.Config {
	cfg := client.DefaultConfig(c.BaseURL, c.UserAgent)
	cfg.Redis = rdb
	cfg.CacheNamespace = c.CacheNamespace
	cfg.Revalidate = c.Revalidate
	cfg.TrackQuota = c.TrackQuota
	cfg.RateLimit = c.RateLimit
	cfg.Burst = c.RateBurst
	cfg.Timeout = c.Timeout
	cfg.Retry = client.RetryConfig{
		MaxAttempts:       c.RetryAttempts,
		InitialBackoff:    c.RetryBackoff,
		MaxBackoff:        c.RetryMaxBackoff,
		BackoffMultiplier: client.DefaultRetryConfig().BackoffMultiplier,
	}
	return cfg
}

// LoggingConfig builds the logger configuration.
func (c *Config) LoggingConfig() logging.Config {
	cfg := logging.DefaultConfig()
	cfg.Level, _ = logging.ParseLevel(c.LogLevel)
	cfg.Pretty = c.LogPretty
	return cfg
}
