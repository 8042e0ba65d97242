package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

const (
	CacheBackendMemory = "memory"
	CacheBackendSQLite = "sqlite"

	maxFetchTimeout = 15
)

type Config struct {
	ListenAddr string `envconfig:"LISTEN_ADDR" default:":8080"`
	LogLevel   string `envconfig:"LOG_LEVEL" default:"info"`

	// FetchTimeout is in seconds and may not exceed 15.
	FetchTimeout int    `envconfig:"FETCH_TIMEOUT" default:"15"`
	UserAgent    string `envconfig:"USER_AGENT" default:"Mozilla/5.0 (compatible; MCPFeeder/1.0)"`

	CacheBackend string `envconfig:"CACHE_BACKEND" default:"memory"`
	// CacheTTL is in hours.
	CacheTTL int `envconfig:"CACHE_TTL" default:"24"`
	// CachePurgeInterval is in seconds.
	CachePurgeInterval int `envconfig:"CACHE_PURGE_INTERVAL" default:"600"`
}

func LoadConfig() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.FetchTimeout < 1 || c.FetchTimeout > maxFetchTimeout {
		return fmt.Errorf("FETCH_TIMEOUT must be between 1 and %d seconds, got %d", maxFetchTimeout, c.FetchTimeout)
	}
	if c.CacheTTL < 1 {
		return fmt.Errorf("CACHE_TTL must be at least 1 hour, got %d", c.CacheTTL)
	}
	if c.CachePurgeInterval < 1 {
		return fmt.Errorf("CACHE_PURGE_INTERVAL must be at least 1 second, got %d", c.CachePurgeInterval)
	}
	switch c.CacheBackend {
	case CacheBackendMemory, CacheBackendSQLite:
	default:
		return fmt.Errorf("unknown CACHE_BACKEND: %s", c.CacheBackend)
	}
	return nil
}

func (c *Config) GetFetchTimeout() time.Duration {
	return time.Duration(c.FetchTimeout) * time.Second
}

func (c *Config) GetCacheTTL() time.Duration {
	return time.Duration(c.CacheTTL) * time.Hour
}

func (c *Config) GetCachePurgeInterval() time.Duration {
	return time.Duration(c.CachePurgeInterval) * time.Second
}
