package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Environment string `yaml:"environment"`
	Server      struct {
		Port            int           `yaml:"port"`
		ReadTimeout     time.Duration `yaml:"read_timeout"`
		WriteTimeout    time.Duration `yaml:"write_timeout"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	} `yaml:"server"`
	Logging struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
		Output string `yaml:"output"`
	} `yaml:"logging"`
	Metrics struct {
		Enabled bool   `yaml:"enabled"`
		Path    string `yaml:"path"`
	} `yaml:"metrics"`
	Relay struct {
		Mode              string        `yaml:"mode"` // continuous or single_shot
		PollInterval      time.Duration `yaml:"poll_interval"`
		MaxPolls          int           `yaml:"max_polls"` // 0 = unbounded
		RequestTimeout    time.Duration `yaml:"request_timeout"`
		RateLimitBackoff  time.Duration `yaml:"rate_limit_backoff"`
		EnrichmentRetries int           `yaml:"enrichment_retries"`
		EnrichmentBackoff time.Duration `yaml:"enrichment_backoff"`
		AlphaBaseURL      string        `yaml:"alpha_base_url"`
		PollRate          struct {
			Capacity     float64 `yaml:"capacity"`
			RefillPerSec float64 `yaml:"refill_per_sec"`
		} `yaml:"poll_rate"`
	} `yaml:"relay"`
	Cache struct {
		Enabled    bool          `yaml:"enabled"`
		Backend    string        `yaml:"backend"` // memory or redis
		TTL        time.Duration `yaml:"ttl"`
		MaxEntries int           `yaml:"max_entries"`
		Redis      struct {
			Host     string `yaml:"host"`
			Port     int    `yaml:"port"`
			Password string `yaml:"password"`
			DB       int    `yaml:"db"`
			Prefix   string `yaml:"prefix"`
		} `yaml:"redis"`
	} `yaml:"cache"`
}

// Load reads and parses a YAML configuration file.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	c.applyDefaults()

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &c, nil
}

// LoadWithEnv loads config from YAML and overrides with environment variables.
func LoadWithEnv(path string) (*Config, error) {
	c, err := Load(path)
	if err != nil {
		return nil, err
	}

	if v := os.Getenv("PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			c.Server.Port = p
		}
	}
	if v := os.Getenv("RELAY_MODE"); v != "" {
		c.Relay.Mode = v
	}
	if v := os.Getenv("ALPHA_BASE_URL"); v != "" {
		c.Relay.AlphaBaseURL = v
	}
	if v := os.Getenv("CACHE_BACKEND"); v != "" {
		c.Cache.Backend = v
	}
	if v := os.Getenv("REDIS_HOST"); v != "" {
		c.Cache.Redis.Host = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		c.Cache.Redis.Password = v
	}

	return c, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = 10 * time.Second
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "console"
	}
	if c.Logging.Output == "" {
		c.Logging.Output = "stdout"
	}
	if c.Relay.Mode == "" {
		c.Relay.Mode = "continuous"
	}
	if c.Relay.PollInterval == 0 {
		c.Relay.PollInterval = 2 * time.Second
	}
	if c.Relay.RequestTimeout == 0 {
		c.Relay.RequestTimeout = 10 * time.Second
	}
	if c.Relay.RateLimitBackoff == 0 {
		c.Relay.RateLimitBackoff = 15 * time.Second
	}
	if c.Relay.EnrichmentRetries == 0 {
		c.Relay.EnrichmentRetries = 3
	}
	if c.Relay.EnrichmentBackoff == 0 {
		c.Relay.EnrichmentBackoff = 2 * time.Second
	}
	if c.Relay.AlphaBaseURL == "" {
		c.Relay.AlphaBaseURL = "https://api.worldquantbrain.com/alphas"
	}
	if c.Metrics.Path == "" {
		c.Metrics.Path = "/metrics"
	}
	if c.Cache.Backend == "" {
		c.Cache.Backend = "memory"
	}
	if c.Cache.TTL == 0 {
		c.Cache.TTL = time.Hour
	}
	if c.Cache.MaxEntries == 0 {
		c.Cache.MaxEntries = 1000
	}
	if c.Cache.Redis.Host == "" {
		c.Cache.Redis.Host = "localhost"
	}
	if c.Cache.Redis.Port == 0 {
		c.Cache.Redis.Port = 6379
	}
	if c.Cache.Redis.Prefix == "" {
		c.Cache.Redis.Prefix = "wqminer"
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Environment == "" {
		return fmt.Errorf("environment is required")
	}
	if c.Relay.Mode != "continuous" && c.Relay.Mode != "single_shot" {
		return fmt.Errorf("relay.mode must be 'continuous' or 'single_shot', got '%s'", c.Relay.Mode)
	}
	if c.Relay.AlphaBaseURL == "" {
		return fmt.Errorf("relay.alpha_base_url is required")
	}
	if c.Cache.Enabled && c.Cache.Backend != "memory" && c.Cache.Backend != "redis" {
		return fmt.Errorf("cache.backend must be 'memory' or 'redis', got '%s'", c.Cache.Backend)
	}
	return nil
}
