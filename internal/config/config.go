package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/aixkai/naiveproxy/internal/cache"
)

// Config represents the application configuration
type Config struct {
	Server    ServerConfig     `yaml:"server"`
	Cache     CacheConfig      `yaml:"cache"`
	Backend   BackendConfig    `yaml:"backend"`
	Overrides []OverrideConfig `yaml:"overrides"`
}

// ServerConfig contains server-related configuration
type ServerConfig struct {
	Listen string `yaml:"listen"`
	// Admin is the address of the administrative API. Empty disables it.
	Admin string `yaml:"admin"`
}

// CacheConfig contains cache-related configuration
type CacheConfig struct {
	Dir string `yaml:"dir"`
	// Watch reloads snapshot files into the store when they change.
	Watch bool `yaml:"watch"`
}

// BackendConfig toggles optional backend modes
type BackendConfig struct {
	DynamicResponses bool `yaml:"dynamic_responses"`
	WebTransport     bool `yaml:"webtransport"`
}

// OverrideConfig tweaks a single cached entry after loading: a
// simulated delay, a special behavior, or both
type OverrideConfig struct {
	Host     string `yaml:"host"`
	Path     string `yaml:"path"`
	Delay    string `yaml:"delay"`
	Behavior string `yaml:"behavior"`
}

// Load loads configuration from a YAML file
func Load(path string) (*Config, error) {
	var config Config

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("parsing config YAML: %w", err)
	}

	// Set defaults
	if config.Server.Listen == "" {
		config.Server.Listen = ":8080"
	}

	return &config, nil
}

// GetDelay parses the override's delay duration. A missing delay is
// zero.
func (o *OverrideConfig) GetDelay() (time.Duration, error) {
	if o.Delay == "" {
		return 0, nil
	}
	return time.ParseDuration(o.Delay)
}

// GetBehavior parses the override's behavior name. A missing behavior
// is normal delivery.
func (o *OverrideConfig) GetBehavior() (cache.Behavior, error) {
	if o.Behavior == "" {
		return cache.BehaviorNormal, nil
	}
	return cache.ParseBehavior(o.Behavior)
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Cache.Dir == "" {
		return fmt.Errorf("cache dir is required")
	}

	for i, override := range c.Overrides {
		if override.Host == "" || override.Path == "" {
			return fmt.Errorf("override %d: host and path are required", i)
		}
		if _, err := override.GetDelay(); err != nil {
			return fmt.Errorf("override %d: invalid delay: %w", i, err)
		}
		if _, err := override.GetBehavior(); err != nil {
			return fmt.Errorf("override %d: %w", i, err)
		}
	}

	return nil
}
