// Package config loads the gateway process configuration from YAML.
package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/dmitrymomot/gatecache/pkg/duration"
	"github.com/dmitrymomot/gatecache/pkg/heap"
	"github.com/dmitrymomot/gatecache/pkg/logger"
	"github.com/dmitrymomot/gatecache/pkg/redis"
)

var (
	ErrRead    = errors.New("config: failed to read file")
	ErrDecode  = errors.New("config: failed to decode")
	ErrInvalid = errors.New("config: invalid configuration")
)

// Config is the gateway process configuration.
type Config struct {
	Server  Server        `yaml:"server"`
	Logger  logger.Config `yaml:"logger"`
	Cache   Cache         `yaml:"cache"`
	Redis   *redis.Config `yaml:"redis"`
	Gateway heap.Document `yaml:"gateway"`
}

// Server configures the HTTP listener.
type Server struct {
	Address         string            `yaml:"address"`
	ShutdownTimeout duration.Duration `yaml:"shutdown_timeout"`
}

// Cache holds settings shared by every cache of the gateway.
type Cache struct {
	// DefaultTimeout applies to lookups whose object sets none.
	// Default: 30 seconds.
	DefaultTimeout *duration.Duration `yaml:"default_timeout"`
}

// Load reads the file at path. ${VAR} references are expanded from the
// environment before decoding.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Join(ErrRead, err)
	}
	return Parse(data)
}

// Parse decodes and validates a configuration document.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), &cfg); err != nil {
		return nil, errors.Join(ErrDecode, err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.Gateway.Handler.Type == "" {
		return fmt.Errorf("%w: gateway.handler.type is required", ErrInvalid)
	}
	if c.Redis != nil && c.Redis.URL == "" {
		return fmt.Errorf("%w: redis.url is required when redis is configured", ErrInvalid)
	}
	return nil
}
