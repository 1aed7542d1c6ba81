// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package config loads the YAML configuration of a wire server.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	"github.com/luxfi/wire"
)

// Config represents the server configuration
type Config struct {
	Transport    string        `yaml:"transport"`
	Addr         string        `yaml:"addr"`
	MaxFrameSize int           `yaml:"max_frame_size"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	Logging      Logging       `yaml:"logging"`
	Metrics      Metrics       `yaml:"metrics"`
}

// Logging contains logging configuration
type Logging struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

// Metrics contains the Prometheus endpoint configuration. The endpoint is
// only started for transports that do not already serve /metrics.
type Metrics struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

// DefaultConfig returns a default configuration
func DefaultConfig() *Config {
	return &Config{
		Transport:    wire.DefaultTransport,
		Addr:         "127.0.0.1:9000",
		MaxFrameSize: wire.DefaultMaxFrameSize,
		WriteTimeout: wire.DefaultWriteTimeout,
		Logging: Logging{
			Level: "info",
		},
		Metrics: Metrics{
			Enabled: true,
			Addr:    "127.0.0.1:9090",
		},
	}
}

// LoadConfig loads configuration from the specified path. Keys missing
// from the file keep their DefaultConfig values.
func LoadConfig(configPath string) (*Config, error) {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file does not exist: %s", configPath)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// SaveConfig saves the configuration to the specified path
func SaveConfig(config *Config, configPath string) error {
	configDir := filepath.Dir(configPath)
	if err := os.MkdirAll(configDir, 0750); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate checks that the configuration can start a server.
func (c *Config) Validate() error {
	var errs []error
	if !wire.HasTransport(c.Transport) {
		errs = append(errs, fmt.Errorf("transport %q is not available (have %v)", c.Transport, wire.AvailableTransports()))
	}
	if c.Addr == "" {
		errs = append(errs, errors.New("addr is required"))
	}
	if c.MaxFrameSize <= 0 {
		errs = append(errs, fmt.Errorf("max_frame_size must be positive, got %d", c.MaxFrameSize))
	}
	if c.WriteTimeout <= 0 {
		errs = append(errs, fmt.Errorf("write_timeout must be positive, got %s", c.WriteTimeout))
	}
	if _, err := c.ZapLevel(); err != nil {
		errs = append(errs, err)
	}
	if c.Metrics.Enabled && c.Metrics.Addr == "" {
		errs = append(errs, errors.New("metrics.addr is required when metrics are enabled"))
	}
	return errors.Join(errs...)
}

// ZapLevel parses the logging level.
func (c *Config) ZapLevel() (zapcore.Level, error) {
	level, err := zapcore.ParseLevel(c.Logging.Level)
	if err != nil {
		return level, fmt.Errorf("logging.level: %w", err)
	}
	return level, nil
}

// NewLogger builds the logger described by the logging section.
func (c *Config) NewLogger() (*zap.Logger, error) {
	level, err := c.ZapLevel()
	if err != nil {
		return nil, err
	}
	zc := zap.NewProductionConfig()
	if c.Logging.Development {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	return zc.Build()
}

// ServerOptions returns the wire server options for this configuration.
func (c *Config) ServerOptions() []wire.ServerOption {
	return []wire.ServerOption{
		wire.WithServerTransport(c.Transport),
		wire.WithServerMaxFrameSize(c.MaxFrameSize),
		wire.WithWriteTimeout(c.WriteTimeout),
	}
}
