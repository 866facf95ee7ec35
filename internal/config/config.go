// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Semvault Contributors

package config

import (
	"errors"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	semerr "github.com/semvault-dev/semvault/pkg/errors"
	"github.com/spf13/viper"
)

// Config is the top-level Semvault configuration.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Embedding  EmbeddingConfig  `mapstructure:"embedding"`
	Storage    StorageConfig    `mapstructure:"storage"`
	Clustering ClusteringConfig `mapstructure:"clustering"`
	DataDir    string           `mapstructure:"data_dir"`
}

// ServerConfig controls how the HTTP API listens for connections.
type ServerConfig struct {
	Listen      string   `mapstructure:"listen"`
	CORSOrigins []string `mapstructure:"cors_origins"`
}

// EmbeddingConfig selects and tunes the embedding provider.
type EmbeddingConfig struct {
	Provider   string        `mapstructure:"provider"`
	APIKey     string        `mapstructure:"api_key"`
	Endpoint   string        `mapstructure:"endpoint"`
	Model      string        `mapstructure:"model"`
	Dimensions int           `mapstructure:"dimensions"`
	Timeout    time.Duration `mapstructure:"timeout"`
}

// StorageConfig selects the snapshot backend.
type StorageConfig struct {
	Backend string `mapstructure:"backend"`
}

// ClusteringConfig tunes the clustering engine.
type ClusteringConfig struct {
	MaxIterations int `mapstructure:"max_iterations"`
}

// SetDefaults installs the built-in defaults on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("server.listen", "127.0.0.1:8791")
	v.SetDefault("server.cors_origins", []string{})
	v.SetDefault("embedding.provider", "local")
	v.SetDefault("embedding.dimensions", 0) // 0 means the provider's default
	v.SetDefault("embedding.timeout", "10s")
	v.SetDefault("storage.backend", "sqlite")
	v.SetDefault("clustering.max_iterations", 100)
	v.SetDefault("data_dir", defaultDataDir())
}

// SetupEnv binds SEMVAULT_-prefixed environment variables to v.
func SetupEnv(v *viper.Viper) {
	v.SetEnvPrefix("SEMVAULT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}

// FromViper unmarshals and validates the configuration held by v.
func FromViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, semerr.Errorf(semerr.CodeConfigValidateInvalidValue, "unmarshalling config: %w", err)
	}

	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, semerr.Errorf(semerr.CodeConfigValidateInvalidValue, "validating config: %w", errors.Join(errs...))
	}

	return &cfg, nil
}

// Load reads configuration from the given path (or defaults) with
// environment variable overrides (prefix SEMVAULT_).
func Load(path string) (*Config, error) {
	v := viper.New()

	SetDefaults(v)
	SetupEnv(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, semerr.Errorf(semerr.CodeConfigLoadReadFailure, "reading config %s: %w", path, err)
		}
	}

	return FromViper(v)
}

// Validate checks the configuration for logical errors.
// It returns a slice of all validation errors found, collecting all issues
// rather than stopping at the first one.
func (c *Config) Validate() []error {
	var errs []error

	errs = append(errs, c.validateServer()...)
	errs = append(errs, c.validateEmbedding()...)
	errs = append(errs, c.validateStorage()...)
	errs = append(errs, c.validateClustering()...)

	return errs
}

func (c *Config) validateServer() []error {
	var errs []error

	if c.Server.Listen == "" {
		errs = append(errs, semerr.Errorf(semerr.CodeConfigValidateInvalidValue, "config: server.listen must not be empty"))
		return errs
	}

	host, portStr, err := net.SplitHostPort(c.Server.Listen)
	if err != nil {
		errs = append(errs, semerr.Errorf(semerr.CodeConfigValidateInvalidValue,
			"config: server.listen must be a valid host:port address, got %q: %w",
			c.Server.Listen, err,
		))
		return errs
	}
	_ = host // host can be empty (e.g., ":8080"), which is valid

	port, err := strconv.Atoi(portStr)
	if err != nil {
		errs = append(errs, semerr.Errorf(semerr.CodeConfigValidateInvalidValue,
			"config: server.listen port must be a number, got %q", portStr))
	} else if port < 1 || port > 65535 {
		errs = append(errs, semerr.Errorf(semerr.CodeConfigValidateInvalidValue,
			"config: server.listen port must be between 1 and 65535, got %d", port))
	}

	return errs
}

func (c *Config) validateEmbedding() []error {
	var errs []error

	validProviders := map[string]bool{"local": true, "openai": true, "google": true}
	if !validProviders[c.Embedding.Provider] {
		errs = append(errs, semerr.Errorf(semerr.CodeConfigValidateInvalidValue,
			"config: embedding.provider must be one of [local, openai, google], got %q",
			c.Embedding.Provider,
		))
	}

	if c.Embedding.Dimensions < 0 {
		errs = append(errs, semerr.Errorf(semerr.CodeConfigValidateInvalidValue,
			"config: embedding.dimensions must not be negative, got %d",
			c.Embedding.Dimensions,
		))
	}

	if c.Embedding.Timeout <= 0 {
		errs = append(errs, semerr.Errorf(semerr.CodeConfigValidateInvalidValue,
			"config: embedding.timeout must be greater than 0, got %s",
			c.Embedding.Timeout,
		))
	}

	return errs
}

func (c *Config) validateStorage() []error {
	var errs []error

	validBackends := map[string]bool{"memory": true, "sqlite": true}
	if !validBackends[c.Storage.Backend] {
		errs = append(errs, semerr.Errorf(semerr.CodeConfigValidateInvalidValue,
			"config: storage.backend must be one of [memory, sqlite], got %q",
			c.Storage.Backend,
		))
	}

	return errs
}

func (c *Config) validateClustering() []error {
	var errs []error

	if c.Clustering.MaxIterations <= 0 {
		errs = append(errs, semerr.Errorf(semerr.CodeConfigValidateInvalidValue,
			"config: clustering.max_iterations must be greater than 0, got %d",
			c.Clustering.MaxIterations,
		))
	}

	return errs
}

// defaultDataDir resolves ~/.local/share/semvault, falling back to a
// relative directory when the home directory is unknown.
func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "semvault-data"
	}
	return filepath.Join(home, ".local", "share", "semvault")
}
