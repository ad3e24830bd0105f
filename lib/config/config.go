// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"

	"github.com/bureau-foundation/strata/lib/engine"
	"github.com/bureau-foundation/strata/lib/router"
	"github.com/bureau-foundation/strata/lib/sqlitepool"
)

// Environment represents the deployment environment.
type Environment string

const (
	// Development is for local development machines.
	Development Environment = "development"
	// Staging is for pre-production testing.
	Staging Environment = "staging"
	// Production is for production deployments.
	Production Environment = "production"
)

// Config is the master configuration for Strata.
type Config struct {
	// Environment identifies the deployment type (development, staging, production).
	Environment Environment `yaml:"environment"`

	// Paths configures directory locations.
	Paths PathsConfig `yaml:"paths"`

	// Server configures strata-server.
	Server ServerConfig `yaml:"server"`

	// Client configures the strata CLI.
	Client ClientConfig `yaml:"client"`

	// EnvironmentOverrides contains per-environment overrides.
	// These are applied after the base config is loaded.
	Development *ConfigOverrides `yaml:"development,omitempty"`
	Staging     *ConfigOverrides `yaml:"staging,omitempty"`
	Production  *ConfigOverrides `yaml:"production,omitempty"`
}

// ConfigOverrides contains fields that can be overridden per environment.
type ConfigOverrides struct {
	Paths  *PathsConfig  `yaml:"paths,omitempty"`
	Server *ServerConfig `yaml:"server,omitempty"`
	Client *ClientConfig `yaml:"client,omitempty"`
}

// PathsConfig configures directory locations.
type PathsConfig struct {
	// Root is the base directory for Strata data.
	Root string `yaml:"root"`
}

// ServerConfig configures strata-server.
type ServerConfig struct {
	// Listen is the endpoint to serve: unix:///path or tcp://host:port.
	// Default: unix://${STRATA_ROOT}/strata.sock
	Listen string `yaml:"listen"`

	// Storage is the SQLite database file, or ":memory:".
	// Default: ${STRATA_ROOT}/data.db
	Storage string `yaml:"storage"`

	// PoolSize is the number of SQLite connections. Zero selects
	// max(NumCPU, 4).
	PoolSize int `yaml:"pool_size"`

	// Compression is the record body compression: none, lz4, or zstd.
	// Default: lz4 (development), zstd (production)
	Compression string `yaml:"compression"`

	// CompressMinSize is the body size in bytes below which records
	// are stored uncompressed. Zero selects the engine default.
	CompressMinSize int `yaml:"compress_min_size"`

	// LogLevel is debug, info, warn, or error.
	// Default: info
	LogLevel string `yaml:"log_level"`
}

// ClientConfig configures the strata CLI.
type ClientConfig struct {
	// Endpoint is the database to connect to, in any form accepted by
	// strata.Connect. Default: the server's listen endpoint.
	Endpoint string `yaml:"endpoint"`

	// Namespace and Database are selected with "use" after connecting
	// when set.
	Namespace string `yaml:"namespace"`
	Database  string `yaml:"database"`

	// Timeout bounds each CLI command.
	// Default: 30s
	Timeout string `yaml:"timeout"`
}

// Default returns the default configuration.
// These defaults are used as a base before loading the config file.
// They exist primarily to ensure all fields have sensible zero-values,
// not as a fallback - the config file is required.
func Default() *Config {
	homeDir, _ := os.UserHomeDir()
	defaultRoot := filepath.Join(homeDir, ".local", "share", "strata")

	return &Config{
		Environment: Development,
		Paths: PathsConfig{
			Root: defaultRoot,
		},
		Server: ServerConfig{
			Listen:      "unix://${STRATA_ROOT}/strata.sock",
			Storage:     "${STRATA_ROOT}/data.db",
			Compression: "lz4",
			LogLevel:    "info",
		},
		Client: ClientConfig{
			Timeout: "30s",
		},
	}
}

// Load loads configuration from STRATA_CONFIG environment variable.
//
// This is the only way to load configuration without an explicit path.
// There are no fallbacks or defaults - if STRATA_CONFIG is not set, this fails.
func Load() (*Config, error) {
	configPath := os.Getenv("STRATA_CONFIG")
	if configPath == "" {
		return nil, fmt.Errorf("STRATA_CONFIG environment variable not set; " +
			"set it to the path of your strata.yaml config file, or use --config flag")
	}

	return LoadFile(configPath)
}

// LoadFile loads configuration from a specific file path.
//
// The config file is the single source of truth. Environment variables do not
// override config values. The only expansion performed is ${HOME} and
// similar variables for portability.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	if err := cfg.loadFile(path); err != nil {
		return nil, err
	}

	// Apply environment-specific overrides (development/staging/production sections in the file).
	cfg.applyEnvironmentOverrides()

	// Expand ${HOME} and similar variables in paths for portability.
	cfg.expandVariables()

	return cfg, nil
}

// loadFile loads a single configuration file, merging into the current
// config. JSON is a subset of YAML, so stripped JSONC goes through the
// same decoder.
func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".jsonc":
		data = jsonc.ToJSON(data)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}
	return nil
}

// applyEnvironmentOverrides applies the environment-specific overrides.
func (c *Config) applyEnvironmentOverrides() {
	var overrides *ConfigOverrides

	switch c.Environment {
	case Development:
		overrides = c.Development
	case Staging:
		overrides = c.Staging
	case Production:
		overrides = c.Production
		// Production defaults: favor storage size over write latency.
		if overrides == nil {
			overrides = &ConfigOverrides{
				Server: &ServerConfig{
					Compression: "zstd",
				},
			}
		}
	}

	if overrides == nil {
		return
	}

	if overrides.Paths != nil && overrides.Paths.Root != "" {
		c.Paths.Root = overrides.Paths.Root
	}

	if overrides.Server != nil {
		if overrides.Server.Listen != "" {
			c.Server.Listen = overrides.Server.Listen
		}
		if overrides.Server.Storage != "" {
			c.Server.Storage = overrides.Server.Storage
		}
		if overrides.Server.PoolSize != 0 {
			c.Server.PoolSize = overrides.Server.PoolSize
		}
		if overrides.Server.Compression != "" {
			c.Server.Compression = overrides.Server.Compression
		}
		if overrides.Server.CompressMinSize != 0 {
			c.Server.CompressMinSize = overrides.Server.CompressMinSize
		}
		if overrides.Server.LogLevel != "" {
			c.Server.LogLevel = overrides.Server.LogLevel
		}
	}

	if overrides.Client != nil {
		if overrides.Client.Endpoint != "" {
			c.Client.Endpoint = overrides.Client.Endpoint
		}
		if overrides.Client.Namespace != "" {
			c.Client.Namespace = overrides.Client.Namespace
		}
		if overrides.Client.Database != "" {
			c.Client.Database = overrides.Client.Database
		}
		if overrides.Client.Timeout != "" {
			c.Client.Timeout = overrides.Client.Timeout
		}
	}
}

// expandVariables expands ${VAR} and ${VAR:-default} patterns in paths.
func (c *Config) expandVariables() {
	vars := map[string]string{
		"STRATA_ROOT": c.Paths.Root,
		"HOME":        os.Getenv("HOME"),
	}

	c.Paths.Root = expandVars(c.Paths.Root, vars)
	vars["STRATA_ROOT"] = c.Paths.Root // Update for dependent paths.

	c.Server.Listen = expandVars(c.Server.Listen, vars)
	c.Server.Storage = expandVars(c.Server.Storage, vars)
	c.Client.Endpoint = expandVars(c.Client.Endpoint, vars)
	if c.Client.Endpoint == "" {
		c.Client.Endpoint = c.Server.Listen
	}
}

// expandVars expands ${VAR} and ${VAR:-default} patterns.
var varPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

func expandVars(s string, vars map[string]string) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := varPattern.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}

		name := parts[1]
		defaultValue := ""
		if len(parts) >= 3 {
			defaultValue = parts[2]
		}

		// Check provided vars first, then environment.
		if value, ok := vars[name]; ok && value != "" {
			return value
		}
		if value := os.Getenv(name); value != "" {
			return value
		}
		return defaultValue
	})
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []error

	if c.Environment != Development && c.Environment != Staging && c.Environment != Production {
		errs = append(errs, fmt.Errorf("invalid environment: %s", c.Environment))
	}

	if c.Paths.Root == "" {
		errs = append(errs, fmt.Errorf("paths.root is required"))
	}

	if endpoint, err := router.ParseEndpoint(c.Server.Listen); err != nil {
		errs = append(errs, fmt.Errorf("server.listen: %w", err))
	} else if !endpoint.Remote() {
		errs = append(errs, fmt.Errorf("server.listen must be a unix:// or tcp:// endpoint, got %s", endpoint))
	}

	if c.Server.Storage == "" {
		errs = append(errs, fmt.Errorf("server.storage is required"))
	}
	if c.Server.PoolSize < 0 {
		errs = append(errs, fmt.Errorf("server.pool_size must not be negative"))
	}
	if _, err := engine.ParseCompression(c.Server.Compression); err != nil {
		errs = append(errs, fmt.Errorf("server.compression: %w", err))
	}
	if c.Server.CompressMinSize < 0 {
		errs = append(errs, fmt.Errorf("server.compress_min_size must not be negative"))
	}
	if _, err := parseLevel(c.Server.LogLevel); err != nil {
		errs = append(errs, fmt.Errorf("server.log_level: %w", err))
	}

	if _, err := router.ParseEndpoint(c.Client.Endpoint); err != nil {
		errs = append(errs, fmt.Errorf("client.endpoint: %w", err))
	}
	if timeout, err := time.ParseDuration(c.Client.Timeout); err != nil {
		errs = append(errs, fmt.Errorf("client.timeout: %w", err))
	} else if timeout <= 0 {
		errs = append(errs, fmt.Errorf("client.timeout must be positive"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// EngineConfig returns the engine configuration for strata-server.
// Call Validate first; an invalid compression name falls back to LZ4.
func (c *Config) EngineConfig(logger *slog.Logger) engine.Config {
	compression, err := engine.ParseCompression(c.Server.Compression)
	if err != nil {
		compression = engine.CompressionLZ4
	}
	return engine.Config{
		Path:            c.Server.Storage,
		PoolSize:        c.Server.PoolSize,
		Compression:     compression,
		CompressMinSize: c.Server.CompressMinSize,
		Logger:          logger,
	}
}

// LogLevel returns the server's log level. Call Validate first; an
// invalid name yields Info.
func (c *Config) LogLevel() slog.Level {
	level, err := parseLevel(c.Server.LogLevel)
	if err != nil {
		return slog.LevelInfo
	}
	return level
}

// ClientTimeout returns the parsed client timeout. Call Validate
// first; an invalid value yields 30s.
func (c *Config) ClientTimeout() time.Duration {
	timeout, err := time.ParseDuration(c.Client.Timeout)
	if err != nil || timeout <= 0 {
		return 30 * time.Second
	}
	return timeout
}

// EnsurePaths creates the root directory and the directories holding
// the storage file and unix socket.
func (c *Config) EnsurePaths() error {
	paths := []string{c.Paths.Root}
	if c.Server.Storage != sqlitepool.MemoryPath {
		paths = append(paths, filepath.Dir(c.Server.Storage))
	}
	if endpoint, err := router.ParseEndpoint(c.Server.Listen); err == nil && endpoint.Scheme == router.SchemeUnix {
		paths = append(paths, filepath.Dir(endpoint.Address))
	}

	for _, path := range paths {
		if path == "" {
			continue
		}
		if err := os.MkdirAll(path, 0755); err != nil {
			return fmt.Errorf("creating %s: %w", path, err)
		}
	}

	return nil
}

func parseLevel(name string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(name)); err != nil {
		return 0, fmt.Errorf("unknown log level %q (want debug, info, warn or error)", name)
	}
	return level, nil
}
