// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/bureau-foundation/strata/lib/engine"
)

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Environment != Development {
		t.Errorf("expected environment=development, got %s", cfg.Environment)
	}
	if cfg.Server.Compression != "lz4" {
		t.Errorf("expected compression=lz4, got %s", cfg.Server.Compression)
	}
	if cfg.Client.Timeout != "30s" {
		t.Errorf("expected timeout=30s, got %s", cfg.Client.Timeout)
	}
}

func TestLoad_RequiresStrataConfig(t *testing.T) {
	t.Setenv("STRATA_CONFIG", "")

	_, err := Load()
	if err == nil {
		t.Fatal("expected error when STRATA_CONFIG not set, got nil")
	}
	if !strings.HasPrefix(err.Error(), "STRATA_CONFIG environment variable not set") {
		t.Errorf("unexpected error message: %q", err.Error())
	}
}

func TestLoad_WithStrataConfig(t *testing.T) {
	path := writeConfig(t, "strata.yaml", `
paths:
  root: /srv/strata
server:
  listen: tcp://127.0.0.1:7480
`)
	t.Setenv("STRATA_CONFIG", path)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Server.Listen != "tcp://127.0.0.1:7480" {
		t.Errorf("expected listen from file, got %s", cfg.Server.Listen)
	}
	if cfg.Server.Storage != "/srv/strata/data.db" {
		t.Errorf("expected storage under root, got %s", cfg.Server.Storage)
	}
	if cfg.Client.Endpoint != "tcp://127.0.0.1:7480" {
		t.Errorf("expected client endpoint to default to listen, got %s", cfg.Client.Endpoint)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestLoadFile_JSONC(t *testing.T) {
	path := writeConfig(t, "strata.jsonc", `{
  // Development server on a private socket.
  "paths": {"root": "/tmp/strata-dev"},
  "server": {
    "listen": "unix:///tmp/strata-dev/strata.sock",
    "compression": "zstd",
    "compress_min_size": 64,
  },
  "client": {"namespace": "app", "database": "dev", "timeout": "5s"},
}`)

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}
	if cfg.Server.Compression != "zstd" || cfg.Server.CompressMinSize != 64 {
		t.Errorf("server = %+v", cfg.Server)
	}
	if cfg.Client.Namespace != "app" || cfg.Client.Database != "dev" {
		t.Errorf("client = %+v", cfg.Client)
	}
	if cfg.ClientTimeout() != 5*time.Second {
		t.Errorf("ClientTimeout = %v, want 5s", cfg.ClientTimeout())
	}
}

func TestLoadFile_Malformed(t *testing.T) {
	path := writeConfig(t, "strata.yaml", "server: [unterminated")
	if _, err := LoadFile(path); err == nil {
		t.Fatal("expected parse error")
	}
	if _, err := LoadFile(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestEnvironmentOverrides(t *testing.T) {
	path := writeConfig(t, "strata.yaml", `
environment: staging
server:
  log_level: debug
staging:
  server:
    log_level: warn
    pool_size: 8
  client:
    namespace: staging
`)

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}
	if cfg.Server.LogLevel != "warn" || cfg.LogLevel() != slog.LevelWarn {
		t.Errorf("expected log_level=warn from staging override, got %s", cfg.Server.LogLevel)
	}
	if cfg.Server.PoolSize != 8 {
		t.Errorf("expected pool_size=8, got %d", cfg.Server.PoolSize)
	}
	if cfg.Client.Namespace != "staging" {
		t.Errorf("expected namespace=staging, got %s", cfg.Client.Namespace)
	}
}

func TestProductionDefaults(t *testing.T) {
	path := writeConfig(t, "strata.yaml", "environment: production\n")

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}
	if cfg.Server.Compression != "zstd" {
		t.Errorf("expected production compression=zstd, got %s", cfg.Server.Compression)
	}
	if got := cfg.EngineConfig(nil).Compression; got != engine.CompressionZstd {
		t.Errorf("EngineConfig compression = %s, want zstd", got)
	}
}

func TestEnvVarsDoNotOverride(t *testing.T) {
	t.Setenv("STRATA_ROOT", "/env/root")
	t.Setenv("STRATA_LISTEN", "tcp://env:1")

	path := writeConfig(t, "strata.yaml", `
paths:
  root: /file/root
server:
  listen: unix:///file/strata.sock
`)

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}
	if cfg.Paths.Root != "/file/root" {
		t.Errorf("expected root=/file/root from file, got %s (env vars should not override)", cfg.Paths.Root)
	}
	if cfg.Server.Listen != "unix:///file/strata.sock" {
		t.Errorf("expected listen from file, got %s (env vars should not override)", cfg.Server.Listen)
	}
}

func TestExpandVars(t *testing.T) {
	tests := []struct {
		input    string
		vars     map[string]string
		expected string
	}{
		{
			input:    "${HOME}/strata",
			vars:     map[string]string{"HOME": "/home/user"},
			expected: "/home/user/strata",
		},
		{
			input:    "${STRATA_TEST_MISSING:-default}",
			vars:     map[string]string{},
			expected: "default",
		},
		{
			input:    "${PRESENT:-default}",
			vars:     map[string]string{"PRESENT": "value"},
			expected: "value",
		},
		{
			input:    "unix://${A}/${B}.sock",
			vars:     map[string]string{"A": "first", "B": "second"},
			expected: "unix://first/second.sock",
		},
		{
			input:    "no variables here",
			vars:     map[string]string{},
			expected: "no variables here",
		},
	}

	for _, tt := range tests {
		result := expandVars(tt.input, tt.vars)
		if result != tt.expected {
			t.Errorf("expandVars(%q) = %q, want %q", tt.input, result, tt.expected)
		}
	}
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		cfg := Default()
		cfg.Paths.Root = "/srv/strata"
		cfg.expandVariables()
		return cfg
	}

	if err := valid().Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		message string
	}{
		{"environment", func(c *Config) { c.Environment = "qa" }, "invalid environment"},
		{"embedded listen", func(c *Config) { c.Server.Listen = "mem://" }, "server.listen must be"},
		{"listen scheme", func(c *Config) { c.Server.Listen = "/run/strata.sock" }, "server.listen"},
		{"compression", func(c *Config) { c.Server.Compression = "gzip" }, "server.compression"},
		{"log level", func(c *Config) { c.Server.LogLevel = "loud" }, "server.log_level"},
		{"pool size", func(c *Config) { c.Server.PoolSize = -1 }, "server.pool_size"},
		{"timeout", func(c *Config) { c.Client.Timeout = "soon" }, "client.timeout"},
		{"zero timeout", func(c *Config) { c.Client.Timeout = "0s" }, "client.timeout must be positive"},
		{"client endpoint", func(c *Config) { c.Client.Endpoint = "nowhere" }, "client.endpoint"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.message) {
				t.Errorf("error %q does not mention %q", err, tt.message)
			}
		})
	}

	// Every problem is reported at once.
	cfg := valid()
	cfg.Server.Compression = "gzip"
	cfg.Client.Timeout = "soon"
	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "server.compression") || !strings.Contains(err.Error(), "client.timeout") {
		t.Errorf("expected both errors, got %v", err)
	}
}

func TestEnsurePaths(t *testing.T) {
	root := t.TempDir()
	cfg := Default()
	cfg.Paths.Root = filepath.Join(root, "strata")
	cfg.Server.Storage = filepath.Join(root, "data", "records.db")
	cfg.Server.Listen = "unix://" + filepath.Join(root, "run", "strata.sock")

	if err := cfg.EnsurePaths(); err != nil {
		t.Fatalf("EnsurePaths: %v", err)
	}
	for _, directory := range []string{"strata", "data", "run"} {
		if info, err := os.Stat(filepath.Join(root, directory)); err != nil || !info.IsDir() {
			t.Errorf("%s not created: %v", directory, err)
		}
	}
}
