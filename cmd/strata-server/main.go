// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// strata-server serves a Strata database to remote clients over a unix
// socket or TCP.
//
// Configuration comes from the file named by --config or STRATA_CONFIG.
// The --listen and --storage flags override the file, and with both set
// no file is needed:
//
//	strata-server --listen unix:///run/strata/strata.sock --storage /var/lib/strata/data.db
//
// The server runs until SIGINT or SIGTERM, then stops accepting,
// closes client connections, and exits.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/bureau-foundation/strata/lib/config"
	"github.com/bureau-foundation/strata/lib/engine"
	"github.com/bureau-foundation/strata/lib/process"
	"github.com/bureau-foundation/strata/lib/router"
	"github.com/bureau-foundation/strata/lib/server"
	"github.com/bureau-foundation/strata/lib/version"
)

func main() {
	if err := run(); err != nil {
		process.Fatal(err)
	}
}

func run() error {
	var (
		showVersion bool
		configPath  string
		listen      string
		storage     string
		logLevel    string
	)
	flag.BoolVar(&showVersion, "version", false, "print version information and exit")
	flag.StringVar(&configPath, "config", "", "path to the config file (default $STRATA_CONFIG)")
	flag.StringVar(&listen, "listen", "", "endpoint to serve, overriding server.listen")
	flag.StringVar(&storage, "storage", "", "database file or :memory:, overriding server.storage")
	flag.StringVar(&logLevel, "log-level", "", "debug, info, warn or error, overriding server.log_level")
	flag.Parse()

	if showVersion {
		version.Print("strata-server")
		return nil
	}

	cfg, err := loadConfig(configPath, listen, storage, logLevel)
	if err != nil {
		return err
	}

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.LogLevel()}))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := cfg.EnsurePaths(); err != nil {
		return err
	}

	instance, err := engine.Open(cfg.EngineConfig(logger))
	if err != nil {
		return err
	}
	defer instance.Close()

	endpoint, err := router.ParseEndpoint(cfg.Server.Listen)
	if err != nil {
		return err
	}
	listening, err := server.Listen(endpoint, instance, logger)
	if err != nil {
		return err
	}

	logger.Info("strata-server running",
		"version", version.Info(),
		"endpoint", listening.Endpoint().String(),
		"storage", cfg.Server.Storage,
		"compression", cfg.Server.Compression,
	)

	if err := listening.Serve(ctx); err != nil {
		return err
	}
	logger.Info("shutting down", "sessions", instance.Sessions())
	return nil
}

// loadConfig reads the config file, when one is named, and applies
// flag overrides. Without a file both --listen and --storage are
// required.
func loadConfig(configPath, listen, storage, logLevel string) (*config.Config, error) {
	if configPath == "" {
		configPath = os.Getenv("STRATA_CONFIG")
	}

	var cfg *config.Config
	if configPath != "" {
		loaded, err := config.LoadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("loading config: %w", err)
		}
		cfg = loaded
	} else {
		if listen == "" || storage == "" {
			return nil, fmt.Errorf("no config: pass --config, set STRATA_CONFIG, or pass both --listen and --storage")
		}
		cfg = config.Default()
	}

	if listen != "" {
		cfg.Server.Listen = listen
	}
	if storage != "" {
		cfg.Server.Storage = storage
	}
	if logLevel != "" {
		cfg.Server.LogLevel = logLevel
	}
	if configPath == "" {
		cfg.Client.Endpoint = cfg.Server.Listen
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config:\n%w", err)
	}
	return cfg, nil
}
