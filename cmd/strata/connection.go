// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/strata/cmd/strata/cli"
	"github.com/bureau-foundation/strata/lib/config"
	"github.com/bureau-foundation/strata/lib/strata"
)

const defaultTimeout = 30 * time.Second

// connectionParams are the flags every database command shares.
type connectionParams struct {
	configPath string
	endpoint   string
	namespace  string
	database   string
	session    string
	timeout    time.Duration
	json       bool
	verbose    bool
}

func (p *connectionParams) addFlags(flagSet *pflag.FlagSet) {
	flagSet.StringVar(&p.configPath, "config", "", "config file (default $STRATA_CONFIG)")
	flagSet.StringVarP(&p.endpoint, "endpoint", "e", "", "endpoint: unix://, tcp://, mem:// or file:// (default client.endpoint, or $STRATA_ENDPOINT)")
	flagSet.StringVarP(&p.namespace, "namespace", "n", "", "namespace to select after connecting")
	flagSet.StringVarP(&p.database, "database", "d", "", "database to select after connecting")
	flagSet.StringVar(&p.session, "session", "", "join an existing session by id")
	flagSet.DurationVar(&p.timeout, "timeout", 0, "bound on the whole command (default client.timeout, or 30s)")
	flagSet.BoolVar(&p.json, "json", false, "print indented JSON")
	flagSet.BoolVarP(&p.verbose, "verbose", "v", false, "log at debug level")
}

// connected is an open handle with the session context applied.
type connected struct {
	ctx    context.Context
	cancel context.CancelFunc
	db     *strata.DB
}

func (c *connected) Close() {
	c.db.Close()
	c.cancel()
}

// open resolves the endpoint, connects, and applies the namespace,
// database and session selection in a single use command.
func (p *connectionParams) open(ctx context.Context) (*connected, error) {
	cfg, err := p.loadConfig()
	if err != nil {
		return nil, err
	}

	level := slog.LevelWarn
	if p.verbose {
		level = slog.LevelDebug
	}
	logger := cli.NewCommandLogger(level)

	endpoint := p.endpoint
	namespace := p.namespace
	database := p.database
	timeout := p.timeout
	options := []strata.Option{strata.WithLogger(logger)}
	if cfg != nil {
		if endpoint == "" {
			endpoint = cfg.Client.Endpoint
		}
		if namespace == "" {
			namespace = cfg.Client.Namespace
		}
		if database == "" {
			database = cfg.Client.Database
		}
		if timeout == 0 {
			timeout = cfg.ClientTimeout()
		}
		options = append(options, strata.WithEngineConfig(cfg.EngineConfig(logger)))
	}
	if endpoint == "" {
		endpoint = os.Getenv("STRATA_ENDPOINT")
	}
	if endpoint == "" {
		return nil, fmt.Errorf("no endpoint: pass --endpoint, set STRATA_ENDPOINT, or set client.endpoint in the config file")
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	db, err := strata.Connect(ctx, endpoint, options...)
	if err != nil {
		cancel()
		return nil, err
	}

	if namespace != "" || database != "" || p.session != "" {
		use := db.Use()
		if p.session != "" {
			use = use.WithSession(p.session)
		}
		if namespace != "" {
			use = use.WithNamespace(namespace)
		}
		if database != "" {
			use = use.WithDatabase(database)
		}
		if err := use.Exec(ctx); err != nil {
			db.Close()
			cancel()
			return nil, err
		}
	}

	logger.Debug("connected", "endpoint", endpoint, "namespace", namespace, "database", database)
	return &connected{ctx: ctx, cancel: cancel, db: db}, nil
}

// loadConfig returns nil when no config file is named.
func (p *connectionParams) loadConfig() (*config.Config, error) {
	path := p.configPath
	if path == "" {
		path = os.Getenv("STRATA_CONFIG")
	}
	if path == "" {
		return nil, nil
	}
	cfg, err := config.LoadFile(path)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config:\n%w", err)
	}
	return cfg, nil
}
