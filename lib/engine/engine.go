// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package engine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/bureau-foundation/strata/lib/sqlitepool"
	"github.com/bureau-foundation/strata/lib/version"
)

// Config holds the parameters for opening an engine.
type Config struct {
	// Path is the SQLite database file, or sqlitepool.MemoryPath.
	Path string

	// PoolSize is the number of SQLite connections. See
	// sqlitepool.Config.
	PoolSize int

	// Compression is applied to record bodies of at least
	// CompressMinSize bytes.
	Compression Compression

	// CompressMinSize defaults to DefaultCompressMinSize when zero.
	CompressMinSize int

	// Logger receives session and storage messages. Nil discards them.
	Logger *slog.Logger
}

// Engine executes commands against a record store. It is safe for
// concurrent use by many Conns.
type Engine struct {
	store    *recordStore
	sessions *sessionRegistry
	logger   *slog.Logger
}

// Open opens the record store and returns a ready engine. The caller
// must Close it.
func Open(cfg Config) (*Engine, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	minSize := cfg.CompressMinSize
	if minSize == 0 {
		minSize = DefaultCompressMinSize
	}

	pool, err := sqlitepool.Open(sqlitepool.Config{
		Path:      cfg.Path,
		PoolSize:  cfg.PoolSize,
		Logger:    logger,
		OnConnect: createSchema,
	})
	if err != nil {
		return nil, fmt.Errorf("engine: %w", err)
	}

	return &Engine{
		store: &recordStore{
			pool:        pool,
			compression: cfg.Compression,
			minSize:     minSize,
		},
		sessions: newSessionRegistry(logger),
		logger:   logger,
	}, nil
}

// Close releases the record store. Conns must not be used afterwards.
func (e *Engine) Close() error {
	return e.store.pool.Close()
}

// Version is the string returned by the "version" command.
func (e *Engine) Version() string {
	return "strata-" + version.Short()
}

// Health verifies the record store is usable.
func (e *Engine) Health(ctx context.Context) error {
	if err := e.store.ping(ctx); err != nil {
		return fmt.Errorf("engine: health check: %w", err)
	}
	return nil
}

// Sessions returns the number of live sessions.
func (e *Engine) Sessions() int {
	return e.sessions.count()
}

// NewConn returns a connection attached to a fresh session.
func (e *Engine) NewConn() *Conn {
	return &Conn{engine: e, session: e.sessions.attachNew()}
}
