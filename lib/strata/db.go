// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package strata

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/bureau-foundation/strata/lib/engine"
	"github.com/bureau-foundation/strata/lib/router"
	"github.com/bureau-foundation/strata/lib/router/embedded"
	"github.com/bureau-foundation/strata/lib/router/remote"
	"github.com/bureau-foundation/strata/lib/sqlitepool"
)

// DB is a connection handle. The zero value is not usable; create
// handles with [New] or [Connect]. A DB is safe for concurrent use.
type DB struct {
	shared *handle
}

// handle is the state shared by a DB and all of its clones.
type handle struct {
	slot router.Slot

	// connectMu serializes Connect and Close so that a replaced
	// router is always closed exactly once.
	connectMu sync.Mutex

	logger *slog.Logger
	engine engine.Config
}

// Option configures a handle.
type Option func(*handle)

// WithLogger sets the logger passed to routers. Routers log connection
// lifecycle only.
func WithLogger(logger *slog.Logger) Option {
	return func(h *handle) {
		if logger != nil {
			h.logger = logger
		}
	}
}

// WithEngineConfig sets the engine configuration used for mem:// and
// file:// endpoints. Path and Logger are supplied by the endpoint and
// the handle.
func WithEngineConfig(cfg engine.Config) Option {
	return func(h *handle) {
		h.engine = cfg
	}
}

// New returns an unbound handle. Commands fail with
// [router.ErrNotConnected] until [DB.Connect] succeeds.
func New(options ...Option) *DB {
	h := &handle{
		logger: slog.New(slog.DiscardHandler),
		engine: engine.Config{Compression: engine.CompressionLZ4},
	}
	for _, option := range options {
		option(h)
	}
	return &DB{shared: h}
}

// Connect returns a handle bound to endpoint.
func Connect(ctx context.Context, endpoint string, options ...Option) (*DB, error) {
	db := New(options...)
	if err := db.Connect(ctx, endpoint); err != nil {
		return nil, err
	}
	return db, nil
}

// Connect binds the handle to endpoint, replacing and closing any
// router bound before. On failure the existing binding is left in
// place.
//
// Endpoints:
//
//	unix:///run/strata/strata.sock   strata-server over a unix socket
//	tcp://127.0.0.1:7480             strata-server over TCP
//	mem://                           private in-memory engine
//	file:///var/lib/strata/data.db   engine on a database file
func (db *DB) Connect(ctx context.Context, endpoint string) error {
	parsed, err := router.ParseEndpoint(endpoint)
	if err != nil {
		return err
	}

	db.shared.connectMu.Lock()
	defer db.shared.connectMu.Unlock()

	bound, err := db.shared.open(ctx, parsed)
	if err != nil {
		return err
	}
	if previous := db.shared.slot.Bind(bound); previous != nil {
		previous.Close()
	}
	return nil
}

// ConnectRouter binds the handle to a caller-supplied router, which
// the handle then owns. Any router bound before is closed.
func (db *DB) ConnectRouter(r router.Router) {
	db.shared.connectMu.Lock()
	defer db.shared.connectMu.Unlock()
	if previous := db.shared.slot.Bind(r); previous != nil && previous != r {
		previous.Close()
	}
}

// Close unbinds and closes the handle's router. Every clone of the
// handle becomes unbound. Closing an unbound handle does nothing.
func (db *DB) Close() error {
	db.shared.connectMu.Lock()
	defer db.shared.connectMu.Unlock()
	if previous := db.shared.slot.Unbind(); previous != nil {
		return previous.Close()
	}
	return nil
}

// Connected reports whether a router is currently bound.
func (db *DB) Connected() bool {
	_, bound := db.shared.slot.Lookup()
	return bound
}

// Clone returns another handle sharing this handle's router slot. It is
// the owned form handed to builders by ToOwned.
func (db *DB) Clone() *DB {
	if db == nil {
		return nil
	}
	return &DB{shared: db.shared}
}

// resolve returns the bound router. A nil handle is unbound.
func (db *DB) resolve() (router.Router, error) {
	if db == nil || db.shared == nil {
		return nil, router.ErrNotConnected
	}
	return db.shared.slot.Resolve()
}

func (h *handle) open(ctx context.Context, endpoint router.Endpoint) (router.Router, error) {
	switch endpoint.Scheme {
	case router.SchemeUnix, router.SchemeTCP:
		return remote.Dial(ctx, endpoint, h.logger)
	case router.SchemeMemory, router.SchemeFile:
		cfg := h.engine
		cfg.Logger = h.logger
		cfg.Path = endpoint.Address
		if endpoint.Scheme == router.SchemeMemory {
			cfg.Path = sqlitepool.MemoryPath
		}
		r, err := embedded.Open(cfg)
		if err != nil {
			return nil, fmt.Errorf("strata: opening %s: %w", endpoint, err)
		}
		return r, nil
	default:
		return nil, fmt.Errorf("strata: unsupported endpoint %s", endpoint)
	}
}
