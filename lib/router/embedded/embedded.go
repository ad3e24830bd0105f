// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package embedded provides a [router.Router] that runs commands on an
// in-process [engine.Engine]. It returns exactly what the remote router
// would: encoded results and [*router.BackendError] rejections.
package embedded

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/bureau-foundation/strata/lib/codec"
	"github.com/bureau-foundation/strata/lib/command"
	"github.com/bureau-foundation/strata/lib/engine"
	"github.com/bureau-foundation/strata/lib/router"
)

// Router holds one engine connection. Commands are executed one at a
// time in the order Execute acquires the lock.
type Router struct {
	mu     sync.Mutex
	engine *engine.Engine
	conn   *engine.Conn
	owned  bool
	closed bool
}

// Open opens a private engine with cfg and returns a router that owns
// it. Closing the router closes the engine.
func Open(cfg engine.Config) (*Router, error) {
	instance, err := engine.Open(cfg)
	if err != nil {
		return nil, err
	}
	r := New(instance)
	r.owned = true
	return r, nil
}

// New returns a router with a fresh connection to a shared engine.
// Closing the router detaches its connection but leaves the engine
// open.
func New(instance *engine.Engine) *Router {
	return &Router{engine: instance, conn: instance.NewConn()}
}

// Execute runs cmd on the router's engine connection.
func (r *Router) Execute(ctx context.Context, cmd command.Command) (codec.RawMessage, error) {
	if cmd == nil {
		return nil, errors.New("embedded: nil command")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil, router.ErrConnectionClosed
	}

	result, err := r.conn.Execute(ctx, cmd)
	if err != nil {
		var rejection *engine.Error
		if errors.As(err, &rejection) {
			return nil, &router.BackendError{
				Method:  cmd.Method(),
				Code:    string(rejection.Code),
				Message: rejection.Message,
			}
		}
		return nil, fmt.Errorf("embedded: %s: %w", cmd.Method(), err)
	}
	return encodeResult(cmd.Method(), result)
}

// Close detaches the router's connection, and closes the engine when
// the router opened it. Close is idempotent.
func (r *Router) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}
	r.closed = true
	r.conn.Close()
	if r.owned {
		return r.engine.Close()
	}
	return nil
}

func encodeResult(method command.Method, result any) (codec.RawMessage, error) {
	switch result := result.(type) {
	case nil:
		return nil, nil
	case codec.RawMessage:
		return result, nil
	}
	data, err := codec.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("embedded: encoding %s result: %w", method, err)
	}
	return data, nil
}
