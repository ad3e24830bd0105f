// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package strata

import (
	"context"
	"fmt"

	"github.com/bureau-foundation/strata/lib/codec"
	"github.com/bureau-foundation/strata/lib/command"
	"github.com/bureau-foundation/strata/lib/router"
)

// SessionInfo is the result of [DB.Info].
type SessionInfo = command.SessionInfo

// Call is a builder for a command with no options. T is the decoded
// result type; struct{} for commands without one.
type Call[T any] struct {
	db    *DB
	build func() (command.Command, error)
}

func newCall[T any](db *DB, cmd command.Command) Call[T] {
	return Call[T]{db: db, build: func() (command.Command, error) { return cmd, nil }}
}

// Health checks that the backend can serve requests.
func (db *DB) Health() Call[struct{}] {
	return newCall[struct{}](db, command.Health{})
}

// Version returns the backend's version string.
func (db *DB) Version() Call[string] {
	return newCall[string](db, command.Version{})
}

// Info returns the connection's session and selected scope.
func (db *DB) Info() Call[SessionInfo] {
	return newCall[SessionInfo](db, command.Info{})
}

// Set stores a session variable. value is encoded when the command is
// built, so an unencodable value fails the future, not this call.
func (db *DB) Set(key string, value any) Call[struct{}] {
	return Call[struct{}]{db: db, build: func() (command.Command, error) {
		encoded, err := codec.Marshal(value)
		if err != nil {
			return nil, fmt.Errorf("strata: encoding variable %q: %w", key, err)
		}
		return command.Set{Key: key, Value: encoded}, nil
	}}
}

// Unset removes a session variable.
func (db *DB) Unset(key string) Call[struct{}] {
	return newCall[struct{}](db, command.Unset{Key: key})
}

// Invalidate clears the session's namespace, database and variables.
func (db *DB) Invalidate() Call[struct{}] {
	return newCall[struct{}](db, command.Invalidate{})
}

// ToOwned returns the same builder holding its own clone of the handle.
func (c Call[T]) ToOwned() Call[T] {
	c.db = c.db.Clone()
	return c
}

// Future returns the pending command.
func (c Call[T]) Future() *Future[T] {
	return deferred[T](c.db, c.build)
}

// Exec submits the command and waits for its result.
func (c Call[T]) Exec(ctx context.Context) (T, error) {
	return c.Future().Wait(ctx)
}

// deferred returns a future that resolves db's router, builds the
// command, submits it and decodes the result into T.
func deferred[T any](db *DB, build func() (command.Command, error)) *Future[T] {
	return newFuture(func(ctx context.Context) (T, error) {
		var result T
		r, err := db.resolve()
		if err != nil {
			return result, err
		}
		cmd, err := build()
		if err != nil {
			return result, err
		}
		err = router.ExecuteInto(ctx, r, cmd, &result)
		return result, err
	})
}
