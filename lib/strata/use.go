// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package strata

import (
	"context"

	"github.com/bureau-foundation/strata/lib/command"
	"github.com/bureau-foundation/strata/lib/router"
)

// Use switches the connection's namespace, database or session. Each
// With method returns a new builder with one field set; the last call
// for a field wins. Fields never set are left unchanged by the backend.
//
//	err := db.Use().WithNamespace("app").WithDatabase("prod").Exec(ctx)
type Use struct {
	db        *DB
	namespace *string
	database  *string
	session   *string
}

// Use returns a builder with every field unset.
func (db *DB) Use() Use {
	return Use{db: db}
}

// WithNamespace sets the namespace to switch to.
func (u Use) WithNamespace(namespace string) Use {
	u.namespace = &namespace
	return u
}

// WithDatabase sets the database to switch to.
func (u Use) WithDatabase(database string) Use {
	u.database = &database
	return u
}

// WithSession sets the session identifier (a UUID) to switch to.
func (u Use) WithSession(session string) Use {
	u.session = &session
	return u
}

// ToOwned returns the same builder holding its own clone of the
// handle, for handing to another goroutine.
func (u Use) ToOwned() Use {
	u.db = u.db.Clone()
	return u
}

// Command returns the command the builder would submit.
func (u Use) Command() command.Use {
	return command.Use{
		Namespace: u.namespace,
		Database:  u.database,
		Session:   u.session,
	}
}

// Future returns the pending switch. No work is done until it is
// driven.
func (u Use) Future() *Future[struct{}] {
	return newFuture(func(ctx context.Context) (struct{}, error) {
		r, err := u.db.resolve()
		if err != nil {
			return struct{}{}, err
		}
		return struct{}{}, router.ExecuteUnit(ctx, r, u.Command())
	})
}

// Exec submits the switch and waits for the backend's answer.
func (u Use) Exec(ctx context.Context) error {
	_, err := u.Future().Wait(ctx)
	return err
}
