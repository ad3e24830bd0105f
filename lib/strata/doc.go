// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package strata is the client library for Strata databases.
//
// A [DB] is a connection handle. It holds at most one router (the
// component that delivers commands to a backend) and is bound by
// [DB.Connect] to either a strata-server (unix:// or tcp://) or an
// engine running in-process (mem:// or file://). Handles are shared
// references: [DB.Clone] returns another handle on the same router
// slot, and reconnecting replaces the router for every clone.
//
// Commands are issued through builders:
//
//	err := db.Use().WithNamespace("app").WithDatabase("prod").Exec(ctx)
//
//	people, err := strata.Select[Person](db, "person").Exec(ctx)
//
// A builder is a small value. Each With method returns a copy with one
// field replaced, so a builder can be shared and specialized freely.
// Builders never touch the router. Converting a builder with Future
// yields a [Future] that does nothing until it is driven with
// [Future.Wait] or [Future.Go]. Only then is the router resolved, the
// command built from the builder's fields, and the command submitted.
// If no router is bound at that moment the future fails with
// [router.ErrNotConnected] and nothing is sent.
//
// Exec is shorthand for Future().Wait(ctx).
//
// Fields never set on a builder are omitted from the command. For
// "use" the backend treats an omitted field as "leave unchanged"; the
// "invalidate" command clears the session's namespace, database and
// variables.
//
// Errors reported by the backend are returned as
// [*router.BackendError] exactly as received. Transport failures wrap
// [router.ErrConnectionClosed]. Nothing in this package logs, retries,
// or translates errors.
package strata
