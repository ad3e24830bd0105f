// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package command defines the closed set of requests a Strata backend
// understands.
//
// A [Command] is plain data: a method name plus the fields the backend
// needs to carry it out. Commands have no behavior and hold no
// reference to a connection. The client builds one at the moment of
// dispatch from a builder's final field values and hands it to a
// router, which either encodes it onto a stream (remote) or passes it
// straight to an in-process engine (embedded).
//
// The set is closed: every variant is declared in this package and
// implements the unexported marker method, so a type switch over
// Command in the engine is exhaustive by construction.
//
// # Wire form
//
// On a stream, a command travels inside a [Request] envelope:
//
//	{id: 7, method: "use", params: {namespace: "app", database: "prod"}}
//
// and is answered by exactly one [Response] carrying the same id.
// [Marshal] and [Unmarshal] convert between a Command and its method
// name plus encoded params.
package command
