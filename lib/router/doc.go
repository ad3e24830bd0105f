// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package router defines the dispatcher a connected Strata handle sends
// commands through, and the slot the handle keeps it in.
//
// A [Router] accepts a [command.Command], delivers it to a backend and
// returns the backend's single answer: the encoded result on success, a
// [*BackendError] on rejection, or a transport error. Two
// implementations exist:
//
//   - router/remote: one persistent stream connection (unix or tcp) to
//     strata-server, CBOR request envelopes correlated by id.
//   - router/embedded: an in-process engine, no serialization of the
//     command itself.
//
// Both give a total order per router: commands are applied in the
// order they were submitted.
//
// A [Slot] holds zero or one router. Connection lifecycle code binds
// and unbinds it; command builders only resolve it, and resolution of
// an empty slot is the explicit [ErrNotConnected] branch.
package router
