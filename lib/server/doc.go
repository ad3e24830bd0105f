// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package server serves an [engine.Engine] to remote routers over a
// unix socket or TCP.
//
// Each accepted connection is bound to its own [engine.Conn] (and so
// starts on a fresh session). The connection carries a stream of CBOR
// [command.Request] values; the server handles them strictly in order
// and writes one [command.Response] per request, echoing its ID.
// Requests that cannot be decoded receive an error response with code
// "invalid_request", or "unknown_method" for a method outside the
// command set. A stream that is not well-formed CBOR cannot be
// resynchronized, so the server closes it.
//
// [Server.Serve] blocks until its context is cancelled. Shutdown stops
// accepting, closes every open connection, and waits for their
// handlers to return. For unix endpoints the socket file is replaced
// on listen and removed on return.
package server
