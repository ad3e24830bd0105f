// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package testutil provides shared test helpers for Strata packages.
//
// [SocketDir] creates a temporary directory in /tmp suitable for Unix
// domain sockets. Unix domain sockets have a 108-byte path limit
// (sun_path in sockaddr_un), and TMPDIR is often nested deeply enough
// to exceed it, making t.TempDir() unsuitable for socket files. The
// directory is automatically removed when the test completes.
// [SocketPath] names a socket inside such a directory.
//
// [RequireReceive], [RequireSend], and [RequireClosed] encapsulate the
// timeout safety valve pattern (select with time.After fallback) so
// that individual tests do not need direct time.After calls. These are
// the only place in the test suite where real wall-clock timeouts are
// used.
//
// [Logger] returns a slog.Logger that writes through t.Log, for
// components that take an injected logger.
//
// [UniqueID] generates monotonically increasing identifiers for test
// disambiguation, such as table names or record ids that must not
// collide across subtests sharing one engine.
//
// All helpers call t.Fatalf on failure rather than returning errors,
// since test setup failures are not recoverable.
//
// This package has no Strata-internal dependencies.
package testutil
