// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package sqlitepool is the SQLite connection pool under the embedded
// Strata engine's record store.
//
// It wraps zombiezen.com/go/sqlite's sqlitex.Pool and applies one set
// of pragmas to every connection:
//
//   - journal_mode=WAL: readers never block the single writer.
//   - synchronous=NORMAL: committed records survive a process crash.
//   - busy_timeout=5000: wait for the write lock instead of failing
//     with SQLITE_BUSY.
//   - cache_size=-8192: 8 MB page cache per connection.
//   - temp_store=MEMORY.
//
// File-backed pools also map up to 256 MB of the database for reads.
//
// # In-memory databases
//
// A Path of ":memory:" opens a private in-memory database. Every SQLite
// connection to ":memory:" is a separate database, so the pool is
// forced to a single connection and callers serialize on it. This is
// what the mem:// endpoint and most tests use.
//
// # Usage
//
// [Pool.Write] and [Pool.Read] cover the common case of borrowing a
// connection for one unit of work:
//
//	err := pool.Write(ctx, func(conn *sqlite.Conn) error {
//	    return sqlitex.Execute(conn, "INSERT ...", &sqlitex.ExecOptions{Args: args})
//	})
//
// Write runs fn inside an IMMEDIATE transaction that commits when fn
// returns nil and rolls back otherwise. [Pool.Take] and [Pool.Put]
// remain available for callers that need finer control.
package sqlitepool
