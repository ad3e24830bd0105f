// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package engine is the Strata backend: session state plus a record
// store, executing [command.Command] values.
//
// The same engine runs in two places. strata-server wraps it behind a
// socket; the embedded router calls it in-process. Either way a client
// connection maps to one [Conn], and a Conn executes one command at a
// time.
//
// # Sessions
//
// Every Conn starts on a fresh session with a random UUID. A session
// holds the selected namespace and database and a set of variables.
// The "use" command can move the Conn to another session by
// identifier; the session is created on first use and lives as long as
// any Conn is attached to it. Fields left unset in "use" keep their
// current value; "invalidate" is the only way to clear them.
//
// # Records
//
// Records live in one SQLite table keyed by (namespace, database,
// table, id). A record is a CBOR map. Bodies are stored compressed
// (LZ4 or zstd, chosen by [Config.Compression]) once they exceed
// [Config.CompressMinSize], alongside a BLAKE3 digest of the
// uncompressed body. Upserting identical content is detected by
// digest and skips the write.
//
// # Errors
//
// Rejections are returned as [*Error] with a stable [Code]. Anything
// else (a storage failure, a cancelled context) is returned as a plain
// error.
package engine
