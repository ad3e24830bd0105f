// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package engine

import (
	"bytes"
	"context"
	"fmt"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"github.com/bureau-foundation/strata/lib/sqlitepool"
)

const recordsSchema = `
	CREATE TABLE IF NOT EXISTS records (
		ns          TEXT NOT NULL,
		db          TEXT NOT NULL,
		tb          TEXT NOT NULL,
		id          TEXT NOT NULL,
		compression INTEGER NOT NULL,
		size        INTEGER NOT NULL,
		digest      BLOB NOT NULL,
		body        BLOB NOT NULL,
		PRIMARY KEY (ns, db, tb, id)
	) WITHOUT ROWID;
`

// tableKey addresses one table inside a namespace and database.
type tableKey struct {
	namespace string
	database  string
	table     string
}

// storedRecord is a decompressed record body with its id.
type storedRecord struct {
	id   string
	body []byte
}

// recordStore persists record bodies in SQLite.
type recordStore struct {
	pool        *sqlitepool.Pool
	compression Compression
	minSize     int
}

func createSchema(conn *sqlite.Conn) error {
	return sqlitex.ExecuteScript(conn, recordsSchema, nil)
}

// get returns the body of one record, or found=false.
func (s *recordStore) get(ctx context.Context, key tableKey, id string) (body []byte, found bool, err error) {
	err = s.pool.Read(ctx, func(conn *sqlite.Conn) error {
		return sqlitex.Execute(conn,
			`SELECT compression, size, body FROM records WHERE ns = ? AND db = ? AND tb = ? AND id = ?`,
			&sqlitex.ExecOptions{
				Args: []any{key.namespace, key.database, key.table, id},
				ResultFunc: func(stmt *sqlite.Stmt) error {
					decoded, err := readBody(stmt, 0)
					if err != nil {
						return fmt.Errorf("record %s:%s: %w", key.table, id, err)
					}
					body, found = decoded, true
					return nil
				},
			})
	})
	return body, found, err
}

// list returns every record of a table in id order.
func (s *recordStore) list(ctx context.Context, key tableKey) ([]storedRecord, error) {
	var records []storedRecord
	err := s.pool.Read(ctx, func(conn *sqlite.Conn) error {
		return sqlitex.Execute(conn,
			`SELECT id, compression, size, body FROM records WHERE ns = ? AND db = ? AND tb = ? ORDER BY id`,
			&sqlitex.ExecOptions{
				Args: []any{key.namespace, key.database, key.table},
				ResultFunc: func(stmt *sqlite.Stmt) error {
					id := stmt.ColumnText(0)
					body, err := readBody(stmt, 1)
					if err != nil {
						return fmt.Errorf("record %s:%s: %w", key.table, id, err)
					}
					records = append(records, storedRecord{id: id, body: body})
					return nil
				},
			})
	})
	return records, err
}

// insert stores a new record, rejecting an id that already exists.
func (s *recordStore) insert(ctx context.Context, key tableKey, id string, body []byte) error {
	return s.pool.Write(ctx, func(conn *sqlite.Conn) error {
		exists, err := recordExists(conn, key, id)
		if err != nil {
			return err
		}
		if exists {
			return errorf(CodeAlreadyExists, "record %s:%s already exists", key.table, id)
		}
		return s.write(conn, key, id, body)
	})
}

// put stores a record, replacing existing content. written is false
// when the stored body already has the same digest.
func (s *recordStore) put(ctx context.Context, key tableKey, id string, body []byte) (written bool, err error) {
	digest := digestBody(body)
	err = s.pool.Write(ctx, func(conn *sqlite.Conn) error {
		var unchanged bool
		err := sqlitex.Execute(conn,
			`SELECT digest FROM records WHERE ns = ? AND db = ? AND tb = ? AND id = ?`,
			&sqlitex.ExecOptions{
				Args: []any{key.namespace, key.database, key.table, id},
				ResultFunc: func(stmt *sqlite.Stmt) error {
					var stored Digest
					stmt.ColumnBytes(0, stored[:])
					unchanged = bytes.Equal(stored[:], digest[:])
					return nil
				},
			})
		if err != nil {
			return fmt.Errorf("reading digest of %s:%s: %w", key.table, id, err)
		}
		if unchanged {
			return nil
		}
		written = true
		return s.write(conn, key, id, body)
	})
	return written, err
}

// remove deletes one record and returns the number removed (0 or 1).
func (s *recordStore) remove(ctx context.Context, key tableKey, id string) (int, error) {
	var removed int
	err := s.pool.Write(ctx, func(conn *sqlite.Conn) error {
		err := sqlitex.Execute(conn,
			`DELETE FROM records WHERE ns = ? AND db = ? AND tb = ? AND id = ?`,
			&sqlitex.ExecOptions{Args: []any{key.namespace, key.database, key.table, id}})
		removed = conn.Changes()
		return err
	})
	return removed, err
}

// removeTable deletes every record of a table.
func (s *recordStore) removeTable(ctx context.Context, key tableKey) (int, error) {
	var removed int
	err := s.pool.Write(ctx, func(conn *sqlite.Conn) error {
		err := sqlitex.Execute(conn,
			`DELETE FROM records WHERE ns = ? AND db = ? AND tb = ?`,
			&sqlitex.ExecOptions{Args: []any{key.namespace, key.database, key.table}})
		removed = conn.Changes()
		return err
	})
	return removed, err
}

// ping runs a trivial query to prove a connection can be taken and
// used.
func (s *recordStore) ping(ctx context.Context) error {
	return s.pool.Read(ctx, func(conn *sqlite.Conn) error {
		return sqlitex.Execute(conn, "SELECT 1", nil)
	})
}

func (s *recordStore) write(conn *sqlite.Conn, key tableKey, id string, body []byte) error {
	stored, algorithm, err := compressBody(body, s.compression, s.minSize)
	if err != nil {
		return fmt.Errorf("compressing %s:%s: %w", key.table, id, err)
	}
	digest := digestBody(body)
	err = sqlitex.Execute(conn,
		`INSERT OR REPLACE INTO records (ns, db, tb, id, compression, size, digest, body)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		&sqlitex.ExecOptions{
			Args: []any{
				key.namespace, key.database, key.table, id,
				int(algorithm), len(body), digest[:], stored,
			},
		})
	if err != nil {
		return fmt.Errorf("writing %s:%s: %w", key.table, id, err)
	}
	return nil
}

func recordExists(conn *sqlite.Conn, key tableKey, id string) (bool, error) {
	var exists bool
	err := sqlitex.Execute(conn,
		`SELECT 1 FROM records WHERE ns = ? AND db = ? AND tb = ? AND id = ?`,
		&sqlitex.ExecOptions{
			Args: []any{key.namespace, key.database, key.table, id},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				exists = true
				return nil
			},
		})
	if err != nil {
		return false, fmt.Errorf("checking %s:%s: %w", key.table, id, err)
	}
	return exists, nil
}

// readBody decodes the compression, size and body columns starting at
// column first.
func readBody(stmt *sqlite.Stmt, first int) ([]byte, error) {
	algorithm := Compression(stmt.ColumnInt(first))
	size := stmt.ColumnInt(first + 1)
	stored := make([]byte, stmt.ColumnLen(first+2))
	stmt.ColumnBytes(first+2, stored)
	return decompressBody(stored, algorithm, size)
}
