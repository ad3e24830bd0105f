// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package strata

import (
	"context"
	"fmt"

	"github.com/bureau-foundation/strata/lib/codec"
	"github.com/bureau-foundation/strata/lib/command"
)

// Record builders decode results into T, which should be a struct with
// cbor or json tags (or map[string]any). Every record carries its id in
// the "id" field.

// SelectBuilder reads records from a table.
type SelectBuilder[T any] struct {
	db    *DB
	table string
	id    *string
}

// Select returns a builder reading every record of table, in id order.
func Select[T any](db *DB, table string) SelectBuilder[T] {
	return SelectBuilder[T]{db: db, table: table}
}

// WithID narrows the selection to one record. A missing record fails
// with backend code "not_found".
func (s SelectBuilder[T]) WithID(id string) SelectBuilder[T] {
	s.id = &id
	return s
}

func (s SelectBuilder[T]) ToOwned() SelectBuilder[T] {
	s.db = s.db.Clone()
	return s
}

func (s SelectBuilder[T]) Command() command.Select {
	return command.Select{Table: s.table, ID: s.id}
}

func (s SelectBuilder[T]) Future() *Future[[]T] {
	return deferred[[]T](s.db, func() (command.Command, error) {
		return s.Command(), nil
	})
}

func (s SelectBuilder[T]) Exec(ctx context.Context) ([]T, error) {
	return s.Future().Wait(ctx)
}

// CreateBuilder inserts a new record.
type CreateBuilder[T any] struct {
	db      *DB
	table   string
	id      *string
	content any
}

// Create returns a builder inserting a record into table. Without
// WithID the backend uses the content's "id" field, or generates one.
// An existing id fails with backend code "already_exists".
func Create[T any](db *DB, table string) CreateBuilder[T] {
	return CreateBuilder[T]{db: db, table: table}
}

func (c CreateBuilder[T]) WithID(id string) CreateBuilder[T] {
	c.id = &id
	return c
}

// Content sets the record body. It must encode to a map.
func (c CreateBuilder[T]) Content(content any) CreateBuilder[T] {
	c.content = content
	return c
}

func (c CreateBuilder[T]) ToOwned() CreateBuilder[T] {
	c.db = c.db.Clone()
	return c
}

func (c CreateBuilder[T]) Future() *Future[T] {
	return deferred[T](c.db, func() (command.Command, error) {
		content, err := encodeContent(c.content)
		if err != nil {
			return nil, err
		}
		return command.Create{Table: c.table, ID: c.id, Content: content}, nil
	})
}

func (c CreateBuilder[T]) Exec(ctx context.Context) (T, error) {
	return c.Future().Wait(ctx)
}

// UpsertBuilder writes a record, replacing any existing content.
type UpsertBuilder[T any] struct {
	db      *DB
	table   string
	id      string
	content any
}

// Upsert returns a builder writing record id of table.
func Upsert[T any](db *DB, table, id string) UpsertBuilder[T] {
	return UpsertBuilder[T]{db: db, table: table, id: id}
}

func (u UpsertBuilder[T]) Content(content any) UpsertBuilder[T] {
	u.content = content
	return u
}

func (u UpsertBuilder[T]) ToOwned() UpsertBuilder[T] {
	u.db = u.db.Clone()
	return u
}

func (u UpsertBuilder[T]) Future() *Future[T] {
	return deferred[T](u.db, func() (command.Command, error) {
		content, err := encodeContent(u.content)
		if err != nil {
			return nil, err
		}
		return command.Upsert{Table: u.table, ID: u.id, Content: content}, nil
	})
}

func (u UpsertBuilder[T]) Exec(ctx context.Context) (T, error) {
	return u.Future().Wait(ctx)
}

// DeleteBuilder removes records. Its result is the number removed.
type DeleteBuilder struct {
	db    *DB
	table string
	id    *string
}

// Delete returns a builder removing every record of table.
func Delete(db *DB, table string) DeleteBuilder {
	return DeleteBuilder{db: db, table: table}
}

// WithID narrows the delete to one record. Deleting a missing record
// removes nothing and is not an error.
func (d DeleteBuilder) WithID(id string) DeleteBuilder {
	d.id = &id
	return d
}

func (d DeleteBuilder) ToOwned() DeleteBuilder {
	d.db = d.db.Clone()
	return d
}

func (d DeleteBuilder) Command() command.Delete {
	return command.Delete{Table: d.table, ID: d.id}
}

func (d DeleteBuilder) Future() *Future[int] {
	return deferred[int](d.db, func() (command.Command, error) {
		return d.Command(), nil
	})
}

func (d DeleteBuilder) Exec(ctx context.Context) (int, error) {
	return d.Future().Wait(ctx)
}

func encodeContent(content any) (codec.RawMessage, error) {
	if content == nil {
		return nil, nil
	}
	if raw, ok := content.(codec.RawMessage); ok {
		return raw, nil
	}
	encoded, err := codec.Marshal(content)
	if err != nil {
		return nil, fmt.Errorf("strata: encoding record content: %w", err)
	}
	return encoded, nil
}
