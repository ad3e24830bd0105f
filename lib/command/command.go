// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package command

import "github.com/bureau-foundation/strata/lib/codec"

// Method names a backend operation on the wire.
type Method string

const (
	MethodUse        Method = "use"
	MethodHealth     Method = "health"
	MethodVersion    Method = "version"
	MethodInfo       Method = "info"
	MethodSet        Method = "set"
	MethodUnset      Method = "unset"
	MethodInvalidate Method = "invalidate"
	MethodSelect     Method = "select"
	MethodCreate     Method = "create"
	MethodUpsert     Method = "upsert"
	MethodDelete     Method = "delete"
)

// Command is one request to the backend. The unexported method closes
// the set to the variants declared in this package.
type Command interface {
	Method() Method
	command()
}

// Use switches the active session, namespace and/or database of the
// connection. A nil field leaves that dimension unchanged on the
// backend; it never clears it. [Invalidate] is the explicit clear.
//
// When several fields are set the backend applies them in the order
// session, namespace, database, so a namespace switch lands on the
// session selected by the same command.
type Use struct {
	Namespace *string `cbor:"namespace,omitempty"`
	Database  *string `cbor:"database,omitempty"`
	Session   *string `cbor:"session,omitempty"`
}

// Health asks the backend to confirm it can serve requests.
type Health struct{}

// Version asks for the backend's version string.
type Version struct{}

// Info asks for the connection's active session, namespace and
// database.
type Info struct{}

// Set binds a session variable. Value is the encoded CBOR value.
type Set struct {
	Key   string           `cbor:"key"`
	Value codec.RawMessage `cbor:"value"`
}

// Unset removes a session variable. Removing an absent key succeeds.
type Unset struct {
	Key string `cbor:"key"`
}

// Invalidate clears the active session's namespace, database and
// variables.
type Invalidate struct{}

// Select reads one record (ID set) or every record of a table.
type Select struct {
	Table string  `cbor:"table"`
	ID    *string `cbor:"id,omitempty"`
}

// Create stores a new record. A nil ID asks the backend to generate
// one. Content must encode a CBOR map.
type Create struct {
	Table   string           `cbor:"table"`
	ID      *string          `cbor:"id,omitempty"`
	Content codec.RawMessage `cbor:"content"`
}

// Upsert stores a record under ID, replacing any existing content.
type Upsert struct {
	Table   string           `cbor:"table"`
	ID      string           `cbor:"id"`
	Content codec.RawMessage `cbor:"content"`
}

// Delete removes one record (ID set) or every record of a table.
type Delete struct {
	Table string  `cbor:"table"`
	ID    *string `cbor:"id,omitempty"`
}

func (Use) Method() Method        { return MethodUse }
func (Health) Method() Method     { return MethodHealth }
func (Version) Method() Method    { return MethodVersion }
func (Info) Method() Method       { return MethodInfo }
func (Set) Method() Method        { return MethodSet }
func (Unset) Method() Method      { return MethodUnset }
func (Invalidate) Method() Method { return MethodInvalidate }
func (Select) Method() Method     { return MethodSelect }
func (Create) Method() Method     { return MethodCreate }
func (Upsert) Method() Method     { return MethodUpsert }
func (Delete) Method() Method     { return MethodDelete }

func (Use) command()        {}
func (Health) command()     {}
func (Version) command()    {}
func (Info) command()       {}
func (Set) command()        {}
func (Unset) command()      {}
func (Invalidate) command() {}
func (Select) command()     {}
func (Create) command()     {}
func (Upsert) command()     {}
func (Delete) command()     {}
