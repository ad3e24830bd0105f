// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package engine

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/bureau-foundation/strata/lib/codec"
	"github.com/bureau-foundation/strata/lib/command"
)

// Conn is one client connection's view of the engine. A Conn executes
// one command at a time; callers serialize access.
type Conn struct {
	engine  *Engine
	session *session
	closed  bool
}

// Close detaches the Conn from its session. Close is idempotent.
func (c *Conn) Close() {
	if c.closed {
		return
	}
	c.closed = true
	c.engine.sessions.detach(c.session)
}

// Info returns the active session, namespace and database.
func (c *Conn) Info() command.SessionInfo {
	return c.engine.sessions.info(c.session)
}

// Variables returns a copy of the active session's variables.
func (c *Conn) Variables() map[string]codec.RawMessage {
	return c.engine.sessions.variables(c.session)
}

// Execute runs cmd and returns its result value, or nil for commands
// without one. Results are plain values ready for codec.Marshal.
func (c *Conn) Execute(ctx context.Context, cmd command.Command) (any, error) {
	if c.closed {
		return nil, fmt.Errorf("engine: connection closed")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	switch cmd := cmd.(type) {
	case command.Use:
		return nil, c.use(cmd)
	case command.Health:
		return nil, c.engine.Health(ctx)
	case command.Version:
		return c.engine.Version(), nil
	case command.Info:
		return c.Info(), nil
	case command.Set:
		return nil, c.set(cmd)
	case command.Unset:
		if err := validateVariable(cmd.Key); err != nil {
			return nil, err
		}
		c.engine.sessions.unsetVariable(c.session, cmd.Key)
		return nil, nil
	case command.Invalidate:
		c.engine.sessions.invalidate(c.session)
		return nil, nil
	case command.Select:
		return c.selectRecords(ctx, cmd)
	case command.Create:
		return c.create(ctx, cmd)
	case command.Upsert:
		return c.upsert(ctx, cmd)
	case command.Delete:
		return c.delete(ctx, cmd)
	default:
		return nil, errorf(CodeUnknownMethod, "unsupported command %T", cmd)
	}
}

// use validates every field before touching the session so that a
// rejected command changes nothing.
func (c *Conn) use(cmd command.Use) error {
	var sessionID *uuid.UUID
	if cmd.Session != nil {
		parsed, err := uuid.Parse(*cmd.Session)
		if err != nil {
			return errorf(CodeInvalidSession, "malformed session identifier %q", *cmd.Session)
		}
		sessionID = &parsed
	}
	if cmd.Namespace != nil {
		if err := validateName("namespace", *cmd.Namespace); err != nil {
			return err
		}
	}
	if cmd.Database != nil {
		if err := validateName("database", *cmd.Database); err != nil {
			return err
		}
	}

	c.session = c.engine.sessions.switchContext(c.session, sessionID, cmd.Namespace, cmd.Database)
	return nil
}

func (c *Conn) set(cmd command.Set) error {
	if err := validateVariable(cmd.Key); err != nil {
		return err
	}
	if len(cmd.Value) == 0 {
		return errorf(CodeInvalidRequest, "variable %q has no value", cmd.Key)
	}
	if err := codec.Valid(cmd.Value); err != nil {
		return errorf(CodeInvalidRequest, "variable %q: %v", cmd.Key, err)
	}
	c.engine.sessions.setVariable(c.session, cmd.Key, cmd.Value)
	return nil
}

// tableKey resolves table inside the session's namespace and database.
func (c *Conn) tableKey(table string) (tableKey, error) {
	namespace, database := c.engine.sessions.scope(c.session)
	if namespace == "" {
		return tableKey{}, errorf(CodeNoNamespace, "no namespace selected; run use with a namespace first")
	}
	if database == "" {
		return tableKey{}, errorf(CodeNoDatabase, "no database selected; run use with a database first")
	}
	if err := validateName("table", table); err != nil {
		return tableKey{}, err
	}
	return tableKey{namespace: namespace, database: database, table: table}, nil
}

func (c *Conn) selectRecords(ctx context.Context, cmd command.Select) ([]codec.RawMessage, error) {
	key, err := c.tableKey(cmd.Table)
	if err != nil {
		return nil, err
	}

	if cmd.ID != nil {
		body, found, err := c.engine.store.get(ctx, key, *cmd.ID)
		if err != nil {
			return nil, err
		}
		if !found {
			return nil, errorf(CodeNotFound, "record %s:%s not found", cmd.Table, *cmd.ID)
		}
		return []codec.RawMessage{body}, nil
	}

	records, err := c.engine.store.list(ctx, key)
	if err != nil {
		return nil, err
	}
	bodies := make([]codec.RawMessage, len(records))
	for i, record := range records {
		bodies[i] = record.body
	}
	return bodies, nil
}

func (c *Conn) create(ctx context.Context, cmd command.Create) (codec.RawMessage, error) {
	key, err := c.tableKey(cmd.Table)
	if err != nil {
		return nil, err
	}
	content, err := decodeContent(cmd.Content)
	if err != nil {
		return nil, err
	}

	var id string
	switch {
	case cmd.ID != nil:
		id = *cmd.ID
	case content["id"] != nil && content["id"] != "":
		embedded, ok := content["id"].(string)
		if !ok {
			return nil, errorf(CodeInvalidRequest, "content id must be a string, got %T", content["id"])
		}
		id = embedded
	default:
		generated, err := uuid.NewV7()
		if err != nil {
			return nil, fmt.Errorf("engine: generating record id: %w", err)
		}
		id = generated.String()
	}
	if err := validateRecordID(id); err != nil {
		return nil, err
	}

	body, err := encodeRecord(content, id)
	if err != nil {
		return nil, err
	}
	if err := c.engine.store.insert(ctx, key, id, body); err != nil {
		return nil, err
	}
	return body, nil
}

func (c *Conn) upsert(ctx context.Context, cmd command.Upsert) (codec.RawMessage, error) {
	key, err := c.tableKey(cmd.Table)
	if err != nil {
		return nil, err
	}
	if err := validateRecordID(cmd.ID); err != nil {
		return nil, err
	}
	content, err := decodeContent(cmd.Content)
	if err != nil {
		return nil, err
	}
	body, err := encodeRecord(content, cmd.ID)
	if err != nil {
		return nil, err
	}
	written, err := c.engine.store.put(ctx, key, cmd.ID, body)
	if err != nil {
		return nil, err
	}
	if !written {
		c.engine.logger.Debug("upsert unchanged", "table", cmd.Table, "id", cmd.ID)
	}
	return body, nil
}

func (c *Conn) delete(ctx context.Context, cmd command.Delete) (int, error) {
	key, err := c.tableKey(cmd.Table)
	if err != nil {
		return 0, err
	}
	if cmd.ID != nil {
		return c.engine.store.remove(ctx, key, *cmd.ID)
	}
	return c.engine.store.removeTable(ctx, key)
}

// decodeContent checks that content is a CBOR map with string keys.
func decodeContent(content codec.RawMessage) (map[string]any, error) {
	if len(content) == 0 {
		return map[string]any{}, nil
	}
	var decoded map[string]any
	if err := codec.Unmarshal(content, &decoded); err != nil {
		return nil, errorf(CodeInvalidRequest, "record content must be a map: %v", err)
	}
	if decoded == nil {
		decoded = map[string]any{}
	}
	return decoded, nil
}

// encodeRecord sets the record's id field and encodes it.
func encodeRecord(content map[string]any, id string) ([]byte, error) {
	content["id"] = id
	body, err := codec.Marshal(content)
	if err != nil {
		return nil, fmt.Errorf("engine: encoding record %s: %w", id, err)
	}
	return body, nil
}
