// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package engine

import (
	"log/slog"
	"maps"
	"sync"

	"github.com/google/uuid"

	"github.com/bureau-foundation/strata/lib/codec"
	"github.com/bureau-foundation/strata/lib/command"
)

type session struct {
	id        uuid.UUID
	namespace string
	database  string
	variables map[string]codec.RawMessage

	// attached counts the Conns whose active session this is. The
	// session is dropped when it reaches zero.
	attached int
}

// sessionRegistry owns every live session. All session fields are
// guarded by mu because several Conns may share one session.
type sessionRegistry struct {
	mu       sync.Mutex
	sessions map[uuid.UUID]*session
	logger   *slog.Logger
}

func newSessionRegistry(logger *slog.Logger) *sessionRegistry {
	return &sessionRegistry{
		sessions: make(map[uuid.UUID]*session),
		logger:   logger,
	}
}

// attachNew creates a session with a random identifier and attaches
// one Conn to it.
func (r *sessionRegistry) attachNew() *session {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.attachLocked(uuid.New())
}

func (r *sessionRegistry) attachLocked(id uuid.UUID) *session {
	current, exists := r.sessions[id]
	if !exists {
		current = &session{id: id, variables: make(map[string]codec.RawMessage)}
		r.sessions[id] = current
		r.logger.Debug("session created", "session", id.String())
	}
	current.attached++
	return current
}

func (r *sessionRegistry) detachLocked(current *session) {
	current.attached--
	if current.attached <= 0 {
		delete(r.sessions, current.id)
		r.logger.Debug("session dropped", "session", current.id.String())
	}
}

func (r *sessionRegistry) detach(current *session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.detachLocked(current)
}

// count returns the number of live sessions.
func (r *sessionRegistry) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// switchContext applies a "use" to the session pointed to by active.
// Inputs are already validated, so nothing here can fail part way.
// It returns the session the Conn is now on.
func (r *sessionRegistry) switchContext(active *session, sessionID *uuid.UUID, namespace, database *string) *session {
	r.mu.Lock()
	defer r.mu.Unlock()

	if sessionID != nil && *sessionID != active.id {
		next := r.attachLocked(*sessionID)
		r.detachLocked(active)
		active = next
	}
	if namespace != nil {
		active.namespace = *namespace
	}
	if database != nil {
		active.database = *database
	}
	return active
}

func (r *sessionRegistry) info(active *session) command.SessionInfo {
	r.mu.Lock()
	defer r.mu.Unlock()
	return command.SessionInfo{
		Session:   active.id.String(),
		Namespace: active.namespace,
		Database:  active.database,
	}
}

func (r *sessionRegistry) scope(active *session) (namespace, database string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return active.namespace, active.database
}

func (r *sessionRegistry) setVariable(active *session, key string, value codec.RawMessage) {
	r.mu.Lock()
	defer r.mu.Unlock()
	active.variables[key] = value
}

func (r *sessionRegistry) unsetVariable(active *session, key string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(active.variables, key)
}

func (r *sessionRegistry) variables(active *session) map[string]codec.RawMessage {
	r.mu.Lock()
	defer r.mu.Unlock()
	return maps.Clone(active.variables)
}

func (r *sessionRegistry) invalidate(active *session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	active.namespace = ""
	active.database = ""
	clear(active.variables)
}
