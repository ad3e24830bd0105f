// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package router

import "sync/atomic"

// Slot holds the router of one connection handle. The zero value is an
// empty slot. Slot is safe for concurrent use: Lookup and Resolve are
// lock-free reads; Bind and Unbind swap atomically.
type Slot struct {
	current atomic.Pointer[binding]
}

type binding struct {
	router Router
}

// Lookup returns the bound router, or false when the slot is empty.
func (s *Slot) Lookup() (Router, bool) {
	bound := s.current.Load()
	if bound == nil {
		return nil, false
	}
	return bound.router, true
}

// Resolve returns the bound router or [ErrNotConnected].
func (s *Slot) Resolve() (Router, error) {
	r, ok := s.Lookup()
	if !ok {
		return nil, ErrNotConnected
	}
	return r, nil
}

// Bind installs r and returns the router it replaced, if any. The
// caller owns the returned router and is responsible for closing it.
// Binding nil is equivalent to Unbind.
func (s *Slot) Bind(r Router) Router {
	var next *binding
	if r != nil {
		next = &binding{router: r}
	}
	previous := s.current.Swap(next)
	if previous == nil {
		return nil
	}
	return previous.router
}

// Unbind empties the slot and returns the router that was bound.
func (s *Slot) Unbind() Router {
	return s.Bind(nil)
}
