// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package testutil

import (
	"fmt"
	"time"
)

// TB is the subset of testing.TB the channel helpers need.
type TB interface {
	Helper()
	Fatalf(format string, args ...any)
}

// RequireReceive returns the next value from ch, failing the test if
// none arrives within timeout or ch is closed first.
//
//	reply := testutil.RequireReceive(t, replies, 5*time.Second, "reply to %d", id)
func RequireReceive[T any](t TB, ch <-chan T, timeout time.Duration, msgAndArgs ...any) T {
	t.Helper()
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	select {
	case value, ok := <-ch:
		if !ok {
			t.Fatalf("%s: channel closed before a value arrived", describe(msgAndArgs))
		}
		return value
	case <-deadline.C:
		t.Fatalf("%s: nothing received within %v", describe(msgAndArgs), timeout)
	}
	panic("unreachable")
}

// RequireSend delivers value on ch, failing the test if no receiver
// takes it within timeout.
func RequireSend[T any](t TB, ch chan<- T, value T, timeout time.Duration, msgAndArgs ...any) {
	t.Helper()
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	select {
	case ch <- value:
	case <-deadline.C:
		t.Fatalf("%s: send not taken within %v", describe(msgAndArgs), timeout)
	}
}

// RequireClosed waits for a done channel, such as a Future's Done or a
// server's exit signal.
//
//	testutil.RequireClosed(t, serveDone, 5*time.Second, "server shutdown")
func RequireClosed(t TB, ch <-chan struct{}, timeout time.Duration, msgAndArgs ...any) {
	t.Helper()
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	select {
	case <-ch:
	case <-deadline.C:
		t.Fatalf("%s: still open after %v", describe(msgAndArgs), timeout)
	}
}

// describe renders the optional message: a plain value, or a format
// string followed by its arguments.
func describe(msgAndArgs []any) string {
	switch {
	case len(msgAndArgs) == 0:
		return "wait"
	case len(msgAndArgs) == 1:
		return fmt.Sprint(msgAndArgs[0])
	}
	if format, ok := msgAndArgs[0].(string); ok {
		return fmt.Sprintf(format, msgAndArgs[1:]...)
	}
	return fmt.Sprint(msgAndArgs...)
}
