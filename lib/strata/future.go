// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package strata

import (
	"context"
	"sync/atomic"
)

// Future is a pending command. It is created eagerly by a builder but
// performs no work until driven by [Future.Wait] or [Future.Go]. It is
// driven at most once: the first driver runs it, and every later Wait
// returns the same result.
type Future[T any] struct {
	run     func(context.Context) (T, error)
	started atomic.Bool
	done    chan struct{}

	// value and err are written once before done is closed.
	value T
	err   error
}

func newFuture[T any](run func(context.Context) (T, error)) *Future[T] {
	return &Future[T]{run: run, done: make(chan struct{})}
}

// Wait drives the future if no one has yet, then waits for its result.
// A completed future always returns its result, whatever the state of
// ctx. Otherwise, if ctx is done first, Wait returns ctx.Err(); when
// this call is the driver, the driver's outcome is the future's result,
// and a cancelled command may or may not have reached the backend.
func (f *Future[T]) Wait(ctx context.Context) (T, error) {
	if f.started.CompareAndSwap(false, true) {
		f.complete(ctx)
		return f.value, f.err
	}
	select {
	case <-f.done:
		return f.value, f.err
	default:
	}
	select {
	case <-f.done:
		return f.value, f.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Go drives the future on a new goroutine with ctx and returns f. Use
// [Future.Done] to learn when the result is ready. Go on a future that
// is already driven does nothing.
func (f *Future[T]) Go(ctx context.Context) *Future[T] {
	if f.started.CompareAndSwap(false, true) {
		go f.complete(ctx)
	}
	return f
}

// Done returns a channel closed once the result is ready. It never
// closes for a future that is not driven.
func (f *Future[T]) Done() <-chan struct{} {
	return f.done
}

func (f *Future[T]) complete(ctx context.Context) {
	f.value, f.err = f.run(ctx)
	close(f.done)
}
