// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package remote provides a [router.Router] that talks to strata-server
// over one persistent stream connection.
//
// Requests and responses are CBOR values written back to back on the
// stream. CBOR is self-delimiting, so no framing is needed. Every
// request carries an ID chosen by the router; the server echoes it in
// the response, and a background read loop hands each response to the
// caller waiting on that ID. Writes are serialized by a mutex, so
// requests reach the server in the order their writes were issued.
//
// When the connection fails, every pending call returns
// [router.ErrConnectionClosed] and the router stays closed. The router
// does not reconnect; a new one must be dialed.
package remote

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bureau-foundation/strata/lib/codec"
	"github.com/bureau-foundation/strata/lib/command"
	"github.com/bureau-foundation/strata/lib/router"
)

// dialTimeout bounds the connect phase only. Calls are bounded by
// their context.
const dialTimeout = 5 * time.Second

// Router is a connection to strata-server. It is safe for concurrent
// use.
type Router struct {
	conn   net.Conn
	logger *slog.Logger

	writeMu sync.Mutex
	encoder *codec.Encoder

	nextID atomic.Uint64

	mu      sync.Mutex
	pending map[uint64]chan *command.Response
	closed  bool

	readDone chan struct{}
}

// Dial connects to a remote endpoint. The logger may be nil.
func Dial(ctx context.Context, endpoint router.Endpoint, logger *slog.Logger) (*Router, error) {
	if !endpoint.Remote() {
		return nil, fmt.Errorf("remote: %s is not a server endpoint", endpoint)
	}
	dialer := net.Dialer{Timeout: dialTimeout}
	conn, err := dialer.DialContext(ctx, endpoint.Network(), endpoint.Address)
	if err != nil {
		return nil, fmt.Errorf("remote: connecting to %s: %w", endpoint, err)
	}
	return New(conn, logger), nil
}

// New returns a router using an established connection and starts its
// read loop. The router owns conn.
func New(conn net.Conn, logger *slog.Logger) *Router {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	r := &Router{
		conn:     conn,
		logger:   logger,
		encoder:  codec.NewEncoder(conn),
		pending:  make(map[uint64]chan *command.Response),
		readDone: make(chan struct{}),
	}
	go r.readLoop()
	return r
}

// Execute sends cmd and waits for its response. If ctx is done first,
// Execute returns ctx.Err() and the response, when it arrives, is
// dropped. The command may still have been applied by the server.
//
// A write interrupted by ctx may leave a partial request on the
// stream, so it closes the router; the error matches both ctx.Err()
// and [router.ErrConnectionClosed].
func (r *Router) Execute(ctx context.Context, cmd command.Command) (codec.RawMessage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	method, params, err := command.Marshal(cmd)
	if err != nil {
		return nil, err
	}

	id := r.nextID.Add(1)
	reply := make(chan *command.Response, 1)

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil, router.ErrConnectionClosed
	}
	r.pending[id] = reply
	r.mu.Unlock()

	if err := r.write(ctx, command.Request{ID: id, Method: method, Params: params}); err != nil {
		r.forget(id)
		r.fail(err)
		if errors.Is(err, os.ErrDeadlineExceeded) {
			// Write deadlines come only from ctx, which is done or
			// about to be.
			<-ctx.Done()
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("%w: writing %s: %w", router.ErrConnectionClosed, method, ctxErr)
		}
		return nil, fmt.Errorf("%w: writing %s: %v", router.ErrConnectionClosed, method, err)
	}

	select {
	case response, ok := <-reply:
		if !ok {
			return nil, router.ErrConnectionClosed
		}
		if !response.OK {
			return nil, router.FromResponse(method, response)
		}
		return response.Data, nil
	case <-ctx.Done():
		r.forget(id)
		return nil, ctx.Err()
	}
}

// Close closes the connection and fails pending calls. Close is
// idempotent.
func (r *Router) Close() error {
	r.fail(nil)
	<-r.readDone
	return nil
}

// write encodes one request under the write lock. The write deadline
// follows ctx: its deadline if it has one, and an immediate timeout
// once it is cancelled.
func (r *Router) write(ctx context.Context, request command.Request) error {
	r.writeMu.Lock()
	defer r.writeMu.Unlock()

	deadline, _ := ctx.Deadline()
	r.conn.SetWriteDeadline(deadline)

	interrupted := make(chan struct{})
	stop := context.AfterFunc(ctx, func() {
		r.conn.SetWriteDeadline(time.Unix(1, 0))
		close(interrupted)
	})
	err := r.encoder.Encode(request)
	if !stop() {
		// The callback has run or is running; let it finish before the
		// next writer sets its own deadline.
		<-interrupted
	}
	return err
}

func (r *Router) forget(id uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.pending, id)
}

func (r *Router) readLoop() {
	defer close(r.readDone)

	decoder := codec.NewDecoder(r.conn)
	for {
		var response command.Response
		if err := decoder.Decode(&response); err != nil {
			r.fail(err)
			return
		}

		if response.ID == command.ConnectionID {
			cause := errors.New("server rejected the stream")
			if response.Error != nil {
				cause = fmt.Errorf("server rejected the stream (%s): %s", response.Error.Code, response.Error.Message)
			}
			r.fail(cause)
			return
		}

		r.mu.Lock()
		reply, exists := r.pending[response.ID]
		delete(r.pending, response.ID)
		r.mu.Unlock()

		if !exists {
			r.logger.Debug("dropping response with no pending call", "id", response.ID)
			continue
		}
		reply <- &response
	}
}

// fail marks the router closed, closes the connection, and releases
// every pending call. A nil cause means a local Close.
func (r *Router) fail(cause error) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	pending := r.pending
	r.pending = nil
	r.mu.Unlock()

	r.conn.Close()
	for _, reply := range pending {
		close(reply)
	}

	if cause != nil && !errors.Is(cause, io.EOF) && !errors.Is(cause, net.ErrClosed) {
		r.logger.Warn("connection lost", "remote", r.conn.RemoteAddr().String(), "error", cause, "pending", len(pending))
	} else if cause != nil {
		r.logger.Debug("connection closed by server", "pending", len(pending))
	}
}
