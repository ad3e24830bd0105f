// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"sync"
	"time"

	"github.com/bureau-foundation/strata/lib/codec"
	"github.com/bureau-foundation/strata/lib/command"
	"github.com/bureau-foundation/strata/lib/engine"
	"github.com/bureau-foundation/strata/lib/router"
)

// writeTimeout is how long the server waits for a response write to
// complete before dropping the connection.
const writeTimeout = 10 * time.Second

// Server accepts connections for one endpoint.
type Server struct {
	endpoint router.Endpoint
	engine   *engine.Engine
	logger   *slog.Logger
	listener net.Listener

	mu          sync.Mutex
	connections map[net.Conn]struct{}

	// activeConnections tracks connection handlers for graceful
	// shutdown.
	activeConnections sync.WaitGroup
}

// Listen binds endpoint and returns a server ready to Serve. A stale
// unix socket file at the endpoint path is removed first.
func Listen(endpoint router.Endpoint, instance *engine.Engine, logger *slog.Logger) (*Server, error) {
	if !endpoint.Remote() {
		return nil, fmt.Errorf("server: cannot listen on %s", endpoint)
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	if endpoint.Scheme == router.SchemeUnix {
		if err := os.Remove(endpoint.Address); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("server: removing stale socket %s: %w", endpoint.Address, err)
		}
	}
	listener, err := net.Listen(endpoint.Network(), endpoint.Address)
	if err != nil {
		return nil, fmt.Errorf("server: listening on %s: %w", endpoint, err)
	}

	return &Server{
		endpoint:    endpoint,
		engine:      instance,
		logger:      logger,
		listener:    listener,
		connections: make(map[net.Conn]struct{}),
	}, nil
}

// Addr returns the bound address. For "tcp://host:0" it carries the
// port that was assigned.
func (s *Server) Addr() net.Addr {
	return s.listener.Addr()
}

// Endpoint returns the endpoint clients should dial.
func (s *Server) Endpoint() router.Endpoint {
	if s.endpoint.Scheme == router.SchemeTCP {
		return router.Endpoint{Scheme: router.SchemeTCP, Address: s.listener.Addr().String()}
	}
	return s.endpoint
}

// Serve accepts connections until ctx is cancelled, then shuts down.
// It always releases the listener before returning.
func (s *Server) Serve(ctx context.Context) error {
	defer func() {
		s.listener.Close()
		if s.endpoint.Scheme == router.SchemeUnix {
			os.Remove(s.endpoint.Address)
		}
	}()

	// Unblock Accept and active reads when the context is cancelled.
	stop := context.AfterFunc(ctx, func() {
		s.listener.Close()
		s.closeConnections()
	})
	defer stop()

	s.logger.Info("server listening", "endpoint", s.Endpoint().String())

	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				break
			}
			s.logger.Error("accept failed", "error", err)
			continue
		}
		if !s.track(conn) {
			conn.Close()
			break
		}

		s.activeConnections.Add(1)
		go func() {
			defer s.activeConnections.Done()
			defer s.untrack(conn)
			s.handleConnection(ctx, conn)
		}()
	}

	s.closeConnections()
	s.activeConnections.Wait()
	s.logger.Info("server stopped", "endpoint", s.Endpoint().String())
	return nil
}

// track registers conn for shutdown. It returns false once shutdown
// has started.
func (s *Server) track(conn net.Conn) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.connections == nil {
		return false
	}
	s.connections[conn] = struct{}{}
	return true
}

func (s *Server) untrack(conn net.Conn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.connections, conn)
}

func (s *Server) closeConnections() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for conn := range s.connections {
		conn.Close()
	}
	s.connections = nil
}

// handleConnection serves one client until it disconnects or the
// server shuts down.
func (s *Server) handleConnection(ctx context.Context, conn net.Conn) {
	defer conn.Close()

	logger := s.logger.With("remote", conn.RemoteAddr().String())
	if credentials, err := peerCredentials(conn); err == nil {
		logger = logger.With("peer_pid", credentials.PID, "peer_uid", credentials.UID)
	}

	session := s.engine.NewConn()
	defer session.Close()
	logger.Debug("connection opened", "session", session.Info().Session)

	decoder := codec.NewDecoder(conn)
	encoder := codec.NewEncoder(conn)
	for {
		// Decode the raw value first so that a malformed envelope
		// still consumes exactly one item and the stream stays in
		// sync.
		var raw codec.RawMessage
		if err := decoder.Decode(&raw); err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, net.ErrClosed) && ctx.Err() == nil {
				logger.Debug("closing connection on unreadable stream", "error", err)
			}
			break
		}

		response := s.handle(ctx, session, raw, logger)

		conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := encoder.Encode(response); err != nil {
			logger.Debug("failed to write response", "id", response.ID, "error", err)
			break
		}
	}
	logger.Debug("connection closed")
}

// handle decodes and executes one request. It always returns a
// response carrying the request's ID, or [command.ConnectionID] when
// no ID could be read.
func (s *Server) handle(ctx context.Context, session *engine.Conn, raw codec.RawMessage, logger *slog.Logger) *command.Response {
	var request command.Request
	if err := codec.Unmarshal(raw, &request); err != nil {
		return failure(command.ConnectionID, engine.CodeInvalidRequest, fmt.Sprintf("invalid request: %v", err))
	}

	cmd, err := command.Unmarshal(request.Method, request.Params)
	if err != nil {
		if errors.Is(err, command.ErrUnknownMethod) {
			return failure(request.ID, engine.CodeUnknownMethod, fmt.Sprintf("unknown method %q", request.Method))
		}
		return failure(request.ID, engine.CodeInvalidRequest, err.Error())
	}

	result, err := session.Execute(ctx, cmd)
	if err != nil {
		var rejection *engine.Error
		if errors.As(err, &rejection) {
			logger.Debug("command rejected", "method", request.Method, "code", rejection.Code, "message", rejection.Message)
			return failure(request.ID, rejection.Code, rejection.Message)
		}
		logger.Error("command failed", "method", request.Method, "error", err)
		return failure(request.ID, engine.CodeInternal, err.Error())
	}

	response := &command.Response{ID: request.ID, OK: true}
	switch result := result.(type) {
	case nil:
	case codec.RawMessage:
		response.Data = result
	default:
		data, err := codec.Marshal(result)
		if err != nil {
			return failure(request.ID, engine.CodeInternal, fmt.Sprintf("encoding %s result: %v", request.Method, err))
		}
		response.Data = data
	}
	return response
}

func failure(id uint64, code engine.Code, message string) *command.Response {
	return &command.Response{
		ID:    id,
		Error: &command.ResponseError{Code: string(code), Message: message},
	}
}
