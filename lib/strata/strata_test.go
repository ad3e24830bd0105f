// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package strata

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/bureau-foundation/strata/lib/codec"
	"github.com/bureau-foundation/strata/lib/command"
	"github.com/bureau-foundation/strata/lib/router"
	"github.com/bureau-foundation/strata/lib/testutil"
)

// recordingRouter records every submitted command and answers with a
// fixed result.
type recordingRouter struct {
	mu       sync.Mutex
	commands []command.Command
	result   codec.RawMessage
	err      error
	closed   int
}

func (r *recordingRouter) Execute(_ context.Context, cmd command.Command) (codec.RawMessage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.commands = append(r.commands, cmd)
	return r.result, r.err
}

func (r *recordingRouter) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed++
	return nil
}

func (r *recordingRouter) submitted() []command.Command {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]command.Command(nil), r.commands...)
}

// blockingRouter holds every call until release is closed or the
// context ends.
type blockingRouter struct {
	entered chan struct{}
	release chan struct{}
}

func (r *blockingRouter) Execute(ctx context.Context, _ command.Command) (codec.RawMessage, error) {
	r.entered <- struct{}{}
	select {
	case <-r.release:
		return nil, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (r *blockingRouter) Close() error { return nil }

func boundDB(t *testing.T, r router.Router) *DB {
	t.Helper()
	db := New()
	db.ConnectRouter(r)
	t.Cleanup(func() { db.Close() })
	return db
}

func stringValue(pointer *string) string {
	if pointer == nil {
		return "<unset>"
	}
	return *pointer
}

func requireSingleUse(t *testing.T, r *recordingRouter) command.Use {
	t.Helper()
	submitted := r.submitted()
	if len(submitted) != 1 {
		t.Fatalf("router received %d commands, want 1", len(submitted))
	}
	use, ok := submitted[0].(command.Use)
	if !ok {
		t.Fatalf("router received %T, want command.Use", submitted[0])
	}
	return use
}

func TestUseWithNoFieldsSubmitsEmptyCommand(t *testing.T) {
	recorder := &recordingRouter{}
	db := boundDB(t, recorder)

	if err := db.Use().Exec(context.Background()); err != nil {
		t.Fatalf("Exec: %v", err)
	}
	use := requireSingleUse(t, recorder)
	if use.Namespace != nil || use.Database != nil || use.Session != nil {
		t.Fatalf("command = {%s %s %s}, want all unset",
			stringValue(use.Namespace), stringValue(use.Database), stringValue(use.Session))
	}
}

func TestUseNamespaceAndDatabase(t *testing.T) {
	recorder := &recordingRouter{}
	db := boundDB(t, recorder)

	if err := db.Use().WithNamespace("app").WithDatabase("prod").Exec(context.Background()); err != nil {
		t.Fatalf("Exec: %v", err)
	}
	use := requireSingleUse(t, recorder)
	if stringValue(use.Namespace) != "app" || stringValue(use.Database) != "prod" || use.Session != nil {
		t.Fatalf("command = {%s %s %s}, want {app prod <unset>}",
			stringValue(use.Namespace), stringValue(use.Database), stringValue(use.Session))
	}
}

func TestUseLastWriteWins(t *testing.T) {
	tests := []struct {
		name                string
		build               func(Use) Use
		namespace, database string
		session             string
	}{
		{
			name:      "namespace twice",
			build:     func(u Use) Use { return u.WithNamespace("a").WithNamespace("b") },
			namespace: "b", database: "<unset>", session: "<unset>",
		},
		{
			name: "interleaved fields",
			build: func(u Use) Use {
				return u.WithDatabase("d1").WithNamespace("n1").WithDatabase("d2").WithSession("s1")
			},
			namespace: "n1", database: "d2", session: "s1",
		},
		{
			name:      "order independent",
			build:     func(u Use) Use { return u.WithSession("s1").WithDatabase("d2").WithNamespace("n1") },
			namespace: "n1", database: "d2", session: "s1",
		},
		{
			name:      "session only",
			build:     func(u Use) Use { return u.WithSession("x").WithSession("y") },
			namespace: "<unset>", database: "<unset>", session: "y",
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			recorder := &recordingRouter{}
			db := boundDB(t, recorder)
			builder := test.build(db.Use())

			if err := builder.Exec(context.Background()); err != nil {
				t.Fatalf("Exec: %v", err)
			}
			use := requireSingleUse(t, recorder)
			if got := stringValue(use.Namespace); got != test.namespace {
				t.Errorf("namespace = %s, want %s", got, test.namespace)
			}
			if got := stringValue(use.Database); got != test.database {
				t.Errorf("database = %s, want %s", got, test.database)
			}
			if got := stringValue(use.Session); got != test.session {
				t.Errorf("session = %s, want %s", got, test.session)
			}
		})
	}
}

func TestBuildersAreIndependentValues(t *testing.T) {
	recorder := &recordingRouter{}
	db := boundDB(t, recorder)

	base := db.Use().WithNamespace("shared")
	left := base.WithDatabase("left")
	right := base.WithDatabase("right")

	if stringValue(base.Command().Database) != "<unset>" {
		t.Fatal("deriving a builder modified its parent")
	}
	if stringValue(left.Command().Database) != "left" || stringValue(right.Command().Database) != "right" {
		t.Fatal("sibling builders share a field")
	}
	if len(recorder.submitted()) != 0 {
		t.Fatal("configuring builders submitted a command")
	}
}

func TestUnboundHandleIsNotConnected(t *testing.T) {
	db := New()
	ctx := context.Background()

	if err := db.Use().WithNamespace("app").Exec(ctx); !errors.Is(err, router.ErrNotConnected) {
		t.Fatalf("Use on unbound handle = %v, want ErrNotConnected", err)
	}
	if _, err := db.Version().Exec(ctx); !errors.Is(err, router.ErrNotConnected) {
		t.Fatalf("Version on unbound handle = %v, want ErrNotConnected", err)
	}
	if _, err := Select[map[string]any](db, "person").Exec(ctx); !errors.Is(err, router.ErrNotConnected) {
		t.Fatalf("Select on unbound handle = %v, want ErrNotConnected", err)
	}

	var zero Use
	if err := zero.Exec(ctx); !errors.Is(err, router.ErrNotConnected) {
		t.Fatalf("zero builder = %v, want ErrNotConnected", err)
	}
}

func TestClosedHandleIsNotConnected(t *testing.T) {
	recorder := &recordingRouter{}
	db := New()
	db.ConnectRouter(recorder)
	if err := db.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if recorder.closed != 1 {
		t.Fatalf("router closed %d times, want 1", recorder.closed)
	}

	if err := db.Use().Exec(context.Background()); !errors.Is(err, router.ErrNotConnected) {
		t.Fatalf("Exec after Close = %v, want ErrNotConnected", err)
	}
	if len(recorder.submitted()) != 0 {
		t.Fatalf("closed handle submitted %d commands", len(recorder.submitted()))
	}
}

func TestSetEncodingFailureSubmitsNothing(t *testing.T) {
	recorder := &recordingRouter{}
	db := boundDB(t, recorder)

	if _, err := db.Set("callback", func() {}).Exec(context.Background()); err == nil {
		t.Fatal("Set with unencodable value succeeded")
	}
	if len(recorder.submitted()) != 0 {
		t.Fatal("command submitted despite encoding failure")
	}
}

func TestBackendErrorIsReturnedVerbatim(t *testing.T) {
	rejection := &router.BackendError{Method: command.MethodUse, Code: "invalid_name", Message: "namespace name \"a b\" is invalid"}
	recorder := &recordingRouter{err: rejection}
	db := boundDB(t, recorder)

	err := db.Use().WithNamespace("a b").Exec(context.Background())
	if err != rejection {
		t.Fatalf("Exec error = %v, want the router's error unchanged", err)
	}
}

func TestResultComesFromRouter(t *testing.T) {
	encoded, err := codec.Marshal("strata-9.9.9")
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	recorder := &recordingRouter{result: encoded}
	db := boundDB(t, recorder)

	version, err := db.Version().Exec(context.Background())
	if err != nil {
		t.Fatalf("Exec: %v", err)
	}
	if version != "strata-9.9.9" {
		t.Fatalf("version = %q, want the router's result", version)
	}
	if submitted := recorder.submitted(); len(submitted) != 1 || submitted[0].Method() != command.MethodVersion {
		t.Fatalf("submitted = %v", submitted)
	}
}

func TestToOwnedPreservesBehavior(t *testing.T) {
	recorder := &recordingRouter{}
	db := boundDB(t, recorder)

	borrowed := db.Use().WithNamespace("app")
	owned := borrowed.ToOwned()
	if owned.db == db || owned.db.shared != db.shared {
		t.Fatal("ToOwned did not produce a clone sharing the router slot")
	}

	// Configure and run the owned builder on another goroutine.
	result := make(chan error, 1)
	go func() {
		result <- owned.WithDatabase("prod").Exec(context.Background())
	}()
	if err := testutil.RequireReceive(t, result, 5*time.Second, "owned builder"); err != nil {
		t.Fatalf("owned Exec: %v", err)
	}
	if err := borrowed.WithDatabase("prod").Exec(context.Background()); err != nil {
		t.Fatalf("borrowed Exec: %v", err)
	}

	submitted := recorder.submitted()
	if len(submitted) != 2 {
		t.Fatalf("router received %d commands, want 2", len(submitted))
	}
	first, second := submitted[0].(command.Use), submitted[1].(command.Use)
	if stringValue(first.Namespace) != stringValue(second.Namespace) ||
		stringValue(first.Database) != stringValue(second.Database) ||
		stringValue(first.Session) != stringValue(second.Session) {
		t.Fatalf("owned and borrowed commands differ: %+v vs %+v", first, second)
	}
}

func TestOwnedBuilderOutlivesUnboundClone(t *testing.T) {
	db := New()
	owned := db.Use().ToOwned()

	// Binding after the builder was made is seen at execution time.
	recorder := &recordingRouter{}
	db.ConnectRouter(recorder)
	defer db.Close()

	if err := owned.Exec(context.Background()); err != nil {
		t.Fatalf("Exec: %v", err)
	}
	if len(recorder.submitted()) != 1 {
		t.Fatal("owned builder did not reach the router bound later")
	}
}

func TestReconnectReplacesRouter(t *testing.T) {
	first := &recordingRouter{}
	second := &recordingRouter{}
	db := boundDB(t, first)
	future := db.Use().WithNamespace("app").Future()

	db.ConnectRouter(second)
	if first.closed != 1 {
		t.Fatal("replaced router was not closed")
	}
	if _, err := future.Wait(context.Background()); err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if len(first.submitted()) != 0 || len(second.submitted()) != 1 {
		t.Fatalf("submissions: first=%d second=%d, want 0 and 1", len(first.submitted()), len(second.submitted()))
	}
}

func TestCloneSharesBinding(t *testing.T) {
	recorder := &recordingRouter{}
	db := boundDB(t, recorder)
	clone := db.Clone()

	if !clone.Connected() {
		t.Fatal("clone is not connected")
	}
	if err := clone.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if db.Connected() {
		t.Fatal("closing a clone left the original bound")
	}
}

func TestConnectRejectsBadEndpoints(t *testing.T) {
	for _, endpoint := range []string{"", "localhost:7480", "http://example.com", "tcp://nohost"} {
		if _, err := Connect(context.Background(), endpoint); err == nil {
			t.Errorf("Connect(%q) succeeded", endpoint)
		}
	}
}

func TestFailedReconnectKeepsBinding(t *testing.T) {
	recorder := &recordingRouter{}
	db := boundDB(t, recorder)

	if err := db.Connect(context.Background(), "unix://"+testutil.SocketPath(t, "absent.sock")); err == nil {
		t.Fatal("Connect to a missing socket succeeded")
	}
	if !db.Connected() || recorder.closed != 0 {
		t.Fatal("failed Connect disturbed the existing binding")
	}
}

func TestCancelledWait(t *testing.T) {
	blocking := &blockingRouter{entered: make(chan struct{}, 1), release: make(chan struct{})}
	db := boundDB(t, blocking)

	ctx, cancel := context.WithCancel(context.Background())
	result := make(chan error, 1)
	go func() {
		result <- db.Use().WithNamespace("app").Exec(ctx)
	}()
	testutil.RequireReceive(t, blocking.entered, 5*time.Second, "command submitted")
	cancel()
	if err := testutil.RequireReceive(t, result, 5*time.Second, "cancelled Exec"); !errors.Is(err, context.Canceled) {
		t.Fatalf("Exec = %v, want context.Canceled", err)
	}
}
