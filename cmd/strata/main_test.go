// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/bureau-foundation/strata/lib/engine"
	"github.com/bureau-foundation/strata/lib/router"
	"github.com/bureau-foundation/strata/lib/server"
	"github.com/bureau-foundation/strata/lib/sqlitepool"
	"github.com/bureau-foundation/strata/lib/strata"
	"github.com/bureau-foundation/strata/lib/testutil"
)

// run executes the strata command tree with args and returns stdout.
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out strings.Builder
	err := rootCommand(context.Background(), &out).Execute(args)
	return out.String(), err
}

// fileEndpoint returns a database file endpoint in a fresh directory,
// with the environment cleared so only flags select the target.
func fileEndpoint(t *testing.T) string {
	t.Helper()
	t.Setenv("STRATA_CONFIG", "")
	t.Setenv("STRATA_ENDPOINT", "")
	return "file://" + filepath.Join(t.TempDir(), "data.db")
}

func TestRecordWorkflow(t *testing.T) {
	endpoint := fileEndpoint(t)
	scope := []string{"--endpoint", endpoint, "-n", "test", "-d", "test"}
	with := func(args ...string) []string { return append(args, scope...) }

	output, err := run(t, with("create", "person", `{"name": "Tobie"}`, "--id", "tobie")...)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if got := strings.TrimSpace(output); got != `{"id":"tobie","name":"Tobie"}` {
		t.Errorf("create output = %q", got)
	}

	if _, err := run(t, with("create", "person", `{"name": "Jaime", /* trailing comma */ "id": "jaime",}`)...); err != nil {
		t.Fatalf("create with content id: %v", err)
	}

	output, err = run(t, with("select", "person")...)
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(output), "\n")
	if len(lines) != 2 || !strings.Contains(lines[0], `"jaime"`) || !strings.Contains(lines[1], `"tobie"`) {
		t.Errorf("select output = %q, want jaime then tobie", output)
	}

	output, err = run(t, with("upsert", "person", "tobie", `{"name": "Tobie", "admin": true}`)...)
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if got := strings.TrimSpace(output); got != `{"admin":true,"id":"tobie","name":"Tobie"}` {
		t.Errorf("upsert output = %q", got)
	}

	output, err = run(t, with("select", "person", "tobie", "--json")...)
	if err != nil {
		t.Fatalf("select by id: %v", err)
	}
	var records []map[string]any
	if err := json.Unmarshal([]byte(output), &records); err != nil {
		t.Fatalf("select --json output is not a JSON array: %v\n%s", err, output)
	}
	if len(records) != 1 || records[0]["admin"] != true {
		t.Errorf("select tobie = %v, want the upserted record", records)
	}

	output, err = run(t, with("delete", "person", "tobie")...)
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if strings.TrimSpace(output) != "deleted 1" {
		t.Errorf("delete output = %q, want deleted 1", output)
	}

	_, err = run(t, with("select", "person", "tobie")...)
	if !router.IsBackendCode(err, "not_found") {
		t.Errorf("select deleted record error = %v, want not_found", err)
	}

	output, err = run(t, with("delete", "person")...)
	if err != nil {
		t.Fatalf("delete table: %v", err)
	}
	if strings.TrimSpace(output) != "deleted 1" {
		t.Errorf("delete table output = %q, want deleted 1", output)
	}
}

func TestCreateDuplicateIsBackendError(t *testing.T) {
	endpoint := fileEndpoint(t)
	args := []string{"create", "person", "--id", "tobie", "--endpoint", endpoint, "-n", "test", "-d", "test"}
	if _, err := run(t, args...); err != nil {
		t.Fatalf("first create: %v", err)
	}
	_, err := run(t, args...)
	if !router.IsBackendCode(err, "already_exists") {
		t.Errorf("second create error = %v, want already_exists", err)
	}
}

func TestRecordCommandsNeedScope(t *testing.T) {
	endpoint := fileEndpoint(t)
	_, err := run(t, "select", "person", "--endpoint", endpoint)
	if !router.IsBackendCode(err, "no_namespace") {
		t.Errorf("select without namespace error = %v, want no_namespace", err)
	}
}

func TestCreateRejectsNonObjectContent(t *testing.T) {
	endpoint := fileEndpoint(t)
	_, err := run(t, "create", "person", `["not", "an", "object"]`, "--endpoint", endpoint, "-n", "test", "-d", "test")
	if err == nil || !strings.Contains(err.Error(), "expected a JSON object") {
		t.Errorf("create error = %v, want expected a JSON object", err)
	}
}

func TestInfoAndUse(t *testing.T) {
	endpoint := fileEndpoint(t)

	output, err := run(t, "info", "--endpoint", endpoint)
	if err != nil {
		t.Fatalf("info: %v", err)
	}
	if !strings.Contains(output, "session:") || !strings.Contains(output, "namespace: \n") {
		t.Errorf("info output = %q, want an empty namespace", output)
	}

	output, err = run(t, "use", "--endpoint", endpoint, "-n", "app", "-d", "main", "--json")
	if err != nil {
		t.Fatalf("use: %v", err)
	}
	var info map[string]string
	if err := json.Unmarshal([]byte(output), &info); err != nil {
		t.Fatalf("use --json output: %v\n%s", err, output)
	}
	if info["namespace"] != "app" || info["database"] != "main" || info["session"] == "" {
		t.Errorf("use = %v, want app/main with a session id", info)
	}

	_, err = run(t, "use", "--endpoint", endpoint, "-n", "bad name")
	if !router.IsBackendCode(err, "invalid_name") {
		t.Errorf("use with invalid namespace error = %v, want invalid_name", err)
	}
}

func TestHealthAndVersion(t *testing.T) {
	endpoint := fileEndpoint(t)

	output, err := run(t, "health", "--endpoint", endpoint)
	if err != nil {
		t.Fatalf("health: %v", err)
	}
	if strings.TrimSpace(output) != "ok" {
		t.Errorf("health output = %q, want ok", output)
	}

	output, err = run(t, "version", "--endpoint", endpoint)
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	if !strings.HasPrefix(output, "strata ") || !strings.Contains(output, "\nserver ") {
		t.Errorf("version output = %q, want client and server lines", output)
	}

	output, err = run(t, "version", "--client")
	if err != nil {
		t.Fatalf("version --client: %v", err)
	}
	if strings.Contains(output, "server") {
		t.Errorf("version --client output = %q, want no server line", output)
	}
}

func TestHealthUnreachableServer(t *testing.T) {
	t.Setenv("STRATA_CONFIG", "")
	socket := "unix://" + filepath.Join(t.TempDir(), "missing.sock")
	_, err := run(t, "health", "--endpoint", socket, "--timeout", "2s")
	if err == nil {
		t.Fatal("health against a missing socket succeeded")
	}
}

func TestMissingEndpoint(t *testing.T) {
	t.Setenv("STRATA_CONFIG", "")
	t.Setenv("STRATA_ENDPOINT", "")
	_, err := run(t, "info")
	if err == nil || !strings.Contains(err.Error(), "no endpoint") {
		t.Errorf("info error = %v, want no endpoint", err)
	}
}

func TestEndpointFromConfig(t *testing.T) {
	t.Setenv("STRATA_ENDPOINT", "")
	directory := t.TempDir()
	configPath := filepath.Join(directory, "strata.yaml")
	content := "paths:\n  root: " + directory + "\n" +
		"client:\n  endpoint: file://${STRATA_ROOT}/client.db\n  namespace: test\n  database: test\n"
	if err := os.WriteFile(configPath, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("STRATA_CONFIG", configPath)

	if _, err := run(t, "create", "person", "--id", "tobie"); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := os.Stat(filepath.Join(directory, "client.db")); err != nil {
		t.Errorf("config endpoint not used: %v", err)
	}
	output, err := run(t, "select", "person")
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	if !strings.Contains(output, `"tobie"`) {
		t.Errorf("select output = %q, want tobie", output)
	}
}

func TestArgumentCounts(t *testing.T) {
	endpoint := fileEndpoint(t)
	for _, args := range [][]string{
		{"select"},
		{"select", "person", "tobie", "extra"},
		{"upsert", "person", "tobie"},
		{"set", "theme"},
		{"info", "extra"},
	} {
		_, err := run(t, append(args, "--endpoint", endpoint)...)
		if err == nil || !strings.Contains(err.Error(), "argument") {
			t.Errorf("%v: error = %v, want an argument count error", args, err)
		}
	}
}

func TestUnknownCommandSuggestion(t *testing.T) {
	_, err := run(t, "selct")
	if err == nil || !strings.Contains(err.Error(), `did you mean "select"?`) {
		t.Errorf("error = %v, want suggestion for select", err)
	}
}

// TestSessionSharedWithCLI joins a session held open by another client
// and changes it from the command line.
func TestSessionSharedWithCLI(t *testing.T) {
	t.Setenv("STRATA_CONFIG", "")
	instance, err := engine.Open(engine.Config{Path: sqlitepool.MemoryPath})
	if err != nil {
		t.Fatalf("engine.Open: %v", err)
	}
	t.Cleanup(func() { instance.Close() })

	endpoint := router.Endpoint{Scheme: router.SchemeUnix, Address: testutil.SocketPath(t, "strata.sock")}
	listening, err := server.Listen(endpoint, instance, testutil.Logger(t))
	if err != nil {
		t.Fatalf("server.Listen: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		listening.Serve(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		testutil.RequireClosed(t, done, 5*time.Second, "server shutdown")
	})

	holder, err := strata.Connect(context.Background(), endpoint.String())
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	defer holder.Close()
	before, err := holder.Info().Exec(context.Background())
	if err != nil {
		t.Fatalf("Info: %v", err)
	}

	if _, err := run(t, "use", "--endpoint", endpoint.String(), "--session", before.Session, "-n", "shared", "-d", "main"); err != nil {
		t.Fatalf("use --session: %v", err)
	}
	if _, err := run(t, "set", "theme", `"dark"`, "--endpoint", endpoint.String(), "--session", before.Session); err != nil {
		t.Fatalf("set --session: %v", err)
	}

	after, err := holder.Info().Exec(context.Background())
	if err != nil {
		t.Fatalf("Info: %v", err)
	}
	if after.Namespace != "shared" || after.Database != "main" {
		t.Errorf("holder session = %+v, want shared/main", after)
	}

	if _, err := run(t, "invalidate", "--endpoint", endpoint.String(), "--session", before.Session); err != nil {
		t.Fatalf("invalidate: %v", err)
	}
	cleared, err := holder.Info().Exec(context.Background())
	if err != nil {
		t.Fatalf("Info: %v", err)
	}
	if cleared.Namespace != "" || cleared.Database != "" {
		t.Errorf("after invalidate = %+v, want empty context", cleared)
	}
}
