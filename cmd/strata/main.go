// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// strata is the command-line client for Strata databases. It connects
// to any endpoint the SDK accepts (a strata-server socket, or a
// database file opened in process), runs one command, and prints the
// result as JSON.
//
//	strata create person '{"name": "Tobie"}' --id tobie --namespace test --database test
//	strata select person --endpoint file:///tmp/strata.db -n test -d test
//
// The endpoint, namespace and database default to the client section
// of the file named by --config or STRATA_CONFIG.
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/bureau-foundation/strata/lib/process"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := rootCommand(ctx, os.Stdout).Execute(os.Args[1:])
	stop()
	if err == nil {
		return
	}

	// Commands that already reported their outcome return an
	// ExitError carrying only the exit code.
	var exitCoder interface{ ExitCode() int }
	if errors.As(err, &exitCoder) {
		os.Exit(exitCoder.ExitCode())
	}
	process.Fatal(err)
}
