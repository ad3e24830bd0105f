// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package process provides entrypoint helpers for the Strata binaries.
// It centralizes the raw I/O that happens before the structured logger
// exists or after main() has given up: reporting a fatal error on
// stderr and exiting.
package process
