// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package cli is the command framework for the strata CLI: a tree of
// [Command] values with pflag flag sets, help output, typo suggestions
// for commands and flags, a terminal-aware logger, and JSON output
// helpers.
package cli
