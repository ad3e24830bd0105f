// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package config provides configuration loading for strata-server and
// the strata CLI.
//
// Configuration is loaded from a single file specified by either the
// STRATA_CONFIG environment variable (via [Load]) or a --config flag
// (via [LoadFile]). There are no fallbacks, no ~/.config discovery,
// and no automatic file search. This ensures deterministic, auditable
// configuration with no hidden overrides.
//
// Files ending in .json or .jsonc are read as JSON with comments and
// trailing commas allowed; anything else is read as YAML.
//
// The configuration file supports environment-specific sections
// (development, staging, production) that override base values when
// [Config].Environment matches. Production stores records with zstd
// unless its section says otherwise.
//
// Variable expansion is performed on path and endpoint fields after
// loading: ${HOME}, ${STRATA_ROOT}, and ${VAR:-default} patterns are
// expanded. No other environment variables override config values.
//
// Key exports:
//
//   - [Config] -- master struct with Paths, Server, Client
//   - [Default] -- returns a Config with development defaults
//   - [Load] and [LoadFile] -- the two entry points for loading
package config
