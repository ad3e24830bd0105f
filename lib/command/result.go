// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package command

// SessionInfo is the result of [Info]: the connection's active session
// identifier and the namespace and database selected in it. Empty
// Namespace or Database means none is selected.
type SessionInfo struct {
	Session   string `cbor:"session"`
	Namespace string `cbor:"namespace,omitempty"`
	Database  string `cbor:"database,omitempty"`
}
