// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package codec holds the CBOR configuration shared by every Strata
// component that puts bytes on a wire or on disk: the command
// envelopes exchanged between clients and strata-server, the result
// payloads returned by routers, and the record bodies stored by the
// embedded engine.
//
// The encoder uses Core Deterministic Encoding (RFC 8949 §4.2), so a
// record with the same logical content always produces the same bytes.
// The engine relies on this when it compares record digests to skip
// no-op upserts.
//
// Buffers:
//
//	data, err := codec.Marshal(value)
//	err = codec.Unmarshal(data, &value)
//
// Streams (one persistent connection carries many values back to back;
// CBOR items are self-delimiting so no extra framing is needed):
//
//	encoder := codec.NewEncoder(conn)
//	decoder := codec.NewDecoder(conn)
//
// Wire types carry `cbor` struct tags. User record types may carry
// `json` tags instead: fxamacker/cbor falls back to them, so an
// application struct used with encoding/json elsewhere round-trips
// through Strata without extra annotations.
package codec
