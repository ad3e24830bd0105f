// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package engine

import "github.com/zeebo/blake3"

// Digest is the BLAKE3 keyed hash of an uncompressed record body.
type Digest [32]byte

// recordDomainKey separates record digests from any other BLAKE3 use.
// ASCII "strata.engine.record", zero-padded to 32 bytes. Changing it
// invalidates every stored digest.
var recordDomainKey = [32]byte{
	's', 't', 'r', 'a', 't', 'a', '.', 'e', 'n', 'g', 'i', 'n', 'e', '.',
	'r', 'e', 'c', 'o', 'r', 'd', 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0,
}

func digestBody(body []byte) Digest {
	hasher, err := blake3.NewKeyed(recordDomainKey[:])
	if err != nil {
		// Only a wrong key length fails, and the key is a fixed array.
		panic("engine: BLAKE3 keyed hash initialization failed: " + err.Error())
	}
	hasher.Write(body)
	var digest Digest
	copy(digest[:], hasher.Sum(nil))
	return digest
}
