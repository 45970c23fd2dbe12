// Copyright 2017 Robert Iannucci Jr. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package core

import (
	"hash"
	"io"

	"lukechampine.com/blake3"
)

// HashSize is the width, in bytes, of the 256-bit content hash used for both
// file data and the entry table.
const HashSize = 32

// NewHash returns a fresh streaming BLAKE3 hasher. Callers that need to hash
// many files in sequence should Reset() and reuse one instance rather than
// allocating a new one per file.
func NewHash() hash.Hash {
	return blake3.New(HashSize, nil)
}

// SumHash returns the BLAKE3 sum of data in one shot. An empty input hashes
// to the hash of the empty string, per spec.
func SumHash(data []byte) [HashSize]byte {
	h := NewHash()
	h.Write(data)
	var out [HashSize]byte
	copy(out[:], h.Sum(nil))
	return out
}

// EntriesHash computes the BLAKE3 sum over the serialized entry table, in
// the exact byte layout that is written to disk.
func EntriesHash(entries []Entry) [HashSize]byte {
	return SumHash(MarshalEntries(entries))
}

// CopyHash streams src to dst through buf, hashing every byte read. It
// returns the number of bytes copied and their BLAKE3 sum. buf may be
// reused across calls to avoid per-file allocation.
func CopyHash(dst io.Writer, src io.Reader, buf []byte) (n int64, sum [HashSize]byte, err error) {
	h := NewHash()
	w := io.MultiWriter(dst, h)
	n, err = io.CopyBuffer(w, src, buf)
	copy(sum[:], h.Sum(nil))
	return n, sum, err
}

// HashReader streams src through buf, hashing every byte read without
// copying it anywhere else. It is used by verify and remove, which only
// need to confirm a hash, not relocate data.
func HashReader(src io.Reader, buf []byte) (n int64, sum [HashSize]byte, err error) {
	return CopyHash(io.Discard, src, buf)
}
