// Copyright 2017 Robert Iannucci Jr. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package core

import (
	"encoding/binary"

	"go.chromium.org/luci/common/errors"
)

// HeaderSize is the fixed, on-disk size of a Header in bytes.
const HeaderSize = 64 + 32 + 32 + 8

// PreimageSize is the size of the byte sequence that is actually signed:
// PublicKey ∥ EntriesHash ∥ Count (little-endian).
const PreimageSize = 32 + 32 + 8

// Header is the signed 136-byte prefix of a pkgar archive. There is no magic
// number; identity is established entirely by signature verification (see
// Verify). All multi-byte fields are little-endian on the wire.
type Header struct {
	// Signature is a detached Ed25519 signature over Preimage().
	Signature [SignatureSize]byte
	// PublicKey is the verifier's public key, carried in the header so a
	// consumer can reject any key not in its trust set.
	PublicKey [PublicKeySize]byte
	// EntriesHash is the BLAKE3 sum of the serialized entry table.
	EntriesHash [HashSize]byte
	// Count is the number of Entry records immediately following the header.
	Count uint64
}

// Marshal encodes h into a freshly allocated HeaderSize-byte slice.
func (h *Header) Marshal() []byte {
	buf := make([]byte, HeaderSize)
	h.MarshalTo(buf)
	return buf
}

// MarshalTo encodes h into buf, which must be at least HeaderSize bytes.
func (h *Header) MarshalTo(buf []byte) {
	off := 0
	off += copy(buf[off:], h.Signature[:])
	off += copy(buf[off:], h.PublicKey[:])
	off += copy(buf[off:], h.EntriesHash[:])
	binary.LittleEndian.PutUint64(buf[off:], h.Count)
}

// Unmarshal decodes a Header from the first HeaderSize bytes of buf.
func (h *Header) Unmarshal(buf []byte) error {
	if len(buf) < HeaderSize {
		return errors.Reason("short header: %(got)d < %(want)d bytes").
			D("got", len(buf)).D("want", HeaderSize).Err()
	}
	off := 0
	off += copy(h.Signature[:], buf[off:off+SignatureSize])
	off += copy(h.PublicKey[:], buf[off:off+PublicKeySize])
	off += copy(h.EntriesHash[:], buf[off:off+HashSize])
	h.Count = binary.LittleEndian.Uint64(buf[off : off+8])
	return nil
}

// Preimage returns the exact 72-byte sequence that is signed and verified:
// PublicKey ∥ EntriesHash ∥ Count (8 little-endian bytes). This is not a
// struct dump of Header -- it deliberately excludes Signature.
func (h *Header) Preimage() [PreimageSize]byte {
	var buf [PreimageSize]byte
	off := 0
	off += copy(buf[off:], h.PublicKey[:])
	off += copy(buf[off:], h.EntriesHash[:])
	binary.LittleEndian.PutUint64(buf[off:], h.Count)
	return buf
}

// EntriesSize returns the byte length of the entry table: Count * EntrySize.
// It returns Error{Kind: KindCorrupt} on overflow.
func (h *Header) EntriesSize() (uint64, error) {
	return entriesSize(h.Count)
}

func entriesSize(count uint64) (uint64, error) {
	const entrySize = uint64(EntrySize)
	if count > 0 && entrySize > (^uint64(0))/count {
		return 0, newErr(KindCorrupt, "", errors.Reason(
			"entry count %(count)d overflows entries size").D("count", count).Err())
	}
	return count * entrySize, nil
}

// TotalSize returns HeaderSize + EntriesSize(), i.e. the byte offset at
// which the data region begins.
func (h *Header) TotalSize() (uint64, error) {
	entries, err := h.EntriesSize()
	if err != nil {
		return 0, err
	}
	total := uint64(HeaderSize) + entries
	if total < entries {
		return 0, newErr(KindCorrupt, "", errors.New("header+entries size overflows"))
	}
	return total, nil
}
