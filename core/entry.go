// Copyright 2017 Robert Iannucci Jr. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package core

import (
	"bytes"
	"encoding/binary"

	"go.chromium.org/luci/common/errors"
)

// PathSize is the fixed on-disk width of Entry.Path, including its NUL
// terminator and padding.
const PathSize = 256

// EntrySize is the fixed, on-disk size of an Entry in bytes.
const EntrySize = HashSize + 8 + 8 + 4 + PathSize

// Mode packs Unix permission bits together with a file-type nibble
// distinguishing a regular file from a symbolic link. Directories are never
// represented -- they are implicit, created as needed during extract.
//
// Bit layout mirrors plain Unix mode bits (and, not coincidentally, the
// pkgar reference implementation's own Mode bitflags): the low 12 bits are
// permissions, bits 12-15 are the file-type nibble.
type Mode uint32

// Mode bit masks and type values.
const (
	ModePerm Mode = 0o007777
	ModeKind Mode = 0o170000

	ModeFile    Mode = 0o100000
	ModeSymlink Mode = 0o120000
)

// Perm returns just the permission bits of m, masked to 0o7777.
func (m Mode) Perm() Mode { return m & ModePerm }

// Kind returns just the file-type nibble of m.
func (m Mode) Kind() Mode { return m & ModeKind }

// IsRegular reports whether m's type nibble is ModeFile.
func (m Mode) IsRegular() bool { return m.Kind() == ModeFile }

// IsSymlink reports whether m's type nibble is ModeSymlink.
func (m Mode) IsSymlink() bool { return m.Kind() == ModeSymlink }

// Valid reports whether m's type nibble is one of the two known kinds and
// there are no stray bits outside perm|kind.
func (m Mode) Valid() bool {
	if m&^(ModePerm|ModeKind) != 0 {
		return false
	}
	switch m.Kind() {
	case ModeFile, ModeSymlink:
		return true
	default:
		return false
	}
}

// NewFileMode returns a Mode with the regular-file type nibble set and perm
// masked to 0o7777.
func NewFileMode(perm uint32) Mode { return Mode(perm)&ModePerm | ModeFile }

// NewSymlinkMode returns a Mode with the symlink type nibble set and perm
// masked to 0o7777.
func NewSymlinkMode(perm uint32) Mode { return Mode(perm)&ModePerm | ModeSymlink }

// Entry describes one file's content hash, location in the data region,
// size, mode, and relative path. It is a fixed 308-byte packed record.
type Entry struct {
	// Hash is the BLAKE3 sum of the file's bytes (an empty file hashes the
	// empty input).
	Hash [HashSize]byte
	// Offset is the byte offset of the file's data within the data region.
	// It is 0 for zero-length files.
	Offset uint64
	// Size is the length in bytes of the file's data.
	Size uint64
	// ModeBits is the packed Unix permission + type nibble.
	ModeBits Mode
	// path is the NUL-padded, NUL-terminated on-disk path field. Use Path()
	// and SetPath() rather than touching this directly.
	path [PathSize]byte
}

// Path decodes the entry's relative path, stopping at the first NUL byte.
func (e *Entry) Path() string {
	i := bytes.IndexByte(e.path[:], 0)
	if i < 0 {
		i = PathSize
	}
	return string(e.path[:i])
}

// SetPath encodes p into the entry's fixed path field. It returns
// Error{Kind: KindPathOverflow} if p (plus its NUL terminator) does not fit,
// and Error{Kind: KindInvalidEntry} if p contains an embedded NUL.
func (e *Entry) SetPath(p string) error {
	if bytes.IndexByte([]byte(p), 0) >= 0 {
		return newErr(KindInvalidEntry, p, errors.New("path contains NUL byte"))
	}
	if len(p)+1 > PathSize {
		return newErr(KindPathOverflow, p, errors.Reason(
			"path is %(got)d bytes, max %(max)d including terminator").
			D("got", len(p)+1).D("max", PathSize).Err())
	}
	for i := range e.path {
		e.path[i] = 0
	}
	copy(e.path[:], p)
	return nil
}

// Marshal encodes e into a freshly allocated EntrySize-byte slice.
func (e *Entry) Marshal() []byte {
	buf := make([]byte, EntrySize)
	e.MarshalTo(buf)
	return buf
}

// MarshalTo encodes e into buf, which must be at least EntrySize bytes.
func (e *Entry) MarshalTo(buf []byte) {
	off := 0
	off += copy(buf[off:], e.Hash[:])
	binary.LittleEndian.PutUint64(buf[off:], e.Offset)
	off += 8
	binary.LittleEndian.PutUint64(buf[off:], e.Size)
	off += 8
	binary.LittleEndian.PutUint32(buf[off:], uint32(e.ModeBits))
	off += 4
	copy(buf[off:], e.path[:])
}

// Unmarshal decodes an Entry from the first EntrySize bytes of buf.
func (e *Entry) Unmarshal(buf []byte) error {
	if len(buf) < EntrySize {
		return errors.Reason("short entry: %(got)d < %(want)d bytes").
			D("got", len(buf)).D("want", EntrySize).Err()
	}
	off := 0
	off += copy(e.Hash[:], buf[off:off+HashSize])
	e.Offset = binary.LittleEndian.Uint64(buf[off : off+8])
	off += 8
	e.Size = binary.LittleEndian.Uint64(buf[off : off+8])
	off += 8
	e.ModeBits = Mode(binary.LittleEndian.Uint32(buf[off : off+4]))
	off += 4
	copy(e.path[:], buf[off:off+PathSize])
	return nil
}

// MarshalEntries encodes entries in order into a single contiguous buffer,
// the on-disk layout whose hash is EntriesHash in the Header.
func MarshalEntries(entries []Entry) []byte {
	buf := make([]byte, len(entries)*EntrySize)
	for i := range entries {
		entries[i].MarshalTo(buf[i*EntrySize : (i+1)*EntrySize])
	}
	return buf
}

// UnmarshalEntries decodes count entries from the start of buf.
func UnmarshalEntries(buf []byte, count uint64) ([]Entry, error) {
	size, err := entriesSize(count)
	if err != nil {
		return nil, err
	}
	if uint64(len(buf)) < size {
		return nil, errors.Reason("short entry table: %(got)d < %(want)d bytes").
			D("got", len(buf)).D("want", size).Err()
	}
	entries := make([]Entry, count)
	for i := range entries {
		if err := entries[i].Unmarshal(buf[i*EntrySize:]); err != nil {
			return nil, errors.Annotate(err).Reason("entry %(i)d").D("i", i).Err()
		}
	}
	return entries, nil
}
