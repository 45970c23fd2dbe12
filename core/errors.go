// Copyright 2017 Robert Iannucci Jr. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package core

import "fmt"

// Kind classifies the errors pkgar can return, per the taxonomy of error
// conditions an archive operation can encounter. The first error always
// aborts the current operation (Verify is the sole exception -- it
// accumulates every mismatch before returning).
type Kind int

// Known error kinds.
const (
	// KindIO wraps a filesystem or read/write error.
	KindIO Kind = iota + 1
	// KindCorrupt indicates an entries-table hash mismatch or a truncated
	// archive.
	KindCorrupt
	// KindBadSignature indicates the signature does not verify against the
	// embedded public key.
	KindBadSignature
	// KindUntrustedKey indicates a valid signature by a key outside the
	// caller's trust set.
	KindUntrustedKey
	// KindInvalidEntry indicates a path, mode, or range violates an on-disk
	// invariant.
	KindInvalidEntry
	// KindHashMismatch indicates on-disk data does not match an entry's
	// recorded hash.
	KindHashMismatch
	// KindDivergedFile indicates, during remove, that an on-disk file no
	// longer matches its archive entry.
	KindDivergedFile
	// KindUnsupportedFileType indicates a create-time source entry that is
	// neither a regular file nor a symlink.
	KindUnsupportedFileType
	// KindPathOverflow indicates a path exceeds PathSize bytes including its
	// terminator.
	KindPathOverflow
)

func (k Kind) String() string {
	switch k {
	case KindIO:
		return "Io"
	case KindCorrupt:
		return "Corrupt"
	case KindBadSignature:
		return "BadSignature"
	case KindUntrustedKey:
		return "UntrustedKey"
	case KindInvalidEntry:
		return "InvalidEntry"
	case KindHashMismatch:
		return "HashMismatch"
	case KindDivergedFile:
		return "DivergedFile"
	case KindUnsupportedFileType:
		return "UnsupportedFileType"
	case KindPathOverflow:
		return "PathOverflow"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Error is the concrete error type returned by pkgar operations. It carries
// enough context -- a Kind, and whichever of Path/Index apply -- to be
// actionable without string-matching the message.
type Error struct {
	Kind  Kind
	Path  string
	Index int // -1 when not applicable
	Err   error
}

func (e *Error) Error() string {
	msg := e.Kind.String()
	switch {
	case e.Path != "" && e.Index >= 0:
		msg = fmt.Sprintf("%s: entry %d %q", msg, e.Index, e.Path)
	case e.Path != "":
		msg = fmt.Sprintf("%s: %q", msg, e.Path)
	case e.Index >= 0:
		msg = fmt.Sprintf("%s: entry %d", msg, e.Index)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %s", msg, e.Err)
	}
	return msg
}

// Unwrap allows errors.Is/errors.As to see through to the wrapped cause.
func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is an *Error with the same Kind, satisfying
// errors.Is(err, &Error{Kind: KindCorrupt}) style matching.
func (e *Error) Is(target error) bool {
	other, ok := target.(*Error)
	return ok && other.Kind == e.Kind
}

// NoIndex is the Index value used when an error does not refer to a
// specific entry.
const NoIndex = -1

// newErr builds an *Error with Index defaulted to NoIndex.
func newErr(kind Kind, path string, err error) *Error {
	return &Error{Kind: kind, Path: path, Index: NoIndex, Err: err}
}

// newEntryErr builds an *Error for a specific entry index.
func newEntryErr(kind Kind, index int, path string, err error) *Error {
	return &Error{Kind: kind, Path: path, Index: index, Err: err}
}
