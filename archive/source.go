// Copyright 2017 Robert Iannucci Jr. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package archive

import (
	"io"
	"os"

	"go.chromium.org/luci/common/errors"
)

// Source is a random-access byte source backing a Reader: a whole-archive
// file, an in-memory buffer, or the stitched-together pair of a .pkgar_head
// and an optional .pkgar_data produced by split.
type Source interface {
	io.ReaderAt
	// Size returns the total byte length of the source.
	Size() (int64, error)
}

type fileSource struct{ f *os.File }

// FileSource adapts an *os.File opened for reading into a Source.
func FileSource(f *os.File) Source { return fileSource{f} }

func (s fileSource) ReadAt(p []byte, off int64) (int, error) { return s.f.ReadAt(p, off) }

func (s fileSource) Size() (int64, error) {
	fi, err := s.f.Stat()
	if err != nil {
		return 0, err
	}
	return fi.Size(), nil
}

type bytesSource []byte

// BytesSource adapts an in-memory buffer into a Source.
func BytesSource(b []byte) Source { return bytesSource(b) }

func (s bytesSource) ReadAt(p []byte, off int64) (int, error) {
	if off < 0 || off > int64(len(s)) {
		return 0, errors.Reason("ReadAt: offset %(off)d out of range").D("off", off).Err()
	}
	n := copy(p, s[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

func (s bytesSource) Size() (int64, error) { return int64(len(s)), nil }

type splitSource struct {
	head    Source
	data    Source // nil when this is a header-only source
	headLen int64
}

// NewSplitSource stitches a head source (header + entry table) and an
// optional data source together into a single Source, mirroring the
// on-disk .pkgar_head / .pkgar_data split produced by Split. data may be
// nil, matching spec's "data may be absent" construction mode -- Entries()
// and HeaderOnly() still work, but ReadFile fails for any entry with a
// non-zero size, returning an annotated read error rather than a *core.Error.
func NewSplitSource(head, data Source) (Source, error) {
	n, err := head.Size()
	if err != nil {
		return nil, errors.Annotate(err).Reason("measuring head source").Err()
	}
	return &splitSource{head: head, data: data, headLen: n}, nil
}

func (s *splitSource) Size() (int64, error) {
	if s.data == nil {
		return s.headLen, nil
	}
	dn, err := s.data.Size()
	if err != nil {
		return 0, err
	}
	return s.headLen + dn, nil
}

// ReadAt never needs to span the head/data boundary in practice: every read
// pkgar issues is either entirely within the header+entries prefix or
// entirely within the data region, because that boundary is exactly
// TotalSize(). It errors rather than silently truncating if a caller
// violates that.
func (s *splitSource) ReadAt(p []byte, off int64) (int, error) {
	end := off + int64(len(p))
	switch {
	case end <= s.headLen:
		return s.head.ReadAt(p, off)
	case off >= s.headLen:
		if s.data == nil {
			return 0, errors.Reason("ReadAt: read falls in the data region but no data source was supplied").Err()
		}
		return s.data.ReadAt(p, off-s.headLen)
	default:
		return 0, errors.Reason("ReadAt: read spans the head/data boundary at %(off)d+%(len)d").
			D("off", off).D("len", len(p)).Err()
	}
}
