// Copyright 2017 Robert Iannucci Jr. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package archive

import (
	"io"

	"go.chromium.org/luci/common/errors"

	"github.com/redox-os/pkgar/core"
)

// copyBufSize is the fixed-size buffer used when streaming file data, the
// same 64KiB-class figure the teacher's sardata block reader defaults to.
const copyBufSize = 64 * 1024

// Reader is a verified, read-only view of a pkgar archive. It is
// constructed once per operation, per §3's Lifecycle: construction performs
// every check in spec §4.4 eagerly, so a successfully-returned Reader is
// always safe to read from.
type Reader struct {
	src     Source
	header  core.Header
	entries []core.Entry
	total   int64 // byte length of src at construction time
	bufSize int
}

// Open performs the full five-step construction from spec §4.4: read the
// header, read the entry table, hash-verify it against the header, verify
// the signature against trusted, then validate every entry's invariants.
// Any failure at any step leaves no usable Reader.
func Open(src Source, trusted core.TrustSet, opts ...OpenOption) (*Reader, error) {
	cfg := newStreamConfig()
	for _, o := range opts {
		o(&cfg)
	}

	total, err := src.Size()
	if err != nil {
		return nil, errors.Annotate(err).Reason("measuring source").Err()
	}
	if total < core.HeaderSize {
		return nil, &core.Error{Kind: core.KindCorrupt, Index: core.NoIndex,
			Err: errors.Reason("source is %(got)d bytes, shorter than a bare header (%(want)d)").
				D("got", total).D("want", core.HeaderSize).Err()}
	}

	// Step 1: read the header.
	headerBuf := make([]byte, core.HeaderSize)
	if _, err := io.ReadFull(sectionReader(src, 0, int64(core.HeaderSize)), headerBuf); err != nil {
		return nil, errors.Annotate(err).Reason("reading header").Err()
	}
	var h core.Header
	if err := h.Unmarshal(headerBuf); err != nil {
		return nil, errors.Annotate(err).Reason("unmarshaling header").Err()
	}

	// Step 2: read the entry table.
	entriesSize, err := h.EntriesSize()
	if err != nil {
		return nil, err
	}
	if total < int64(core.HeaderSize)+int64(entriesSize) {
		return nil, &core.Error{Kind: core.KindCorrupt, Index: core.NoIndex,
			Err: errors.Reason("source is %(got)d bytes, shorter than header+entries (%(want)d)").
				D("got", total).D("want", int64(core.HeaderSize)+int64(entriesSize)).Err()}
	}
	entriesBuf := make([]byte, entriesSize)
	if entriesSize > 0 {
		if _, err := io.ReadFull(sectionReader(src, int64(core.HeaderSize), int64(entriesSize)), entriesBuf); err != nil {
			return nil, errors.Annotate(err).Reason("reading entry table").Err()
		}
	}

	// Step 3: hash the entry table and compare to the header's claim.
	gotHash := core.SumHash(entriesBuf)
	if gotHash != h.EntriesHash {
		return nil, &core.Error{Kind: core.KindCorrupt, Index: core.NoIndex,
			Err: errors.New("entry table hash does not match header")}
	}

	// Step 4: verify the signature, then trust.
	if err := core.VerifyHeader(&h, trusted); err != nil {
		return nil, err
	}

	entries, err := core.UnmarshalEntries(entriesBuf, h.Count)
	if err != nil {
		return nil, err
	}

	// Step 5: validate every entry's invariants. A source that ends exactly
	// at the entry table (a bare .pkgar_head with no companion .pkgar_data)
	// has no data region to range-check against -- per spec §3 invariant 4,
	// the offset+size bound only applies "when the data region is present".
	// Such a source reports headerOnly and every entry's range check is
	// skipped; ReadFile still ultimately fails if an entry's claimed range
	// turns out to be bogus once real data is supplied.
	dataSize := total - int64(core.HeaderSize) - int64(entriesSize)
	headerOnly := dataSize == 0
	if err := validateEntries(entries, dataSize, headerOnly); err != nil {
		return nil, err
	}

	return &Reader{src: src, header: h, entries: entries, total: total, bufSize: cfg.bufSize}, nil
}

func validateEntries(entries []core.Entry, dataSize int64, headerOnly bool) error {
	seen := make(map[string]struct{}, len(entries))
	for i := range entries {
		e := &entries[i]
		p := e.Path()
		if err := CheckPath(p); err != nil {
			if perr, ok := err.(*core.Error); ok {
				perr.Index = i
				return perr
			}
			return &core.Error{Kind: core.KindInvalidEntry, Index: i, Path: p, Err: err}
		}
		if _, dup := seen[p]; dup {
			return &core.Error{Kind: core.KindInvalidEntry, Index: i, Path: p,
				Err: errors.New("duplicate entry path")}
		}
		seen[p] = struct{}{}

		if !e.ModeBits.Valid() {
			return &core.Error{Kind: core.KindInvalidEntry, Index: i, Path: p,
				Err: errors.Reason("invalid mode bits %(mode)#o").D("mode", uint32(e.ModeBits)).Err()}
		}
		if !e.ModeBits.IsRegular() && !e.ModeBits.IsSymlink() {
			return &core.Error{Kind: core.KindUnsupportedFileType, Index: i, Path: p}
		}

		end := e.Offset + e.Size
		if end < e.Offset || int64(end) < 0 {
			return &core.Error{Kind: core.KindInvalidEntry, Index: i, Path: p,
				Err: errors.Reason("entry data range [%(off)d, %(end)d) overflows").
					D("off", e.Offset).D("end", end).Err()}
		}
		if !headerOnly && int64(end) > dataSize {
			return &core.Error{Kind: core.KindInvalidEntry, Index: i, Path: p,
				Err: errors.Reason("entry data range [%(off)d, %(end)d) exceeds data region of %(size)d bytes").
					D("off", e.Offset).D("end", end).D("size", dataSize).Err()}
		}
	}
	return nil
}

// Entries returns the verified entry table. Pure, cheap, and repeatable per
// spec §4.4 -- callers may call it as many times as they like.
func (r *Reader) Entries() []core.Entry {
	out := make([]core.Entry, len(r.entries))
	copy(out, r.entries)
	return out
}

// Header returns the archive's verified header.
func (r *Reader) Header() core.Header { return r.header }

// HeaderOnly reports whether the backing source contains only the header
// and entry table, with no data region -- true for a bare .pkgar_head
// opened without its companion .pkgar_data.
func (r *Reader) HeaderOnly() bool {
	entriesSize, _ := r.header.EntriesSize() // already validated not to overflow in Open
	return r.total == int64(core.HeaderSize)+int64(entriesSize)
}

// ReadFile streams entry's data from the data region to w, verifying its
// content hash as it goes. It returns core.KindHashMismatch if the streamed
// bytes don't match entry.Hash.
func (r *Reader) ReadFile(entry core.Entry, w io.Writer) error {
	section := sectionReader(r.src, int64(core.HeaderSize)+dataOffset(r.header, entry), int64(entry.Size))
	buf := make([]byte, r.bufSize)
	_, sum, err := core.CopyHash(w, section, buf)
	if err != nil {
		return errors.Annotate(err).Reason("streaming entry %(path)q").D("path", entry.Path()).Err()
	}
	if sum != entry.Hash {
		return &core.Error{Kind: core.KindHashMismatch, Path: entry.Path(), Index: core.NoIndex}
	}
	return nil
}

func dataOffset(h core.Header, e core.Entry) int64 {
	entriesSize, _ := h.EntriesSize()
	return int64(entriesSize) + int64(e.Offset)
}

// sectionReader returns an io.Reader over [off, off+n) of src.
func sectionReader(src Source, off, n int64) io.Reader {
	return io.NewSectionReader(src, off, n)
}
