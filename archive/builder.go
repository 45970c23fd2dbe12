// Copyright 2017 Robert Iannucci Jr. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package archive

import (
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.chromium.org/luci/common/errors"
	"go.chromium.org/luci/common/iotools"

	"github.com/redox-os/pkgar/core"
)

// builderEntryKind distinguishes how a pending entry's bytes will be
// produced during Pass 1.
type builderEntryKind int

const (
	kindFile builderEntryKind = iota
	kindSymlink
)

type pendingEntry struct {
	path string
	mode core.Mode
	kind builderEntryKind

	// sourcePath is the filesystem location to stream from (kindFile) or the
	// literal link target (kindSymlink).
	sourcePath string
}

// Builder accumulates entries and streams them into a freshly-built pkgar
// archive. Unlike the teacher's stubbed-out CreateFromPath, this actually
// performs the two-pass streaming construction from spec §4.5.
type Builder struct {
	sec core.SecretKey
	pub core.PublicKey

	entries []pendingEntry
	bufSize int
}

// NewBuilder creates an empty Builder that will sign the resulting archive
// with sec.
func NewBuilder(sec core.SecretKey, opts ...CreateOption) *Builder {
	cfg := newStreamConfig()
	for _, o := range opts {
		o(&cfg)
	}
	return &Builder{sec: sec, pub: sec.Public(), bufSize: cfg.bufSize}
}

// AddFile queues a regular file at sourcePath to be stored under path with
// the permission bits of mode (the type bits are set automatically).
func (b *Builder) AddFile(path, sourcePath string, mode core.Mode) error {
	if err := CheckPath(path); err != nil {
		return err
	}
	b.entries = append(b.entries, pendingEntry{
		path: path, mode: core.NewFileMode(uint32(mode.Perm())),
		kind: kindFile, sourcePath: sourcePath,
	})
	return nil
}

// AddSymlink queues a symlink entry at path whose target is linkTarget.
func (b *Builder) AddSymlink(path, linkTarget string, mode core.Mode) error {
	if err := CheckPath(path); err != nil {
		return err
	}
	b.entries = append(b.entries, pendingEntry{
		path: path, mode: core.NewSymlinkMode(uint32(mode.Perm())),
		kind: kindSymlink, sourcePath: linkTarget,
	})
	return nil
}

// AddDir walks dir (which must exist on disk) and queues an entry for every
// regular file and symlink beneath it, using slash-separated paths relative
// to dir. Other directories produce no entries themselves; anything that is
// neither a directory, regular file, nor symlink is rejected with
// core.KindUnsupportedFileType.
func (b *Builder) AddDir(dir string) error {
	return filepath.Walk(dir, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if p == dir {
			return nil
		}
		rel, err := filepath.Rel(dir, p)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)

		switch {
		case info.IsDir():
			return nil
		case info.Mode()&os.ModeSymlink != 0:
			target, err := os.Readlink(p)
			if err != nil {
				return err
			}
			return b.AddSymlink(rel, target, core.Mode(info.Mode().Perm()))
		case info.Mode().IsRegular():
			return b.AddFile(rel, p, core.Mode(info.Mode().Perm()))
		default:
			return &core.Error{Kind: core.KindUnsupportedFileType, Path: rel, Index: core.NoIndex}
		}
	})
}

// WriteArchive performs the full two-pass build and writes the resulting
// archive -- header, entry table, then data region, in that order -- to w.
func (b *Builder) WriteArchive(w io.Writer) error {
	paths := make([]string, len(b.entries))
	for i, pe := range b.entries {
		paths[i] = pe.path
	}
	if err := CheckUniquePaths(paths); err != nil {
		return err
	}

	entries, dataFile, err := b.writeData()
	if err != nil {
		return err
	}
	defer os.Remove(dataFile.Name())
	defer dataFile.Close()

	if err := b.writeHead(w, entries); err != nil {
		return err
	}

	if _, err := dataFile.Seek(0, io.SeekStart); err != nil {
		return errors.Annotate(err).Reason("rewinding temporary data file").Err()
	}
	if _, err := io.Copy(w, dataFile); err != nil {
		return errors.Annotate(err).Reason("copying data region").Err()
	}
	return nil
}

// writeData is Pass 1: stream every pending entry's bytes into a temporary
// file while hashing, recording each entry's offset into that file.
func (b *Builder) writeData() ([]core.Entry, *os.File, error) {
	sorted := make([]pendingEntry, len(b.entries))
	copy(sorted, b.entries)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].path < sorted[j].path })

	tmp, err := os.CreateTemp("", "pkgar-data-*")
	if err != nil {
		return nil, nil, errors.Annotate(err).Reason("creating temporary data file").Err()
	}

	cw := &iotools.CountingWriter{Writer: tmp}
	buf := make([]byte, b.bufSize)
	entries := make([]core.Entry, 0, len(sorted))

	for _, pe := range sorted {
		offset := uint64(cw.Count)
		var (
			size int64
			sum  [core.HashSize]byte
			err  error
		)

		switch pe.kind {
		case kindFile:
			var f *os.File
			f, err = os.Open(pe.sourcePath)
			if err != nil {
				tmp.Close()
				os.Remove(tmp.Name())
				return nil, nil, errors.Annotate(err).Reason("opening %(path)q").D("path", pe.sourcePath).Err()
			}
			size, sum, err = core.CopyHash(cw, f, buf)
			f.Close()
			if err != nil {
				tmp.Close()
				os.Remove(tmp.Name())
				return nil, nil, errors.Annotate(err).Reason("streaming %(path)q").D("path", pe.sourcePath).Err()
			}
		case kindSymlink:
			size, sum, err = core.CopyHash(cw, strings.NewReader(pe.sourcePath), buf)
			if err != nil {
				tmp.Close()
				os.Remove(tmp.Name())
				return nil, nil, errors.Annotate(err).Reason("streaming symlink target for %(path)q").D("path", pe.path).Err()
			}
		}
		if size == 0 {
			offset = 0 // zero-length entries record offset 0
		}

		var e core.Entry
		if err := e.SetPath(pe.path); err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
			return nil, nil, err
		}
		e.Hash = sum
		e.Offset = offset
		e.Size = uint64(size)
		e.ModeBits = pe.mode
		entries = append(entries, e)
	}

	return entries, tmp, nil
}

// writeHead is Pass 2: resort defensively, serialize the entry table, hash
// and sign it, then write header ∥ entries to w.
func (b *Builder) writeHead(w io.Writer, entries []core.Entry) error {
	sort.Slice(entries, func(i, j int) bool { return entries[i].Path() < entries[j].Path() })

	entryBuf := core.MarshalEntries(entries)
	h := core.Header{
		PublicKey:   [core.PublicKeySize]byte(b.pub),
		EntriesHash: core.SumHash(entryBuf),
		Count:       uint64(len(entries)),
	}
	h.Signature = core.Sign(b.sec, h.Preimage())

	if _, err := w.Write(h.Marshal()); err != nil {
		return errors.Annotate(err).Reason("writing header").Err()
	}
	if _, err := w.Write(entryBuf); err != nil {
		return errors.Annotate(err).Reason("writing entry table").Err()
	}
	return nil
}

// WriteArchiveAtomic builds the archive and installs it at target by
// writing to target+".tmp" and renaming over target, per spec §4.5's
// atomicity requirement.
func (b *Builder) WriteArchiveAtomic(target string) error {
	tmpPath := target + ".tmp"
	f, err := os.OpenFile(tmpPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return errors.Annotate(err).Reason("creating %(path)q").D("path", tmpPath).Err()
	}
	if err := b.WriteArchive(f); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return errors.Annotate(err).Reason("fsyncing %(path)q").D("path", tmpPath).Err()
	}
	if err := f.Close(); err != nil {
		os.Remove(tmpPath)
		return errors.Annotate(err).Reason("closing %(path)q").D("path", tmpPath).Err()
	}
	if err := os.Rename(tmpPath, target); err != nil {
		os.Remove(tmpPath)
		return errors.Annotate(err).Reason("renaming %(tmp)q over %(target)q").D("tmp", tmpPath).D("target", target).Err()
	}
	return nil
}
