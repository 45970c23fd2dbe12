// Copyright 2017 Robert Iannucci Jr. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package archive

import (
	"os"
	"path/filepath"

	"go.chromium.org/luci/common/errors"

	"github.com/redox-os/pkgar/core"
)

// Mismatch describes one entry whose on-disk contents no longer match its
// archive entry.
type Mismatch struct {
	Path string
	Err  error
}

// Verify is the sole operation that does not abort on first error (spec
// §7): it hashes every entry's on-disk file under root and accumulates
// every mismatch before returning, so a caller can see the full extent of
// drift in one pass.
func Verify(r *Reader, root string, opts ...VerifyOption) ([]Mismatch, error) {
	cfg := newStreamConfig()
	for _, o := range opts {
		o(&cfg)
	}

	var mismatches []Mismatch
	buf := make([]byte, cfg.bufSize)

	for _, e := range r.Entries() {
		target := filepath.Join(root, filepath.FromSlash(e.Path()))

		sum, err := hashOnDiskEntry(target, e, buf)
		if err != nil {
			mismatches = append(mismatches, Mismatch{Path: e.Path(), Err: err})
			continue
		}
		if sum != e.Hash {
			mismatches = append(mismatches, Mismatch{Path: e.Path(),
				Err: &core.Error{Kind: core.KindHashMismatch, Path: e.Path(), Index: core.NoIndex}})
		}
	}
	return mismatches, nil
}

// hashOnDiskEntry hashes the current on-disk contents of target: file bytes
// for a regular file, or the link text for a symlink.
func hashOnDiskEntry(target string, e core.Entry, buf []byte) ([core.HashSize]byte, error) {
	if e.ModeBits.IsSymlink() {
		link, err := os.Readlink(target)
		if err != nil {
			return [core.HashSize]byte{}, errors.Annotate(err).Reason("reading symlink %(path)q").
				D("path", target).Err()
		}
		return core.SumHash([]byte(link)), nil
	}

	f, err := os.Open(target)
	if err != nil {
		return [core.HashSize]byte{}, errors.Annotate(err).Reason("opening %(path)q").D("path", target).Err()
	}
	defer f.Close()

	_, sum, err := core.HashReader(f, buf)
	if err != nil {
		return [core.HashSize]byte{}, errors.Annotate(err).Reason("hashing %(path)q").D("path", target).Err()
	}
	return sum, nil
}
