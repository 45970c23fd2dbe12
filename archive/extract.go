// Copyright 2017 Robert Iannucci Jr. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package archive

import (
	"bytes"
	"context"
	"os"
	"path/filepath"

	"go.chromium.org/luci/common/errors"
	"go.chromium.org/luci/common/logging"

	"github.com/redox-os/pkgar/core"
)

// stagingSuffix is appended to an entry's target path while its contents
// are being streamed and verified, per spec §4.7's Idle->Staged transition.
const stagingSuffix = ".pkgar-staging"

// Extract streams every entry in r to files under root, following the
// per-file state machine in spec §4.7: stage, stream+hash, chmod, rename.
// Unlike the teacher's UnpackTo, this is single-threaded and synchronous --
// fan-out across files is a deliberate non-goal (spec §5) -- and it does not
// treat the whole extract as transactional: a failure partway through
// leaves already-renamed files in place, but never leaves a half-written
// file at its final path.
//
// On failure, Extract unlinks every staging path it created during this
// call before returning.
func Extract(ctx context.Context, r *Reader, root string, opts ...ExtractOption) error {
	cfg := newStreamConfig()
	for _, o := range opts {
		o(&cfg)
	}

	entries := r.Entries()
	staged := make([]string, 0, len(entries))

	abort := func(err error) error {
		for _, s := range staged {
			if rmErr := os.Remove(s); rmErr != nil && !os.IsNotExist(rmErr) {
				logging.Errorf(ctx, "cleaning up staging file %q: %s", s, rmErr)
			}
		}
		return err
	}

	buf := make([]byte, cfg.bufSize)
	for _, e := range entries {
		target := filepath.Join(root, filepath.FromSlash(e.Path()))
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return abort(errors.Annotate(err).Reason("materializing parent dir for %(path)q").
				D("path", e.Path()).Err())
		}

		switch {
		case e.ModeBits.IsSymlink():
			if err := extractSymlink(r, e, target); err != nil {
				return abort(err)
			}
		case e.ModeBits.IsRegular():
			stagingPath, err := extractFile(r, e, target, buf)
			if err != nil {
				if stagingPath != "" {
					staged = append(staged, stagingPath)
				}
				return abort(err)
			}
		default:
			return abort(&core.Error{Kind: core.KindUnsupportedFileType, Path: e.Path(), Index: core.NoIndex})
		}
	}
	return nil
}

// extractSymlink creates target as a symlink to e's data (the link target
// text), atomically replacing anything already there via unlink-then-link.
func extractSymlink(r *Reader, e core.Entry, target string) error {
	var buf bytes.Buffer
	if err := r.ReadFile(e, &buf); err != nil {
		return err
	}
	linkTarget := buf.String()

	if err := os.Remove(target); err != nil && !os.IsNotExist(err) {
		return errors.Annotate(err).Reason("removing existing entry at %(path)q").
			D("path", target).Err()
	}
	if err := os.Symlink(linkTarget, target); err != nil {
		return errors.Annotate(err).Reason("symlinking %(path)q -> %(link)q").
			D("path", target).D("link", linkTarget).Err()
	}
	return nil
}

// extractFile runs the Idle->Staged->Hashed->Chmod->Renamed->Done state
// machine for a single regular-file entry. It returns the staging path it
// created (even on failure, so the caller can clean it up) and an error if
// any stage failed.
func extractFile(r *Reader, e core.Entry, target string, buf []byte) (string, error) {
	stagingPath := target + stagingSuffix

	// Idle -> Staged
	f, err := os.OpenFile(stagingPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, os.FileMode(e.ModeBits.Perm()))
	if err != nil {
		return "", errors.Annotate(err).Reason("staging %(path)q").D("path", stagingPath).Err()
	}

	// Staged -> Hashed, streaming through the caller's reusable buffer.
	section := sectionReader(r.src, int64(core.HeaderSize)+dataOffset(r.header, e), int64(e.Size))
	_, sum, hashErr := core.CopyHash(f, section, buf)
	if hashErr == nil && sum != e.Hash {
		hashErr = &core.Error{Kind: core.KindHashMismatch, Path: e.Path(), Index: core.NoIndex}
	}
	if closeErr := f.Close(); hashErr == nil {
		hashErr = closeErr
	}
	if hashErr != nil {
		return stagingPath, errors.Annotate(hashErr).Reason("streaming %(path)q").D("path", e.Path()).Err()
	}

	// Chmod
	if err := os.Chmod(stagingPath, os.FileMode(e.ModeBits.Perm())); err != nil {
		return stagingPath, errors.Annotate(err).Reason("chmod %(path)q").D("path", stagingPath).Err()
	}

	// Renamed -> Done
	if err := os.Rename(stagingPath, target); err != nil {
		return stagingPath, errors.Annotate(err).Reason("renaming %(from)q to %(to)q").
			D("from", stagingPath).D("to", target).Err()
	}
	return "", nil
}
