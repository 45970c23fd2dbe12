// Copyright 2017 Robert Iannucci Jr. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package archive

import (
	"os"
	"path/filepath"
	"sort"

	"go.chromium.org/luci/common/errors"

	"github.com/redox-os/pkgar/core"
)

// Remove verifies every entry's on-disk hash still matches the archive,
// then unlinks them all and prunes any directory that became empty,
// bottom-up, per spec §4.6. It stops at the first divergent file, returning
// core.KindDivergedFile, and removes nothing: the verify-then-unlink split
// mirrors the teacher's transaction -- build the whole action list before
// committing any of it.
func Remove(r *Reader, root string, opts ...RemoveOption) error {
	cfg := newStreamConfig()
	for _, o := range opts {
		o(&cfg)
	}

	entries := r.Entries()
	targets := make([]string, len(entries))
	buf := make([]byte, cfg.bufSize)

	for i, e := range entries {
		target := filepath.Join(root, filepath.FromSlash(e.Path()))
		targets[i] = target

		sum, err := hashOnDiskEntry(target, e, buf)
		if err != nil {
			return errors.Annotate(err).Reason("verifying %(path)q before remove").D("path", e.Path()).Err()
		}
		if sum != e.Hash {
			return &core.Error{Kind: core.KindDivergedFile, Path: e.Path(), Index: core.NoIndex}
		}
	}

	dirs := make(map[string]struct{})
	for i, target := range targets {
		if err := os.Remove(target); err != nil {
			return errors.Annotate(err).Reason("removing %(path)q").D("path", entries[i].Path()).Err()
		}
		dirs[filepath.Dir(target)] = struct{}{}
	}

	pruneEmptyDirs(root, dirs)
	return nil
}

// pruneEmptyDirs removes every directory in dirs that is now empty,
// processing deepest paths first so a child's removal can make its parent
// eligible too, stopping at root.
func pruneEmptyDirs(root string, dirs map[string]struct{}) {
	ordered := make([]string, 0, len(dirs))
	for d := range dirs {
		ordered = append(ordered, d)
	}
	sort.Slice(ordered, func(i, j int) bool { return len(ordered[i]) > len(ordered[j]) })

	for _, d := range ordered {
		for d != root && d != filepath.Dir(d) {
			if err := os.Remove(d); err != nil {
				break // not empty, or already gone -- stop walking up this branch
			}
			d = filepath.Dir(d)
		}
	}
}
