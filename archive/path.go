// Copyright 2017 Robert Iannucci Jr. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package archive

import (
	"path"
	"strings"

	"go.chromium.org/luci/common/data/stringset"
	"go.chromium.org/luci/common/errors"

	"github.com/redox-os/pkgar/core"
)

// badPathChars mirrors the teacher's TOC path-component blacklist, minus the
// characters pkgar paths are expected to contain on the wire ('/' separates
// components here instead of nesting a tree).
var badPathChars = "\\:*?\"<>|\x00"

// checkPathPiece validates a single '/'-delimited path component. Unlike the
// teacher's toc.checkPathPiece, this never allows ".." -- pkgar entry paths
// are always relative to the extraction root with no escape hatch.
func checkPathPiece(piece string) error {
	if piece == "" {
		return errors.New("empty path component")
	}
	if piece == "." || piece == ".." {
		return errors.Reason("path component %(piece)q not allowed").D("piece", piece).Err()
	}
	if i := strings.IndexAny(piece, badPathChars); i >= 0 {
		return errors.Reason("bad char %(char)q in path component").
			D("char", piece[i:i+1]).Err()
	}
	return nil
}

// CheckPath validates a pkgar entry path: relative, slash-separated,
// non-empty, free of ".."/"." components, NUL and the reserved characters
// in badPathChars, and no longer than core.PathSize bytes including its NUL
// terminator.
func CheckPath(p string) error {
	if p == "" {
		return errors.New("empty entry path")
	}
	if path.IsAbs(p) {
		return errors.Reason("entry path %(path)q must be relative").D("path", p).Err()
	}
	if len(p)+1 > core.PathSize {
		return &core.Error{Kind: core.KindPathOverflow, Path: p, Index: core.NoIndex,
			Err: errors.Reason("entry path is %(got)d bytes, max %(max)d").
				D("got", len(p)+1).D("max", core.PathSize).Err()}
	}
	for _, piece := range strings.Split(p, "/") {
		if err := checkPathPiece(piece); err != nil {
			return errors.Annotate(err).Reason("entry path %(path)q").D("path", p).Err()
		}
	}
	return nil
}

// CheckUniquePaths validates every path in paths and additionally rejects
// duplicates, using stringset the way the teacher's Tree.Validate does for
// sibling-name collisions. Builder.WriteArchive calls this to reject a
// duplicate path at create time, before streaming any data.
func CheckUniquePaths(paths []string) error {
	seen := stringset.New(len(paths))
	for i, p := range paths {
		if err := CheckPath(p); err != nil {
			return err
		}
		if !seen.Add(p) {
			return &core.Error{Kind: core.KindInvalidEntry, Path: p, Index: i,
				Err: errors.Reason("duplicate entry path %(path)q").D("path", p).Err()}
		}
	}
	return nil
}
