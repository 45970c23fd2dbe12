// Copyright 2017 Robert Iannucci Jr. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package archive

import "github.com/redox-os/pkgar/core"

// ListedEntry is the read-only view of an entry that list exposes -- no
// hash, since list never touches the data region.
type ListedEntry struct {
	Path string
	Size uint64
	Mode core.Mode
}

// List enumerates every entry in r without touching the data region, per
// spec §4.6's "reader only" contract.
func List(r *Reader) []ListedEntry {
	entries := r.Entries()
	out := make([]ListedEntry, len(entries))
	for i, e := range entries {
		out[i] = ListedEntry{Path: e.Path(), Size: e.Size, Mode: e.ModeBits}
	}
	return out
}
