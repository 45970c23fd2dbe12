// Copyright 2017 Robert Iannucci Jr. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package archive

import (
	"context"

	"github.com/redox-os/pkgar/core"
)

// Replace upgrades a target directory from oldArchive to newArchive: every
// entry in oldArchive whose content hash appears nowhere in newArchive is
// removed first, then the full contents of newArchive are extracted. It is
// pure sequencing of Remove and Extract, the same way original_source's
// Transaction::replace is a thin diff wrapper over install -- no new
// binary-layout surface is involved.
func Replace(ctx context.Context, oldArchive, newArchive *Reader, root string) error {
	newHashes := make(map[[core.HashSize]byte]struct{})
	for _, e := range newArchive.Entries() {
		newHashes[e.Hash] = struct{}{}
	}

	var stale []core.Entry
	for _, e := range oldArchive.Entries() {
		if _, keep := newHashes[e.Hash]; !keep {
			stale = append(stale, e)
		}
	}

	if len(stale) > 0 {
		staleOnly := &Reader{src: oldArchive.src, header: oldArchive.header, entries: stale, total: oldArchive.total}
		if err := Remove(staleOnly, root); err != nil {
			return err
		}
	}

	return Extract(ctx, newArchive, root)
}
