// Copyright 2017 Robert Iannucci Jr. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package archive

import (
	"io"

	"go.chromium.org/luci/common/errors"

	"github.com/redox-os/pkgar/core"
)

// Split slices a whole .pkgar archive read from src into its head
// (header + entry table, bytes [0, 136+308*count)) and data (the
// remainder) segments, writing each to the given writers. No re-signing
// happens -- this is a byte-exact slice, not a rebuild, so the result
// concatenates back to exactly src's original bytes.
func Split(src Source, head, data io.Writer) error {
	total, err := src.Size()
	if err != nil {
		return errors.Annotate(err).Reason("measuring source").Err()
	}
	if total < core.HeaderSize {
		return &core.Error{Kind: core.KindCorrupt, Index: core.NoIndex,
			Err: errors.Reason("source is %(got)d bytes, shorter than a bare header (%(want)d)").
				D("got", total).D("want", core.HeaderSize).Err()}
	}

	headerBuf := make([]byte, core.HeaderSize)
	if _, err := io.ReadFull(io.NewSectionReader(src, 0, int64(core.HeaderSize)), headerBuf); err != nil {
		return errors.Annotate(err).Reason("reading header").Err()
	}
	var h core.Header
	if err := h.Unmarshal(headerBuf); err != nil {
		return errors.Annotate(err).Reason("unmarshaling header").Err()
	}

	headSize, err := h.TotalSize()
	if err != nil {
		return err
	}
	if total < int64(headSize) {
		return &core.Error{Kind: core.KindCorrupt, Index: core.NoIndex,
			Err: errors.Reason("source is %(got)d bytes, shorter than header+entries (%(want)d)").
				D("got", total).D("want", headSize).Err()}
	}

	if _, err := io.Copy(head, io.NewSectionReader(src, 0, int64(headSize))); err != nil {
		return errors.Annotate(err).Reason("writing head segment").Err()
	}
	if _, err := io.Copy(data, io.NewSectionReader(src, int64(headSize), total-int64(headSize))); err != nil {
		return errors.Annotate(err).Reason("writing data segment").Err()
	}
	return nil
}
