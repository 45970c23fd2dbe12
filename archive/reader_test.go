// Copyright 2017 Robert Iannucci Jr. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package archive

import (
	"bytes"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	. "go.chromium.org/luci/common/testing/assertions"

	"github.com/redox-os/pkgar/core"
)

// buildArchive assembles a minimal, validly-signed archive in memory for
// entries whose Hash/Offset/Size/ModeBits/path are already set, plus the
// raw bytes of their data (concatenated in entry order).
func buildArchive(sec core.SecretKey, pub core.PublicKey, entries []core.Entry, data []byte) []byte {
	entryBuf := core.MarshalEntries(entries)
	h := core.Header{
		PublicKey:   [core.PublicKeySize]byte(pub),
		EntriesHash: core.SumHash(entryBuf),
		Count:       uint64(len(entries)),
	}
	h.Signature = core.Sign(sec, h.Preimage())

	var out bytes.Buffer
	out.Write(h.Marshal())
	out.Write(entryBuf)
	out.Write(data)
	return out.Bytes()
}

func makeFileEntry(path string, contents []byte, offset uint64) core.Entry {
	var e core.Entry
	e.SetPath(path)
	e.Hash = core.SumHash(contents)
	e.Offset = offset
	e.Size = uint64(len(contents))
	e.ModeBits = core.NewFileMode(0o644)
	return e
}

func TestOpen(t *testing.T) {
	t.Parallel()

	Convey("Open", t, func() {
		var seed [32]byte
		seed[0] = 7
		pub, sec := core.DeriveKeyPair(seed)
		trusted := core.NewTrustSet(pub)

		dataA := []byte("hello\n")
		dataB := []byte("world, this is a slightly longer file\n")
		entries := []core.Entry{
			makeFileEntry("a.txt", dataA, 0),
			makeFileEntry("sub/b.txt", dataB, uint64(len(dataA))),
		}
		raw := buildArchive(sec, pub, entries, append(append([]byte{}, dataA...), dataB...))

		Convey("opens and verifies a well-formed archive", func() {
			r, err := Open(BytesSource(raw), trusted)
			So(err, ShouldBeNil)
			So(len(r.Entries()), ShouldEqual, 2)
			So(r.HeaderOnly(), ShouldBeFalse)

			var buf bytes.Buffer
			So(r.ReadFile(r.Entries()[0], &buf), ShouldBeNil)
			So(buf.Bytes(), ShouldResemble, dataA)

			buf.Reset()
			So(r.ReadFile(r.Entries()[1], &buf), ShouldBeNil)
			So(buf.Bytes(), ShouldResemble, dataB)
		})

		Convey("streams correctly with a caller-supplied buffer size smaller than the data", func() {
			r, err := Open(BytesSource(raw), trusted, WithOpenBufferSize(3))
			So(err, ShouldBeNil)

			var buf bytes.Buffer
			So(r.ReadFile(r.Entries()[1], &buf), ShouldBeNil)
			So(buf.Bytes(), ShouldResemble, dataB)
		})

		Convey("rejects an untrusted signer as UntrustedKey", func() {
			_, err := Open(BytesSource(raw), core.NewTrustSet())
			So(err, ShouldNotBeNil)
			perr, ok := err.(*core.Error)
			So(ok, ShouldBeTrue)
			So(perr.Kind, ShouldEqual, core.KindUntrustedKey)
		})

		Convey("rejects a corrupted entry table as Corrupt", func() {
			corrupt := append([]byte{}, raw...)
			corrupt[core.HeaderSize] ^= 0xff // first byte of the first entry's hash
			_, err := Open(BytesSource(corrupt), trusted)
			So(err, ShouldNotBeNil)
			perr, ok := err.(*core.Error)
			So(ok, ShouldBeTrue)
			So(perr.Kind, ShouldEqual, core.KindCorrupt)
		})

		Convey("rejects a tampered signature as BadSignature", func() {
			corrupt := append([]byte{}, raw...)
			corrupt[0] ^= 0xff
			_, err := Open(BytesSource(corrupt), trusted)
			So(err, ShouldNotBeNil)
			perr, ok := err.(*core.Error)
			So(ok, ShouldBeTrue)
			So(perr.Kind, ShouldEqual, core.KindBadSignature)
		})

		Convey("rejects an entry whose data range exceeds the data region", func() {
			bad := []core.Entry{makeFileEntry("a.txt", dataA, 1_000_000)}
			raw := buildArchive(sec, pub, bad, dataA)
			_, err := Open(BytesSource(raw), trusted)
			So(err, ShouldNotBeNil)
			perr, ok := err.(*core.Error)
			So(ok, ShouldBeTrue)
			So(perr.Kind, ShouldEqual, core.KindInvalidEntry)
		})

		Convey("rejects duplicate entry paths", func() {
			dup := []core.Entry{
				makeFileEntry("a.txt", dataA, 0),
				makeFileEntry("a.txt", dataB, uint64(len(dataA))),
			}
			raw := buildArchive(sec, pub, dup, append(append([]byte{}, dataA...), dataB...))
			_, err := Open(BytesSource(raw), trusted)
			So(err, ShouldNotBeNil)
			perr, ok := err.(*core.Error)
			So(ok, ShouldBeTrue)
			So(perr.Kind, ShouldEqual, core.KindInvalidEntry)
			So(err, ShouldErrLike, "duplicate entry path")
		})

		Convey("ReadFile reports HashMismatch when the data region was tampered with", func() {
			corrupt := append([]byte{}, raw...)
			dataStart := len(corrupt) - len(dataA) - len(dataB)
			corrupt[dataStart] ^= 0xff

			// Re-sign nothing: the header/entries are untouched, so Open still
			// succeeds; only the streamed bytes are wrong.
			r, err := Open(BytesSource(corrupt), trusted)
			So(err, ShouldBeNil)

			var buf bytes.Buffer
			err = r.ReadFile(r.Entries()[0], &buf)
			So(err, ShouldNotBeNil)
			perr, ok := err.(*core.Error)
			So(ok, ShouldBeTrue)
			So(perr.Kind, ShouldEqual, core.KindHashMismatch)
		})

		Convey("HeaderOnly is true for a source with no data region", func() {
			empty := buildArchive(sec, pub, nil, nil)
			r, err := Open(BytesSource(empty), trusted)
			So(err, ShouldBeNil)
			So(r.HeaderOnly(), ShouldBeTrue)
		})
	})
}
