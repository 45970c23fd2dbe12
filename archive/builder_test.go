// Copyright 2017 Robert Iannucci Jr. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package archive

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/redox-os/pkgar/core"
)

func writeTestTree(t *testing.T, root string) {
	t.Helper()
	must := func(err error) {
		if err != nil {
			t.Fatal(err)
		}
	}
	must(os.MkdirAll(filepath.Join(root, "sub"), 0o755))
	must(os.WriteFile(filepath.Join(root, "a.txt"), []byte("hello\n"), 0o644))
	must(os.WriteFile(filepath.Join(root, "sub", "b.txt"), []byte("world\n"), 0o600))
	must(os.Symlink("../a.txt", filepath.Join(root, "sub", "link")))
}

func TestBuilder(t *testing.T) {
	t.Parallel()

	Convey("Builder", t, func() {
		dir := t.TempDir()
		writeTestTree(t, dir)

		var seed [32]byte
		seed[0] = 3
		pub, sec := core.DeriveKeyPair(seed)

		build := func() []byte {
			b := NewBuilder(sec)
			So(b.AddDir(dir), ShouldBeNil)
			var out bytes.Buffer
			So(b.WriteArchive(&out), ShouldBeNil)
			return out.Bytes()
		}

		Convey("produces an archive that Opens and round-trips file contents", func() {
			raw := build()
			r, err := Open(BytesSource(raw), core.NewTrustSet(pub))
			So(err, ShouldBeNil)

			entries := r.Entries()
			So(len(entries), ShouldEqual, 3)

			byPath := map[string]core.Entry{}
			for _, e := range entries {
				byPath[e.Path()] = e
			}

			var buf bytes.Buffer
			So(r.ReadFile(byPath["a.txt"], &buf), ShouldBeNil)
			So(buf.String(), ShouldEqual, "hello\n")

			buf.Reset()
			So(r.ReadFile(byPath["sub/b.txt"], &buf), ShouldBeNil)
			So(buf.String(), ShouldEqual, "world\n")

			buf.Reset()
			So(r.ReadFile(byPath["sub/link"], &buf), ShouldBeNil)
			So(buf.String(), ShouldEqual, "../a.txt")
			So(byPath["sub/link"].ModeBits.IsSymlink(), ShouldBeTrue)
		})

		Convey("is byte-for-byte reproducible across repeated builds of the same tree", func() {
			a := build()
			b := build()
			So(a, ShouldResemble, b)
		})

		Convey("entries are stored in sorted path order regardless of walk order", func() {
			raw := build()
			r, err := Open(BytesSource(raw), core.NewTrustSet(pub))
			So(err, ShouldBeNil)

			paths := make([]string, len(r.Entries()))
			for i, e := range r.Entries() {
				paths[i] = e.Path()
			}
			So(paths, ShouldResemble, []string{"a.txt", "sub/b.txt", "sub/link"})
		})

		Convey("produces the same archive regardless of the streaming buffer size", func() {
			b := NewBuilder(sec, WithCreateBufferSize(1))
			So(b.AddDir(dir), ShouldBeNil)
			var out bytes.Buffer
			So(b.WriteArchive(&out), ShouldBeNil)
			So(out.Bytes(), ShouldResemble, build())
		})

		Convey("rejects a second entry queued at a path already in use", func() {
			b := NewBuilder(sec)
			So(b.AddFile("a.txt", filepath.Join(dir, "a.txt"), 0o644), ShouldBeNil)
			So(b.AddFile("a.txt", filepath.Join(dir, "sub", "b.txt"), 0o644), ShouldBeNil)

			var out bytes.Buffer
			So(b.WriteArchive(&out), ShouldNotBeNil)
		})
	})
}
