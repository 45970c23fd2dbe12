// Copyright 2017 Robert Iannucci Jr. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package archive

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/redox-os/pkgar/core"
)

func TestExtract(t *testing.T) {
	t.Parallel()

	Convey("Extract", t, func() {
		srcDir := t.TempDir()
		writeTestTree(t, srcDir)

		var seed [32]byte
		seed[0] = 11
		pub, sec := core.DeriveKeyPair(seed)

		b := NewBuilder(sec)
		So(b.AddDir(srcDir), ShouldBeNil)
		var raw bytes.Buffer
		So(b.WriteArchive(&raw), ShouldBeNil)

		r, err := Open(BytesSource(raw.Bytes()), core.NewTrustSet(pub))
		So(err, ShouldBeNil)

		Convey("materializes every file and symlink under an empty root", func() {
			dst := t.TempDir()
			So(Extract(context.Background(), r, dst), ShouldBeNil)

			got, err := os.ReadFile(filepath.Join(dst, "a.txt"))
			So(err, ShouldBeNil)
			So(string(got), ShouldEqual, "hello\n")

			got, err = os.ReadFile(filepath.Join(dst, "sub", "b.txt"))
			So(err, ShouldBeNil)
			So(string(got), ShouldEqual, "world\n")

			link, err := os.Readlink(filepath.Join(dst, "sub", "link"))
			So(err, ShouldBeNil)
			So(link, ShouldEqual, "../a.txt")

			So(fileMode(t, filepath.Join(dst, "sub", "b.txt"))&0o777, ShouldEqual, os.FileMode(0o600))

			entries, err := os.ReadDir(filepath.Join(dst, "sub"))
			So(err, ShouldBeNil)
			for _, e := range entries {
				So(e.Name(), ShouldNotContainSubstring, stagingSuffix)
			}
		})

		Convey("leaves no staging file behind on success", func() {
			dst := t.TempDir()
			So(Extract(context.Background(), r, dst), ShouldBeNil)
			_, err := os.Stat(filepath.Join(dst, "a.txt") + stagingSuffix)
			So(os.IsNotExist(err), ShouldBeTrue)
		})
	})
}

func fileMode(t *testing.T, path string) os.FileMode {
	t.Helper()
	fi, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	return fi.Mode()
}
