// Copyright 2017 Robert Iannucci Jr. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package archive

import (
	"os"
	"path/filepath"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/redox-os/pkgar/core"
)

func TestVerify(t *testing.T) {
	t.Parallel()

	Convey("Verify", t, func() {
		r, dst, _ := buildAndExtract(t)

		Convey("reports no mismatches for an untouched extraction", func() {
			mismatches, err := Verify(r, dst)
			So(err, ShouldBeNil)
			So(mismatches, ShouldBeEmpty)
		})

		Convey("accumulates every mismatch instead of stopping at the first", func() {
			So(os.WriteFile(filepath.Join(dst, "a.txt"), []byte("tampered\n"), 0o644), ShouldBeNil)
			So(os.WriteFile(filepath.Join(dst, "sub", "b.txt"), []byte("also tampered\n"), 0o644), ShouldBeNil)

			mismatches, err := Verify(r, dst)
			So(err, ShouldBeNil)
			So(len(mismatches), ShouldEqual, 2)

			paths := map[string]bool{}
			for _, m := range mismatches {
				paths[m.Path] = true
				perr, ok := m.Err.(*core.Error)
				So(ok, ShouldBeTrue)
				So(perr.Kind, ShouldEqual, core.KindHashMismatch)
			}
			So(paths["a.txt"], ShouldBeTrue)
			So(paths["sub/b.txt"], ShouldBeTrue)
		})

		Convey("reports a missing file as a mismatch, not a fatal error", func() {
			So(os.Remove(filepath.Join(dst, "a.txt")), ShouldBeNil)

			mismatches, err := Verify(r, dst)
			So(err, ShouldBeNil)
			So(len(mismatches), ShouldEqual, 1)
			So(mismatches[0].Path, ShouldEqual, "a.txt")
		})
	})
}
