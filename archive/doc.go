// Copyright 2017 Robert Iannucci Jr. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package archive implements the filesystem-facing half of pkgar: building
// an archive from a directory tree, reading and verifying one, and
// extracting, removing, or replacing files against a target directory.
//
// It is built entirely in terms of github.com/redox-os/pkgar/core, which
// owns the wire format, hashing, and signing. archive owns path hygiene and
// the on-disk state machines for getting bytes safely into and out of a
// package.
package archive
