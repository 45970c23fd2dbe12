// Copyright 2017 Robert Iannucci Jr. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package core implements the on-disk binary layout of a pkgar archive: the
// fixed-size Header and Entry records, the BLAKE3 content hash used for both
// file data and the entry table, and the detached Ed25519 signature that
// binds a header to a trusted key.
//
// core knows nothing about filesystems or directory trees. It only knows how
// to turn bytes into Header/Entry values and back, and how to hash and sign
// them. The archive package builds the create/list/extract/remove/verify/
// split operations on top of these primitives.
package core
