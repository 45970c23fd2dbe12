// Copyright 2017 Robert Iannucci Jr. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package pkgar implements a signed, content-addressed archive format.
//
// An archive packages a directory tree as a 136-byte signed header
// (an Ed25519 detached signature over the embedded public key, the
// BLAKE3 hash of the entry table, and the entry count) followed by a
// packed table of fixed-size entries -- one per file or symlink,
// recording its BLAKE3 content hash, data offset and size, mode bits,
// and relative path -- followed by the concatenated file data itself.
//
// There is no magic number or version field: a caller either trusts
// the embedded public key or it doesn't, and the wire layout is fixed.
// An archive can also live split across a head and a data file
// (conventionally ".pkgar_head" and ".pkgar_data"), whose byte-exact
// concatenation reproduces the single-file form; this lets a header be
// fetched and verified before any file data is transferred.
//
// Package core defines the wire format, hashing, and signing
// primitives. Package archive builds on core to provide a streaming
// Reader/Builder and the create/list/extract/verify/remove/split/
// replace operations against a filesystem tree.
package pkgar
