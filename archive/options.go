// Copyright 2017 Robert Iannucci Jr. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package archive

// Every operation below streams through a single reusable buffer (spec §5);
// the functional-option types in this file let a caller size that buffer,
// following the same pattern as the teacher's CreateOption/OpenOption.

type streamConfig struct {
	bufSize int
}

func newStreamConfig() streamConfig {
	return streamConfig{bufSize: copyBufSize}
}

// OpenOption configures Open and the Reader it returns.
type OpenOption func(*streamConfig)

// CreateOption configures a Builder.
type CreateOption func(*streamConfig)

// ExtractOption configures Extract.
type ExtractOption func(*streamConfig)

// RemoveOption configures Remove.
type RemoveOption func(*streamConfig)

// VerifyOption configures Verify.
type VerifyOption func(*streamConfig)

// WithOpenBufferSize overrides Open's default 64KiB streaming buffer, used
// whenever the returned Reader's ReadFile is called.
func WithOpenBufferSize(n int) OpenOption { return func(c *streamConfig) { c.bufSize = n } }

// WithCreateBufferSize overrides the default 64KiB buffer a Builder streams
// file contents through while hashing.
func WithCreateBufferSize(n int) CreateOption { return func(c *streamConfig) { c.bufSize = n } }

// WithExtractBufferSize overrides Extract's default 64KiB streaming buffer.
func WithExtractBufferSize(n int) ExtractOption { return func(c *streamConfig) { c.bufSize = n } }

// WithRemoveBufferSize overrides the default 64KiB buffer Remove uses to
// hash on-disk files before unlinking them.
func WithRemoveBufferSize(n int) RemoveOption { return func(c *streamConfig) { c.bufSize = n } }

// WithVerifyBufferSize overrides the default 64KiB buffer Verify uses to
// hash on-disk files.
func WithVerifyBufferSize(n int) VerifyOption { return func(c *streamConfig) { c.bufSize = n } }
