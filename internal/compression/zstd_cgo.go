// Copyright 2025 The Blobfs Authors. All rights reserved. Use of this source
// code is governed by a BSD-style license that can be found in the LICENSE
// file.

//go:build cgo

package compression

import (
	"encoding/binary"

	"github.com/DataDog/zstd"
	"github.com/cockroachdb/errors"
	"github.com/substratefs/blobfs/internal/base"
)

type zstdCompressor struct {
	level int
}

var _ Compressor = (*zstdCompressor)(nil)

func getZstdCompressor(level int) *zstdCompressor {
	return &zstdCompressor{level: level}
}

// UseStandardZstdLib indicates whether the zstd implementation is a port of
// the official one in the facebook/zstd repository.
//
// This constant is only used in tests. Some tests rely on reproducibility of
// compressed output, and a custom implementation of zstd produces different
// bytes for the same input.
const UseStandardZstdLib = true

// Compress appends a payload compressed with zstd. The payload is prefixed
// with a varint encoding the decompressed length.
func (z *zstdCompressor) Compress(dst, src []byte) []byte {
	var prefix [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(prefix[:], uint64(len(src)))
	payload, err := zstd.CompressLevel(nil, src, z.level)
	if err != nil {
		panic(errors.Wrap(err, "zstd compression"))
	}
	dst = append(dst[:0], prefix[:n]...)
	return append(dst, payload...)
}

func (z *zstdCompressor) Close() {}

type zstdDecompressor struct{}

var _ Decompressor = zstdDecompressor{}

func (zstdDecompressor) DecompressInto(dst, src []byte) error {
	// The payload is prefixed with a varint encoding the length of the
	// decompressed payload.
	_, prefixLen := binary.Uvarint(src)
	if prefixLen <= 0 {
		return base.CorruptionErrorf("blobfs: compressed frame has invalid length prefix")
	}
	src = src[prefixLen:]
	result, err := zstd.Decompress(dst, src)
	if err != nil {
		return base.MarkCorruptionError(err)
	}
	if len(result) != len(dst) || (len(result) > 0 && &result[0] != &dst[0]) {
		return base.CorruptionErrorf("blobfs: decompressed into unexpected buffer: %p != %p",
			errors.Safe(result), errors.Safe(dst))
	}
	return nil
}

func (zstdDecompressor) DecompressedLen(b []byte) (decompressedLen int, err error) {
	decodedLenU64, varIntLen := binary.Uvarint(b)
	if varIntLen <= 0 {
		return 0, base.CorruptionErrorf("blobfs: compressed frame has invalid length prefix")
	}
	return int(decodedLenU64), nil
}

func (zstdDecompressor) Close() {}

func getZstdDecompressor() zstdDecompressor {
	return zstdDecompressor{}
}
