// Copyright 2025 The Blobfs Authors. All rights reserved. Use of this source
// code is governed by a BSD-style license that can be found in the LICENSE
// file.

// Package compression provides the inner codecs used for chunk frames. Each
// frame of a chunked blob is compressed independently with one of these
// algorithms.
package compression

import "github.com/cockroachdb/errors"

// Algorithm identifies an inner compression codec. The values are stored
// physically inside frame headers and must not be changed.
type Algorithm uint8

// The available codecs.
const (
	None   Algorithm = 0
	Snappy Algorithm = 1
	Zstd   Algorithm = 2
	MinLZ  Algorithm = 3

	NumAlgorithms = 4
)

// String implements fmt.Stringer, returning a human-readable name for the
// codec.
func (a Algorithm) String() string {
	switch a {
	case None:
		return "none"
	case Snappy:
		return "snappy"
	case Zstd:
		return "zstd"
	case MinLZ:
		return "minlz"
	default:
		return "unknown"
	}
}

// AlgorithmFromString returns an Algorithm from its string representation.
// Inverse of a.String() above.
func AlgorithmFromString(s string) (Algorithm, error) {
	switch s {
	case "none":
		return None, nil
	case "snappy":
		return Snappy, nil
	case "zstd":
		return Zstd, nil
	case "minlz":
		return MinLZ, nil
	default:
		return 0, errors.Newf("blobfs: unknown compression algorithm %q", s)
	}
}

// Valid returns true if a names a known codec.
func (a Algorithm) Valid() bool {
	return a < NumAlgorithms
}

// Compressor is the interface for compressing chunks.
type Compressor interface {
	// Compress compresses src, writing into dst if it has enough capacity,
	// and returns the resulting slice. Any existing contents of dst are
	// overwritten.
	Compress(dst, src []byte) []byte

	// Close must be called when the compressor is no longer needed.
	Close()
}

// Decompressor is the interface for decompressing chunk frames.
type Decompressor interface {
	// DecompressInto decompresses the compressed payload into dst. The
	// length of dst must exactly match the decompressed length of the
	// payload (obtainable via DecompressedLen).
	DecompressInto(dst, src []byte) error

	// DecompressedLen returns the decompressed length of the payload.
	DecompressedLen(b []byte) (decompressedLen int, err error)

	// Close must be called when the decompressor is no longer needed.
	Close()
}

// GetCompressor returns a Compressor for the given algorithm. Close must be
// called on the result.
func GetCompressor(a Algorithm) Compressor {
	switch a {
	case None:
		return noopCompressor{}
	case Snappy:
		return snappyCompressor{}
	case Zstd:
		return getZstdCompressor(defaultZstdLevel)
	case MinLZ:
		return getMinlzCompressor()
	default:
		panic(errors.AssertionFailedf("blobfs: unknown compression algorithm %d", a))
	}
}

// GetDecompressor returns a Decompressor for the given algorithm. Close must
// be called on the result.
func GetDecompressor(a Algorithm) Decompressor {
	switch a {
	case None:
		return noopDecompressor{}
	case Snappy:
		return snappyDecompressor{}
	case Zstd:
		return getZstdDecompressor()
	case MinLZ:
		return minlzDecompressor{}
	default:
		panic(errors.AssertionFailedf("blobfs: unknown compression algorithm %d", a))
	}
}

const defaultZstdLevel = 3
