// Copyright 2025 The Blobfs Authors. All rights reserved. Use of this source
// code is governed by a BSD-style license that can be found in the LICENSE
// file.

package chunked

import (
	"encoding/binary"

	"github.com/cespare/xxhash/v2"
	"github.com/cockroachdb/errors"
	"github.com/substratefs/blobfs/internal/base"
	"github.com/substratefs/blobfs/internal/compression"
)

// CompressOptions configures the encoder.
type CompressOptions struct {
	// Algorithm is the inner codec. The zero value is compression.None;
	// storage callers want compression.Zstd.
	Algorithm compression.Algorithm
	// ChunkSize is the decompressed chunk size; defaults to
	// DefaultChunkSize and must be at least MinChunkSize.
	ChunkSize uint64
}

// Compress encodes src as a chunked container, appending to dst. The
// encoder exists for tooling and tests; the storage read path only ever
// decodes.
func Compress(dst, src []byte, opts CompressOptions) ([]byte, error) {
	if !opts.Algorithm.Valid() {
		return nil, errors.Wrapf(base.ErrInvalidArgument, "unknown inner codec %d", opts.Algorithm)
	}
	if opts.ChunkSize == 0 {
		opts.ChunkSize = DefaultChunkSize
	}
	if opts.ChunkSize < MinChunkSize {
		return nil, errors.Wrapf(base.ErrInvalidArgument,
			"chunk size %d below minimum %d", opts.ChunkSize, MinChunkSize)
	}

	chunks := int((uint64(len(src)) + opts.ChunkSize - 1) / opts.ChunkSize)
	tableSize := HeaderSize(chunks)

	start := len(dst)
	out := append(dst, make([]byte, tableSize)...)

	compressor := compression.GetCompressor(opts.Algorithm)
	defer compressor.Close()

	entries := make([]SeekTableEntry, chunks)
	var frameBuf []byte
	for i := range entries {
		lo := uint64(i) * opts.ChunkSize
		hi := min(lo+opts.ChunkSize, uint64(len(src)))
		payload := compressor.Compress(frameBuf[:0], src[lo:hi])
		frameBuf = payload

		frameOff := uint64(len(out)) - uint64(start)
		out = append(out, byte(opts.Algorithm))
		var sum [8]byte
		binary.LittleEndian.PutUint64(sum[:], xxhash.Sum64(payload))
		out = append(out, sum[:]...)
		out = append(out, payload...)

		entries[i] = SeekTableEntry{
			DecompressedOffset: lo,
			DecompressedSize:   hi - lo,
			CompressedOffset:   frameOff,
			CompressedSize:     frameHeaderSize + uint64(len(payload)),
			Checksum:           binary.LittleEndian.Uint64(sum[:]),
		}
	}

	hdr := out[start:]
	binary.LittleEndian.PutUint64(hdr[0:], Magic)
	binary.LittleEndian.PutUint32(hdr[8:], Version)
	hdr[12] = byte(opts.Algorithm)
	binary.LittleEndian.PutUint32(hdr[16:], uint32(chunks))
	binary.LittleEndian.PutUint64(hdr[24:], uint64(len(src)))
	for i, e := range entries {
		off := headerSize + uint64(i)*seekEntrySize
		binary.LittleEndian.PutUint64(hdr[off+0:], e.DecompressedOffset)
		binary.LittleEndian.PutUint64(hdr[off+8:], e.DecompressedSize)
		binary.LittleEndian.PutUint64(hdr[off+16:], e.CompressedOffset)
		binary.LittleEndian.PutUint64(hdr[off+24:], e.CompressedSize)
		binary.LittleEndian.PutUint64(hdr[off+32:], e.Checksum)
	}
	return out, nil
}
