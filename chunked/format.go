// Copyright 2025 The Blobfs Authors. All rights reserved. Use of this source
// code is governed by a BSD-style license that can be found in the LICENSE
// file.

// Package chunked implements the chunked compression container: a blob is
// divided into fixed-size chunks, each compressed into an independently
// decodable frame. A seek table pairs every frame's compressed byte range
// with the decompressed byte range it reproduces, so any chunk can be
// decoded without touching its neighbors.
//
// Container layout (little endian):
//
//	header      magic u64, version u32, algorithm u8, reserved [3]u8,
//	            chunk count u32, reserved u32, decompressed size u64
//	seek table  per chunk: decompressed offset/size, compressed
//	            offset/size, frame checksum (all u64)
//	frames      one per chunk, at the recorded compressed offsets
//
// Each frame is self-describing: a one-byte inner codec tag and an xxhash64
// checksum of the payload precede the compressed payload itself.
package chunked

import (
	"encoding/binary"

	"github.com/cockroachdb/errors"
	"github.com/substratefs/blobfs/internal/base"
	"github.com/substratefs/blobfs/internal/compression"
)

// Magic identifies a chunked container. These constants are part of the
// on-disk format and must not be changed.
const (
	Magic   uint64 = 0x6b6e6863626f6c62 // "blobchnk", little endian
	Version uint32 = 1

	headerSize    = 32
	seekEntrySize = 40

	// frameHeaderSize is the length of the per-frame header: codec tag and
	// payload checksum.
	frameHeaderSize = 9

	// DefaultChunkSize is the decompressed chunk size used by the encoder
	// unless overridden.
	DefaultChunkSize = 1 << 20

	// MinChunkSize bounds how small an encoder chunk may be. Tiny chunks
	// bloat the seek table faster than they help random access.
	MinChunkSize = 1 << 10
)

// SeekTableEntry describes one chunk: the frame's byte range within the
// compressed blob and the decompressed byte range it reproduces.
type SeekTableEntry struct {
	DecompressedOffset uint64
	DecompressedSize   uint64
	CompressedOffset   uint64
	CompressedSize     uint64
	// Checksum is the xxhash64 of the frame's compressed payload. It
	// duplicates the checksum carried in the frame header so tooling can
	// audit a container without decoding it.
	Checksum uint64
}

// SeekTable is the parsed header and seek table of a chunked container.
type SeekTable struct {
	Algorithm        compression.Algorithm
	DecompressedSize uint64
	Entries          []SeekTableEntry
}

// HeaderSize returns the byte length of the header plus seek table for a
// container with chunks chunks.
func HeaderSize(chunks int) uint64 {
	return headerSize + uint64(chunks)*seekEntrySize
}

// LookupChunk returns the index of the chunk containing decompressed byte
// offset off.
func (t *SeekTable) LookupChunk(off uint64) (int, error) {
	if off >= t.DecompressedSize {
		return 0, errors.Wrapf(base.ErrOutOfRange,
			"offset %d beyond decompressed size %d", off, t.DecompressedSize)
	}
	for i := range t.Entries {
		e := &t.Entries[i]
		if off >= e.DecompressedOffset && off < e.DecompressedOffset+e.DecompressedSize {
			return i, nil
		}
	}
	return 0, base.CorruptionErrorf("blobfs: seek table does not cover offset %d", off)
}

// FrameRange returns the byte range [start, end) occupied by chunk i's
// frame within the compressed blob.
func (t *SeekTable) FrameRange(i int) (start, end uint64) {
	e := &t.Entries[i]
	return e.CompressedOffset, e.CompressedOffset + e.CompressedSize
}

// ParseSeekTable decodes and validates the header and seek table at the
// start of a compressed blob.
func ParseSeekTable(src []byte) (SeekTable, error) {
	if uint64(len(src)) < headerSize {
		return SeekTable{}, base.CorruptionErrorf(
			"blobfs: chunked blob of %d bytes is shorter than the header", len(src))
	}
	if got := binary.LittleEndian.Uint64(src[0:]); got != Magic {
		return SeekTable{}, base.CorruptionErrorf("blobfs: bad chunked magic %#x", got)
	}
	if got := binary.LittleEndian.Uint32(src[8:]); got != Version {
		return SeekTable{}, base.CorruptionErrorf("blobfs: unknown chunked version %d", got)
	}
	algorithm := compression.Algorithm(src[12])
	if !algorithm.Valid() {
		return SeekTable{}, base.CorruptionErrorf("blobfs: unknown inner codec %d", src[12])
	}
	chunks := binary.LittleEndian.Uint32(src[16:])
	decompressedSize := binary.LittleEndian.Uint64(src[24:])
	if uint64(len(src)) < HeaderSize(int(chunks)) {
		return SeekTable{}, base.CorruptionErrorf(
			"blobfs: chunked blob of %d bytes cannot hold a %d-chunk seek table", len(src), chunks)
	}

	t := SeekTable{
		Algorithm:        algorithm,
		DecompressedSize: decompressedSize,
		Entries:          make([]SeekTableEntry, chunks),
	}
	var decompressedEnd, compressedEnd uint64
	compressedEnd = HeaderSize(int(chunks))
	for i := range t.Entries {
		e := &t.Entries[i]
		off := headerSize + uint64(i)*seekEntrySize
		e.DecompressedOffset = binary.LittleEndian.Uint64(src[off+0:])
		e.DecompressedSize = binary.LittleEndian.Uint64(src[off+8:])
		e.CompressedOffset = binary.LittleEndian.Uint64(src[off+16:])
		e.CompressedSize = binary.LittleEndian.Uint64(src[off+24:])
		e.Checksum = binary.LittleEndian.Uint64(src[off+32:])

		// Decompressed ranges must tile [0, decompressedSize) in order;
		// compressed ranges must be in order, non-overlapping, in bounds.
		if e.DecompressedOffset != decompressedEnd || e.DecompressedSize == 0 {
			return SeekTable{}, base.CorruptionErrorf(
				"blobfs: seek entry %d decompressed range [%d, %d) does not continue at %d",
				i, e.DecompressedOffset, e.DecompressedOffset+e.DecompressedSize, decompressedEnd)
		}
		if e.CompressedOffset < compressedEnd || e.CompressedSize <= frameHeaderSize {
			return SeekTable{}, base.CorruptionErrorf(
				"blobfs: seek entry %d compressed range [%d, %d) overlaps or is empty",
				i, e.CompressedOffset, e.CompressedOffset+e.CompressedSize)
		}
		if e.CompressedSize > uint64(len(src)) || e.CompressedOffset > uint64(len(src))-e.CompressedSize {
			return SeekTable{}, base.CorruptionErrorf(
				"blobfs: seek entry %d compressed range [%d, %d) beyond blob of %d bytes",
				i, e.CompressedOffset, e.CompressedOffset+e.CompressedSize, len(src))
		}
		decompressedEnd = e.DecompressedOffset + e.DecompressedSize
		compressedEnd = e.CompressedOffset + e.CompressedSize
	}
	if decompressedEnd != decompressedSize {
		return SeekTable{}, base.CorruptionErrorf(
			"blobfs: seek table covers %d decompressed bytes, header says %d",
			decompressedEnd, decompressedSize)
	}
	return t, nil
}
