// Copyright 2025 The Blobfs Authors. All rights reserved. Use of this source
// code is governed by a BSD-style license that can be found in the LICENSE
// file.

package chunked

import (
	"encoding/binary"

	"github.com/cespare/xxhash/v2"
	"github.com/substratefs/blobfs/internal/base"
	"github.com/substratefs/blobfs/internal/compression"
)

// DecompressFrame decodes exactly one self-describing frame into dst,
// returning the number of bytes produced. The frame's payload checksum is
// verified before any decoding; on any error nothing has been written to
// dst. dst must be at least as long as the frame's decompressed size.
//
// A frame can be decoded without its container: this is the random access
// path, used to page in one chunk of a blob without touching the others.
func DecompressFrame(dst, frame []byte) (int, error) {
	if len(frame) <= frameHeaderSize {
		return 0, base.CorruptionErrorf("blobfs: frame of %d bytes is shorter than its header", len(frame))
	}
	algorithm := compression.Algorithm(frame[0])
	if !algorithm.Valid() {
		return 0, base.CorruptionErrorf("blobfs: frame names unknown inner codec %d", frame[0])
	}
	payload := frame[frameHeaderSize:]
	if sum := xxhash.Sum64(payload); sum != binary.LittleEndian.Uint64(frame[1:]) {
		return 0, base.CorruptionErrorf("blobfs: frame checksum mismatch: %#x != %#x",
			sum, binary.LittleEndian.Uint64(frame[1:]))
	}

	decompressor := compression.GetDecompressor(algorithm)
	defer decompressor.Close()
	n, err := decompressor.DecompressedLen(payload)
	if err != nil {
		return 0, err
	}
	if n < 0 || n > len(dst) {
		return 0, base.CorruptionErrorf(
			"blobfs: frame decompresses to %d bytes, buffer holds %d", n, len(dst))
	}
	if err := decompressor.DecompressInto(dst[:n], payload); err != nil {
		return 0, err
	}
	return n, nil
}

// Decompress decodes a whole container into dst, returning the number of
// bytes produced. dst must be at least the container's decompressed size.
func Decompress(dst, src []byte) (int, error) {
	t, err := ParseSeekTable(src)
	if err != nil {
		return 0, err
	}
	if t.DecompressedSize > uint64(len(dst)) {
		return 0, base.CorruptionErrorf(
			"blobfs: container decompresses to %d bytes, buffer holds %d",
			t.DecompressedSize, len(dst))
	}
	for i := range t.Entries {
		e := &t.Entries[i]
		frame := src[e.CompressedOffset : e.CompressedOffset+e.CompressedSize]
		chunk := dst[e.DecompressedOffset : e.DecompressedOffset+e.DecompressedSize]
		n, err := DecompressFrame(chunk, frame)
		if err != nil {
			return 0, err
		}
		if uint64(n) != e.DecompressedSize {
			return 0, base.CorruptionErrorf(
				"blobfs: chunk %d produced %d bytes, seek table says %d", i, n, e.DecompressedSize)
		}
	}
	return int(t.DecompressedSize), nil
}
