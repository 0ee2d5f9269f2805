// Copyright 2025 The Blobfs Authors. All rights reserved. Use of this source
// code is governed by a BSD-style license that can be found in the LICENSE
// file.

package chunked

import (
	"encoding/binary"
	"fmt"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/substratefs/blobfs/internal/base"
	"github.com/substratefs/blobfs/internal/compression"
)

// testBlob builds a deterministic blob that mixes compressible runs with
// incompressible noise, so every inner codec sees both.
func testBlob(rng *rand.Rand, n int) []byte {
	b := make([]byte, 0, n)
	for len(b) < n {
		if rng.IntN(2) == 0 {
			run := min(1+rng.IntN(512), n-len(b))
			c := byte(rng.Uint32())
			for i := 0; i < run; i++ {
				b = append(b, c)
			}
		} else {
			run := min(1+rng.IntN(512), n-len(b))
			for i := 0; i < run; i++ {
				b = append(b, byte(rng.Uint32()))
			}
		}
	}
	return b
}

func TestChunkedRoundTrip(t *testing.T) {
	seed := uint64(time.Now().UnixNano())
	t.Logf("seed %d", seed)

	for a := compression.Algorithm(0); a < compression.NumAlgorithms; a++ {
		t.Run(a.String(), func(t *testing.T) {
			rng := rand.New(rand.NewPCG(0, seed))
			for _, size := range []int{1, 1000, 1024, 4096, 100_000} {
				src := testBlob(rng, size)
				blob, err := Compress(nil, src, CompressOptions{
					Algorithm: a,
					ChunkSize: MinChunkSize,
				})
				require.NoError(t, err)

				table, err := ParseSeekTable(blob)
				require.NoError(t, err)
				require.Equal(t, a, table.Algorithm)
				require.Equal(t, uint64(size), table.DecompressedSize)
				require.Len(t, table.Entries, (size+MinChunkSize-1)/MinChunkSize)

				dst := make([]byte, size)
				n, err := Decompress(dst, blob)
				require.NoError(t, err)
				require.Equal(t, size, n)
				require.Equal(t, src, dst)
			}
		})
	}
}

// Every chunk decodes on its own from just its frame bytes, without the
// container header.
func TestChunkedRandomAccess(t *testing.T) {
	seed := uint64(time.Now().UnixNano())
	t.Logf("seed %d", seed)
	rng := rand.New(rand.NewPCG(0, seed))

	src := testBlob(rng, 10_000)
	blob, err := Compress(nil, src, CompressOptions{
		Algorithm: compression.Zstd,
		ChunkSize: MinChunkSize,
	})
	require.NoError(t, err)
	table, err := ParseSeekTable(blob)
	require.NoError(t, err)

	for i, e := range table.Entries {
		lo, hi := table.FrameRange(i)
		frame := blob[lo:hi]
		dst := make([]byte, e.DecompressedSize)
		n, err := DecompressFrame(dst, frame)
		require.NoError(t, err, "chunk %d", i)
		require.Equal(t, int(e.DecompressedSize), n)
		require.Equal(t, src[e.DecompressedOffset:e.DecompressedOffset+e.DecompressedSize], dst)
	}
}

func TestLookupChunk(t *testing.T) {
	table := SeekTable{
		DecompressedSize: 2500,
		Entries: []SeekTableEntry{
			{DecompressedOffset: 0, DecompressedSize: 1024},
			{DecompressedOffset: 1024, DecompressedSize: 1024},
			{DecompressedOffset: 2048, DecompressedSize: 452},
		},
	}
	for _, tc := range []struct {
		off   uint64
		chunk int
	}{
		{0, 0}, {1023, 0}, {1024, 1}, {2047, 1}, {2048, 2}, {2499, 2},
	} {
		i, err := table.LookupChunk(tc.off)
		require.NoError(t, err)
		require.Equal(t, tc.chunk, i, "offset %d", tc.off)
	}
	_, err := table.LookupChunk(2500)
	require.ErrorIs(t, err, base.ErrOutOfRange)
}

func TestCompressOptions(t *testing.T) {
	_, err := Compress(nil, []byte("x"), CompressOptions{Algorithm: compression.NumAlgorithms})
	require.ErrorIs(t, err, base.ErrInvalidArgument)

	_, err = Compress(nil, []byte("x"), CompressOptions{
		Algorithm: compression.Zstd,
		ChunkSize: MinChunkSize - 1,
	})
	require.ErrorIs(t, err, base.ErrInvalidArgument)

	// Zero chunk size means DefaultChunkSize.
	blob, err := Compress(nil, make([]byte, DefaultChunkSize+1), CompressOptions{
		Algorithm: compression.Snappy,
	})
	require.NoError(t, err)
	table, err := ParseSeekTable(blob)
	require.NoError(t, err)
	require.Len(t, table.Entries, 2)
	require.Equal(t, uint64(DefaultChunkSize), table.Entries[0].DecompressedSize)
	require.Equal(t, uint64(1), table.Entries[1].DecompressedSize)
}

// Flipping any payload bit must be caught by the frame checksum before the
// inner codec ever sees the data.
func TestChunkedPayloadCorruption(t *testing.T) {
	seed := uint64(time.Now().UnixNano())
	t.Logf("seed %d", seed)
	rng := rand.New(rand.NewPCG(0, seed))

	src := testBlob(rng, 5000)
	blob, err := Compress(nil, src, CompressOptions{
		Algorithm: compression.Zstd,
		ChunkSize: MinChunkSize,
	})
	require.NoError(t, err)
	table, err := ParseSeekTable(blob)
	require.NoError(t, err)

	for run := 0; run < 20; run++ {
		e := table.Entries[rng.IntN(len(table.Entries))]
		corrupt := append([]byte(nil), blob...)
		bit := e.CompressedOffset + frameHeaderSize +
			rng.Uint64N(e.CompressedSize-frameHeaderSize)
		corrupt[bit] ^= 1 << rng.IntN(8)

		dst := make([]byte, len(src))
		_, err := Decompress(dst, corrupt)
		require.True(t, base.IsCorruptionError(err), "err = %v", err)
		require.ErrorContains(t, err, "checksum mismatch")
	}
}

func TestParseSeekTableValidation(t *testing.T) {
	src := testBlob(rand.New(rand.NewPCG(0, 0)), 3000)
	blob, err := Compress(nil, src, CompressOptions{
		Algorithm: compression.MinLZ,
		ChunkSize: MinChunkSize,
	})
	require.NoError(t, err)

	mutate := func(f func(b []byte)) error {
		b := append([]byte(nil), blob...)
		f(b)
		_, err := ParseSeekTable(b)
		return err
	}

	for _, tc := range []struct {
		name   string
		detail string
		f      func(b []byte)
	}{
		{"short", "shorter than the header", func(b []byte) {}},
		{"magic", "bad chunked magic", func(b []byte) { b[0]++ }},
		{"version", "unknown chunked version", func(b []byte) {
			binary.LittleEndian.PutUint32(b[8:], Version+1)
		}},
		{"codec", "unknown inner codec", func(b []byte) {
			b[12] = byte(compression.NumAlgorithms)
		}},
		{"truncated-table", "cannot hold", func(b []byte) {
			binary.LittleEndian.PutUint32(b[16:], 1<<20)
		}},
		{"gap", "does not continue", func(b []byte) {
			// Second entry's decompressed offset.
			binary.LittleEndian.PutUint64(b[headerSize+seekEntrySize:], MinChunkSize+1)
		}},
		{"overlap", "overlaps or is empty", func(b []byte) {
			// Second entry's compressed offset moved back into the first.
			off := binary.LittleEndian.Uint64(b[headerSize+seekEntrySize+16:])
			binary.LittleEndian.PutUint64(b[headerSize+seekEntrySize+16:], off-1)
		}},
		{"out-of-bounds", "beyond blob", func(b []byte) {
			binary.LittleEndian.PutUint64(b[headerSize+24:], 1<<40)
		}},
		{"total-mismatch", "header says", func(b []byte) {
			binary.LittleEndian.PutUint64(b[24:], uint64(len(src))+1)
		}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			err := mutate(tc.f)
			if tc.name == "short" {
				_, err = ParseSeekTable(blob[:headerSize-1])
			}
			require.True(t, base.IsCorruptionError(err), "err = %v", err)
			require.ErrorContains(t, err, tc.detail)
		})
	}
}

func TestDecompressFrameErrors(t *testing.T) {
	_, err := DecompressFrame(make([]byte, 16), make([]byte, frameHeaderSize))
	require.True(t, base.IsCorruptionError(err))
	require.ErrorContains(t, err, "shorter than its header")

	frame := make([]byte, frameHeaderSize+4)
	frame[0] = byte(compression.NumAlgorithms)
	_, err = DecompressFrame(make([]byte, 16), frame)
	require.True(t, base.IsCorruptionError(err))
	require.ErrorContains(t, err, "unknown inner codec")

	// A frame that decompresses to more than the buffer holds is reported
	// before any decoding.
	src := make([]byte, 64)
	blob, err := Compress(nil, src, CompressOptions{
		Algorithm: compression.Snappy,
		ChunkSize: MinChunkSize,
	})
	require.NoError(t, err)
	table, err := ParseSeekTable(blob)
	require.NoError(t, err)
	lo, hi := table.FrameRange(0)
	_, err = DecompressFrame(make([]byte, 8), blob[lo:hi])
	require.True(t, base.IsCorruptionError(err))
	require.ErrorContains(t, err, "buffer holds")
}

// Compress appends to dst, leaving existing bytes untouched.
func TestCompressAppends(t *testing.T) {
	prefix := []byte("existing")
	src := testBlob(rand.New(rand.NewPCG(0, 1)), 2000)
	out, err := Compress(append([]byte(nil), prefix...), src, CompressOptions{
		Algorithm: compression.Zstd,
		ChunkSize: MinChunkSize,
	})
	require.NoError(t, err)
	require.Equal(t, prefix, out[:len(prefix)])

	dst := make([]byte, len(src))
	n, err := Decompress(dst, out[len(prefix):])
	require.NoError(t, err)
	require.Equal(t, len(src), n)
	require.Equal(t, src, dst)
}

func BenchmarkDecompressFrame(b *testing.B) {
	rng := rand.New(rand.NewPCG(0, 0))
	for a := compression.Algorithm(0); a < compression.NumAlgorithms; a++ {
		b.Run(a.String(), func(b *testing.B) {
			src := testBlob(rng, DefaultChunkSize)
			blob, err := Compress(nil, src, CompressOptions{Algorithm: a})
			require.NoError(b, err)
			table, err := ParseSeekTable(blob)
			require.NoError(b, err)
			e := table.Entries[0]
			frame := blob[e.CompressedOffset : e.CompressedOffset+e.CompressedSize]
			dst := make([]byte, e.DecompressedSize)

			b.SetBytes(int64(e.DecompressedSize))
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				if _, err := DecompressFrame(dst, frame); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

func TestHeaderSize(t *testing.T) {
	require.Equal(t, uint64(headerSize), HeaderSize(0))
	require.Equal(t, uint64(headerSize+3*seekEntrySize), HeaderSize(3))
}

func ExampleCompress() {
	src := make([]byte, 3000)
	blob, err := Compress(nil, src, CompressOptions{
		Algorithm: compression.Zstd,
		ChunkSize: MinChunkSize,
	})
	if err != nil {
		panic(err)
	}
	table, _ := ParseSeekTable(blob)
	fmt.Println(len(table.Entries), "chunks,", table.DecompressedSize, "bytes")
	// Output: 3 chunks, 3000 bytes
}
