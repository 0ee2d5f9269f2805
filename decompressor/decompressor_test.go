// Copyright 2025 The Blobfs Authors. All rights reserved. Use of this source
// code is governed by a BSD-style license that can be found in the LICENSE
// file.

package decompressor

import (
	"bytes"
	"math"
	"net"
	"testing"

	"github.com/cockroachdb/crlib/testutils/leaktest"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
	"github.com/substratefs/blobfs/chunked"
	"github.com/substratefs/blobfs/internal/compression"
)

const testChunkSize = chunked.MinChunkSize

// testBlob returns a blob whose byte at offset i is a function of i, so a
// misplaced chunk is caught by content, not just by length.
func testBlob(n int) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = byte(i*7 + i>>8)
	}
	return b
}

// newTestSession compresses src into the session's compressed mapping,
// provides a decompressed mapping of len(src) bytes filled with sentinel
// bytes, and returns the client end plus both buffers.
func newTestSession(t *testing.T, srv *Server, src []byte) (*Client, []byte, []byte) {
	blob, err := chunked.Compress(nil, src, chunked.CompressOptions{
		Algorithm: compression.Zstd,
		ChunkSize: testChunkSize,
	})
	require.NoError(t, err)

	decompressed := make([]byte, len(src))
	for i := range decompressed {
		decompressed[i] = 0xaa
	}

	serverEnd, clientEnd := net.Pipe()
	require.NoError(t, srv.CreateSession(serverEnd, NewRegion(blob), NewRegion(decompressed)))
	return NewClient(clientEnd), blob, decompressed
}

func TestChunkedPartial(t *testing.T) {
	defer leaktest.AfterTest(t)()

	src := testBlob(4 * testChunkSize)
	srv := NewServer(Options{})
	client, blob, decompressed := newTestSession(t, srv, src)
	defer srv.Close()

	table, err := chunked.ParseSeekTable(blob)
	require.NoError(t, err)
	require.Len(t, table.Entries, 4)

	// Page in chunk 2 alone.
	e := table.Entries[2]
	resp, err := client.Do(Request{
		Decompressed: Range{Offset: e.DecompressedOffset, Size: e.DecompressedSize},
		Compressed:   Range{Offset: e.CompressedOffset, Size: e.CompressedSize},
		Algorithm:    ChunkedPartial,
	})
	require.NoError(t, err)
	require.Equal(t, StatusOK, resp.Status)
	require.Equal(t, e.DecompressedSize, resp.Size)

	// The chunk's range holds the blob bytes; everything else still holds
	// the sentinel.
	lo, hi := int(e.DecompressedOffset), int(e.DecompressedOffset+e.DecompressedSize)
	require.Equal(t, src[lo:hi], decompressed[lo:hi])
	for _, b := range decompressed[:lo] {
		require.Equal(t, byte(0xaa), b)
	}
	for _, b := range decompressed[hi:] {
		require.Equal(t, byte(0xaa), b)
	}
}

func TestChunkedFull(t *testing.T) {
	defer leaktest.AfterTest(t)()

	src := testBlob(3*testChunkSize + 100)
	srv := NewServer(Options{})
	client, blob, decompressed := newTestSession(t, srv, src)
	defer srv.Close()

	resp, err := client.Do(Request{
		Decompressed: Range{Offset: 0, Size: uint64(len(decompressed))},
		Compressed:   Range{Offset: 0, Size: uint64(len(blob))},
		Algorithm:    Chunked,
	})
	require.NoError(t, err)
	require.Equal(t, StatusOK, resp.Status)
	require.Equal(t, uint64(len(src)), resp.Size)
	require.Equal(t, src, decompressed)
}

// The full-container transform is defined only over whole mappings; a
// nonzero offset on either side is rejected before any work happens.
func TestChunkedNonzeroOffsets(t *testing.T) {
	defer leaktest.AfterTest(t)()

	src := testBlob(2 * testChunkSize)
	srv := NewServer(Options{})
	client, blob, decompressed := newTestSession(t, srv, src)
	defer srv.Close()

	for _, req := range []Request{
		{
			Decompressed: Range{Offset: 1, Size: uint64(len(decompressed)) - 1},
			Compressed:   Range{Offset: 0, Size: uint64(len(blob))},
			Algorithm:    Chunked,
		},
		{
			Decompressed: Range{Offset: 0, Size: uint64(len(decompressed))},
			Compressed:   Range{Offset: 1, Size: uint64(len(blob)) - 1},
			Algorithm:    Chunked,
		},
	} {
		resp, err := client.Do(req)
		require.NoError(t, err)
		require.Equal(t, StatusNotSupported, resp.Status)
	}
	require.Equal(t, bytes.Repeat([]byte{0xaa}, len(decompressed)), decompressed)
}

func TestUnsupportedAlgorithms(t *testing.T) {
	defer leaktest.AfterTest(t)()

	src := testBlob(testChunkSize)
	srv := NewServer(Options{})
	client, blob, decompressed := newTestSession(t, srv, src)
	defer srv.Close()

	for _, a := range []Algorithm{Uncompressed, LZ4, Zstd, ZstdSeekable, Algorithm(99)} {
		resp, err := client.Do(Request{
			Decompressed: Range{Offset: 0, Size: uint64(len(decompressed))},
			Compressed:   Range{Offset: 0, Size: uint64(len(blob))},
			Algorithm:    a,
		})
		require.NoError(t, err, "algorithm %s", a)
		require.Equal(t, StatusNotSupported, resp.Status, "algorithm %s", a)
	}
	require.Equal(t, bytes.Repeat([]byte{0xaa}, len(decompressed)), decompressed)
}

// Out-of-bounds ranges, including ones whose offset+size overflows, fail
// with out-of-range and leave the decompressed mapping bit for bit
// untouched.
func TestOutOfRange(t *testing.T) {
	defer leaktest.AfterTest(t)()

	src := testBlob(2 * testChunkSize)
	srv := NewServer(Options{})
	client, blob, decompressed := newTestSession(t, srv, src)
	defer srv.Close()

	wholeCompressed := Range{Offset: 0, Size: uint64(len(blob))}
	wholeDecompressed := Range{Offset: 0, Size: uint64(len(decompressed))}
	for _, req := range []Request{
		{
			Decompressed: wholeDecompressed,
			Compressed:   Range{Offset: 0, Size: uint64(len(blob)) + 1},
			Algorithm:    Chunked,
		},
		{
			Decompressed: Range{Offset: uint64(len(decompressed)), Size: 1},
			Compressed:   wholeCompressed,
			Algorithm:    ChunkedPartial,
		},
		{
			Decompressed: wholeDecompressed,
			Compressed:   Range{Offset: 8, Size: math.MaxUint64 - 4},
			Algorithm:    Chunked,
		},
		{
			Decompressed: Range{Offset: math.MaxUint64, Size: math.MaxUint64},
			Compressed:   wholeCompressed,
			Algorithm:    ChunkedPartial,
		},
	} {
		resp, err := client.Do(req)
		require.NoError(t, err)
		require.Equal(t, StatusOutOfRange, resp.Status)
	}
	require.Equal(t, bytes.Repeat([]byte{0xaa}, len(decompressed)), decompressed)
}

func TestCorruptFrame(t *testing.T) {
	defer leaktest.AfterTest(t)()

	src := testBlob(2 * testChunkSize)
	blob, err := chunked.Compress(nil, src, chunked.CompressOptions{
		Algorithm: compression.Zstd,
		ChunkSize: testChunkSize,
	})
	require.NoError(t, err)
	table, err := chunked.ParseSeekTable(blob)
	require.NoError(t, err)
	e := table.Entries[1]

	// Flip one payload byte of chunk 1's frame.
	blob[e.CompressedOffset+e.CompressedSize-1] ^= 0x80

	decompressed := make([]byte, len(src))
	serverEnd, clientEnd := net.Pipe()
	srv := NewServer(Options{})
	require.NoError(t, srv.CreateSession(serverEnd, NewRegion(blob), NewRegion(decompressed)))
	defer srv.Close()
	client := NewClient(clientEnd)

	resp, err := client.Do(Request{
		Decompressed: Range{Offset: e.DecompressedOffset, Size: e.DecompressedSize},
		Compressed:   Range{Offset: e.CompressedOffset, Size: e.CompressedSize},
		Algorithm:    ChunkedPartial,
	})
	require.NoError(t, err)
	require.Equal(t, StatusDataIntegrity, resp.Status)

	// The intact chunk still decodes over the same session.
	e0 := table.Entries[0]
	resp, err = client.Do(Request{
		Decompressed: Range{Offset: e0.DecompressedOffset, Size: e0.DecompressedSize},
		Compressed:   Range{Offset: e0.CompressedOffset, Size: e0.CompressedSize},
		Algorithm:    ChunkedPartial,
	})
	require.NoError(t, err)
	require.Equal(t, StatusOK, resp.Status)
}

// A session ends silently when the peer closes its endpoint; Wait returns
// and no goroutine is left behind.
func TestSessionTeardownOnPeerClose(t *testing.T) {
	defer leaktest.AfterTest(t)()

	src := testBlob(testChunkSize)
	srv := NewServer(Options{})
	client, _, _ := newTestSession(t, srv, src)

	require.NoError(t, client.Close())
	srv.Wait()
	require.NoError(t, srv.Close())
}

func TestServerClose(t *testing.T) {
	defer leaktest.AfterTest(t)()

	srv := NewServer(Options{})
	var clients []*Client
	for i := 0; i < 4; i++ {
		client, _, _ := newTestSession(t, srv, testBlob(testChunkSize))
		clients = append(clients, client)
	}
	require.NoError(t, srv.Close())

	// Every channel is dead from the client's point of view.
	for _, client := range clients {
		_, err := client.Do(Request{Algorithm: Chunked})
		require.Error(t, err)
	}

	// New sessions are refused after Close.
	serverEnd, clientEnd := net.Pipe()
	defer clientEnd.Close()
	defer serverEnd.Close()
	err := srv.CreateSession(serverEnd, NewRegion(nil), NewRegion(nil))
	require.Error(t, err)
}

func TestMetrics(t *testing.T) {
	defer leaktest.AfterTest(t)()

	m := Metrics{
		Sessions: prometheus.NewGauge(prometheus.GaugeOpts{Name: "sessions"}),
		Requests: prometheus.NewCounter(prometheus.CounterOpts{Name: "requests"}),
		Failures: prometheus.NewCounter(prometheus.CounterOpts{Name: "failures"}),
		RequestLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name: "request_latency",
		}),
	}
	srv := NewServer(Options{Metrics: m})
	src := testBlob(testChunkSize)
	client, blob, decompressed := newTestSession(t, srv, src)
	require.Equal(t, 1.0, testutil.ToFloat64(m.Sessions))

	resp, err := client.Do(Request{
		Decompressed: Range{Offset: 0, Size: uint64(len(decompressed))},
		Compressed:   Range{Offset: 0, Size: uint64(len(blob))},
		Algorithm:    Chunked,
	})
	require.NoError(t, err)
	require.Equal(t, StatusOK, resp.Status)

	resp, err = client.Do(Request{Algorithm: Uncompressed})
	require.NoError(t, err)
	require.Equal(t, StatusNotSupported, resp.Status)

	require.NoError(t, client.Close())
	srv.Wait()
	require.Equal(t, 0.0, testutil.ToFloat64(m.Sessions))
	require.Equal(t, 2.0, testutil.ToFloat64(m.Requests))
	require.Equal(t, 1.0, testutil.ToFloat64(m.Failures))
	require.NoError(t, srv.Close())
}

func TestStatusErr(t *testing.T) {
	require.NoError(t, StatusOK.Err())
	for _, s := range []Status{
		StatusInternal, StatusNotSupported, StatusOutOfRange, StatusDataIntegrity,
	} {
		require.Error(t, s.Err(), "status %s", s)
		require.Equal(t, s, statusFromError(s.Err()), "status %s", s)
	}
}

func TestWireRecords(t *testing.T) {
	req := Request{
		Decompressed: Range{Offset: 0x1122334455667788, Size: 0x99aabbccddeeff00},
		Compressed:   Range{Offset: 0x0102030405060708, Size: 0x090a0b0c0d0e0f10},
		Algorithm:    ChunkedPartial,
	}
	var reqBuf [RequestSize]byte
	req.encode(&reqBuf)
	require.Equal(t, req, decodeRequest(&reqBuf))
	// Padding is always zeroed.
	require.Equal(t, []byte{0, 0, 0, 0}, reqBuf[36:])

	resp := Response{Status: StatusDataIntegrity, Size: 0x1234}
	var respBuf [ResponseSize]byte
	resp.encode(&respBuf)
	require.Equal(t, resp, decodeResponse(&respBuf))
	require.Equal(t, []byte{0, 0, 0, 0}, respBuf[4:8])
}
