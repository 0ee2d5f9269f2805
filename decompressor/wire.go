// Copyright 2025 The Blobfs Authors. All rights reserved. Use of this source
// code is governed by a BSD-style license that can be found in the LICENSE
// file.

package decompressor

import (
	"encoding/binary"

	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/redact"
	"github.com/substratefs/blobfs/internal/base"
)

// Algorithm is the wire enumeration of decompression algorithms. The values
// are part of the channel protocol and must not be changed. Only Chunked
// and ChunkedPartial are served; every other tag is rejected as not
// supported.
type Algorithm uint32

// The wire algorithm tags.
const (
	Uncompressed   Algorithm = 0
	LZ4            Algorithm = 1
	Zstd           Algorithm = 2
	ZstdSeekable   Algorithm = 3
	Chunked        Algorithm = 4
	ChunkedPartial Algorithm = 5
)

// String implements fmt.Stringer.
func (a Algorithm) String() string {
	switch a {
	case Uncompressed:
		return "uncompressed"
	case LZ4:
		return "lz4"
	case Zstd:
		return "zstd"
	case ZstdSeekable:
		return "zstd-seekable"
	case Chunked:
		return "chunked"
	case ChunkedPartial:
		return "chunked-partial"
	default:
		return "unknown"
	}
}

// SafeFormat implements redact.SafeFormatter.
func (a Algorithm) SafeFormat(w redact.SafePrinter, _ rune) {
	w.Print(redact.SafeString(a.String()))
}

// Status is the wire status of a decompression response. Zero is success;
// failures are negative.
type Status int32

// The wire statuses.
const (
	StatusOK            Status = 0
	StatusInternal      Status = -1
	StatusNotSupported  Status = -2
	StatusOutOfRange    Status = -3
	StatusDataIntegrity Status = -4
)

// String implements fmt.Stringer.
func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusInternal:
		return "internal"
	case StatusNotSupported:
		return "not-supported"
	case StatusOutOfRange:
		return "out-of-range"
	case StatusDataIntegrity:
		return "data-integrity"
	default:
		return "unknown"
	}
}

// SafeFormat implements redact.SafeFormatter.
func (s Status) SafeFormat(w redact.SafePrinter, _ rune) {
	w.Print(redact.SafeString(s.String()))
}

// statusFromError maps an error from the transform pipeline onto the wire.
func statusFromError(err error) Status {
	switch {
	case err == nil:
		return StatusOK
	case errors.Is(err, base.ErrNotSupported):
		return StatusNotSupported
	case errors.Is(err, base.ErrOutOfRange):
		return StatusOutOfRange
	case base.IsCorruptionError(err):
		return StatusDataIntegrity
	default:
		return StatusInternal
	}
}

// Err returns the error kind a failure status stands for.
func (s Status) Err() error {
	switch s {
	case StatusOK:
		return nil
	case StatusNotSupported:
		return base.ErrNotSupported
	case StatusOutOfRange:
		return base.ErrOutOfRange
	case StatusDataIntegrity:
		return base.ErrCorruption
	default:
		return errors.Newf("blobfs: decompressor status %d", int32(s))
	}
}

// Range addresses size bytes at offset within one of the session's mapped
// buffers.
type Range struct {
	Offset uint64
	Size   uint64
}

// Request is the wire request record: decompress Compressed (a byte range
// of the read-only compressed mapping) into Decompressed (a byte range of
// the read-write decompressed mapping) using Algorithm.
type Request struct {
	Decompressed Range
	Compressed   Range
	Algorithm    Algorithm
}

// Response is the wire response record. Size is the number of bytes
// actually produced in the decompressed mapping.
type Response struct {
	Status Status
	Size   uint64
}

// Fixed wire record lengths. Records are little endian, trailing padding
// included, one record per channel element.
const (
	RequestSize  = 40
	ResponseSize = 16
)

func (r *Request) encode(buf *[RequestSize]byte) {
	binary.LittleEndian.PutUint64(buf[0:], r.Decompressed.Offset)
	binary.LittleEndian.PutUint64(buf[8:], r.Decompressed.Size)
	binary.LittleEndian.PutUint64(buf[16:], r.Compressed.Offset)
	binary.LittleEndian.PutUint64(buf[24:], r.Compressed.Size)
	binary.LittleEndian.PutUint32(buf[32:], uint32(r.Algorithm))
	binary.LittleEndian.PutUint32(buf[36:], 0)
}

func decodeRequest(buf *[RequestSize]byte) Request {
	return Request{
		Decompressed: Range{
			Offset: binary.LittleEndian.Uint64(buf[0:]),
			Size:   binary.LittleEndian.Uint64(buf[8:]),
		},
		Compressed: Range{
			Offset: binary.LittleEndian.Uint64(buf[16:]),
			Size:   binary.LittleEndian.Uint64(buf[24:]),
		},
		Algorithm: Algorithm(binary.LittleEndian.Uint32(buf[32:])),
	}
}

func (r *Response) encode(buf *[ResponseSize]byte) {
	binary.LittleEndian.PutUint32(buf[0:], uint32(int32(r.Status)))
	binary.LittleEndian.PutUint32(buf[4:], 0)
	binary.LittleEndian.PutUint64(buf[8:], r.Size)
}

func decodeResponse(buf *[ResponseSize]byte) Response {
	return Response{
		Status: Status(int32(binary.LittleEndian.Uint32(buf[0:]))),
		Size:   binary.LittleEndian.Uint64(buf[8:]),
	}
}
