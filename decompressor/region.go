// Copyright 2025 The Blobfs Authors. All rights reserved. Use of this source
// code is governed by a BSD-style license that can be found in the LICENSE
// file.

package decompressor

// Region is one of a session's two memory regions: the read-only compressed
// buffer or the read-write decompressed buffer. A Region created by
// MapRegion owns a mapping and unmaps it when the session ends; a Region
// created by NewRegion wraps caller-owned memory (in-process sessions and
// tests).
type Region struct {
	data   []byte
	mapped bool
}

// NewRegion wraps caller-owned memory as a session region. The caller must
// keep the slice alive for the session's lifetime.
func NewRegion(buf []byte) *Region {
	return &Region{data: buf}
}

// Len returns the region's byte length.
func (r *Region) Len() uint64 {
	return uint64(len(r.data))
}

func (r *Region) release() error {
	data := r.data
	r.data = nil
	if !r.mapped {
		return nil
	}
	r.mapped = false
	return munmap(data)
}
