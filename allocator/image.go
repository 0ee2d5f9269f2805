// Copyright 2025 The Blobfs Authors. All rights reserved. Use of this source
// code is governed by a BSD-style license that can be found in the LICENSE
// file.

package allocator

import (
	"github.com/cockroachdb/errors"
	"github.com/substratefs/blobfs/extent"
	"github.com/substratefs/blobfs/internal/base"
)

// ImageAllocatorOptions describes a parsed, immutable volume image.
type ImageAllocatorOptions struct {
	// NodeCount and BlockCount fix the capacity of each table.
	NodeCount  uint64
	BlockCount uint64

	// Nodes pre-populates the node table; len(Nodes) must not exceed
	// NodeCount. The remainder of the table is zeroed.
	Nodes []Node

	// UsedNodes and UsedBlocks mark the indices the image already
	// allocates.
	UsedNodes  []uint32
	UsedBlocks []extent.Extent

	// Logger defaults to base.DefaultLogger.
	Logger base.Logger
}

// ImageAllocator is the fixed-capacity allocator variant used when
// operating on a read-only host image. Reservations work as on a live
// device; growing the backing store does not.
type ImageAllocator struct {
	core
}

var _ Allocator = (*ImageAllocator)(nil)

// NewImageAllocator builds the allocator state for an image.
func NewImageAllocator(o ImageAllocatorOptions) (*ImageAllocator, error) {
	if uint64(len(o.Nodes)) > o.NodeCount {
		return nil, errors.Wrapf(base.ErrInvalidArgument,
			"image carries %d nodes but the table holds %d", len(o.Nodes), o.NodeCount)
	}
	a := &ImageAllocator{}
	a.init(o.NodeCount, o.BlockCount, o.Logger)
	copy(a.nodeTable, o.Nodes)
	for _, i := range o.UsedNodes {
		if uint64(i) >= o.NodeCount {
			return nil, errors.Wrapf(base.ErrInvalidArgument, "used node %d out of range", i)
		}
		if a.nodes.get(uint64(i)) {
			return nil, base.CorruptionErrorf("blobfs: image marks node %d in use twice", i)
		}
		a.nodes.set(uint64(i))
		a.freeNodes--
	}
	for _, e := range o.UsedBlocks {
		if uint64(e.End()) > o.BlockCount || e.End() < e.Start {
			return nil, errors.Wrapf(base.ErrInvalidArgument, "used extent %s out of range", e)
		}
		for b := uint64(e.Start); b < uint64(e.End()); b++ {
			if a.blocks.get(b) {
				return nil, base.CorruptionErrorf("blobfs: image marks block %d in use twice", b)
			}
			a.blocks.set(b)
		}
		a.freeBlocks -= e.Length
	}
	return a, nil
}

// AddBlocks implements Allocator. The image is fixed size.
func (a *ImageAllocator) AddBlocks(count uint64) error {
	return errors.Wrap(base.ErrNotSupported, "image-backed allocator is fixed size")
}

// AddNodes implements Allocator. The image is fixed size.
func (a *ImageAllocator) AddNodes() error {
	return errors.Wrap(base.ErrNotSupported, "image-backed allocator is fixed size")
}
