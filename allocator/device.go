// Copyright 2025 The Blobfs Authors. All rights reserved. Use of this source
// code is governed by a BSD-style license that can be found in the LICENSE
// file.

package allocator

import (
	"github.com/cockroachdb/errors"
	"github.com/substratefs/blobfs/internal/base"
)

// DeviceAllocatorOptions configures the growable allocator variant.
type DeviceAllocatorOptions struct {
	// NodeCount and BlockCount size the initial tables.
	NodeCount  uint64
	BlockCount uint64

	// Logger defaults to base.DefaultLogger.
	Logger base.Logger
}

// DeviceAllocator is the growable allocator variant used on a live,
// mutable volume. The higher layer extends the on-disk tables (through the
// journal, outside this package) and then mirrors the growth here.
type DeviceAllocator struct {
	core
}

var _ Allocator = (*DeviceAllocator)(nil)

// NewDeviceAllocator builds the allocator state for a live device.
func NewDeviceAllocator(o DeviceAllocatorOptions) *DeviceAllocator {
	a := &DeviceAllocator{}
	a.init(o.NodeCount, o.BlockCount, o.Logger)
	return a
}

// AddBlocks implements Allocator, extending the block bitmap by count
// blocks.
func (a *DeviceAllocator) AddBlocks(count uint64) error {
	if count == 0 {
		return errors.Wrap(base.ErrInvalidArgument, "zero-length block growth")
	}
	a.blocks.grow(a.blocks.len() + count)
	a.freeBlocks += count
	return nil
}

// AddNodes implements Allocator, extending the node table by one block's
// worth of nodes.
func (a *DeviceAllocator) AddNodes() error {
	grown := a.nodes.len() + NodesPerBlock
	a.nodes.grow(grown)
	for uint64(len(a.nodeTable)) < grown {
		n := Node{}
		n.Reset()
		a.nodeTable = append(a.nodeTable, n)
	}
	a.freeNodes += NodesPerBlock
	return nil
}
