// Copyright 2025 The Blobfs Authors. All rights reserved. Use of this source
// code is governed by a BSD-style license that can be found in the LICENSE
// file.

// Package allocator maintains the canonical free/used state of a volume's
// nodes and blocks. It issues exclusive, rollback-capable reservations over
// unused indices and exposes the same surface for a fixed-capacity
// (read-only image) and a growable (live device) backing store.
//
// The allocator performs no internal locking. A volume has a single logical
// owner, and callers are required to serialize all calls, typically under
// the volume-wide write lock they already hold.
package allocator

import (
	"github.com/cockroachdb/errors"
	"github.com/substratefs/blobfs/extent"
	"github.com/substratefs/blobfs/internal/base"
)

// An Allocator issues and retracts reservations over the node and block
// free sets of one volume.
type Allocator interface {
	// ReserveNode finds a free node index, marks it in use, and returns the
	// ownership ticket. It fails with ErrNoSpace when no free node exists.
	ReserveNode() (*ReservedNode, error)

	// ReserveBlocks marks count free device blocks in use and returns them
	// as extents, preferring long contiguous runs. It fails with ErrNoSpace
	// without reserving anything if fewer than count blocks are free.
	ReserveBlocks(count uint64) ([]extent.Extent, error)

	// UnreserveBlocks returns previously reserved extents to the free set.
	UnreserveBlocks(extents []extent.Extent)

	// GetNode returns a pointer into the node table. It fails with
	// ErrNotFound if index is outside the table.
	GetNode(index uint32) (*Node, error)

	// AddBlocks grows the block backing store by count blocks. The
	// fixed-capacity variant fails with ErrNotSupported.
	AddBlocks(count uint64) error

	// AddNodes grows the node table by one block's worth of nodes. The
	// fixed-capacity variant fails with ErrNotSupported.
	AddNodes() error

	// FreeNodes and FreeBlocks report the size of each free set.
	FreeNodes() uint64
	FreeBlocks() uint64
}

// core holds the bitmaps and reservation logic shared by both allocator
// variants. Only growth and bounds policy differ between them.
type core struct {
	nodes  bitmap
	blocks bitmap

	freeNodes  uint64
	freeBlocks uint64

	nodeTable []Node

	logger base.Logger
}

func (c *core) init(nodeCount, blockCount uint64, logger base.Logger) {
	c.nodes = newBitmap(nodeCount)
	c.blocks = newBitmap(blockCount)
	c.freeNodes = nodeCount
	c.freeBlocks = blockCount
	c.nodeTable = make([]Node, nodeCount)
	for i := range c.nodeTable {
		c.nodeTable[i].Reset()
	}
	if logger == nil {
		logger = base.DefaultLogger{}
	}
	c.logger = logger
}

// ReserveNode implements Allocator.
func (c *core) ReserveNode() (*ReservedNode, error) {
	if c.freeNodes == 0 {
		return nil, base.ErrNoSpace
	}
	i, ok := c.nodes.firstUnset(0)
	if !ok {
		panic(errors.AssertionFailedf(
			"blobfs: node free count %d disagrees with bitmap", c.freeNodes))
	}
	c.nodes.set(i)
	c.freeNodes--
	return newReservedNode(c, uint32(i)), nil
}

func (c *core) unreserveNode(index uint32) {
	if !c.nodes.get(uint64(index)) {
		panic(errors.AssertionFailedf("blobfs: unreserve of free node %d", index))
	}
	c.nodes.clear(uint64(index))
	c.nodeTable[index].Reset()
	c.freeNodes++
}

// ReserveBlocks implements Allocator.
func (c *core) ReserveBlocks(count uint64) ([]extent.Extent, error) {
	if count == 0 {
		return nil, errors.Wrap(base.ErrInvalidArgument, "zero-length block reservation")
	}
	if count > c.freeBlocks {
		return nil, base.ErrNoSpace
	}
	var reserved []extent.Extent
	remaining := count
	pos := uint64(0)
	for remaining > 0 {
		start, ok := c.blocks.firstUnset(pos)
		if !ok {
			panic(errors.AssertionFailedf(
				"blobfs: block free count %d disagrees with bitmap", c.freeBlocks))
		}
		run := uint64(0)
		for start+run < c.blocks.len() && run < remaining && !c.blocks.get(start+run) {
			c.blocks.set(start + run)
			run++
		}
		reserved = append(reserved, extent.Extent{Start: extent.BlockID(start), Length: run})
		remaining -= run
		pos = start + run
	}
	c.freeBlocks -= count
	return reserved, nil
}

// UnreserveBlocks implements Allocator.
func (c *core) UnreserveBlocks(extents []extent.Extent) {
	for _, e := range extents {
		for i := uint64(0); i < e.Length; i++ {
			b := uint64(e.Start) + i
			if !c.blocks.get(b) {
				panic(errors.AssertionFailedf("blobfs: unreserve of free block %d", b))
			}
			c.blocks.clear(b)
		}
		c.freeBlocks += e.Length
	}
}

// GetNode implements Allocator.
func (c *core) GetNode(index uint32) (*Node, error) {
	if uint64(index) >= uint64(len(c.nodeTable)) {
		return nil, errors.Wrapf(base.ErrNotFound, "node %d", index)
	}
	return &c.nodeTable[index], nil
}

// FreeNodes implements Allocator.
func (c *core) FreeNodes() uint64 { return c.freeNodes }

// FreeBlocks implements Allocator.
func (c *core) FreeBlocks() uint64 { return c.freeBlocks }
