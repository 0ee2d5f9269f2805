// Copyright 2025 The Blobfs Authors. All rights reserved. Use of this source
// code is governed by a BSD-style license that can be found in the LICENSE
// file.

package allocator

import (
	"github.com/cockroachdb/errors"
	"github.com/substratefs/blobfs/extent"
	"github.com/substratefs/blobfs/internal/base"
)

// NodeInlineExtents is the number of extents a node stores inline. Layouts
// with more extents chain additional container nodes through NextNode.
const NodeInlineExtents = 4

// NodesPerBlock is the number of node records that fit in one device block.
const NodesPerBlock = 32

// InvalidNodeID marks an unused NextNode link.
const InvalidNodeID = ^uint32(0)

// Node is the fixed-size metadata record describing one blob's physical
// layout. Nodes are identified by their index in the node table and are
// created by committing a reservation.
type Node struct {
	Flags    uint16
	Version  uint16
	NextNode uint32
	BlobSize uint64

	ExtentCount uint16
	Extents     [NodeInlineExtents]extent.Extent
}

// Reset returns the node to its freshly-allocated state.
func (n *Node) Reset() {
	*n = Node{NextNode: InvalidNodeID}
}

// AppendExtent records the next extent of the blob's layout. It fails with
// ErrNoSpace once the inline extent array is full; the caller is then
// expected to chain a container node.
func (n *Node) AppendExtent(e extent.Extent) error {
	if int(n.ExtentCount) >= NodeInlineExtents {
		return errors.Wrap(base.ErrNoSpace, "inline extent array is full")
	}
	n.Extents[n.ExtentCount] = e
	n.ExtentCount++
	return nil
}

// ExtentIterator returns an iterator over the node's inline extents.
func (n *Node) ExtentIterator() *extent.SliceIterator {
	return extent.NewSliceIterator(n.Extents[:n.ExtentCount])
}

// BlockCount returns the number of device blocks covered by the node's
// inline extents.
func (n *Node) BlockCount() uint64 {
	var total uint64
	for _, e := range n.Extents[:n.ExtentCount] {
		total += e.Length
	}
	return total
}
