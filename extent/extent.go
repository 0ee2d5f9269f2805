// Copyright 2025 The Blobfs Authors. All rights reserved. Use of this source
// code is governed by a BSD-style license that can be found in the LICENSE
// file.

// Package extent defines the run-length representation of a blob's physical
// block layout, and a block iterator that turns an ordered extent sequence
// into a stream of contiguous device block ranges.
package extent

import (
	"fmt"

	"github.com/cockroachdb/errors"
	"github.com/substratefs/blobfs/internal/base"
)

// BlockID identifies a device block by index.
type BlockID uint64

// Extent describes Length contiguous device blocks starting at Start. It is
// the compacted unit of block indirection: a node's layout is an ordered
// list of extents covering the blob's logical blocks, in logical order.
type Extent struct {
	Start  BlockID
	Length uint64
}

// End returns the device block just past the extent.
func (e Extent) End() BlockID {
	return e.Start + BlockID(e.Length)
}

// Contains returns true if the extent covers device block b.
func (e Extent) Contains(b BlockID) bool {
	return b >= e.Start && b < e.End()
}

// String implements fmt.Stringer.
func (e Extent) String() string {
	return fmt.Sprintf("[%d, %d)", e.Start, e.End())
}

// Iterator enumerates the extents of one blob in ascending logical order.
// Implementations walk a node's extent structure (inline extents plus any
// chained container nodes); SliceIterator serves in-memory extent lists.
type Iterator interface {
	// Done returns true once every extent has been returned by Next.
	Done() bool

	// Next returns the next extent in logical order. Calling Next on a done
	// iterator is misuse.
	Next() (Extent, error)

	// BlockIndex returns the logical block index just past the extents
	// returned so far.
	BlockIndex() uint64
}

// SliceIterator is an Iterator over an in-memory extent list.
type SliceIterator struct {
	extents    []Extent
	i          int
	blockIndex uint64
}

var _ Iterator = (*SliceIterator)(nil)

// NewSliceIterator returns an Iterator yielding the given extents in order.
func NewSliceIterator(extents []Extent) *SliceIterator {
	return &SliceIterator{extents: extents}
}

// Done implements Iterator.
func (it *SliceIterator) Done() bool {
	return it.i >= len(it.extents)
}

// Next implements Iterator.
func (it *SliceIterator) Next() (Extent, error) {
	if it.Done() {
		return Extent{}, errors.Wrap(base.ErrInvalidArgument, "next on exhausted extent iterator")
	}
	e := it.extents[it.i]
	it.i++
	it.blockIndex += e.Length
	return e, nil
}

// BlockIndex implements Iterator.
func (it *SliceIterator) BlockIndex() uint64 {
	return it.blockIndex
}
