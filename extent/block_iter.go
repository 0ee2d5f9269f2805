// Copyright 2025 The Blobfs Authors. All rights reserved. Use of this source
// code is governed by a BSD-style license that can be found in the LICENSE
// file.

package extent

import (
	"github.com/cockroachdb/errors"
	"github.com/substratefs/blobfs/internal/base"
)

// BlockIterator is a cursor over the device blocks backing a blob. It
// consumes an ordered extent sequence and answers "give me up to N
// contiguous device blocks starting at my current logical position",
// hiding extent boundary crossings from the caller.
//
// The cost of a full traversal is proportional to the number of extents
// crossed, not the number of blocks; no block map is ever materialized.
//
// A BlockIterator models exactly one traversal in progress. It is not safe
// to advance concurrently from two call sites.
type BlockIterator struct {
	src Iterator
	// cur is the extent currently being consumed; meaningful only while
	// remaining > 0.
	cur       Extent
	remaining uint64
}

// NewBlockIterator returns a BlockIterator positioned at logical block 0 of
// the given extent sequence.
func NewBlockIterator(src Iterator) *BlockIterator {
	return &BlockIterator{src: src}
}

// Done returns true once no blocks remain in the current extent and the
// extent source is exhausted.
func (it *BlockIterator) Done() bool {
	return it.remaining == 0 && it.src.Done()
}

// BlockIndex returns the logical block index of the cursor.
func (it *BlockIterator) BlockIndex() uint64 {
	return it.src.BlockIndex() - it.remaining
}

// Next returns up to want contiguous device blocks starting at the cursor's
// logical position, advancing the cursor past them. It returns the number of
// blocks (min(want, blocks left in the current extent)) and the device block
// at which the run starts.
//
// Calling Next with want == 0 or on a done iterator is misuse and fails with
// ErrInvalidArgument.
func (it *BlockIterator) Next(want uint64) (count uint64, dev BlockID, err error) {
	if want == 0 {
		return 0, 0, errors.Wrap(base.ErrInvalidArgument, "zero-length block request")
	}
	if it.remaining == 0 {
		if it.src.Done() {
			return 0, 0, errors.Wrap(base.ErrInvalidArgument, "next past the end of the extent list")
		}
		e, err := it.src.Next()
		if err != nil {
			return 0, 0, err
		}
		it.cur = e
		it.remaining = e.Length
	}
	count = min(want, it.remaining)
	dev = it.cur.Start + BlockID(it.cur.Length-it.remaining)
	it.remaining -= count
	return count, dev, nil
}

// SeekToBlock advances the cursor until BlockIndex() == target. Seeking
// backwards or past the end of the extent list fails with
// ErrInvalidArgument; on failure the cursor stays where the failure was
// detected and is not advanced further.
func (it *BlockIterator) SeekToBlock(target uint64) error {
	if target < it.BlockIndex() {
		return errors.Wrapf(base.ErrInvalidArgument,
			"cannot seek backwards to block %d from block %d", target, it.BlockIndex())
	}
	for it.BlockIndex() < target {
		if it.Done() {
			return errors.Wrapf(base.ErrInvalidArgument,
				"seek target %d is beyond the end of the extent list", target)
		}
		if _, _, err := it.Next(target - it.BlockIndex()); err != nil {
			return err
		}
	}
	return nil
}

// StreamBlocks advances the cursor by count blocks, invoking fn once per
// contiguous device run so the caller can issue I/O. fn receives the logical
// block index of the run, the device block it starts at, and its length in
// blocks.
//
// Exhausting the extent list before count blocks have been streamed means
// the on-disk layout disagrees with the caller's metadata; it is reported as
// a corruption error, never as a silently short stream. An error from fn
// aborts the stream and is returned verbatim.
func (it *BlockIterator) StreamBlocks(
	count uint64, fn func(logical uint64, dev BlockID, length uint64) error,
) error {
	var streamed uint64
	for streamed < count {
		if it.Done() {
			return base.CorruptionErrorf(
				"blobfs: block stream ended after %d of %d blocks", streamed, count)
		}
		logical := it.BlockIndex()
		n, dev, err := it.Next(count - streamed)
		if err != nil {
			return err
		}
		if err := fn(logical, dev, n); err != nil {
			return err
		}
		streamed += n
	}
	return nil
}
