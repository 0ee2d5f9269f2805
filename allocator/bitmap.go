// Copyright 2025 The Blobfs Authors. All rights reserved. Use of this source
// code is governed by a BSD-style license that can be found in the LICENSE
// file.

package allocator

import (
	"math/bits"

	"github.com/cockroachdb/errors"
)

// bitmap is a growable bit set over uint64 words. Bit i tracks whether
// index i is in use.
type bitmap struct {
	words []uint64
	n     uint64
}

func newBitmap(n uint64) bitmap {
	return bitmap{words: make([]uint64, (n+63)/64), n: n}
}

func (b *bitmap) len() uint64 {
	return b.n
}

func (b *bitmap) get(i uint64) bool {
	b.checkBounds(i)
	return b.words[i/64]&(1<<(i%64)) != 0
}

func (b *bitmap) set(i uint64) {
	b.checkBounds(i)
	b.words[i/64] |= 1 << (i % 64)
}

func (b *bitmap) clear(i uint64) {
	b.checkBounds(i)
	b.words[i/64] &^= 1 << (i % 64)
}

// grow extends the bitmap to n bits. New bits are unset.
func (b *bitmap) grow(n uint64) {
	if n < b.n {
		panic(errors.AssertionFailedf("blobfs: bitmap shrink from %d to %d bits", b.n, n))
	}
	words := (n + 63) / 64
	for uint64(len(b.words)) < words {
		b.words = append(b.words, 0)
	}
	b.n = n
}

// firstUnset returns the first unset bit at or after start, or false if all
// remaining bits are set.
func (b *bitmap) firstUnset(start uint64) (uint64, bool) {
	if start >= b.n {
		return 0, false
	}
	// The first word is masked so that bits below start read as set.
	w := b.words[start/64] | (1<<(start%64) - 1)
	for i := start / 64; ; {
		if w != ^uint64(0) {
			bit := i*64 + uint64(bits.TrailingZeros64(^w))
			if bit >= b.n {
				return 0, false
			}
			return bit, true
		}
		i++
		if i >= uint64(len(b.words)) {
			return 0, false
		}
		w = b.words[i]
	}
}

// countUnset returns the number of unset bits.
func (b *bitmap) countUnset() uint64 {
	var set uint64
	for _, w := range b.words {
		set += uint64(bits.OnesCount64(w))
	}
	return b.n - set
}

func (b *bitmap) checkBounds(i uint64) {
	if i >= b.n {
		panic(errors.AssertionFailedf("blobfs: bitmap index %d out of bounds (%d bits)", i, b.n))
	}
}
