// Copyright 2025 The Blobfs Authors. All rights reserved. Use of this source
// code is governed by a BSD-style license that can be found in the LICENSE
// file.

package allocator

import (
	"github.com/cockroachdb/errors"
	"github.com/substratefs/blobfs/internal/invariants"
)

// ReservedNode is the ownership token for one reserved node index. At most
// one live ReservedNode exists per index: the ticket is issued by
// ReserveNode and consumed exactly once, either by Release (the index is
// committed as a permanent allocation elsewhere) or by Unreserve (the index
// returns to the free set).
//
// Tickets are single-owner. Passing the pointer transfers ownership; a
// caller that keeps a copy of the pointer after handing it off must not
// touch it again. The usual pattern is:
//
//	ticket, err := a.ReserveNode()
//	if err != nil { ... }
//	defer ticket.Unreserve()
//	...
//	commit(ticket.Release())
//
// Unreserve after Release is a no-op, so the deferred call makes the
// reservation roll back on every early-error path.
type ReservedNode struct {
	c     *core
	index uint32
	owned bool
}

func newReservedNode(c *core, index uint32) *ReservedNode {
	t := &ReservedNode{c: c, index: index, owned: true}
	// Under invariants builds, a ticket that is garbage collected while it
	// still owns its index means some code path dropped it without Release
	// or Unreserve.
	invariants.SetFinalizer(t, func(obj interface{}) {
		t := obj.(*ReservedNode)
		if t.owned {
			panic(errors.AssertionFailedf(
				"blobfs: reservation for node %d dropped without Release or Unreserve", t.index))
		}
	})
	return t
}

// Index returns the reserved node index.
func (t *ReservedNode) Index() uint32 {
	if !t.owned {
		panic(errors.AssertionFailedf("blobfs: Index on a spent reservation"))
	}
	return t.index
}

// Release consumes the ticket and returns the index without freeing it. The
// index remains marked in use; ownership passes to the caller (typically the
// commit path that persists the node).
func (t *ReservedNode) Release() uint32 {
	if !t.owned {
		panic(errors.AssertionFailedf("blobfs: Release on a spent reservation"))
	}
	t.owned = false
	return t.index
}

// Unreserve returns the index to the free set. It is a no-op on a spent
// ticket, which makes it safe to defer unconditionally.
func (t *ReservedNode) Unreserve() {
	if !t.owned {
		return
	}
	t.owned = false
	t.c.unreserveNode(t.index)
}
