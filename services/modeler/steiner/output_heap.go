// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package steiner

import (
	"container/heap"
	"slices"
)

// worse reports whether a ranks behind b: higher weight, or equal weight
// and offered later.
func worse(a, b *CandidateTree) bool {
	if a.Weight != b.Weight {
		return a.Weight > b.Weight
	}
	return a.seq > b.seq
}

// treeQueue implements heap.Interface with the worst tree on top.
type treeQueue []*CandidateTree

func (q treeQueue) Len() int           { return len(q) }
func (q treeQueue) Less(i, j int) bool { return worse(q[i], q[j]) }
func (q treeQueue) Swap(i, j int)      { q[i], q[j] = q[j], q[i] }

func (q *treeQueue) Push(x any) { *q = append(*q, x.(*CandidateTree)) }

func (q *treeQueue) Pop() any {
	old := *q
	n := len(old)
	t := old[n-1]
	old[n-1] = nil
	*q = old[:n-1]
	return t
}

// OfferResult says what OutputHeap.Offer did with a tree.
type OfferResult int

const (
	// OfferAdmitted means the tree was stored without evicting anything.
	OfferAdmitted OfferResult = iota

	// OfferReplaced means the tree was stored and the worst tree evicted.
	OfferReplaced

	// OfferRejected means the heap was full and the tree was not better
	// than the worst one kept.
	OfferRejected

	// OfferDuplicate means a tree with the same digest is already kept.
	OfferDuplicate
)

// OutputHeap keeps the best trees offered to it, up to a fixed capacity.
//
// Description:
//
//	When full, a new tree is admitted only if its weight is strictly below
//	the worst kept tree, which is then evicted. Ties keep the tree that
//	arrived first. Trees whose digest is already kept are ignored.
//
// Thread Safety: Not safe for concurrent use.
type OutputHeap struct {
	capacity int
	queue    treeQueue
	digests  map[string]bool
	offers   uint64
}

// NewOutputHeap creates a heap holding at most capacity trees.
func NewOutputHeap(capacity int) *OutputHeap {
	return &OutputHeap{
		capacity: capacity,
		queue:    make(treeQueue, 0, capacity),
		digests:  make(map[string]bool, capacity),
	}
}

// Offer submits a tree.
func (h *OutputHeap) Offer(t *CandidateTree) OfferResult {
	if h.digests[t.Digest] {
		return OfferDuplicate
	}
	t.seq = h.offers
	h.offers++

	if len(h.queue) < h.capacity {
		heap.Push(&h.queue, t)
		h.digests[t.Digest] = true
		return OfferAdmitted
	}
	if h.capacity <= 0 {
		return OfferRejected
	}

	top := h.queue[0]
	if t.Weight >= top.Weight {
		return OfferRejected
	}
	delete(h.digests, top.Digest)
	h.queue[0] = t
	heap.Fix(&h.queue, 0)
	h.digests[t.Digest] = true
	return OfferReplaced
}

// Len returns the number of trees kept.
func (h *OutputHeap) Len() int {
	return len(h.queue)
}

// Worst returns the tree that would be evicted next, or nil.
func (h *OutputHeap) Worst() *CandidateTree {
	if len(h.queue) == 0 {
		return nil
	}
	return h.queue[0]
}

// Drain empties the heap and returns its trees best first.
//
// Trees that do not connect every origin are dropped when at least one
// complete tree exists.
func (h *OutputHeap) Drain() []*CandidateTree {
	out := make([]*CandidateTree, 0, len(h.queue))
	for len(h.queue) > 0 {
		out = append(out, heap.Pop(&h.queue).(*CandidateTree))
	}
	clear(h.digests)
	slices.Reverse(out)

	if len(out) > 0 && out[0].Complete() {
		out = slices.DeleteFunc(out, func(t *CandidateTree) bool {
			return !t.Complete()
		})
	}
	return out
}
