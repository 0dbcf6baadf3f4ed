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

import "container/heap"

// walkerQueue implements heap.Interface, smallest distance first.
type walkerQueue []*Walker

func (q walkerQueue) Len() int { return len(q) }

func (q walkerQueue) Less(i, j int) bool {
	if q[i].Distance != q[j].Distance {
		return q[i].Distance < q[j].Distance
	}
	return q[i].pushSeq < q[j].pushSeq
}

func (q walkerQueue) Swap(i, j int) { q[i], q[j] = q[j], q[i] }

func (q *walkerQueue) Push(x any) { *q = append(*q, x.(*Walker)) }

func (q *walkerQueue) Pop() any {
	old := *q
	n := len(old)
	w := old[n-1]
	old[n-1] = nil
	*q = old[:n-1]
	return w
}

// Frontier schedules walkers by the weight of their last edge.
//
// Walkers with equal distance pop in push order. A walker re-pushed after
// advancing counts as a new push.
//
// Thread Safety: Not safe for concurrent use.
type Frontier struct {
	queue  walkerQueue
	pushes uint64
}

// NewFrontier creates an empty frontier.
func NewFrontier() *Frontier {
	return &Frontier{queue: make(walkerQueue, 0)}
}

// Push schedules a walker.
func (f *Frontier) Push(w *Walker) {
	w.pushSeq = f.pushes
	f.pushes++
	heap.Push(&f.queue, w)
}

// Pop removes and returns the walker with the smallest distance, or nil.
func (f *Frontier) Pop() *Walker {
	if len(f.queue) == 0 {
		return nil
	}
	return heap.Pop(&f.queue).(*Walker)
}

// IsEmpty reports whether no walker is scheduled.
func (f *Frontier) IsEmpty() bool {
	return len(f.queue) == 0
}

// Len returns the number of scheduled walkers.
func (f *Frontier) Len() int {
	return len(f.queue)
}
