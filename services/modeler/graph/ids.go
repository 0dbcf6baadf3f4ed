// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package graph

import "sync/atomic"

// IDAllocator hands out monotonically increasing ids.
//
// Description:
//
//	Each graph owns its own allocator so that several graphs can coexist
//	without sharing hidden counter state. Node and edge ids come from the
//	same allocator.
//
// Thread Safety: Safe for concurrent use.
type IDAllocator struct {
	next atomic.Int64
}

// NewIDAllocator creates an allocator whose first id is start.
func NewIDAllocator(start ID) *IDAllocator {
	a := &IDAllocator{}
	a.next.Store(int64(start))
	return a
}

// Next returns a fresh id.
func (a *IDAllocator) Next() ID {
	return ID(a.next.Add(1) - 1)
}

// Peek returns the id the next call to Next will return.
func (a *IDAllocator) Peek() ID {
	return ID(a.next.Load())
}

// Reserve makes sure no id at or below id is handed out again.
func (a *IDAllocator) Reserve(id ID) {
	for {
		cur := a.next.Load()
		if int64(id) < cur {
			return
		}
		if a.next.CompareAndSwap(cur, int64(id)+1) {
			return
		}
	}
}
