// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package cache

import (
	"encoding/binary"
	"encoding/hex"

	"lukechampine.com/blake3"

	"github.com/AleutianAI/SemanticModeler/services/modeler/graph"
	"github.com/AleutianAI/SemanticModeler/services/modeler/steiner"
)

// Key identifies one search: a graph, the origins searched from, and the
// options that bound the search.
type Key struct {
	GraphID string
	Digest  [32]byte
}

// String returns the graph id and the hex digest.
func (k Key) String() string {
	return k.GraphID + ":" + hex.EncodeToString(k.Digest[:])
}

// SearchKey derives the key for searching graphID from the origins of m
// with opts. Only the origins of m matter, in order, since the search
// never looks at the class side of a pair.
func SearchKey(graphID string, m graph.Mapping, opts steiner.SearchOptions) Key {
	h := blake3.New(32, nil)
	var buf [8]byte

	writeInt := func(v int64) {
		binary.BigEndian.PutUint64(buf[:], uint64(v))
		_, _ = h.Write(buf[:])
	}

	_, _ = h.Write([]byte(graphID))
	_, _ = h.Write([]byte{0})

	writeInt(int64(len(m.Nodes)))
	for _, id := range m.Origins() {
		writeInt(int64(id))
	}

	writeInt(int64(opts.OutputHeapSize))
	writeInt(int64(opts.K))
	writeInt(int64(opts.MaxSteps))
	writeInt(int64(opts.MaxHops))
	writeInt(int64(opts.MaxCombinations))
	writeInt(int64(opts.MinTreeEdges))

	k := Key{GraphID: graphID}
	copy(k.Digest[:], h.Sum(nil))
	return k
}

// ForGraph returns a match func for LRU.RemoveFunc that selects every key
// of graphID.
func ForGraph(graphID string) func(Key) bool {
	return func(k Key) bool { return k.GraphID == graphID }
}
