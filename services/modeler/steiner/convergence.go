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

import "github.com/AleutianAI/SemanticModeler/services/modeler/graph"

// Visit records that a walker passed through a node.
type Visit struct {
	// Origin is the mapping index of the walker's origin.
	Origin int

	// Seq is the walker's sequence id.
	Seq string

	// Path is the walker's path from its origin to the node.
	Path []*graph.Edge
}

// nodeVisits keeps the latest visit per walker at one node, in order of
// first arrival.
type nodeVisits struct {
	order []string
	bySeq map[string]Visit
}

// Combination picks one visit per origin. Missing[i] is true when origin i
// had no visit at the node, in which case Visits[i] is the zero Visit.
type Combination struct {
	Visits  []Visit
	Missing []bool
}

// Complete reports whether every origin is represented.
func (c Combination) Complete() bool {
	for _, m := range c.Missing {
		if m {
			return false
		}
	}
	return true
}

// ConvergenceTracker holds the visits of one search, keyed by node.
//
// Thread Safety: Not safe for concurrent use. Create one per search.
type ConvergenceTracker struct {
	origins int
	visits  map[graph.ID]*nodeVisits

	// maxCombinations caps Record's output; zero means no cap.
	maxCombinations int
}

// NewConvergenceTracker creates a tracker for a search with the given
// number of origins.
func NewConvergenceTracker(origins, maxCombinations int) *ConvergenceTracker {
	return &ConvergenceTracker{
		origins:         origins,
		visits:          make(map[graph.ID]*nodeVisits),
		maxCombinations: maxCombinations,
	}
}

// Record stores v at node and returns the combinations it completes.
//
// Description:
//
//	A later visit by the same walker replaces its earlier one. The other
//	visits at the node are grouped by origin, skipping those that share
//	v's origin, and every way of picking one visit per origin is returned
//	with v fixed for its own origin. Origins without any visit at the node
//	are flagged in Combination.Missing. Visits are kept per walker, so
//	sibling walkers of one origin that reach the node all take part in the
//	product as alternatives for that origin.
//
// Outputs:
//
//	[]Combination - Combinations in a deterministic order.
//	bool - True if the cap cut the enumeration short.
func (t *ConvergenceTracker) Record(node graph.ID, v Visit) ([]Combination, bool) {
	nv, ok := t.visits[node]
	if !ok {
		nv = &nodeVisits{bySeq: make(map[string]Visit)}
		t.visits[node] = nv
	}
	if _, seen := nv.bySeq[v.Seq]; !seen {
		nv.order = append(nv.order, v.Seq)
	}
	nv.bySeq[v.Seq] = v

	groups := make([][]Visit, t.origins)
	groups[v.Origin] = []Visit{v}
	for _, seq := range nv.order {
		other := nv.bySeq[seq]
		if other.Origin == v.Origin {
			continue
		}
		groups[other.Origin] = append(groups[other.Origin], other)
	}

	return t.product(groups)
}

// product enumerates the cartesian product of the non-empty groups.
func (t *ConvergenceTracker) product(groups [][]Visit) ([]Combination, bool) {
	missing := make([]bool, len(groups))
	for i, g := range groups {
		missing[i] = len(g) == 0
	}

	idx := make([]int, len(groups))
	var out []Combination
	for {
		if t.maxCombinations > 0 && len(out) >= t.maxCombinations {
			return out, true
		}

		combo := Combination{
			Visits:  make([]Visit, len(groups)),
			Missing: missing,
		}
		for i, g := range groups {
			if !missing[i] {
				combo.Visits[i] = g[idx[i]]
			}
		}
		out = append(out, combo)

		// Odometer increment, last group fastest.
		i := len(groups) - 1
		for ; i >= 0; i-- {
			if missing[i] {
				continue
			}
			idx[i]++
			if idx[i] < len(groups[i]) {
				break
			}
			idx[i] = 0
		}
		if i < 0 {
			return out, false
		}
	}
}

// Nodes returns the number of nodes holding at least one visit.
func (t *ConvergenceTracker) Nodes() int {
	return len(t.visits)
}
