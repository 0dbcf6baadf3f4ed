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
	"cmp"
	"slices"

	"github.com/AleutianAI/SemanticModeler/services/modeler/graph"
)

// Coherence scores how much of a tree comes from one source model.
//
// Description:
//
//	Counts, for each tag, the edges carrying it. The result is the highest
//	count divided by the number of edges. A tree without edges, or whose
//	edges carry no tags, scores 0. Ids that are not edges of g are counted
//	as untagged edges.
//
// Outputs:
//
//	float64 - In [0, 1].
func Coherence(g Graph, edgeIDs []graph.ID) float64 {
	if len(edgeIDs) == 0 {
		return 0
	}

	counts := make(map[string]int)
	best := 0
	for _, id := range edgeIDs {
		e, ok := g.Edge(id)
		if !ok {
			continue
		}
		for i, tag := range e.Tags {
			// Tags form a set; a repeated tag on one edge counts once.
			if slices.Contains(e.Tags[:i], tag) {
				continue
			}
			counts[tag]++
			best = max(best, counts[tag])
		}
	}
	return float64(best) / float64(len(edgeIDs))
}

// SortTrees orders trees by descending coherence, then ascending weight.
//
// The sort is stable, so trees equal on both keys keep their input order.
// Used when merging results across several mappings.
func SortTrees(trees []CandidateTree) {
	slices.SortStableFunc(trees, func(a, b CandidateTree) int {
		if c := cmp.Compare(b.Coherence, a.Coherence); c != 0 {
			return c
		}
		return cmp.Compare(a.Weight, b.Weight)
	})
}
