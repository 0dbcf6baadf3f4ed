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
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/AleutianAI/SemanticModeler/services/modeler/graph"
)

func TestCoherence(t *testing.T) {
	f := newFixture(t, "A", "B", "C", "D")
	ab := f.edge(t, "A", "B", 1, "m1")
	bc := f.edge(t, "B", "C", 1, "m1")
	cd := f.edge(t, "C", "D", 1, "m1", "m1")
	ac := f.edge(t, "A", "C", 1, "m2")
	ad := f.edge(t, "A", "D", 1, "m3")
	bd := f.edge(t, "B", "D", 1)

	tests := []struct {
		name string
		ids  []graph.ID
		want float64
	}{
		{"all edges share one tag", []graph.ID{ab, bc, cd}, 1.0},
		{"every edge has its own tag", []graph.ID{ab, ac, ad}, 1.0 / 3.0},
		{"majority tag", []graph.ID{ab, bc, ac}, 2.0 / 3.0},
		{"untagged edges count in the denominator", []graph.ID{ab, bd}, 0.5},
		{"no edges", nil, 0},
		{"no tags", []graph.ID{bd}, 0},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.InDelta(t, tc.want, Coherence(f.g, tc.ids), 1e-9)
		})
	}
}

func TestSortTrees(t *testing.T) {
	trees := []CandidateTree{
		{Weight: 5, Coherence: 0.5, Digest: "a"},
		{Weight: 3, Coherence: 1.0, Digest: "b"},
		{Weight: 2, Coherence: 0.5, Digest: "c"},
		{Weight: 4, Coherence: 1.0, Digest: "d"},
		{Weight: 2, Coherence: 0.5, Digest: "e"},
	}

	SortTrees(trees)

	got := make([]string, len(trees))
	for i, tr := range trees {
		got[i] = tr.Digest
	}
	assert.Equal(t, []string{"b", "d", "c", "e", "a"}, got)
}
