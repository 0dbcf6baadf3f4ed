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
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/SemanticModeler/services/modeler/graph"
)

func edgesOf(ids ...graph.ID) []*graph.Edge {
	out := make([]*graph.Edge, len(ids))
	for i, id := range ids {
		out[i] = &graph.Edge{ID: id, Weight: float64(id)}
	}
	return out
}

func TestConvergenceTracker_Record(t *testing.T) {
	t.Run("first visit flags missing origins", func(t *testing.T) {
		tr := NewConvergenceTracker(2, 0)
		combos, capped := tr.Record(1, Visit{Origin: 0, Seq: "0", Path: edgesOf(10)})
		assert.False(t, capped)
		require.Len(t, combos, 1)
		assert.False(t, combos[0].Complete())
		assert.Equal(t, []bool{false, true}, combos[0].Missing)
	})

	t.Run("second origin completes the tree", func(t *testing.T) {
		tr := NewConvergenceTracker(2, 0)
		tr.Record(1, Visit{Origin: 0, Seq: "0", Path: edgesOf(10)})
		combos, _ := tr.Record(1, Visit{Origin: 1, Seq: "1", Path: edgesOf(11)})
		require.Len(t, combos, 1)
		assert.True(t, combos[0].Complete())
		assert.Equal(t, "0", combos[0].Visits[0].Seq)
		assert.Equal(t, "1", combos[0].Visits[1].Seq)
	})

	t.Run("same origin visits are not combined", func(t *testing.T) {
		tr := NewConvergenceTracker(2, 0)
		tr.Record(1, Visit{Origin: 0, Seq: "0", Path: edgesOf(10)})
		combos, _ := tr.Record(1, Visit{Origin: 0, Seq: "0-0", Path: edgesOf(12)})
		require.Len(t, combos, 1)
		assert.Equal(t, "0-0", combos[0].Visits[0].Seq)
		assert.False(t, combos[0].Complete())
	})

	t.Run("later visit by the same walker replaces the earlier one", func(t *testing.T) {
		tr := NewConvergenceTracker(2, 0)
		tr.Record(1, Visit{Origin: 0, Seq: "0", Path: edgesOf(10)})
		tr.Record(1, Visit{Origin: 0, Seq: "0", Path: edgesOf(10, 20)})
		combos, _ := tr.Record(1, Visit{Origin: 1, Seq: "1", Path: edgesOf(11)})
		require.Len(t, combos, 1)
		assert.Len(t, combos[0].Visits[0].Path, 2)
	})

	t.Run("sibling visits of one origin are alternatives", func(t *testing.T) {
		tr := NewConvergenceTracker(2, 0)
		tr.Record(1, Visit{Origin: 0, Seq: "0", Path: edgesOf(10)})
		tr.Record(1, Visit{Origin: 0, Seq: "0-0", Path: edgesOf(12)})
		combos, _ := tr.Record(1, Visit{Origin: 1, Seq: "1", Path: edgesOf(11)})
		require.Len(t, combos, 2)
		assert.Equal(t, "0", combos[0].Visits[0].Seq)
		assert.Equal(t, "0-0", combos[1].Visits[0].Seq)
	})

	t.Run("cartesian product with the new visit fixed", func(t *testing.T) {
		tr := NewConvergenceTracker(3, 0)
		tr.Record(1, Visit{Origin: 0, Seq: "0", Path: edgesOf(10)})
		tr.Record(1, Visit{Origin: 0, Seq: "0-0", Path: edgesOf(11)})
		tr.Record(1, Visit{Origin: 1, Seq: "1", Path: edgesOf(12)})
		tr.Record(1, Visit{Origin: 1, Seq: "1-0", Path: edgesOf(13)})
		combos, capped := tr.Record(1, Visit{Origin: 2, Seq: "2", Path: edgesOf(14)})
		assert.False(t, capped)
		require.Len(t, combos, 4)

		var pairs [][2]string
		for _, c := range combos {
			assert.True(t, c.Complete())
			assert.Equal(t, "2", c.Visits[2].Seq)
			pairs = append(pairs, [2]string{c.Visits[0].Seq, c.Visits[1].Seq})
		}
		assert.Equal(t, [][2]string{
			{"0", "1"}, {"0", "1-0"}, {"0-0", "1"}, {"0-0", "1-0"},
		}, pairs)
	})

	t.Run("cap stops enumeration", func(t *testing.T) {
		tr := NewConvergenceTracker(2, 2)
		tr.Record(1, Visit{Origin: 0, Seq: "0", Path: edgesOf(10)})
		tr.Record(1, Visit{Origin: 0, Seq: "0-0", Path: edgesOf(11)})
		tr.Record(1, Visit{Origin: 0, Seq: "0-1", Path: edgesOf(12)})
		combos, capped := tr.Record(1, Visit{Origin: 1, Seq: "1", Path: edgesOf(13)})
		assert.True(t, capped)
		assert.Len(t, combos, 2)
	})

	t.Run("nodes are tracked separately", func(t *testing.T) {
		tr := NewConvergenceTracker(2, 0)
		tr.Record(1, Visit{Origin: 0, Seq: "0"})
		combos, _ := tr.Record(2, Visit{Origin: 1, Seq: "1"})
		require.Len(t, combos, 1)
		assert.False(t, combos[0].Complete())
		assert.Equal(t, 2, tr.Nodes())
	})
}

func TestAssemble(t *testing.T) {
	shared := &graph.Edge{ID: 7, Weight: 3}
	a := &graph.Edge{ID: 5, Weight: 1}
	b := &graph.Edge{ID: 6, Weight: 2}

	t.Run("shared edges count once", func(t *testing.T) {
		tree := Assemble(Combination{
			Visits: []Visit{
				{Path: []*graph.Edge{a, shared}},
				{Path: []*graph.Edge{b, shared}},
			},
			Missing: []bool{false, false},
		})
		assert.Equal(t, 6.0, tree.Weight)
		assert.Equal(t, []graph.ID{5, 6, 7}, tree.EdgeIDs)
		assert.True(t, tree.Complete())
		assert.NotEmpty(t, tree.Digest)
	})

	t.Run("missing origin means infinite weight", func(t *testing.T) {
		tree := Assemble(Combination{
			Visits:  []Visit{{Path: []*graph.Edge{a}}, {}},
			Missing: []bool{false, true},
		})
		assert.True(t, math.IsInf(tree.Weight, 1))
		assert.False(t, tree.Complete())
		assert.Equal(t, []graph.ID{5}, tree.EdgeIDs)
	})

	t.Run("digest depends on edge set and completeness", func(t *testing.T) {
		one := Assemble(Combination{
			Visits:  []Visit{{Path: []*graph.Edge{a, b}}},
			Missing: []bool{false},
		})
		two := Assemble(Combination{
			Visits:  []Visit{{Path: []*graph.Edge{b, a}}},
			Missing: []bool{false},
		})
		assert.Equal(t, one.Digest, two.Digest)
		assert.NotEqual(t, one.Digest, TreeDigest(one.EdgeIDs, false))
	})
}
