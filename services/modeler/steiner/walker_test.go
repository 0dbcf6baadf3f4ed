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
	"github.com/stretchr/testify/require"
)

func TestWalker_Advance(t *testing.T) {
	f := newFixture(t, "O", "P", "Q", "R")
	f.edge(t, "P", "O", 3)
	f.edge(t, "Q", "O", 1)
	f.edge(t, "R", "O", 2)

	w := NewWalker(0, f.nodes["O"])
	require.True(t, w.HasMore())

	prev, siblings := w.Advance(f.g, 0)
	assert.Equal(t, f.nodes["O"], prev)

	t.Run("takes the cheapest edge", func(t *testing.T) {
		assert.Equal(t, f.nodes["Q"], w.Current)
		assert.Equal(t, 1.0, w.Distance)
		require.Len(t, w.Path, 1)
		assert.Equal(t, f.edges["QO"], w.Path[0].ID)
	})

	t.Run("spawns a sibling per other edge", func(t *testing.T) {
		require.Len(t, siblings, 2)

		assert.Equal(t, f.nodes["P"], siblings[0].Current)
		assert.Equal(t, 3.0, siblings[0].Distance)
		assert.Equal(t, "0-0", siblings[0].Seq)

		assert.Equal(t, f.nodes["R"], siblings[1].Current)
		assert.Equal(t, 2.0, siblings[1].Distance)
		assert.Equal(t, "0-1", siblings[1].Seq)

		for _, s := range siblings {
			assert.Equal(t, 0, s.Origin)
			assert.Equal(t, f.nodes["O"], s.OriginNode)
			require.Len(t, s.Path, 1)
		}
	})

	t.Run("exhausted at a node without incoming edges", func(t *testing.T) {
		prev, siblings := w.Advance(f.g, 0)
		assert.Equal(t, f.nodes["Q"], prev)
		assert.Empty(t, siblings)
		assert.False(t, w.HasMore())
		assert.Len(t, w.Path, 1)
	})
}

func TestWalker_TieGoesToFirstEdge(t *testing.T) {
	f := newFixture(t, "O", "P", "Q")
	f.edge(t, "P", "O", 1)
	f.edge(t, "Q", "O", 1)

	w := NewWalker(0, f.nodes["O"])
	_, siblings := w.Advance(f.g, 0)

	assert.Equal(t, f.nodes["P"], w.Current)
	require.Len(t, siblings, 1)
	assert.Equal(t, f.nodes["Q"], siblings[0].Current)
}

func TestWalker_SiblingPathIsIndependent(t *testing.T) {
	f := newFixture(t, "O", "M", "P", "Q")
	f.edge(t, "M", "O", 1)
	f.edge(t, "P", "M", 1)
	f.edge(t, "Q", "M", 2)

	w := NewWalker(0, f.nodes["O"])
	w.Advance(f.g, 0)
	_, siblings := w.Advance(f.g, 0)
	require.Len(t, siblings, 1)

	sibling := siblings[0]
	assert.Equal(t, f.edges["QM"], sibling.Path[1].ID)
	assert.Equal(t, f.edges["PM"], w.Path[1].ID)

	sibling.Path[0] = nil
	assert.NotNil(t, w.Path[0])
}

func TestWalker_MaxHops(t *testing.T) {
	f := newFixture(t, "A", "B")
	f.edge(t, "A", "B", 1)
	f.edge(t, "B", "A", 1)

	w := NewWalker(0, f.nodes["A"])
	for w.HasMore() {
		w.Advance(f.g, 3)
		require.LessOrEqual(t, len(w.Path), 3)
	}
	assert.Len(t, w.Path, 3)
}

func TestFrontier_Order(t *testing.T) {
	f := NewFrontier()
	a := &Walker{Seq: "a", Distance: 2}
	b := &Walker{Seq: "b", Distance: 1}
	c := &Walker{Seq: "c", Distance: 2}
	d := &Walker{Seq: "d", Distance: 0}

	for _, w := range []*Walker{a, b, c, d} {
		f.Push(w)
	}
	assert.Equal(t, 4, f.Len())

	var got []string
	for !f.IsEmpty() {
		got = append(got, f.Pop().Seq)
	}
	assert.Equal(t, []string{"d", "b", "a", "c"}, got)
	assert.Nil(t, f.Pop())
}
