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

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildPersonGraph creates Person -name-> (name), Person -knows-> Person2.
func buildPersonGraph(t *testing.T) (*Graph, *Node, *Node, *Node) {
	t.Helper()
	g := NewGraph()
	person, err := g.AddNode(Node{Kind: KindClass, Label: "foaf:Person", Tags: []string{"m1"}})
	require.NoError(t, err)
	name, err := g.AddNode(Node{Kind: KindDataReference, Label: "name"})
	require.NoError(t, err)
	other, err := g.AddNode(Node{Label: "foaf:Person"})
	require.NoError(t, err)
	_, err = g.AddEdge(Edge{Source: person.ID, Target: name.ID, Label: "foaf:name", Weight: 1, Tags: []string{"m1"}})
	require.NoError(t, err)
	_, err = g.AddEdge(Edge{Source: person.ID, Target: other.ID, Label: "foaf:knows", Weight: 2})
	require.NoError(t, err)
	return g, person, name, other
}

func TestGraphState_String(t *testing.T) {
	tests := []struct {
		state    GraphState
		expected string
	}{
		{GraphStateBuilding, "building"},
		{GraphStateReadOnly, "readonly"},
		{GraphState(99), "unknown"},
	}

	for _, tc := range tests {
		assert.Equal(t, tc.expected, tc.state.String())
	}
}

func TestParseNodeKind(t *testing.T) {
	tests := []struct {
		in      string
		want    NodeKind
		wantErr bool
	}{
		{"class", KindClass, false},
		{"", KindClass, false},
		{"Data_Reference", KindDataReference, false},
		{"data", KindDataReference, false},
		{"literal", 0, true},
	}

	for _, tc := range tests {
		t.Run(tc.in, func(t *testing.T) {
			got, err := ParseNodeKind(tc.in)
			if tc.wantErr {
				assert.ErrorIs(t, err, ErrInvalidKind)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestIDAllocator_SharedSpace(t *testing.T) {
	g, person, name, other := buildPersonGraph(t)

	assert.Equal(t, ID(0), person.ID)
	assert.Equal(t, ID(1), name.ID)
	assert.Equal(t, ID(2), other.ID)

	edges := g.AllEdges()
	require.Len(t, edges, 2)
	assert.Equal(t, ID(3), edges[0].ID)
	assert.Equal(t, ID(4), edges[1].ID)
	assert.Equal(t, ID(4), g.MaxID())

	t.Run("graphs do not share counters", func(t *testing.T) {
		g2 := NewGraph()
		n, err := g2.AddNode(Node{Label: "x"})
		require.NoError(t, err)
		assert.Equal(t, ID(0), n.ID)
	})

	t.Run("reserve skips ahead", func(t *testing.T) {
		a := NewIDAllocator(0)
		a.Reserve(10)
		assert.Equal(t, ID(11), a.Next())
		a.Reserve(3)
		assert.Equal(t, ID(12), a.Next())
	})
}

func TestGraph_AddNode(t *testing.T) {
	t.Run("default kind is class", func(t *testing.T) {
		g := NewGraph()
		n, err := g.AddNode(Node{Label: "ex:Thing"})
		require.NoError(t, err)
		assert.Equal(t, KindClass, n.Kind)
	})

	t.Run("invalid kind", func(t *testing.T) {
		g := NewGraph()
		_, err := g.AddNode(Node{Kind: NodeKind(7)})
		assert.True(t, errors.Is(err, ErrInvalidKind))
	})

	t.Run("capacity", func(t *testing.T) {
		g := NewGraph(WithMaxNodes(1))
		_, err := g.AddNode(Node{})
		require.NoError(t, err)
		_, err = g.AddNode(Node{})
		assert.ErrorIs(t, err, ErrMaxNodesExceeded)
	})

	t.Run("frozen", func(t *testing.T) {
		g := NewGraph()
		g.Freeze()
		_, err := g.AddNode(Node{})
		assert.ErrorIs(t, err, ErrGraphFrozen)
		assert.True(t, g.IsFrozen())
		assert.NotZero(t, g.BuiltAtMilli)
	})

	t.Run("tags are copied", func(t *testing.T) {
		g := NewGraph()
		tags := []string{"a"}
		n, err := g.AddNode(Node{Tags: tags})
		require.NoError(t, err)
		tags[0] = "b"
		assert.Equal(t, []string{"a"}, n.Tags)
	})
}

func TestGraph_AddEdge(t *testing.T) {
	g := NewGraph()
	a, _ := g.AddNode(Node{Label: "A"})
	b, _ := g.AddNode(Node{Label: "B"})

	tests := []struct {
		name string
		edge Edge
		err  error
	}{
		{"ok", Edge{Source: a.ID, Target: b.ID, Weight: 1}, nil},
		{"zero weight", Edge{Source: a.ID, Target: b.ID}, nil},
		{"missing source", Edge{Source: 99, Target: b.ID}, ErrNodeNotFound},
		{"missing target", Edge{Source: a.ID, Target: 99}, ErrNodeNotFound},
		{"negative weight", Edge{Source: a.ID, Target: b.ID, Weight: -1}, ErrNegativeWeight},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := g.AddEdge(tc.edge)
			if tc.err == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tc.err)
			}
		})
	}

	t.Run("capacity", func(t *testing.T) {
		g := NewGraph(WithMaxEdges(0))
		a, _ := g.AddNode(Node{})
		_, err := g.AddEdge(Edge{Source: a.ID, Target: a.ID})
		assert.ErrorIs(t, err, ErrMaxEdgesExceeded)
	})
}

func TestGraph_Queries(t *testing.T) {
	g, person, name, other := buildPersonGraph(t)
	g.Freeze()

	t.Run("get resolves nodes and edges", func(t *testing.T) {
		el, ok := g.Get(person.ID)
		require.True(t, ok)
		assert.IsType(t, &Node{}, el)

		el, ok = g.Get(3)
		require.True(t, ok)
		assert.IsType(t, &Edge{}, el)

		_, ok = g.Get(42)
		assert.False(t, ok)
	})

	t.Run("nodes by label", func(t *testing.T) {
		people, err := g.NodesByLabel(KindClass, "foaf:Person")
		require.NoError(t, err)
		require.Len(t, people, 2)
		assert.Equal(t, person.ID, people[0].ID)
		assert.Equal(t, other.ID, people[1].ID)

		none, err := g.NodesByLabel(KindDataReference, "foaf:Person")
		require.NoError(t, err)
		assert.Empty(t, none)

		_, err = g.NodesByLabel(NodeKind(5), "x")
		assert.ErrorIs(t, err, ErrInvalidKind)
	})

	t.Run("nodes by kind", func(t *testing.T) {
		data, err := g.NodesByKind(KindDataReference)
		require.NoError(t, err)
		require.Len(t, data, 1)
		assert.Equal(t, name.ID, data[0].ID)
	})

	t.Run("incoming and outgoing", func(t *testing.T) {
		assert.Len(t, g.OutgoingEdges(person.ID), 2)
		assert.Len(t, g.IncomingEdges(name.ID), 1)
		assert.Empty(t, g.IncomingEdges(person.ID))

		e, ok := g.OutgoingEdgeWithLabel(person.ID, "foaf:knows")
		require.True(t, ok)
		assert.Equal(t, other.ID, e.Target)

		_, ok = g.OutgoingEdgeWithLabel(person.ID, "foaf:age")
		assert.False(t, ok)
	})

	t.Run("edges between", func(t *testing.T) {
		assert.Len(t, g.EdgesBetween(person.ID, name.ID, ""), 1)
		assert.Len(t, g.EdgesBetween(person.ID, name.ID, "foaf:name"), 1)
		assert.Empty(t, g.EdgesBetween(person.ID, name.ID, "foaf:knows"))
		assert.Len(t, g.EdgesBetweenKinds(KindClass, KindClass), 1)
		assert.Len(t, g.EdgesByLabel("foaf:name"), 1)
	})

	t.Run("stats", func(t *testing.T) {
		stats := g.Stats()
		assert.Equal(t, 3, stats.NodeCount)
		assert.Equal(t, 2, stats.EdgeCount)
		assert.Equal(t, 2, stats.ClassCount)
		assert.Equal(t, 1, stats.DataReferenceCount)
		assert.Equal(t, GraphStateReadOnly, stats.State)
	})
}

func TestGraph_Clone(t *testing.T) {
	g, person, _, _ := buildPersonGraph(t)
	g.Freeze()

	clone := g.Clone()
	assert.False(t, clone.IsFrozen())
	assert.Equal(t, g.NodeCount(), clone.NodeCount())
	assert.Equal(t, g.EdgeCount(), clone.EdgeCount())

	n, err := clone.AddNode(Node{Label: "ex:New"})
	require.NoError(t, err)
	assert.Equal(t, ID(5), n.ID)
	assert.Equal(t, 3, g.NodeCount())

	cp, ok := clone.Node(person.ID)
	require.True(t, ok)
	cp.Tags[0] = "changed"
	assert.Equal(t, "m1", person.Tags[0])
}
