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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddSemanticTypes(t *testing.T) {
	t.Run("creates class, data node and edge", func(t *testing.T) {
		g := NewGraph()
		err := g.AddSemanticTypes([]SemanticType{
			{Class: "foaf:Person", Predicate: "foaf:name", Attribute: "name", Confidence: 0.9},
		})
		require.NoError(t, err)

		classes, _ := g.NodesByLabel(KindClass, "foaf:Person")
		require.Len(t, classes, 1)
		data, _ := g.NodesByLabel(KindDataReference, "name")
		require.Len(t, data, 1)

		e, ok := g.OutgoingEdgeWithLabel(classes[0].ID, "foaf:name")
		require.True(t, ok)
		assert.Equal(t, data[0].ID, e.Target)
		assert.Equal(t, 0.0, e.Weight)
	})

	t.Run("every class node with the label gets an edge", func(t *testing.T) {
		g := NewGraph()
		_, _ = g.AddNode(Node{Label: "foaf:Person"})
		_, _ = g.AddNode(Node{Label: "foaf:Person"})
		err := g.AddSemanticTypes([]SemanticType{
			{Class: "foaf:Person", Predicate: "foaf:name", Attribute: "name"},
		})
		require.NoError(t, err)
		assert.Equal(t, 2, g.EdgeCount())
		assert.Equal(t, 4, g.NodeCount())
	})

	t.Run("existing predicate target is relabelled", func(t *testing.T) {
		g, _, name, _ := buildPersonGraph(t)
		err := g.AddSemanticTypes([]SemanticType{
			{Class: "foaf:Person", Predicate: "foaf:name", Attribute: "full_name"},
		})
		require.NoError(t, err)

		assert.Equal(t, "full_name", name.Label)
		old, _ := g.NodesByLabel(KindDataReference, "name")
		assert.Empty(t, old)

		// The second Person node has no foaf:name edge yet and gets one
		// weighted by the pre-call edge count.
		people, _ := g.NodesByLabel(KindClass, "foaf:Person")
		require.Len(t, people, 2)
		e, ok := g.OutgoingEdgeWithLabel(people[1].ID, "foaf:name")
		require.True(t, ok)
		assert.Equal(t, 2.0, e.Weight)

		relabelled, _ := g.NodesByLabel(KindDataReference, "full_name")
		assert.Len(t, relabelled, 2)
	})

	t.Run("frozen graph", func(t *testing.T) {
		g := NewGraph()
		g.Freeze()
		assert.ErrorIs(t, g.AddSemanticTypes(nil), ErrGraphFrozen)
	})
}

func TestAddOntologyPaths(t *testing.T) {
	g := NewGraph()
	person, _ := g.AddNode(Node{Label: "foaf:Person"})
	org, _ := g.AddNode(Node{Label: "foaf:Organization"})
	_, err := g.AddEdge(Edge{Source: person.ID, Target: org.ID, Label: "ex:worksFor", Weight: 1})
	require.NoError(t, err)

	onto := StaticOntology{
		"foaf:Person": {
			"foaf:Organization": {"ex:worksFor", "ex:memberOf"},
		},
		"foaf:Organization": {
			"foaf:Person": {"ex:employs"},
		},
	}

	added, err := g.AddOntologyPaths(onto)
	require.NoError(t, err)
	assert.Equal(t, 2, added)
	assert.Len(t, g.EdgesBetween(person.ID, org.ID, "ex:worksFor"), 1)

	member := g.EdgesBetween(person.ID, org.ID, "ex:memberOf")
	require.Len(t, member, 1)
	assert.Equal(t, 1.0, member[0].Weight)

	employs := g.EdgesBetween(org.ID, person.ID, "ex:employs")
	require.Len(t, employs, 1)
	assert.Equal(t, 1.0, employs[0].Weight)

	t.Run("second call adds nothing", func(t *testing.T) {
		added, err := g.AddOntologyPaths(onto)
		require.NoError(t, err)
		assert.Zero(t, added)
	})

	t.Run("nil ontology", func(t *testing.T) {
		added, err := g.AddOntologyPaths(nil)
		require.NoError(t, err)
		assert.Zero(t, added)
	})
}

func TestSubgraphFromTree(t *testing.T) {
	g, person, name, other := buildPersonGraph(t)
	knows := g.EdgesByLabel("foaf:knows")[0]

	sub, err := SubgraphFromTree(g, []ID{knows.ID, knows.ID})
	require.NoError(t, err)
	assert.Equal(t, 1, sub.EdgeCount())
	assert.Equal(t, 2, sub.NodeCount())

	_, ok := sub.Node(person.ID)
	assert.True(t, ok)
	_, ok = sub.Node(other.ID)
	assert.True(t, ok)
	_, ok = sub.Node(name.ID)
	assert.False(t, ok)

	n, err := sub.AddNode(Node{Label: "ex:Extra"})
	require.NoError(t, err)
	assert.Equal(t, knows.ID+1, n.ID)

	t.Run("empty tree", func(t *testing.T) {
		_, err := SubgraphFromTree(g, nil)
		assert.ErrorIs(t, err, ErrEmptyTree)
	})

	t.Run("node id is not an edge", func(t *testing.T) {
		_, err := SubgraphFromTree(g, []ID{person.ID})
		assert.ErrorIs(t, err, ErrEdgeNotFound)
	})
}
