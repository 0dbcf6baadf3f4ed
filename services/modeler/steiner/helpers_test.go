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
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/SemanticModeler/services/modeler/graph"
)

// fixture builds small graphs with named nodes. Edge "AB" runs from A to B.
type fixture struct {
	g     *graph.Graph
	nodes map[string]graph.ID
	edges map[string]graph.ID
}

func newFixture(t *testing.T, names ...string) *fixture {
	t.Helper()
	f := &fixture{
		g:     graph.NewGraph(),
		nodes: make(map[string]graph.ID),
		edges: make(map[string]graph.ID),
	}
	for _, name := range names {
		n, err := f.g.AddNode(graph.Node{Label: name})
		require.NoError(t, err)
		f.nodes[name] = n.ID
	}
	return f
}

func (f *fixture) edge(t *testing.T, src, dst string, weight float64, tags ...string) graph.ID {
	t.Helper()
	e, err := f.g.AddEdge(graph.Edge{
		Source: f.nodes[src],
		Target: f.nodes[dst],
		Label:  src + dst,
		Weight: weight,
		Tags:   tags,
	})
	require.NoError(t, err)
	f.edges[src+dst] = e.ID
	return e.ID
}

func (f *fixture) mapping(origins ...string) graph.Mapping {
	ids := make([]graph.ID, len(origins))
	for i, name := range origins {
		ids[i] = f.nodes[name]
	}
	return graph.MappingFromOrigins(ids...)
}

// randomDAG builds a graph whose edges always run from a lower to a higher
// node index, so backward walks terminate.
func randomDAG(t *testing.T, seed uint64, nodes int, density float64) *graph.Graph {
	t.Helper()
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	g := graph.NewGraph()
	ids := make([]graph.ID, nodes)
	for i := range nodes {
		n, err := g.AddNode(graph.Node{Label: "n"})
		require.NoError(t, err)
		ids[i] = n.ID
	}
	tags := []string{"m1", "m2", "m3"}
	for i := range nodes {
		for j := i + 1; j < nodes; j++ {
			if rng.Float64() > density {
				continue
			}
			_, err := g.AddEdge(graph.Edge{
				Source: ids[i],
				Target: ids[j],
				Weight: float64(rng.IntN(5) + 1),
				Tags:   []string{tags[rng.IntN(len(tags))]},
			})
			require.NoError(t, err)
		}
	}
	g.Freeze()
	return g
}
