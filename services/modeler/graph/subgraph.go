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
	"fmt"
	"slices"
)

// SubgraphFromTree materializes a tree of edge ids as its own graph.
//
// Description:
//
//	The result holds exactly the given edges and their endpoint nodes. Ids
//	are preserved so that trees can be traced back to the source graph; the
//	result's allocator starts above the largest id it contains. Nodes are
//	added in first-seen order while walking edgeIDs. Duplicate ids are
//	ignored.
//
// Inputs:
//
//	g - The graph the tree was searched in.
//	edgeIDs - The tree's edges.
//
// Outputs:
//
//	*Graph - A new graph in the Building state.
//	error - ErrEmptyTree, or ErrEdgeNotFound when an id is not an edge of g.
func SubgraphFromTree(g *Graph, edgeIDs []ID) (*Graph, error) {
	if len(edgeIDs) == 0 {
		return nil, ErrEmptyTree
	}

	edges := make([]*Edge, 0, len(edgeIDs))
	nodes := make([]*Node, 0, len(edgeIDs)+1)
	seenNodes := make(map[ID]bool)
	seenEdges := make(map[ID]bool)
	largest := ID(-1)

	addNode := func(id ID) {
		if seenNodes[id] {
			return
		}
		seenNodes[id] = true
		nodes = append(nodes, g.nodeIndex[id])
		largest = max(largest, id)
	}

	for _, id := range edgeIDs {
		if seenEdges[id] {
			continue
		}
		edge, ok := g.edgeIndex[id]
		if !ok {
			return nil, fmt.Errorf("%w: %d", ErrEdgeNotFound, id)
		}
		seenEdges[id] = true
		edges = append(edges, edge)
		largest = max(largest, id)
		addNode(edge.Source)
		addNode(edge.Target)
	}

	sub := NewGraph(
		WithMaxNodes(max(g.options.MaxNodes, len(nodes))),
		WithMaxEdges(max(g.options.MaxEdges, len(edges))),
		WithFirstID(largest+1),
	)
	for _, n := range nodes {
		cp := *n
		cp.Tags = slices.Clone(n.Tags)
		sub.insertNode(&cp)
	}
	for _, e := range edges {
		cp := *e
		cp.Tags = slices.Clone(e.Tags)
		cp.JoinConditions = slices.Clone(e.JoinConditions)
		sub.insertEdge(&cp)
	}
	return sub, nil
}
