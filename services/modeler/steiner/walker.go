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
	"slices"
	"strconv"

	"github.com/AleutianAI/SemanticModeler/services/modeler/graph"
)

// Graph is the read-only view of the graph a search needs.
//
// *graph.Graph implements it.
type Graph interface {
	Node(id graph.ID) (*graph.Node, bool)
	Edge(id graph.ID) (*graph.Edge, bool)
	IncomingEdges(id graph.ID) []*graph.Edge
}

// Walker is a backward traversal cursor rooted at one origin.
//
// A walker and the siblings it spawns form a lineage that shares an
// Origin. Each walker owns its Path; siblings get an independent copy.
type Walker struct {
	// Origin is the index of the origin in the mapping.
	Origin int

	// OriginNode is the node the lineage started from.
	OriginNode graph.ID

	// Seq identifies this walker within the search. Siblings extend their
	// parent's Seq with "-<n>".
	Seq string

	// Current is the node the walker expands next. Valid only while
	// HasMore() is true.
	Current graph.ID

	// Distance is the weight of the last edge crossed, not the path total.
	Distance float64

	// Path holds the edges crossed so far, origin first.
	Path []*graph.Edge

	exhausted bool
	clones    int

	// pushSeq orders walkers of equal distance on the frontier.
	pushSeq uint64
}

// NewWalker creates the root walker for one origin.
func NewWalker(origin int, node graph.ID) *Walker {
	return &Walker{
		Origin:     origin,
		OriginNode: node,
		Seq:        strconv.Itoa(origin),
		Current:    node,
		Path:       make([]*graph.Edge, 0),
	}
}

// HasMore reports whether the walker can still advance.
func (w *Walker) HasMore() bool {
	return !w.exhausted
}

// Advance moves the walker across the cheapest edge into its current node.
//
// Description:
//
//	The edge with the lowest weight among g.IncomingEdges(Current) is
//	taken; on equal weights the first edge in that order wins. Every other
//	incoming edge spawns a sibling that crosses it instead. The walker is
//	exhausted when there is no incoming edge, or when its path already has
//	maxHops edges (maxHops of zero means no limit).
//
// Inputs:
//
//	g - The graph being searched.
//	maxHops - Path length limit.
//
// Outputs:
//
//	graph.ID - The node that was current before advancing.
//	[]*Walker - Newly spawned siblings, in incoming edge order.
//
// Complexity: O(d * p) where d is the in-degree and p the path length.
func (w *Walker) Advance(g Graph, maxHops int) (graph.ID, []*Walker) {
	prev := w.Current
	if w.exhausted {
		return prev, nil
	}

	incoming := g.IncomingEdges(prev)
	if len(incoming) == 0 || (maxHops > 0 && len(w.Path) >= maxHops) {
		w.exhausted = true
		return prev, nil
	}

	best := 0
	for i, e := range incoming[1:] {
		if e.Weight < incoming[best].Weight {
			best = i + 1
		}
	}

	var siblings []*Walker
	for i, e := range incoming {
		if i == best {
			continue
		}
		siblings = append(siblings, w.spawn(e))
	}

	edge := incoming[best]
	w.Path = append(w.Path, edge)
	w.Current = edge.Source
	w.Distance = edge.Weight
	return prev, siblings
}

// spawn clones the walker across e.
func (w *Walker) spawn(e *graph.Edge) *Walker {
	path := make([]*graph.Edge, len(w.Path), len(w.Path)+1)
	copy(path, w.Path)

	sibling := &Walker{
		Origin:     w.Origin,
		OriginNode: w.OriginNode,
		Seq:        w.Seq + "-" + strconv.Itoa(w.clones),
		Current:    e.Source,
		Distance:   e.Weight,
		Path:       append(path, e),
	}
	w.clones++
	return sibling
}

// snapshot returns the current path as a slice later appends cannot touch.
func (w *Walker) snapshot() []*graph.Edge {
	return slices.Clip(w.Path)
}
