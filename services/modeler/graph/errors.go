// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package graph provides the weighted attribute graph that semantic models
// are searched in.
//
// The graph is directed. Nodes are either Class nodes (ontology classes) or
// DataReference nodes (attribute values). Edges carry a non-negative weight
// where lower means stronger evidence, plus a set of provenance tags naming
// the source models that contributed the edge.
//
// # Identifiers
//
// Nodes and edges share a single id space handed out by an IDAllocator owned
// by the graph. Ids are monotonic and never reused, so an id alone is enough
// to look up either a node or an edge with Get().
//
// # Thread Safety
//
// Graph is NOT safe for concurrent use during building. It is designed for:
//   - Single-writer access during build phase (AddNode, AddEdge calls)
//   - Read-only access after Freeze() is called
//
// After Freeze(), the graph can be safely read from multiple goroutines,
// which is what allows several searches to run on one graph at once.
//
// # Lifecycle
//
//  1. Create with NewGraph()
//  2. Build with AddNode(), AddEdge(), AddSemanticTypes(), AddOntologyPaths()
//  3. Call Freeze() to finalize
//  4. Search it, or materialize trees with SubgraphFromTree()
package graph

import "errors"

// Sentinel errors for graph operations.
var (
	// ErrInvalidKind is returned when a node kind is outside the closed
	// Class/DataReference enumeration.
	ErrInvalidKind = errors.New("invalid node kind")

	// ErrGraphFrozen is returned when attempting to modify a frozen graph.
	ErrGraphFrozen = errors.New("graph is frozen and cannot be modified")

	// ErrNodeNotFound is returned when an edge references a non-existent node.
	ErrNodeNotFound = errors.New("node not found")

	// ErrEdgeNotFound is returned when an edge id does not resolve to an edge.
	ErrEdgeNotFound = errors.New("edge not found")

	// ErrNegativeWeight is returned when an edge is created with a weight
	// below zero. The search relies on non-negative weights.
	ErrNegativeWeight = errors.New("edge weight must be non-negative")

	// ErrMaxNodesExceeded is returned when the graph has reached its
	// configured maximum node capacity.
	ErrMaxNodesExceeded = errors.New("maximum node count exceeded")

	// ErrMaxEdgesExceeded is returned when the graph has reached its
	// configured maximum edge capacity.
	ErrMaxEdgesExceeded = errors.New("maximum edge count exceeded")

	// ErrEmptyTree is returned when materializing a tree without edges.
	ErrEmptyTree = errors.New("tree has no edges")
)
